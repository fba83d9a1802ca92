// Package metainfo decodes a .torrent metainfo file into a typed model
// while binding its info-hash to the exact bytes the "info" dictionary
// occupied on the wire.
package metainfo

import (
	"crypto/sha1"
	"fmt"
	"time"

	"github.com/aescarias/apricot/bencode"
	"github.com/aescarias/apricot/wireid"
)

// File describes one file within a multi-file torrent.
type File struct {
	Length int64
	Path   []string
	MD5Sum string
}

// Info describes the contents of the "info" sub-dictionary: either a
// single file (Length set, Files nil) or multiple files (Files set,
// Length nil).
type Info struct {
	Name        string
	PieceLength int64
	Pieces      []byte // concatenated 20-byte SHA-1 digests
	Length      *int64
	Files       []File
	MD5Sum      string
}

// PieceHashes splits Pieces into its individual 20-byte SHA-1 digests.
func (i *Info) PieceHashes() [][20]byte {
	hashes := make([][20]byte, len(i.Pieces)/20)
	for idx := range hashes {
		copy(hashes[idx][:], i.Pieces[idx*20:idx*20+20])
	}
	return hashes
}

// TotalLength returns the sum of all file lengths described by Info.
func (i *Info) TotalLength() int64 {
	if i.Length != nil {
		return *i.Length
	}
	var total int64
	for _, f := range i.Files {
		total += f.Length
	}
	return total
}

// Metainfo is the decoded contents of a .torrent file.
type Metainfo struct {
	Info         Info
	AnnounceURL  string
	AnnounceList [][]string
	CreationDate *time.Time
	Comment      string
	CreatedBy    string
	Encoding     string

	infoHash wireid.InfoHash
}

// InfoHash returns the SHA-1 digest of the raw bytes the "info"
// dictionary occupied in the source file. It is bound at Load time and
// is never recomputed from the projected Info model, since a
// re-encoding of that model is only guaranteed to match the original
// bytes when the original author's encoder agreed with ours on ordering
// of any nonstandard extra keys — which it need not have.
func (m *Metainfo) InfoHash() wireid.InfoHash {
	return m.infoHash
}

// Load decodes a .torrent file's contents into a Metainfo.
func Load(data []byte) (*Metainfo, error) {
	top, spans, err := bencode.DecodeDictWithSpans(data)
	if err != nil {
		return nil, fmt.Errorf("metainfo: could not decode bencode: %w", err)
	}

	infoSpan, ok := spans["info"]
	if !ok {
		return nil, fmt.Errorf("metainfo: missing \"info\" key")
	}
	infoDict, err := top.GetDict("info")
	if err != nil {
		return nil, fmt.Errorf("metainfo: %w", err)
	}

	announce, err := top.GetString("announce")
	if err != nil {
		return nil, fmt.Errorf("metainfo: %w", err)
	}

	info, err := parseInfo(infoDict)
	if err != nil {
		return nil, fmt.Errorf("metainfo: %w", err)
	}

	m := &Metainfo{
		Info:        *info,
		AnnounceURL: string(announce),
		infoHash:    sha1.Sum(infoSpan),
	}

	if rawList, ok := top.Get("announce-list"); ok {
		tiers, err := parseAnnounceList(rawList)
		if err != nil {
			return nil, fmt.Errorf("metainfo: %w", err)
		}
		m.AnnounceList = tiers
	}

	if rawDate, ok := top.Get("creation date"); ok {
		secs, ok := rawDate.(bencode.Int)
		if !ok {
			return nil, fmt.Errorf("metainfo: \"creation date\" must be an integer")
		}
		t := time.Unix(int64(secs), 0).UTC()
		m.CreationDate = &t
	}

	if comment, ok := top.Get("comment"); ok {
		s, ok := comment.(bencode.String)
		if !ok {
			return nil, fmt.Errorf("metainfo: \"comment\" must be a string")
		}
		m.Comment = string(s)
	}

	if createdBy, ok := top.Get("created by"); ok {
		s, ok := createdBy.(bencode.String)
		if !ok {
			return nil, fmt.Errorf("metainfo: \"created by\" must be a string")
		}
		m.CreatedBy = string(s)
	}

	if encoding, ok := top.Get("encoding"); ok {
		s, ok := encoding.(bencode.String)
		if !ok {
			return nil, fmt.Errorf("metainfo: \"encoding\" must be a string")
		}
		m.Encoding = string(s)
	}

	return m, nil
}

func parseAnnounceList(raw bencode.Value) ([][]string, error) {
	tiersVal, ok := raw.(bencode.List)
	if !ok {
		return nil, fmt.Errorf("\"announce-list\" must be a list")
	}

	tiers := make([][]string, len(tiersVal))
	for i, tierVal := range tiersVal {
		tierList, ok := tierVal.(bencode.List)
		if !ok {
			return nil, fmt.Errorf("\"announce-list\" tier %d must be a list", i)
		}

		tier := make([]string, len(tierList))
		for j, urlVal := range tierList {
			urlStr, ok := urlVal.(bencode.String)
			if !ok {
				return nil, fmt.Errorf("\"announce-list\" tier %d entry %d must be a string", i, j)
			}
			tier[j] = string(urlStr)
		}
		tiers[i] = tier
	}

	return tiers, nil
}

func parseInfo(dict bencode.Dict) (*Info, error) {
	pieceLength, err := dict.GetInt("piece length")
	if err != nil {
		return nil, err
	}

	pieces, err := dict.GetString("pieces")
	if err != nil {
		return nil, err
	}
	if len(pieces) == 0 || len(pieces)%20 != 0 {
		return nil, fmt.Errorf("\"pieces\" must be a nonempty multiple of 20 bytes, got %d", len(pieces))
	}

	name, err := dict.GetString("name")
	if err != nil {
		return nil, err
	}

	info := &Info{
		Name:        string(name),
		PieceLength: int64(pieceLength),
		Pieces:      []byte(pieces),
	}

	if md5, ok := dict.Get("md5sum"); ok {
		s, ok := md5.(bencode.String)
		if !ok {
			return nil, fmt.Errorf("\"md5sum\" must be a string")
		}
		info.MD5Sum = string(s)
	}

	_, hasLength := dict.Get("length")
	_, hasFiles := dict.Get("files")

	switch {
	case hasLength && hasFiles:
		return nil, fmt.Errorf("\"info\" must not contain both \"length\" and \"files\"")
	case hasLength:
		length, err := dict.GetInt("length")
		if err != nil {
			return nil, err
		}
		l := int64(length)
		info.Length = &l
	case hasFiles:
		rawFiles, err := dict.GetList("files")
		if err != nil {
			return nil, err
		}
		files, err := parseFiles(rawFiles)
		if err != nil {
			return nil, err
		}
		info.Files = files
	default:
		return nil, fmt.Errorf("\"info\" must contain exactly one of \"length\" or \"files\"")
	}

	return info, nil
}

func parseFiles(rawFiles bencode.List) ([]File, error) {
	files := make([]File, len(rawFiles))

	for i, rawFile := range rawFiles {
		fileDict, ok := rawFile.(bencode.Dict)
		if !ok {
			return nil, fmt.Errorf("\"files\" entry %d must be a dict", i)
		}

		length, err := fileDict.GetInt("length")
		if err != nil {
			return nil, fmt.Errorf("\"files\" entry %d: %w", i, err)
		}

		rawPath, err := fileDict.GetList("path")
		if err != nil {
			return nil, fmt.Errorf("\"files\" entry %d: %w", i, err)
		}

		path := make([]string, len(rawPath))
		for j, part := range rawPath {
			s, ok := part.(bencode.String)
			if !ok {
				return nil, fmt.Errorf("\"files\" entry %d path part %d must be a string", i, j)
			}
			path[j] = string(s)
		}

		file := File{Length: int64(length), Path: path}
		if md5, ok := fileDict.Get("md5sum"); ok {
			s, ok := md5.(bencode.String)
			if !ok {
				return nil, fmt.Errorf("\"files\" entry %d: \"md5sum\" must be a string", i)
			}
			file.MD5Sum = string(s)
		}

		files[i] = file
	}

	return files, nil
}
