// Package wireid implements the fixed-width opaque byte identifiers used
// throughout the peer-wire and tracker-announce protocols: info-hashes,
// peer IDs, peer keys and block references.
package wireid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// InfoHash is the 20-byte SHA-1 digest of a torrent's bencoded info
// dictionary.
type InfoHash [20]byte

// String renders the info-hash as lowercase hex.
func (h InfoHash) String() string {
	return hex.EncodeToString(h[:])
}

// PeerId is a 20-byte opaque client identity.
type PeerId [20]byte

// String renders the peer ID as lowercase hex.
func (p PeerId) String() string {
	return hex.EncodeToString(p[:])
}

// NewPeerId builds an Azureus-style peer ID: '-' + a 2-byte client tag +
// a 4-digit version + '-' followed by 12 random bytes.
func NewPeerId(tag string, version [2]byte) (PeerId, error) {
	if len(tag) != 2 {
		return PeerId{}, fmt.Errorf("wireid: client tag must be 2 bytes, got %q", tag)
	}

	var id PeerId
	id[0] = '-'
	id[1] = tag[0]
	id[2] = tag[1]
	id[3] = version[0]
	id[4] = version[1]
	id[5] = '0'
	id[6] = '0'
	id[7] = '-'

	if _, err := rand.Read(id[8:]); err != nil {
		return PeerId{}, fmt.Errorf("wireid: could not generate random suffix: %w", err)
	}

	return id, nil
}

// PeerKey is a variable-length opaque byte string a peer supplies for
// out-of-band identification across IP changes.
type PeerKey []byte

func (k PeerKey) String() string {
	return hex.EncodeToString(k)
}

// BlockRef addresses a sub-range of one piece: a piece index, a byte
// offset within that piece, and a length. It is exchanged on the wire as
// 12 bytes: index (u32 BE) || begin (u32 BE) || length (u32 BE).
type BlockRef struct {
	Index  uint32
	Begin  uint32
	Length uint32
}
