package tracker

import (
	"net/http"

	"github.com/aescarias/apricot/bencode"
)

// WriteFailure writes a bencoded {"failure reason": ...} dict. Per the
// BitTorrent convention the HTTP status is always 200; the failure is
// communicated in the body, not the status line.
func WriteFailure(w http.ResponseWriter, reason string) error {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	dict := bencode.Dict{
		"failure reason": bencode.String(reason),
	}
	_, err := w.Write(bencode.Encode(dict))
	return err
}

// WriteSuccess writes a bencoded announce success dict. Peers are
// rendered in compact form when requested, else as a list of
// {ip, port, peer id?} dicts.
func WriteSuccess(w http.ResponseWriter, result *Result, compact bool, includePeerId bool) error {
	dict := bencode.Dict{
		"interval":   bencode.Int(int64(result.Interval.Seconds())),
		"complete":   bencode.Int(int64(result.Complete)),
		"incomplete": bencode.Int(int64(result.Incomplete)),
	}

	if result.MinInterval > 0 {
		dict["min interval"] = bencode.Int(int64(result.MinInterval.Seconds()))
	}
	if result.TrackerId != "" {
		dict["tracker id"] = bencode.String(result.TrackerId)
	}

	if compact {
		dict["peers"] = bencode.String(compactPeers(result.Peers))
	} else {
		dict["peers"] = peerDictList(result.Peers, includePeerId)
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(bencode.Encode(dict))
	return err
}

func compactPeers(peers []*Peer) []byte {
	out := make([]byte, 0, len(peers)*6)
	for _, p := range peers {
		ip4 := p.IP.To4()
		if ip4 == nil {
			continue // compact format is IPv4-only; skip entries we cannot represent
		}
		out = append(out, ip4...)
		out = append(out, byte(p.Port>>8), byte(p.Port))
	}
	return out
}

func peerDictList(peers []*Peer, includePeerId bool) bencode.List {
	list := make(bencode.List, 0, len(peers))
	for _, p := range peers {
		entry := bencode.Dict{
			"ip":   bencode.String(p.IP.String()),
			"port": bencode.Int(int64(p.Port)),
		}
		if includePeerId && p.PeerId != nil {
			entry["peer id"] = bencode.String(string(p.PeerId[:]))
		}
		list = append(list, entry)
	}
	return list
}
