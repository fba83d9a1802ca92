package tracker

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/aescarias/apricot/wireid"
)

// Event is one of the three events a client may report on an announce.
type Event string

const (
	EventStarted   Event = "started"
	EventCompleted Event = "completed"
	EventStopped   Event = "stopped"
	EventNone      Event = ""
)

// Query is a parsed announce query string. All percent-encoded
// fixed-width identifiers are decoded via wireid, not net/url, since
// they carry arbitrary binary bytes that url.Values would mangle.
type Query struct {
	InfoHash      wireid.InfoHash
	PeerId        wireid.PeerId
	Ip            string
	Port          uint16
	Uploaded      uint64
	Downloaded    uint64
	Left          uint64
	Event         Event
	NumWant       int
	HasNumWant    bool
	Key           string
	Compact       bool
	SupportCrypto bool
	RequireCrypto bool
	NoPeerId      bool
	TrackerId     string
}

// ErrMalformedQuery is returned for any announce query parse failure.
// Its message is surfaced verbatim in the bencoded Failure response.
type ErrMalformedQuery struct {
	Reason string
}

func (e *ErrMalformedQuery) Error() string {
	return e.Reason
}

// ParseQuery parses a raw (already percent-encoded) query string as
// sent in a GET /announce request.
func ParseQuery(raw string) (*Query, error) {
	fields := make(map[string]string)

	for _, clause := range strings.Split(raw, "&") {
		if clause == "" {
			continue
		}
		key, value, ok := strings.Cut(clause, "=")
		if !ok {
			continue
		}
		fields[key] = value
	}

	q := &Query{}

	infoHashRaw, ok := fields["info_hash"]
	if !ok {
		return nil, &ErrMalformedQuery{"Missing one or more required fields."}
	}
	infoHash, err := wireid.DecodeInfoHash(infoHashRaw)
	if err != nil {
		return nil, &ErrMalformedQuery{"Missing one or more required fields."}
	}
	q.InfoHash = infoHash

	peerIdRaw, ok := fields["peer_id"]
	if !ok {
		return nil, &ErrMalformedQuery{"Missing one or more required fields."}
	}
	peerId, err := wireid.DecodePeerId(peerIdRaw)
	if err != nil {
		return nil, &ErrMalformedQuery{"Missing one or more required fields."}
	}
	q.PeerId = peerId

	port, ok, err := parseRequiredUint(fields, "port", 16)
	if !ok || err != nil {
		return nil, &ErrMalformedQuery{"Missing one or more required fields."}
	}
	q.Port = uint16(port)

	uploaded, ok, err := parseRequiredUint(fields, "uploaded", 64)
	if !ok || err != nil {
		return nil, &ErrMalformedQuery{"Missing one or more required fields."}
	}
	q.Uploaded = uploaded

	downloaded, ok, err := parseRequiredUint(fields, "downloaded", 64)
	if !ok || err != nil {
		return nil, &ErrMalformedQuery{"Missing one or more required fields."}
	}
	q.Downloaded = downloaded

	left, ok, err := parseRequiredUint(fields, "left", 64)
	if !ok || err != nil {
		return nil, &ErrMalformedQuery{"Missing one or more required fields."}
	}
	q.Left = left

	if ip, ok := fields["ip"]; ok {
		decoded, err := wireid.PercentDecode(ip)
		if err != nil {
			return nil, &ErrMalformedQuery{"Invalid \"ip\" value"}
		}
		q.Ip = string(decoded)
	}

	if event, ok := fields["event"]; ok {
		switch Event(event) {
		case EventStarted, EventCompleted, EventStopped:
			q.Event = Event(event)
		default:
			return nil, &ErrMalformedQuery{"Unknown event"}
		}
	}

	if numwant, ok := fields["numwant"]; ok {
		n, err := strconv.Atoi(numwant)
		if err != nil {
			return nil, &ErrMalformedQuery{"Invalid \"numwant\" value"}
		}
		q.NumWant = n
		q.HasNumWant = true
	}

	if key, ok := fields["key"]; ok {
		decoded, err := wireid.PercentDecode(key)
		if err != nil {
			return nil, &ErrMalformedQuery{"Invalid \"key\" value"}
		}
		q.Key = string(decoded)
	}

	q.Compact = fields["compact"] == "1"
	q.SupportCrypto = fields["supportcrypto"] == "1"
	q.RequireCrypto = fields["requirecrypto"] == "1"
	q.NoPeerId = fields["no_peer_id"] == "1"
	q.TrackerId = fields["trackerid"]

	return q, nil
}

func parseRequiredUint(fields map[string]string, name string, bitSize int) (uint64, bool, error) {
	raw, ok := fields[name]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(raw, 10, bitSize)
	return v, true, err
}

// Config bounds the response shape of every announce.
type Config struct {
	Interval         time.Duration
	MinInterval      time.Duration
	TimeoutInterval  time.Duration
	MaxResponsePeers int
}

// Result is the outcome of a successful announce, ready for bencode
// rendering.
type Result struct {
	Interval    time.Duration
	MinInterval time.Duration
	TrackerId   string
	Complete    uint64
	Incomplete  uint64
	Peers       []*Peer
}

// Handle runs the 8-step announce pipeline against the registry.
// remoteIP is the address the HTTP connection was observed on;
// query.Ip overrides it when present.
func Handle(reg *Registry, remoteIP string, query *Query, cfg Config, now time.Time) (*Result, error) {
	ipStr := remoteIP
	if query.Ip != "" {
		ipStr = query.Ip
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return nil, &ErrMalformedQuery{"Invalid remote address"}
	}

	peer := &Peer{
		PeerId:        &query.PeerId,
		IP:            ip,
		Port:          query.Port,
		Key:           query.Key,
		Uploaded:      query.Uploaded,
		Downloaded:    query.Downloaded,
		Left:          query.Left,
		SupportCrypto: query.SupportCrypto,
		LastSeen:      now,
	}

	var result *Result

	reg.WithTorrent(query.InfoHash, func(t *Torrent) {
		identity := peer.Identity()

		if query.Event == EventStopped {
			delete(t.Peers, identity)
		} else {
			t.Peers[identity] = peer
		}

		if query.Event == EventCompleted {
			t.Downloaded++
		}

		t.updateCounts()

		numWant := cfg.MaxResponsePeers
		if query.HasNumWant && query.NumWant >= 0 {
			numWant = min(query.NumWant, cfg.MaxResponsePeers)
		}

		selected := t.selectPeers(numWant, peer, query.RequireCrypto, cfg.TimeoutInterval, now)

		result = &Result{
			Interval:    cfg.Interval,
			MinInterval: cfg.MinInterval,
			Complete:    t.Complete,
			Incomplete:  t.Incomplete,
			Peers:       selected,
		}
	})

	return result, nil
}
