package client

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aescarias/apricot/bencode"
	"github.com/aescarias/apricot/wireid"
)

// AnnounceEvent is one of the four events a client may report on an
// announce request.
type AnnounceEvent string

const (
	EventStarted   AnnounceEvent = "started"
	EventCompleted AnnounceEvent = "completed"
	EventStopped   AnnounceEvent = "stopped"
	EventNone      AnnounceEvent = ""
)

// AnnounceRequest carries the parameters of one tracker announce.
type AnnounceRequest struct {
	InfoHash   wireid.InfoHash
	PeerId     wireid.PeerId
	Ip         string
	Key        string
	Port       uint16
	Uploaded   int64
	Downloaded int64
	Left       int64
	Event      AnnounceEvent
	NumWant    int
	Compact    bool
}

// AnnouncePeer is one peer entry in a tracker's announce response.
type AnnouncePeer struct {
	Ip     net.IP
	Port   uint16
	PeerId wireid.PeerId
}

func (p AnnouncePeer) String() string {
	return net.JoinHostPort(p.Ip.String(), strconv.Itoa(int(p.Port)))
}

// AnnounceResponse is the parsed reply of a successful announce.
type AnnounceResponse struct {
	Interval    int
	MinInterval int
	TrackerId   string
	Complete    int
	Incomplete  int
	Peers       []AnnouncePeer
}

// ErrFailureReason is returned when the tracker's bencoded reply
// contains a "failure reason" key.
type ErrFailureReason struct {
	Message string
}

func (err *ErrFailureReason) Error() string {
	return err.Message
}

// Announce performs one HTTP GET against announceURL and parses the
// bencoded response. Only the http/https schemes are supported; UDP
// and WebSocket trackers are out of scope.
func Announce(httpClient *http.Client, announceURL string, req AnnounceRequest) (*AnnounceResponse, error) {
	target, err := url.Parse(announceURL)
	if err != nil {
		return nil, fmt.Errorf("client: could not parse announce url: %w", err)
	}

	switch target.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("client: unsupported tracker scheme: %s", target.Scheme)
	}

	// info_hash/peer_id/ip/key carry arbitrary binary bytes, so they are
	// percent-encoded by hand via wireid.PercentEncode rather than
	// url.Values.Encode, which escapes 0x20 as '+' instead of "%20" —
	// the tracker's own wireid.PercentDecode treats '+' as the literal
	// byte 0x2B, so url.Values.Encode would silently corrupt any hash
	// or peer-id containing a space byte.
	var q strings.Builder
	if target.RawQuery != "" {
		q.WriteString(target.RawQuery)
		q.WriteByte('&')
	}
	q.WriteString("info_hash=")
	q.WriteString(wireid.PercentEncode(req.InfoHash[:]))
	q.WriteString("&peer_id=")
	q.WriteString(wireid.PercentEncode(req.PeerId[:]))
	q.WriteString("&port=")
	q.WriteString(strconv.Itoa(int(req.Port)))
	q.WriteString("&uploaded=")
	q.WriteString(strconv.FormatInt(req.Uploaded, 10))
	q.WriteString("&downloaded=")
	q.WriteString(strconv.FormatInt(req.Downloaded, 10))
	q.WriteString("&left=")
	q.WriteString(strconv.FormatInt(req.Left, 10))
	if req.Ip != "" {
		q.WriteString("&ip=")
		q.WriteString(wireid.PercentEncode([]byte(req.Ip)))
	}
	if req.Key != "" {
		q.WriteString("&key=")
		q.WriteString(wireid.PercentEncode([]byte(req.Key)))
	}
	if req.Event != EventNone {
		q.WriteString("&event=")
		q.WriteString(string(req.Event))
	}
	if req.NumWant > 0 {
		q.WriteString("&numwant=")
		q.WriteString(strconv.Itoa(req.NumWant))
	}
	if req.Compact {
		q.WriteString("&compact=1")
	} else {
		q.WriteString("&compact=0")
	}
	target.RawQuery = q.String()

	resp, err := httpClient.Get(target.String())
	if err != nil {
		return nil, fmt.Errorf("client: announce request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("client: tracker returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: could not read tracker response: %w", err)
	}

	value, err := bencode.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("client: could not decode tracker response: %w", err)
	}

	dict, ok := value.(bencode.Dict)
	if !ok {
		return nil, fmt.Errorf("client: tracker response is not a dict")
	}

	if reason, ok := dict.Get("failure reason"); ok {
		s, ok := reason.(bencode.String)
		if !ok {
			return nil, fmt.Errorf("client: \"failure reason\" is not a string")
		}
		return nil, &ErrFailureReason{Message: string(s)}
	}

	return parseAnnounceResponse(dict)
}

func parseAnnounceResponse(dict bencode.Dict) (*AnnounceResponse, error) {
	interval, err := dict.GetInt("interval")
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	resp := &AnnounceResponse{Interval: int(interval)}

	if minInterval, ok := dict.Get("min interval"); ok {
		v, ok := minInterval.(bencode.Int)
		if !ok {
			return nil, fmt.Errorf("client: \"min interval\" is not an integer")
		}
		resp.MinInterval = int(v)
	}
	if trackerId, ok := dict.Get("tracker id"); ok {
		v, ok := trackerId.(bencode.String)
		if !ok {
			return nil, fmt.Errorf("client: \"tracker id\" is not a string")
		}
		resp.TrackerId = string(v)
	}
	if complete, ok := dict.Get("complete"); ok {
		v, ok := complete.(bencode.Int)
		if !ok {
			return nil, fmt.Errorf("client: \"complete\" is not an integer")
		}
		resp.Complete = int(v)
	}
	if incomplete, ok := dict.Get("incomplete"); ok {
		v, ok := incomplete.(bencode.Int)
		if !ok {
			return nil, fmt.Errorf("client: \"incomplete\" is not an integer")
		}
		resp.Incomplete = int(v)
	}

	peersVal, ok := dict.Get("peers")
	if !ok {
		return resp, nil
	}

	switch peers := peersVal.(type) {
	case bencode.String:
		list, err := decodeCompactPeers([]byte(peers))
		if err != nil {
			return nil, fmt.Errorf("client: %w", err)
		}
		resp.Peers = list
	case bencode.List:
		list, err := decodeDictPeers(peers)
		if err != nil {
			return nil, fmt.Errorf("client: %w", err)
		}
		resp.Peers = list
	default:
		return nil, fmt.Errorf("client: unknown \"peers\" encoding")
	}

	return resp, nil
}

// decodeCompactPeers expands the compact peer-list format: 6 bytes per
// peer (4-byte IPv4 address, 2-byte big-endian port).
func decodeCompactPeers(data []byte) ([]AnnouncePeer, error) {
	if len(data)%6 != 0 {
		return nil, fmt.Errorf("compact peer list length %d is not a multiple of 6", len(data))
	}

	peers := make([]AnnouncePeer, 0, len(data)/6)
	for i := 0; i < len(data); i += 6 {
		ip := net.IPv4(data[i], data[i+1], data[i+2], data[i+3])
		port := binary.BigEndian.Uint16(data[i+4 : i+6])
		peers = append(peers, AnnouncePeer{Ip: ip, Port: port})
	}
	return peers, nil
}

func decodeDictPeers(list bencode.List) ([]AnnouncePeer, error) {
	peers := make([]AnnouncePeer, 0, len(list))

	for i, raw := range list {
		d, ok := raw.(bencode.Dict)
		if !ok {
			return nil, fmt.Errorf("peer entry %d is not a dict", i)
		}

		ipStr, err := d.GetString("ip")
		if err != nil {
			return nil, fmt.Errorf("peer entry %d: %w", i, err)
		}
		port, err := d.GetInt("port")
		if err != nil {
			return nil, fmt.Errorf("peer entry %d: %w", i, err)
		}

		peer := AnnouncePeer{Ip: net.ParseIP(string(ipStr)), Port: uint16(port)}

		if rawId, ok := d.Get("peer id"); ok {
			idStr, ok := rawId.(bencode.String)
			if !ok {
				return nil, fmt.Errorf("peer entry %d: \"peer id\" is not a string", i)
			}
			if len(idStr) == 20 {
				copy(peer.PeerId[:], idStr)
			}
		}

		peers = append(peers, peer)
	}

	return peers, nil
}
