// Package tracker implements the swarm registry and HTTP announce
// endpoint of a BitTorrent tracker.
package tracker

import (
	"fmt"
	"net"
	"time"

	"github.com/aescarias/apricot/wireid"
)

// Peer is one swarm participant as tracked by the registry.
//
// Two Peer values are considered the same swarm member when both have
// a PeerId and it matches, or else neither has one and their socket
// addresses match; Identity implements exactly that rule so Peer can live
// in a Go map keyed by string.
type Peer struct {
	PeerId        *wireid.PeerId
	IP            net.IP
	Port          uint16
	Key           string // client-supplied "key" param, used to survive IP roaming
	Uploaded      uint64
	Downloaded    uint64
	Left          uint64
	SupportCrypto bool
	LastSeen      time.Time
}

// Addr renders the peer's socket address as host:port.
func (p *Peer) Addr() string {
	return net.JoinHostPort(p.IP.String(), fmt.Sprint(p.Port))
}

// Identity returns the map key under which this peer is stored in a
// Torrent's peer set: the peer-id when present (so a roaming peer that
// changes IP, but keeps sending the same peer-id and key, is
// recognized as the same swarm member), else the socket address.
func (p *Peer) Identity() string {
	if p.PeerId != nil {
		if p.Key != "" {
			return "id:" + p.PeerId.String() + "/" + p.Key
		}
		return "id:" + p.PeerId.String()
	}
	return "addr:" + p.Addr()
}

// IsSeeder reports whether this peer has nothing left to download.
func (p *Peer) IsSeeder() bool {
	return p.Left == 0
}
