// Package client implements the peer-side BitTorrent engine: a
// single-consumer coordinator that owns per-torrent swarm state, the
// acceptor loop for incoming peer connections, and a single-shot
// tracker announce request (Announce). Announce performs one request
// per call; this package does not schedule repeat announces and does
// not store a tracker id between calls.
package client

import (
	"net"

	"github.com/aescarias/apricot/peerwire"
	"github.com/aescarias/apricot/wireid"
)

// Event is the sum type consumed by the Coordinator's single event
// loop. Exactly one field is meaningful per concrete event kind; the
// loop type-switches on the concrete type.
type Event interface {
	event()
}

// EventHandshakeInfoHash is sent by an in-progress incoming handshake,
// paused at step 3 of peerwire's accept sequence, asking whether
// InfoHash belongs to a torrent the coordinator knows about. Reply
// must receive exactly one bool.
type EventHandshakeInfoHash struct {
	InfoHash wireid.InfoHash
	Reply    chan<- bool
}

// EventConnected is emitted once a peer connection reaches the Active
// state, whether it originated as an incoming or outgoing dial.
type EventConnected struct {
	Conn *peerwire.Connection
}

// EventMessage carries one decoded post-handshake frame from an Active
// connection.
type EventMessage struct {
	Addr    net.Addr
	PeerId  wireid.PeerId
	Message *peerwire.Message
}

// EventClosed is emitted when a connection's read loop (pumpMessages)
// fails: an I/O error, EOF, or a frame it cannot decode.
type EventClosed struct {
	Addr   net.Addr
	PeerId wireid.PeerId
	Err    error
}

// EventTrackerResult carries the outcome of one announce cycle for a
// torrent.
type EventTrackerResult struct {
	InfoHash wireid.InfoHash
	Result   *AnnounceResponse
	Err      error
}

func (EventHandshakeInfoHash) event() {}
func (EventConnected) event()        {}
func (EventMessage) event()          {}
func (EventClosed) event()           {}
func (EventTrackerResult) event()    {}
