package peerwire

import (
	"fmt"
	"net"

	"github.com/aescarias/apricot/wireid"
)

// State identifies where a Connection sits in the handshake/active
// lifecycle.
type State int

const (
	StatePendingIncoming State = iota
	StatePendingOutgoing
	StateAwaitingApproval
	StateActive
	StateClosed
)

// ErrUnknownInfoHash is returned when the coordinator declines an
// incoming handshake's info-hash.
var ErrUnknownInfoHash = fmt.Errorf("peerwire: unknown info hash")

// ApprovalRequest is the one-shot message a connection sends to the
// coordinator while paused mid-handshake, asking whether info_hash
// belongs to a torrent it knows about. The coordinator must send
// exactly one bool on Reply.
type ApprovalRequest struct {
	InfoHash wireid.InfoHash
	Reply    chan<- bool
}

// Approve is the function signature a Connection calls to pause for
// coordinator approval of an incoming info-hash. Callers typically
// build this by capturing a channel of ApprovalRequest.
type Approve func(hash wireid.InfoHash) bool

// Connection wraps one peer-wire TCP socket, tracking handshake state
// and the negotiated identity once active.
type Connection struct {
	conn     net.Conn
	Addr     net.Addr
	State    State
	InfoHash wireid.InfoHash
	PeerId   wireid.PeerId
}

// Close closes the underlying socket and transitions to Closed.
func (c *Connection) Close() error {
	c.State = StateClosed
	return c.conn.Close()
}

// ReadMessage reads the next post-handshake frame. The connection must
// be Active.
func (c *Connection) ReadMessage() (*Message, error) {
	return ReadMessage(c.conn)
}

// WriteMessage writes msg verbatim to the peer. The connection must be
// Active.
func (c *Connection) WriteMessage(msg *Message) error {
	return WriteMessage(c.conn, msg)
}

// AcceptIncoming runs the server-role handshake sequence: validate the
// protocol prelude, echo the reserved bytes, suspend on approve for
// the remote's info-hash, then exchange peer IDs. approve is invoked
// synchronously and must not block the coordinator elsewhere — callers
// typically implement it by sending an ApprovalRequest on a channel
// and waiting on its Reply.
func AcceptIncoming(nc net.Conn, myPeerId wireid.PeerId, approve Approve) (*Connection, error) {
	c := &Connection{conn: nc, Addr: nc.RemoteAddr(), State: StatePendingIncoming}

	if err := ReadPrelude(nc); err != nil {
		c.Close()
		return nil, err
	}
	if err := WritePrelude(nc); err != nil {
		c.Close()
		return nil, err
	}

	reserved, err := ReadReserved(nc)
	if err != nil {
		c.Close()
		return nil, err
	}
	if _, err := nc.Write(reserved[:]); err != nil {
		c.Close()
		return nil, err
	}

	infoHash, err := ReadInfoHash(nc)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.State = StateAwaitingApproval
	if !approve(infoHash) {
		c.Close()
		return nil, ErrUnknownInfoHash
	}

	if _, err := nc.Write(infoHash[:]); err != nil {
		c.Close()
		return nil, err
	}

	theirPeerId, err := ReadPeerId(nc)
	if err != nil {
		c.Close()
		return nil, err
	}
	if _, err := nc.Write(myPeerId[:]); err != nil {
		c.Close()
		return nil, err
	}

	c.InfoHash = infoHash
	c.PeerId = theirPeerId
	c.State = StateActive
	return c, nil
}

// DialOutgoing runs the client-role handshake sequence: dial addr,
// exchange the protocol prelude and reserved bytes, send the info-hash
// we expect and verify the remote's matches, then exchange peer IDs.
func DialOutgoing(network, addr string, infoHash wireid.InfoHash, myPeerId wireid.PeerId) (*Connection, error) {
	nc, err := net.Dial(network, addr)
	if err != nil {
		return nil, fmt.Errorf("peerwire: could not dial %s: %w", addr, err)
	}

	return handshakeOutgoing(nc, infoHash, myPeerId)
}

// handshakeOutgoing runs the client-role handshake over an
// already-established connection. Split out from DialOutgoing so tests
// can drive both handshake halves over an in-memory net.Pipe.
func handshakeOutgoing(nc net.Conn, infoHash wireid.InfoHash, myPeerId wireid.PeerId) (*Connection, error) {
	c := &Connection{conn: nc, Addr: nc.RemoteAddr(), State: StatePendingOutgoing}

	if err := WritePrelude(nc); err != nil {
		c.Close()
		return nil, err
	}
	if err := ReadPrelude(nc); err != nil {
		c.Close()
		return nil, err
	}

	var zero [8]byte
	if _, err := nc.Write(zero[:]); err != nil {
		c.Close()
		return nil, err
	}
	if _, err := ReadReserved(nc); err != nil {
		c.Close()
		return nil, err
	}

	if _, err := nc.Write(infoHash[:]); err != nil {
		c.Close()
		return nil, err
	}
	theirInfoHash, err := ReadInfoHash(nc)
	if err != nil {
		c.Close()
		return nil, err
	}
	if theirInfoHash != infoHash {
		c.Close()
		return nil, fmt.Errorf("peerwire: info hash mismatch: got %x, want %x", theirInfoHash, infoHash)
	}

	if _, err := nc.Write(myPeerId[:]); err != nil {
		c.Close()
		return nil, err
	}
	theirPeerId, err := ReadPeerId(nc)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.InfoHash = infoHash
	c.PeerId = theirPeerId
	c.State = StateActive
	return c, nil
}
