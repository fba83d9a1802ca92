package client

import (
	"fmt"
	"net"
	"sync"

	"github.com/golang/glog"

	"github.com/aescarias/apricot/metainfo"
	"github.com/aescarias/apricot/peerwire"
	"github.com/aescarias/apricot/wireid"
)

// PeerConnection tracks the local view of one Active peer connection,
// as seen by the coordinator.
type PeerConnection struct {
	Conn *peerwire.Connection

	AmChoking      bool
	AmInterested   bool
	PeerChoking    bool
	PeerInterested bool

	BitField peerwire.BitField

	AmRequesting   map[wireid.BlockRef]bool
	PeerRequesting map[wireid.BlockRef]bool
}

// TorrentState holds all swarm state the coordinator tracks for one
// torrent.
type TorrentState struct {
	Metainfo        *metainfo.Metainfo
	Peers           map[wireid.PeerId]*PeerConnection
	PeerConnections map[string]wireid.PeerId // socket address -> peer id
}

// Storage is the collaborator that owns piece data on disk; the
// coordinator hands it completed blocks and asks it what it has. A
// concrete implementation is outside this package's scope.
type Storage interface {
	WriteBlock(infoHash wireid.InfoHash, block peerwire.Block) error
	HasPiece(infoHash wireid.InfoHash, index int) bool
}

// Coordinator is the single-consumer owner of all per-torrent mutable
// state. Exactly one goroutine must call Run; every other goroutine
// interacts with it only by sending on Events.
type Coordinator struct {
	PeerId wireid.PeerId

	Events chan Event

	torrents    map[wireid.InfoHash]*TorrentState
	connections map[string]*PeerConnection

	storage Storage

	mu sync.Mutex // guards torrents/connections for read-only external inspection only
}

// NewCoordinator constructs a Coordinator with an empty swarm. Callers
// must add torrents with AddTorrent before starting Run.
func NewCoordinator(peerId wireid.PeerId, storage Storage) *Coordinator {
	return &Coordinator{
		PeerId:      peerId,
		Events:      make(chan Event, 64),
		torrents:    make(map[wireid.InfoHash]*TorrentState),
		connections: make(map[string]*PeerConnection),
		storage:     storage,
	}
}

// AddTorrent registers m for participation in the swarm. Must be
// called before Run starts consuming Events for this info-hash.
func (c *Coordinator) AddTorrent(m *metainfo.Metainfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.torrents[m.InfoHash()] = &TorrentState{
		Metainfo:        m,
		Peers:           make(map[wireid.PeerId]*PeerConnection),
		PeerConnections: make(map[string]wireid.PeerId),
	}
}

// KnowsInfoHash reports whether hash belongs to a registered torrent.
// Safe to call concurrently with Run. Incoming handshakes do not call
// it; they are approved by Run answering an EventHandshakeInfoHash.
func (c *Coordinator) KnowsInfoHash(hash wireid.InfoHash) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.torrents[hash]
	return ok
}

// Run drains Events until the channel is closed. This is the single
// consumer of all coordinator state; callers must not touch torrents
// or connections from any other goroutine.
func (c *Coordinator) Run() {
	for ev := range c.Events {
		switch e := ev.(type) {
		case EventHandshakeInfoHash:
			e.Reply <- c.torrents[e.InfoHash] != nil
		case EventConnected:
			c.handleConnected(e)
		case EventMessage:
			c.handleMessage(e)
		case EventClosed:
			c.handleClosed(e)
		case EventTrackerResult:
			c.handleTrackerResult(e)
		default:
			glog.Warningf("coordinator: unhandled event type %T", ev)
		}
	}
}

func (c *Coordinator) handleConnected(e EventConnected) {
	torrent, ok := c.torrents[e.Conn.InfoHash]
	if !ok {
		e.Conn.Close()
		return
	}

	pc := &PeerConnection{
		Conn:           e.Conn,
		AmChoking:      true,
		PeerChoking:    true,
		AmRequesting:   make(map[wireid.BlockRef]bool),
		PeerRequesting: make(map[wireid.BlockRef]bool),
	}

	addr := e.Conn.Addr.String()
	torrent.Peers[e.Conn.PeerId] = pc
	torrent.PeerConnections[addr] = e.Conn.PeerId
	c.connections[addr] = pc

	glog.Infof("coordinator: peer %x connected for torrent %x", e.Conn.PeerId, e.Conn.InfoHash)
}

func (c *Coordinator) handleMessage(e EventMessage) {
	pc, ok := c.connections[e.Addr.String()]
	if !ok {
		return
	}

	msg := e.Message
	switch msg.Id {
	case peerwire.MessageChoke:
		pc.PeerChoking = true
	case peerwire.MessageUnchoke:
		pc.PeerChoking = false
	case peerwire.MessageInterested:
		pc.PeerInterested = true
	case peerwire.MessageNotInterested:
		pc.PeerInterested = false
	case peerwire.MessageHave:
		if pc.BitField.Field == nil {
			if torrent, ok := c.torrents[pc.Conn.InfoHash]; ok {
				numPieces := len(torrent.Metainfo.Info.PieceHashes())
				pc.BitField = peerwire.BitField{
					Field:  make([]byte, (numPieces+7)/8),
					Length: numPieces,
				}
			}
		}
		if pc.BitField.Field != nil {
			pc.BitField.SetPiece(int(msg.PieceIndex))
		}
	case peerwire.MessageBitfield:
		pc.BitField = msg.BitField
	case peerwire.MessageRequest:
		pc.PeerRequesting[msg.Request] = true
	case peerwire.MessageCancel:
		delete(pc.PeerRequesting, msg.Request)
	case peerwire.MessagePiece:
		ref := wireid.BlockRef{Index: msg.Block.Index, Begin: msg.Block.Begin, Length: uint32(len(msg.Block.Data))}
		delete(pc.AmRequesting, ref)
		if c.storage != nil {
			if err := c.storage.WriteBlock(pc.Conn.InfoHash, msg.Block); err != nil {
				glog.Errorf("coordinator: could not write block: %v", err)
			}
		}
	}
}

func (c *Coordinator) handleClosed(e EventClosed) {
	addr := e.Addr.String()
	pc, ok := c.connections[addr]
	if !ok {
		return
	}
	delete(c.connections, addr)

	if pc.Conn == nil {
		return
	}
	if torrent, ok := c.torrents[pc.Conn.InfoHash]; ok {
		delete(torrent.Peers, pc.Conn.PeerId)
		delete(torrent.PeerConnections, addr)
	}

	if e.Err != nil {
		glog.Infof("coordinator: connection %s closed: %v", addr, e.Err)
	}
}

func (c *Coordinator) handleTrackerResult(e EventTrackerResult) {
	if e.Err != nil {
		glog.Warningf("coordinator: announce for %x failed: %v", e.InfoHash, e.Err)
		return
	}
	glog.Infof("coordinator: announce for %x returned %d peers", e.InfoHash, len(e.Result.Peers))
}

// Listen runs the acceptor loop: accept TCP connections, run the
// incoming handshake sequence against ln, and forward successful
// connections as EventConnected. Blocks until ln is closed.
func (c *Coordinator) Listen(ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("client: accept failed: %w", err)
		}
		go c.acceptOne(nc)
	}
}

func (c *Coordinator) acceptOne(nc net.Conn) {
	conn, err := peerwire.AcceptIncoming(nc, c.PeerId, func(hash wireid.InfoHash) bool {
		reply := make(chan bool, 1)
		c.Events <- EventHandshakeInfoHash{InfoHash: hash, Reply: reply}
		return <-reply
	})
	if err != nil {
		glog.Infof("client: incoming handshake from %s failed: %v", nc.RemoteAddr(), err)
		return
	}

	c.Events <- EventConnected{Conn: conn}
	c.pumpMessages(conn)
}

// Dial establishes an outgoing connection to addr for infoHash and
// begins pumping its messages into Events.
func (c *Coordinator) Dial(network, addr string, infoHash wireid.InfoHash) error {
	conn, err := peerwire.DialOutgoing(network, addr, infoHash, c.PeerId)
	if err != nil {
		return err
	}

	c.Events <- EventConnected{Conn: conn}
	go c.pumpMessages(conn)
	return nil
}

// pumpMessages is the per-connection reader loop: decode frames until
// the connection fails, then report EventClosed.
func (c *Coordinator) pumpMessages(conn *peerwire.Connection) {
	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			c.Events <- EventClosed{Addr: conn.Addr, PeerId: conn.PeerId, Err: err}
			return
		}
		if msg.KeepAlive {
			continue
		}
		c.Events <- EventMessage{Addr: conn.Addr, PeerId: conn.PeerId, Message: msg}
	}
}
