package peerwire

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/aescarias/apricot/wireid"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []*Message{
		{Id: MessageChoke},
		{Id: MessageUnchoke},
		{Id: MessageInterested},
		{Id: MessageNotInterested},
		{Id: MessageHave, PieceIndex: 42},
		{Id: MessageBitfield, BitField: BitField{Field: []byte{0xFF, 0x00}, Length: 16}},
		{Id: MessageRequest, Request: wireid.BlockRef{Index: 1, Begin: 0, Length: 16384}},
		{Id: MessageCancel, Request: wireid.BlockRef{Index: 1, Begin: 16384, Length: 16384}},
		{Id: MessagePiece, Block: Block{Index: 1, Begin: 0, Data: bytes.Repeat([]byte{0xAB}, 16384)}},
		{Id: MessagePort, Port: 6881},
		{KeepAlive: true},
	}

	for _, msg := range cases {
		buf := new(bytes.Buffer)
		if err := WriteMessage(buf, msg); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}

		got, err := ReadMessage(buf)
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}

		if got.KeepAlive != msg.KeepAlive || got.Id != msg.Id {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, msg)
		}
	}
}

func TestReadMessageRejectsOversizeFrame(t *testing.T) {
	buf := new(bytes.Buffer)
	// Announce a length one byte over the hard ceiling.
	oversize := uint32(MaxFrameLen + 1)
	buf.Write([]byte{byte(oversize >> 24), byte(oversize >> 16), byte(oversize >> 8), byte(oversize)})

	_, err := ReadMessage(buf)
	if err != ErrFrameTooLarge {
		t.Fatalf("got error %v, want ErrFrameTooLarge", err)
	}
}

func TestBitFieldHasPieceSetPiece(t *testing.T) {
	bf := BitField{Field: make([]byte, 2), Length: 16}
	bf.SetPiece(0)
	bf.SetPiece(9)

	if !bf.HasPiece(0) || !bf.HasPiece(9) {
		t.Fatal("expected pieces 0 and 9 set")
	}
	if bf.HasPiece(1) || bf.HasPiece(8) {
		t.Fatal("expected only pieces 0 and 9 set")
	}
}

func TestHandshakeEncodeLength(t *testing.T) {
	h := Handshake{InfoHash: wireid.InfoHash{1}, PeerId: wireid.PeerId{2}}
	encoded := h.Encode()
	if len(encoded) != 68 {
		t.Fatalf("got handshake length %d, want 68", len(encoded))
	}
	if encoded[0] != 0x13 {
		t.Fatalf("got pstrlen %#x, want 0x13", encoded[0])
	}
	if string(encoded[1:20]) != ProtocolName {
		t.Fatalf("got protocol %q", encoded[1:20])
	}
}

func TestDialAcceptHandshake(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	hash := wireid.InfoHash{0xAA, 0xBB}
	serverId := wireid.PeerId{0x01}
	clientId := wireid.PeerId{0x02}

	serverResult := make(chan *Connection, 1)
	serverErr := make(chan error, 1)
	go func() {
		c, err := AcceptIncoming(serverConn, serverId, func(h wireid.InfoHash) bool {
			return h == hash
		})
		serverResult <- c
		serverErr <- err
	}()

	clientResult := make(chan *Connection, 1)
	clientErrCh := make(chan error, 1)
	go func() {
		c, err := handshakeOutgoing(clientConn, hash, clientId)
		clientResult <- c
		clientErrCh <- err
	}()

	select {
	case err := <-clientErrCh:
		if err != nil {
			t.Fatalf("client handshake failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client handshake")
	}

	if err := <-serverErr; err != nil {
		t.Fatalf("server handshake failed: %v", err)
	}

	server := <-serverResult
	client := <-clientResult

	if server.InfoHash != hash || client.InfoHash != hash {
		t.Fatalf("info hash mismatch: server=%x client=%x want=%x", server.InfoHash, client.InfoHash, hash)
	}
	if server.PeerId != clientId {
		t.Fatalf("server saw peer id %x, want %x", server.PeerId, clientId)
	}
	if client.PeerId != serverId {
		t.Fatalf("client saw peer id %x, want %x", client.PeerId, serverId)
	}
}

func TestAcceptIncomingRejectsUnknownInfoHash(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	hash := wireid.InfoHash{0xAA}
	serverErr := make(chan error, 1)
	go func() {
		_, err := AcceptIncoming(serverConn, wireid.PeerId{1}, func(wireid.InfoHash) bool {
			return false
		})
		serverErr <- err
	}()

	clientErrCh := make(chan error, 1)
	go func() {
		_, err := handshakeOutgoing(clientConn, hash, wireid.PeerId{2})
		clientErrCh <- err
	}()

	if err := <-serverErr; err != ErrUnknownInfoHash {
		t.Fatalf("got server error %v, want ErrUnknownInfoHash", err)
	}
	<-clientErrCh
}
