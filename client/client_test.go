package client

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aescarias/apricot/bencode"
	"github.com/aescarias/apricot/metainfo"
	"github.com/aescarias/apricot/wireid"
)

func buildTestMetainfo(t *testing.T) *metainfo.Metainfo {
	t.Helper()

	info := bencode.Dict{
		"name":         bencode.String("file.bin"),
		"piece length": bencode.Int(16384),
		"pieces":       bencode.String(bytes.Repeat([]byte{0x01}, 20)),
		"length":       bencode.Int(16384),
	}
	top := bencode.Dict{
		"announce": bencode.String("http://tracker.example/announce"),
		"info":     info,
	}

	m, err := metainfo.Load(bencode.Encode(top))
	if err != nil {
		t.Fatalf("metainfo.Load: %v", err)
	}
	return m
}

func TestCoordinatorKnowsInfoHash(t *testing.T) {
	m := buildTestMetainfo(t)
	peerId, err := wireid.NewPeerId("AP", [2]byte{0, 1})
	if err != nil {
		t.Fatalf("NewPeerId: %v", err)
	}

	c := NewCoordinator(peerId, nil)
	if c.KnowsInfoHash(m.InfoHash()) {
		t.Fatal("expected unknown info hash before AddTorrent")
	}

	c.AddTorrent(m)
	if !c.KnowsInfoHash(m.InfoHash()) {
		t.Fatal("expected known info hash after AddTorrent")
	}
}

func TestCoordinatorHandshakeInfoHashDispatch(t *testing.T) {
	m := buildTestMetainfo(t)
	peerId, _ := wireid.NewPeerId("AP", [2]byte{0, 1})

	c := NewCoordinator(peerId, nil)
	c.AddTorrent(m)
	go c.Run()
	defer close(c.Events)

	reply := make(chan bool, 1)
	c.Events <- EventHandshakeInfoHash{InfoHash: m.InfoHash(), Reply: reply}

	select {
	case ok := <-reply:
		if !ok {
			t.Fatal("expected approval for known info hash")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
	}

	var unknown wireid.InfoHash
	unknown[0] = 0xFF
	reply2 := make(chan bool, 1)
	c.Events <- EventHandshakeInfoHash{InfoHash: unknown, Reply: reply2}

	select {
	case ok := <-reply2:
		if ok {
			t.Fatal("expected rejection for unknown info hash")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
	}
}

func TestAnnounceParsesCompactPeers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := bencode.Dict{
			"interval": bencode.Int(1800),
			"peers":    bencode.String([]byte{192, 168, 1, 1, 0x1A, 0xE1}),
		}
		w.Write(bencode.Encode(resp))
	}))
	defer srv.Close()

	var infoHash wireid.InfoHash
	peerId, _ := wireid.NewPeerId("AP", [2]byte{0, 1})

	resp, err := Announce(srv.Client(), srv.URL, AnnounceRequest{
		InfoHash: infoHash,
		PeerId:   peerId,
		Port:     6881,
		Left:     100,
		Event:    EventStarted,
	})
	if err != nil {
		t.Fatalf("Announce: %v", err)
	}

	if resp.Interval != 1800 {
		t.Fatalf("got interval %d, want 1800", resp.Interval)
	}
	if len(resp.Peers) != 1 {
		t.Fatalf("got %d peers, want 1", len(resp.Peers))
	}
	if resp.Peers[0].Port != 0x1AE1 {
		t.Fatalf("got port %d, want %d", resp.Peers[0].Port, 0x1AE1)
	}
	if resp.Peers[0].Ip.String() != "192.168.1.1" {
		t.Fatalf("got ip %s, want 192.168.1.1", resp.Peers[0].Ip.String())
	}
}

func TestAnnounceReturnsFailureReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := bencode.Dict{"failure reason": bencode.String("info_hash not found")}
		w.Write(bencode.Encode(resp))
	}))
	defer srv.Close()

	var infoHash wireid.InfoHash
	peerId, _ := wireid.NewPeerId("AP", [2]byte{0, 1})

	_, err := Announce(srv.Client(), srv.URL, AnnounceRequest{InfoHash: infoHash, PeerId: peerId, Port: 6881})
	if err == nil {
		t.Fatal("expected error")
	}
	var failErr *ErrFailureReason
	if !asFailureReason(err, &failErr) {
		t.Fatalf("got error %v, want *ErrFailureReason", err)
	}
	if failErr.Message != "info_hash not found" {
		t.Fatalf("got message %q", failErr.Message)
	}
}

func asFailureReason(err error, target **ErrFailureReason) bool {
	if fr, ok := err.(*ErrFailureReason); ok {
		*target = fr
		return true
	}
	return false
}
