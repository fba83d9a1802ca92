package wireid

import (
	"bytes"
	"testing"
)

func TestPercentDecodeN(t *testing.T) {
	// known Ubuntu-distribution info hash, percent-encoded as a tracker client would send it
	encoded := "uC%9D%5D%E3C%99%9A%B3w%C6%17%C2%C6G%90%29V%E2%82"

	got, err := PercentDecodeN(encoded, 20)
	if err != nil {
		t.Fatalf("PercentDecodeN returned error: %v", err)
	}

	want := []byte{
		0x75, 0x43, 0x9d, 0x5d, 0xe3,
		0x43, 0x99, 0x9a, 0xb3, 0x77,
		0xc6, 0x17, 0xc2, 0xc6, 0x47,
		0x90, 0x29, 0x56, 0xe2, 0x82,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x, want %x", got, want)
	}
}

func TestPercentDecodeNWrongLength(t *testing.T) {
	if _, err := PercentDecodeN("abc", 20); err == nil {
		t.Fatal("expected error for too-short input")
	}
	if _, err := PercentDecodeN("0123456789012345678901", 20); err == nil {
		t.Fatal("expected error for too-long input")
	}
}

func TestPercentEncodeDecodeRoundTrip(t *testing.T) {
	raw := []byte{0x00, 0x01, 'A', 'z', '9', 0xff, '-', '_'}
	encoded := PercentEncode(raw)
	decoded, err := PercentDecode(encoded)
	if err != nil {
		t.Fatalf("PercentDecode returned error: %v", err)
	}
	if !bytes.Equal(decoded, raw) {
		t.Fatalf("got %x, want %x", decoded, raw)
	}
}

func TestPercentEncodeEscapesNonAlphanumeric(t *testing.T) {
	got := PercentEncode([]byte("A-z_9"))
	want := "A%2Dz%5F9"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNewPeerId(t *testing.T) {
	id, err := NewPeerId("PI", [2]byte{'0', '1'})
	if err != nil {
		t.Fatalf("NewPeerId returned error: %v", err)
	}
	if id[0] != '-' || id[7] != '-' {
		t.Fatalf("peer id missing delimiters: %q", id.String())
	}
	if string(id[1:3]) != "PI" {
		t.Fatalf("peer id missing client tag: %q", id.String())
	}
}
