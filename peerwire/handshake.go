package peerwire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/aescarias/apricot/wireid"
)

// ProtocolName is the identifier string carried in every handshake.
const ProtocolName = "BitTorrent protocol"

// prelude is the fixed 20-byte pstrlen+pstr prefix of every handshake.
var prelude = append([]byte{byte(len(ProtocolName))}, []byte(ProtocolName)...)

// ErrInvalidHandshake is returned when a peer's handshake prelude does
// not match ours.
var ErrInvalidHandshake = fmt.Errorf("peerwire: invalid handshake prelude")

// Handshake is the 68-byte frame exchanged before any length-prefixed
// message: pstrlen(1) + pstr(19) + reserved(8) + info-hash(20) + peer-id(20).
type Handshake struct {
	Reserved [8]byte
	InfoHash wireid.InfoHash
	PeerId   wireid.PeerId
}

// Encode renders the handshake as its 68-byte wire form.
func (h Handshake) Encode() []byte {
	buf := make([]byte, 0, 68)
	buf = append(buf, prelude...)
	buf = append(buf, h.Reserved[:]...)
	buf = append(buf, h.InfoHash[:]...)
	buf = append(buf, h.PeerId[:]...)
	return buf
}

// ReadPrelude reads and validates the 20-byte pstrlen+pstr prefix,
// returning ErrInvalidHandshake if it does not match ours.
func ReadPrelude(r io.Reader) error {
	buf := make([]byte, len(prelude))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("peerwire: could not read handshake prelude: %w", err)
	}
	if !bytes.Equal(buf, prelude) {
		return ErrInvalidHandshake
	}
	return nil
}

// WritePrelude writes our pstrlen+pstr prefix.
func WritePrelude(w io.Writer) error {
	_, err := w.Write(prelude)
	return err
}

// ReadReserved reads the 8 reserved bytes. Their contents are not
// interpreted or logged: AcceptIncoming echoes them back unchanged and
// handshakeOutgoing discards them.
func ReadReserved(r io.Reader) ([8]byte, error) {
	var reserved [8]byte
	_, err := io.ReadFull(r, reserved[:])
	return reserved, err
}

// ReadInfoHash reads the 20-byte info-hash.
func ReadInfoHash(r io.Reader) (wireid.InfoHash, error) {
	var hash wireid.InfoHash
	_, err := io.ReadFull(r, hash[:])
	return hash, err
}

// ReadPeerId reads the 20-byte peer ID.
func ReadPeerId(r io.Reader) (wireid.PeerId, error) {
	var id wireid.PeerId
	_, err := io.ReadFull(r, id[:])
	return id, err
}
