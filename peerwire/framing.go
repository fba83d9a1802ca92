package peerwire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/aescarias/apricot/wireid"
)

// ErrFrameTooLarge is returned when a peer announces a frame length
// larger than MaxFrameLen. The caller must disconnect.
var ErrFrameTooLarge = fmt.Errorf("peerwire: frame exceeds %d bytes", MaxFrameLen)

// ReadMessage reads one length-prefixed frame from r and decodes it. A
// zero-length frame decodes as a KeepAlive message.
func ReadMessage(r io.Reader) (*Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if length == 0 {
		return &Message{KeepAlive: true}, nil
	}
	if length > MaxFrameLen {
		return nil, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("peerwire: could not read message payload: %w", err)
	}

	return decodePayload(MessageId(payload[0]), payload[1:])
}

func decodePayload(id MessageId, body []byte) (*Message, error) {
	switch id {
	case MessageChoke, MessageUnchoke, MessageInterested, MessageNotInterested:
		return &Message{Id: id}, nil
	case MessageHave:
		if len(body) != 4 {
			return nil, fmt.Errorf("peerwire: have message has wrong length %d", len(body))
		}
		return &Message{Id: id, PieceIndex: binary.BigEndian.Uint32(body)}, nil
	case MessageBitfield:
		field := make([]byte, len(body))
		copy(field, body)
		return &Message{Id: id, BitField: BitField{Field: field, Length: len(field) * 8}}, nil
	case MessageRequest, MessageCancel:
		if len(body) != 12 {
			return nil, fmt.Errorf("peerwire: request/cancel message has wrong length %d", len(body))
		}
		return &Message{
			Id: id,
			Request: wireid.BlockRef{
				Index:  binary.BigEndian.Uint32(body[0:4]),
				Begin:  binary.BigEndian.Uint32(body[4:8]),
				Length: binary.BigEndian.Uint32(body[8:12]),
			},
		}, nil
	case MessagePiece:
		if len(body) < 8 {
			return nil, fmt.Errorf("peerwire: piece message has wrong length %d", len(body))
		}
		data := make([]byte, len(body)-8)
		copy(data, body[8:])
		return &Message{
			Id: id,
			Block: Block{
				Index: binary.BigEndian.Uint32(body[0:4]),
				Begin: binary.BigEndian.Uint32(body[4:8]),
				Data:  data,
			},
		}, nil
	case MessagePort:
		if len(body) != 2 {
			return nil, fmt.Errorf("peerwire: port message has wrong length %d", len(body))
		}
		return &Message{Id: id, Port: binary.BigEndian.Uint16(body)}, nil
	default:
		return nil, fmt.Errorf("peerwire: unknown message id %d", id)
	}
}

// WriteMessage encodes msg and writes its length-prefixed frame to w.
func WriteMessage(w io.Writer, msg *Message) error {
	_, err := w.Write(Encode(msg))
	return err
}

// Encode renders msg as its length-prefixed wire frame.
func Encode(msg *Message) []byte {
	if msg.KeepAlive {
		return []byte{0, 0, 0, 0}
	}

	var body []byte

	switch msg.Id {
	case MessageChoke, MessageUnchoke, MessageInterested, MessageNotInterested:
		body = []byte{byte(msg.Id)}
	case MessageHave:
		body = make([]byte, 5)
		body[0] = byte(msg.Id)
		binary.BigEndian.PutUint32(body[1:], msg.PieceIndex)
	case MessageBitfield:
		body = make([]byte, 1+len(msg.BitField.Field))
		body[0] = byte(msg.Id)
		copy(body[1:], msg.BitField.Field)
	case MessageRequest, MessageCancel:
		body = make([]byte, 13)
		body[0] = byte(msg.Id)
		binary.BigEndian.PutUint32(body[1:5], msg.Request.Index)
		binary.BigEndian.PutUint32(body[5:9], msg.Request.Begin)
		binary.BigEndian.PutUint32(body[9:13], msg.Request.Length)
	case MessagePiece:
		body = make([]byte, 9+len(msg.Block.Data))
		body[0] = byte(msg.Id)
		binary.BigEndian.PutUint32(body[1:5], msg.Block.Index)
		binary.BigEndian.PutUint32(body[5:9], msg.Block.Begin)
		copy(body[9:], msg.Block.Data)
	case MessagePort:
		body = make([]byte, 3)
		body[0] = byte(msg.Id)
		binary.BigEndian.PutUint16(body[1:], msg.Port)
	default:
		body = []byte{byte(msg.Id)}
	}

	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[4:], body)
	return frame
}
