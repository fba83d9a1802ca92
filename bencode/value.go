// Package bencode implements a canonical decoder and encoder for the
// bencode serialization format used by .torrent files and tracker
// responses.
//
// See https://bittorrent.org/beps/bep_0003.html#bencoding
package bencode

import "fmt"

// A Value is one of the four bencode value shapes: a byte String, an
// Int, a List or a Dict. The set is closed; Value is implemented only
// by the four types in this file.
type Value interface {
	bencodeValue()
}

// String is a bencode byte string. It is opaque: it may contain any
// byte, not just valid UTF-8 (info-hashes, peer IDs and piece hashes are
// all carried as String).
type String []byte

// Int is a bencode integer.
type Int int64

// List is an ordered bencode list.
type List []Value

// Dict is a bencode dictionary keyed by raw byte strings. Decoding never
// preserves wire order; encoding always emits keys in ascending raw byte
// order, per the canonical-encoding invariant.
type Dict map[string]Value

func (String) bencodeValue() {}
func (Int) bencodeValue()    {}
func (List) bencodeValue()   {}
func (Dict) bencodeValue()   {}

// Get returns the value for key and whether it was present.
func (d Dict) Get(key string) (Value, bool) {
	v, ok := d[key]
	return v, ok
}

// GetString returns the value for key as a String, or an error if it is
// absent or of the wrong kind.
func (d Dict) GetString(key string) (String, error) {
	v, ok := d[key]
	if !ok {
		return nil, fmt.Errorf("bencode: dict missing key %q", key)
	}
	s, ok := v.(String)
	if !ok {
		return nil, fmt.Errorf("bencode: key %q is not a byte string", key)
	}
	return s, nil
}

// GetInt returns the value for key as an Int, or an error if it is
// absent or of the wrong kind.
func (d Dict) GetInt(key string) (Int, error) {
	v, ok := d[key]
	if !ok {
		return 0, fmt.Errorf("bencode: dict missing key %q", key)
	}
	i, ok := v.(Int)
	if !ok {
		return 0, fmt.Errorf("bencode: key %q is not an integer", key)
	}
	return i, nil
}

// GetList returns the value for key as a List, or an error if it is
// absent or of the wrong kind.
func (d Dict) GetList(key string) (List, error) {
	v, ok := d[key]
	if !ok {
		return nil, fmt.Errorf("bencode: dict missing key %q", key)
	}
	l, ok := v.(List)
	if !ok {
		return nil, fmt.Errorf("bencode: key %q is not a list", key)
	}
	return l, nil
}

// GetDict returns the value for key as a Dict, or an error if it is
// absent or of the wrong kind.
func (d Dict) GetDict(key string) (Dict, error) {
	v, ok := d[key]
	if !ok {
		return nil, fmt.Errorf("bencode: dict missing key %q", key)
	}
	sub, ok := v.(Dict)
	if !ok {
		return nil, fmt.Errorf("bencode: key %q is not a dict", key)
	}
	return sub, nil
}
