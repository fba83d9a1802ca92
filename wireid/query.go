package wireid

import "fmt"

// PercentDecode decodes a URL-component where "%HH" introduces one byte
// and every other character (which must be ASCII, code point <= 0x7F)
// contributes its own code unit. It does not treat '+' as a space, since
// the components decoded here (info-hashes, peer IDs) are opaque bytes,
// not form-encoded text.
func PercentDecode(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%':
			if i+2 >= len(s) {
				return nil, fmt.Errorf("wireid: truncated %%-escape at offset %d", i)
			}
			hi, ok1 := hexDigit(s[i+1])
			lo, ok2 := hexDigit(s[i+2])
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("wireid: invalid %%-escape at offset %d", i)
			}
			out = append(out, hi<<4|lo)
			i += 2
		case c > 0x7F:
			return nil, fmt.Errorf("wireid: non-ASCII byte at offset %d", i)
		default:
			out = append(out, c)
		}
	}

	return out, nil
}

// PercentDecodeN decodes s the same way as PercentDecode but additionally
// requires the result to be exactly n bytes long.
func PercentDecodeN(s string, n int) ([]byte, error) {
	out, err := PercentDecode(s)
	if err != nil {
		return nil, err
	}
	if len(out) != n {
		return nil, fmt.Errorf("wireid: expected %d bytes, got %d", n, len(out))
	}
	return out, nil
}

// DecodeInfoHash decodes a query-string component into an InfoHash.
func DecodeInfoHash(s string) (InfoHash, error) {
	b, err := PercentDecodeN(s, 20)
	if err != nil {
		return InfoHash{}, err
	}
	var h InfoHash
	copy(h[:], b)
	return h, nil
}

// DecodePeerId decodes a query-string component into a PeerId.
func DecodePeerId(s string) (PeerId, error) {
	b, err := PercentDecodeN(s, 20)
	if err != nil {
		return PeerId{}, err
	}
	var p PeerId
	copy(p[:], b)
	return p, nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// isUnreserved reports whether b may be emitted literally by
// PercentEncode: ASCII alphanumerics only (stricter than RFC 3986
// unreserved, which also allows '-', '.', '_', '~').
func isUnreserved(b byte) bool {
	switch {
	case b >= '0' && b <= '9':
		return true
	case b >= 'a' && b <= 'z':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	default:
		return false
	}
}

const upperhex = "0123456789ABCDEF"

// PercentEncode renders b as a query-string component, escaping every
// byte that is not ASCII alphanumeric as "%XX".
func PercentEncode(b []byte) string {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if isUnreserved(c) {
			out = append(out, c)
		} else {
			out = append(out, '%', upperhex[c>>4], upperhex[c&0xF])
		}
	}
	return string(out)
}
