package bencode

import (
	"sort"
	"strconv"
)

// Encode renders v in canonical bencode form: minimal-width integers, and
// dict keys emitted in strictly ascending raw byte order. Encode(Decode(b))
// == b for any b a conforming encoder would produce, and Decode(Encode(v))
// == v for any v Decode can produce.
func Encode(v Value) []byte {
	return appendValue(nil, v)
}

func appendValue(buf []byte, v Value) []byte {
	switch val := v.(type) {
	case String:
		buf = strconv.AppendInt(buf, int64(len(val)), 10)
		buf = append(buf, ':')
		buf = append(buf, val...)
		return buf
	case Int:
		buf = append(buf, 'i')
		buf = strconv.AppendInt(buf, int64(val), 10)
		buf = append(buf, 'e')
		return buf
	case List:
		buf = append(buf, 'l')
		for _, item := range val {
			buf = appendValue(buf, item)
		}
		buf = append(buf, 'e')
		return buf
	case Dict:
		buf = append(buf, 'd')
		keys := make([]string, 0, len(val))
		for key := range val {
			keys = append(keys, key)
		}
		sort.Strings(keys) // lexicographic byte order, matching canonical dict ordering
		for _, key := range keys {
			buf = appendValue(buf, String(key))
			buf = appendValue(buf, val[key])
		}
		buf = append(buf, 'e')
		return buf
	default:
		panic("bencode: unknown value kind")
	}
}
