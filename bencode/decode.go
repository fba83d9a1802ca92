package bencode

// Decode parses a single bencode value out of data. The entire input must
// be consumed by the one value; any leftover bytes are a TrailingData
// error.
//
//	value   := bstr | int | list | dict
//	bstr    := nonzero_uint ":" bytes(len)  |  "0:"
//	int     := "i0e"  |  "i" ("-"? [1-9][0-9]*) "e"
//	list    := "l" value* "e"
//	dict    := "d" (bstr value)* "e"
func Decode(data []byte) (Value, error) {
	v, pos, err := decodeValue(data, 0)
	if err != nil {
		return nil, err
	}
	if pos != len(data) {
		return nil, newErr(TrailingData, pos)
	}
	return v, nil
}

// DecodeDictWithSpans decodes data as a top-level dict and additionally
// returns, for each key, the raw byte slice of data that the key's value
// occupied. This lets callers (the metainfo loader, in particular) bind a
// hash to the exact bytes a sub-value appeared as on the wire, rather than
// to a re-encoding of the decoded value.
func DecodeDictWithSpans(data []byte) (Dict, map[string][]byte, error) {
	if len(data) == 0 {
		return nil, nil, newErr(UnexpectedEOF, 0)
	}
	if data[0] != 'd' {
		return nil, nil, newErr(BadDelimiter, 0)
	}

	dict := make(Dict)
	spans := make(map[string][]byte)

	pos := 1
	for {
		if pos >= len(data) {
			return nil, nil, newErr(UnexpectedEOF, pos)
		}
		if data[pos] == 'e' {
			pos++
			break
		}

		keyVal, next, err := decodeValue(data, pos)
		if err != nil {
			return nil, nil, err
		}
		key, ok := keyVal.(String)
		if !ok {
			return nil, nil, newErr(BadDelimiter, pos)
		}
		pos = next

		valStart := pos
		val, next, err := decodeValue(data, pos)
		if err != nil {
			return nil, nil, err
		}
		pos = next

		dict[string(key)] = val
		spans[string(key)] = data[valStart:pos]
	}

	if pos != len(data) {
		return nil, nil, newErr(TrailingData, pos)
	}

	return dict, spans, nil
}

// decodeValue decodes one value starting at pos and returns it along with
// the position immediately after it.
func decodeValue(data []byte, pos int) (Value, int, error) {
	if pos >= len(data) {
		return nil, pos, newErr(UnexpectedEOF, pos)
	}

	switch c := data[pos]; {
	case c >= '0' && c <= '9':
		return decodeString(data, pos)
	case c == 'i':
		return decodeInt(data, pos)
	case c == 'l':
		return decodeList(data, pos)
	case c == 'd':
		return decodeDict(data, pos)
	default:
		return nil, pos, newErr(BadDelimiter, pos)
	}
}

// decodeString decodes "<len>:<bytes>". A leading zero on len is rejected
// except for the literal "0:" itself.
func decodeString(data []byte, pos int) (Value, int, error) {
	start := pos
	for pos < len(data) && data[pos] >= '0' && data[pos] <= '9' {
		pos++
	}
	if pos == start {
		return nil, start, newErr(ExpectedDigit, start)
	}
	if pos-start > 1 && data[start] == '0' {
		return nil, start, newErr(LeadingZero, start)
	}

	length := 0
	for _, d := range data[start:pos] {
		length = length*10 + int(d-'0')
	}

	if pos >= len(data) || data[pos] != ':' {
		return nil, pos, newErr(BadDelimiter, pos)
	}
	pos++

	if pos+length > len(data) {
		return nil, pos, newErr(UnexpectedEOF, pos)
	}

	value := make(String, length)
	copy(value, data[pos:pos+length])
	return value, pos + length, nil
}

// decodeInt decodes "i<decimal>e". Leading zeros and "-0" are rejected.
func decodeInt(data []byte, pos int) (Value, int, error) {
	start := pos
	pos++ // past 'i'

	negative := false
	if pos < len(data) && data[pos] == '-' {
		negative = true
		pos++
	}

	digitsStart := pos
	for pos < len(data) && data[pos] >= '0' && data[pos] <= '9' {
		pos++
	}
	if pos == digitsStart {
		return nil, start, newErr(ExpectedDigit, digitsStart)
	}

	numDigits := pos - digitsStart
	if numDigits > 1 && data[digitsStart] == '0' {
		return nil, start, newErr(LeadingZero, digitsStart)
	}
	if negative && numDigits == 1 && data[digitsStart] == '0' {
		return nil, start, newErr(NegativeZero, start)
	}

	if pos >= len(data) || data[pos] != 'e' {
		return nil, pos, newErr(BadDelimiter, pos)
	}

	var value int64
	for _, d := range data[digitsStart:pos] {
		value = value*10 + int64(d-'0')
	}
	if negative {
		value = -value
	}

	return Int(value), pos + 1, nil
}

// decodeList decodes "l<value>*e".
func decodeList(data []byte, pos int) (Value, int, error) {
	pos++ // past 'l'

	var items List
	for {
		if pos >= len(data) {
			return nil, pos, newErr(UnexpectedEOF, pos)
		}
		if data[pos] == 'e' {
			pos++
			break
		}

		item, next, err := decodeValue(data, pos)
		if err != nil {
			return nil, next, err
		}
		items = append(items, item)
		pos = next
	}

	return items, pos, nil
}

// decodeDict decodes "d(<bstr><value>)*e". Keys must be byte strings. A
// repeated key is permitted on the wire; the last occurrence wins.
func decodeDict(data []byte, pos int) (Value, int, error) {
	pos++ // past 'd'

	dict := make(Dict)
	for {
		if pos >= len(data) {
			return nil, pos, newErr(UnexpectedEOF, pos)
		}
		if data[pos] == 'e' {
			pos++
			break
		}

		keyVal, next, err := decodeValue(data, pos)
		if err != nil {
			return nil, next, err
		}
		key, ok := keyVal.(String)
		if !ok {
			return nil, pos, newErr(BadDelimiter, pos)
		}
		pos = next

		val, next, err := decodeValue(data, pos)
		if err != nil {
			return nil, next, err
		}
		pos = next

		dict[string(key)] = val
	}

	return dict, pos, nil
}
