package coap

import "encoding/binary"

const (
	extByteCode   = 13
	extByteAddend = 13
	extWordCode   = 14
	extWordAddend = 269
	extError      = 15
)

// Encode serialises m into buf and returns the number of bytes
// written. It fails with ErrBufferTooSmall if the message does not
// fit; no partial datagram is considered written on failure.
//
// Options must already be in ascending ID order (see Message); Encode
// does not sort them, matching the teacher's and the original
// library's caller-discipline contract (spec.md section 9).
func Encode(buf []byte, m *Message) (int, error) {
	if len(m.Token) > 8 {
		return 0, ErrInvalidTokenLen
	}

	n := len(buf)
	if n < 4 {
		return 0, ErrBufferTooSmall
	}

	buf[0] = (1 << 6) | (uint8(m.Type)&0x3)<<4 | uint8(len(m.Token)&0xf)
	buf[1] = byte(m.Code)
	binary.BigEndian.PutUint16(buf[2:4], m.MessageID)
	size := 4

	if size+len(m.Token) > n {
		return 0, ErrBufferTooSmall
	}
	copy(buf[size:], m.Token)
	size += len(m.Token)

	runningDelta := 0
	for _, opt := range m.Options {
		// Conservative guard from the original library: worst-case
		// option header is 5 bytes (1 base + 2 extended delta + 2
		// extended length).
		if size+5+len(opt.Value) >= n {
			return 0, ErrBufferTooSmall
		}

		delta := int(opt.ID) - runningDelta
		if delta < 0 {
			return 0, ErrOptionGapTooLarge
		}
		length := len(opt.Value)
		if length > 0xFFFF+extWordAddend {
			return 0, ErrOptionTooLong
		}

		deltaNibble, deltaExt := extendedField(delta)
		lengthNibble, lengthExt := extendedField(length)

		buf[size] = byte(deltaNibble<<4 | lengthNibble)
		size++

		switch deltaNibble {
		case extByteCode:
			buf[size] = byte(deltaExt)
			size++
		case extWordCode:
			binary.BigEndian.PutUint16(buf[size:], uint16(deltaExt))
			size += 2
		}

		switch lengthNibble {
		case extByteCode:
			buf[size] = byte(lengthExt)
			size++
		case extWordCode:
			binary.BigEndian.PutUint16(buf[size:], uint16(lengthExt))
			size += 2
		}

		copy(buf[size:], opt.Value)
		size += length
		runningDelta = int(opt.ID)
	}

	if len(m.Payload) > 0 {
		if size+1+len(m.Payload) >= n {
			return 0, ErrBufferTooSmall
		}
		buf[size] = 0xFF
		size++
		copy(buf[size:], m.Payload)
		size += len(m.Payload)
	}

	return size, nil
}

// extendedField splits a delta or length value into its 4-bit nibble
// form and, when the nibble is an extended-field marker (13 or 14),
// the value to write in the extended bytes.
func extendedField(v int) (nibble, ext int) {
	switch {
	case v < extByteAddend:
		return v, 0
	case v <= 0xFF+extByteAddend:
		return extByteCode, v - extByteAddend
	default:
		return extWordCode, v - extWordAddend
	}
}

// Decode parses data as a CoAP message. Option and payload views in
// the returned Message borrow from data; the caller must keep data
// alive for as long as the Message is used.
func Decode(data []byte) (Message, error) {
	var m Message

	if len(data) < 4 {
		return m, ErrBadFormat
	}
	if data[0]>>6 != 1 {
		return m, ErrBadFormat
	}

	m.Type = Type((data[0] >> 4) & 0x3)
	tokenLen := int(data[0] & 0xf)
	if tokenLen > 8 {
		return m, ErrBadFormat
	}
	m.Code = Code(data[1])
	m.MessageID = binary.BigEndian.Uint16(data[2:4])

	if len(data) < 4+tokenLen {
		return m, ErrBadFormat
	}
	if tokenLen > 0 {
		m.Token = data[4 : 4+tokenLen]
	}

	b := data[4+tokenLen:]
	runningDelta := 0

	for len(b) > 0 {
		if b[0] == 0xFF {
			b = b[1:]
			if len(b) == 0 {
				// Marker present with nothing after it is malformed
				// (spec.md section 4.1: "the marker MUST NOT appear
				// followed by zero bytes").
				return m, ErrBadFormat
			}
			m.Payload = b
			return m, nil
		}

		deltaNibble := int(b[0] >> 4)
		lengthNibble := int(b[0] & 0xf)
		if deltaNibble == extError || lengthNibble == extError {
			return m, ErrBadOption
		}
		b = b[1:]

		delta, rest, err := readExtended(deltaNibble, b)
		if err != nil {
			return m, err
		}
		b = rest

		length, rest, err := readExtended(lengthNibble, b)
		if err != nil {
			return m, err
		}
		b = rest

		if length > len(b) {
			return m, ErrBadOption
		}

		runningDelta += delta
		m.Options = append(m.Options, Option{
			ID:    OptionID(runningDelta),
			Value: b[:length],
		})
		b = b[length:]
	}

	return m, nil
}

// readExtended resolves a delta/length nibble (already stripped from
// the option header byte) against the extended-field bytes in b,
// returning the resolved value and the remaining buffer.
func readExtended(nibble int, b []byte) (int, []byte, error) {
	switch nibble {
	case extByteCode:
		if len(b) < 1 {
			return 0, nil, ErrBadOption
		}
		return int(b[0]) + extByteAddend, b[1:], nil
	case extWordCode:
		if len(b) < 2 {
			return 0, nil, ErrBadOption
		}
		return int(binary.BigEndian.Uint16(b[:2])) + extWordAddend, b[2:], nil
	default:
		return nibble, b, nil
	}
}

// Uint encoding bounds (spec.md section 4.1): a variable-length
// unsigned integer of 0-4 bytes, big-endian, no leading zero byte.
const (
	max1Byte = 1<<8 - 1
	max2Byte = 1<<16 - 1
	max3Byte = 1<<24 - 1
)

// EncodeUint writes value into out using the minimal number of bytes
// (0-4; values above 24 bits take the full 4-byte form) and returns how
// many bytes it used. Zero is encoded as zero-length.
func EncodeUint(value uint32, out []byte) (int, error) {
	var n int
	switch {
	case value == 0:
		return 0, nil
	case value <= max1Byte:
		n = 1
	case value <= max2Byte:
		n = 2
	case value <= max3Byte:
		n = 3
	default:
		n = 4
	}
	if len(out) < n {
		return 0, ErrBufferTooSmall
	}
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], value)
	copy(out, tmp[4-n:])
	return n, nil
}

// DecodeUint decodes a variable-length unsigned integer as produced
// by EncodeUint.
func DecodeUint(b []byte) (uint32, error) {
	if len(b) > 4 {
		return 0, ErrInvalidValueLength
	}
	var tmp [4]byte
	copy(tmp[4-len(b):], b)
	return binary.BigEndian.Uint32(tmp[:]), nil
}
