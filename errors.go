package coap

import "errors"

// Codec errors (spec.md section 7). Parse errors never propagate past
// Endpoint.Poll; they only cause the offending datagram to be dropped.
var (
	// ErrBufferTooSmall is returned by Encode when the message does
	// not fit in the caller-supplied buffer. No partial datagram is
	// left on the wire.
	ErrBufferTooSmall = errors.New("coap: buffer too small")

	// ErrBadFormat is returned by Decode when the datagram is not a
	// valid CoAP version-1 frame.
	ErrBadFormat = errors.New("coap: malformed datagram")

	// ErrBadOption is returned by Decode when an option's extended
	// delta/length fields are truncated, use the reserved nibble
	// value 15, or claim a length exceeding the remaining buffer.
	ErrBadOption = errors.New("coap: malformed option")

	// ErrInvalidTokenLen is returned when a token is longer than the
	// 8 bytes RFC 7252 allows.
	ErrInvalidTokenLen = errors.New("coap: invalid token length")

	// ErrOptionTooLong is returned when an option value exceeds 0xFFFF+269
	// bytes, the largest length the extended-length encoding can express.
	ErrOptionTooLong = errors.New("coap: option is too long")

	// ErrOptionGapTooLarge is returned when two consecutive option
	// numbers are out of ascending order, underflowing the delta
	// arithmetic.
	ErrOptionGapTooLarge = errors.New("coap: option gap too large")

	// ErrInvalidValueLength is returned by DecodeUint when given more
	// than 4 bytes to decode.
	ErrInvalidValueLength = errors.New("coap: invalid value length")

	// ErrFull names the table-full condition. Neither table returns
	// this value: RouteTable.Register silently drops a registration
	// when full (spec.md section 4.3), and ObserverRegistry.AddObserver
	// reports a full table as "ok == false".
	ErrFull = errors.New("coap: table is full")
)
