package coap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeUintBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		value uint32
		want  int
	}{
		{"zero", 0, 0},
		{"one-byte-max", max1Byte, 1},
		{"two-byte-min", max1Byte + 1, 2},
		{"two-byte-max", max2Byte, 2},
		{"three-byte-min", max2Byte + 1, 3},
		{"three-byte-max", max3Byte, 3},
		{"four-byte-min", max3Byte + 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 4)
			n, err := EncodeUint(tt.value, buf)
			require.NoError(t, err)
			require.Equal(t, tt.want, n)

			got, err := DecodeUint(buf[:n])
			require.NoError(t, err)
			require.Equal(t, tt.value, got)
		})
	}
}

func TestDecodeUintRejectsOversizedInput(t *testing.T) {
	_, err := DecodeUint([]byte{1, 2, 3, 4, 5})
	require.ErrorIs(t, err, ErrInvalidValueLength)
}

func TestEncodeUintBufferTooSmall(t *testing.T) {
	_, err := EncodeUint(70000, make([]byte, 2))
	require.ErrorIs(t, err, ErrBufferTooSmall)
}

func TestRoundTripEncodeDecode(t *testing.T) {
	m := &Message{
		Type:      Confirmable,
		Code:      GET,
		MessageID: 0x1234,
		Token:     []byte{0xAB, 0xCD},
		Options: []Option{
			{ID: URIHost, Value: []byte("192.168.1.1")},
			{ID: URIPath, Value: []byte("temp")},
		},
		Payload: []byte("hello"),
	}

	buf := make([]byte, 128)
	n, err := Encode(buf, m)
	require.NoError(t, err)

	got, err := Decode(buf[:n])
	require.NoError(t, err)
	require.Equal(t, m.Type, got.Type)
	require.Equal(t, m.Code, got.Code)
	require.Equal(t, m.MessageID, got.MessageID)
	require.Equal(t, []byte(m.Token), []byte(got.Token))
	require.Equal(t, m.Payload, got.Payload)
	require.Len(t, got.Options, 2)
	require.Equal(t, URIHost, got.Options[0].ID)
	require.Equal(t, "192.168.1.1", string(got.Options[0].Value))
	require.Equal(t, URIPath, got.Options[1].ID)
	require.Equal(t, "temp", string(got.Options[1].Value))
}

func TestEncodeRejectsBufferTooSmall(t *testing.T) {
	m := &Message{Type: Confirmable, Code: GET, Payload: []byte("this payload will not fit")}
	_, err := Encode(make([]byte, 5), m)
	require.ErrorIs(t, err, ErrBufferTooSmall)
}

func TestEncodeRejectsDescendingOptionOrder(t *testing.T) {
	m := &Message{
		Type: Confirmable,
		Code: GET,
		Options: []Option{
			{ID: URIQuery, Value: []byte("a=1")},
			{ID: ContentFormat, Value: []byte{0}},
		},
	}
	_, err := Encode(make([]byte, 64), m)
	require.ErrorIs(t, err, ErrOptionGapTooLarge)
}

func TestEncodeRejectsOversizedToken(t *testing.T) {
	m := &Message{Type: Confirmable, Code: GET, Token: make([]byte, 9)}
	_, err := Encode(make([]byte, 64), m)
	require.ErrorIs(t, err, ErrInvalidTokenLen)
}

// TestOptionDeltaForms exercises every nibble-encoding boundary: direct
// (<13), one-byte-extended (13-268), and two-byte-extended (>=269).
func TestOptionDeltaForms(t *testing.T) {
	tests := []struct {
		name  string
		ids   []OptionID
		wants []OptionID // decoded IDs, to confirm the round trip
	}{
		{"direct", []OptionID{1, 12}, []OptionID{1, 12}},
		{"one-byte-extended", []OptionID{13, 268}, []OptionID{13, 268}},
		{"boundary-at-269", []OptionID{0, 269}, []OptionID{0, 269}},
		{"two-byte-extended", []OptionID{1, 65804}, []OptionID{1, 65804}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Message{Type: Confirmable, Code: GET}
			for _, id := range tt.ids {
				m.AddOption(id, []byte("v"))
			}
			buf := make([]byte, 512)
			n, err := Encode(buf, m)
			require.NoError(t, err)

			got, err := Decode(buf[:n])
			require.NoError(t, err)
			require.Len(t, got.Options, len(tt.wants))
			for i, want := range tt.wants {
				require.Equal(t, want, got.Options[i].ID)
			}
		})
	}
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	_, err := Decode([]byte{0x40, 0x01})
	require.ErrorIs(t, err, ErrBadFormat)
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x01, 0x00, 0x00})
	require.ErrorIs(t, err, ErrBadFormat)
}

func TestDecodeRejectsTrailingBarePayloadMarker(t *testing.T) {
	// Header + a lone 0xFF with nothing after it.
	_, err := Decode([]byte{0x40, 0x01, 0x00, 0x00, 0xFF})
	require.ErrorIs(t, err, ErrBadFormat)
}

func TestDecodeRejectsReservedOptionNibble(t *testing.T) {
	// Header, then an option byte whose delta nibble is the reserved
	// value 15.
	_, err := Decode([]byte{0x40, 0x01, 0x00, 0x00, 0xF1, 0x00})
	require.ErrorIs(t, err, ErrBadOption)
}

func TestDecodeRejectsOptionLengthPastBuffer(t *testing.T) {
	// Option header claims a 5-byte value but only 1 byte follows.
	_, err := Decode([]byte{0x40, 0x01, 0x00, 0x00, 0x05, 0x00})
	require.ErrorIs(t, err, ErrBadOption)
}

// TestScenarioGetEncodesExactBytes pins down the wire form of a
// minimal Confirmable GET with a single Uri-Path option, the kind of
// fixture a wire-compatibility regression test needs.
func TestScenarioGetEncodesExactBytes(t *testing.T) {
	m := &Message{
		Type:      Confirmable,
		Code:      GET,
		MessageID: 1,
		Token:     []byte{0x01},
	}
	m.AddOption(URIPath, []byte("temp"))

	buf := make([]byte, 64)
	n, err := Encode(buf, m)
	require.NoError(t, err)

	want := []byte{
		0x41,       // ver=1, type=Confirmable, TKL=1
		0x01,       // code 0.01 GET
		0x00, 0x01, // message ID
		0x01,                   // token
		0xB4, 't', 'e', 'm', 'p', // option: delta=11 (Uri-Path), len=4
	}
	require.Equal(t, want, buf[:n])
}

// TestScenarioAckParsesResponseCode covers parsing a piggy-backed ACK
// carrying a 2.05 Content response code.
func TestScenarioAckParsesResponseCode(t *testing.T) {
	buf := make([]byte, 32)
	src := &Message{Type: Acknowledgement, Code: Content, MessageID: 7, Payload: []byte("20.5")}
	n, err := Encode(buf, src)
	require.NoError(t, err)

	got, err := Decode(buf[:n])
	require.NoError(t, err)
	require.Equal(t, Acknowledgement, got.Type)
	require.Equal(t, Content, got.Code)
	require.Equal(t, "20.5", string(got.Payload))
}
