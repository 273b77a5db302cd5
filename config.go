package coap

import "time"

// Config collects the compile-time constants spec.md section 6
// names. Construct one with DefaultConfig and override individual
// fields the way the original library's Coap constructor took
// coap_buf_size as an overridable default.
type Config struct {
	// DefaultPort is the standard CoAP UDP port.
	DefaultPort int
	// BufMaxSize bounds the receive buffer and, unless ResponseBufMaxSize
	// is set, the send buffer too.
	BufMaxSize int
	// ResponseBufMaxSize, if non-zero, is used for the sendResponse/
	// sendObserveResponse path so large responses can be emitted
	// without resizing the receive path (spec.md section 5).
	ResponseBufMaxSize int
	// MaxOptionNum bounds the number of options a received packet may
	// carry; Poll drops a datagram with more. Outbound packets are not
	// checked against it.
	MaxOptionNum int
	// MaxCallback is the route table's capacity.
	MaxCallback int
	// MaxObservers is the observer registry's capacity.
	MaxObservers int
	// ObserverLeaseMs is the stale-observer eviction window; 0
	// disables lease expiry.
	ObserverLeaseMs int64
	// MaxObserveURLLen bounds an observed path's length, including
	// the terminator the original C implementation budgeted for.
	MaxObserveURLLen int
	// PollWindow bounds how long a single non-blocking socket read
	// may wait before Poll reports no datagram available.
	PollWindow time.Duration
}

// DefaultConfig returns the defaults from spec.md section 6.
func DefaultConfig() Config {
	return Config{
		DefaultPort:      5683,
		BufMaxSize:       128,
		MaxOptionNum:     10,
		MaxCallback:      10,
		MaxObservers:     4,
		ObserverLeaseMs:  60000,
		MaxObserveURLLen: 32,
		PollWindow:       5 * time.Millisecond,
	}
}

func (c Config) responseBufSize() int {
	if c.ResponseBufMaxSize > 0 {
		return c.ResponseBufMaxSize
	}
	return c.BufMaxSize
}
