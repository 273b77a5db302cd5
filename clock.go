package coap

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
	"time"
)

// Clock is the monotonic-time collaborator the observer registry
// uses to stamp and age out entries. spec.md section 2 treats the
// host clock as an external collaborator; NewObserverRegistry accepts
// an injected implementation and defaults to systemClock when given
// nil (spec.md section 9's open question, resolved the same way as
// MessageIDSource below). NewEndpoint always builds its registry with
// the default systemClock.
type Clock interface {
	// NowMs returns a monotonically non-decreasing millisecond
	// timestamp. The origin is unspecified; only differences between
	// two calls are meaningful.
	NowMs() int64
}

type systemClock struct{ start time.Time }

func newSystemClock() *systemClock {
	return &systemClock{start: time.Now()}
}

func (c *systemClock) NowMs() int64 {
	return time.Since(c.start).Milliseconds()
}

// MessageIDSource supplies fresh 16-bit Message-IDs for outbound
// requests whose caller did not provide one explicitly. spec.md
// section 9 flags the source library's unseeded PRNG as an open
// question and requires a reimplementation to either accept an
// externally provided source or document the entropy dependency; this
// package does the former, defaulting to randomMessageIDSource.
type MessageIDSource interface {
	Uint16() uint16
}

// randomMessageIDSource reads from crypto/rand, falling back to a
// locally-seeded math/rand generator if the system entropy source is
// unavailable (grounded on GiterLab-go-secoap/secoapcore/msg_id.go's
// RandMID, which does the same crypto/rand-with-fallback dance).
type randomMessageIDSource struct {
	weak *mrand.Rand
}

func newRandomMessageIDSource() *randomMessageIDSource {
	return &randomMessageIDSource{weak: mrand.New(mrand.NewSource(time.Now().UnixNano()))}
}

func (s *randomMessageIDSource) Uint16() uint16 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<16))
	if err != nil {
		return uint16(s.weak.Uint32())
	}
	return uint16(n.Int64())
}
