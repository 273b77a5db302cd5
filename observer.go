package coap

// Observer identifies a single active observation: the peer that
// registered it, the token it used, and the path it is watching.
type Observer struct {
	PeerAddr string
	PeerPort int
	Path     string
	Token    []byte

	seq      uint32
	lastSeen int64
}

// Seq returns the observer's current notification sequence (the value
// most recently sent, or 0 before any notification has gone out).
func (o *Observer) Seq() uint32 { return o.seq }

type observerEntry struct {
	inUse bool
	obs   Observer
}

// ObserverRegistry is a fixed-capacity set of active Observe
// registrations, keyed by (peer address, peer port, path, token),
// each carrying a monotonic per-observer sequence counter and a
// last-seen timestamp used for lease expiry (spec.md section 4.5).
//
// Like RouteTable, the registry is a small linear-scanned array by
// design (spec.md section 9: "linear scans over a small fixed array
// are intentional").
type ObserverRegistry struct {
	entries  []observerEntry
	leaseMs  int64
	maxURL   int
	clock    Clock
}

// NewObserverRegistry builds a registry with the given capacity and
// lease duration in milliseconds (0 disables lease expiry). maxURLLen
// bounds the path length AddObserver will accept, including the
// string's NUL terminator in the C original this package is grounded
// on (spec.md section 3): a Go path longer than maxURLLen-1 bytes is
// rejected.
func NewObserverRegistry(capacity int, leaseMs int64, maxURLLen int, clock Clock) *ObserverRegistry {
	if clock == nil {
		clock = newSystemClock()
	}
	return &ObserverRegistry{
		entries: make([]observerEntry, capacity),
		leaseMs: leaseMs,
		maxURL:  maxURLLen,
		clock:   clock,
	}
}

func (r *ObserverRegistry) find(peerAddr string, peerPort int, path string, token []byte) *observerEntry {
	for i := range r.entries {
		e := &r.entries[i]
		if !e.inUse {
			continue
		}
		if e.obs.PeerAddr == peerAddr && e.obs.PeerPort == peerPort &&
			e.obs.Path == path && bytesEqual(e.obs.Token, token) {
			return e
		}
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AddObserver creates or refreshes an observation for (peerAddr,
// peerPort, path, token). If a matching entry already exists, only
// its last-seen timestamp is refreshed and its sequence counter is
// preserved. Returns false if path or token are too long, or the
// table is full and no matching entry exists.
func (r *ObserverRegistry) AddObserver(peerAddr string, peerPort int, path string, token []byte) bool {
	if len(path) >= r.maxURL || len(token) > 8 {
		return false
	}

	now := r.clock.NowMs()
	if e := r.find(peerAddr, peerPort, path, token); e != nil {
		e.obs.lastSeen = now
		return true
	}

	for i := range r.entries {
		if !r.entries[i].inUse {
			r.entries[i] = observerEntry{
				inUse: true,
				obs: Observer{
					PeerAddr: peerAddr,
					PeerPort: peerPort,
					Path:     path,
					Token:    append([]byte(nil), token...),
					lastSeen: now,
				},
			}
			return true
		}
	}
	return false
}

// RemoveObserver frees every entry matching (peerAddr, peerPort,
// path, token). Construction guarantees at most one match, but every
// match is cleared for safety.
func (r *ObserverRegistry) RemoveObserver(peerAddr string, peerPort int, path string, token []byte) {
	for i := range r.entries {
		e := &r.entries[i]
		if e.inUse && e.obs.PeerAddr == peerAddr && e.obs.PeerPort == peerPort &&
			e.obs.Path == path && bytesEqual(e.obs.Token, token) {
			*e = observerEntry{}
		}
	}
}

// NotifyTarget is the outcome-reporting callback Notify invokes for
// each observer that should receive a notification. It receives the
// sequence number that was assigned so it can build and send the wire
// message; Notify counts the notification as delivered only if send
// returns true.
type NotifyTarget func(o *Observer, seq uint32) (sent bool)

// Notify walks every in-use entry whose path matches, evicting any
// entry whose lease has expired (spec.md section 4.5: "(now -
// last_seen) > lease_ms"; lease checking is disabled when leaseMs ==
// 0) and otherwise pre-incrementing its sequence counter (the first
// notification therefore carries seq=1) before invoking send. It
// returns the number of notifications send actually reported as
// delivered.
func (r *ObserverRegistry) Notify(path string, send NotifyTarget) int {
	now := r.clock.NowMs()
	delivered := 0
	for i := range r.entries {
		e := &r.entries[i]
		if !e.inUse || e.obs.Path != path {
			continue
		}
		if r.leaseMs > 0 && now-e.obs.lastSeen > r.leaseMs {
			*e = observerEntry{}
			continue
		}
		e.obs.seq++
		if send(&e.obs, e.obs.seq) {
			delivered++
		}
	}
	return delivered
}

// Clear frees every entry, as if the containing endpoint had been
// torn down (spec.md section 3: "Destroyed by ... lease expiry ... or
// when the containing endpoint is torn down").
func (r *ObserverRegistry) Clear() {
	for i := range r.entries {
		r.entries[i] = observerEntry{}
	}
}

// NotifySingle sends one ad-hoc notification to a specific observer
// without consulting the registry and without checking its lease
// (spec.md section 4.5's single-target notify variant). The
// observer's own sequence counter still advances.
func NotifySingle(o *Observer, send NotifyTarget) bool {
	o.seq++
	return send(o, o.seq)
}
