package coap

// Handler serves a single CoAP request. Implementations typically
// reply via Endpoint.SendResponse or Endpoint.SendObserveResponse.
type Handler interface {
	ServeCOAP(e *Endpoint, peerAddr string, peerPort int, m *Message)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(e *Endpoint, peerAddr string, peerPort int, m *Message)

// ServeCOAP calls f.
func (f HandlerFunc) ServeCOAP(e *Endpoint, peerAddr string, peerPort int, m *Message) {
	f(e, peerAddr, peerPort, m)
}

// RouteTable is a fixed-capacity mapping from a canonical path string
// (see Message.Path) to a Handler. Registration replaces an existing
// handler at the same path, otherwise takes the first free slot;
// a full table silently drops new registrations (spec.md section
// 4.3's documented legacy behavior). Path comparison is byte-exact:
// no case-folding, no trailing-slash collapsing.
type RouteTable struct {
	paths    []string
	handlers []Handler
}

// NewRouteTable builds a route table with the given capacity.
func NewRouteTable(capacity int) *RouteTable {
	return &RouteTable{
		paths:    make([]string, capacity),
		handlers: make([]Handler, capacity),
	}
}

// Register installs h for path, replacing any handler already
// registered at that exact path. If the table is full and path is
// not already registered, the registration is silently dropped.
func (t *RouteTable) Register(path string, h Handler) {
	for i, p := range t.paths {
		if t.handlers[i] != nil && p == path {
			t.handlers[i] = h
			return
		}
	}
	for i, h2 := range t.handlers {
		if h2 == nil {
			t.paths[i] = path
			t.handlers[i] = h
			return
		}
	}
}

// Find returns the handler registered for path, or nil.
func (t *RouteTable) Find(path string) Handler {
	for i, p := range t.paths {
		if t.handlers[i] != nil && p == path {
			return t.handlers[i]
		}
	}
	return nil
}
