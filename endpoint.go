package coap

import (
	"fmt"
	"net"

	"github.com/hashicorp/go-multierror"
)

// ResponseFunc is invoked for every received Acknowledgement
// (spec.md section 6's "single function accepting (packet, peer_addr,
// peer_port)").
type ResponseFunc func(e *Endpoint, peerAddr string, peerPort int, m *Message)

// Endpoint drives one CoAP socket: it owns the route table, the
// observer registry, and the send/receive buffers, and exposes both
// the dispatch loop (Poll) and the outbound request/response APIs.
//
// Endpoint is not safe for concurrent use (spec.md section 5): all
// calls on one instance must come from a single goroutine, or be
// externally synchronised. This mirrors the single-threaded
// cooperative model a constrained device runs under.
type Endpoint struct {
	socket Socket
	config Config

	routes    *RouteTable
	observers *ObserverRegistry
	response  ResponseFunc

	midSource MessageIDSource

	txBuf       []byte
	responseBuf []byte
}

// NewEndpoint builds an Endpoint bound to socket with the given
// config. midSource may be nil to use the default
// randomMessageIDSource (spec.md section 9's open question).
func NewEndpoint(socket Socket, config Config, midSource MessageIDSource) *Endpoint {
	if midSource == nil {
		midSource = newRandomMessageIDSource()
	}
	return &Endpoint{
		socket:      socket,
		config:      config,
		routes:      NewRouteTable(config.MaxCallback),
		observers:   NewObserverRegistry(config.MaxObservers, config.ObserverLeaseMs, config.MaxObserveURLLen, nil),
		midSource:   midSource,
		txBuf:       make([]byte, config.BufMaxSize),
		responseBuf: make([]byte, config.responseBufSize()),
	}
}

// Start binds the underlying socket to the default CoAP port.
func (e *Endpoint) Start() error {
	return e.socket.Bind(e.config.DefaultPort)
}

// StartOnPort binds the underlying socket to the given port.
func (e *Endpoint) StartOnPort(port int) error {
	return e.socket.Bind(port)
}

// OnResponse installs the callback invoked for every received ACK.
func (e *Endpoint) OnResponse(f ResponseFunc) {
	e.response = f
}

// Handle registers h for the given canonical path (spec.md section
// 4.3; see Message.Path for how the dispatch key is built).
func (e *Endpoint) Handle(path string, h Handler) {
	e.routes.Register(path, h)
}

// HandleFunc is a convenience wrapper around Handle for a plain
// function handler.
func (e *Endpoint) HandleFunc(path string, f func(e *Endpoint, peerAddr string, peerPort int, m *Message)) {
	e.routes.Register(path, HandlerFunc(f))
}

// Observers exposes the endpoint's observer registry, e.g. for a
// handler implementing Observe registration/deregistration.
func (e *Endpoint) Observers() *ObserverRegistry {
	return e.observers
}

// Poll drains the socket: while a datagram is available, it reads,
// parses, and dispatches it, then moves on to the next one. A parse
// failure silently drops the offending datagram (spec.md section
// 4.4); Poll returns once the socket reports no more datagrams
// available.
func (e *Endpoint) Poll() {
	for {
		data, peerAddr, peerPort, ok := e.socket.Poll()
		if !ok {
			return
		}
		e.dispatch(data, peerAddr, peerPort)
	}
}

func (e *Endpoint) dispatch(data []byte, peerAddr string, peerPort int) {
	defer func() {
		if r := recover(); r != nil {
			traceError("[coap] panic handling datagram from %s:%d: %v", peerAddr, peerPort, r)
		}
	}()

	m, err := Decode(data)
	if err != nil {
		traceWarn("[coap] dropping malformed datagram from %s:%d: %v", peerAddr, peerPort, err)
		return
	}
	if len(m.Options) > e.config.MaxOptionNum {
		// The original fixed-array CoapPacket.options[COAP_MAX_OPTION_NUM]
		// simply stopped scanning at capacity; a packet that overflows
		// it here is dropped the same way a malformed one is.
		traceWarn("[coap] dropping datagram from %s:%d: %d options exceeds limit %d", peerAddr, peerPort, len(m.Options), e.config.MaxOptionNum)
		return
	}

	traceInfo("[coap] recv %s %s from %s:%d, %d bytes", m.Type, m.Code, peerAddr, peerPort, len(data))

	if m.Type == Acknowledgement {
		if e.response != nil {
			e.response(e, peerAddr, peerPort, &m)
		}
		return
	}

	path := m.Path()
	h := e.routes.Find(path)
	if h == nil {
		if _, err := e.SendResponse(peerAddr, peerPort, m.MessageID, nil, NotFound, MediaTypeNone, nil); err != nil {
			traceError("[coap] failed to send 4.04 to %s:%d: %v", peerAddr, peerPort, err)
		}
		return
	}
	h.ServeCOAP(e, peerAddr, peerPort, &m)
}

// sendPacket encodes m into buf and writes it to the peer, returning
// m's Message-ID on success or 0 on any encode/send failure (spec.md
// section 7: encode errors surface as a zero return, never a panic or
// process abort).
func (e *Endpoint) sendPacket(buf []byte, m *Message, peerAddr string, peerPort int) uint16 {
	n, err := Encode(buf, m)
	if err != nil {
		traceError("[coap] encode failed for %s:%d: %v", peerAddr, peerPort, err)
		return 0
	}
	if err := e.socket.Send(buf[:n], peerAddr, peerPort); err != nil {
		traceError("[coap] send failed to %s:%d: %v", peerAddr, peerPort, err)
		return 0
	}
	return m.MessageID
}

// Get sends a Confirmable GET with an empty token and no payload.
func (e *Endpoint) Get(peerAddr string, peerPort int, url string) uint16 {
	return e.Send(peerAddr, peerPort, url, Confirmable, GET, nil, nil, MediaTypeNone, 0)
}

// Put sends a Confirmable PUT carrying payload.
func (e *Endpoint) Put(peerAddr string, peerPort int, url string, payload []byte) uint16 {
	return e.Send(peerAddr, peerPort, url, Confirmable, PUT, nil, payload, MediaTypeNone, 0)
}

// Send builds and sends a request. An explicit messageID of 0 is
// replaced with a fresh value from the endpoint's MessageIDSource;
// contentFormat of MediaTypeNone omits the Content-Format option.
func (e *Endpoint) Send(peerAddr string, peerPort int, url string, typ Type, method Code, token, payload []byte, contentFormat MediaType, messageID uint16) uint16 {
	if messageID == 0 {
		messageID = e.midSource.Uint16()
	}

	m := &Message{
		Type:      typ,
		Code:      method,
		MessageID: messageID,
		Token:     token,
		Payload:   payload,
	}
	// SplitURL's own options are already ascending (Uri-Host, then
	// Uri-Path segments, then any Uri-Query segments); Content-Format
	// sits between Uri-Path(11) and Uri-Query(15), so it must be
	// spliced in before any query options rather than just appended,
	// or Encode's delta arithmetic would see a descending ID and fail
	// with ErrOptionGapTooLarge.
	urlOpts := SplitURL(hostOptionValue(peerAddr), url)
	queryStart := len(urlOpts)
	for i, o := range urlOpts {
		if o.ID == URIQuery {
			queryStart = i
			break
		}
	}
	for _, o := range urlOpts[:queryStart] {
		m.AddOption(o.ID, o.Value)
	}
	if contentFormat != MediaTypeNone {
		var cf [2]byte
		n, _ := EncodeUint(uint32(contentFormat), cf[:])
		m.AddOption(ContentFormat, cf[:n])
	}
	for _, o := range urlOpts[queryStart:] {
		m.AddOption(o.ID, o.Value)
	}

	return e.sendPacket(e.txBuf, m, peerAddr, peerPort)
}

// SendResponse sends an Acknowledgement with the given Message-ID,
// defaulting to code 2.05 Content and content-format text/plain
// (spec.md section 4.4).
func (e *Endpoint) SendResponse(peerAddr string, peerPort int, messageID uint16, payload []byte, code Code, contentFormat MediaType, token []byte) (uint16, error) {
	if code == 0 {
		code = Content
		contentFormat = TextPlain
	}

	m := &Message{
		Type:      Acknowledgement,
		Code:      code,
		MessageID: messageID,
		Token:     token,
		Payload:   payload,
	}
	if contentFormat != MediaTypeNone {
		var cf [2]byte
		n, _ := EncodeUint(uint32(contentFormat), cf[:])
		m.AddOption(ContentFormat, cf[:n])
	}

	id := e.sendPacket(e.responseBuf, m, peerAddr, peerPort)
	if id == 0 {
		return 0, fmt.Errorf("coap: sendResponse to %s:%d failed", peerAddr, peerPort)
	}
	return id, nil
}

// SendObserveResponse sends an Acknowledgement that also carries an
// Observe option with the given sequence, for the initial
// piggy-backed notify on an Observe registration (spec.md section
// 4.4, RFC 7641).
func (e *Endpoint) SendObserveResponse(peerAddr string, peerPort int, messageID uint16, payload []byte, code Code, contentFormat MediaType, token []byte, observeSeq uint32) (uint16, error) {
	if code == 0 {
		code = Content
	}
	if contentFormat == 0 {
		contentFormat = TextPlain
	}

	var seqBuf [3]byte
	// RFC 7641's Observe option carries only a 24-bit sequence; the
	// registry's own counter is a wider monotonic uint32 (spec.md
	// section 5), so it is masked down only at the wire boundary.
	seqLen, err := EncodeUint(observeSeq&0xFFFFFF, seqBuf[:])
	if err != nil {
		return 0, err
	}

	m := &Message{
		Type:      Acknowledgement,
		Code:      code,
		MessageID: messageID,
		Token:     token,
		Payload:   payload,
	}
	m.AddOption(ObserveOption, seqBuf[:seqLen])
	if contentFormat != MediaTypeNone {
		var cf [2]byte
		n, _ := EncodeUint(uint32(contentFormat), cf[:])
		m.AddOption(ContentFormat, cf[:n])
	}

	if id := e.sendPacket(e.responseBuf, m, peerAddr, peerPort); id != 0 {
		return id, nil
	}
	return 0, fmt.Errorf("coap: sendObserveResponse to %s:%d failed", peerAddr, peerPort)
}

// Notify sends a NonConfirmable 2.05 Content notification, with a
// fresh Observe option and the given content format, to every live
// observer of path (spec.md section 4.5). It returns the number of
// notifications actually handed to the socket.
func (e *Endpoint) Notify(path string, payload []byte, contentFormat MediaType) int {
	return e.observers.Notify(path, func(o *Observer, seq uint32) bool {
		return e.notifyOne(o, seq, payload, contentFormat)
	})
}

// NotifyObserver sends a single ad-hoc notification directly to obs,
// bypassing the registry's lease check (spec.md section 4.5's
// single-target notify variant).
func (e *Endpoint) NotifyObserver(obs *Observer, payload []byte, contentFormat MediaType) bool {
	return NotifySingle(obs, func(o *Observer, seq uint32) bool {
		return e.notifyOne(o, seq, payload, contentFormat)
	})
}

func (e *Endpoint) notifyOne(o *Observer, seq uint32, payload []byte, contentFormat MediaType) bool {
	var seqBuf [3]byte
	seqLen, err := EncodeUint(seq&0xFFFFFF, seqBuf[:])
	if err != nil {
		return false
	}

	m := &Message{
		Type:      NonConfirmable,
		Code:      Content,
		MessageID: e.midSource.Uint16(),
		Token:     o.Token,
		Payload:   payload,
	}
	m.AddOption(ObserveOption, seqBuf[:seqLen])
	if contentFormat != MediaTypeNone {
		var cf [2]byte
		n, _ := EncodeUint(uint32(contentFormat), cf[:])
		m.AddOption(ContentFormat, cf[:n])
	}

	return e.sendPacket(e.txBuf, m, o.PeerAddr, o.PeerPort) != 0
}

// Close tears down the endpoint: it evicts every live observer
// (spec.md section 3, an observer's lifecycle ends "when the
// containing endpoint is torn down") and, if the socket implements
// its own teardown, closes it too. Both steps are attempted even if
// one fails, and any failures are aggregated with go-multierror
// rather than one silently shadowing the other.
func (e *Endpoint) Close() error {
	var result *multierror.Error
	e.observers.Clear()
	if closer, ok := e.socket.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// hostOptionValue canonicalises peerAddr into the textual form
// spec.md section 4.2 wants for the Uri-Host option: a parsed IP's
// String() form when peerAddr is a literal address (normalising e.g.
// zero-padded octets), or peerAddr verbatim otherwise.
func hostOptionValue(peerAddr string) string {
	if ip := net.ParseIP(peerAddr); ip != nil {
		return ip.String()
	}
	return peerAddr
}
