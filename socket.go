package coap

import (
	"net"
	"time"
)

// Socket is the minimum UDP transport collaborator the core consumes
// (spec.md section 6). The library treats DTLS, framing above the
// datagram, and blocking-vs-non-blocking semantics as the transport's
// own business; Poll must not block for longer than a brief internal
// read-deadline window so Endpoint.Poll can drain every
// currently-available datagram and return.
type Socket interface {
	Bind(port int) error
	// Poll performs one non-blocking receive. ok is false if no
	// datagram was available.
	Poll() (data []byte, peerAddr string, peerPort int, ok bool)
	Send(data []byte, peerAddr string, peerPort int) error
	RemoteAddr() string
	RemotePort() int
}

// UDPSocket adapts a *net.UDPConn to Socket. It is grounded on the
// teacher's own server.go: ListenAndServe/Serve's bind-then-loop shape,
// and Receive's SetReadDeadline-before-ReadFromUDP pattern for turning
// a blocking socket into a boundedly-blocking one.
type UDPSocket struct {
	conn       *net.UDPConn
	bufSize    int
	pollWindow time.Duration

	remoteAddr string
	remotePort int
}

// NewUDPSocket builds a socket that reads into a bufSize-byte buffer
// and polls with the given deadline window per read attempt.
func NewUDPSocket(bufSize int, pollWindow time.Duration) *UDPSocket {
	return &UDPSocket{bufSize: bufSize, pollWindow: pollWindow}
}

// Bind opens a UDP listener on the given port across all local
// addresses.
func (s *UDPSocket) Bind(port int) error {
	addr := &net.UDPAddr{Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

// Poll performs one non-blocking-equivalent receive: it sets a short
// read deadline (grounded on the teacher's Receive, which sets
// ResponseTimeout before ReadFromUDP) and treats a timeout as "no
// datagram available" rather than an error, the same tolerant
// handling the teacher's Serve loop gives net.Error Temporary/Timeout.
func (s *UDPSocket) Poll() ([]byte, string, int, bool) {
	buf := make([]byte, s.bufSize)
	s.conn.SetReadDeadline(time.Now().Add(s.pollWindow))
	n, addr, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, "", 0, false
		}
		return nil, "", 0, false
	}
	s.remoteAddr = addr.IP.String()
	s.remotePort = addr.Port
	return buf[:n], s.remoteAddr, s.remotePort, true
}

// Send writes data to the given peer.
func (s *UDPSocket) Send(data []byte, peerAddr string, peerPort int) error {
	addr := &net.UDPAddr{IP: net.ParseIP(peerAddr), Port: peerPort}
	_, err := s.conn.WriteToUDP(data, addr)
	return err
}

// RemoteAddr returns the address of the most recent successful Poll.
func (s *UDPSocket) RemoteAddr() string { return s.remoteAddr }

// RemotePort returns the port of the most recent successful Poll.
func (s *UDPSocket) RemotePort() int { return s.remotePort }

// Close releases the underlying connection.
func (s *UDPSocket) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
