// Package coap implements a CoAP (RFC 7252) endpoint with Observe
// (RFC 7641) support for constrained devices talking UDP to peers.
//
// The package is split into three pieces that mirror the engineering
// weight of the protocol: a wire codec that encodes and parses
// messages under strict buffer bounds (codec.go, message.go), a
// request-dispatch loop driven by a non-blocking socket poll
// (endpoint.go), and an observer registry that tracks per-client
// notification sequences with lease expiry (observer.go).
//
// DTLS, block-wise transfer, Message-ID deduplication, confirmable
// retransmission and token-based response matching beyond delivering
// the raw packet to a callback are not implemented.
package coap
