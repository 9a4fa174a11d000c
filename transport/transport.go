// Package transport defines the non-blocking send/receive contract the
// halo-exchange and migration code is written against, plus an
// in-process implementation (Local) standing in for a real MPI binding.
//
// No MPI library appears anywhere in the reference corpus this module
// was built from, so Conn is modeled on Go's own idiom for concurrent
// workers exchanging state: goroutines and channels, generalized from a
// worker-pool fan-out into point-to-point message passing between
// simulated ranks.
package transport

import "github.com/pinc-go/pinc/topology"

// Conn is the per-rank handle to the message-passing fabric. Every method
// returns immediately; communication only blocks inside Request.Wait.
type Conn interface {
	// Rank returns this connection's own rank.
	Rank() int
	// Topology returns the Cartesian domain-decomposition info for this
	// rank.
	Topology() topology.Info
	// ISend posts a send of data to dst tagged with tag. data is copied
	// before ISend returns, so the caller's buffer may be reused
	// immediately.
	ISend(dst, tag int, data []byte) Request
	// IRecv posts a receive from exactly (src, tag) into buf.
	IRecv(src, tag int, buf []byte) Request
	// IRecvAny posts a receive from any source/tag into buf. After
	// Wait, Request.Tag reports which tag (and therefore, per spec.md
	// §4.9, which neighbor) the message carried.
	IRecvAny(buf []byte) Request
}

// Request is a handle to a single in-flight operation.
type Request interface {
	// Wait blocks until the operation completes and returns any error
	// (buffer-size mismatch, closed connection). The number of bytes
	// actually copied into a receive buffer is bounded by len(buf); the
	// source's data length must not exceed it.
	Wait() error
	// Tag reports the tag of the message. For ISend and IRecv, this is
	// simply the tag passed in. For IRecvAny, it is only meaningful
	// after Wait returns and identifies the sending neighbor.
	Tag() int
}
