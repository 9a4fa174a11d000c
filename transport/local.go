package transport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pinc-go/pinc/topology"
)

// ErrBufferTooSmall is returned by Request.Wait when a receive buffer is
// smaller than the message actually delivered.
var ErrBufferTooSmall = errors.New("transport: receive buffer too small for message")

type envelope struct {
	src, tag int
	data     []byte
}

// mailbox holds messages addressed to one rank until a matching receive
// claims them, modeling MPI's any-order message matching.
type mailbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []envelope
	closed  bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) deliver(e envelope) {
	m.mu.Lock()
	m.pending = append(m.pending, e)
	m.cond.Broadcast()
	m.mu.Unlock()
}

// take blocks until an envelope satisfying match is pending, removes it,
// and returns it.
func (m *mailbox) take(match func(envelope) bool) envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		for i, e := range m.pending {
			if match(e) {
				m.pending = append(m.pending[:i], m.pending[i+1:]...)
				return e
			}
		}
		m.cond.Wait()
	}
}

// Local is an in-process Conn fabric connecting N ranks via per-rank
// mailboxes. It is the module's stand-in for a real MPI communicator —
// see package doc and DESIGN.md for why no cgo MPI binding is used.
type Local struct {
	mailboxes []*mailbox
	infos     []topology.Info
}

// NewLocal builds a fully connected Local fabric for the given Cartesian
// subdomain layout, one Conn per rank.
func NewLocal(nSubdomains []int) ([]Conn, error) {
	total := 1
	for _, n := range nSubdomains {
		total *= n
	}
	fabric := &Local{
		mailboxes: make([]*mailbox, total),
		infos:     make([]topology.Info, total),
	}
	conns := make([]Conn, total)
	for r := 0; r < total; r++ {
		fabric.mailboxes[r] = newMailbox()
		info, err := topology.New(nSubdomains, r)
		if err != nil {
			return nil, fmt.Errorf("transport: %w", err)
		}
		fabric.infos[r] = info
	}
	for r := 0; r < total; r++ {
		conns[r] = &localConn{fabric: fabric, rank: r}
	}
	return conns, nil
}

type localConn struct {
	fabric *Local
	rank   int
}

func (c *localConn) Rank() int                 { return c.rank }
func (c *localConn) Topology() topology.Info   { return c.fabric.infos[c.rank] }

func (c *localConn) ISend(dst, tag int, data []byte) Request {
	buf := append([]byte(nil), data...)
	done := make(chan error, 1)
	go func() {
		c.fabric.mailboxes[dst].deliver(envelope{src: c.rank, tag: tag, data: buf})
		done <- nil
	}()
	return &localRequest{done: done, tag: tag}
}

func (c *localConn) IRecv(src, tag int, buf []byte) Request {
	req := &localRequest{done: make(chan error, 1), tag: tag}
	go func() {
		e := c.fabric.mailboxes[c.rank].take(func(e envelope) bool {
			return e.src == src && e.tag == tag
		})
		req.done <- copyInto(buf, e.data)
	}()
	return req
}

func (c *localConn) IRecvAny(buf []byte) Request {
	req := &localRequest{done: make(chan error, 1)}
	go func() {
		e := c.fabric.mailboxes[c.rank].take(func(envelope) bool { return true })
		req.tag = e.tag
		req.done <- copyInto(buf, e.data)
	}()
	return req
}

func copyInto(dst, src []byte) error {
	if len(src) > len(dst) {
		return ErrBufferTooSmall
	}
	copy(dst, src)
	return nil
}

type localRequest struct {
	done chan error
	tag  int
}

func (r *localRequest) Wait() error { return <-r.done }
func (r *localRequest) Tag() int    { return r.tag }
