// Package sighub fans a process-wide OS signal out to every task that is
// currently interested in it.
//
// Signals such as SIGCHLD are coalesced by the kernel and carry no useful
// payload for a specific receiver: one delivery may stand for several events
// and an event may produce no distinct delivery. A Hub therefore broadcasts a
// bare wake-up to all subscribers and leaves it to each of them to find out
// whether the event concerns it.
package sighub

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"github.com/nixpare/coprocess/internal/park"
)

// ErrClosed is returned by Recv once the subscription has been closed.
var ErrClosed = errors.New("sighub: subscription closed")

// Hub owns the process-wide registration for one signal. The registration
// exists only while at least one Subscription is open: the first Subscribe
// installs it and closing the last Subscription removes it.
type Hub struct {
	sig os.Signal

	mu   sync.Mutex
	subs map[*Subscription]struct{}
	ch   chan os.Signal
	stop chan struct{}
}

// NewHub returns a Hub for sig with no active registration.
func NewHub(sig os.Signal) *Hub {
	return &Hub{
		sig:  sig,
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new receiver. Deliveries that happen after Subscribe
// returns are guaranteed to wake it.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.subs) == 0 {
		h.start()
	}

	s := &Subscription{hub: h, parker: park.New()}
	h.subs[s] = struct{}{}
	return s
}

// Subscribers reports the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Active reports whether the OS signal registration is currently installed.
func (h *Hub) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ch != nil
}

// start must be called with h.mu held.
func (h *Hub) start() {
	h.ch = make(chan os.Signal, 1)
	h.stop = make(chan struct{})
	signal.Notify(h.ch, h.sig)

	go h.dispatch(h.ch, h.stop)
}

// shutdown must be called with h.mu held. The dispatch goroutine may still
// broadcast once after this returns; a spurious wake-up is harmless.
func (h *Hub) shutdown() {
	signal.Stop(h.ch)
	close(h.stop)
	h.ch, h.stop = nil, nil
}

func (h *Hub) dispatch(ch <-chan os.Signal, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ch:
			h.broadcast()
		}
	}
}

func (h *Hub) broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		s.parker.Unpark()
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	if len(h.subs) == 0 {
		h.shutdown()
	}
}

// Subscription is one receiver of a Hub's wake-ups. It is meant to be used by
// a single waiting task; Close may be called from anywhere.
type Subscription struct {
	hub    *Hub
	parker *park.Parker
	closed atomic.Bool
}

// Recv suspends the caller until the next delivery of the signal, or until
// the subscription is closed, in which case it returns ErrClosed. A wake-up
// only says that the signal arrived at least once since the last Recv.
func (s *Subscription) Recv() error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.parker.Park(0)
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close detaches the subscription from its Hub and wakes a pending Recv.
// Closing twice is a no-op.
func (s *Subscription) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.hub.remove(s)
	s.parker.Unpark()
	return nil
}
