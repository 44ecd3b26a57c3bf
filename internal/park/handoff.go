package park

import "sync"

// Handoff transfers ownership of values across a boundary that can only carry
// an integer, such as the context argument of a kernel callback. Give stores a
// value under a fresh key; exactly one Take for that key gets it back.
//
// The zero value is ready to use.
type Handoff[T any] struct {
	mu    sync.Mutex
	next  uintptr
	slots map[uintptr]T
}

// Give stores v and returns its key. Keys are never zero.
func (h *Handoff[T]) Give(v T) uintptr {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.slots == nil {
		h.slots = make(map[uintptr]T)
	}
	h.next++
	if h.next == 0 {
		h.next++
	}
	h.slots[h.next] = v
	return h.next
}

// Take removes the value stored under key. The second result is false if the
// key is unknown or was already taken.
func (h *Handoff[T]) Take(key uintptr) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	v, ok := h.slots[key]
	if ok {
		delete(h.slots, key)
	}
	return v, ok
}

// Len reports how many values are still waiting to be taken.
func (h *Handoff[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.slots)
}
