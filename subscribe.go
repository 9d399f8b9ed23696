package staged

import (
	"slices"
	"sync"

	"github.com/goliatone/go-staged/path"
)

// Change describes a write a listener is being told about.
type Change struct {
	Store StoreID
	// Address is where the write happened, which may be an ancestor or a
	// descendant of the listener's own address.
	Address path.Address
}

// Listener is called synchronously after a write lands and before the call
// that caused it returns. Listeners may read from the session but must not
// block.
type Listener func(Change)

type subscription struct {
	store StoreID
	addr  path.Address
	fn    Listener
}

type registry struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]subscription
}

func (r *registry) add(store StoreID, addr path.Address, fn Listener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs == nil {
		r.subs = map[uint64]subscription{}
	}
	r.next++
	id := r.next
	r.subs[id] = subscription{store: store, addr: path.New(addr...), fn: fn}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// matching returns the listeners on store whose address overlaps written,
// in subscription order.
func (r *registry) matching(store StoreID, written path.Address) []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uint64, 0, len(r.subs))
	for id, sub := range r.subs {
		if sub.store == store && sub.addr.Overlaps(written) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = r.subs[id].fn
	}
	return out
}

// Subscribe registers fn for writes overlapping addr in store. The returned
// function cancels the subscription and is safe to call more than once.
func (s *Session) Subscribe(store StoreID, addr path.Address, fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	return s.subs.add(store, addr, fn)
}

func (s *Session) notify(store StoreID, written path.Address) {
	listeners := s.subs.matching(store, written)
	if len(listeners) == 0 {
		return
	}
	s.mu.Lock()
	s.stats.Notifications += len(listeners)
	s.mu.Unlock()

	change := Change{Store: store, Address: path.New(written...)}
	for _, fn := range listeners {
		fn(change)
	}
}
