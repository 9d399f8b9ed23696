package staged

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/goliatone/go-staged/diff"
	"github.com/goliatone/go-staged/model"
	"github.com/goliatone/go-staged/path"
	"github.com/goliatone/go-staged/pkg/activity"
)

// Cursor is bound to one address of one tree. Cursors are cheap values and
// hold no state of their own; every read goes to the live tree.
type Cursor struct {
	session *Session
	store   StoreID
	addr    path.Address
}

// Cursor binds to addr in store. A nil addr is the root.
func (s *Session) Cursor(store StoreID, addr path.Address) *Cursor {
	return &Cursor{session: s, store: store, addr: path.New(addr...)}
}

// CursorAt is Cursor with the address in canonical string form.
func (s *Session) CursorAt(store StoreID, addr string) (*Cursor, error) {
	parsed, err := path.Parse(addr)
	if err != nil {
		return nil, err
	}
	return s.Cursor(store, parsed), nil
}

// Use returns the current value at addr together with its cursor.
func (s *Session) Use(store StoreID, addr path.Address) (any, *Cursor, error) {
	cur := s.Cursor(store, addr)
	value, err := cur.Get()
	return value, cur, err
}

func (c *Cursor) Store() StoreID { return c.store }

func (c *Cursor) Address() path.Address { return path.New(c.addr...) }

// At returns a cursor on a descendant of c's address in the same tree.
func (c *Cursor) At(segments ...path.Segment) *Cursor {
	return &Cursor{session: c.session, store: c.store, addr: c.addr.With(segments...)}
}

// Get returns a copy of the value at the cursor's address.
func (c *Cursor) Get() (any, error) {
	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, c.fail("read", ErrNotLoaded)
	}
	tree, err := s.tree(c.store)
	if err != nil {
		return nil, c.fail("read", err)
	}
	value, err := path.Resolve(tree, c.addr)
	if err != nil {
		return nil, c.fail("read", err)
	}
	return model.Clone(value), nil
}

// Subscribe registers fn for writes overlapping the cursor's address.
func (c *Cursor) Subscribe(fn Listener) func() {
	return c.session.Subscribe(c.store, c.addr, fn)
}

// Swap replaces the value at the cursor's address with updater(old). old is
// a copy the updater may modify. Only the staged tree accepts writes. The
// updater runs under the session lock and must not call back into the
// session.
func (c *Cursor) Swap(ctx context.Context, updater func(old any) any) error {
	if updater == nil {
		return c.fail("swap", fmt.Errorf("nil updater"))
	}
	return c.write(ctx, "swap", activity.BuildStagedSwappedEvent, func(old any) (any, error) {
		return updater(old), nil
	})
}

// Reset is Swap with an updater that ignores the old value.
func (c *Cursor) Reset(ctx context.Context, value any) error {
	return c.write(ctx, "reset", activity.BuildStagedResetEvent, func(any) (any, error) {
		return value, nil
	})
}

// ResetJSON decodes raw into the type currently held at the cursor's address
// and resets to the result.
func (c *Cursor) ResetJSON(ctx context.Context, raw []byte) error {
	current, err := c.Get()
	if err != nil {
		return err
	}
	typ := reflect.TypeOf(current)
	if typ == nil {
		return c.fail("reset", fmt.Errorf("%w: cannot infer type at %s", ErrType, label(c.addr)))
	}
	target := reflect.New(typ)
	if err := json.Unmarshal(raw, target.Interface()); err != nil {
		return c.fail("reset", fmt.Errorf("decode %s: %w", typ, err))
	}
	return c.Reset(ctx, target.Elem().Interface())
}

func (c *Cursor) write(ctx context.Context, op string, build func(activity.EditInput) activity.Event, fn func(any) (any, error)) error {
	s := c.session
	result, err := c.apply(ctx, fn)
	if err != nil {
		return c.fail(op, err)
	}

	s.notify(StoreStaged, c.addr)
	s.notify(StoreDiff, path.Root)
	s.emit(ctx, build(s.editInput(c.addr, result)))
	return nil
}

// apply runs the locked phase of a write and returns a copy of the new diff.
// A panicking updater fails the write and leaves the trees untouched.
func (c *Cursor) apply(ctx context.Context, fn func(any) (any, error)) (diff.Result, error) {
	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return diff.Result{}, ErrNotLoaded
	}
	if _, err := s.tree(c.store); err != nil {
		return diff.Result{}, err
	}
	if c.store != StoreStaged {
		return diff.Result{}, ErrReadOnly
	}

	current, err := path.Resolve(s.staged, c.addr)
	if err != nil {
		return diff.Result{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	next, err := update(fn, model.Clone(current))
	if err != nil {
		return diff.Result{}, err
	}
	updated, err := path.Assign(s.staged, c.addr, next)
	if err != nil {
		return diff.Result{}, err
	}
	tree, ok := updated.(model.DataState)
	if !ok {
		return diff.Result{}, fmt.Errorf("%w: root replaced with %T", ErrInvalidAddress, updated)
	}
	if tree.Features == nil {
		tree.Features = []model.Feature{}
	}

	s.staged = tree
	s.stats.Swaps++
	s.persist(ctx)
	s.diff = diff.Compute(s.committed, s.staged)
	return model.Clone(s.diff), nil
}

func update(fn func(any) (any, error), old any) (next any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUpdaterPanic, r)
		}
	}()
	return fn(old)
}

func (c *Cursor) fail(op string, err error) error {
	return &CursorError{Op: op, Store: c.store, Address: path.New(c.addr...), Err: err}
}

// Read returns the value at c's address as a V.
func Read[V any](c *Cursor) (V, error) {
	var zero V
	value, err := c.Get()
	if err != nil {
		return zero, err
	}
	typed, ok := value.(V)
	if !ok {
		return zero, c.fail("read", typeError[V](value))
	}
	return typed, nil
}

// SwapAs is Swap for callers that know the node's type.
func SwapAs[V any](ctx context.Context, c *Cursor, updater func(old V) V) error {
	return c.write(ctx, "swap", activity.BuildStagedSwappedEvent, func(old any) (any, error) {
		typed, ok := old.(V)
		if !ok {
			return nil, typeError[V](old)
		}
		return updater(typed), nil
	})
}

func typeError[V any](got any) error {
	return fmt.Errorf("%w: have %T, want %s", ErrType, got, reflect.TypeFor[V]())
}
