// Package memory keeps every aggregate in process. A unit of work stages its
// writes and applies them on Commit; writers on one property are serialized
// by a per-property lock held until the unit ends.
package memory

import (
	"context"
	"sync"

	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/tasks"
)

// Store is the committed state shared by all units.
type Store struct {
	mu          sync.RWMutex
	properties  map[property.ID]*property.Property
	bookings    map[booking.ID]*booking.Booking
	cleaning    map[tasks.ID]*tasks.Task
	maintenance map[tasks.ID]*tasks.Task
	outbox      *OutboxStore

	locksMu sync.Mutex
	locks   map[property.ID]chan struct{}
}

func NewStore() *Store {
	return &Store{
		properties:  make(map[property.ID]*property.Property),
		bookings:    make(map[booking.ID]*booking.Booking),
		cleaning:    make(map[tasks.ID]*tasks.Task),
		maintenance: make(map[tasks.ID]*tasks.Task),
		outbox:      NewOutboxStore(),
		locks:       make(map[property.ID]chan struct{}),
	}
}

// Outbox exposes the relayed event log for the outbox worker.
func (s *Store) Outbox() *OutboxStore {
	return s.outbox
}

func (s *Store) lockFor(id property.ID) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	return ch
}

func (s *Store) acquire(ctx context.Context, id property.ID) error {
	ch := s.lockFor(id)
	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release(id property.ID) {
	<-s.lockFor(id)
}

// schema tells a staged table how to treat one aggregate type.
type schema[K comparable, V any] struct {
	key      func(V) K
	owner    func(V) property.ID
	version  func(V) int64
	setVer   func(V, int64)
	clone    func(V) V
	notFound error
	conflict error
}

var (
	propertySchema = schema[property.ID, *property.Property]{
		key:      func(p *property.Property) property.ID { return p.ID },
		owner:    func(p *property.Property) property.ID { return p.ID },
		version:  func(p *property.Property) int64 { return p.Version },
		setVer:   func(p *property.Property, v int64) { p.Version = v },
		clone:    (*property.Property).Clone,
		notFound: property.ErrNotFound,
		conflict: property.ErrConcurrentUpdate,
	}
	bookingSchema = schema[booking.ID, *booking.Booking]{
		key:      func(b *booking.Booking) booking.ID { return b.ID },
		owner:    func(b *booking.Booking) property.ID { return b.PropertyID },
		version:  func(b *booking.Booking) int64 { return b.Version },
		setVer:   func(b *booking.Booking, v int64) { b.Version = v },
		clone:    (*booking.Booking).Clone,
		notFound: booking.ErrNotFound,
		conflict: booking.ErrConcurrentUpdate,
	}
	taskSchema = schema[tasks.ID, *tasks.Task]{
		key:      func(t *tasks.Task) tasks.ID { return t.ID },
		owner:    func(t *tasks.Task) property.ID { return t.PropertyID },
		version:  func(t *tasks.Task) int64 { return t.Version },
		setVer:   func(t *tasks.Task, v int64) { t.Version = v },
		clone:    (*tasks.Task).Clone,
		notFound: tasks.ErrNotFound,
		conflict: tasks.ErrConcurrentUpdate,
	}
)

// staged overlays uncommitted writes on a committed map. Reads inside the
// unit see its own writes.
type staged[K comparable, V any] struct {
	mu      *sync.RWMutex
	rows    map[K]V
	schema  schema[K, V]
	writes  map[K]V
	deletes map[K]struct{}
	base    map[K]int64
}

func newStaged[K comparable, V any](mu *sync.RWMutex, rows map[K]V, sc schema[K, V]) *staged[K, V] {
	return &staged[K, V]{
		mu:      mu,
		rows:    rows,
		schema:  sc,
		writes:  make(map[K]V),
		deletes: make(map[K]struct{}),
		base:    make(map[K]int64),
	}
}

func (t *staged[K, V]) current(id K) (V, bool) {
	var zero V
	if _, gone := t.deletes[id]; gone {
		return zero, false
	}
	if v, ok := t.writes[id]; ok {
		return v, true
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.rows[id]
	return v, ok
}

func (t *staged[K, V]) get(ctx context.Context, id K) (V, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	v, ok := t.current(id)
	if !ok {
		return zero, t.schema.notFound
	}
	return t.schema.clone(v), nil
}

// list returns clones of every row owned by owner, or of every row when
// owner is empty.
func (t *staged[K, V]) list(ctx context.Context, owner property.ID) ([]V, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[K]struct{})
	var out []V
	keep := func(id K, v V) {
		if owner != "" && t.schema.owner(v) != owner {
			return
		}
		seen[id] = struct{}{}
		out = append(out, t.schema.clone(v))
	}
	for id, v := range t.writes {
		keep(id, v)
	}
	t.mu.RLock()
	for id, v := range t.rows {
		if _, ok := seen[id]; ok {
			continue
		}
		if _, gone := t.deletes[id]; gone {
			continue
		}
		keep(id, v)
	}
	t.mu.RUnlock()
	return out, nil
}

func (t *staged[K, V]) save(ctx context.Context, v V) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := t.schema.key(v)
	var stored int64
	if cur, ok := t.current(id); ok {
		stored = t.schema.version(cur)
	}
	if t.schema.version(v) != stored {
		return t.schema.conflict
	}
	if _, ok := t.base[id]; !ok {
		t.base[id] = stored
	}
	t.schema.setVer(v, stored+1)
	t.writes[id] = t.schema.clone(v)
	delete(t.deletes, id)
	return nil
}

func (t *staged[K, V]) remove(ctx context.Context, id K) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.current(id); !ok {
		return t.schema.notFound
	}
	delete(t.writes, id)
	t.deletes[id] = struct{}{}
	return nil
}

func (t *staged[K, V]) removeOwned(ctx context.Context, owner property.ID) error {
	rows, err := t.list(ctx, owner)
	if err != nil {
		return err
	}
	for _, v := range rows {
		id := t.schema.key(v)
		delete(t.writes, id)
		t.deletes[id] = struct{}{}
	}
	return nil
}

// verify rejects the commit when another unit changed a row this unit wrote.
// Called with the store write lock held.
func (t *staged[K, V]) verify() error {
	for id, base := range t.base {
		var committed int64
		if v, ok := t.rows[id]; ok {
			committed = t.schema.version(v)
		}
		if committed != base {
			return t.schema.conflict
		}
	}
	return nil
}

// apply publishes the staged writes. Called with the store write lock held.
func (t *staged[K, V]) apply() {
	for id := range t.deletes {
		delete(t.rows, id)
	}
	for id, v := range t.writes {
		t.rows[id] = v
	}
}
