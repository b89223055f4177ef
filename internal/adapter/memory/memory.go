// Package memory implements an in-memory record store for development and
// testing. Snapshots are fanned out synchronously, so a mutation's effect
// is visible to subscribers by the time the mutating call returns.
package memory

import (
	"context"
	"errors"
	"sync"

	"earnlog/internal/domain"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned by UpdateRecord for an unknown id.
var ErrRecordNotFound = errors.New("record not found")

// Store implements an in-memory domain.RecordStore.
type Store struct {
	mu      sync.Mutex
	records map[domain.Identity]map[string]domain.RecordFields

	subs      map[int]*subscription
	nextSubID int
}

var _ domain.RecordStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records: make(map[domain.Identity]map[string]domain.RecordFields),
		subs:    make(map[int]*subscription),
	}
}

type subscription struct {
	store      *Store
	id         int
	identity   domain.Identity
	onSnapshot domain.SnapshotFunc
	closed     bool
}

// Unsubscribe stops snapshot delivery for this subscription.
func (s *subscription) Unsubscribe() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	delete(s.store.subs, s.id)
	return nil
}

// Subscribe registers a snapshot consumer for one identity. The initial
// snapshot is delivered before Subscribe returns.
func (s *Store) Subscribe(ctx context.Context, identity domain.Identity, onSnapshot domain.SnapshotFunc, onError domain.ErrorFunc) (domain.Subscription, error) {
	s.mu.Lock()
	sub := &subscription{store: s, id: s.nextSubID, identity: identity, onSnapshot: onSnapshot}
	s.nextSubID++
	s.subs[sub.id] = sub
	initial := s.snapshotLocked(identity)
	s.mu.Unlock()

	onSnapshot(initial)
	return sub, nil
}

// CreateRecord stores a new record under a fresh id and notifies
// subscribers of the identity.
func (s *Store) CreateRecord(ctx context.Context, identity domain.Identity, fields domain.RecordFields) (string, error) {
	s.mu.Lock()
	set, ok := s.records[identity]
	if !ok {
		set = make(map[string]domain.RecordFields)
		s.records[identity] = set
	}
	id := uuid.NewString()
	set[id] = fields
	s.mu.Unlock()

	s.broadcast(identity)
	return id, nil
}

// UpdateRecord replaces all fields of an existing record.
func (s *Store) UpdateRecord(ctx context.Context, identity domain.Identity, id string, fields domain.RecordFields) error {
	s.mu.Lock()
	set := s.records[identity]
	if _, ok := set[id]; !ok {
		s.mu.Unlock()
		return ErrRecordNotFound
	}
	set[id] = fields
	s.mu.Unlock()

	s.broadcast(identity)
	return nil
}

// DeleteRecord removes a record. Unknown ids are ignored.
func (s *Store) DeleteRecord(ctx context.Context, identity domain.Identity, id string) error {
	s.mu.Lock()
	set := s.records[identity]
	_, existed := set[id]
	delete(set, id)
	s.mu.Unlock()

	if existed {
		s.broadcast(identity)
	}
	return nil
}

func (s *Store) broadcast(identity domain.Identity) {
	s.mu.Lock()
	snapshot := s.snapshotLocked(identity)
	targets := make([]domain.SnapshotFunc, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.identity == identity {
			targets = append(targets, sub.onSnapshot)
		}
	}
	s.mu.Unlock()

	for _, fn := range targets {
		fn(snapshot)
	}
}

func (s *Store) snapshotLocked(identity domain.Identity) []domain.Record {
	set := s.records[identity]
	out := make([]domain.Record, 0, len(set))
	for id, fields := range set {
		out = append(out, domain.Record{ID: id, RecordFields: fields})
	}
	return out
}
