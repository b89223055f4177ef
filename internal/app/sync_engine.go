package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"earnlog/internal/domain"

	"github.com/sirupsen/logrus"
)

var (
	// ErrEngineStopped indicates an operation on a torn-down SyncEngine.
	ErrEngineStopped = errors.New("sync engine stopped")
	// ErrEngineActive indicates Start was called while a subscription is
	// already open; Stop first, or use a fresh engine.
	ErrEngineActive = errors.New("sync engine already started")
)

// EngineState is the lifecycle state of a SyncEngine.
type EngineState int

// Engine states. Stopped is terminal; Degraded is left only via a fresh
// Start on an engine that has not been stopped.
const (
	StateIdle EngineState = iota
	StateSubscribing
	StateLive
	StateDegraded
	StateStopped
)

func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribing:
		return "subscribing"
	case StateLive:
		return "live"
	case StateDegraded:
		return "degraded"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SyncEngine maintains a live, ordered local projection of the remote
// record set for one identity. The remote store is the single source of
// truth: every notification replaces the whole projection, sorted by date
// descending. Records sharing a date keep the order the store delivered,
// which is not guaranteed to be the same across notifications.
//
// A transport error moves the engine to Degraded with an empty projection;
// it does not retry on its own.
type SyncEngine struct {
	store domain.RecordStore
	log   *logrus.Logger

	mu         sync.Mutex
	state      EngineState
	identity   domain.Identity
	sub        domain.Subscription
	records    []domain.Record
	loading    bool
	listeners  map[int]func([]domain.Record)
	nextListen int
	errFn      func(error)
}

// NewSyncEngine creates an idle engine over the given store.
func NewSyncEngine(store domain.RecordStore, log *logrus.Logger) *SyncEngine {
	return &SyncEngine{
		store:     store,
		log:       log,
		state:     StateIdle,
		listeners: make(map[int]func([]domain.Record)),
	}
}

// OnChange registers a listener invoked with a copy of the projection after
// every rebuild. The returned func cancels the registration.
func (e *SyncEngine) OnChange(fn func([]domain.Record)) (cancel func()) {
	e.mu.Lock()
	id := e.nextListen
	e.nextListen++
	e.listeners[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// OnError registers the callback that receives subscription errors.
func (e *SyncEngine) OnError(fn func(error)) {
	e.mu.Lock()
	e.errFn = fn
	e.mu.Unlock()
}

// Start opens the change subscription for the given identity. The caller
// must hold an active session; Start does not retry on failure. Valid from
// Idle and from Degraded (a fresh start is the only way out of Degraded).
func (e *SyncEngine) Start(ctx context.Context, identity domain.Identity) error {
	if identity == "" {
		return ErrNoActiveSession
	}

	e.mu.Lock()
	switch e.state {
	case StateStopped:
		e.mu.Unlock()
		return ErrEngineStopped
	case StateSubscribing, StateLive:
		e.mu.Unlock()
		return ErrEngineActive
	}
	if e.sub != nil {
		// stale handle from the subscription that degraded
		_ = e.sub.Unsubscribe()
		e.sub = nil
	}
	e.state = StateSubscribing
	e.identity = identity
	e.loading = true
	e.records = nil
	e.mu.Unlock()

	// No lock held here: stores may deliver the first snapshot before
	// Subscribe returns.
	sub, err := e.store.Subscribe(ctx, identity, e.handleSnapshot, e.handleError)
	if err != nil {
		e.log.WithError(err).Error("subscribe failed")
		e.mu.Lock()
		if e.state != StateStopped {
			e.state = StateDegraded
			e.loading = false
		}
		e.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		_ = sub.Unsubscribe()
		return ErrEngineStopped
	}
	e.sub = sub
	e.mu.Unlock()
	return nil
}

func (e *SyncEngine) handleSnapshot(records []domain.Record) {
	e.mu.Lock()
	if e.state == StateStopped || e.state == StateIdle {
		// raced with Stop; the store is no longer ours to mirror
		e.mu.Unlock()
		return
	}

	set := make([]domain.Record, len(records))
	copy(set, records)
	sort.SliceStable(set, func(i, j int) bool {
		return set[i].Date > set[j].Date
	})

	e.records = set
	e.state = StateLive
	e.loading = false
	notify := e.snapshotLocked()
	listeners := e.listenersLocked()
	e.mu.Unlock()

	e.log.WithField("records", len(notify)).Debug("projection rebuilt")
	for _, fn := range listeners {
		fn(notify)
	}
}

func (e *SyncEngine) handleError(err error) {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return
	}
	e.state = StateDegraded
	e.records = nil
	e.loading = false
	errFn := e.errFn
	listeners := e.listenersLocked()
	e.mu.Unlock()

	e.log.WithError(err).Error("subscription degraded")
	if errFn != nil {
		errFn(err)
	}
	for _, fn := range listeners {
		fn(nil)
	}
}

// Stop releases the subscription and makes the engine permanently
// unusable. Safe to call at any time, including concurrently with an
// in-flight notification, and more than once.
func (e *SyncEngine) Stop() error {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopped
	e.loading = false
	sub := e.sub
	e.sub = nil
	e.records = nil
	e.mu.Unlock()

	if sub != nil {
		return sub.Unsubscribe()
	}
	return nil
}

// Records returns a copy of the current projection, sorted by date
// descending.
func (e *SyncEngine) Records() []domain.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// State returns the engine's lifecycle state.
func (e *SyncEngine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Loading reports whether the first snapshot is still outstanding.
func (e *SyncEngine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// Identity returns the identity the engine is scoped to, empty before the
// first Start.
func (e *SyncEngine) Identity() domain.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity
}

func (e *SyncEngine) snapshotLocked() []domain.Record {
	out := make([]domain.Record, len(e.records))
	copy(out, e.records)
	return out
}

func (e *SyncEngine) listenersLocked() []func([]domain.Record) {
	out := make([]func([]domain.Record), 0, len(e.listeners))
	for _, fn := range e.listeners {
		out = append(out, fn)
	}
	return out
}
