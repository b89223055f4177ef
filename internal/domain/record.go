package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format records carry on the wire.
const DateLayout = "2006-01-02"

// RecordFields are the persisted fields of a daily earnings record. The
// store rounds these names exactly; the record id travels separately.
//
// Wage and commission are derived-and-stored: they are computed from the
// branch table and the sales amount at save time and are never recomputed
// on read, so later branch configuration changes do not rewrite history.
type RecordFields struct {
	Branch     string          `json:"branch"`
	Date       string          `json:"date"`
	Sales      decimal.Decimal `json:"sales"`
	Wage       decimal.Decimal `json:"wage"`
	Commission decimal.Decimal `json:"commission"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Record is a daily earnings record as delivered by the remote store.
type Record struct {
	ID string `json:"id"`
	RecordFields
}

// SnapshotFunc receives the full current record set on every remote change.
type SnapshotFunc func(records []Record)

// ErrorFunc receives transport or permission errors from a subscription.
type ErrorFunc func(err error)

// Subscription is a live change subscription against the remote store.
type Subscription interface {
	// Unsubscribe releases the subscription. It is safe to call more
	// than once.
	Unsubscribe() error
}

// RecordStore is the port for the remote per-identity record store. The
// store owns the records; local state is a projection rebuilt from the
// snapshots it delivers. Writes are last-writer-wins at the record level.
type RecordStore interface {
	// Subscribe opens a change subscription scoped to one identity.
	// onSnapshot is invoked with the complete current set, first shortly
	// after subscribing and again after every change. onError is invoked
	// on transport failure, after which no further snapshots arrive.
	Subscribe(ctx context.Context, identity Identity, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error)

	// CreateRecord persists a new record and returns its store-assigned id.
	CreateRecord(ctx context.Context, identity Identity, fields RecordFields) (string, error)

	// UpdateRecord overwrites all fields of an existing record.
	UpdateRecord(ctx context.Context, identity Identity, id string, fields RecordFields) error

	// DeleteRecord removes a record. Deleting an id that does not exist
	// is a no-op.
	DeleteRecord(ctx context.Context, identity Identity, id string) error
}
