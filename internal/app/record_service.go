package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"earnlog/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidSales indicates a negative sales amount.
	ErrInvalidSales = errors.New("sales amount must not be negative")
	// ErrInvalidDate indicates a date not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("date must be a calendar date (YYYY-MM-DD)")
	// ErrStoreUnavailable indicates a transport or permission failure on a
	// store mutation.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// identitySource yields the identity that scopes record mutations.
type identitySource interface {
	Current() (domain.Identity, error)
}

// Edit is the pending editing state surfaced by BeginEdit: the record's
// current inputs, ready to feed the next Update call.
type Edit struct {
	RecordID string          `json:"recordId"`
	Branch   string          `json:"branch"`
	Date     string          `json:"date"`
	Sales    decimal.Decimal `json:"sales"`
}

// RecordService translates user intents into remote mutations. It never
// touches the local projection; mutations become visible only through the
// next snapshot the store delivers.
type RecordService struct {
	registry *domain.Registry
	store    domain.RecordStore
	sessions identitySource
	log      *logrus.Logger

	mu      sync.Mutex
	editing *Edit
}

// NewRecordService creates a RecordService over the given registry, store
// and session source.
func NewRecordService(registry *domain.Registry, store domain.RecordStore, sessions identitySource, log *logrus.Logger) *RecordService {
	return &RecordService{registry: registry, store: store, sessions: sessions, log: log}
}

// Create validates the inputs, derives wage and commission, and issues a
// create mutation. Nothing is written on validation failure.
func (s *RecordService) Create(ctx context.Context, branchID, date string, sales decimal.Decimal) (string, error) {
	fields, err := s.buildFields(branchID, date, sales)
	if err != nil {
		return "", err
	}
	identity, err := s.sessions.Current()
	if err != nil {
		return "", err
	}

	id, err := s.store.CreateRecord(ctx, identity, fields)
	if err != nil {
		s.log.WithError(err).Error("create mutation failed")
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return id, nil
}

// Update overwrites every stored field of a record from the given inputs.
// Wage and commission are recomputed from the current branch table and
// sales amount; nothing from the prior version is preserved.
func (s *RecordService) Update(ctx context.Context, recordID, branchID, date string, sales decimal.Decimal) error {
	fields, err := s.buildFields(branchID, date, sales)
	if err != nil {
		return err
	}
	identity, err := s.sessions.Current()
	if err != nil {
		return err
	}

	if err := s.store.UpdateRecord(ctx, identity, recordID, fields); err != nil {
		s.log.WithError(err).WithField("record", recordID).Error("update mutation failed")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	if s.editing != nil && s.editing.RecordID == recordID {
		s.editing = nil
	}
	s.mu.Unlock()
	return nil
}

// Delete issues a delete mutation. Deleting an id the store does not know
// is a no-op.
func (s *RecordService) Delete(ctx context.Context, recordID string) error {
	identity, err := s.sessions.Current()
	if err != nil {
		return err
	}
	if err := s.store.DeleteRecord(ctx, identity, recordID); err != nil {
		s.log.WithError(err).WithField("record", recordID).Error("delete mutation failed")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// BeginEdit surfaces a record's current inputs as the pending edit.
func (s *RecordService) BeginEdit(rec domain.Record) Edit {
	edit := Edit{RecordID: rec.ID, Branch: rec.Branch, Date: rec.Date, Sales: rec.Sales}
	s.mu.Lock()
	s.editing = &edit
	s.mu.Unlock()
	return edit
}

// CancelEdit discards the pending edit without touching the store.
func (s *RecordService) CancelEdit() {
	s.mu.Lock()
	s.editing = nil
	s.mu.Unlock()
}

// CurrentEdit returns the pending edit, if any.
func (s *RecordService) CurrentEdit() (Edit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing == nil {
		return Edit{}, false
	}
	return *s.editing, true
}

func (s *RecordService) buildFields(branchID, date string, sales decimal.Decimal) (domain.RecordFields, error) {
	if sales.Sign() < 0 {
		return domain.RecordFields{}, ErrInvalidSales
	}
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return domain.RecordFields{}, ErrInvalidDate
	}
	wage, err := s.registry.WageFor(branchID)
	if err != nil {
		return domain.RecordFields{}, err
	}
	return domain.RecordFields{
		Branch:     branchID,
		Date:       date,
		Sales:      sales,
		Wage:       wage,
		Commission: domain.Commission(sales),
		UpdatedAt:  time.Now().UTC(),
	}, nil
}
