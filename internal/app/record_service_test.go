package app_test

import (
	"context"
	"errors"
	"testing"

	"earnlog/internal/app"
	"earnlog/internal/domain"

	"github.com/shopspring/decimal"
)

type stubSessions struct {
	identity domain.Identity
	err      error
}

func (s *stubSessions) Current() (domain.Identity, error) {
	return s.identity, s.err
}

func scenarioRegistry() *domain.Registry {
	return domain.NewRegistry([]domain.BranchConfig{
		{ID: "Alpha", Wage: decimal.NewFromInt(700)},
		{ID: "Beta", Wage: decimal.NewFromInt(800)},
	})
}

func newRecordService(store domain.RecordStore) *app.RecordService {
	return app.NewRecordService(scenarioRegistry(), store, &stubSessions{identity: "u1"}, testLogger())
}

func TestCreateValidation(t *testing.T) {
	called := false
	store := &mockStore{
		createFn: func(context.Context, domain.Identity, domain.RecordFields) (string, error) {
			called = true
			return "", nil
		},
	}
	svc := newRecordService(store)

	tests := []struct {
		name    string
		branch  string
		date    string
		sales   string
		wantErr error
	}{
		{"negative sales", "Alpha", "2024-01-01", "-1", app.ErrInvalidSales},
		{"unknown branch", "Gamma", "2024-01-01", "100", domain.ErrUnknownBranch},
		{"bad date", "Alpha", "01/02/2024", "100", app.ErrInvalidDate},
		{"empty date", "Alpha", "", "100", app.ErrInvalidDate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.branch, tc.date, decimal.RequireFromString(tc.sales))
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v; want %v", err, tc.wantErr)
			}
		})
	}
	if called {
		t.Error("store must not be called when validation fails")
	}
}

func TestCreateDerivesWageAndCommission(t *testing.T) {
	var got domain.RecordFields
	store := &mockStore{
		createFn: func(_ context.Context, identity domain.Identity, fields domain.RecordFields) (string, error) {
			if identity != "u1" {
				t.Errorf("identity = %s; want u1", identity)
			}
			got = fields
			return "rec-1", nil
		},
	}
	svc := newRecordService(store)

	id, err := svc.Create(context.Background(), "Alpha", "2024-01-01", decimal.NewFromInt(9000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "rec-1" {
		t.Errorf("id = %s; want rec-1", id)
	}
	if got.Branch != "Alpha" || got.Date != "2024-01-01" {
		t.Errorf("fields = %+v", got)
	}
	if !got.Wage.Equal(decimal.NewFromInt(700)) {
		t.Errorf("wage = %s; want 700", got.Wage)
	}
	if !got.Commission.Equal(decimal.NewFromInt(270)) {
		t.Errorf("commission = %s; want 270", got.Commission)
	}
	if !got.Sales.Equal(decimal.NewFromInt(9000)) {
		t.Errorf("sales = %s; want 9000", got.Sales)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("updatedAt must be assigned at save time")
	}
}

func TestCreateWithoutSession(t *testing.T) {
	svc := app.NewRecordService(scenarioRegistry(), &mockStore{}, &stubSessions{err: app.ErrNoActiveSession}, testLogger())
	_, err := svc.Create(context.Background(), "Alpha", "2024-01-01", decimal.NewFromInt(100))
	if !errors.Is(err, app.ErrNoActiveSession) {
		t.Errorf("err = %v; want ErrNoActiveSession", err)
	}
}

func TestCreateStoreFailure(t *testing.T) {
	store := &mockStore{
		createFn: func(context.Context, domain.Identity, domain.RecordFields) (string, error) {
			return "", errors.New("network down")
		},
	}
	svc := newRecordService(store)
	_, err := svc.Create(context.Background(), "Alpha", "2024-01-01", decimal.NewFromInt(100))
	if !errors.Is(err, app.ErrStoreUnavailable) {
		t.Errorf("err = %v; want ErrStoreUnavailable", err)
	}
}

func TestUpdateIsIdempotentOverwrite(t *testing.T) {
	var captured []domain.RecordFields
	store := &mockStore{
		updateFn: func(_ context.Context, _ domain.Identity, id string, fields domain.RecordFields) error {
			if id != "rec-1" {
				t.Errorf("id = %s; want rec-1", id)
			}
			captured = append(captured, fields)
			return nil
		},
	}
	svc := newRecordService(store)

	for i := 0; i < 2; i++ {
		if err := svc.Update(context.Background(), "rec-1", "Beta", "2024-01-02", decimal.NewFromInt(6500)); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	if len(captured) != 2 {
		t.Fatalf("store saw %d updates; want 2", len(captured))
	}

	a, b := captured[0], captured[1]
	if a.Branch != b.Branch || a.Date != b.Date || !a.Sales.Equal(b.Sales) ||
		!a.Wage.Equal(b.Wage) || !a.Commission.Equal(b.Commission) {
		t.Errorf("stored fields differ between identical updates: %+v vs %+v", a, b)
	}
	if !a.Wage.Equal(decimal.NewFromInt(800)) {
		t.Errorf("wage = %s; want 800", a.Wage)
	}
	if !a.Commission.Equal(decimal.RequireFromString("97.5")) {
		t.Errorf("commission = %s; want 97.5", a.Commission)
	}
}

func TestUpdateStoreFailure(t *testing.T) {
	store := &mockStore{
		updateFn: func(context.Context, domain.Identity, string, domain.RecordFields) error {
			return errors.New("no such record")
		},
	}
	svc := newRecordService(store)
	err := svc.Update(context.Background(), "ghost", "Alpha", "2024-01-01", decimal.NewFromInt(100))
	if !errors.Is(err, app.ErrStoreUnavailable) {
		t.Errorf("err = %v; want ErrStoreUnavailable", err)
	}
}

func TestDelete(t *testing.T) {
	var deleted string
	store := &mockStore{
		deleteFn: func(_ context.Context, _ domain.Identity, id string) error {
			deleted = id
			return nil
		},
	}
	svc := newRecordService(store)
	if err := svc.Delete(context.Background(), "rec-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "rec-1" {
		t.Errorf("deleted = %s; want rec-1", deleted)
	}
}

func TestDeleteStoreFailure(t *testing.T) {
	store := &mockStore{
		deleteFn: func(context.Context, domain.Identity, string) error {
			return errors.New("permission denied")
		},
	}
	svc := newRecordService(store)
	if err := svc.Delete(context.Background(), "rec-1"); !errors.Is(err, app.ErrStoreUnavailable) {
		t.Errorf("err = %v; want ErrStoreUnavailable", err)
	}
}

func TestEditingContract(t *testing.T) {
	svc := newRecordService(&mockStore{})

	rec := domain.Record{
		ID: "rec-1",
		RecordFields: domain.RecordFields{
			Branch: "Alpha",
			Date:   "2024-01-01",
			Sales:  decimal.NewFromInt(9000),
		},
	}

	edit := svc.BeginEdit(rec)
	if edit.RecordID != "rec-1" || edit.Branch != "Alpha" || edit.Date != "2024-01-01" || !edit.Sales.Equal(decimal.NewFromInt(9000)) {
		t.Errorf("edit = %+v; want the record's current inputs", edit)
	}
	if got, ok := svc.CurrentEdit(); !ok || got != edit {
		t.Errorf("CurrentEdit = %+v, %v; want %+v, true", got, ok, edit)
	}

	svc.CancelEdit()
	if _, ok := svc.CurrentEdit(); ok {
		t.Error("CancelEdit should discard the pending edit")
	}

	// a successful update of the edited record clears the edit
	svc.BeginEdit(rec)
	if err := svc.Update(context.Background(), "rec-1", "Beta", "2024-01-02", decimal.NewFromInt(6500)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, ok := svc.CurrentEdit(); ok {
		t.Error("update of the edited record should clear the edit")
	}
}
