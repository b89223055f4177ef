// Package postgres implements the record store on PostgreSQL. Change
// subscriptions ride on LISTEN/NOTIFY: a trigger on the records table
// notifies with the owning identity, and the subscription re-reads the
// full scoped set on every notification.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"earnlog/internal/domain"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const notifyChannel = "record_changes"

// Store implements domain.RecordStore on PostgreSQL.
type Store struct {
	sql     *sql.DB
	connStr string
	log     *logrus.Logger
}

var _ domain.RecordStore = (*Store)(nil)

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string, log *logrus.Logger) (*Store, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	st := &Store{sql: s, connStr: connStr, log: log}
	if err := st.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return st, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.sql.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			identity TEXT NOT NULL,
			branch TEXT NOT NULL,
			date DATE NOT NULL,
			sales NUMERIC(20,4) NOT NULL CHECK (sales >= 0),
			wage NUMERIC(20,4) NOT NULL,
			commission NUMERIC(20,4) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_identity ON records(identity);`,
		`CREATE OR REPLACE FUNCTION notify_record_change() RETURNS TRIGGER AS $$
		BEGIN
			PERFORM pg_notify('` + notifyChannel + `', COALESCE(NEW.identity, OLD.identity));
			RETURN NULL;
		END;
		$$ LANGUAGE plpgsql;`,
		`DROP TRIGGER IF EXISTS records_notify ON records;`,
		`CREATE TRIGGER records_notify
			AFTER INSERT OR UPDATE OR DELETE ON records
			FOR EACH ROW EXECUTE FUNCTION notify_record_change();`,
	}

	for _, stmt := range stmts {
		if _, err := s.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// CreateRecord inserts a new record and returns the generated id.
func (s *Store) CreateRecord(ctx context.Context, identity domain.Identity, fields domain.RecordFields) (string, error) {
	var id string
	err := s.sql.QueryRowContext(ctx,
		`INSERT INTO records(identity, branch, date, sales, wage, commission, updated_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7) RETURNING id;`,
		string(identity), fields.Branch, fields.Date, fields.Sales, fields.Wage, fields.Commission, fields.UpdatedAt.UTC(),
	).Scan(&id)
	return id, err
}

// UpdateRecord overwrites all fields of a record, scoped to an identity.
func (s *Store) UpdateRecord(ctx context.Context, identity domain.Identity, id string, fields domain.RecordFields) error {
	res, err := s.sql.ExecContext(ctx,
		`UPDATE records SET branch=$1, date=$2, sales=$3, wage=$4, commission=$5, updated_at=$6
		 WHERE id=$7 AND identity=$8;`,
		fields.Branch, fields.Date, fields.Sales, fields.Wage, fields.Commission, fields.UpdatedAt.UTC(),
		id, string(identity),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteRecord removes a record by id, scoped to an identity. Deleting an
// unknown id is a no-op.
func (s *Store) DeleteRecord(ctx context.Context, identity domain.Identity, id string) error {
	_, err := s.sql.ExecContext(ctx, `DELETE FROM records WHERE id=$1 AND identity=$2;`, id, string(identity))
	return err
}

type subscription struct {
	listener *pq.Listener
	done     chan struct{}
	once     sync.Once
}

// Unsubscribe tears down the LISTEN connection and stops delivery.
func (s *subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.listener.Close()
	})
	return err
}

// Subscribe opens a LISTEN connection for one identity and delivers the
// complete scoped record set on every change. The initial snapshot is
// delivered asynchronously right after subscribing.
func (s *Store) Subscribe(ctx context.Context, identity domain.Identity, onSnapshot domain.SnapshotFunc, onError domain.ErrorFunc) (domain.Subscription, error) {
	problems := make(chan error, 1)
	listener := pq.NewListener(s.connStr, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err == nil {
				return
			}
			select {
			case problems <- err:
			default:
			}
		})

	if err := listener.Listen(notifyChannel); err != nil {
		_ = listener.Close()
		return nil, err
	}

	sub := &subscription{listener: listener, done: make(chan struct{})}
	go s.pump(ctx, identity, sub, onSnapshot, onError, problems)
	return sub, nil
}

func (s *Store) pump(ctx context.Context, identity domain.Identity, sub *subscription, onSnapshot domain.SnapshotFunc, onError domain.ErrorFunc, problems chan error) {
	deliver := func() bool {
		records, err := s.fetch(ctx, identity)
		if err != nil {
			s.log.WithError(err).Error("snapshot query failed")
			onError(err)
			_ = sub.Unsubscribe()
			return false
		}
		onSnapshot(records)
		return true
	}

	if !deliver() {
		return
	}

	for {
		select {
		case <-sub.done:
			return
		case <-ctx.Done():
			_ = sub.Unsubscribe()
			return
		case err := <-problems:
			onError(err)
			_ = sub.Unsubscribe()
			return
		case n, ok := <-sub.listener.Notify:
			if !ok {
				return
			}
			// A nil notification means the connection was re-established;
			// re-read in case changes were missed in between.
			if n != nil && n.Extra != string(identity) {
				continue
			}
			if !deliver() {
				return
			}
		}
	}
}

func (s *Store) fetch(ctx context.Context, identity domain.Identity) ([]domain.Record, error) {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT id, branch, to_char(date, 'YYYY-MM-DD'), sales, wage, commission, updated_at
		 FROM records WHERE identity=$1;`, string(identity))
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Record
	for rows.Next() {
		var r domain.Record
		if err := rows.Scan(&r.ID, &r.Branch, &r.Date, &r.Sales, &r.Wage, &r.Commission, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
