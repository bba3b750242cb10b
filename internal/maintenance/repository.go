package maintenance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Counter names.
const (
	CounterOpenCycles   = "open_cycles"
	CounterCloseCycles  = "close_cycles"
	CounterFailedCycles = "failed_cycles"
	CounterMotorRuntime = "motor_runtime_seconds"
	CounterDeliveries   = "deliveries"
)

// ErrCounterNotFound is returned when a counter has never been incremented.
var ErrCounterNotFound = errors.New("maintenance: counter not found")

// Counter is one wear counter.
type Counter struct {
	Name      string    `json:"name"`
	Value     int64     `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines the interface for counter persistence.
type Repository interface {
	Increment(ctx context.Context, name string, delta int64) error
	Get(ctx context.Context, name string) (*Counter, error)
	List(ctx context.Context) ([]Counter, error)
	Reset(ctx context.Context, name string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed counter repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Increment adds delta to a counter, creating it at zero first if needed.
func (r *SQLiteRepository) Increment(ctx context.Context, name string, delta int64) error {
	const query = `INSERT INTO counters (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value = value + excluded.value,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query, name, delta, r.timestamp())
	if err != nil {
		return fmt.Errorf("incrementing counter %s: %w", name, err)
	}
	return nil
}

// Get returns a single counter.
func (r *SQLiteRepository) Get(ctx context.Context, name string) (*Counter, error) {
	const query = `SELECT name, value, updated_at FROM counters WHERE name = ?`
	c, err := scanCounter(r.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCounterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting counter %s: %w", name, err)
	}
	return c, nil
}

// List returns all counters ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Counter, error) {
	const query = `SELECT name, value, updated_at FROM counters ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing counters: %w", err)
	}
	defer rows.Close()

	var counters []Counter
	for rows.Next() {
		c, err := scanCounter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning counter: %w", err)
		}
		counters = append(counters, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating counters: %w", err)
	}
	return counters, nil
}

// Reset sets a counter back to zero, for example after a drive is replaced.
func (r *SQLiteRepository) Reset(ctx context.Context, name string) error {
	const query = `UPDATE counters SET value = 0, updated_at = ? WHERE name = ?`
	res, err := r.db.ExecContext(ctx, query, r.timestamp(), name)
	if err != nil {
		return fmt.Errorf("resetting counter %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resetting counter %s: %w", name, err)
	}
	if n == 0 {
		return ErrCounterNotFound
	}
	return nil
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCounter(s scanner) (*Counter, error) {
	var (
		c       Counter
		updated string
	)
	if err := s.Scan(&c.Name, &c.Value, &updated); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, updated)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updated, err)
	}
	c.UpdatedAt = t
	return &c, nil
}
