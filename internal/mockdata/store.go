package mockdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Store persists the mock dataset between restarts.
type Store interface {
	// Load reports false when nothing has been saved yet.
	Load(ctx context.Context) (Dataset, bool, error)
	Save(ctx context.Context, d Dataset) error
}

// NopStore keeps nothing; every start generates a fresh dataset.
type NopStore struct{}

func (NopStore) Load(context.Context) (Dataset, bool, error) { return Dataset{}, false, nil }
func (NopStore) Save(context.Context, Dataset) error         { return nil }

const DefaultSnapshot = "default"

// PostgresStore keeps one named snapshot row in mock_snapshots.
type PostgresStore struct {
	db   *sql.DB
	name string
}

func NewPostgresStore(db *sql.DB, name string) *PostgresStore {
	if name == "" {
		name = DefaultSnapshot
	}
	return &PostgresStore{db: db, name: name}
}

func (s *PostgresStore) Load(ctx context.Context) (Dataset, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM mock_snapshots WHERE name = $1`, s.name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Dataset{}, false, nil
	}
	if err != nil {
		return Dataset{}, false, fmt.Errorf("load mock snapshot: %w", err)
	}
	var d Dataset
	if err := json.Unmarshal(raw, &d); err != nil {
		return Dataset{}, false, fmt.Errorf("decode mock snapshot %q: %w", s.name, err)
	}
	return d, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, d Dataset) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode mock snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mock_snapshots (name, data, seed, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name) DO UPDATE
		SET data = EXCLUDED.data, seed = EXCLUDED.seed, updated_at = NOW()`,
		s.name, raw, d.Seed)
	if err != nil {
		return fmt.Errorf("save mock snapshot: %w", err)
	}
	return nil
}
