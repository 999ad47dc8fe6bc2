package s1_universe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/pkg/database"
)

// Repository handles data persistence for S1
type Repository struct {
	db *database.DB
}

var _ SnapshotStore = (*Repository)(nil)

// NewRepository creates a new Repository instance
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// SaveUniverse saves a universe snapshot, replacing the one for the same date
func (r *Repository) SaveUniverse(ctx context.Context, universe *contracts.Universe) error {
	excludedJSON, err := json.Marshal(universe.Excluded)
	if err != nil {
		return fmt.Errorf("marshal excluded: %w", err)
	}

	query := `
		INSERT INTO universe_snapshots (
			snapshot_date,
			symbols,
			total_count,
			excluded,
			created_at
		) VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (snapshot_date) DO UPDATE SET
			symbols = EXCLUDED.symbols,
			total_count = EXCLUDED.total_count,
			excluded = EXCLUDED.excluded,
			created_at = NOW()
	`

	err = r.db.Retry(ctx, func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, query,
			universe.Date,
			universe.Symbols,
			universe.TotalCount,
			excludedJSON,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert universe: %w", err)
	}

	return nil
}

// LatestUniverse retrieves the most recent universe snapshot.
// Returns contracts.ErrNotFound before the first refresh.
func (r *Repository) LatestUniverse(ctx context.Context) (*contracts.Universe, error) {
	query := `
		SELECT
			snapshot_date,
			symbols,
			total_count,
			excluded
		FROM universe_snapshots
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	universe := &contracts.Universe{
		Excluded: make(map[string]string),
	}

	var excludedJSON []byte
	err := r.db.Retry(ctx, func(ctx context.Context) error {
		return r.db.Pool.QueryRow(ctx, query).Scan(
			&universe.Date,
			&universe.Symbols,
			&universe.TotalCount,
			&excludedJSON,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest universe: %w", err)
	}

	if len(excludedJSON) > 0 {
		if err := json.Unmarshal(excludedJSON, &universe.Excluded); err != nil {
			return nil, fmt.Errorf("unmarshal excluded: %w", err)
		}
	}

	return universe, nil
}
