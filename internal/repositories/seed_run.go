package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/julianstephens/church-latin/internal/models"
	"github.com/julianstephens/church-latin/internal/shared"
)

const defaultListLimit = 20

// SeedRunRepository persists [models.SeedRun] summaries and their per-record errors.
type SeedRunRepository struct {
	db *sql.DB
}

// NewSeedRunRepository creates a new [SeedRunRepository] with the given database connection
func NewSeedRunRepository(db *sql.DB) *SeedRunRepository {
	return &SeedRunRepository{db: db}
}

// Create inserts a run and its errors in one transaction, assigning ID and Sequence.
func (r *SeedRunRepository) Create(run *models.SeedRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := nextSequenceTx(tx, "seed_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	id := shared.GenerateID()

	query := `
		INSERT INTO seed_runs (
			id, sequence, seeder, collection, added, updated, skipped,
			errors, dry_run, reset, elapsed_ms, started_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.Exec(query,
		id,
		sequence,
		run.Seeder,
		run.Collection,
		run.Added,
		run.Updated,
		run.Skipped,
		len(run.Errors),
		run.DryRun,
		run.Reset,
		run.Elapsed.Milliseconds(),
		run.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert seed run: %w", err)
	}

	for i, e := range run.Errors {
		_, err := tx.Exec(
			`INSERT INTO seed_errors (run_id, position, record, message) VALUES (?, ?, ?, ?)`,
			id, i, e.Record, e.Message,
		)
		if err != nil {
			return fmt.Errorf("failed to insert seed error: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed run: %w", err)
	}

	run.ID = id
	run.Sequence = sequence
	run.ErrorCount = len(run.Errors)
	return nil
}

// Get retrieves a run by ID together with its errors.
func (r *SeedRunRepository) Get(id string) (*models.SeedRun, error) {
	query := `
		SELECT id, sequence, seeder, collection, added, updated, skipped,
			errors, dry_run, reset, elapsed_ms, started_at
		FROM seed_runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: seed run %s", shared.ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan seed run: %w", err)
	}

	rows, err := r.db.Query(`SELECT record, message FROM seed_errors WHERE run_id = ? ORDER BY position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query seed errors: %w", err)
	}
	defer rows.Close()

	run.Errors = []models.SeedRunError{}
	for rows.Next() {
		var e models.SeedRunError
		if err := rows.Scan(&e.Record, &e.Message); err != nil {
			return nil, fmt.Errorf("failed to scan seed error: %w", err)
		}
		run.Errors = append(run.Errors, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return run, nil
}

// List retrieves the most recent runs, newest first. Errors are not loaded; ErrorCount is.
//
// Supported criteria: "seeder" (string) and "limit" (int, defaults to 20).
func (r *SeedRunRepository) List(criteria map[string]any) ([]*models.SeedRun, error) {
	query := `
		SELECT id, sequence, seeder, collection, added, updated, skipped,
			errors, dry_run, reset, elapsed_ms, started_at
		FROM seed_runs
		WHERE 1 = 1
	`
	args := []any{}

	if seeder, ok := criteria["seeder"].(string); ok && seeder != "" {
		query += " AND seeder = ?"
		args = append(args, seeder)
	}

	limit := defaultListLimit
	if n, ok := criteria["limit"].(int); ok && n > 0 {
		limit = n
	}
	query += " ORDER BY sequence DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query seed runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.SeedRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seed run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.SeedRun, error) {
	var (
		run       models.SeedRun
		elapsedMS int64
		startedAt time.Time
	)

	err := row.Scan(
		&run.ID, &run.Sequence, &run.Seeder, &run.Collection,
		&run.Added, &run.Updated, &run.Skipped, &run.ErrorCount,
		&run.DryRun, &run.Reset, &elapsedMS, &startedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	run.StartedAt = startedAt
	return &run, nil
}
