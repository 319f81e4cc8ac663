// Package storage is the persistence sink for finished runs: crawl
// summaries and their intent trees, stored in a local SQLite database.
// The engine itself never writes here; the CLI hands it completed runs.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jonesrussell/intentmap/internal/domain"
)

// dbFileName is the SQLite database file created under the storage dir.
const dbFileName = "intentmap.db"

// ErrRunNotFound is returned when the requested run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// schema creates the runs and intents tables.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	base_url    TEXT NOT NULL,
	fetched     INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	discarded   INTEGER NOT NULL,
	stop_reason TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	elapsed_ms  INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS intents (
	id          TEXT NOT NULL,
	run_id      TEXT NOT NULL REFERENCES runs(run_id),
	parent_id   TEXT,
	source_page TEXT NOT NULL,
	label       TEXT NOT NULL,
	depth       INTEGER NOT NULL,
	merged_into TEXT,
	flagged     INTEGER NOT NULL DEFAULT 0,
	payload     TEXT NOT NULL,
	PRIMARY KEY (run_id, id)
);

CREATE INDEX IF NOT EXISTS idx_intents_run ON intents(run_id);
`

// Store persists crawl runs in SQLite.
type Store struct {
	db *sqlx.DB
}

// runRow is the database shape of a stored run.
type runRow struct {
	RunID      string    `db:"run_id"`
	BaseURL    string    `db:"base_url"`
	Fetched    int       `db:"fetched"`
	Failed     int       `db:"failed"`
	Skipped    int       `db:"skipped"`
	Discarded  int       `db:"discarded"`
	StopReason string    `db:"stop_reason"`
	StartedAt  time.Time `db:"started_at"`
	ElapsedMs  int64     `db:"elapsed_ms"`
}

// Open opens or creates the store under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	dsn := filepath.Join(dir, dbFileName) + "?mode=rwc"

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if _, execErr := db.Exec(schema); execErr != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", execErr)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun persists a crawl summary and its intent tree in one transaction.
func (s *Store) SaveRun(ctx context.Context, summary *domain.CrawlSummary, tree *domain.IntentTree) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, base_url, fetched, failed, skipped, discarded, stop_reason, started_at, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.BaseURL, summary.Fetched, summary.Failed,
		summary.Skipped, summary.Discarded, summary.StopReason,
		summary.StartedAt, summary.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, intent := range tree.All() {
		payload, marshalErr := json.Marshal(intent)
		if marshalErr != nil {
			return fmt.Errorf("marshal intent %s: %w", intent.ID, marshalErr)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO intents (id, run_id, parent_id, source_page, label, depth, merged_into, flagged, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			intent.ID, summary.RunID, intent.ParentID, intent.SourcePage,
			intent.Label, intent.Depth, intent.MergedInto, intent.FlaggedForReview,
			string(payload),
		)
		if err != nil {
			return fmt.Errorf("insert intent %s: %w", intent.ID, err)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("commit save transaction: %w", commitErr)
	}

	return nil
}

// ListRuns returns stored run summaries, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]domain.CrawlSummary, error) {
	var rows []runRow

	err := s.db.SelectContext(ctx, &rows, `
		SELECT run_id, base_url, fetched, failed, skipped, discarded, stop_reason, started_at, elapsed_ms
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	summaries := make([]domain.CrawlSummary, len(rows))
	for i, row := range rows {
		summaries[i] = row.toSummary()
	}

	return summaries, nil
}

// GetRun loads one stored run with its intent tree.
func (s *Store) GetRun(ctx context.Context, runID string) (*domain.CrawlSummary, *domain.IntentTree, error) {
	var row runRow

	err := s.db.GetContext(ctx, &row, `
		SELECT run_id, base_url, fetched, failed, skipped, discarded, stop_reason, started_at, elapsed_ms
		FROM runs WHERE run_id = ?`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrRunNotFound
	}

	if err != nil {
		return nil, nil, fmt.Errorf("get run: %w", err)
	}

	var payloads []string

	err = s.db.SelectContext(ctx, &payloads,
		`SELECT payload FROM intents WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("load intents: %w", err)
	}

	tree := domain.NewIntentTree()

	for _, payload := range payloads {
		var intent domain.Intent
		if unmarshalErr := json.Unmarshal([]byte(payload), &intent); unmarshalErr != nil {
			return nil, nil, fmt.Errorf("unmarshal intent: %w", unmarshalErr)
		}

		tree.Add(&intent)
	}

	summary := row.toSummary()

	return &summary, tree, nil
}

// toSummary converts a database row back to the domain type.
func (r runRow) toSummary() domain.CrawlSummary {
	return domain.CrawlSummary{
		RunID:      r.RunID,
		BaseURL:    r.BaseURL,
		Fetched:    r.Fetched,
		Failed:     r.Failed,
		Skipped:    r.Skipped,
		Discarded:  r.Discarded,
		StopReason: r.StopReason,
		StartedAt:  r.StartedAt,
		Elapsed:    time.Duration(r.ElapsedMs) * time.Millisecond,
	}
}
