package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/user/cyberpulse/pkg/engine"
)

// ErrNotFound is returned by Get for an unknown run id
var ErrNotFound = errors.New("run not found")

// Run is one recorded batch
type Run struct {
	ID              string          `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	CrosswalkSource string          `json:"crosswalk_source"`
	Policy          string          `json:"policy"`
	Outputs         []engine.Output `json:"outputs"`
}

// Summary is the list view of a run
type Summary struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	CrosswalkSource string    `json:"crosswalk_source"`
	Items           int       `json:"items"`
	Failures        int       `json:"failures"`
	Compliant       int       `json:"compliant"`
	Partial         int       `json:"partial"`
	NonCompliant    int       `json:"non_compliant"`
	AverageScore    float64   `json:"average_score"`
}

// Summarize computes the list view of a run
func Summarize(r Run) Summary {
	s := Summary{ID: r.ID, CreatedAt: r.CreatedAt, CrosswalkSource: r.CrosswalkSource, Items: len(r.Outputs)}
	total := 0
	for _, o := range r.Outputs {
		if o.Failed() {
			s.Failures++
			continue
		}
		total += o.Result.Score
		switch o.Result.Status {
		case engine.StatusCompliant:
			s.Compliant++
		case engine.StatusPartial:
			s.Partial++
		default:
			s.NonCompliant++
		}
	}
	if evaluated := s.Items - s.Failures; evaluated > 0 {
		s.AverageScore = float64(total) / float64(evaluated)
	}
	return s
}

// Store keeps runs in a SQLite database. Only the CLI and server write to
// it; evaluations never read from it.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA busy_timeout=5000`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			crosswalk_source TEXT NOT NULL,
			policy TEXT NOT NULL,
			items INTEGER NOT NULL,
			failures INTEGER NOT NULL,
			compliant INTEGER NOT NULL,
			partial INTEGER NOT NULL,
			non_compliant INTEGER NOT NULL,
			average_score REAL NOT NULL,
			outputs TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record stores a run and returns its id. A missing id or timestamp is filled in.
func (s *Store) Record(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	outputs, err := json.Marshal(r.Outputs)
	if err != nil {
		return "", fmt.Errorf("encode outputs: %w", err)
	}

	sum := Summarize(r)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, crosswalk_source, policy, items, failures,
			compliant, partial, non_compliant, average_score, outputs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UnixNano(), r.CrosswalkSource, r.Policy, sum.Items, sum.Failures,
		sum.Compliant, sum.Partial, sum.NonCompliant, sum.AverageScore, string(outputs))
	if err != nil {
		return "", fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return r.ID, nil
}

// List returns the newest runs first. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, crosswalk_source, items, failures,
			compliant, partial, non_compliant, average_score
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var created int64
		if err := rows.Scan(&sum.ID, &created, &sum.CrosswalkSource, &sum.Items, &sum.Failures,
			&sum.Compliant, &sum.Partial, &sum.NonCompliant, &sum.AverageScore); err != nil {
			return nil, err
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get loads a full run
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	var r Run
	var created int64
	var outputs string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, crosswalk_source, policy, outputs FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &created, &r.CrosswalkSource, &r.Policy, &outputs)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	r.CreatedAt = time.Unix(0, created).UTC()
	if err := json.Unmarshal([]byte(outputs), &r.Outputs); err != nil {
		return Run{}, fmt.Errorf("decode outputs of run %s: %w", id, err)
	}
	return r, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
