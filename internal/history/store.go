package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"notifer/internal/config"
	"notifer/internal/dispatch"
	"notifer/internal/outcome"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultLimit bounds Recent when the caller passes a non-positive limit.
const DefaultLimit = 20

// ErrDisabled is returned by OpenFromConfig when history is turned off.
var ErrDisabled = errors.New("history disabled")

// Entry is one persisted dispatch.
type Entry struct {
	ID int64
	dispatch.Record
}

// Duration is the wall time the invocation took.
func (e Entry) Duration() time.Duration {
	if e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store persists dispatch records in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenFromConfig opens the store configured under [history] and applies
// retention_days. It returns ErrDisabled when history is off.
func OpenFromConfig(ctx context.Context, cfg *config.Config) (*Store, error) {
	if !cfg.History.Enabled {
		return nil, ErrDisabled
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	store, err := Open(ctx, cfg.History.Path)
	if err != nil {
		return nil, err
	}
	if _, err := store.ApplyRetention(ctx, cfg.History.RetentionDays); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// ApplyRetention prunes entries older than days. Zero or negative keeps
// everything.
func (s *Store) ApplyRetention(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	return s.Prune(ctx, time.Now().AddDate(0, 0, -days))
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record implements dispatch.Recorder.
func (s *Store) Record(ctx context.Context, rec dispatch.Record) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO dispatches (
            invocation_id, credential_id, topic, outcome, state, priority,
            response_id, status_code, error_kind, error_message, suppressed,
            started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.InvocationID,
		nullableString(rec.CredentialID),
		nullableString(rec.Topic),
		rec.Outcome.String(),
		rec.State.String(),
		rec.Priority,
		nullableString(rec.ResponseID),
		nullableInt(rec.StatusCode),
		nullableString(rec.ErrorKind),
		nullableString(rec.Error),
		boolToInt(rec.Suppressed),
		formatTime(rec.StartedAt),
		formatTime(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert dispatch: %w", err)
	}
	return nil
}

const entryColumns = "id, invocation_id, credential_id, topic, outcome, state, priority, response_id, status_code, error_kind, error_message, suppressed, started_at, finished_at"

// Recent returns the newest entries first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM dispatches ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return entries, nil
}

// Get returns the entry for an invocation, or nil when none exists.
func (s *Store) Get(ctx context.Context, invocationID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM dispatches WHERE invocation_id = ?`, invocationID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dispatch: %w", err)
	}
	return &entry, nil
}

// Prune deletes entries that started before cutoff and reports how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dispatches WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune dispatches: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

var _ dispatch.Recorder = (*Store)(nil)

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry        Entry
		credentialID sql.NullString
		topic        sql.NullString
		outcomeRaw   string
		stateRaw     string
		responseID   sql.NullString
		statusCode   sql.NullInt64
		errorKind    sql.NullString
		errorMessage sql.NullString
		suppressed   int64
		startedRaw   string
		finishedRaw  string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.InvocationID,
		&credentialID,
		&topic,
		&outcomeRaw,
		&stateRaw,
		&entry.Priority,
		&responseID,
		&statusCode,
		&errorKind,
		&errorMessage,
		&suppressed,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Entry{}, err
	}

	entry.CredentialID = credentialID.String
	entry.Topic = topic.String
	if o, err := outcome.Parse(outcomeRaw); err == nil {
		entry.Outcome = o
	}
	if st, ok := dispatch.ParseState(stateRaw); ok {
		entry.State = st
	}
	entry.ResponseID = responseID.String
	entry.StatusCode = int(statusCode.Int64)
	entry.ErrorKind = errorKind.String
	entry.Error = errorMessage.String
	entry.Suppressed = suppressed != 0
	if started, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		entry.StartedAt = started
	}
	if finished, err := time.Parse(time.RFC3339Nano, finishedRaw); err == nil {
		entry.FinishedAt = finished
	}
	return entry, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}
