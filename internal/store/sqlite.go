package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var errNotOpened = errors.New("database not opened")

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite trial store instance. A nil logger
// discards output.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := MemoryPath
	if path != MemoryPath {
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// OpenDB adopts an existing connection. The schema is not touched.
func (s *SQLiteStore) OpenDB(db *sql.DB) {
	s.db = db
	s.path = ""
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema brings the schema up to date.
func (s *SQLiteStore) InitSchema() error {
	if err := s.Migrate(); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// SaveTrials inserts trials in one transaction. Missing ids and creation
// times are filled in.
func (s *SQLiteStore) SaveTrials(ctx context.Context, trials []*Trial) error {
	if s.db == nil {
		return errNotOpened
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, t := range trials {
		if t.ID == "" {
			t.ID = generateID()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		params, err := json.Marshal(t.Params)
		if err != nil {
			return fmt.Errorf("failed to encode trial %s: %w", t.ID, err)
		}
		vars := []byte("{}")
		if len(t.Variables) > 0 {
			if vars, err = json.Marshal(t.Variables); err != nil {
				return fmt.Errorf("failed to encode trial %s variables: %w", t.ID, err)
			}
		}
		// SQLite integers are signed; the seed round-trips through int64.
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trials (id, study, seed, idx, identity, params, variables, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Study, int64(t.Seed), t.Index, t.Identity, string(params), string(vars), t.CreatedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("failed to save trial: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trials: %w", err)
	}
	s.logger.Debug("saved trials", slog.Int("count", len(trials)), slog.String("path", s.path))
	return nil
}

const selectTrial = `SELECT id, study, seed, idx, identity, params, variables, created_at FROM trials`

// GetTrial retrieves a trial by ID.
func (s *SQLiteStore) GetTrial(ctx context.Context, id string) (*Trial, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	t, err := scanTrial(s.db.QueryRowContext(ctx, selectTrial+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTrialNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trial: %w", err)
	}
	return t, nil
}

// ListTrials returns the trials of a study in the order they were
// recorded.
func (s *SQLiteStore) ListTrials(ctx context.Context, study string) ([]*Trial, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	return s.query(ctx, selectTrial+` WHERE study = ? ORDER BY created_at, seed, idx`, study)
}

// FindByIdentity returns the trials of a study sharing an identity.
func (s *SQLiteStore) FindByIdentity(ctx context.Context, study, identity string) ([]*Trial, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	return s.query(ctx, selectTrial+` WHERE study = ? AND identity = ? ORDER BY created_at, seed, idx`, study, identity)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]*Trial, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trials: %w", err)
	}
	defer rows.Close()

	var trials []*Trial
	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		trials = append(trials, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list trials: %w", err)
	}
	return trials, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrial(row scanner) (*Trial, error) {
	var (
		t       Trial
		seed    int64
		params  string
		vars    string
		created int64
	)
	if err := row.Scan(&t.ID, &t.Study, &seed, &t.Index, &t.Identity, &params, &vars, &created); err != nil {
		return nil, err
	}
	t.Seed = uint64(seed)
	t.CreatedAt = time.Unix(0, created).UTC()

	p, err := DecodeParams([]byte(params))
	if err != nil {
		return nil, err
	}
	t.Params = p

	if t.Variables, err = DecodeParams([]byte(vars)); err != nil {
		return nil, err
	}
	return &t, nil
}

// DecodeParams decodes a params document keeping number literals.
func DecodeParams(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	return out, nil
}
