// Package history keeps an index of verification runs in SQLite or
// PostgreSQL, detected from the connection string.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // postgresql driver
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // sqlite driver

	"pittsburgh/internal/verifier"
)

// ErrNotFound is returned when no run with the given ID exists.
var ErrNotFound = errors.New("run not found")

type dbType int

const (
	dbSQLite dbType = iota
	dbPostgres
)

// Record is one indexed verification run.
type Record struct {
	ID            string    `db:"id" json:"id"`
	TargetURL     string    `db:"target_url" json:"target_url"`
	Scenario      string    `db:"scenario" json:"scenario,omitempty"`
	StartedAt     time.Time `db:"started_at" json:"started_at"`
	FinishedAt    time.Time `db:"finished_at" json:"finished_at"`
	ToggleFound   bool      `db:"toggle_found" json:"toggle_found"`
	ModesVerified int       `db:"modes_verified" json:"modes_verified"`
	ModesTotal    int       `db:"modes_total" json:"modes_total"`
	DiffRatio     float64   `db:"diff_ratio" json:"diff_ratio"`
	ReportPath    string    `db:"report_path" json:"report_path,omitempty"`
	Status        string    `db:"status" json:"status"`
}

// FromManifest flattens a pass manifest into an index record.
func FromManifest(m verifier.Manifest) Record {
	rec := Record{
		ID:          m.RunID,
		TargetURL:   m.TargetURL,
		Scenario:    m.Scenario,
		StartedAt:   m.StartedAt,
		FinishedAt:  m.FinishedAt,
		ToggleFound: m.ToggleFound,
		ModesTotal:  len(m.Modes),
		Status:      m.Status,
	}
	for _, mode := range m.Modes {
		if mode.Clicked && mode.Screenshot != "" {
			rec.ModesVerified++
		}
	}
	if m.Diff != nil {
		rec.DiffRatio = m.Diff.Ratio
	}
	return rec
}

// Store persists run records.
type Store struct {
	db  *sqlx.DB
	typ dbType
}

// Open connects to the database named by dsn. A postgres:// or
// postgresql:// URL selects PostgreSQL; anything else is treated as a
// SQLite file path.
func Open(dsn string) (*Store, error) {
	typ := detectDBType(dsn)

	var db *sqlx.DB
	var err error
	switch typ {
	case dbPostgres:
		db, err = connectPostgres(dsn)
	default:
		db, err = connectSQLite(dsn)
	}
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, typ: typ}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	log.Debugf("Run history opened (%s).", s.typeName())
	return s, nil
}

func detectDBType(dsn string) dbType {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return dbPostgres
	}
	return dbSQLite
}

func connectSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}
	// single writer
	db.SetMaxOpenConns(1)
	return db, nil
}

func connectPostgres(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

func (s *Store) createSchema() error {
	var schema string
	switch s.typ {
	case dbPostgres:
		schema = `
			CREATE TABLE IF NOT EXISTS runs (
				id TEXT PRIMARY KEY,
				target_url TEXT NOT NULL,
				scenario TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP NOT NULL,
				finished_at TIMESTAMP NOT NULL,
				toggle_found BOOLEAN NOT NULL DEFAULT FALSE,
				modes_verified INTEGER NOT NULL DEFAULT 0,
				modes_total INTEGER NOT NULL DEFAULT 0,
				diff_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
				report_path TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT ''
			)`
	default:
		schema = `
			CREATE TABLE IF NOT EXISTS runs (
				id TEXT PRIMARY KEY,
				target_url TEXT NOT NULL,
				scenario TEXT NOT NULL DEFAULT '',
				started_at DATETIME NOT NULL,
				finished_at DATETIME NOT NULL,
				toggle_found BOOLEAN NOT NULL DEFAULT FALSE,
				modes_verified INTEGER NOT NULL DEFAULT 0,
				modes_total INTEGER NOT NULL DEFAULT 0,
				diff_ratio REAL NOT NULL DEFAULT 0,
				report_path TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT ''
			)`
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

func (s *Store) typeName() string {
	if s.typ == dbPostgres {
		return "postgres"
	}
	return "sqlite"
}

// Add inserts a run record.
func (s *Store) Add(rec Record) error {
	query := s.adoptQuery(`
		INSERT INTO runs (id, target_url, scenario, started_at, finished_at,
			toggle_found, modes_verified, modes_total, diff_ratio, report_path, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.Exec(query,
		rec.ID, rec.TargetURL, rec.Scenario, rec.StartedAt, rec.FinishedAt,
		rec.ToggleFound, rec.ModesVerified, rec.ModesTotal, rec.DiffRatio,
		rec.ReportPath, rec.Status)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.ID, err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []Record
	query := s.adoptQuery("SELECT * FROM runs ORDER BY started_at DESC LIMIT ?")
	if err := s.db.Select(&recs, query, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return recs, nil
}

// Get returns the run with the given ID. Returns ErrNotFound when the run
// does not exist.
func (s *Store) Get(id string) (Record, error) {
	var rec Record
	query := s.adoptQuery("SELECT * FROM runs WHERE id = ?")
	err := s.db.Get(&rec, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return rec, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// adoptQuery rewrites ? placeholders to $n for postgres.
func (s *Store) adoptQuery(query string) string {
	if s.typ != dbPostgres {
		return query
	}
	result := make([]byte, 0, len(query)+10)
	paramNum := 1
	for i := range len(query) {
		if query[i] != '?' {
			result = append(result, query[i])
			continue
		}
		result = append(result, '$')
		result = append(result, strconv.Itoa(paramNum)...)
		paramNum++
	}
	return string(result)
}
