package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const currentVersion = 1

// timeLayout is RFC 3339 with a fixed nine-digit fraction. Timestamps are
// stored in UTC so TEXT comparisons order them correctly.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate idempotency key")
)

// dialect covers the few places where SQLite and PostgreSQL disagree.
type dialect struct {
	driver     string
	pkColumn   string
	lockSuffix string
	dollarArgs bool
}

var (
	sqliteDialect   = dialect{driver: "sqlite", pkColumn: "INTEGER PRIMARY KEY AUTOINCREMENT"}
	postgresDialect = dialect{driver: "postgres", pkColumn: "BIGSERIAL PRIMARY KEY", lockSuffix: " FOR UPDATE", dollarArgs: true}
)

type Store struct {
	db *sql.DB
	d  dialect
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	return open(db, sqliteDialect)
}

// NewPostgres connects to a PostgreSQL server with a lib/pq connection string.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return open(db, postgresDialect)
}

// Open picks the backend by driver name ("sqlite" or "postgres").
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case "", "sqlite":
		return New(dsn)
	case "postgres":
		return NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func open(db *sql.DB, d dialect) (*Store, error) {
	s := &Store{db: db, d: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if !s.d.dollarArgs {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) migrate() error {
	version, err := s.schemaVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	return s.setSchemaVersion(currentVersion)
}

func (s *Store) schemaVersion() (int, error) {
	var version int
	if s.d.driver == "sqlite" {
		err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
		return version, err
	}
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return 0, err
	}
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	return version, err
}

func (s *Store) setSchemaVersion(v int) error {
	if s.d.driver == "sqlite" {
		_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", v))
		return err
	}
	_, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES ($1)`, v)
	return err
}

func (s *Store) migrateV1() error {
	ddl := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		xp          INTEGER NOT NULL DEFAULT 0,
		level       INTEGER NOT NULL DEFAULT 1,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_sessions (
		id                 %[1]s,
		user_id            TEXT NOT NULL,
		day                TEXT NOT NULL,
		completed_minutes  INTEGER NOT NULL DEFAULT 0,
		active_minutes     INTEGER NOT NULL DEFAULT 0,
		sessions_completed INTEGER NOT NULL DEFAULT 0,
		achieved           INTEGER NOT NULL DEFAULT 0,
		session_start      BIGINT NOT NULL DEFAULT 0,
		last_updated       TEXT NOT NULL,
		UNIQUE(user_id, day)
	);

	CREATE TABLE IF NOT EXISTS point_transactions (
		id          %[1]s,
		user_id     TEXT NOT NULL,
		points      INTEGER NOT NULL,
		type        TEXT NOT NULL,
		reason      TEXT NOT NULL DEFAULT '',
		subject     TEXT NOT NULL DEFAULT '',
		idem_key    TEXT,
		metadata    TEXT NOT NULL DEFAULT '{}',
		created_at  TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_tx_idem    ON point_transactions(user_id, idem_key);
	CREATE INDEX IF NOT EXISTS idx_tx_lookup         ON point_transactions(user_id, type, subject, created_at);

	CREATE TABLE IF NOT EXISTS tasks (
		id          %[1]s,
		user_id     TEXT NOT NULL,
		title       TEXT NOT NULL,
		completed   INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id);
	`, s.d.pkColumn)
	_, err := s.db.Exec(ddl)
	return err
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	var lite *sqlite.Error
	if errors.As(err, &lite) {
		return lite.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
