// Package sqlstore implements storage.Store on database/sql. It runs against
// an embedded SQLite file (modernc.org/sqlite) or a Dolt sql-server reached
// over the MySQL protocol (go-sql-driver/mysql).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/steveyegge/onboardbuddy/internal/storage"
)

// DefaultSQLPort is the default Dolt sql-server port.
const DefaultSQLPort = 3306

// Store is a SQL-backed storage.Store.
type Store struct {
	db         *sql.DB
	dialect    dialect
	serverMode bool
	now        func() time.Time
}

var _ storage.Store = (*Store)(nil)

// ServerConfig describes a Dolt (or any MySQL-compatible) sql-server.
type ServerConfig struct {
	Host     string // default 127.0.0.1
	Port     int    // default 3306
	User     string // default root
	Password string // can be set via BUDDY_DOLT_PASSWORD
	Database string // default onboardbuddy
	TLS      bool
}

// OpenSQLite opens (creating if needed) a SQLite database file and migrates it.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", storage.SQLiteConnString(path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// A single writer connection keeps read-then-write transactions from
	// deadlocking on lock upgrades.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dialect: sqliteDialect, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenServer connects to a Dolt sql-server, creating the database if needed.
func OpenServer(ctx context.Context, cfg ServerConfig) (*Store, error) {
	applyServerDefaults(&cfg)
	if err := validateDatabaseName(cfg.Database); err != nil {
		return nil, fmt.Errorf("invalid database name %q: %w", cfg.Database, err)
	}

	initDB, err := sql.Open("mysql", buildServerDSN(cfg, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to open init connection: %w", err)
	}
	defer func() { _ = initDB.Close() }()

	_, err = initDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.Database)) //nolint:gosec // validated above
	if err != nil {
		// Dolt may return error 1007 even with IF NOT EXISTS.
		errLower := strings.ToLower(err.Error())
		if !strings.Contains(errLower, "database exists") && !strings.Contains(errLower, "1007") {
			if strings.Contains(errLower, "connection refused") {
				return nil, fmt.Errorf("failed to connect to Dolt server at %s:%d: %w\n\nThe Dolt server may not be running. Try:\n  dolt sql-server  # in the database directory", cfg.Host, cfg.Port, err)
			}
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	db, err := sql.Open("mysql", buildServerDSN(cfg, cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to open Dolt server connection: %w", err)
	}
	return OpenDB(ctx, db, "mysql")
}

// OpenDB wraps an existing connection pool. driver is "sqlite" or "mysql".
func OpenDB(ctx context.Context, db *sql.DB, driver string) (*Store, error) {
	s := &Store{db: db, now: time.Now}
	switch driver {
	case "sqlite":
		s.dialect = sqliteDialect
	case "mysql":
		s.dialect = mysqlDialect
		s.serverMode = true
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// ParseServerDSN reads a go-sql-driver DSN such as
// "root:pw@tcp(127.0.0.1:3306)/onboardbuddy?tls=true".
func ParseServerDSN(dsn string) (ServerConfig, error) {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("parse dsn: %w", err)
	}
	cfg := ServerConfig{
		User:     c.User,
		Password: c.Passwd,
		Database: c.DBName,
		TLS:      c.TLSConfig != "" && c.TLSConfig != "false",
	}
	if c.Addr != "" {
		host, port, err := net.SplitHostPort(c.Addr)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("parse dsn address %q: %w", c.Addr, err)
		}
		cfg.Host = host
		if cfg.Port, err = strconv.Atoi(port); err != nil {
			return ServerConfig{}, fmt.Errorf("parse dsn port %q: %w", port, err)
		}
	}
	return cfg, nil
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultSQLPort
	}
	if cfg.User == "" {
		cfg.User = "root"
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("BUDDY_DOLT_PASSWORD")
	}
	if cfg.Database == "" {
		cfg.Database = "onboardbuddy"
	}
}

func buildServerDSN(cfg ServerConfig, database string) string {
	userPart := cfg.User
	if cfg.Password != "" {
		userPart = fmt.Sprintf("%s:%s", cfg.User, cfg.Password)
	}
	params := "parseTime=true"
	if cfg.TLS {
		params += "&tls=true"
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s", userPart, cfg.Host, cfg.Port, database, params)
}

var databaseNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func validateDatabaseName(name string) error {
	if !databaseNamePattern.MatchString(name) {
		return errors.New("only letters, digits and underscores are allowed")
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if err := s.withRetry(ctx, func() error {
			_, err := s.db.ExecContext(ctx, stmt)
			return err
		}); err != nil {
			return fmt.Errorf("migrating %s schema: %w", s.dialect.name, err)
		}
	}
	return nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the pool for diagnostics and tests.
func (s *Store) DB() *sql.DB { return s.db }

// ---------- Retry ----------

const serverRetryMaxElapsed = 30 * time.Second

func newServerRetryBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = serverRetryMaxElapsed
	return bo
}

// isRetryableError reports transient connection errors seen against a
// sql-server: stale pool connections, restarts and network blips.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, s := range []string{
		"driver: bad connection",
		"invalid connection",
		"broken pipe",
		"connection reset",
		"connection refused",
		"database is read only",
		"lost connection",
		"gone away",
		"i/o timeout",
	} {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}

// withRetry runs op, retrying transient errors in server mode only.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	if !s.serverMode {
		return op()
	}
	return backoff.Retry(func() error {
		err := op()
		if err != nil && isRetryableError(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(newServerRetryBackoff(), ctx))
}

// inTx runs fn in a transaction, committing on success.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toNanos(t time.Time) int64 { return t.UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }
