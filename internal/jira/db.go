// Package jira gives the connector direct access to the relational store
// behind a Jira Server/Data Center instance.
package jira

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog/log"
)

// Dialect identifies the SQL flavour spoken by the Jira database.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

const (
	DefaultWorklogIDBase int64 = 10100
	DefaultWorklogIDStep int64 = 199
)

// Config holds the connection settings for the Jira database.
type Config struct {
	Driver   Dialect
	DSN      string
	User     string
	Password string

	// Timezone is used for worklog timestamps when Jira has no
	// jira.default.timezone property.
	Timezone string

	// Worklog IDs are minted as counter+step so they stay clear of the
	// range Jira's own generator hands out. This is a heuristic: only a
	// reserved ID range on the Jira side makes collisions impossible.
	WorklogIDBase int64
	WorklogIDStep int64

	MaxOpenConns int
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the repository over the Jira tables. A DB handed to a
// RunInTransaction callback is bound to that transaction.
type DB struct {
	conn     *sql.DB
	q        querier
	tx       *sql.Tx
	dialect  Dialect
	cfg      Config
	fallback *time.Location
}

// Open connects to the Jira database and verifies it is reachable.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.WorklogIDBase == 0 {
		cfg.WorklogIDBase = DefaultWorklogIDBase
	}
	if cfg.WorklogIDStep <= 0 {
		cfg.WorklogIDStep = DefaultWorklogIDStep
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}

	fallback := time.UTC
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
		fallback = loc
	}

	conn, err := openConn(cfg)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to jira database %s: %w", Describe(cfg), err)
	}

	log.Info().Str("driver", string(cfg.Driver)).Str("target", Describe(cfg)).Msg("Connected to Jira database")

	return &DB{
		conn:     conn,
		q:        conn,
		dialect:  cfg.Driver,
		cfg:      cfg,
		fallback: fallback,
	}, nil
}

func openConn(cfg Config) (*sql.DB, error) {
	switch cfg.Driver {
	case MySQL:
		mc, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		if cfg.User != "" {
			mc.User = cfg.User
		}
		if cfg.Password != "" {
			mc.Passwd = cfg.Password
		}
		mc.ParseTime = true
		mc.Loc = time.UTC
		connector, err := mysql.NewConnector(mc)
		if err != nil {
			return nil, fmt.Errorf("failed to create mysql connector: %w", err)
		}
		return sql.OpenDB(connector), nil

	case Postgres:
		pc, err := pgx.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid postgres dsn: %w", err)
		}
		if cfg.User != "" {
			pc.User = cfg.User
		}
		if cfg.Password != "" {
			pc.Password = cfg.Password
		}
		return stdlib.OpenDB(*pc), nil

	case SQLite:
		conn, err := sql.Open("sqlite3", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return conn, nil
	}
	return nil, fmt.Errorf("unsupported jira database driver %q", cfg.Driver)
}

// Describe renders the database target without credentials.
func Describe(cfg Config) string {
	switch cfg.Driver {
	case MySQL:
		mc, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "mysql(invalid dsn)"
		}
		return fmt.Sprintf("mysql://%s/%s", mc.Addr, mc.DBName)
	case Postgres:
		pc, err := pgx.ParseConfig(cfg.DSN)
		if err != nil {
			return "postgres(invalid dsn)"
		}
		return fmt.Sprintf("postgres://%s:%d/%s", pc.Host, pc.Port, pc.Database)
	case SQLite:
		path, _, _ := strings.Cut(strings.TrimPrefix(cfg.DSN, "file:"), "?")
		return "sqlite://" + path
	}
	return string(cfg.Driver)
}

// Close releases the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Dialect reports the SQL flavour of the connection.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// RunInTransaction executes fn within a database transaction. Any error
// returned by fn, or a panic inside it, rolls back every write made through
// the tx handle. Calls on a DB that is already transactional join the
// outer transaction.
func (db *DB) RunInTransaction(ctx context.Context, fn func(tx *DB) error) error {
	if db.tx != nil {
		return fn(db)
	}

	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Warn().Err(rbErr).Msg("Transaction rollback failed")
			}
		}
	}()

	tx := &DB{
		conn:     db.conn,
		q:        sqlTx,
		tx:       sqlTx,
		dialect:  db.dialect,
		cfg:      db.cfg,
		fallback: db.fallback,
	}
	if err := fn(tx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Ping reports whether the Jira tables can be read. Errors are logged,
// never returned.
func (db *DB) Ping(ctx context.Context) bool {
	var one int
	err := db.q.QueryRowContext(ctx, "SELECT 1 FROM jiraissue LIMIT 1").Scan(&one)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Debug().Err(err).Msg("Jira database ping failed")
		return false
	}
	return true
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.q.ExecContext(ctx, rebind(db.dialect, query), args...)
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.q.QueryContext(ctx, rebind(db.dialect, query), args...)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.q.QueryRowContext(ctx, rebind(db.dialect, query), args...)
}

// rebind rewrites ? placeholders into $n for postgres. Queries in this
// package never carry a literal question mark.
func rebind(d Dialect, query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
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

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
