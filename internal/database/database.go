package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultBusyTimeout = 5 * time.Second

// Options configures Open.
type Options struct {
	// Key is the SQLCipher passphrase. Empty opens the file unkeyed.
	Key string
	// SQLLog enables gorm's statement log on stderr.
	SQLLog      bool
	BusyTimeout time.Duration
}

// keyedConnector opens mattn/go-sqlite3 connections whose connect hook
// applies the key and the connection pragmas.
type keyedConnector struct {
	dsn    string
	driver *sqlite3.SQLiteDriver
}

func (c *keyedConnector) Connect(context.Context) (driver.Conn, error) {
	return c.driver.Open(c.dsn)
}

func (c *keyedConnector) Driver() driver.Driver {
	return c.driver
}

func newConnector(dsn, key string, busyTimeout time.Duration) *keyedConnector {
	return &keyedConnector{
		dsn: dsn,
		driver: &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return configureConn(conn, key, busyTimeout)
			},
		},
	}
}

// connPragmas lists the statements run on every new connection. PRAGMA key
// must be the first statement touching the file.
func connPragmas(key string, busyTimeout time.Duration) []string {
	var stmts []string
	if key != "" {
		stmts = append(stmts, "PRAGMA key = "+quoteLiteral(key))
	}
	return append(stmts,
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
	)
}

func configureConn(conn *sqlite3.SQLiteConn, key string, busyTimeout time.Duration) error {
	for _, stmt := range connPragmas(key, busyTimeout) {
		if _, err := conn.Exec(stmt, nil); err != nil {
			return fmt.Errorf("failed to configure connection: %w", err)
		}
	}
	return nil
}

// quoteLiteral renders s as a single-quoted SQL string literal. PRAGMA
// and ATTACH ... KEY do not accept bound parameters everywhere.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Open opens (creating if needed) the SQLite file at path and returns a
// gorm handle limited to one open connection.
func Open(path string, opts Options) (*gorm.DB, error) {
	busyTimeout := opts.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	sqlDB := sql.OpenDB(newConnector(path, opts.Key, busyTimeout))
	// Single writer per file; also keeps an in-memory database alive
	// across statements.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	db, err := OpenWithConn(sqlDB, opts.SQLLog)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	slog.Debug("database opened", slog.String("path", path), slog.Bool("keyed", opts.Key != ""))
	return db, nil
}

// OpenWithConn wraps an existing pool, e.g. a sqlmock connection in tests.
func OpenWithConn(conn *sql.DB, sqlLog bool) (*gorm.DB, error) {
	return gorm.Open(sqlite.New(sqlite.Config{Conn: conn}), &gorm.Config{
		Logger:         newGormLogger(sqlLog),
		TranslateError: true,
	})
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// stdout belongs to the stdio bridge, so gorm logs to stderr.
func newGormLogger(enabled bool) logger.Interface {
	level := logger.Silent
	if enabled {
		level = logger.Info
	}
	return logger.New(log.New(os.Stderr, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
