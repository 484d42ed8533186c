package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"taskboard/utilities"
)

// Dialect names the SQL flavour a Store speaks.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// ConnectPostgres opens and pings a Postgres database through lib/pq.
func ConnectPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		utilities.LogError(err, "Error opening postgres connection")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		utilities.LogError(err, "Error connecting to postgres")
		return nil, err
	}

	utilities.LogInfo("Connected to PostgreSQL")
	return db, nil
}

// ConnectSQLite opens and pings a SQLite file. ":memory:" gives a private
// in-memory database pinned to a single connection.
func ConnectSQLite(path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := path
	if path != ":memory:" {
		// Writers take the lock at BEGIN so busy_timeout applies instead of
		// failing a read-to-write upgrade with SQLITE_BUSY.
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		utilities.LogError(err, "Error opening sqlite database")
		return nil, err
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		utilities.LogError(err, "Error connecting to sqlite")
		return nil, err
	}

	utilities.LogInfo("Opened SQLite database %s", path)
	return db, nil
}

// rebind rewrites ? placeholders into $1, $2, ... for Postgres.
func rebind(d Dialect, query string) string {
	if d != Postgres {
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
