package data

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DB wraps *sql.DB with the driver name so repositories can rebind
// placeholders for the active dialect.
type DB struct {
	*sql.DB
	driver string
}

// Open connects to the configured storage backend and runs migrations.
// Supported drivers: sqlite (default), postgres, mysql, sqlserver.
func Open(driver, dsn string) (*DB, error) {
	driverName := driver
	switch driver {
	case "sqlite", "postgres", "mysql", "sqlserver":
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	d := &DB{DB: db, driver: driver}
	if err := d.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// Rebind converts `?` placeholders to the dialect's positional form.
func (d *DB) Rebind(query string) string {
	switch d.driver {
	case "postgres", "sqlserver":
	default:
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		if d.driver == "postgres" {
			b.WriteString("$" + strconv.Itoa(n))
		} else {
			b.WriteString("@p" + strconv.Itoa(n))
		}
	}
	return b.String()
}

func (d *DB) runMigrations() error {
	// VARCHAR keeps the unique columns indexable on MySQL; SQLite and
	// Postgres treat it as TEXT.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			username VARCHAR(191) NOT NULL UNIQUE,
			email VARCHAR(191) UNIQUE,
			phone VARCHAR(32) UNIQUE,
			password_hash TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS saved_requests (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			name TEXT,
			method VARCHAR(16) NOT NULL,
			url TEXT NOT NULL,
			headers TEXT,
			params TEXT,
			body TEXT,
			auth_enc TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS favorite_requests (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			name TEXT,
			method VARCHAR(16) NOT NULL,
			url TEXT NOT NULL,
			headers TEXT,
			params TEXT,
			body TEXT,
			auth_enc TEXT,
			folder VARCHAR(191),
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS environments (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			name VARCHAR(191) NOT NULL,
			variables TEXT,
			is_active INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range statements {
		if _, err := d.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err came from a uniqueness constraint.
// Matched by message because database/sql has no portable error code.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
