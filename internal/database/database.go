package database

import (
	"database/sql"
	"errors"

	sqlite "modernc.org/sqlite"
)

// New creates a new database connection pool.
func New(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dataSourceName+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
//
// users.email is the primary key; the constraint is what makes concurrent
// signups for the same address safe, so the service layer never relies on a
// check-then-insert.
func Migrate(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		email TEXT NOT NULL PRIMARY KEY,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS dreams (
		id TEXT NOT NULL PRIMARY KEY,
		user_email TEXT NOT NULL REFERENCES users(email),
		text TEXT NOT NULL,
		structured_text TEXT NOT NULL,
		image_url TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_dreams_user ON dreams(user_email, created_at);

	CREATE TABLE IF NOT EXISTS digests (
		id TEXT NOT NULL PRIMARY KEY,
		user_email TEXT NOT NULL REFERENCES users(email),
		narrative TEXT NOT NULL,
		dream_count INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_digests_user ON digests(user_email, created_at);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT NOT NULL PRIMARY KEY,
		type TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		user_email TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(sqlStmt)
	return err
}

// IsConstraintViolation reports whether err is a sqlite constraint failure
// (unique/primary-key collisions included).
func IsConstraintViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == 19 // SQLITE_CONSTRAINT family
	}
	return false
}
