// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
// - Single-server deployments (which is most apps, honestly)
// - Development and testing (use ":memory:" for in-memory DB)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// THE RELATIONAL SHAPE OF THIS APP:
//
//	users 1──* experiences 1──* comments
//	  └────*  bookmarks  *────┘           (many-to-many, a set of pairs)
//	          experience_photos            (ordered album, owned by experiences)
//
// Comments, album photos, and bookmarks belong to their experience: when an
// experience is deleted they go with it, in the same transaction. The author
// reference deliberately has NO foreign key — a deleted account must not take
// its experiences down with it, and readers tolerate the dangling reference.
package sqlite

import (
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The underscore import `_ "modernc.org/sqlite"` is a "side-effect only" import.
	// The sqlite package's init() function registers itself with database/sql as a
	// driver named "sqlite". After this import, sql.Open("sqlite", ...) works.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
// One struct implements all three repository interfaces (experiences, comments,
// users) — they share the connection, the transactions, and the row scanners.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/voyage.db"  → file-based database (persistent)
//   - ":memory:"        → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	// Both pragmas ride in the DSN, NOT a one-off conn.Exec after opening.
	// sql.DB is a connection POOL: an Exec("PRAGMA ...") lands on whichever
	// single connection the pool hands out, and every OTHER connection the
	// pool later opens would run with SQLite's defaults — foreign keys OFF.
	// The modernc driver replays _pragma DSN parameters on each new
	// connection, so the whole pool gets:
	//
	//   foreign_keys(1) — the comments/bookmarks/photos → experiences
	//     references are what stops a comment from landing on a concurrently
	//     deleted experience.
	//   journal_mode(WAL) — concurrent reads while a write is in flight, and
	//     the atomicity the cascade delete relies on: a reader sees the
	//     database either before or after the delete, never mid-way.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", dbPath)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// A ":memory:" database is per-connection: a second pooled connection
	// would open its own blank database with no schema. Cap the pool at one.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Ping verifies the connection actually works. Without this, a bad path or
	// permissions issue would only surface on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
// Wherever you call New(), immediately defer Close() — it flushes the WAL
// and releases the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS is idempotent, so
// this is safe to run on every start.
func (db *DB) migrate() error {
	// Users: accounts are created by the registration flow and only ever
	// referenced by the engagement core. Email is the login identifier, but
	// uniqueness is a PARTIAL index: GitHub accounts without a public email
	// store '' and must not collide with each other. Registration validates
	// email before it reaches this table, so '' never belongs to a password
	// account. github_id gets the same treatment — nullable, unique when set.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL DEFAULT '',
			username      TEXT NOT NULL,
			bio           TEXT NOT NULL DEFAULT '',
			member_since  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			user_image    TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email
			ON users(email) WHERE email <> '';
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id
			ON users(github_id) WHERE github_id IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Experiences: author_id intentionally has no REFERENCES clause — see the
	// package comment. The filter columns (experience_type, country, city) are
	// indexed because they back the public query surface.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS experiences (
			id              TEXT PRIMARY KEY,
			author_id       TEXT NOT NULL,
			title           TEXT NOT NULL,
			caption         TEXT NOT NULL DEFAULT '',
			text_body       TEXT NOT NULL DEFAULT '',
			photo           TEXT NOT NULL DEFAULT '',
			experience_type TEXT NOT NULL,
			country         TEXT NOT NULL,
			city            TEXT NOT NULL,
			longitude       REAL NOT NULL DEFAULT 0,
			latitude        REAL NOT NULL DEFAULT 0,
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_experiences_type ON experiences(experience_type);
		CREATE INDEX IF NOT EXISTS idx_experiences_country ON experiences(country);
		CREATE INDEX IF NOT EXISTS idx_experiences_country_city ON experiences(country, city);
		CREATE INDEX IF NOT EXISTS idx_experiences_author ON experiences(author_id);
	`)
	if err != nil {
		return fmt.Errorf("creating experiences table: %w", err)
	}

	// Album photos: position preserves the order the author uploaded them in.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS experience_photos (
			experience_id TEXT NOT NULL REFERENCES experiences(id) ON DELETE CASCADE,
			position      INTEGER NOT NULL,
			url           TEXT NOT NULL,
			PRIMARY KEY (experience_id, position)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating experience_photos table: %w", err)
	}

	// Comments: the REFERENCES clause is load-bearing — an INSERT against an
	// experience that a concurrent transaction just deleted fails the foreign
	// key check instead of creating an orphan.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			id            TEXT PRIMARY KEY,
			experience_id TEXT NOT NULL REFERENCES experiences(id) ON DELETE CASCADE,
			author_id     TEXT NOT NULL,
			body          TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_comments_experience ON comments(experience_id);
		CREATE INDEX IF NOT EXISTS idx_comments_author ON comments(author_id);
	`)
	if err != nil {
		return fmt.Errorf("creating comments table: %w", err)
	}

	// Bookmarks: the composite PRIMARY KEY is the uniqueness guarantee the
	// bookmark set needs — the same (user, experience) pair can never appear
	// twice, no matter how the toggle is raced.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS bookmarks (
			user_id       TEXT NOT NULL,
			experience_id TEXT NOT NULL REFERENCES experiences(id) ON DELETE CASCADE,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, experience_id)
		);
		CREATE INDEX IF NOT EXISTS idx_bookmarks_experience ON bookmarks(experience_id);
	`)
	if err != nil {
		return fmt.Errorf("creating bookmarks table: %w", err)
	}

	return nil
}
