/*
Package cache implements a small SQLite database of previous conversions so
that rebuilding unchanged assets can skip the conversion entirely.

Entries are keyed by a SHA-1 digest over everything that affects the output:
the source bitmap, any palette file and the conversion options.
*/
package cache

import (
	"crypto/sha1"
	"database/sql"
	"fmt"
	"hash"
	"io"

	_ "github.com/mattn/go-sqlite3"
)

// DB is a conversion cache.
type DB struct {
	db *sql.DB
}

// Entry holds the outputs of one conversion.
type Entry struct {
	Pixels  []byte
	Palette []byte // hardware palette side file, nil if none was written
}

// Open opens or creates the cache database in the named file.
func Open(file string) (*DB, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS conversion (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, pixels BLOB NOT NULL, palette BLOB)"); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{
		db: db,
	}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.db.Close()
}

// Find returns the entry stored under key, or nil if there is none.
func (db *DB) Find(key string) (*Entry, error) {
	var e Entry
	switch err := db.db.QueryRow("SELECT pixels, palette FROM conversion WHERE sha1 = ?", key).Scan(&e.Pixels, &e.Palette); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return &e, nil
	default:
		return nil, err
	}
}

// Add stores e under key, replacing any previous entry.
func (db *DB) Add(key string, e *Entry) error {
	// Store NULL rather than an empty blob
	var palette interface{}
	if e.Palette != nil {
		palette = e.Palette
	}

	if _, err := db.db.Exec("INSERT OR REPLACE INTO conversion (sha1, pixels, palette) VALUES (?, ?, ?)", key, e.Pixels, palette); err != nil {
		return err
	}
	return nil
}

// Key accumulates the inputs of a conversion into a cache key.
type Key struct {
	h hash.Hash
}

// NewKey returns an empty Key.
func NewKey() *Key {
	return &Key{h: sha1.New()}
}

// Writer returns a writer that adds everything written to it to the key,
// suitable for use with io.TeeReader.
func (k *Key) Writer() io.Writer {
	return k.h
}

// Add adds a labelled value to the key.
func (k *Key) Add(label string, value interface{}) {
	fmt.Fprintf(k.h, "%s=%v\n", label, value)
}

// String returns the hex encoded digest.
func (k *Key) String() string {
	return fmt.Sprintf("%X", k.h.Sum(nil))
}
