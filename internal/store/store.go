// Package store persists retired dogs (players who idled past the
// retirement threshold) to a durable, queryable record store, mirroring
// the reference server's db.h/db.cpp. Unlike the live game state (see
// internal/snapshot), retiree records are append-only and ranked for
// a leaderboard, which is why they live in a relational table instead
// of a JSON blob.
package store

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "github.com/lib/pq"
)

// RetiredDog is one row of the leaderboard.
type RetiredDog struct {
	Name       string
	Score      uint32
	PlayTimeMS int64
}

// RetireeStore is the durable record of dogs that have left the game.
// Save appends a record; List returns a page ranked score DESC,
// play_time_ms ASC, name ASC, matching the reference server's
// "ORDER BY score DESC, play_time_ms, name".
type RetireeStore interface {
	Save(dog RetiredDog) error
	List(start, maxSize int) ([]RetiredDog, error)
	Close() error
}

// PostgresStore is a RetireeStore backed by PostgreSQL via lib/pq,
// grounded on db.cpp's RecordDB (same table, same ranking query; the
// reference implementation's hand-rolled connection_pool::ConnectionPool
// is replaced by database/sql's built-in pool, which already serializes
// and reuses connections).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens dbURL and ensures the retired_players table
// exists.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS retired_players (
		id SERIAL PRIMARY KEY,
		name varchar(100) NOT NULL,
		score integer NOT NULL,
		play_time_ms integer NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Save inserts a new retiree record.
func (s *PostgresStore) Save(dog RetiredDog) error {
	const q = `INSERT INTO retired_players (name, score, play_time_ms) VALUES ($1, $2, $3)`
	if _, err := s.db.Exec(q, dog.Name, dog.Score, dog.PlayTimeMS); err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	return nil
}

// List returns up to maxSize records starting at offset start, ranked
// score DESC, play_time_ms ASC, name ASC. A maxSize <= 0 means no limit.
func (s *PostgresStore) List(start, maxSize int) ([]RetiredDog, error) {
	q := "SELECT name, score, play_time_ms FROM retired_players ORDER BY score DESC, play_time_ms ASC, name ASC"
	args := []any{}
	if maxSize > 0 {
		q += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, maxSize)
	}
	if start > 0 {
		q += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, start)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []RetiredDog
	for rows.Next() {
		var dog RetiredDog
		if err := rows.Scan(&dog.Name, &dog.Score, &dog.PlayTimeMS); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, dog)
	}
	return out, rows.Err()
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// MemoryStore is an in-process RetireeStore used by tests and by
// cmd/dogserver when run without --db-url.
type MemoryStore struct {
	records []RetiredDog
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save appends dog to the in-memory list.
func (s *MemoryStore) Save(dog RetiredDog) error {
	s.records = append(s.records, dog)
	return nil
}

// List returns a ranked, paginated view of the in-memory records.
func (s *MemoryStore) List(start, maxSize int) ([]RetiredDog, error) {
	ranked := make([]RetiredDog, len(s.records))
	copy(ranked, s.records)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.PlayTimeMS != b.PlayTimeMS {
			return a.PlayTimeMS < b.PlayTimeMS
		}
		return a.Name < b.Name
	})

	if start < 0 {
		start = 0
	}
	if start >= len(ranked) {
		return nil, nil
	}
	ranked = ranked[start:]
	if maxSize > 0 && maxSize < len(ranked) {
		ranked = ranked[:maxSize]
	}
	return ranked, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// DurationToMS converts a play-time duration to the millisecond
// integer the schema stores.
func DurationToMS(d time.Duration) int64 {
	return d.Milliseconds()
}
