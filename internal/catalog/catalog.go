// Package catalog implements the track metadata store: a simple keyed
// store from track_id to Track, backed by SQLite as kishore-FDI-WaveID
// and IAMAMZ-aalice-drone-detection-knn-backend keep their own metadata
// tables.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/paraswtf/fftrack/internal/fftrackerr"
)

// Track is an immutable catalog record. TrackID is assigned on ingest and
// never reused. Album and ReleaseDate are optional fields carried over
// from the original implementation's Song model; they are not required
// by the core matching path.
type Track struct {
	TrackID     uint64
	Title       string
	Artist      string
	DurationMs  int64
	Album       string
	ReleaseDate string
}

// Store is the catalog keyed store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) a SQLite catalog at dsn. dsn ==
// ":memory:" is used by tests.
func Open(dsn string) (*Store, error) {
	const op = "catalog.Open"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fftrackerr.New(op, fftrackerr.Internal, err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tracks (
			track_id     INTEGER PRIMARY KEY AUTOINCREMENT,
			title        TEXT NOT NULL,
			artist       TEXT NOT NULL,
			duration_ms  INTEGER NOT NULL,
			album        TEXT,
			release_date TEXT,
			deleted      INTEGER NOT NULL DEFAULT 0
		);
	`); err != nil {
		db.Close()
		return nil, fftrackerr.New(op, fftrackerr.Internal, err)
	}
	return &Store{db: db}, nil
}

// Put inserts a new track and returns its assigned track_id. Single-key
// atomicity is all the catalog itself provides; cross-store atomicity
// with the index is the caller's responsibility (see engine.Ingest).
func (s *Store) Put(ctx context.Context, t Track) (uint64, error) {
	const op = "catalog.Put"
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tracks (title, artist, duration_ms, album, release_date) VALUES (?, ?, ?, ?, ?)`,
		t.Title, t.Artist, t.DurationMs, t.Album, t.ReleaseDate)
	if err != nil {
		return 0, fftrackerr.New(op, fftrackerr.Internal, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fftrackerr.New(op, fftrackerr.Internal, err)
	}
	return uint64(id), nil
}

// Get returns the track with the given id. ok is false if the track does
// not exist or has been deleted.
func (s *Store) Get(ctx context.Context, trackID uint64) (Track, bool, error) {
	const op = "catalog.Get"
	row := s.db.QueryRowContext(ctx,
		`SELECT track_id, title, artist, duration_ms, COALESCE(album, ''), COALESCE(release_date, '')
		 FROM tracks WHERE track_id = ? AND deleted = 0`, trackID)
	var t Track
	err := row.Scan(&t.TrackID, &t.Title, &t.Artist, &t.DurationMs, &t.Album, &t.ReleaseDate)
	if err == sql.ErrNoRows {
		return Track{}, false, nil
	}
	if err != nil {
		return Track{}, false, fftrackerr.New(op, fftrackerr.Internal, err)
	}
	return t, true, nil
}

// Delete marks a track deleted. It never reuses the track_id.
func (s *Store) Delete(ctx context.Context, trackID uint64) error {
	const op = "catalog.Delete"
	if _, err := s.db.ExecContext(ctx, `UPDATE tracks SET deleted = 1 WHERE track_id = ?`, trackID); err != nil {
		return fftrackerr.New(op, fftrackerr.Internal, err)
	}
	return nil
}

// Iterate calls fn for every non-deleted track, in track_id order,
// stopping early if fn returns false.
func (s *Store) Iterate(ctx context.Context, fn func(Track) bool) error {
	const op = "catalog.Iterate"
	rows, err := s.db.QueryContext(ctx,
		`SELECT track_id, title, artist, duration_ms, COALESCE(album, ''), COALESCE(release_date, '')
		 FROM tracks WHERE deleted = 0 ORDER BY track_id`)
	if err != nil {
		return fftrackerr.New(op, fftrackerr.Internal, err)
	}
	defer rows.Close()
	for rows.Next() {
		var t Track
		if err := rows.Scan(&t.TrackID, &t.Title, &t.Artist, &t.DurationMs, &t.Album, &t.ReleaseDate); err != nil {
			return fftrackerr.New(op, fftrackerr.Internal, err)
		}
		if !fn(t) {
			break
		}
	}
	return rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }

func (t Track) String() string {
	return fmt.Sprintf("%d: %s - %s (%dms)", t.TrackID, t.Artist, t.Title, t.DurationMs)
}
