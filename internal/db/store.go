package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jwulff/meetsync/internal/transcript"
)

const schema = `
	CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		createdAt REAL NOT NULL,
		updatedAt REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS segments (
		meetingId TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
		sequenceNumber INTEGER NOT NULL,
		id TEXT NOT NULL,
		speaker TEXT NOT NULL DEFAULT '',
		startTime REAL NOT NULL,
		endTime REAL NOT NULL,
		text TEXT NOT NULL,
		words TEXT NOT NULL DEFAULT '[]',
		createdAt REAL NOT NULL,
		PRIMARY KEY (meetingId, sequenceNumber)
	);
`

// Store is the transcript cache.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".cache")
	}
	return filepath.Join(dir, "meetsync", "meetsync.sqlite")
}

// Open opens or creates the database with WAL and ensures the schema.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	return open(dsn, true)
}

// OpenReadOnly opens an existing database without write access.
func OpenReadOnly(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	return open(dsn, false)
}

func open(dsn string, migrate bool) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: SQLite has a single writer and :memory: databases are
	// per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if migrate {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveMeeting inserts or updates a meeting's title and status.
func (s *Store) SaveMeeting(ctx context.Context, m Meeting) error {
	now := unixFromTime(s.now())
	created := now
	if !m.CreatedAt.IsZero() {
		created = unixFromTime(m.CreatedAt)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meetings (id, title, status, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = CASE WHEN excluded.title = '' THEN meetings.title ELSE excluded.title END,
			status = CASE WHEN excluded.status = '' THEN meetings.status ELSE excluded.status END,
			updatedAt = excluded.updatedAt
	`, m.ID, m.Title, m.Status, created, now)
	if err != nil {
		return fmt.Errorf("save meeting: %w", err)
	}
	return nil
}

// AppendSegment adds seg after the meeting's last cached segment, creating
// the meeting row if needed.
func (s *Store) AppendSegment(ctx context.Context, meetingID string, seg transcript.Segment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := unixFromTime(s.now())
	if err := ensureMeeting(ctx, tx, meetingID, now); err != nil {
		return err
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequenceNumber) + 1, 0) FROM segments WHERE meetingId = ?`,
		meetingID).Scan(&next); err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if err := insertSegment(ctx, tx, meetingID, next, seg, now); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceTranscript swaps the meeting's cached transcript for segs.
func (s *Store) ReplaceTranscript(ctx context.Context, meetingID string, segs []transcript.Segment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := unixFromTime(s.now())
	if err := ensureMeeting(ctx, tx, meetingID, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE meetingId = ?`, meetingID); err != nil {
		return fmt.Errorf("clear segments: %w", err)
	}
	for i, seg := range segs {
		if err := insertSegment(ctx, tx, meetingID, i, seg, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func ensureMeeting(ctx context.Context, tx *sql.Tx, id string, now float64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO meetings (id, createdAt, updatedAt) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updatedAt = excluded.updatedAt
	`, id, now, now)
	if err != nil {
		return fmt.Errorf("ensure meeting: %w", err)
	}
	return nil
}

func insertSegment(ctx context.Context, tx *sql.Tx, meetingID string, seq int, seg transcript.Segment, now float64) error {
	words := seg.Words
	if words == nil {
		words = []transcript.Word{}
	}
	data, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("marshal words: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO segments (meetingId, sequenceNumber, id, speaker, startTime, endTime, text, words, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, meetingID, seq, seg.ID, seg.Speaker, seg.StartTime, seg.EndTime, seg.Text, string(data), now)
	if err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	return nil
}

// Transcript returns the cached segments of a meeting in order.
func (s *Store) Transcript(ctx context.Context, meetingID string) ([]transcript.Segment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, speaker, startTime, endTime, text, words
		FROM segments
		WHERE meetingId = ?
		ORDER BY sequenceNumber ASC
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segs []transcript.Segment
	for rows.Next() {
		var seg transcript.Segment
		var words string
		if err := rows.Scan(&seg.ID, &seg.Speaker, &seg.StartTime, &seg.EndTime, &seg.Text, &words); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		if err := json.Unmarshal([]byte(words), &seg.Words); err != nil {
			return nil, fmt.Errorf("unmarshal words: %w", err)
		}
		if len(seg.Words) == 0 {
			seg.Words = nil
		}
		segs = append(segs, seg)
	}
	return segs, rows.Err()
}

const meetingColumns = `
	SELECT m.id, m.title, m.status, m.createdAt, m.updatedAt,
		(SELECT COUNT(*) FROM segments s WHERE s.meetingId = m.id)
	FROM meetings m
`

// Meetings returns every cached meeting, most recently updated first.
func (s *Store) Meetings(ctx context.Context) ([]Meeting, error) {
	rows, err := s.db.QueryContext(ctx, meetingColumns+` ORDER BY m.updatedAt DESC`)
	if err != nil {
		return nil, fmt.Errorf("query meetings: %w", err)
	}
	defer rows.Close()

	var out []Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Meeting returns one cached meeting, or nil when it is not cached.
func (s *Store) Meeting(ctx context.Context, id string) (*Meeting, error) {
	return s.one(ctx, s.db.QueryRowContext(ctx, meetingColumns+` WHERE m.id = ?`, id))
}

// LatestMeeting returns the most recently updated meeting, or nil.
func (s *Store) LatestMeeting(ctx context.Context) (*Meeting, error) {
	return s.one(ctx, s.db.QueryRowContext(ctx, meetingColumns+` ORDER BY m.updatedAt DESC LIMIT 1`))
}

func (s *Store) one(_ context.Context, row *sql.Row) (*Meeting, error) {
	m, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeeting(r scanner) (*Meeting, error) {
	var m Meeting
	var createdAt, updatedAt float64
	if err := r.Scan(&m.ID, &m.Title, &m.Status, &createdAt, &updatedAt, &m.Segments); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan meeting: %w", err)
	}
	m.CreatedAt = timeFromUnix(createdAt)
	m.UpdatedAt = timeFromUnix(updatedAt)
	return &m, nil
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
