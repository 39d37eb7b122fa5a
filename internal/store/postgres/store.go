package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/kymlab/voxsplit/internal/diarize"
)

// Store is the PostgreSQL-backed persistence sink. It holds a single
// [pgxpool.Pool]; all methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store, establishes a connection pool to the database at dsn,
// registers pgvector types on every connection, and runs [Migrate] to ensure
// all required tables exist.
//
// profileDimensions must match the extractor's embedding length (e.g., 39 for
// 13 MFCCs with first and second deltas).
func New(ctx context.Context, dsn string, profileDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	// Register pgvector types so the embedding column can be scanned into and
	// inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if err := Migrate(ctx, pool, profileDimensions); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping probes the database connection. Used by the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateSession inserts a new session row and returns its database-assigned
// identifier.
func (s *Store) CreateSession(ctx context.Context) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sessions DEFAULT VALUES RETURNING id`,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: create session: %w", err)
	}
	return id, nil
}

// InsertSegment appends one attributed segment under sessionID. Segment
// boundaries are stored as HH:MM:SS.mmm strings relative to session start.
func (s *Store) InsertSegment(ctx context.Context, sessionID int64, att diarize.Attribution) error {
	const q = `
		INSERT INTO speech_segments
		    (session_id, speaker_type, start_time, end_time, text, similarity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, q,
		sessionID,
		string(att.Label),
		FormatClock(att.Start),
		FormatClock(att.End),
		att.Text,
		att.Similarity,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert segment: %w", err)
	}
	return nil
}

// SessionSegments returns all segments stored for sessionID in insertion
// order. Intended for inspection tooling and tests.
func (s *Store) SessionSegments(ctx context.Context, sessionID int64) ([]SegmentRecord, error) {
	const q = `
		SELECT speaker_type, start_time, end_time, text, similarity
		FROM   speech_segments
		WHERE  session_id = $1
		ORDER  BY id`

	rows, err := s.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: session segments: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SegmentRecord, error) {
		var r SegmentRecord
		err := row.Scan(&r.SpeakerType, &r.StartTime, &r.EndTime, &r.Text, &r.Similarity)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan segments: %w", err)
	}
	return records, nil
}

// SegmentRecord is one speech_segments row as stored.
type SegmentRecord struct {
	SpeakerType string
	StartTime   string
	EndTime     string
	Text        string
	Similarity  float64
}

// SaveProfile upserts an enrolled speaker profile under name.
func (s *Store) SaveProfile(ctx context.Context, name string, embedding []float32) error {
	const q = `
		INSERT INTO speaker_profiles (name, embedding)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE
		SET embedding = EXCLUDED.embedding, updated_at = now()`

	_, err := s.pool.Exec(ctx, q, name, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("postgres: save profile %q: %w", name, err)
	}
	return nil
}

// LoadProfile returns the embedding stored under name.
func (s *Store) LoadProfile(ctx context.Context, name string) ([]float32, error) {
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx,
		`SELECT embedding FROM speaker_profiles WHERE name = $1`, name,
	).Scan(&vec)
	if err != nil {
		return nil, fmt.Errorf("postgres: load profile %q: %w", name, err)
	}
	return vec.Slice(), nil
}

// NearestProfile returns the stored profile closest to embedding by cosine
// distance, together with that distance (0 = identical direction). Useful for
// threshold calibration: feed it a block embedding and see which enrolled
// speaker it lands nearest to, and how far.
func (s *Store) NearestProfile(ctx context.Context, embedding []float32) (name string, distance float64, err error) {
	const q = `
		SELECT name, embedding <=> $1 AS distance
		FROM   speaker_profiles
		ORDER  BY distance
		LIMIT  1`

	err = s.pool.QueryRow(ctx, q, pgvector.NewVector(embedding)).Scan(&name, &distance)
	if err != nil {
		return "", 0, fmt.Errorf("postgres: nearest profile: %w", err)
	}
	return name, distance, nil
}

// FormatClock renders a session-relative offset as HH:MM:SS.mmm with
// millisecond precision, the exact format existing segment consumers expect.
// Offsets are truncated, not rounded, to the millisecond.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	sec := int((d % time.Minute) / time.Second)
	ms := int((d % time.Second) / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, sec, ms)
}
