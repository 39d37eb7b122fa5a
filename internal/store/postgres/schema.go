// Package postgres provides the PostgreSQL persistence sink for diarization
// sessions.
//
// Each completed session produces one row in sessions (id assigned by the
// database) and one row per attributed segment in speech_segments. Enrolled
// speaker profiles may additionally be stored in speaker_profiles with a
// pgvector column, which enables server-side nearest-profile lookups by
// cosine distance. The pgvector extension must be available in the target
// database; [Migrate] installs it via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.New(ctx, dsn, 39)
//	if err != nil { … }
//	defer store.Close()
//
//	id, _ := store.CreateSession(ctx)
//	for _, att := range attributions {
//	    _ = store.InsertSegment(ctx, id, att)
//	}
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id          BIGSERIAL    PRIMARY KEY,
    started_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// speech_segments stores start_time/end_time as HH:MM:SS.mmm strings —
// wall-clock offsets relative to session start. Existing consumers read the
// column as text, so the format is load-bearing.
const ddlSpeechSegments = `
CREATE TABLE IF NOT EXISTS speech_segments (
    id           BIGSERIAL         PRIMARY KEY,
    session_id   BIGINT            NOT NULL REFERENCES sessions (id),
    speaker_type TEXT              NOT NULL,
    start_time   TEXT              NOT NULL,
    end_time     TEXT              NOT NULL,
    text         TEXT              NOT NULL DEFAULT '',
    similarity   DOUBLE PRECISION  NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_speech_segments_session_id
    ON speech_segments (session_id);
`

const ddlVectorExtension = `CREATE EXTENSION IF NOT EXISTS vector;`

// ddlSpeakerProfiles carries a %d placeholder for the embedding dimension.
const ddlSpeakerProfiles = `
CREATE TABLE IF NOT EXISTS speaker_profiles (
    name        TEXT         PRIMARY KEY,
    embedding   vector(%d)   NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// Migrate creates all sink tables and the pgvector extension if they do not
// exist. profileDimensions fixes the speaker_profiles vector width; changing
// it after the first migration requires a manual schema change.
func Migrate(ctx context.Context, pool *pgxpool.Pool, profileDimensions int) error {
	if profileDimensions <= 0 {
		return fmt.Errorf("postgres: profile dimensions must be positive, got %d", profileDimensions)
	}
	statements := []string{
		ddlVectorExtension,
		ddlSessions,
		ddlSpeechSegments,
		fmt.Sprintf(ddlSpeakerProfiles, profileDimensions),
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}
