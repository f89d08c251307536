package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:quiz.db?cache=shared&mode=rwc"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/quiz?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// one connection: sqlite serialises writers anyway, and pragmas are per-connection
		db.SetMaxOpenConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'student',
  password_hash TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  question_text TEXT NOT NULL,
  media_json TEXT NOT NULL DEFAULT '[]',
  options_json TEXT NOT NULL,
  correct_answer INTEGER NOT NULL,
  explanation TEXT NOT NULL DEFAULT '',
  explanation_media_json TEXT NOT NULL DEFAULT '[]',
  category TEXT NOT NULL,
  subjects_json TEXT NOT NULL DEFAULT '[]',
  difficulty TEXT NOT NULL DEFAULT 'medium',
  tags_json TEXT NOT NULL DEFAULT '[]',
  source_url TEXT NOT NULL DEFAULT '',
  created_by TEXT NOT NULL DEFAULT '',
  approved BOOLEAN NOT NULL DEFAULT FALSE,
  has_media BOOLEAN NOT NULL DEFAULT FALSE,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS question_taxonomy (
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,  -- subject|topic|tag
  value TEXT NOT NULL,
  PRIMARY KEY (question_id, kind, value)
);

CREATE TABLE IF NOT EXISTS test_sessions (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  total_questions INTEGER NOT NULL,
  total_options INTEGER NOT NULL DEFAULT 0,
  correct_answers INTEGER NOT NULL DEFAULT 0,
  incorrect_answers INTEGER NOT NULL DEFAULT 0,
  flagged_answers INTEGER NOT NULL DEFAULT 0,
  filters_json TEXT NOT NULL DEFAULT '{}',
  status TEXT NOT NULL CHECK (status IN ('proceeding','succeeded','canceled')),
  started_at INTEGER NOT NULL,
  completed_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_test_sessions_student ON test_sessions(student_id, started_at);

CREATE TABLE IF NOT EXISTS session_questions (
  session_id TEXT NOT NULL REFERENCES test_sessions(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  question_id TEXT NOT NULL,
  PRIMARY KEY (session_id, position)
);

CREATE TABLE IF NOT EXISTS student_questions (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  question_id TEXT NOT NULL,
  session_id TEXT NOT NULL REFERENCES test_sessions(id) ON DELETE CASCADE,
  options_json TEXT NOT NULL,
  correct_answer INTEGER NOT NULL,
  explanation TEXT NOT NULL DEFAULT '',
  explanation_media_json TEXT NOT NULL DEFAULT '[]',
  category TEXT NOT NULL,
  selected_answer INTEGER NOT NULL CHECK (selected_answer >= -1),
  is_correct BOOLEAN NOT NULL DEFAULT FALSE,
  answered_at INTEGER NOT NULL,
  last_updated_at INTEGER NOT NULL,
  UNIQUE (student_id, question_id, session_id)
);
CREATE INDEX IF NOT EXISTS idx_student_questions_student ON student_questions(student_id, last_updated_at);
CREATE INDEX IF NOT EXISTS idx_student_questions_session ON student_questions(session_id);

CREATE TABLE IF NOT EXISTS student_question_tags (
  entry_id TEXT NOT NULL REFERENCES student_questions(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,  -- subject|topic|tag
  value TEXT NOT NULL,
  position INTEGER NOT NULL,
  PRIMARY KEY (entry_id, kind, value)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,   -- e.g., AnswerSubmitted
  key TEXT NOT NULL,   -- natural key: session id
  data TEXT NOT NULL,  -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'student',
  password_hash TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  question_text TEXT NOT NULL,
  media_json TEXT NOT NULL DEFAULT '[]',
  options_json TEXT NOT NULL,
  correct_answer INTEGER NOT NULL,
  explanation TEXT NOT NULL DEFAULT '',
  explanation_media_json TEXT NOT NULL DEFAULT '[]',
  category TEXT NOT NULL,
  subjects_json TEXT NOT NULL DEFAULT '[]',
  difficulty TEXT NOT NULL DEFAULT 'medium',
  tags_json TEXT NOT NULL DEFAULT '[]',
  source_url TEXT NOT NULL DEFAULT '',
  created_by TEXT NOT NULL DEFAULT '',
  approved BOOLEAN NOT NULL DEFAULT FALSE,
  has_media BOOLEAN NOT NULL DEFAULT FALSE,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS question_taxonomy (
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  value TEXT NOT NULL,
  PRIMARY KEY (question_id, kind, value)
);

CREATE TABLE IF NOT EXISTS test_sessions (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  total_questions INTEGER NOT NULL,
  total_options INTEGER NOT NULL DEFAULT 0,
  correct_answers INTEGER NOT NULL DEFAULT 0,
  incorrect_answers INTEGER NOT NULL DEFAULT 0,
  flagged_answers INTEGER NOT NULL DEFAULT 0,
  filters_json TEXT NOT NULL DEFAULT '{}',
  status TEXT NOT NULL CHECK (status IN ('proceeding','succeeded','canceled')),
  started_at BIGINT NOT NULL,
  completed_at BIGINT
);
CREATE INDEX IF NOT EXISTS idx_test_sessions_student ON test_sessions(student_id, started_at);

CREATE TABLE IF NOT EXISTS session_questions (
  session_id TEXT NOT NULL REFERENCES test_sessions(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  question_id TEXT NOT NULL,
  PRIMARY KEY (session_id, position)
);

CREATE TABLE IF NOT EXISTS student_questions (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  question_id TEXT NOT NULL,
  session_id TEXT NOT NULL REFERENCES test_sessions(id) ON DELETE CASCADE,
  options_json TEXT NOT NULL,
  correct_answer INTEGER NOT NULL,
  explanation TEXT NOT NULL DEFAULT '',
  explanation_media_json TEXT NOT NULL DEFAULT '[]',
  category TEXT NOT NULL,
  selected_answer INTEGER NOT NULL CHECK (selected_answer >= -1),
  is_correct BOOLEAN NOT NULL DEFAULT FALSE,
  answered_at BIGINT NOT NULL,
  last_updated_at BIGINT NOT NULL,
  UNIQUE (student_id, question_id, session_id)
);
CREATE INDEX IF NOT EXISTS idx_student_questions_student ON student_questions(student_id, last_updated_at);
CREATE INDEX IF NOT EXISTS idx_student_questions_session ON student_questions(session_id);

CREATE TABLE IF NOT EXISTS student_question_tags (
  entry_id TEXT NOT NULL REFERENCES student_questions(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  value TEXT NOT NULL,
  position INTEGER NOT NULL,
  PRIMARY KEY (entry_id, kind, value)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
