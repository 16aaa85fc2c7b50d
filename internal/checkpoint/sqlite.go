// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver
)

const schemaVersion = 1

// SqliteStore implements Store using SQLite.
type SqliteStore struct {
	DB *sql.DB
}

// NewSqliteStore opens (and migrates) the checkpoint database at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	db, err := openSqlite(dbPath, 5*time.Second)
	if err != nil {
		return nil, err
	}

	s := &SqliteStore{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("checkpoint store: migration failed: %w", err)
	}
	return s, nil
}

// openSqlite applies WAL and busy_timeout to every pooled connection via the DSN.
func openSqlite(dbPath string, busyTimeout time.Duration) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		dbPath, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return db, nil
}

func (s *SqliteStore) migrate() error {
	var currentVersion int
	if err := s.DB.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		id TEXT PRIMARY KEY,
		generation INTEGER NOT NULL,
		stream_offset TEXT NOT NULL,
		events INTEGER NOT NULL,
		payload BLOB,
		created_at_ns INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_checkpoints_created ON checkpoints(created_at_ns);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) Save(ctx context.Context, cp *Checkpoint) error {
	if err := ValidateID(cp.ID); err != nil {
		return err
	}
	query := `
	INSERT INTO checkpoints (id, generation, stream_offset, events, payload, created_at_ns)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		generation = excluded.generation,
		stream_offset = excluded.stream_offset,
		events = excluded.events,
		payload = excluded.payload,
		created_at_ns = excluded.created_at_ns
	`
	_, err := s.DB.ExecContext(ctx, query,
		cp.ID, int64(cp.Generation), cp.Offset, cp.Events, cp.Payload, cp.CreatedAt.UnixNano(),
	)
	return err
}

func (s *SqliteStore) Get(ctx context.Context, id string) (*Checkpoint, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, generation, stream_offset, events, payload, created_at_ns FROM checkpoints WHERE id = ?`, id)
	return scanCheckpoint(row)
}

func (s *SqliteStore) Latest(ctx context.Context) (*Checkpoint, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, generation, stream_offset, events, payload, created_at_ns FROM checkpoints
		 ORDER BY created_at_ns DESC, id DESC LIMIT 1`)
	return scanCheckpoint(row)
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}

func scanCheckpoint(row *sql.Row) (*Checkpoint, error) {
	var (
		cp        Checkpoint
		gen       int64
		createdNs int64
	)
	err := row.Scan(&cp.ID, &gen, &cp.Offset, &cp.Events, &cp.Payload, &createdNs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cp.Generation = uint64(gen)
	cp.CreatedAt = time.Unix(0, createdNs).UTC()
	return &cp, nil
}
