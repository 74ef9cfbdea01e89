// Package store persists stored assets and their transcript records in
// SQLite. Rows are keyed by opaque ids minted at insert time; transcript
// writes are last-write-wins per asset.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"video-scribe-go/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes shape.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different build.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages asset persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the asset database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Put records one uploaded asset and returns it with a freshly minted id.
// The caller must have durably written the file at storagePath first.
func (s *Store) Put(ctx context.Context, name, storagePath string) (types.StoredAsset, error) {
	asset := types.StoredAsset{
		ID:          uuid.New().String(),
		Name:        name,
		StoragePath: storagePath,
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO assets (id, name, storage_path, created_at) VALUES (?, ?, ?, ?)",
		asset.ID, asset.Name, asset.StoragePath, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return types.StoredAsset{}, fmt.Errorf("insert asset: %w", err)
	}
	return asset, nil
}

// Get looks up one stored asset by id.
func (s *Store) Get(ctx context.Context, id string) (types.StoredAsset, error) {
	var asset types.StoredAsset
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, storage_path FROM assets WHERE id = ?", id,
	).Scan(&asset.ID, &asset.Name, &asset.StoragePath)
	if errors.Is(err, sql.ErrNoRows) {
		return types.StoredAsset{}, types.ErrAssetNotFound
	}
	if err != nil {
		return types.StoredAsset{}, fmt.Errorf("select asset: %w", err)
	}
	return asset, nil
}

// SetTranscript stores the transcript for an asset, replacing any previous
// value.
func (s *Store) SetTranscript(ctx context.Context, id, text string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE assets SET transcript = ? WHERE id = ?", text, id,
	)
	if err != nil {
		return fmt.Errorf("update transcript: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transcript: %w", err)
	}
	if affected == 0 {
		return types.ErrAssetNotFound
	}
	return nil
}

// Transcript returns the asset's transcript text and whether one has been
// stored yet.
func (s *Store) Transcript(ctx context.Context, id string) (string, bool, error) {
	var text sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT transcript FROM assets WHERE id = ?", id,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, types.ErrAssetNotFound
	}
	if err != nil {
		return "", false, fmt.Errorf("select transcript: %w", err)
	}
	return text.String, text.Valid, nil
}

// List returns all stored assets, newest first.
func (s *Store) List(ctx context.Context) ([]types.StoredAsset, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, storage_path FROM assets ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []types.StoredAsset
	for rows.Next() {
		var asset types.StoredAsset
		if err := rows.Scan(&asset.ID, &asset.Name, &asset.StoragePath); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, asset)
	}
	return out, rows.Err()
}
