// Package sqlite provides a SQLite-backed player store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/Elenyx/discordrpg/engine/save"
	"github.com/Elenyx/discordrpg/storage"
	"github.com/Elenyx/discordrpg/storage/sqlite/migrations"
	"github.com/Elenyx/discordrpg/types"
)

// queryer is the subset of *sql.DB and *sql.Tx the store needs.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists players in SQLite. Each row holds the versioned JSON
// encoding of one player.
type Store struct {
	sqlDB *sql.DB
	q     queryer
	now   func() time.Time
}

var (
	_ storage.PlayerStore = (*Store)(nil)
	_ storage.Transactor  = (*Store)(nil)
)

// Open opens a SQLite player store and applies embedded migrations.
// The special path ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, q: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) withTx(tx *sql.Tx) *Store {
	cloned := *s
	cloned.q = tx
	return &cloned
}

// FindByActorID loads one player.
func (s *Store) FindByActorID(ctx context.Context, actorID string) (*types.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		data     []byte
		revision int64
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT data, revision FROM players WHERE actor_id = ?`, actorID,
	).Scan(&data, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	p, err := save.DecodePlayer(data)
	if err != nil {
		return nil, fmt.Errorf("decode player %s: %w", actorID, err)
	}
	p.Revision = revision
	return p, nil
}

// Save inserts a new player (Revision 0) or updates one whose stored
// revision still matches.
func (s *Store) Save(ctx context.Context, p *types.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil || strings.TrimSpace(p.ActorID) == "" {
		return fmt.Errorf("actor id is required")
	}

	next := *p
	next.Revision = p.Revision + 1
	data, err := save.EncodePlayer(&next)
	if err != nil {
		return fmt.Errorf("encode player: %w", err)
	}
	updatedAt := s.now().UTC().UnixMilli()

	if p.Revision == 0 {
		_, err := s.q.ExecContext(ctx,
			`INSERT INTO players (actor_id, revision, active_quest_id, data, updated_at) VALUES (?, ?, ?, ?, ?)`,
			p.ActorID, next.Revision, p.ActiveQuestID, data, updatedAt,
		)
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("insert player: %w", err)
		}
		p.Revision = next.Revision
		return nil
	}

	res, err := s.q.ExecContext(ctx,
		`UPDATE players SET revision = ?, active_quest_id = ?, data = ?, updated_at = ?
		 WHERE actor_id = ? AND revision = ?`,
		next.Revision, p.ActiveQuestID, data, updatedAt, p.ActorID, p.Revision,
	)
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update player rows: %w", err)
	}
	if n == 0 {
		return storage.ErrConflict
	}
	p.Revision = next.Revision
	return nil
}

// Destroy deletes a player.
func (s *Store) Destroy(ctx context.Context, actorID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `DELETE FROM players WHERE actor_id = ?`, actorID)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete player rows: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// WithinTx runs fn in one SQLite transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.PlayerStore) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(ctx, s.withTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
