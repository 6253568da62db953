package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/spellcraft/spellcraft/internal/platform/errors"
	"github.com/spellcraft/spellcraft/internal/platform/storage/sqlitemigrate"
	"github.com/spellcraft/spellcraft/internal/spell/progress"
	"github.com/spellcraft/spellcraft/internal/spell/property"
	"github.com/spellcraft/spellcraft/internal/spell/storage/sqlite/migrations"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Store is a SQLite-backed progress and object state store.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens the store at path, creating it if needed, and applies
// embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.StateFS, "state"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the underlying database. It is nil-safe.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveStudiedItem records item, replacing any stored property list for the
// same ID.
func (s *Store) SaveStudiedItem(ctx context.Context, item progress.Item) error {
	if strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("studied item id is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO studied_items (id, name, studied_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name
`, item.ID, item.Name, toMillis(s.now())); err != nil {
			return fmt.Errorf("upsert studied item: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM studied_item_properties WHERE item_id = ?`, item.ID); err != nil {
			return fmt.Errorf("clear studied item properties: %w", err)
		}
		return insertProperties(ctx, tx, `INSERT OR IGNORE INTO studied_item_properties (item_id, position, property) VALUES (?, ?, ?)`, item.ID, item.Properties)
	})
}

// LoadProgress returns every studied item in the order first studied.
func (s *Store) LoadProgress(ctx context.Context) (*progress.Progress, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT i.id, i.name, p.property
FROM studied_items i
LEFT JOIN studied_item_properties p ON p.item_id = i.id
ORDER BY i.studied_at, i.rowid, p.position
`)
	if err != nil {
		return nil, fmt.Errorf("query studied items: %w", err)
	}
	defer rows.Close()

	var items []progress.Item
	for rows.Next() {
		var (
			id, name string
			prop     sql.NullString
		)
		if err := rows.Scan(&id, &name, &prop); err != nil {
			return nil, fmt.Errorf("scan studied item: %w", err)
		}
		if len(items) == 0 || items[len(items)-1].ID != id {
			items = append(items, progress.Item{ID: id, Name: name})
		}
		if prop.Valid {
			last := &items[len(items)-1]
			last.Properties = append(last.Properties, property.Type(prop.String))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate studied items: %w", err)
	}
	return progress.New(items...), nil
}

// SaveObjectProperties replaces the stored property set of an object.
func (s *Store) SaveObjectProperties(ctx context.Context, objectID string, props []property.Type) error {
	if strings.TrimSpace(objectID) == "" {
		return fmt.Errorf("object id is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO object_states (object_id, updated_at) VALUES (?, ?)
ON CONFLICT(object_id) DO UPDATE SET updated_at = excluded.updated_at
`, objectID, toMillis(s.now())); err != nil {
			return fmt.Errorf("upsert object state: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM object_properties WHERE object_id = ?`, objectID); err != nil {
			return fmt.Errorf("clear object properties: %w", err)
		}
		return insertProperties(ctx, tx, `INSERT OR IGNORE INTO object_properties (object_id, position, property) VALUES (?, ?, ?)`, objectID, props)
	})
}

// LoadObjectProperties returns the stored property set of an object. An
// object that was never saved yields a NOT_FOUND error; a saved empty set
// yields an empty slice.
func (s *Store) LoadObjectProperties(ctx context.Context, objectID string) ([]property.Type, error) {
	var exists int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM object_states WHERE object_id = ?`, objectID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, apperrors.WithMetadata(apperrors.CodeNotFound, "object state not found", map[string]string{
			"ObjectID": objectID,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("query object state: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT property FROM object_properties WHERE object_id = ? ORDER BY position`, objectID)
	if err != nil {
		return nil, fmt.Errorf("query object properties: %w", err)
	}
	defer rows.Close()

	props := []property.Type{}
	for rows.Next() {
		var prop string
		if err := rows.Scan(&prop); err != nil {
			return nil, fmt.Errorf("scan object property: %w", err)
		}
		props = append(props, property.Type(prop))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate object properties: %w", err)
	}
	return props, nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertProperties(ctx context.Context, tx *sql.Tx, query, ownerID string, props []property.Type) error {
	for i, prop := range props {
		if _, err := tx.ExecContext(ctx, query, ownerID, i, string(prop)); err != nil {
			return fmt.Errorf("insert property %s: %w", prop, err)
		}
	}
	return nil
}
