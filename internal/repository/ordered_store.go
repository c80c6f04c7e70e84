package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"taskboard/internal/ordering"
)

// Collection describes one ordered table and the column that points at its parent.
type Collection struct {
	Table        string
	ParentColumn string
}

var (
	BoardCollection  = Collection{Table: "boards", ParentColumn: "owner_id"}
	ColumnCollection = Collection{Table: "columns", ParentColumn: "board_id"}
	TaskCollection   = Collection{Table: "tasks", ParentColumn: "column_id"}
)

// LockKey names the per-parent lock taken for the duration of a reindex.
func (c Collection) LockKey(parentID uuid.UUID) string {
	return c.Table + ":" + parentID.String()
}

// postgres error codes that mean another transaction got there first
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgForeignKeyViolation  = "23503"
)

// OrderedStore applies position rewrites for ordered collections atomically.
type OrderedStore struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewOrderedStore(db *gorm.DB, lockTimeout time.Duration) *OrderedStore {
	return &OrderedStore{db: db, lockTimeout: lockTimeout}
}

// InTx runs fn in a single transaction holding the parent locks named by keys.
// Keys are locked in sorted order so two moves between the same parents cannot
// deadlock each other.
func (s *OrderedStore) InTx(ctx context.Context, keys []string, fn func(tx *gorm.DB) error) error {
	keys = uniqueSorted(keys)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lock(tx, keys); err != nil {
			return err
		}
		return fn(tx)
	})
	return classify(err)
}

func (s *OrderedStore) lock(tx *gorm.DB, keys []string) error {
	// Only postgres needs explicit locks; sqlite serializes writers itself.
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	if s.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}
	for _, key := range keys {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", key).Error; err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
	}
	return nil
}

// Members returns the current children of parentID ordered by position, then id.
// Call it with the transaction handed to InTx so the snapshot is not stale.
func (s *OrderedStore) Members(tx *gorm.DB, c Collection, parentID uuid.UUID) ([]ordering.Member, error) {
	var members []ordering.Member
	err := tx.Table(c.Table).
		Select("id, position").
		Where(c.ParentColumn+" = ?", parentID).
		Order("position, id").
		Scan(&members).Error
	if err != nil {
		return nil, fmt.Errorf("load %s members: %w", c.Table, err)
	}
	return members, nil
}

// ApplyReindex writes the given positions. Every row must exist; a missing row
// means the membership changed under us and the transaction is rolled back.
func (s *OrderedStore) ApplyReindex(tx *gorm.DB, c Collection, assignments []ordering.Assignment) error {
	for _, a := range assignments {
		result := tx.Table(c.Table).Where("id = ?", a.ID).Update("position", a.Position)
		if result.Error != nil {
			return fmt.Errorf("reindex %s: %w", c.Table, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("reindex %s %s: %w", c.Table, a.ID, ErrConflict)
		}
	}
	return nil
}

// Reparent points childID at a new parent. Positions are written separately.
func (s *OrderedStore) Reparent(tx *gorm.DB, c Collection, childID, parentID uuid.UUID) error {
	result := tx.Table(c.Table).Where("id = ?", childID).Update(c.ParentColumn, parentID)
	if result.Error != nil {
		return fmt.Errorf("reparent %s: %w", c.Table, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("reparent %s %s: %w", c.Table, childID, ErrConflict)
	}
	return nil
}

// Compact closes any gaps left in parentID's children, e.g. after a delete.
func (s *OrderedStore) Compact(tx *gorm.DB, c Collection, parentID uuid.UUID) (int, error) {
	members, err := s.Members(tx, c, parentID)
	if err != nil {
		return 0, err
	}
	changed := ordering.Changed(members, ordering.Normalize(members))
	if err := s.ApplyReindex(tx, c, changed); err != nil {
		return 0, err
	}
	return len(changed), nil
}

// NonDenseParents lists parents whose children positions are not exactly 0..n-1.
func (s *OrderedStore) NonDenseParents(ctx context.Context, c Collection) ([]uuid.UUID, error) {
	var parents []uuid.UUID
	err := s.db.WithContext(ctx).Table(c.Table).
		Group(c.ParentColumn).
		Having("MIN(position) <> 0 OR MAX(position) <> COUNT(*) - 1 OR COUNT(DISTINCT position) <> COUNT(*)").
		Pluck(c.ParentColumn, &parents).Error
	if err != nil {
		return nil, fmt.Errorf("scan %s density: %w", c.Table, err)
	}
	return parents, nil
}

// Repair compacts one parent under its lock and returns how many rows moved.
func (s *OrderedStore) Repair(ctx context.Context, c Collection, parentID uuid.UUID) (int, error) {
	var moved int
	err := s.InTx(ctx, []string{c.LockKey(parentID)}, func(tx *gorm.DB) error {
		var err error
		moved, err = s.Compact(tx, c, parentID)
		return err
	})
	return moved, err
}

// classify turns lock and serialization failures into ErrConflict. A foreign key
// violation means the parent was deleted underneath the write and becomes ErrNotFound.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrConflict) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.Message)
		}
	}
	return err
}

func uniqueSorted(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
