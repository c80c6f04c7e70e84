package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskboard/internal/database"
	"taskboard/internal/model"
	"taskboard/internal/ordering"
	"taskboard/internal/repository"
)

func setupSQLite(t *testing.T) *gorm.DB {
	db, err := database.NewSQLiteMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// seedColumn creates a board with one column holding n tasks at positions 0..n-1.
func seedColumn(t *testing.T, db *gorm.DB, n int) (*model.Column, []uuid.UUID) {
	board := &model.Board{Title: "b", OwnerID: uuid.New()}
	require.NoError(t, db.Create(board).Error)
	column := &model.Column{BoardID: board.ID, Title: "c"}
	require.NoError(t, db.Create(column).Error)

	ids := make([]uuid.UUID, n)
	for i := range ids {
		task := &model.Task{ColumnID: column.ID, Title: "t", CreatedBy: board.OwnerID, Position: i}
		require.NoError(t, db.Create(task).Error)
		ids[i] = task.ID
	}
	return column, ids
}

func TestOrderedStore_ReorderRoundTrip(t *testing.T) {
	db := setupSQLite(t)
	store := repository.NewOrderedStore(db, time.Second)
	column, ids := seedColumn(t, db, 3)
	ctx := context.Background()

	err := store.InTx(ctx, []string{repository.TaskCollection.LockKey(column.ID)}, func(tx *gorm.DB) error {
		current, err := store.Members(tx, repository.TaskCollection, column.ID)
		if err != nil {
			return err
		}
		plan, err := ordering.Reorder(current, []uuid.UUID{ids[2], ids[0], ids[1]})
		if err != nil {
			return err
		}
		return store.ApplyReindex(tx, repository.TaskCollection, ordering.Changed(current, plan))
	})
	require.NoError(t, err)

	members, err := store.Members(db, repository.TaskCollection, column.ID)
	require.NoError(t, err)
	assert.Equal(t, []ordering.Member{
		{ID: ids[2], Position: 0},
		{ID: ids[0], Position: 1},
		{ID: ids[1], Position: 2},
	}, members)
}

func TestOrderedStore_RollbackLeavesPositions(t *testing.T) {
	db := setupSQLite(t)
	store := repository.NewOrderedStore(db, time.Second)
	column, ids := seedColumn(t, db, 3)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.InTx(ctx, []string{repository.TaskCollection.LockKey(column.ID)}, func(tx *gorm.DB) error {
		if err := store.ApplyReindex(tx, repository.TaskCollection, []ordering.Assignment{{ID: ids[0], Position: 2}}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	members, err := store.Members(db, repository.TaskCollection, column.ID)
	require.NoError(t, err)
	assert.Equal(t, ids, ordering.IDs(members))
	assert.True(t, ordering.IsDense(members))
}

func TestOrderedStore_ApplyReindexMissingRowConflicts(t *testing.T) {
	db := setupSQLite(t)
	store := repository.NewOrderedStore(db, time.Second)
	column, _ := seedColumn(t, db, 1)

	err := store.InTx(context.Background(), []string{repository.TaskCollection.LockKey(column.ID)}, func(tx *gorm.DB) error {
		return store.ApplyReindex(tx, repository.TaskCollection, []ordering.Assignment{{ID: uuid.New(), Position: 0}})
	})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestOrderedStore_ReparentAndCompact(t *testing.T) {
	db := setupSQLite(t)
	store := repository.NewOrderedStore(db, time.Second)
	source, ids := seedColumn(t, db, 3)
	dest := &model.Column{BoardID: source.BoardID, Title: "d", Position: 1}
	require.NoError(t, db.Create(dest).Error)
	ctx := context.Background()

	keys := []string{repository.TaskCollection.LockKey(source.ID), repository.TaskCollection.LockKey(dest.ID)}
	err := store.InTx(ctx, keys, func(tx *gorm.DB) error {
		if err := store.Reparent(tx, repository.TaskCollection, ids[1], dest.ID); err != nil {
			return err
		}
		if err := store.ApplyReindex(tx, repository.TaskCollection, []ordering.Assignment{{ID: ids[1], Position: 0}}); err != nil {
			return err
		}
		moved, err := store.Compact(tx, repository.TaskCollection, source.ID)
		assert.Equal(t, 1, moved)
		return err
	})
	require.NoError(t, err)

	remaining, err := store.Members(db, repository.TaskCollection, source.ID)
	require.NoError(t, err)
	assert.Equal(t, []ordering.Member{{ID: ids[0], Position: 0}, {ID: ids[2], Position: 1}}, remaining)

	moved, err := store.Members(db, repository.TaskCollection, dest.ID)
	require.NoError(t, err)
	assert.Equal(t, []ordering.Member{{ID: ids[1], Position: 0}}, moved)
}

func TestOrderedStore_NonDenseParentsAndRepair(t *testing.T) {
	db := setupSQLite(t)
	store := repository.NewOrderedStore(db, time.Second)
	healthy, _ := seedColumn(t, db, 2)
	broken, ids := seedColumn(t, db, 3)
	ctx := context.Background()

	// Punch a gap and a duplicate into the broken column.
	require.NoError(t, db.Model(&model.Task{}).Where("id = ?", ids[0]).Update("position", 4).Error)
	require.NoError(t, db.Model(&model.Task{}).Where("id = ?", ids[2]).Update("position", 1).Error)

	parents, err := store.NonDenseParents(ctx, repository.TaskCollection)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{broken.ID}, parents)
	assert.NotContains(t, parents, healthy.ID)

	moved, err := store.Repair(ctx, repository.TaskCollection, broken.ID)
	require.NoError(t, err)
	assert.Greater(t, moved, 0)

	members, err := store.Members(db, repository.TaskCollection, broken.ID)
	require.NoError(t, err)
	assert.True(t, ordering.IsDense(members))
	assert.Equal(t, ids[0], members[2].ID)

	parents, err = store.NonDenseParents(ctx, repository.TaskCollection)
	require.NoError(t, err)
	assert.Empty(t, parents)
}

func TestOrderedStore_PostgresLocksInSortedOrder(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewOrderedStore(gormDB, 2*time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '2000ms'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtextextended($1, 0))")).
		WithArgs("tasks:a").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtextextended($1, 0))")).
		WithArgs("tasks:b").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	called := false
	err := store.InTx(context.Background(), []string{"tasks:b", "tasks:a", "tasks:b"}, func(tx *gorm.DB) error {
		called = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderedStore_PostgresLockTimeoutIsConflict(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewOrderedStore(gormDB, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WillReturnError(&pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})
	mock.ExpectRollback()

	err := store.InTx(context.Background(), []string{"columns:x"}, func(tx *gorm.DB) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})

	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderedStore_PostgresSerializationFailureIsConflict(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewOrderedStore(gormDB, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "tasks" SET "position"=$1 WHERE id = $2`)).
		WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})
	mock.ExpectRollback()

	id := uuid.New()
	err := store.InTx(context.Background(), []string{"tasks:x"}, func(tx *gorm.DB) error {
		return store.ApplyReindex(tx, repository.TaskCollection, []ordering.Assignment{{ID: id, Position: 0}})
	})

	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderedStore_OtherErrorsStayFatal(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewOrderedStore(gormDB, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := store.InTx(context.Background(), []string{"boards:x"}, func(tx *gorm.DB) error { return nil })

	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, repository.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderedStore_PostgresForeignKeyViolationIsNotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewOrderedStore(gormDB, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "tasks" SET "position"=$1 WHERE id = $2`)).
		WillReturnError(&pgconn.PgError{Code: "23503", Message: "insert or update on table \"tasks\" violates foreign key constraint"})
	mock.ExpectRollback()

	err := store.InTx(context.Background(), []string{"tasks:x"}, func(tx *gorm.DB) error {
		return store.ApplyReindex(tx, repository.TaskCollection, []ordering.Assignment{{ID: uuid.New(), Position: 0}})
	})

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NotErrorIs(t, err, repository.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
