package repository_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

func TestBoardRepository_GetByID_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	boardRepo := repository.NewBoardRepository(gormDB)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "boards" WHERE id = .* LIMIT .*`).
		WillReturnError(gorm.ErrRecordNotFound)

	// Act
	board, err := boardRepo.GetByID(context.Background(), id)

	// Assert
	assert.Nil(t, board)
	assert.ErrorIs(t, err, repository.ErrBoardNotFound)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBoardRepository_GetOwned_OrderedByPosition(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	boardRepo := repository.NewBoardRepository(gormDB)
	ownerID := uuid.New()
	first, second := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "boards" WHERE owner_id = $1 ORDER BY position, id`)).
		WithArgs(ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "owner_id", "position"}).
			AddRow(first.String(), "Roadmap", ownerID.String(), 0).
			AddRow(second.String(), "Bugs", ownerID.String(), 1))

	boards, err := boardRepo.GetOwned(context.Background(), ownerID)

	require.NoError(t, err)
	require.Len(t, boards, 2)
	assert.Equal(t, first, boards[0].ID)
	assert.Equal(t, 1, boards[1].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBoardRepository_DeleteCascades(t *testing.T) {
	db := setupSQLite(t)
	boardRepo := repository.NewBoardRepository(db)
	column, _ := seedColumn(t, db, 3)
	ctx := context.Background()

	require.NoError(t, boardRepo.Delete(ctx, column.BoardID))

	var columns, tasks int64
	require.NoError(t, db.Model(&model.Column{}).Count(&columns).Error)
	require.NoError(t, db.Model(&model.Task{}).Count(&tasks).Error)
	assert.Zero(t, columns)
	assert.Zero(t, tasks)

	assert.ErrorIs(t, boardRepo.Delete(ctx, column.BoardID), repository.ErrBoardNotFound)
}

func TestBoardRepository_UpdateDetailsKeepsPosition(t *testing.T) {
	db := setupSQLite(t)
	boardRepo := repository.NewBoardRepository(db)
	ctx := context.Background()

	board := &model.Board{Title: "old", OwnerID: uuid.New(), Position: 3}
	require.NoError(t, boardRepo.Create(ctx, board))

	board.Title = "new"
	board.Position = 0
	require.NoError(t, boardRepo.UpdateDetails(ctx, board))

	stored, err := boardRepo.GetByID(ctx, board.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", stored.Title)
	assert.Equal(t, 3, stored.Position)
}
