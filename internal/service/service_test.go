package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/database"
	"taskboard/internal/metrics"
	"taskboard/internal/model"
	"taskboard/internal/repository"
	"taskboard/internal/response"
	"taskboard/internal/service"
)

type fixture struct {
	db      *gorm.DB
	boards  *service.BoardService
	columns *service.ColumnService
	tasks   *service.TaskService
	metrics *metrics.Metrics
}

func setup(t *testing.T) *fixture {
	db, err := database.NewSQLiteMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	m := metrics.NewWithRegistry(prometheus.NewRegistry(), zap.NewNop())
	deps := service.Deps{
		Store:   repository.NewOrderedStore(db, time.Second),
		Boards:  repository.NewBoardRepository(db),
		Columns: repository.NewColumnRepository(db),
		Tasks:   repository.NewTaskRepository(db),
		Metrics: m,
		Logger:  zap.NewNop(),
	}
	return &fixture{
		db:      db,
		boards:  service.NewBoardService(deps),
		columns: service.NewColumnService(deps),
		tasks:   service.NewTaskService(deps),
		metrics: m,
	}
}

func requireCode(t *testing.T, err error, code string) *response.AppError {
	t.Helper()
	var appErr *response.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func (f *fixture) board(t *testing.T, owner uuid.UUID, title string) *model.Board {
	t.Helper()
	board, err := f.boards.Create(context.Background(), owner, service.CreateBoardInput{Title: title})
	require.NoError(t, err)
	return board
}

func (f *fixture) column(t *testing.T, owner, boardID uuid.UUID, title string) *model.Column {
	t.Helper()
	column, err := f.columns.Create(context.Background(), owner, boardID, service.CreateColumnInput{Title: title})
	require.NoError(t, err)
	return column
}

func (f *fixture) task(t *testing.T, owner, columnID uuid.UUID, title string) *model.Task {
	t.Helper()
	task, err := f.tasks.Create(context.Background(), owner, columnID, service.CreateTaskInput{Title: title})
	require.NoError(t, err)
	return task
}

// taskOrder returns the column's task ids by position and checks positions are dense.
func (f *fixture) taskOrder(t *testing.T, owner, columnID uuid.UUID) []uuid.UUID {
	t.Helper()
	tasks, err := f.tasks.List(context.Background(), owner, columnID)
	require.NoError(t, err)
	ids := make([]uuid.UUID, len(tasks))
	for i, task := range tasks {
		assert.Equal(t, i, task.Position, "task %s", task.Title)
		ids[i] = task.ID
	}
	return ids
}

func (f *fixture) boardOrder(t *testing.T, owner uuid.UUID) []uuid.UUID {
	t.Helper()
	boards, err := f.boards.List(context.Background(), owner)
	require.NoError(t, err)
	ids := make([]uuid.UUID, len(boards))
	for i, board := range boards {
		assert.Equal(t, i, board.Position, "board %s", board.Title)
		ids[i] = board.ID
	}
	return ids
}

func (f *fixture) columnOrder(t *testing.T, owner, boardID uuid.UUID) []uuid.UUID {
	t.Helper()
	columns, err := f.columns.List(context.Background(), owner, boardID)
	require.NoError(t, err)
	ids := make([]uuid.UUID, len(columns))
	for i, column := range columns {
		assert.Equal(t, i, column.Position, "column %s", column.Title)
		ids[i] = column.ID
	}
	return ids
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
