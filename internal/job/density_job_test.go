package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskboard/internal/database"
	"taskboard/internal/metrics"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// MockDensityStore is a mock implementation of DensityStore
type MockDensityStore struct {
	mock.Mock
}

func (m *MockDensityStore) NonDenseParents(ctx context.Context, c repository.Collection) ([]uuid.UUID, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockDensityStore) Repair(ctx context.Context, c repository.Collection, parentID uuid.UUID) (int, error) {
	args := m.Called(ctx, c, parentID)
	return args.Int(0), args.Error(1)
}

func newTestMetrics() *metrics.Metrics {
	return metrics.NewWithRegistry(prometheus.NewRegistry(), nil)
}

func TestDensityJob_Run_NothingToRepair(t *testing.T) {
	store := new(MockDensityStore)
	store.On("NonDenseParents", mock.Anything, mock.Anything).Return([]uuid.UUID{}, nil)

	NewDensityJob(store, newTestMetrics(), zap.NewNop()).Run()

	store.AssertNumberOfCalls(t, "NonDenseParents", 3)
	store.AssertNotCalled(t, "Repair", mock.Anything, mock.Anything, mock.Anything)
}

func TestDensityJob_Run_RepairsEachParent(t *testing.T) {
	store := new(MockDensityStore)
	m := newTestMetrics()
	colA, colB := uuid.New(), uuid.New()

	store.On("NonDenseParents", mock.Anything, repository.BoardCollection).Return([]uuid.UUID{}, nil)
	store.On("NonDenseParents", mock.Anything, repository.ColumnCollection).Return(nil, errors.New("scan failed"))
	store.On("NonDenseParents", mock.Anything, repository.TaskCollection).Return([]uuid.UUID{colA, colB}, nil)
	store.On("Repair", mock.Anything, repository.TaskCollection, colA).Return(2, nil)
	store.On("Repair", mock.Anything, repository.TaskCollection, colB).Return(0, repository.ErrConflict)

	NewDensityJob(store, m, zap.NewNop()).Run()

	store.AssertExpectations(t)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DensityRepairsTotal.WithLabelValues("tasks")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.RowsReindexedTotal.WithLabelValues("tasks")))
}

func TestDensityJob_Run_CompactsStoredGaps(t *testing.T) {
	db, err := database.NewSQLiteMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	owner := uuid.New()
	board := &model.Board{Title: "b", OwnerID: owner}
	require.NoError(t, db.Create(board).Error)
	column := &model.Column{BoardID: board.ID, Title: "c"}
	require.NoError(t, db.Create(column).Error)

	// gaps and a tie, as left behind by a manual edit
	var ids []uuid.UUID
	for _, pos := range []int{3, 7, 7, 12} {
		task := &model.Task{ColumnID: column.ID, Title: "t", CreatedBy: owner, Position: pos}
		require.NoError(t, db.Create(task).Error)
		ids = append(ids, task.ID)
	}

	store := repository.NewOrderedStore(db, time.Second)
	NewDensityJob(store, newTestMetrics(), zap.NewNop()).Run()

	members, err := store.Members(db, repository.TaskCollection, column.ID)
	require.NoError(t, err)
	require.Len(t, members, 4)
	for i, m := range members {
		assert.Equal(t, i, m.Position)
	}
	assert.Equal(t, ids[0], members[0].ID)
	assert.Equal(t, ids[3], members[3].ID)

	parents, err := store.NonDenseParents(context.Background(), repository.TaskCollection)
	require.NoError(t, err)
	assert.Empty(t, parents)
}

func TestDensityJob_Schedule(t *testing.T) {
	store := new(MockDensityStore)
	scheduler := cron.New()

	id, err := NewDensityJob(store, nil, zap.NewNop()).Schedule(scheduler, "*/5 * * * *")
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Len(t, scheduler.Entries(), 1)

	_, err = NewDensityJob(store, nil, zap.NewNop()).Schedule(scheduler, "not a spec")
	assert.Error(t, err)
}
