package job

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"taskboard/internal/metrics"
	"taskboard/internal/repository"
)

// DensityStore is implemented by repository.OrderedStore.
type DensityStore interface {
	NonDenseParents(ctx context.Context, c repository.Collection) ([]uuid.UUID, error)
	Repair(ctx context.Context, c repository.Collection, parentID uuid.UUID) (int, error)
}

// DensityJob finds parents whose children are not positioned 0..n-1 and compacts them.
// Every write path keeps positions dense, so anything it finds was written outside the
// service (manual SQL, an interrupted migration).
type DensityJob struct {
	store       DensityStore
	collections []repository.Collection
	metrics     *metrics.Metrics
	logger      *zap.Logger
	timeout     time.Duration
}

func NewDensityJob(store DensityStore, m *metrics.Metrics, logger *zap.Logger) *DensityJob {
	return &DensityJob{
		store: store,
		collections: []repository.Collection{
			repository.BoardCollection,
			repository.ColumnCollection,
			repository.TaskCollection,
		},
		metrics: m,
		logger:  logger,
		timeout: 5 * time.Minute,
	}
}

// Run implements cron.Job.
func (j *DensityJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.logger.Debug("Starting density audit")

	total := 0
	for _, c := range j.collections {
		total += j.audit(ctx, c)
	}

	if total > 0 {
		j.logger.Warn("Density audit repaired positions", zap.Int("rows", total))
		return
	}
	j.logger.Debug("Density audit completed, nothing to repair")
}

func (j *DensityJob) audit(ctx context.Context, c repository.Collection) int {
	parents, err := j.store.NonDenseParents(ctx, c)
	if err != nil {
		j.logger.Error("Failed to scan for non-dense parents",
			zap.String("collection", c.Table),
			zap.Error(err),
		)
		return 0
	}

	repaired := 0
	for _, parentID := range parents {
		rows, err := j.store.Repair(ctx, c, parentID)
		if err != nil {
			j.logger.Error("Failed to repair positions",
				zap.String("collection", c.Table),
				zap.String("parent_id", parentID.String()),
				zap.Error(err),
			)
			continue
		}
		if j.metrics != nil {
			j.metrics.RecordDensityRepair(c.Table, rows)
		}
		j.logger.Info("Repaired positions",
			zap.String("collection", c.Table),
			zap.String("parent_id", parentID.String()),
			zap.Int("rows", rows),
		)
		repaired += rows
	}
	return repaired
}

// Schedule registers the job on scheduler with a standard five-field cron spec.
func (j *DensityJob) Schedule(scheduler *cron.Cron, spec string) (cron.EntryID, error) {
	return scheduler.AddJob(spec, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(j))
}
