package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/metrics"
	"taskboard/internal/ordering"
	"taskboard/internal/repository"
)

// Operation names used in logs and metrics
const (
	opCreate  = "create"
	opUpdate  = "update"
	opDelete  = "delete"
	opReorder = "reorder"
	opMove    = "move"
)

// Deps bundles what the services need. Every field is required.
type Deps struct {
	Store   *repository.OrderedStore
	Boards  *repository.BoardRepository
	Columns *repository.ColumnRepository
	Tasks   *repository.TaskRepository
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// orderedTx runs position rewrites under the parent locks and records their outcome.
type orderedTx struct {
	store   *repository.OrderedStore
	guard   *OwnershipGuard
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func newOrderedTx(d Deps) orderedTx {
	return orderedTx{
		store:   d.Store,
		guard:   NewOwnershipGuard(d.Boards, d.Columns, d.Tasks),
		metrics: d.Metrics,
		logger:  d.Logger,
	}
}

// run executes fn in one transaction holding the locks named by keys. fn returns the
// number of rows it repositioned. A request cancelled before the transaction starts is
// abandoned; once started, the transaction runs to completion.
func (o *orderedTx) run(ctx context.Context, c repository.Collection, operation string, keys []string,
	fn func(ctx context.Context, tx *gorm.DB) (int, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	var rows int
	err := o.store.InTx(ctx, keys, func(tx *gorm.DB) error {
		var err error
		rows, err = fn(ctx, tx)
		return err
	})
	duration := time.Since(start)

	result := resultOf(err)
	if err != nil {
		rows = 0
	}
	o.metrics.RecordOrdering(c.Table, operation, result, rows, duration)

	switch result {
	case metrics.ResultOK:
		o.logger.Debug("Ordering applied",
			zap.String("collection", c.Table),
			zap.String("operation", operation),
			zap.Int("rows", rows),
			zap.Duration("duration", duration),
		)
	case metrics.ResultConflict:
		o.logger.Warn("Ordering conflict",
			zap.String("collection", c.Table),
			zap.String("operation", operation),
			zap.Strings("locks", keys),
			zap.Error(err),
		)
	}
	return err
}

// place returns the position for a new child. With an explicit index the later
// siblings are shifted up by one before the child is inserted.
func (o *orderedTx) place(tx *gorm.DB, c repository.Collection, members []ordering.Member, childID uuid.UUID, index *int) (int, int, error) {
	if index == nil {
		return ordering.Append(members), 0, nil
	}
	position, assignments := ordering.InsertAt(members, childID, *index)
	changed := ordering.Changed(members, without(assignments, childID))
	if err := o.store.ApplyReindex(tx, c, changed); err != nil {
		return 0, 0, err
	}
	return position, len(changed), nil
}

// moveWithin repositions one child inside its parent and returns its new position.
func (o *orderedTx) moveWithin(tx *gorm.DB, c repository.Collection, parentID, childID uuid.UUID, index int) (int, int, error) {
	members, err := o.store.Members(tx, c, parentID)
	if err != nil {
		return 0, 0, err
	}
	assignments, err := ordering.MoveWithin(members, childID, index)
	if err != nil {
		return 0, 0, err
	}
	changed := ordering.Changed(members, assignments)
	if err := o.store.ApplyReindex(tx, c, changed); err != nil {
		return 0, 0, err
	}
	return positionOf(assignments, childID), len(changed), nil
}

// reorder validates ids against the parent's current children and writes the new order.
func (o *orderedTx) reorder(tx *gorm.DB, c repository.Collection, members []ordering.Member, ids []uuid.UUID) (int, error) {
	assignments, err := ordering.Reorder(members, ids)
	if err != nil {
		return 0, err
	}
	changed := ordering.Changed(members, assignments)
	if err := o.store.ApplyReindex(tx, c, changed); err != nil {
		return 0, err
	}
	return len(changed), nil
}

func without(assignments []ordering.Assignment, id uuid.UUID) []ordering.Assignment {
	out := make([]ordering.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

func positionOf(assignments []ordering.Assignment, id uuid.UUID) int {
	for _, a := range assignments {
		if a.ID == id {
			return a.Position
		}
	}
	return -1
}
