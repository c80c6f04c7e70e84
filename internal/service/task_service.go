package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/ordering"
	"taskboard/internal/repository"
)

type CreateTaskInput struct {
	Title       string
	Description string
	Type        string
	Priority    *string
	AssigneeID  *uuid.UUID
	Order       *int
}

// UpdateTaskInput changes descriptive fields. ColumnID and Order, when either is
// set, also move the task; the missing one defaults to the current column or position.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Type        *string
	Priority    *string
	AssigneeID  *uuid.UUID
	ColumnID    *uuid.UUID
	Order       *int
}

// TaskService manages tasks and their order within and across columns.
type TaskService struct {
	orderedTx
	tasks *repository.TaskRepository
}

func NewTaskService(d Deps) *TaskService {
	return &TaskService{orderedTx: newOrderedTx(d), tasks: d.Tasks}
}

func (s *TaskService) List(ctx context.Context, principal, columnID uuid.UUID) ([]model.Task, error) {
	if _, err := s.guard.AuthorizeColumn(ctx, principal, columnID); err != nil {
		return nil, toAppError(err)
	}
	tasks, err := s.tasks.GetByColumnID(ctx, columnID)
	if err != nil {
		return nil, toAppError(err)
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, principal, taskID uuid.UUID) (*model.Task, error) {
	task, err := s.guard.AuthorizeTask(ctx, principal, taskID)
	if err != nil {
		return nil, toAppError(err)
	}
	return task, nil
}

func (s *TaskService) Create(ctx context.Context, principal, columnID uuid.UUID, in CreateTaskInput) (*model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, badRequest("Title is required")
	}

	task := &model.Task{
		ID:          uuid.New(),
		ColumnID:    columnID,
		Title:       title,
		Description: in.Description,
		Type:        in.Type,
		Priority:    in.Priority,
		AssigneeID:  in.AssigneeID,
		CreatedBy:   principal,
	}
	c := repository.TaskCollection
	err := s.run(ctx, c, opCreate, []string{c.LockKey(columnID)}, func(ctx context.Context, tx *gorm.DB) (int, error) {
		if _, err := s.guard.WithTx(tx).AuthorizeColumn(ctx, principal, columnID); err != nil {
			return 0, err
		}
		members, err := s.store.Members(tx, c, columnID)
		if err != nil {
			return 0, err
		}
		position, rows, err := s.place(tx, c, members, task.ID, in.Order)
		if err != nil {
			return 0, err
		}
		task.Position = position
		return rows, s.tasks.WithTx(tx).Create(ctx, task)
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return task, nil
}

// Update changes descriptive fields and, when ColumnID or Order is set, moves the task
// in the same transaction.
func (s *TaskService) Update(ctx context.Context, principal, taskID uuid.UUID, in UpdateTaskInput) (*model.Task, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, badRequest("Title must not be empty")
	}
	if in.Order != nil && *in.Order < 0 {
		return nil, badRequest("Order must not be negative")
	}

	task, err := s.guard.AuthorizeTask(ctx, principal, taskID)
	if err != nil {
		return nil, toAppError(err)
	}

	if in.ColumnID == nil && in.Order == nil {
		applyTaskUpdate(task, in)
		if err := s.tasks.UpdateDetails(ctx, task); err != nil {
			return nil, toAppError(err)
		}
		return task, nil
	}

	destID := task.ColumnID
	if in.ColumnID != nil {
		destID = *in.ColumnID
	}
	index := task.Position
	if in.Order != nil {
		index = *in.Order
	}
	return s.relocate(ctx, principal, task, destID, index, func(t *model.Task) { applyTaskUpdate(t, in) })
}

func applyTaskUpdate(task *model.Task, in UpdateTaskInput) {
	if in.Title != nil {
		task.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Type != nil && *in.Type != "" {
		task.Type = *in.Type
	}
	if in.Priority != nil {
		task.Priority = in.Priority
	}
	if in.AssigneeID != nil {
		task.AssigneeID = in.AssigneeID
	}
}

// Delete removes the task and closes the gap it leaves in its column.
func (s *TaskService) Delete(ctx context.Context, principal, taskID uuid.UUID) error {
	existing, err := s.guard.AuthorizeTask(ctx, principal, taskID)
	if err != nil {
		return toAppError(err)
	}

	c := repository.TaskCollection
	err = s.run(ctx, c, opDelete, []string{c.LockKey(existing.ColumnID)}, func(ctx context.Context, tx *gorm.DB) (int, error) {
		task, err := s.guard.WithTx(tx).AuthorizeTask(ctx, principal, taskID)
		if err != nil {
			return 0, err
		}
		if task.ColumnID != existing.ColumnID {
			return 0, fmt.Errorf("task %s moved to column %s: %w", taskID, task.ColumnID, repository.ErrConflict)
		}
		if err := s.tasks.WithTx(tx).Delete(ctx, taskID); err != nil {
			return 0, err
		}
		return s.store.Compact(tx, c, task.ColumnID)
	})
	return toAppError(err)
}

// Reorder applies the full ordered task list of a column.
//
// When every id already belongs to the column this is a plain reorder. When exactly one
// id belongs to another column of the same owner, that task is moved into this column at
// its index and its old column is compacted. Anything else, including ids that are
// unknown or owned by someone else, is rejected as an invalid permutation.
func (s *TaskService) Reorder(ctx context.Context, principal, columnID uuid.UUID, taskIDs []uuid.UUID) error {
	if _, err := s.guard.AuthorizeColumn(ctx, principal, columnID); err != nil {
		return toAppError(err)
	}
	sourceID, err := s.incomingSource(ctx, principal, columnID, taskIDs)
	if err != nil {
		return toAppError(err)
	}

	c := repository.TaskCollection
	operation := opReorder
	keys := []string{c.LockKey(columnID)}
	if sourceID != uuid.Nil {
		operation = opMove
		keys = append(keys, c.LockKey(sourceID))
	}

	err = s.run(ctx, c, operation, keys, func(ctx context.Context, tx *gorm.DB) (int, error) {
		if _, err := s.guard.WithTx(tx).AuthorizeColumn(ctx, principal, columnID); err != nil {
			return 0, err
		}
		dest, err := s.store.Members(tx, c, columnID)
		if err != nil {
			return 0, err
		}

		incoming := outsiders(dest, taskIDs)
		if sourceID == uuid.Nil || len(incoming) != 1 {
			return s.reorder(tx, c, dest, taskIDs)
		}

		moved, err := s.tasks.WithTx(tx).GetByID(ctx, incoming[0])
		if err != nil && !isNotFound(err) {
			return 0, err
		}
		if err != nil || moved.ColumnID != sourceID {
			return 0, fmt.Errorf("task %s left column %s: %w", incoming[0], sourceID, repository.ErrConflict)
		}
		source, err := s.store.Members(tx, c, sourceID)
		if err != nil {
			return 0, err
		}
		plan, err := ordering.MoveAcrossParent(source, dest, taskIDs, moved.ID)
		if err != nil {
			return 0, err
		}
		return s.applyMove(tx, plan, columnID, source, dest)
	})
	return toAppError(err)
}

// Move puts a task into columnID at index, which may be its current column.
func (s *TaskService) Move(ctx context.Context, principal, taskID, columnID uuid.UUID, index int) (*model.Task, error) {
	existing, err := s.guard.AuthorizeTask(ctx, principal, taskID)
	if err != nil {
		return nil, toAppError(err)
	}
	return s.relocate(ctx, principal, existing, columnID, index, nil)
}

// relocate moves existing into destID at index under the locks of both columns.
// edit, when set, is applied to the descriptive fields in the same transaction.
func (s *TaskService) relocate(ctx context.Context, principal uuid.UUID, existing *model.Task, destID uuid.UUID, index int, edit func(*model.Task)) (*model.Task, error) {
	if _, err := s.guard.AuthorizeColumn(ctx, principal, destID); err != nil {
		return nil, toAppError(err)
	}

	taskID, sourceID := existing.ID, existing.ColumnID
	c := repository.TaskCollection
	keys := []string{c.LockKey(sourceID), c.LockKey(destID)}

	var task *model.Task
	err := s.run(ctx, c, opMove, keys, func(ctx context.Context, tx *gorm.DB) (int, error) {
		guard := s.guard.WithTx(tx)
		current, err := guard.AuthorizeTask(ctx, principal, taskID)
		if err != nil {
			return 0, err
		}
		if current.ColumnID != sourceID {
			return 0, fmt.Errorf("task %s moved to column %s: %w", taskID, current.ColumnID, repository.ErrConflict)
		}
		if _, err := guard.AuthorizeColumn(ctx, principal, destID); err != nil {
			return 0, err
		}
		if edit != nil {
			edit(current)
			if err := s.tasks.WithTx(tx).UpdateDetails(ctx, current); err != nil {
				return 0, err
			}
		}

		var rows int
		if sourceID == destID {
			_, rows, err = s.moveWithin(tx, c, destID, taskID, index)
		} else {
			rows, err = s.moveAcross(tx, sourceID, destID, taskID, index)
		}
		if err != nil {
			return 0, err
		}

		task, err = s.tasks.WithTx(tx).GetByID(ctx, taskID)
		return rows, err
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return task, nil
}

func (s *TaskService) moveAcross(tx *gorm.DB, sourceID, destID, taskID uuid.UUID, index int) (int, error) {
	c := repository.TaskCollection
	source, err := s.store.Members(tx, c, sourceID)
	if err != nil {
		return 0, err
	}
	dest, err := s.store.Members(tx, c, destID)
	if err != nil {
		return 0, err
	}
	plan, err := ordering.MoveToIndex(source, dest, taskID, index)
	if err != nil {
		return 0, err
	}
	return s.applyMove(tx, plan, destID, source, dest)
}

func (s *TaskService) applyMove(tx *gorm.DB, plan *ordering.MovePlan, destID uuid.UUID, source, dest []ordering.Member) (int, error) {
	c := repository.TaskCollection
	if err := s.store.Reparent(tx, c, plan.MovedID, destID); err != nil {
		return 0, err
	}
	sourceChanged := ordering.Changed(source, plan.Source)
	if err := s.store.ApplyReindex(tx, c, sourceChanged); err != nil {
		return 0, err
	}
	destChanged := ordering.Changed(dest, plan.Dest)
	if err := s.store.ApplyReindex(tx, c, destChanged); err != nil {
		return 0, err
	}
	return len(sourceChanged) + len(destChanged), nil
}

// incomingSource returns the column a cross-column reorder takes its task from, or
// uuid.Nil when the list does not name exactly one task of another owned column.
// The result is only a hint for lock selection and is re-checked inside the transaction.
func (s *TaskService) incomingSource(ctx context.Context, principal, columnID uuid.UUID, taskIDs []uuid.UUID) (uuid.UUID, error) {
	tasks, err := s.tasks.GetByIDs(ctx, taskIDs)
	if err != nil {
		return uuid.Nil, err
	}

	var elsewhere []model.Task
	for _, t := range tasks {
		if t.ColumnID != columnID {
			elsewhere = append(elsewhere, t)
		}
	}
	if len(elsewhere) != 1 {
		return uuid.Nil, nil
	}

	sourceID := elsewhere[0].ColumnID
	if _, err := s.guard.AuthorizeColumn(ctx, principal, sourceID); err != nil {
		if isNotFound(err) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	return sourceID, nil
}

// outsiders lists the distinct ids that are not current members.
func outsiders(members []ordering.Member, ids []uuid.UUID) []uuid.UUID {
	current := make(map[uuid.UUID]bool, len(members))
	for _, m := range members {
		current[m.ID] = true
	}
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, id := range ids {
		if !current[id] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
