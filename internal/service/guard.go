package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// OwnershipGuard checks that a principal owns the board an entity hangs off.
// A foreign entity is reported exactly like a missing one.
type OwnershipGuard struct {
	boards  *repository.BoardRepository
	columns *repository.ColumnRepository
	tasks   *repository.TaskRepository
}

func NewOwnershipGuard(boards *repository.BoardRepository, columns *repository.ColumnRepository, tasks *repository.TaskRepository) *OwnershipGuard {
	return &OwnershipGuard{boards: boards, columns: columns, tasks: tasks}
}

// WithTx returns a guard that reads through tx.
func (g *OwnershipGuard) WithTx(tx *gorm.DB) *OwnershipGuard {
	return &OwnershipGuard{
		boards:  g.boards.WithTx(tx),
		columns: g.columns.WithTx(tx),
		tasks:   g.tasks.WithTx(tx),
	}
}

func (g *OwnershipGuard) AuthorizeBoard(ctx context.Context, principal, boardID uuid.UUID) (*model.Board, error) {
	board, err := g.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board.OwnerID != principal {
		return nil, repository.ErrBoardNotFound
	}
	return board, nil
}

func (g *OwnershipGuard) AuthorizeColumn(ctx context.Context, principal, columnID uuid.UUID) (*model.Column, error) {
	column, err := g.columns.GetByID(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if _, err := g.AuthorizeBoard(ctx, principal, column.BoardID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrColumnNotFound
		}
		return nil, err
	}
	return column, nil
}

func (g *OwnershipGuard) AuthorizeTask(ctx context.Context, principal, taskID uuid.UUID) (*model.Task, error) {
	task, err := g.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := g.AuthorizeColumn(ctx, principal, task.ColumnID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}
