package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

type CreateColumnInput struct {
	Title string
	Order *int
}

type UpdateColumnInput struct {
	Title *string
	Order *int
}

// ColumnService manages the columns of a board.
type ColumnService struct {
	orderedTx
	columns *repository.ColumnRepository
}

func NewColumnService(d Deps) *ColumnService {
	return &ColumnService{orderedTx: newOrderedTx(d), columns: d.Columns}
}

func (s *ColumnService) List(ctx context.Context, principal, boardID uuid.UUID) ([]model.Column, error) {
	if _, err := s.guard.AuthorizeBoard(ctx, principal, boardID); err != nil {
		return nil, toAppError(err)
	}
	columns, err := s.columns.GetByBoardID(ctx, boardID)
	if err != nil {
		return nil, toAppError(err)
	}
	return columns, nil
}

func (s *ColumnService) Create(ctx context.Context, principal, boardID uuid.UUID, in CreateColumnInput) (*model.Column, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, badRequest("Title is required")
	}

	column := &model.Column{ID: uuid.New(), BoardID: boardID, Title: title}
	c := repository.ColumnCollection
	err := s.run(ctx, c, opCreate, []string{c.LockKey(boardID)}, func(ctx context.Context, tx *gorm.DB) (int, error) {
		if _, err := s.guard.WithTx(tx).AuthorizeBoard(ctx, principal, boardID); err != nil {
			return 0, err
		}
		members, err := s.store.Members(tx, c, boardID)
		if err != nil {
			return 0, err
		}
		position, rows, err := s.place(tx, c, members, column.ID, in.Order)
		if err != nil {
			return 0, err
		}
		column.Position = position
		return rows, s.columns.WithTx(tx).Create(ctx, column)
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return column, nil
}

func (s *ColumnService) Update(ctx context.Context, principal, columnID uuid.UUID, in UpdateColumnInput) (*model.Column, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, badRequest("Title must not be empty")
	}

	// Columns never change board, so the lock key can be resolved up front.
	existing, err := s.guard.AuthorizeColumn(ctx, principal, columnID)
	if err != nil {
		return nil, toAppError(err)
	}

	var column *model.Column
	c := repository.ColumnCollection
	err = s.run(ctx, c, opUpdate, []string{c.LockKey(existing.BoardID)}, func(ctx context.Context, tx *gorm.DB) (int, error) {
		var err error
		column, err = s.guard.WithTx(tx).AuthorizeColumn(ctx, principal, columnID)
		if err != nil {
			return 0, err
		}
		if in.Title != nil {
			column.Title = strings.TrimSpace(*in.Title)
			if err := s.columns.WithTx(tx).UpdateDetails(ctx, column); err != nil {
				return 0, err
			}
		}
		if in.Order == nil {
			return 0, nil
		}
		position, rows, err := s.moveWithin(tx, c, column.BoardID, column.ID, *in.Order)
		if err != nil {
			return 0, err
		}
		column.Position = position
		return rows, nil
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return column, nil
}

// Delete removes the column and its tasks, then compacts the board's remaining columns.
func (s *ColumnService) Delete(ctx context.Context, principal, columnID uuid.UUID) error {
	existing, err := s.guard.AuthorizeColumn(ctx, principal, columnID)
	if err != nil {
		return toAppError(err)
	}

	c := repository.ColumnCollection
	keys := []string{c.LockKey(existing.BoardID), repository.TaskCollection.LockKey(columnID)}
	err = s.run(ctx, c, opDelete, keys, func(ctx context.Context, tx *gorm.DB) (int, error) {
		if _, err := s.guard.WithTx(tx).AuthorizeColumn(ctx, principal, columnID); err != nil {
			return 0, err
		}
		if err := s.columns.WithTx(tx).Delete(ctx, columnID); err != nil {
			return 0, err
		}
		return s.store.Compact(tx, c, existing.BoardID)
	})
	return toAppError(err)
}

// Reorder rewrites the board's column order. columnIDs must list every column once.
func (s *ColumnService) Reorder(ctx context.Context, principal, boardID uuid.UUID, columnIDs []uuid.UUID) error {
	c := repository.ColumnCollection
	err := s.run(ctx, c, opReorder, []string{c.LockKey(boardID)}, func(ctx context.Context, tx *gorm.DB) (int, error) {
		if _, err := s.guard.WithTx(tx).AuthorizeBoard(ctx, principal, boardID); err != nil {
			return 0, err
		}
		members, err := s.store.Members(tx, c, boardID)
		if err != nil {
			return 0, err
		}
		return s.reorder(tx, c, members, columnIDs)
	})
	return toAppError(err)
}
