package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

type CreateBoardInput struct {
	Title       string
	Description string
	Order       *int
}

type UpdateBoardInput struct {
	Title       *string
	Description *string
	Order       *int
}

// BoardService manages a principal's boards. Boards are ordered per owner.
type BoardService struct {
	orderedTx
	boards *repository.BoardRepository
}

func NewBoardService(d Deps) *BoardService {
	return &BoardService{orderedTx: newOrderedTx(d), boards: d.Boards}
}

func (s *BoardService) List(ctx context.Context, principal uuid.UUID) ([]model.Board, error) {
	boards, err := s.boards.GetOwned(ctx, principal)
	if err != nil {
		return nil, toAppError(err)
	}
	return boards, nil
}

func (s *BoardService) Get(ctx context.Context, principal, boardID uuid.UUID) (*model.Board, error) {
	board, err := s.guard.AuthorizeBoard(ctx, principal, boardID)
	if err != nil {
		return nil, toAppError(err)
	}
	return board, nil
}

func (s *BoardService) Create(ctx context.Context, principal uuid.UUID, in CreateBoardInput) (*model.Board, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, badRequest("Title is required")
	}

	board := &model.Board{
		ID:          uuid.New(),
		Title:       title,
		Description: in.Description,
		OwnerID:     principal,
	}
	c := repository.BoardCollection
	err := s.run(ctx, c, opCreate, []string{c.LockKey(principal)}, func(ctx context.Context, tx *gorm.DB) (int, error) {
		members, err := s.store.Members(tx, c, principal)
		if err != nil {
			return 0, err
		}
		position, rows, err := s.place(tx, c, members, board.ID, in.Order)
		if err != nil {
			return 0, err
		}
		board.Position = position
		return rows, s.boards.WithTx(tx).Create(ctx, board)
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return board, nil
}

func (s *BoardService) Update(ctx context.Context, principal, boardID uuid.UUID, in UpdateBoardInput) (*model.Board, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, badRequest("Title must not be empty")
	}

	var board *model.Board
	c := repository.BoardCollection
	err := s.run(ctx, c, opUpdate, []string{c.LockKey(principal)}, func(ctx context.Context, tx *gorm.DB) (int, error) {
		var err error
		board, err = s.guard.WithTx(tx).AuthorizeBoard(ctx, principal, boardID)
		if err != nil {
			return 0, err
		}
		if in.Title != nil {
			board.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			board.Description = *in.Description
		}
		if err := s.boards.WithTx(tx).UpdateDetails(ctx, board); err != nil {
			return 0, err
		}
		if in.Order == nil {
			return 0, nil
		}
		position, rows, err := s.moveWithin(tx, c, principal, board.ID, *in.Order)
		if err != nil {
			return 0, err
		}
		board.Position = position
		return rows, nil
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return board, nil
}

// Delete removes the board with everything on it and closes the gap in the owner's order.
func (s *BoardService) Delete(ctx context.Context, principal, boardID uuid.UUID) error {
	c := repository.BoardCollection
	keys := []string{c.LockKey(principal), repository.ColumnCollection.LockKey(boardID)}
	err := s.run(ctx, c, opDelete, keys, func(ctx context.Context, tx *gorm.DB) (int, error) {
		if _, err := s.guard.WithTx(tx).AuthorizeBoard(ctx, principal, boardID); err != nil {
			return 0, err
		}
		if err := s.boards.WithTx(tx).Delete(ctx, boardID); err != nil {
			return 0, err
		}
		return s.store.Compact(tx, c, principal)
	})
	return toAppError(err)
}

// Reorder rewrites the owner's board order. boardIDs must list every owned board once.
func (s *BoardService) Reorder(ctx context.Context, principal uuid.UUID, boardIDs []uuid.UUID) error {
	c := repository.BoardCollection
	err := s.run(ctx, c, opReorder, []string{c.LockKey(principal)}, func(ctx context.Context, tx *gorm.DB) (int, error) {
		members, err := s.store.Members(tx, c, principal)
		if err != nil {
			return 0, err
		}
		return s.reorder(tx, c, members, boardIDs)
	})
	return toAppError(err)
}
