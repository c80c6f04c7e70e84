package repository

import (
	"context"
	"errors"

	"taskboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BoardRepository struct {
	db *gorm.DB
}

func NewBoardRepository(db *gorm.DB) *BoardRepository {
	return &BoardRepository{db: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *BoardRepository) WithTx(tx *gorm.DB) *BoardRepository {
	return &BoardRepository{db: tx}
}

func (r *BoardRepository) Create(ctx context.Context, board *model.Board) error {
	return r.db.WithContext(ctx).Create(board).Error
}

// GetOwned returns the owner's boards in display order
func (r *BoardRepository) GetOwned(ctx context.Context, ownerID uuid.UUID) ([]model.Board, error) {
	var boards []model.Board
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("position, id").Find(&boards).Error
	return boards, err
}

func (r *BoardRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Board, error) {
	var board model.Board
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, err
	}
	return &board, nil
}

// UpdateDetails writes the descriptive fields only; position is owned by the ordered store.
func (r *BoardRepository) UpdateDetails(ctx context.Context, board *model.Board) error {
	result := r.db.WithContext(ctx).Model(board).Select("title", "description", "updated_at").Updates(board)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBoardNotFound
	}
	return nil
}

// Delete removes the board with its columns and their tasks.
func (r *BoardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	columnIDs := db.Model(&model.Column{}).Select("id").Where("board_id = ?", id)
	if err := db.Where("column_id IN (?)", columnIDs).Delete(&model.Task{}).Error; err != nil {
		return err
	}
	if err := db.Where("board_id = ?", id).Delete(&model.Column{}).Error; err != nil {
		return err
	}
	result := db.Where("id = ?", id).Delete(&model.Board{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBoardNotFound
	}
	return nil
}
