package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Board struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title       string    `gorm:"not null"`
	Description string
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index:idx_boards_owner_position,priority:1"`
	Position    int       `gorm:"not null;default:0;index:idx_boards_owner_position,priority:2"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Columns []Column `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE"`
}

func (b *Board) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
