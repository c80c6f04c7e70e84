package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultTaskType is stored when a task is created without a type.
const DefaultTaskType = "task"

type Task struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ColumnID    uuid.UUID `gorm:"type:uuid;not null;index:idx_tasks_column_position,priority:1"`
	Title       string    `gorm:"not null"`
	Description string
	Type        string     `gorm:"not null;default:task"`
	Priority    *string
	AssigneeID  *uuid.UUID `gorm:"type:uuid"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null"`
	Position    int        `gorm:"not null;index:idx_tasks_column_position,priority:2"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Type == "" {
		t.Type = DefaultTaskType
	}
	return nil
}
