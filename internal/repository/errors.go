package repository

import (
	"errors"
	"fmt"
)

// Common repository errors
var (
	// ErrNotFound is matched by every entity-specific not found error
	ErrNotFound = errors.New("record not found")

	// ErrBoardNotFound is returned when a board is not found
	ErrBoardNotFound = fmt.Errorf("board: %w", ErrNotFound)

	// ErrColumnNotFound is returned when a column is not found
	ErrColumnNotFound = fmt.Errorf("column: %w", ErrNotFound)

	// ErrTaskNotFound is returned when a task is not found
	ErrTaskNotFound = fmt.Errorf("task: %w", ErrNotFound)

	// ErrConflict is returned when a concurrent transaction on the same parent won.
	// Callers may refetch and retry.
	ErrConflict = errors.New("concurrent modification")
)
