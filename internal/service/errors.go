package service

import (
	"context"
	"errors"

	"taskboard/internal/metrics"
	"taskboard/internal/ordering"
	"taskboard/internal/repository"
	"taskboard/internal/response"
)

// toAppError translates repository and engine errors into the error the handler sends.
// Entity and ancestor misses, and entities owned by someone else, all become NOT_FOUND.
func toAppError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *response.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var permErr *ordering.PermutationError
	switch {
	case errors.As(err, &permErr):
		return response.NewAppError(response.ErrCodeBadRequest, "Order must list every child of the parent exactly once", permErr).Wrap(err)
	case errors.Is(err, repository.ErrBoardNotFound):
		return response.NewAppError(response.ErrCodeNotFound, "Board not found", nil).Wrap(err)
	case errors.Is(err, repository.ErrColumnNotFound):
		return response.NewAppError(response.ErrCodeNotFound, "Column not found", nil).Wrap(err)
	case errors.Is(err, repository.ErrTaskNotFound):
		return response.NewAppError(response.ErrCodeNotFound, "Task not found", nil).Wrap(err)
	case errors.Is(err, repository.ErrNotFound):
		return response.NewAppError(response.ErrCodeNotFound, "Resource not found", nil).Wrap(err)
	case errors.Is(err, repository.ErrConflict):
		return response.NewAppError(response.ErrCodeConflict, "The collection was modified concurrently, refetch and retry", nil).Wrap(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return response.NewAppError(response.ErrCodeConflict, "Request cancelled before any change was applied", nil).Wrap(err)
	default:
		return response.NewAppError(response.ErrCodeInternal, "Internal server error", nil).Wrap(err)
	}
}

func badRequest(message string) error {
	return response.NewAppError(response.ErrCodeBadRequest, message, nil)
}

// resultOf labels an ordering transaction outcome for metrics.
func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ordering.ErrInvalidPermutation):
		return metrics.ResultInvalid
	case errors.Is(err, repository.ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, repository.ErrConflict):
		return metrics.ResultConflict
	default:
		return metrics.ResultError
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
