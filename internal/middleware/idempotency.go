package middleware

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/idempotency"
	"taskboard/internal/metrics"
	"taskboard/internal/response"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotentReplayHeader  = "Idempotent-Replay"
	maxIdempotencyKeyLength = 255
)

// IdempotencyStore is implemented by idempotency.RedisStore.
type IdempotencyStore interface {
	Reserve(ctx context.Context, userID, key string) (bool, error)
	Complete(ctx context.Context, userID, key string, rec idempotency.Record) error
	Lookup(ctx context.Context, userID, key string) (*idempotency.Record, bool, error)
	Release(ctx context.Context, userID, key string) error
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response when an authenticated create request is
// retried with the same Idempotency-Key. Requests without the header pass through.
// Failed requests release their key so they can be retried. Store errors let the
// request through unprotected. A panicking handler releases its key before the
// panic reaches Recovery.
func Idempotency(store IdempotencyStore, m *metrics.Metrics, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			response.SendError(c, http.StatusBadRequest, response.ErrCodeBadRequest, "Idempotency-Key is too long")
			return
		}

		value, exists := c.Get(UserIDKey)
		userID, ok := value.(uuid.UUID)
		if !exists || !ok {
			c.Next()
			return
		}

		principal := userID.String()
		scoped := c.Request.Method + " " + c.Request.URL.Path + " " + key
		ctx := c.Request.Context()

		reserved, err := store.Reserve(ctx, principal, scoped)
		if err != nil {
			logger.Warn("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}

		if !reserved {
			rec, found, err := store.Lookup(ctx, principal, scoped)
			switch {
			case err != nil:
				logger.Warn("Idempotency lookup failed", zap.Error(err))
				c.Next()
			case found && rec == nil:
				response.SendError(c, http.StatusConflict, response.ErrCodeConflict, "A request with this Idempotency-Key is still in progress")
			case found:
				if m != nil {
					m.RecordIdempotentReplay()
				}
				c.Header(IdempotentReplayHeader, "true")
				c.Data(rec.Status, "application/json; charset=utf-8", rec.Body)
				c.Abort()
			default:
				c.Next()
			}
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		// the client may be gone; the outcome must still be recorded
		done := context.WithoutCancel(ctx)
		defer func() {
			if r := recover(); r != nil {
				if err := store.Release(done, principal, scoped); err != nil {
					logger.Warn("Failed to release idempotency key", zap.Error(err))
				}
				panic(r)
			}

			status := recorder.Status()
			var err error
			if status >= 200 && status < 300 {
				err = store.Complete(done, principal, scoped, idempotency.Record{Status: status, Body: recorder.body.Bytes()})
			} else {
				err = store.Release(done, principal, scoped)
			}
			if err != nil {
				logger.Warn("Failed to record idempotent response", zap.Int("status", status), zap.Error(err))
			}
		}()
		c.Next()
	}
}
