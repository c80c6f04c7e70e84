package response_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/response"
)

func TestSendErrorWithDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	response.SendErrorWithDetails(c, http.StatusBadRequest, response.ErrCodeBadRequest, "Invalid order",
		map[string][]string{"missing": {"a"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, c.IsAborted())

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "BAD_REQUEST", body["error"]["code"])
	assert.Equal(t, "Invalid order", body["error"]["message"])
	assert.NotNil(t, body["error"]["details"])
}

func TestSendError_OmitsDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	response.SendError(c, http.StatusNotFound, response.ErrCodeNotFound, "Board not found")

	assert.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"Board not found"}}`, w.Body.String())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := response.NewAppError(response.ErrCodeInternal, "Failed to load board", nil).Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")

	var appErr *response.AppError
	require.ErrorAs(t, error(err), &appErr)
	assert.Equal(t, response.ErrCodeInternal, appErr.Code)
}
