package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"taskboard/internal/handler"
	"taskboard/internal/middleware"
	"taskboard/internal/model"
	"taskboard/internal/service"
)

// MockBoardService is a mock implementation of handler.BoardService
type MockBoardService struct {
	mock.Mock
}

func (m *MockBoardService) List(ctx context.Context, principal uuid.UUID) ([]model.Board, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Board), args.Error(1)
}

func (m *MockBoardService) Get(ctx context.Context, principal, boardID uuid.UUID) (*model.Board, error) {
	args := m.Called(ctx, principal, boardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Board), args.Error(1)
}

func (m *MockBoardService) Create(ctx context.Context, principal uuid.UUID, in service.CreateBoardInput) (*model.Board, error) {
	args := m.Called(ctx, principal, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Board), args.Error(1)
}

func (m *MockBoardService) Update(ctx context.Context, principal, boardID uuid.UUID, in service.UpdateBoardInput) (*model.Board, error) {
	args := m.Called(ctx, principal, boardID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Board), args.Error(1)
}

func (m *MockBoardService) Delete(ctx context.Context, principal, boardID uuid.UUID) error {
	args := m.Called(ctx, principal, boardID)
	return args.Error(0)
}

func (m *MockBoardService) Reorder(ctx context.Context, principal uuid.UUID, boardIDs []uuid.UUID) error {
	args := m.Called(ctx, principal, boardIDs)
	return args.Error(0)
}

// MockColumnService is a mock implementation of handler.ColumnService
type MockColumnService struct {
	mock.Mock
}

func (m *MockColumnService) List(ctx context.Context, principal, boardID uuid.UUID) ([]model.Column, error) {
	args := m.Called(ctx, principal, boardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Column), args.Error(1)
}

func (m *MockColumnService) Create(ctx context.Context, principal, boardID uuid.UUID, in service.CreateColumnInput) (*model.Column, error) {
	args := m.Called(ctx, principal, boardID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Column), args.Error(1)
}

func (m *MockColumnService) Update(ctx context.Context, principal, columnID uuid.UUID, in service.UpdateColumnInput) (*model.Column, error) {
	args := m.Called(ctx, principal, columnID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Column), args.Error(1)
}

func (m *MockColumnService) Delete(ctx context.Context, principal, columnID uuid.UUID) error {
	args := m.Called(ctx, principal, columnID)
	return args.Error(0)
}

func (m *MockColumnService) Reorder(ctx context.Context, principal, boardID uuid.UUID, columnIDs []uuid.UUID) error {
	args := m.Called(ctx, principal, boardID, columnIDs)
	return args.Error(0)
}

// MockTaskService is a mock implementation of handler.TaskService
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) List(ctx context.Context, principal, columnID uuid.UUID) ([]model.Task, error) {
	args := m.Called(ctx, principal, columnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskService) Get(ctx context.Context, principal, taskID uuid.UUID) (*model.Task, error) {
	args := m.Called(ctx, principal, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskService) Create(ctx context.Context, principal, columnID uuid.UUID, in service.CreateTaskInput) (*model.Task, error) {
	args := m.Called(ctx, principal, columnID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskService) Update(ctx context.Context, principal, taskID uuid.UUID, in service.UpdateTaskInput) (*model.Task, error) {
	args := m.Called(ctx, principal, taskID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskService) Delete(ctx context.Context, principal, taskID uuid.UUID) error {
	args := m.Called(ctx, principal, taskID)
	return args.Error(0)
}

func (m *MockTaskService) Reorder(ctx context.Context, principal, columnID uuid.UUID, taskIDs []uuid.UUID) error {
	args := m.Called(ctx, principal, columnID, taskIDs)
	return args.Error(0)
}

func (m *MockTaskService) Move(ctx context.Context, principal, taskID, columnID uuid.UUID, index int) (*model.Task, error) {
	args := m.Called(ctx, principal, taskID, columnID, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

type testRouter struct {
	engine  *gin.Engine
	boards  *MockBoardService
	columns *MockColumnService
	tasks   *MockTaskService
	userID  uuid.UUID
}

// setupTest wires the handlers the way the server does, with an authenticated principal.
func setupTest() *testRouter {
	gin.SetMode(gin.TestMode)
	tr := &testRouter{
		engine:  gin.New(),
		boards:  new(MockBoardService),
		columns: new(MockColumnService),
		tasks:   new(MockTaskService),
		userID:  uuid.New(),
	}
	logger := zap.NewNop()
	boardHandler := handler.NewBoardHandler(tr.boards, logger)
	columnHandler := handler.NewColumnHandler(tr.columns, logger)
	taskHandler := handler.NewTaskHandler(tr.tasks, logger)

	tr.engine.GET("/health", handler.Health)

	authorized := tr.engine.Group("/")
	authorized.Use(func(c *gin.Context) {
		if c.GetHeader("X-Anonymous") == "" {
			c.Set(middleware.UserIDKey, tr.userID)
		}
		c.Next()
	})
	authorized.GET("/boards", boardHandler.GetAll)
	authorized.POST("/boards", boardHandler.Create)
	authorized.PUT("/boards/reorder", boardHandler.Reorder)
	authorized.GET("/boards/:boardId", boardHandler.GetByID)
	authorized.PATCH("/boards/:boardId", boardHandler.Update)
	authorized.DELETE("/boards/:boardId", boardHandler.Delete)
	authorized.GET("/boards/:boardId/columns", columnHandler.GetAll)
	authorized.POST("/boards/:boardId/columns", columnHandler.Create)
	authorized.PUT("/boards/:boardId/columns/reorder", columnHandler.Reorder)
	authorized.PATCH("/columns/:id", columnHandler.Update)
	authorized.DELETE("/columns/:id", columnHandler.Delete)
	authorized.GET("/columns/:id/tasks", taskHandler.GetByColumnID)
	authorized.POST("/columns/:id/tasks", taskHandler.Create)
	authorized.PUT("/columns/:id/tasks/reorder", taskHandler.Reorder)
	authorized.GET("/tasks/:id", taskHandler.GetByID)
	authorized.PATCH("/tasks/:id", taskHandler.Update)
	authorized.DELETE("/tasks/:id", taskHandler.Delete)
	authorized.POST("/tasks/:id/move", taskHandler.MoveTask)
	return tr
}

func (tr *testRouter) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp := httptest.NewRecorder()
	tr.engine.ServeHTTP(resp, req)
	return resp
}

type envelope struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeError(resp *httptest.ResponseRecorder) envelope {
	var env envelope
	json.Unmarshal(resp.Body.Bytes(), &env)
	return env
}
