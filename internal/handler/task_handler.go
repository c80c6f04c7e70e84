package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/model"
	"taskboard/internal/service"
)

// TaskService is the task behaviour the handler needs.
type TaskService interface {
	List(ctx context.Context, principal, columnID uuid.UUID) ([]model.Task, error)
	Get(ctx context.Context, principal, taskID uuid.UUID) (*model.Task, error)
	Create(ctx context.Context, principal, columnID uuid.UUID, in service.CreateTaskInput) (*model.Task, error)
	Update(ctx context.Context, principal, taskID uuid.UUID, in service.UpdateTaskInput) (*model.Task, error)
	Delete(ctx context.Context, principal, taskID uuid.UUID) error
	Reorder(ctx context.Context, principal, columnID uuid.UUID, taskIDs []uuid.UUID) error
	Move(ctx context.Context, principal, taskID, columnID uuid.UUID, index int) (*model.Task, error)
}

type TaskHandler struct {
	service TaskService
	logger  *zap.Logger
}

func NewTaskHandler(service TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{service: service, logger: logger}
}

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Priority    *string    `json:"priority"`
	AssigneeID  *uuid.UUID `json:"assigneeId"`
	Order       *int       `json:"order"`
}

// UpdateTaskRequest edits a task. Setting columnId or order also moves it.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Type        *string    `json:"type"`
	Priority    *string    `json:"priority"`
	AssigneeID  *uuid.UUID `json:"assigneeId"`
	ColumnID    *uuid.UUID `json:"columnId"`
	Order       *int       `json:"order" binding:"omitempty,min=0"`
}

// ReorderTasksRequest carries the full desired order of a column. It may include one
// task from another column of the same owner, which is moved in at its index.
type ReorderTasksRequest struct {
	TaskIDs []uuid.UUID `json:"taskIds" binding:"required"`
}

type MoveTaskRequest struct {
	ColumnID uuid.UUID `json:"columnId" binding:"required"`
	Position int       `json:"position" binding:"min=0"`
}

type TaskResponse struct {
	ID          string  `json:"id"`
	ColumnID    string  `json:"columnId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Priority    *string `json:"priority,omitempty"`
	AssigneeID  *string `json:"assigneeId,omitempty"`
	CreatedBy   string  `json:"createdBy"`
	Position    int     `json:"position"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func toTaskResponse(task *model.Task) TaskResponse {
	resp := TaskResponse{
		ID:          task.ID.String(),
		ColumnID:    task.ColumnID.String(),
		Title:       task.Title,
		Description: task.Description,
		Type:        task.Type,
		Priority:    task.Priority,
		CreatedBy:   task.CreatedBy.String(),
		Position:    task.Position,
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   task.UpdatedAt.Format(time.RFC3339),
	}
	if task.AssigneeID != nil {
		assignee := task.AssigneeID.String()
		resp.AssigneeID = &assignee
	}
	return resp
}

// GetByColumnID godoc
// @Summary      List tasks
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Column ID"
// @Success      200  {array}   TaskResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /columns/{id}/tasks [get]
func (h *TaskHandler) GetByColumnID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	columnID, ok := uuidParam(c, "id", "column")
	if !ok {
		return
	}

	tasks, err := h.service.List(c.Request.Context(), userID, columnID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	result := make([]TaskResponse, len(tasks))
	for i := range tasks {
		result[i] = toTaskResponse(&tasks[i])
	}
	c.JSON(http.StatusOK, result)
}

// Create godoc
// @Summary      Create task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id               path    string             true   "Column ID"
// @Param        Idempotency-Key  header  string             false  "Replay protection key"
// @Param        body             body    CreateTaskRequest  true   "Task"
// @Success      201  {object}  TaskResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /columns/{id}/tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	columnID, ok := uuidParam(c, "id", "column")
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	task, err := h.service.Create(c.Request.Context(), userID, columnID, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		Order:       req.Order,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toTaskResponse(task))
}

// GetByID godoc
// @Summary      Get task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Task ID"
// @Success      200  {object}  TaskResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := uuidParam(c, "id", "task")
	if !ok {
		return
	}

	task, err := h.service.Get(c.Request.Context(), userID, taskID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(task))
}

// Update godoc
// @Summary      Update task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string             true  "Task ID"
// @Description  columnId and order move the task; a missing one keeps its current value
// @Param        body  body  UpdateTaskRequest  true  "Fields to change"
// @Success      200  {object}  TaskResponse
// @Failure      400  {object}  response.ErrorResponse
// @Failure      404  {object}  response.ErrorResponse
// @Failure      409  {object}  response.ErrorResponse
// @Router       /tasks/{id} [patch]
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := uuidParam(c, "id", "task")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	task, err := h.service.Update(c.Request.Context(), userID, taskID, service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		ColumnID:    req.ColumnID,
		Order:       req.Order,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(task))
}

// Delete godoc
// @Summary      Delete task
// @Tags         Tasks
// @Security     BearerAuth
// @Param        id  path  string  true  "Task ID"
// @Success      200  {object}  SuccessResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := uuidParam(c, "id", "task")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, taskID); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// Reorder godoc
// @Summary      Reorder or move tasks
// @Description  taskIds is the full new order of the column. A single task from another
// @Description  column of the caller is moved in at its index.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string               true  "Column ID"
// @Param        body  body  ReorderTasksRequest  true  "New order"
// @Success      200  {object}  SuccessResponse
// @Failure      400  {object}  response.ErrorResponse
// @Failure      404  {object}  response.ErrorResponse
// @Failure      409  {object}  response.ErrorResponse
// @Router       /columns/{id}/tasks/reorder [put]
func (h *TaskHandler) Reorder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	columnID, ok := uuidParam(c, "id", "column")
	if !ok {
		return
	}

	var req ReorderTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	if err := h.service.Reorder(c.Request.Context(), userID, columnID, req.TaskIDs); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// MoveTask godoc
// @Summary      Move task
// @Description  Moves a task to position in columnId, which may be its current column
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string           true  "Task ID"
// @Param        body  body  MoveTaskRequest  true  "Destination"
// @Success      200  {object}  TaskResponse
// @Failure      400  {object}  response.ErrorResponse
// @Failure      404  {object}  response.ErrorResponse
// @Failure      409  {object}  response.ErrorResponse
// @Router       /tasks/{id}/move [post]
func (h *TaskHandler) MoveTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := uuidParam(c, "id", "task")
	if !ok {
		return
	}

	var req MoveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	task, err := h.service.Move(c.Request.Context(), userID, taskID, req.ColumnID, req.Position)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(task))
}
