package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/model"
	"taskboard/internal/service"
)

// ColumnService is the column behaviour the handler needs.
type ColumnService interface {
	List(ctx context.Context, principal, boardID uuid.UUID) ([]model.Column, error)
	Create(ctx context.Context, principal, boardID uuid.UUID, in service.CreateColumnInput) (*model.Column, error)
	Update(ctx context.Context, principal, columnID uuid.UUID, in service.UpdateColumnInput) (*model.Column, error)
	Delete(ctx context.Context, principal, columnID uuid.UUID) error
	Reorder(ctx context.Context, principal, boardID uuid.UUID, columnIDs []uuid.UUID) error
}

type ColumnHandler struct {
	service ColumnService
	logger  *zap.Logger
}

func NewColumnHandler(service ColumnService, logger *zap.Logger) *ColumnHandler {
	return &ColumnHandler{service: service, logger: logger}
}

type CreateColumnRequest struct {
	Title string `json:"title" binding:"required"`
	Order *int   `json:"order"`
}

type UpdateColumnRequest struct {
	Title *string `json:"title"`
	Order *int    `json:"order"`
}

type ReorderColumnsRequest struct {
	ColumnIDs []uuid.UUID `json:"columnIds" binding:"required"`
}

type ColumnResponse struct {
	ID       string `json:"id"`
	BoardID  string `json:"boardId"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

func toColumnResponse(column *model.Column) ColumnResponse {
	return ColumnResponse{
		ID:       column.ID.String(),
		BoardID:  column.BoardID.String(),
		Title:    column.Title,
		Position: column.Position,
	}
}

// GetAll godoc
// @Summary      List columns
// @Tags         Columns
// @Produce      json
// @Security     BearerAuth
// @Param        boardId  path  string  true  "Board ID"
// @Success      200  {array}   ColumnResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /boards/{boardId}/columns [get]
func (h *ColumnHandler) GetAll(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := uuidParam(c, "boardId", "board")
	if !ok {
		return
	}

	columns, err := h.service.List(c.Request.Context(), userID, boardID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	result := make([]ColumnResponse, len(columns))
	for i := range columns {
		result[i] = toColumnResponse(&columns[i])
	}
	c.JSON(http.StatusOK, result)
}

// Create godoc
// @Summary      Create column
// @Tags         Columns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        boardId          path    string               true   "Board ID"
// @Param        Idempotency-Key  header  string               false  "Replay protection key"
// @Param        body             body    CreateColumnRequest  true   "Column"
// @Success      201  {object}  ColumnResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /boards/{boardId}/columns [post]
func (h *ColumnHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := uuidParam(c, "boardId", "board")
	if !ok {
		return
	}

	var req CreateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	column, err := h.service.Create(c.Request.Context(), userID, boardID, service.CreateColumnInput{
		Title: req.Title,
		Order: req.Order,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toColumnResponse(column))
}

// Update godoc
// @Summary      Update column
// @Tags         Columns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string               true  "Column ID"
// @Param        body  body  UpdateColumnRequest  true  "Fields to change"
// @Success      200  {object}  ColumnResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /columns/{id} [patch]
func (h *ColumnHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	columnID, ok := uuidParam(c, "id", "column")
	if !ok {
		return
	}

	var req UpdateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	column, err := h.service.Update(c.Request.Context(), userID, columnID, service.UpdateColumnInput{
		Title: req.Title,
		Order: req.Order,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toColumnResponse(column))
}

// Delete godoc
// @Summary      Delete column
// @Tags         Columns
// @Security     BearerAuth
// @Param        id  path  string  true  "Column ID"
// @Success      200  {object}  SuccessResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /columns/{id} [delete]
func (h *ColumnHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	columnID, ok := uuidParam(c, "id", "column")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, columnID); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// Reorder godoc
// @Summary      Reorder columns
// @Description  columnIds must list every column of the board exactly once
// @Tags         Columns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        boardId  path  string                 true  "Board ID"
// @Param        body     body  ReorderColumnsRequest  true  "New order"
// @Success      200  {object}  SuccessResponse
// @Failure      400  {object}  response.ErrorResponse
// @Failure      404  {object}  response.ErrorResponse
// @Failure      409  {object}  response.ErrorResponse
// @Router       /boards/{boardId}/columns/reorder [put]
func (h *ColumnHandler) Reorder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := uuidParam(c, "boardId", "board")
	if !ok {
		return
	}

	var req ReorderColumnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	if err := h.service.Reorder(c.Request.Context(), userID, boardID, req.ColumnIDs); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
