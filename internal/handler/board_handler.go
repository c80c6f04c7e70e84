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

// BoardService is the board behaviour the handler needs.
type BoardService interface {
	List(ctx context.Context, principal uuid.UUID) ([]model.Board, error)
	Get(ctx context.Context, principal, boardID uuid.UUID) (*model.Board, error)
	Create(ctx context.Context, principal uuid.UUID, in service.CreateBoardInput) (*model.Board, error)
	Update(ctx context.Context, principal, boardID uuid.UUID, in service.UpdateBoardInput) (*model.Board, error)
	Delete(ctx context.Context, principal, boardID uuid.UUID) error
	Reorder(ctx context.Context, principal uuid.UUID, boardIDs []uuid.UUID) error
}

type BoardHandler struct {
	service BoardService
	logger  *zap.Logger
}

func NewBoardHandler(service BoardService, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{service: service, logger: logger}
}

type CreateBoardRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Order       *int   `json:"order"`
}

type UpdateBoardRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Order       *int    `json:"order"`
}

type ReorderBoardsRequest struct {
	BoardIDs []uuid.UUID `json:"boardIds" binding:"required"`
}

type BoardResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OwnerID     string `json:"ownerId"`
	Position    int    `json:"position"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// SuccessResponse is returned by reorder endpoints
type SuccessResponse struct {
	Success bool `json:"success"`
}

func toBoardResponse(board *model.Board) BoardResponse {
	return BoardResponse{
		ID:          board.ID.String(),
		Title:       board.Title,
		Description: board.Description,
		OwnerID:     board.OwnerID.String(),
		Position:    board.Position,
		CreatedAt:   board.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   board.UpdatedAt.Format(time.RFC3339),
	}
}

// GetAll godoc
// @Summary      List boards
// @Description  Returns the caller's boards ordered by position
// @Tags         Boards
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   BoardResponse
// @Failure      401  {object}  response.ErrorResponse
// @Router       /boards [get]
func (h *BoardHandler) GetAll(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	boards, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	result := make([]BoardResponse, len(boards))
	for i := range boards {
		result[i] = toBoardResponse(&boards[i])
	}
	c.JSON(http.StatusOK, result)
}

// Create godoc
// @Summary      Create board
// @Description  Appends a board, or inserts it at order when given
// @Tags         Boards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header  string              false  "Replay protection key"
// @Param        body             body    CreateBoardRequest  true   "Board"
// @Success      201  {object}  BoardResponse
// @Failure      400  {object}  response.ErrorResponse
// @Router       /boards [post]
func (h *BoardHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	board, err := h.service.Create(c.Request.Context(), userID, service.CreateBoardInput{
		Title:       req.Title,
		Description: req.Description,
		Order:       req.Order,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toBoardResponse(board))
}

// GetByID godoc
// @Summary      Get board
// @Tags         Boards
// @Produce      json
// @Security     BearerAuth
// @Param        boardId  path  string  true  "Board ID"
// @Success      200  {object}  BoardResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /boards/{boardId} [get]
func (h *BoardHandler) GetByID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := uuidParam(c, "boardId", "board")
	if !ok {
		return
	}

	board, err := h.service.Get(c.Request.Context(), userID, boardID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toBoardResponse(board))
}

// Update godoc
// @Summary      Update board
// @Description  Updates title and description; order moves the board within the caller's list
// @Tags         Boards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        boardId  path  string              true  "Board ID"
// @Param        body     body  UpdateBoardRequest  true  "Fields to change"
// @Success      200  {object}  BoardResponse
// @Failure      400  {object}  response.ErrorResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /boards/{boardId} [patch]
func (h *BoardHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := uuidParam(c, "boardId", "board")
	if !ok {
		return
	}

	var req UpdateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	board, err := h.service.Update(c.Request.Context(), userID, boardID, service.UpdateBoardInput{
		Title:       req.Title,
		Description: req.Description,
		Order:       req.Order,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toBoardResponse(board))
}

// Delete godoc
// @Summary      Delete board
// @Description  Deletes the board with its columns and tasks
// @Tags         Boards
// @Security     BearerAuth
// @Param        boardId  path  string  true  "Board ID"
// @Success      200  {object}  SuccessResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /boards/{boardId} [delete]
func (h *BoardHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := uuidParam(c, "boardId", "board")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, boardID); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// Reorder godoc
// @Summary      Reorder boards
// @Description  boardIds must list every board of the caller exactly once
// @Tags         Boards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  ReorderBoardsRequest  true  "New order"
// @Success      200  {object}  SuccessResponse
// @Failure      400  {object}  response.ErrorResponse
// @Failure      409  {object}  response.ErrorResponse
// @Router       /boards/reorder [put]
func (h *BoardHandler) Reorder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req ReorderBoardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	if err := h.service.Reorder(c.Request.Context(), userID, req.BoardIDs); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
