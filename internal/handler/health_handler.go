package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	OK bool   `json:"ok"`
	TS string `json:"ts"`
}

// Health godoc
// @Summary  Liveness probe
// @Tags     Health
// @Produce  json
// @Success  200  {object}  HealthResponse
// @Router   /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{OK: true, TS: time.Now().UTC().Format(time.RFC3339)})
}
