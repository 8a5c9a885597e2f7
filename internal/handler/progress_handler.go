package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/progression"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
	"github.com/noah-isme/classquest-api/pkg/response"
)

type progressService interface {
	TeamXP(ctx context.Context, actor models.Actor, teamID string) (*dto.TeamXPView, error)
	StudentXP(ctx context.Context, actor models.Actor, studentID string) (*dto.StudentXPView, error)
}

// ProgressHandler serves derived XP, the level ladder and the power catalog.
type ProgressHandler struct {
	service progressService
}

// NewProgressHandler constructs the handler.
func NewProgressHandler(service progressService) *ProgressHandler {
	return &ProgressHandler{service: service}
}

// TeamXP godoc
// @Summary Team XP and level
// @Tags Progress
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teams/{id}/xp [get]
func (h *ProgressHandler) TeamXP(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	view, err := h.service.TeamXP(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// StudentXP godoc
// @Summary Student individual XP
// @Tags Progress
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/xp [get]
func (h *ProgressHandler) StudentXP(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	view, err := h.service.StudentXP(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Levels godoc
// @Summary Level ladder
// @Description Without xp the whole ladder is returned. With xp, the level and progress for that value.
// @Tags Progress
// @Produce json
// @Param xp query int false "XP value"
// @Success 200 {object} response.Envelope
// @Router /levels [get]
func (h *ProgressHandler) Levels(c *gin.Context) {
	raw := c.Query("xp")
	if raw == "" {
		response.JSON(c, http.StatusOK, progression.Levels(), nil)
		return
	}
	xp, err := strconv.Atoi(raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "xp must be an integer"))
		return
	}
	response.JSON(c, http.StatusOK, progression.ProgressToNext(xp), nil)
}

// Powers godoc
// @Summary Class power catalog
// @Tags Progress
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /powers [get]
func (h *ProgressHandler) Powers(c *gin.Context) {
	response.JSON(c, http.StatusOK, progression.Powers(), nil)
}
