package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/middleware"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/service"
	"github.com/noah-isme/classquest-api/pkg/response"
)

type standingsService interface {
	Teams(ctx context.Context, actor models.Actor, roomID string) ([]dto.TeamStanding, error)
	Students(ctx context.Context, actor models.Actor, roomID string) ([]dto.StudentStanding, error)
	Export(ctx context.Context, actor models.Actor, roomID, kind, format string) (*service.StandingsExport, error)
}

// StandingsHandler serves room rankings.
type StandingsHandler struct {
	service standingsService
}

// NewStandingsHandler constructs the handler.
func NewStandingsHandler(service standingsService) *StandingsHandler {
	return &StandingsHandler{service: service}
}

// Teams godoc
// @Summary Team ranking of a room
// @Tags Standings
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rooms/{id}/standings/teams [get]
func (h *StandingsHandler) Teams(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	teams, err := h.service.Teams(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.AddMeta(c, "count", len(teams))
	response.JSON(c, http.StatusOK, teams, nil, middleware.ExtractMeta(c))
}

// Students godoc
// @Summary Student ranking of a room
// @Tags Standings
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rooms/{id}/standings/students [get]
func (h *StandingsHandler) Students(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	students, err := h.service.Students(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.AddMeta(c, "count", len(students))
	response.JSON(c, http.StatusOK, students, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export a room ranking
// @Tags Standings
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Room ID"
// @Param kind query string false "teams or students" default(teams)
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /rooms/{id}/standings/export [get]
func (h *StandingsHandler) Export(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))
	kind := strings.ToLower(strings.TrimSpace(c.Query("kind")))

	out, err := h.service.Export(c.Request.Context(), actor, c.Param("id"), kind, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, out.Filename, out.ContentType, out.Body)
}
