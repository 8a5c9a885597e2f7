package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/response"
)

type incidentService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateIncidentRequest) (*models.Incident, error)
	List(ctx context.Context, actor models.Actor, query dto.IncidentQuery) ([]models.Incident, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id string, req dto.UpdateIncidentRequest) (*models.Incident, error)
}

// IncidentHandler is the teacher side of incident tracking.
type IncidentHandler struct {
	service incidentService
}

// NewIncidentHandler constructs the handler.
func NewIncidentHandler(service incidentService) *IncidentHandler {
	return &IncidentHandler{service: service}
}

// List godoc
// @Summary List incidents
// @Tags Incidents
// @Produce json
// @Param team_id query string false "Team ID"
// @Param status query string false "open, in_progress or resolved"
// @Success 200 {object} response.Envelope
// @Router /incidents [get]
func (h *IncidentHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var query dto.IncidentQuery
	if !bindQuery(c, &query) {
		return
	}
	items, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary File an incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Param payload body dto.CreateIncidentRequest true "Incident payload"
// @Success 201 {object} response.Envelope
// @Router /incidents [post]
func (h *IncidentHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateIncidentRequest
	if !bindJSON(c, &req, "invalid incident payload") {
		return
	}
	incident, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, incident)
}

// Update godoc
// @Summary Change incident status
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Param payload body dto.UpdateIncidentRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id} [patch]
func (h *IncidentHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.UpdateIncidentRequest
	if !bindJSON(c, &req, "invalid incident payload") {
		return
	}
	incident, err := h.service.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incident, nil)
}
