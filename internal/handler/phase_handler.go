package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/repository"
	"github.com/noah-isme/classquest-api/pkg/response"
)

type phaseService interface {
	Start(ctx context.Context, actor models.Actor, req dto.StartPhaseRequest) (*repository.PhaseTransition, error)
	Active(ctx context.Context, actor models.Actor) (*models.Phase, error)
	List(ctx context.Context, actor models.Actor) ([]models.Phase, error)
}

// PhaseHandler opens phases and lists their history.
type PhaseHandler struct {
	service phaseService
}

// NewPhaseHandler constructs the handler.
func NewPhaseHandler(service phaseService) *PhaseHandler {
	return &PhaseHandler{service: service}
}

// Start godoc
// @Summary Start a new phase
// @Description Closes the active phase and resets every power usage flag of the teacher's students.
// @Tags Phases
// @Accept json
// @Produce json
// @Param payload body dto.StartPhaseRequest true "Phase payload"
// @Success 201 {object} response.Envelope
// @Router /phases [post]
func (h *PhaseHandler) Start(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.StartPhaseRequest
	if !bindJSON(c, &req, "invalid phase payload") {
		return
	}
	transition, err := h.service.Start(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, transition)
}

// List godoc
// @Summary List phases
// @Tags Phases
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /phases [get]
func (h *PhaseHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	phases, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, phases, nil)
}

// Active godoc
// @Summary Current phase
// @Tags Phases
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /phases/active [get]
func (h *PhaseHandler) Active(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	phase, err := h.service.Active(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, phase, nil)
}
