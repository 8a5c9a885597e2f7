package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/response"
)

type artifactService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateArtifactRequest) (*models.Artifact, error)
	List(ctx context.Context, actor models.Actor) ([]models.Artifact, error)
	Award(ctx context.Context, actor models.Actor, artifactID string, req dto.AwardArtifactRequest) (*models.ArtifactAward, error)
	ListForTeam(ctx context.Context, actor models.Actor, teamID string) ([]models.ArtifactAward, error)
}

// ArtifactHandler manages the artifact catalog and awards.
type ArtifactHandler struct {
	service artifactService
}

// NewArtifactHandler constructs the handler.
func NewArtifactHandler(service artifactService) *ArtifactHandler {
	return &ArtifactHandler{service: service}
}

// List godoc
// @Summary Artifact catalog
// @Tags Artifacts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /artifacts [get]
func (h *ArtifactHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Add an artifact to the catalog
// @Tags Artifacts
// @Accept json
// @Produce json
// @Param payload body dto.CreateArtifactRequest true "Artifact payload"
// @Success 201 {object} response.Envelope
// @Router /artifacts [post]
func (h *ArtifactHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateArtifactRequest
	if !bindJSON(c, &req, "invalid artifact payload") {
		return
	}
	artifact, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, artifact)
}

// Award godoc
// @Summary Award an artifact
// @Description Exactly one of team_id or student_id must be set.
// @Tags Artifacts
// @Accept json
// @Produce json
// @Param id path string true "Artifact ID"
// @Param payload body dto.AwardArtifactRequest true "Award payload"
// @Success 201 {object} response.Envelope
// @Router /artifacts/{id}/award [post]
func (h *ArtifactHandler) Award(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.AwardArtifactRequest
	if !bindJSON(c, &req, "invalid award payload") {
		return
	}
	award, err := h.service.Award(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, award)
}

// TeamArtifacts godoc
// @Summary Artifacts held by a team
// @Tags Artifacts
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {object} response.Envelope
// @Router /teams/{id}/artifacts [get]
func (h *ArtifactHandler) TeamArtifacts(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	items, err := h.service.ListForTeam(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
