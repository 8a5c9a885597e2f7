package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/response"
)

type portalService interface {
	IssueCode(ctx context.Context, actor models.Actor, teamID string) (*dto.LeaderCodeResult, error)
	Snapshot(ctx context.Context, actor models.Actor) (*dto.PortalSnapshot, error)
}

// PortalHandler serves the leader portal. Every route except IssueCode runs
// behind the leader code middleware, so the actor is always the session team.
type PortalHandler struct {
	portal    portalService
	shop      shopService
	incidents incidentService
}

// NewPortalHandler constructs the handler.
func NewPortalHandler(portal portalService, shop shopService, incidents incidentService) *PortalHandler {
	return &PortalHandler{portal: portal, shop: shop, incidents: incidents}
}

// IssueCode godoc
// @Summary Issue a leader code
// @Description Generates a fresh six digit code for the team. The previous code stops working.
// @Tags Portal
// @Produce json
// @Param id path string true "Team ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teams/{id}/leader-code [post]
func (h *PortalHandler) IssueCode(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	res, err := h.portal.IssueCode(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Team godoc
// @Summary Leader view of the session team
// @Tags Portal
// @Produce json
// @Param X-Leader-Code header string true "Leader code"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /portal/team [get]
func (h *PortalHandler) Team(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	snap, err := h.portal.Snapshot(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

// Shop godoc
// @Summary Leader storefront
// @Tags Portal
// @Produce json
// @Param X-Leader-Code header string true "Leader code"
// @Success 200 {object} response.Envelope
// @Router /portal/shop [get]
func (h *PortalHandler) Shop(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	view, err := h.shop.Storefront(c.Request.Context(), actor, actor.TeamID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Purchase godoc
// @Summary Leader purchase
// @Tags Portal
// @Accept json
// @Produce json
// @Param X-Leader-Code header string true "Leader code"
// @Param payload body dto.PortalPurchaseRequest true "Purchase payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /portal/shop/purchase [post]
func (h *PortalHandler) Purchase(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.PortalPurchaseRequest
	if !bindJSON(c, &req, "invalid purchase payload") {
		return
	}
	res, err := h.shop.Purchase(c.Request.Context(), actor, dto.PurchaseRequest{TeamID: actor.TeamID, ItemID: req.ItemID})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Incidents godoc
// @Summary Incidents of the session team
// @Tags Portal
// @Produce json
// @Param X-Leader-Code header string true "Leader code"
// @Param status query string false "open, in_progress or resolved"
// @Success 200 {object} response.Envelope
// @Router /portal/incidents [get]
func (h *PortalHandler) Incidents(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	items, err := h.incidents.List(c.Request.Context(), actor, dto.IncidentQuery{TeamID: actor.TeamID, Status: c.Query("status")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ReportIncident godoc
// @Summary Report an incident as team leader
// @Tags Portal
// @Accept json
// @Produce json
// @Param X-Leader-Code header string true "Leader code"
// @Param payload body dto.PortalIncidentRequest true "Incident payload"
// @Success 201 {object} response.Envelope
// @Router /portal/incidents [post]
func (h *PortalHandler) ReportIncident(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.PortalIncidentRequest
	if !bindJSON(c, &req, "invalid incident payload") {
		return
	}
	incident, err := h.incidents.Create(c.Request.Context(), actor, dto.CreateIncidentRequest{TeamID: actor.TeamID, Description: req.Description})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, incident)
}
