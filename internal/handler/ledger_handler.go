package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/response"
)

type grantService interface {
	Grant(ctx context.Context, actor models.Actor, req dto.GrantRequest) (*dto.GrantResult, error)
}

type ledgerService interface {
	Reverse(ctx context.Context, actor models.Actor, id string) (*dto.ReverseResult, error)
	History(ctx context.Context, actor models.Actor, query dto.LedgerQuery) ([]dto.LedgerEntryView, error)
}

// LedgerHandler exposes XP grants, reversals and ledger history.
type LedgerHandler struct {
	grants grantService
	ledger ledgerService
}

// NewLedgerHandler constructs the handler.
func NewLedgerHandler(grants grantService, ledger ledgerService) *LedgerHandler {
	return &LedgerHandler{grants: grants, ledger: ledger}
}

// Grant godoc
// @Summary Grant an activity
// @Description Awards an activity's XP to students or teams of one room. Replaying the same grant_id is a no-op.
// @Tags Ledger
// @Accept json
// @Produce json
// @Param X-Request-ID header string false "Used as grant_id when the body has none"
// @Param payload body dto.GrantRequest true "Grant payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /grants [post]
func (h *LedgerHandler) Grant(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.GrantRequest
	if !bindJSON(c, &req, "invalid grant payload") {
		return
	}

	res, err := h.grants.Grant(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Reverse godoc
// @Summary Reverse a ledger entry
// @Tags Ledger
// @Produce json
// @Param id path string true "Ledger entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /ledger/{id}/reverse [post]
func (h *LedgerHandler) Reverse(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	res, err := h.ledger.Reverse(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// History godoc
// @Summary List ledger entries
// @Description Entries newest first with activity names resolved
// @Tags Ledger
// @Produce json
// @Param room_id query string false "Room ID"
// @Param team_id query string false "Team ID"
// @Param student_id query string false "Student ID"
// @Param include_reversed query bool false "Include reversed entries"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /ledger [get]
func (h *LedgerHandler) History(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var query dto.LedgerQuery
	if !bindQuery(c, &query) {
		return
	}

	entries, err := h.ledger.History(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
