package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/response"
)

type transferService interface {
	Transfer(ctx context.Context, actor models.Actor, req dto.TransferRequest) (*models.Transfer, error)
	List(ctx context.Context, actor models.Actor, studentID, teamID string) ([]models.Transfer, error)
}

type powerService interface {
	SetUsed(ctx context.Context, actor models.Actor, studentID string, used bool) (*models.Student, error)
	SetRoomUsed(ctx context.Context, actor models.Actor, roomID string, used bool) (int64, error)
}

// RosterHandler moves students between teams and tracks power usage.
type RosterHandler struct {
	transfers transferService
	powers    powerService
}

// NewRosterHandler constructs the handler.
func NewRosterHandler(transfers transferService, powers powerService) *RosterHandler {
	return &RosterHandler{transfers: transfers, powers: powers}
}

// Transfer godoc
// @Summary Transfer a student
// @Description Moves a student to another team of the same room. Individual XP follows the student.
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body dto.TransferRequest true "Transfer payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /transfers [post]
func (h *RosterHandler) Transfer(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.TransferRequest
	if !bindJSON(c, &req, "invalid transfer payload") {
		return
	}
	transfer, err := h.transfers.Transfer(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, transfer)
}

// Transfers godoc
// @Summary List transfers
// @Tags Roster
// @Produce json
// @Param student_id query string false "Student ID"
// @Param team_id query string false "Team ID, as origin or destination"
// @Success 200 {object} response.Envelope
// @Router /transfers [get]
func (h *RosterHandler) Transfers(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	items, err := h.transfers.List(c.Request.Context(), actor, c.Query("student_id"), c.Query("team_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// SetPower godoc
// @Summary Mark a student's power as used or unused
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.PowerUsageRequest true "Usage flag"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students/{id}/power [put]
func (h *RosterHandler) SetPower(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.PowerUsageRequest
	if !bindJSON(c, &req, "invalid power payload") {
		return
	}
	student, err := h.powers.SetUsed(c.Request.Context(), actor, c.Param("id"), req.Used)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// SetRoomPowers godoc
// @Summary Set the power usage flag for a whole room
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param payload body dto.BulkPowerUsageRequest true "Usage flag"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/powers [put]
func (h *RosterHandler) SetRoomPowers(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.BulkPowerUsageRequest
	if !bindJSON(c, &req, "invalid power payload") {
		return
	}
	updated, err := h.powers.SetRoomUsed(c.Request.Context(), actor, c.Param("id"), req.Used)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"room_id": c.Param("id"), "updated": updated, "used": req.Used}, nil)
}
