package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/response"
)

type shopService interface {
	Purchase(ctx context.Context, actor models.Actor, req dto.PurchaseRequest) (*dto.PurchaseResult, error)
	Storefront(ctx context.Context, actor models.Actor, teamID string) (*dto.ShopView, error)
}

// ShopHandler lets the teacher buy on behalf of a team and inspect its storefront.
type ShopHandler struct {
	service shopService
}

// NewShopHandler constructs the handler.
func NewShopHandler(service shopService) *ShopHandler {
	return &ShopHandler{service: service}
}

// Purchase godoc
// @Summary Buy an item for a team
// @Tags Shop
// @Accept json
// @Produce json
// @Param payload body dto.PurchaseRequest true "Purchase payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /shop/purchase [post]
func (h *ShopHandler) Purchase(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.PurchaseRequest
	if !bindJSON(c, &req, "invalid purchase payload") {
		return
	}
	res, err := h.service.Purchase(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Storefront godoc
// @Summary Team storefront
// @Tags Shop
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {object} response.Envelope
// @Router /teams/{id}/shop [get]
func (h *ShopHandler) Storefront(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	view, err := h.service.Storefront(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
