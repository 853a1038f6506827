package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/dto"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/response"
)

type shipmentService interface {
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Shipment, error)
	List(ctx context.Context, query dto.ShipmentQuery, actor *models.JWTClaims) ([]models.Shipment, *models.Pagination, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateShipmentStatusRequest, actor *models.JWTClaims) (*models.Shipment, error)
}

// ShipmentHandler exposes execution records.
type ShipmentHandler struct {
	service shipmentService
}

// NewShipmentHandler constructs the handler.
func NewShipmentHandler(service shipmentService) *ShipmentHandler {
	return &ShipmentHandler{service: service}
}

// Get godoc
// @Summary Fetch a shipment
// @Tags Shipments
// @Produce json
// @Param id path string true "Shipment ID"
// @Success 200 {object} response.Envelope
// @Router /shipments/{id} [get]
func (h *ShipmentHandler) Get(c *gin.Context) {
	shipment, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shipment, nil)
}

// List godoc
// @Summary List shipments
// @Tags Shipments
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Success 200 {object} response.Envelope
// @Router /shipments [get]
func (h *ShipmentHandler) List(c *gin.Context) {
	query := dto.ShipmentQuery{
		Page:     intQuery(c, "page"),
		PageSize: intQuery(c, "page_size"),
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part != "" {
				query.Status = append(query.Status, models.ShipmentStatus(part))
			}
		}
	}
	shipments, pagination, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shipments, pagination)
}

// UpdateStatus godoc
// @Summary Advance a shipment's execution status
// @Tags Shipments
// @Accept json
// @Produce json
// @Param id path string true "Shipment ID"
// @Param payload body dto.UpdateShipmentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /shipments/{id}/status [put]
func (h *ShipmentHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateShipmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status payload"))
		return
	}
	shipment, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shipment, nil)
}
