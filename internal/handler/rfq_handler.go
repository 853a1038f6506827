package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/dto"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/response"
)

type rfqWorkflowService interface {
	Create(ctx context.Context, req dto.CreateRFQRequest, actor *models.JWTClaims) (*models.RFQ, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.RFQ, error)
	List(ctx context.Context, query dto.RFQQuery, actor *models.JWTClaims) ([]models.RFQ, *models.Pagination, error)
	PreviewCargoTotals(req dto.CargoPreviewRequest) (models.CargoTotals, error)
	UpdateCargoLines(ctx context.Context, id string, req dto.UpdateCargoRequest, actor *models.JWTClaims) (*models.RFQ, error)
	AssignSales(ctx context.Context, id string, req dto.AssignRequest, actor *models.JWTClaims) (*models.RFQ, error)
	AssignPricing(ctx context.Context, id string, req dto.AssignRequest, actor *models.JWTClaims) (*models.RFQ, error)
	SendToPricing(ctx context.Context, id string, req dto.TransitionRequest, actor *models.JWTClaims) (*models.RFQ, error)
	SubmitQuotation(ctx context.Context, id string, req dto.SubmitQuotationRequest, actor *models.JWTClaims) (*models.RFQ, error)
	SendToClient(ctx context.Context, id string, req dto.TransitionRequest, actor *models.JWTClaims) (*models.RFQ, error)
	ClientDecision(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.RFQ, error)
	MarkOutcome(ctx context.Context, id string, req dto.OutcomeRequest, actor *models.JWTClaims) (*models.RFQ, error)
	Cancel(ctx context.Context, id string, req dto.TransitionRequest, actor *models.JWTClaims) (*models.RFQ, error)
}

// RFQHandler exposes REST endpoints for the RFQ workflow.
type RFQHandler struct {
	service rfqWorkflowService
}

// NewRFQHandler constructs the handler.
func NewRFQHandler(service rfqWorkflowService) *RFQHandler {
	return &RFQHandler{service: service}
}

// Create godoc
// @Summary Submit a new quote request
// @Tags RFQs
// @Accept json
// @Produce json
// @Param payload body dto.CreateRFQRequest true "RFQ payload"
// @Success 201 {object} response.Envelope
// @Router /rfqs [post]
func (h *RFQHandler) Create(c *gin.Context) {
	var req dto.CreateRFQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rfq payload"))
		return
	}
	rfq, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rfq)
}

// Get godoc
// @Summary Fetch a quote request
// @Tags RFQs
// @Produce json
// @Param id path string true "RFQ ID"
// @Success 200 {object} response.Envelope
// @Router /rfqs/{id} [get]
func (h *RFQHandler) Get(c *gin.Context) {
	rfq, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rfq, nil)
}

// List godoc
// @Summary List quote requests
// @Tags RFQs
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param mode query string false "Shipment mode"
// @Param company_id query string false "Company filter"
// @Param q query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /rfqs [get]
func (h *RFQHandler) List(c *gin.Context) {
	query := dto.RFQQuery{
		Mode:      models.ShipmentMode(strings.ToUpper(c.Query("mode"))),
		CompanyID: c.Query("company_id"),
		Search:    c.Query("q"),
		Page:      intQuery(c, "page"),
		PageSize:  intQuery(c, "page_size"),
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part != "" {
				query.Status = append(query.Status, models.RFQStatus(part))
			}
		}
	}
	rfqs, pagination, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rfqs, pagination)
}

// PreviewCargo godoc
// @Summary Compute cargo totals without persisting
// @Tags RFQs
// @Accept json
// @Produce json
// @Param payload body dto.CargoPreviewRequest true "Cargo lines"
// @Success 200 {object} response.Envelope
// @Router /rfqs/cargo-preview [post]
func (h *RFQHandler) PreviewCargo(c *gin.Context) {
	var req dto.CargoPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid cargo payload"))
		return
	}
	totals, err := h.service.PreviewCargoTotals(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, totals, nil)
}

// UpdateCargo godoc
// @Summary Replace cargo lines on an editable RFQ
// @Tags RFQs
// @Accept json
// @Produce json
// @Param id path string true "RFQ ID"
// @Param payload body dto.UpdateCargoRequest true "Cargo lines"
// @Success 200 {object} response.Envelope
// @Router /rfqs/{id}/cargo [put]
func (h *RFQHandler) UpdateCargo(c *gin.Context) {
	var req dto.UpdateCargoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid cargo payload"))
		return
	}
	rfq, err := h.service.UpdateCargoLines(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rfq, nil)
}

// AssignSales godoc
// @Summary Assign a sales owner
// @Tags RFQs
// @Accept json
// @Produce json
// @Param id path string true "RFQ ID"
// @Param payload body dto.AssignRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /rfqs/{id}/assign-sales [post]
func (h *RFQHandler) AssignSales(c *gin.Context) {
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment payload"))
		return
	}
	rfq, err := h.service.AssignSales(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rfq, nil)
}

// AssignPricing godoc
// @Summary Staff the pricing seat
// @Tags RFQs
// @Accept json
// @Produce json
// @Param id path string true "RFQ ID"
// @Param payload body dto.AssignRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /rfqs/{id}/assign-pricing [post]
func (h *RFQHandler) AssignPricing(c *gin.Context) {
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment payload"))
		return
	}
	rfq, err := h.service.AssignPricing(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rfq, nil)
}

// SendToPricing godoc
// @Summary Move the RFQ into pricing
// @Tags RFQs
// @Accept json
// @Produce json
// @Param id path string true "RFQ ID"
// @Success 200 {object} response.Envelope
// @Router /rfqs/{id}/send-to-pricing [post]
func (h *RFQHandler) SendToPricing(c *gin.Context) {
	req := bindTransition(c)
	rfq, err := h.service.SendToPricing(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rfq, nil)
}

// SubmitQuotation godoc
// @Summary Attach a priced quotation snapshot
// @Tags RFQs
// @Accept json
// @Produce json
// @Param id path string true "RFQ ID"
// @Param payload body dto.SubmitQuotationRequest true "Quotation payload"
// @Success 200 {object} response.Envelope
// @Router /rfqs/{id}/quotation [post]
func (h *RFQHandler) SubmitQuotation(c *gin.Context) {
	var req dto.SubmitQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid quotation payload"))
		return
	}
	rfq, err := h.service.SubmitQuotation(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rfq, nil)
}

// SendToClient godoc
// @Summary Release the quotation to the client
// @Tags RFQs
// @Accept json
// @Produce json
// @Param id path string true "RFQ ID"
// @Success 200 {object} response.Envelope
// @Router /rfqs/{id}/send-to-client [post]
func (h *RFQHandler) SendToClient(c *gin.Context) {
	req := bindTransition(c)
	rfq, err := h.service.SendToClient(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rfq, nil)
}

// Decide godoc
// @Summary Record the client's decision on the quotation
// @Tags RFQs
// @Accept json
// @Produce json
// @Param id path string true "RFQ ID"
// @Param payload body dto.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /rfqs/{id}/decision [post]
func (h *RFQHandler) Decide(c *gin.Context) {
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	rfq, err := h.service.ClientDecision(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rfq, nil)
}

// MarkOutcome godoc
// @Summary Record the commercial outcome
// @Tags RFQs
// @Accept json
// @Produce json
// @Param id path string true "RFQ ID"
// @Param payload body dto.OutcomeRequest true "Outcome payload"
// @Success 200 {object} response.Envelope
// @Router /rfqs/{id}/outcome [post]
func (h *RFQHandler) MarkOutcome(c *gin.Context) {
	var req dto.OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid outcome payload"))
		return
	}
	rfq, err := h.service.MarkOutcome(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rfq, nil)
}

// Cancel godoc
// @Summary Cancel a quote request
// @Tags RFQs
// @Accept json
// @Produce json
// @Param id path string true "RFQ ID"
// @Success 200 {object} response.Envelope
// @Router /rfqs/{id}/cancel [post]
func (h *RFQHandler) Cancel(c *gin.Context) {
	req := bindTransition(c)
	rfq, err := h.service.Cancel(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rfq, nil)
}

// bindTransition tolerates an empty body: the version is optional and
// transitions carry nothing else.
func bindTransition(c *gin.Context) dto.TransitionRequest {
	var req dto.TransitionRequest
	_ = c.ShouldBindJSON(&req)
	return req
}

func intQuery(c *gin.Context, key string) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return value
}
