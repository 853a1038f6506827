package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/dto"
	internalmiddleware "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/middleware"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
)

type workflowServiceStub struct {
	rfq *models.RFQ
	err error

	lastAssign   dto.AssignRequest
	lastDecision dto.DecisionRequest
}

func (s *workflowServiceStub) result() (*models.RFQ, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rfq, nil
}

func (s *workflowServiceStub) Create(ctx context.Context, req dto.CreateRFQRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	return s.result()
}

func (s *workflowServiceStub) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.RFQ, error) {
	return s.result()
}

func (s *workflowServiceStub) List(ctx context.Context, query dto.RFQQuery, actor *models.JWTClaims) ([]models.RFQ, *models.Pagination, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return []models.RFQ{*s.rfq}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (s *workflowServiceStub) PreviewCargoTotals(req dto.CargoPreviewRequest) (models.CargoTotals, error) {
	return models.CargoTotals{TotalWeightKg: 80, TotalVolumeCBM: 0.6}, s.err
}

func (s *workflowServiceStub) UpdateCargoLines(ctx context.Context, id string, req dto.UpdateCargoRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	return s.result()
}

func (s *workflowServiceStub) AssignSales(ctx context.Context, id string, req dto.AssignRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	s.lastAssign = req
	return s.result()
}

func (s *workflowServiceStub) AssignPricing(ctx context.Context, id string, req dto.AssignRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	s.lastAssign = req
	return s.result()
}

func (s *workflowServiceStub) SendToPricing(ctx context.Context, id string, req dto.TransitionRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	return s.result()
}

func (s *workflowServiceStub) SubmitQuotation(ctx context.Context, id string, req dto.SubmitQuotationRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	return s.result()
}

func (s *workflowServiceStub) SendToClient(ctx context.Context, id string, req dto.TransitionRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	return s.result()
}

func (s *workflowServiceStub) ClientDecision(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	s.lastDecision = req
	return s.result()
}

func (s *workflowServiceStub) MarkOutcome(ctx context.Context, id string, req dto.OutcomeRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	return s.result()
}

func (s *workflowServiceStub) Cancel(ctx context.Context, id string, req dto.TransitionRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	return s.result()
}

func sampleRFQ() *models.RFQ {
	return &models.RFQ{
		ID:              "rfq-1",
		ReferenceNumber: "RFQ-AB12CD34",
		Mode:            models.ModeAir,
		Origin:          "Cairo",
		Destination:     "Hamburg",
		ClientEmail:     "client@acme.com",
		Status:          models.RFQStatusNew,
		Version:         1,
	}
}

func buildRFQRouter(stub *workflowServiceStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		role := c.GetHeader("X-Test-Role")
		if role == "" {
			appErr := appErrors.ErrUnauthorized
			c.AbortWithStatusJSON(appErr.Status, gin.H{"error": appErr})
			return
		}
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
			UserID: "user-1",
			Role:   models.UserRole(role),
			Email:  "actor@tact.eg",
		})
		c.Next()
	})

	h := NewRFQHandler(stub)
	router.POST("/rfqs", h.Create)
	router.GET("/rfqs", h.List)
	router.GET("/rfqs/:id", h.Get)
	router.POST("/rfqs/:id/assign-sales",
		internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSales), h.AssignSales)
	router.POST("/rfqs/:id/decision", h.Decide)
	router.POST("/rfqs/:id/cancel",
		internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSales), h.Cancel)
	return router
}

func performRFQRequest(router *gin.Engine, method, path, role string, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRFQHandlerCreate(t *testing.T) {
	stub := &workflowServiceStub{rfq: sampleRFQ()}
	router := buildRFQRouter(stub)

	payload := `{"mode":"AIR","origin":"Cairo","destination":"Hamburg","client_email":"client@acme.com"}`
	resp := performRFQRequest(router, http.MethodPost, "/rfqs", string(models.RoleClient), payload)
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Contains(t, resp.Body.String(), `"reference_number":"RFQ-AB12CD34"`)
}

func TestRFQHandlerCreateRejectsMalformedBody(t *testing.T) {
	stub := &workflowServiceStub{rfq: sampleRFQ()}
	router := buildRFQRouter(stub)

	resp := performRFQRequest(router, http.MethodPost, "/rfqs", string(models.RoleClient), `{"mode":`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "VALIDATION_ERROR")
}

func TestRFQHandlerAssignSalesForwardsPayload(t *testing.T) {
	stub := &workflowServiceStub{rfq: sampleRFQ()}
	router := buildRFQRouter(stub)

	resp := performRFQRequest(router, http.MethodPost, "/rfqs/rfq-1/assign-sales",
		string(models.RoleAdmin), `{"email":"nour@tact.eg","version":3}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "nour@tact.eg", stub.lastAssign.Email)
	require.EqualValues(t, 3, stub.lastAssign.Version)
}

func TestRFQHandlerAssignSalesForbiddenForClients(t *testing.T) {
	stub := &workflowServiceStub{rfq: sampleRFQ()}
	router := buildRFQRouter(stub)

	resp := performRFQRequest(router, http.MethodPost, "/rfqs/rfq-1/assign-sales",
		string(models.RoleClient), `{"email":"nour@tact.eg"}`)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRFQHandlerUnauthenticated(t *testing.T) {
	stub := &workflowServiceStub{rfq: sampleRFQ()}
	router := buildRFQRouter(stub)

	resp := performRFQRequest(router, http.MethodGet, "/rfqs/rfq-1", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRFQHandlerServiceErrorMapsToStatus(t *testing.T) {
	stub := &workflowServiceStub{err: appErrors.InvalidTransition("NEW", "send_to_client")}
	router := buildRFQRouter(stub)

	resp := performRFQRequest(router, http.MethodPost, "/rfqs/rfq-1/cancel", string(models.RoleSales), "")
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Contains(t, resp.Body.String(), "INVALID_TRANSITION")
}

func TestRFQHandlerCancelToleratesEmptyBody(t *testing.T) {
	stub := &workflowServiceStub{rfq: sampleRFQ()}
	router := buildRFQRouter(stub)

	resp := performRFQRequest(router, http.MethodPost, "/rfqs/rfq-1/cancel", string(models.RoleAdmin), "")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestRFQHandlerDecisionForwardsAccept(t *testing.T) {
	stub := &workflowServiceStub{rfq: sampleRFQ()}
	router := buildRFQRouter(stub)

	resp := performRFQRequest(router, http.MethodPost, "/rfqs/rfq-1/decision",
		string(models.RoleClient), `{"accept":true,"version":5}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, stub.lastDecision.Accept)
	require.EqualValues(t, 5, stub.lastDecision.Version)
}

func TestRFQHandlerListEnvelope(t *testing.T) {
	stub := &workflowServiceStub{rfq: sampleRFQ()}
	router := buildRFQRouter(stub)

	resp := performRFQRequest(router, http.MethodGet, "/rfqs?status=new,assigned_sales&page=1", string(models.RoleAdmin), "")
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Data       []models.RFQ       `json:"data"`
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.Equal(t, 1, envelope.Pagination.TotalCount)
}
