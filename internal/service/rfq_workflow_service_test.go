package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/dto"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/repository"
	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
)

type rfqStoreStub struct {
	rfqs map[string]*models.RFQ
}

func newRFQStoreStub(rfqs ...*models.RFQ) *rfqStoreStub {
	stub := &rfqStoreStub{rfqs: make(map[string]*models.RFQ)}
	for _, r := range rfqs {
		stub.rfqs[r.ID] = r
	}
	return stub
}

func (s *rfqStoreStub) Create(ctx context.Context, rfq *models.RFQ) error {
	s.rfqs[rfq.ID] = rfq
	return nil
}

func (s *rfqStoreStub) GetByID(ctx context.Context, id string) (*models.RFQ, error) {
	if rfq, ok := s.rfqs[id]; ok {
		clone := *rfq
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *rfqStoreStub) List(ctx context.Context, filter models.RFQFilter) ([]models.RFQ, int, error) {
	result := make([]models.RFQ, 0, len(s.rfqs))
	for _, rfq := range s.rfqs {
		if filter.ClientEmail != "" && rfq.ClientEmail != filter.ClientEmail {
			continue
		}
		result = append(result, *rfq)
	}
	return result, len(result), nil
}

// UpdateWorkflowState mirrors the production guard: a stale expected version
// matches no row.
func (s *rfqStoreStub) UpdateWorkflowState(ctx context.Context, params repository.UpdateRFQStateParams) error {
	rfq, ok := s.rfqs[params.ID]
	if !ok || rfq.Version != params.ExpectedVersion {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		rfq.Status = *params.Status
	}
	if params.AssignedSalesEmail != nil {
		rfq.AssignedSalesEmail = params.AssignedSalesEmail
		rfq.AssignedSalesName = params.AssignedSalesName
	}
	if params.AssignedPricingEmail != nil {
		rfq.AssignedPricingEmail = params.AssignedPricingEmail
		rfq.AssignedPricingName = params.AssignedPricingName
	}
	if params.CargoLines != nil {
		rfq.CargoLines = *params.CargoLines
	}
	if params.WeightKg != nil {
		rfq.WeightKg = *params.WeightKg
	}
	if params.VolumeCBM != nil {
		rfq.VolumeCBM = *params.VolumeCBM
	}
	if params.Quotation != nil {
		rfq.QuotationDetails = params.Quotation
	}
	if params.QuotationAmount != nil {
		rfq.QuotationAmount = params.QuotationAmount
	}
	if params.QuotationCurrency != nil {
		rfq.QuotationCurrency = params.QuotationCurrency
	}
	if params.QuotationURL != nil {
		rfq.QuotationURL = params.QuotationURL
	}
	if params.PricingNotes != nil {
		rfq.PricingNotes = params.PricingNotes
	}
	if params.FinalStatus != nil {
		rfq.FinalStatus = params.FinalStatus
	}
	if params.FinalValue != nil {
		rfq.FinalValue = params.FinalValue
	}
	if params.LostReason != nil {
		rfq.LostReason = params.LostReason
	}
	rfq.Version++
	rfq.UpdatedDate = params.UpdatedDate
	return nil
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type eventCapture struct {
	events []models.DomainEvent
}

func (e *eventCapture) Publish(event models.DomainEvent) error {
	e.events = append(e.events, event)
	return nil
}

func (e *eventCapture) last() models.DomainEvent {
	return e.events[len(e.events)-1]
}

type shipmentCreatorStub struct {
	created []*models.Shipment
}

func (s *shipmentCreatorStub) CreateFromRFQ(ctx context.Context, rfq *models.RFQ) (*models.Shipment, error) {
	shipment := &models.Shipment{ID: "shp-" + rfq.ID, RFQID: rfq.ID}
	s.created = append(s.created, shipment)
	return shipment, nil
}

type workflowFixture struct {
	store     *rfqStoreStub
	audit     *auditStub
	events    *eventCapture
	shipments *shipmentCreatorStub
	svc       *RFQWorkflowService
}

func newWorkflowFixture(rfqs ...*models.RFQ) *workflowFixture {
	store := newRFQStoreStub(rfqs...)
	audit := &auditStub{}
	events := &eventCapture{}
	shipments := &shipmentCreatorStub{}
	directory := newDirectoryStub(
		staffUser("nour@tact.eg", "Nour Hassan", models.RoleSales, models.DepartmentSales),
		staffUser("omar@tact.eg", "Omar Said", models.RolePricing, models.DepartmentPricing),
	)
	svc := NewRFQWorkflowService(
		store,
		NewCargoService(),
		NewQuotationService(14),
		NewAssignmentService(directory, nil),
		audit,
		events,
		nil,
		WithShipmentCreator(shipments),
	)
	return &workflowFixture{store: store, audit: audit, events: events, shipments: shipments, svc: svc}
}

func billableLines() []models.CargoLine {
	return []models.CargoLine{
		{Quantity: 1, LengthCm: 100, WidthCm: 50, HeightCm: 120, WeightPerUnitKg: 80},
	}
}

func seededRFQ(status models.RFQStatus) *models.RFQ {
	rfq := &models.RFQ{
		ID:              "rfq-1",
		ReferenceNumber: "RFQ-AB12CD34",
		Mode:            models.ModeAir,
		Origin:          "Alexandria",
		Destination:     "Rotterdam",
		ClientEmail:     "client@acme.com",
		CargoLines:      billableLines(),
		Status:          status,
		Version:         1,
	}
	if status != models.RFQStatusNew {
		sales, name := "nour@tact.eg", "Nour Hassan"
		rfq.AssignedSalesEmail = &sales
		rfq.AssignedSalesName = &name
	}
	return rfq
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Email: "admin@tact.eg"}
}

func clientClaims(email string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "client-1", Role: models.RoleClient, Email: email}
}

func quotationItems() []dto.QuotationLineItemRequest {
	return []dto.QuotationLineItemRequest{
		{Description: "Air freight", ServiceType: models.ServiceFreight, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(250)},
		{Description: "Customs", ServiceType: models.ServiceCustoms, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(150)},
	}
}

func TestWorkflowCreateEmitsEvent(t *testing.T) {
	f := newWorkflowFixture()
	req := dto.CreateRFQRequest{
		Mode:        models.ModeAir,
		Origin:      "Cairo",
		Destination: "Hamburg",
		ClientEmail: "Client@Acme.com",
		CargoLines:  billableLines(),
	}

	rfq, err := f.svc.Create(context.Background(), req, adminClaims())
	require.NoError(t, err)
	require.Equal(t, models.RFQStatusNew, rfq.Status)
	require.EqualValues(t, 1, rfq.Version)
	require.Equal(t, "client@acme.com", rfq.ClientEmail)
	require.Equal(t, 80.0, rfq.WeightKg)
	require.Equal(t, 0.6, rfq.VolumeCBM)
	require.NotEmpty(t, rfq.ReferenceNumber)

	require.Len(t, f.events.events, 1)
	require.Equal(t, models.EventRFQCreated, f.events.last().Type)
	require.NotEmpty(t, f.events.last().ID)
	require.Len(t, f.audit.logs, 1)
}

func TestWorkflowHappyPathToConfirmation(t *testing.T) {
	f := newWorkflowFixture(seededRFQ(models.RFQStatusNew))
	ctx := context.Background()
	actor := adminClaims()

	rfq, err := f.svc.AssignSales(ctx, "rfq-1", dto.AssignRequest{Email: "nour@tact.eg"}, actor)
	require.NoError(t, err)
	require.Equal(t, models.RFQStatusAssignedSales, rfq.Status)
	require.Equal(t, "nour@tact.eg", *rfq.AssignedSalesEmail)
	require.Equal(t, models.EventRFQAssigned, f.events.last().Type)
	require.Equal(t, models.DepartmentSales, f.events.last().Department)

	rfq, err = f.svc.AssignPricing(ctx, "rfq-1", dto.AssignRequest{Email: "omar@tact.eg"}, actor)
	require.NoError(t, err)
	require.Equal(t, models.RFQStatusAssignedSales, rfq.Status)
	require.Equal(t, "omar@tact.eg", *rfq.AssignedPricingEmail)
	// Staffing the pricing seat alone does not notify.
	require.Len(t, f.events.events, 1)

	rfq, err = f.svc.SendToPricing(ctx, "rfq-1", dto.TransitionRequest{}, actor)
	require.NoError(t, err)
	require.Equal(t, models.RFQStatusPricingInProgress, rfq.Status)
	require.Equal(t, models.EventRFQAssigned, f.events.last().Type)
	require.Equal(t, models.DepartmentPricing, f.events.last().Department)
	require.Equal(t, "omar@tact.eg", f.events.last().AssigneeEmail)

	rfq, err = f.svc.SubmitQuotation(ctx, "rfq-1", dto.SubmitQuotationRequest{
		LineItems: quotationItems(),
		Currency:  "USD",
	}, actor)
	require.NoError(t, err)
	require.Equal(t, models.RFQStatusQuotationReady, rfq.Status)
	require.NotNil(t, rfq.QuotationDetails)
	require.Equal(t, "650.00", rfq.QuotationDetails.Subtotal.StringFixed(2))
	require.Equal(t, 650.0, *rfq.QuotationAmount)
	require.Equal(t, models.EventPricingComplete, f.events.last().Type)
	require.Equal(t, "nour@tact.eg", f.events.last().SalesEmail)

	rfq, err = f.svc.SendToClient(ctx, "rfq-1", dto.TransitionRequest{}, actor)
	require.NoError(t, err)
	require.Equal(t, models.RFQStatusSentToClient, rfq.Status)
	require.Equal(t, models.EventQuotationSent, f.events.last().Type)
	require.Equal(t, "client@acme.com", f.events.last().ClientEmail)

	rfq, err = f.svc.ClientDecision(ctx, "rfq-1", dto.DecisionRequest{Accept: true}, clientClaims("client@acme.com"))
	require.NoError(t, err)
	require.Equal(t, models.RFQStatusClientConfirmed, rfq.Status)
	require.Equal(t, models.EventQuotationConfirmed, f.events.last().Type)
	require.Len(t, f.shipments.created, 1)
	require.Equal(t, "rfq-1", f.shipments.created[0].RFQID)
}

func TestWorkflowGuardFailureLeavesStateUnchanged(t *testing.T) {
	f := newWorkflowFixture(seededRFQ(models.RFQStatusPricingInProgress))

	_, err := f.svc.SendToClient(context.Background(), "rfq-1", dto.TransitionRequest{}, adminClaims())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, "INVALID_TRANSITION", appErr.Code)
	require.Contains(t, appErr.Message, "PRICING_IN_PROGRESS")

	stored := f.store.rfqs["rfq-1"]
	require.Equal(t, models.RFQStatusPricingInProgress, stored.Status)
	require.EqualValues(t, 1, stored.Version)
	require.Empty(t, f.events.events)
}

func TestWorkflowSendToPricingRequiresPricingSeat(t *testing.T) {
	f := newWorkflowFixture(seededRFQ(models.RFQStatusAssignedSales))

	_, err := f.svc.SendToPricing(context.Background(), "rfq-1", dto.TransitionRequest{}, adminClaims())
	require.Error(t, err)
	require.Equal(t, "INVALID_TRANSITION", appErrors.FromError(err).Code)
}

func TestWorkflowSubmitQuotationRejectsDegenerateCargo(t *testing.T) {
	rfq := seededRFQ(models.RFQStatusPricingInProgress)
	rfq.CargoLines = []models.CargoLine{{Quantity: 0}}
	f := newWorkflowFixture(rfq)

	_, err := f.svc.SubmitQuotation(context.Background(), "rfq-1", dto.SubmitQuotationRequest{
		LineItems: quotationItems(),
		Currency:  "USD",
	}, adminClaims())
	require.Error(t, err)
	require.Contains(t, appErrors.FromError(err).Message, "no_billable_cargo")
	require.Equal(t, models.RFQStatusPricingInProgress, f.store.rfqs["rfq-1"].Status)
}

func TestWorkflowResubmitReplacesSnapshotAndRefires(t *testing.T) {
	f := newWorkflowFixture(seededRFQ(models.RFQStatusPricingInProgress))
	ctx := context.Background()
	actor := adminClaims()

	_, err := f.svc.SubmitQuotation(ctx, "rfq-1", dto.SubmitQuotationRequest{
		LineItems: quotationItems(),
		Currency:  "USD",
	}, actor)
	require.NoError(t, err)

	rfq, err := f.svc.SubmitQuotation(ctx, "rfq-1", dto.SubmitQuotationRequest{
		LineItems: []dto.QuotationLineItemRequest{
			{Description: "Air freight", ServiceType: models.ServiceFreight, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(900)},
		},
		Currency: "USD",
	}, actor)
	require.NoError(t, err)
	require.Equal(t, models.RFQStatusQuotationReady, rfq.Status)
	require.Equal(t, "900.00", rfq.QuotationDetails.Subtotal.StringFixed(2))
	require.Len(t, rfq.QuotationDetails.LineItems, 1)

	require.Len(t, f.events.events, 2)
	require.Equal(t, models.EventPricingComplete, f.events.events[0].Type)
	require.Equal(t, models.EventPricingComplete, f.events.events[1].Type)
}

func TestWorkflowClientDecisionRequiresOwningClient(t *testing.T) {
	f := newWorkflowFixture(seededRFQ(models.RFQStatusSentToClient))

	_, err := f.svc.ClientDecision(context.Background(), "rfq-1", dto.DecisionRequest{Accept: true}, clientClaims("other@corp.com"))
	require.Error(t, err)
	require.Equal(t, "INVALID_TRANSITION", appErrors.FromError(err).Code)
	require.Equal(t, models.RFQStatusSentToClient, f.store.rfqs["rfq-1"].Status)
	require.Empty(t, f.shipments.created)
}

func TestWorkflowClientRejectEmitsRejected(t *testing.T) {
	f := newWorkflowFixture(seededRFQ(models.RFQStatusSentToClient))

	rfq, err := f.svc.ClientDecision(context.Background(), "rfq-1", dto.DecisionRequest{Accept: false}, clientClaims("client@acme.com"))
	require.NoError(t, err)
	require.Equal(t, models.RFQStatusRejected, rfq.Status)
	require.Equal(t, models.EventRFQRejected, f.events.last().Type)
	require.Empty(t, f.shipments.created)
}

func TestWorkflowVersionConflict(t *testing.T) {
	f := newWorkflowFixture(seededRFQ(models.RFQStatusQuotationReady))

	// A stale version means another writer got there first.
	_, err := f.svc.SendToClient(context.Background(), "rfq-1", dto.TransitionRequest{Version: 99}, adminClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConcurrencyConflict.Code, appErrors.FromError(err).Code)
	require.Equal(t, models.RFQStatusQuotationReady, f.store.rfqs["rfq-1"].Status)
}

func TestWorkflowMarkOutcomeKeepsStatus(t *testing.T) {
	f := newWorkflowFixture(seededRFQ(models.RFQStatusClientConfirmed))
	value := 18500.0

	rfq, err := f.svc.MarkOutcome(context.Background(), "rfq-1", dto.OutcomeRequest{
		Outcome:    models.OutcomeWon,
		FinalValue: &value,
	}, adminClaims())
	require.NoError(t, err)
	require.Equal(t, models.RFQStatusClientConfirmed, rfq.Status)
	require.Equal(t, models.OutcomeWon, *rfq.FinalStatus)
	require.Equal(t, 18500.0, *rfq.FinalValue)
	// Outcomes are logged, never notified.
	require.Empty(t, f.events.events)
}

func TestWorkflowMarkOutcomeRejectedOnTerminal(t *testing.T) {
	f := newWorkflowFixture(seededRFQ(models.RFQStatusCancelled))

	_, err := f.svc.MarkOutcome(context.Background(), "rfq-1", dto.OutcomeRequest{Outcome: models.OutcomeLost}, adminClaims())
	require.Error(t, err)
	require.Equal(t, "INVALID_TRANSITION", appErrors.FromError(err).Code)
}

func TestWorkflowCancelNotifiesStakeholders(t *testing.T) {
	rfq := seededRFQ(models.RFQStatusPricingInProgress)
	pricing := "omar@tact.eg"
	rfq.AssignedPricingEmail = &pricing
	f := newWorkflowFixture(rfq)

	updated, err := f.svc.Cancel(context.Background(), "rfq-1", dto.TransitionRequest{}, adminClaims())
	require.NoError(t, err)
	require.Equal(t, models.RFQStatusCancelled, updated.Status)

	event := f.events.last()
	require.Equal(t, models.EventRFQCancelled, event.Type)
	require.Equal(t, "client@acme.com", event.ClientEmail)
	require.Equal(t, "nour@tact.eg", event.SalesEmail)
	require.Equal(t, "omar@tact.eg", event.PricingEmail)
}

func TestWorkflowCargoFrozenOncePricingStarts(t *testing.T) {
	f := newWorkflowFixture(seededRFQ(models.RFQStatusPricingInProgress))

	_, err := f.svc.UpdateCargoLines(context.Background(), "rfq-1", dto.UpdateCargoRequest{
		CargoLines: billableLines(),
	}, adminClaims())
	require.Error(t, err)
	require.Equal(t, "INVALID_TRANSITION", appErrors.FromError(err).Code)
}

func TestWorkflowUpdateCargoRecomputesTotals(t *testing.T) {
	f := newWorkflowFixture(seededRFQ(models.RFQStatusNew))

	rfq, err := f.svc.UpdateCargoLines(context.Background(), "rfq-1", dto.UpdateCargoRequest{
		CargoLines: []models.CargoLine{
			{Quantity: 2, LengthCm: 100, WidthCm: 50, HeightCm: 120, WeightPerUnitKg: 40},
		},
	}, adminClaims())
	require.NoError(t, err)
	require.Equal(t, 1.2, rfq.VolumeCBM)
	require.Equal(t, 80.0, rfq.WeightKg)
	require.EqualValues(t, 2, rfq.Version)
}

func TestWorkflowClientScopedReads(t *testing.T) {
	f := newWorkflowFixture(seededRFQ(models.RFQStatusSentToClient))

	_, err := f.svc.Get(context.Background(), "rfq-1", clientClaims("other@corp.com"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	rfq, err := f.svc.Get(context.Background(), "rfq-1", clientClaims("client@acme.com"))
	require.NoError(t, err)
	require.Equal(t, "rfq-1", rfq.ID)
}

func TestWorkflowCargoEditScopedToOwningClient(t *testing.T) {
	f := newWorkflowFixture(seededRFQ(models.RFQStatusNew))
	req := dto.UpdateCargoRequest{CargoLines: billableLines()}

	_, err := f.svc.UpdateCargoLines(context.Background(), "rfq-1", req, clientClaims("other@corp.com"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// The email match is case-insensitive, like the decision check.
	rfq, err := f.svc.UpdateCargoLines(context.Background(), "rfq-1", req, clientClaims("Client@Acme.COM"))
	require.NoError(t, err)
	require.EqualValues(t, 2, rfq.Version)
}
