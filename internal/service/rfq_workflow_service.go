package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/dto"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/repository"
	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
)

// Workflow transition names, used in errors and audit records.
const (
	transitionAssignSales   = "assign_sales"
	transitionAssignPricing = "assign_pricing"
	transitionSendToPricing = "send_to_pricing"
	transitionSubmitQuote   = "submit_quotation"
	transitionSendToClient  = "send_to_client"
	transitionClientAccept  = "client_accept"
	transitionClientReject  = "client_reject"
	transitionMarkOutcome   = "mark_outcome"
	transitionCancel        = "cancel"
	transitionEditCargo     = "edit_cargo"
)

type rfqStore interface {
	Create(ctx context.Context, rfq *models.RFQ) error
	GetByID(ctx context.Context, id string) (*models.RFQ, error)
	List(ctx context.Context, filter models.RFQFilter) ([]models.RFQ, int, error)
	UpdateWorkflowState(ctx context.Context, params repository.UpdateRFQStateParams) error
}

type workflowAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// EventSink receives domain events after the state write commits. The
// production sink enqueues onto the notification queue; tests capture events
// directly.
type EventSink interface {
	Publish(event models.DomainEvent) error
}

// EventSinkFunc allows using plain functions as sinks.
type EventSinkFunc func(event models.DomainEvent) error

// Publish implements EventSink.
func (f EventSinkFunc) Publish(event models.DomainEvent) error { return f(event) }

type shipmentCreator interface {
	CreateFromRFQ(ctx context.Context, rfq *models.RFQ) (*models.Shipment, error)
}

// QuotationRenderer produces a downloadable document for a priced snapshot
// and returns its signed URL. Rendering is best-effort; the workflow logs and
// continues without a URL when it fails.
type QuotationRenderer interface {
	Render(ctx context.Context, rfq *models.RFQ, quote *models.Quotation) (string, error)
}

type transitionObserver interface {
	ObserveTransition(event string, success bool)
}

// RFQWorkflowService is the state machine at the centre of the portal. It
// validates transitions, attaches computed quotation snapshots, and emits
// domain events strictly after the guarded state write commits. A failed
// guard leaves the RFQ untouched.
type RFQWorkflowService struct {
	repo      rfqStore
	cargo     *CargoService
	quotes    *QuotationService
	router    *AssignmentService
	audit     workflowAuditLogger
	events    EventSink
	shipments shipmentCreator
	renderer  QuotationRenderer
	metrics   transitionObserver
	logger    *zap.Logger
}

// RFQWorkflowOption configures the service.
type RFQWorkflowOption func(*RFQWorkflowService)

// WithQuotationRenderer enables PDF generation on quotation submit.
func WithQuotationRenderer(r QuotationRenderer) RFQWorkflowOption {
	return func(s *RFQWorkflowService) { s.renderer = r }
}

// WithShipmentCreator wires shipment creation on client confirmation.
func WithShipmentCreator(c shipmentCreator) RFQWorkflowOption {
	return func(s *RFQWorkflowService) { s.shipments = c }
}

// WithTransitionObserver wires transition metrics.
func WithTransitionObserver(o transitionObserver) RFQWorkflowOption {
	return func(s *RFQWorkflowService) { s.metrics = o }
}

// NewRFQWorkflowService constructs the state machine.
func NewRFQWorkflowService(
	repo rfqStore,
	cargo *CargoService,
	quotes *QuotationService,
	router *AssignmentService,
	audit workflowAuditLogger,
	events EventSink,
	logger *zap.Logger,
	opts ...RFQWorkflowOption,
) *RFQWorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = EventSinkFunc(func(models.DomainEvent) error { return nil })
	}
	svc := &RFQWorkflowService{
		repo:   repo,
		cargo:  cargo,
		quotes: quotes,
		router: router,
		audit:  audit,
		events: events,
		logger: logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create registers a new quote request in the NEW state and notifies the
// sales roster.
func (s *RFQWorkflowService) Create(ctx context.Context, req dto.CreateRFQRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !req.Mode.Valid() {
		return nil, appErrors.Validation("missing_required_field", "mode must be SEA, AIR or INLAND")
	}
	if strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
		return nil, appErrors.Validation("missing_required_field", "origin and destination are required")
	}

	clientEmail := strings.ToLower(strings.TrimSpace(req.ClientEmail))
	companyID := req.CompanyID
	companyName := req.CompanyName
	if actor.Role == models.RoleClient {
		// Clients always file under their own identity.
		clientEmail = strings.ToLower(actor.Email)
		if actor.CompanyID != nil {
			companyID = *actor.CompanyID
		}
	}
	if clientEmail == "" {
		return nil, appErrors.Validation("missing_required_field", "client email is required")
	}

	totals := s.cargo.ComputeTotals(req.CargoLines, req.Mode)
	now := time.Now().UTC()
	rfq := &models.RFQ{
		ID:              uuid.NewString(),
		ReferenceNumber: newReferenceNumber(),
		Mode:            req.Mode,
		Incoterm:        strings.ToUpper(strings.TrimSpace(req.Incoterm)),
		CargoType:       strings.TrimSpace(req.CargoType),
		Origin:          strings.TrimSpace(req.Origin),
		Destination:     strings.TrimSpace(req.Destination),
		WeightKg:        totals.TotalWeightKg,
		VolumeCBM:       totals.TotalVolumeCBM,
		CargoLines:      req.CargoLines,
		CompanyID:       companyID,
		CompanyName:     companyName,
		ClientEmail:     clientEmail,
		Status:          models.RFQStatusNew,
		Version:         1,
		CreatedDate:     now,
		UpdatedDate:     now,
	}
	if err := s.repo.Create(ctx, rfq); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rfq")
	}

	s.emitAudit(ctx, actor, models.AuditActionRFQCreate, rfq.ID, nil, rfq)
	s.publish(models.DomainEvent{
		Type:        models.EventRFQCreated,
		EntityType:  "rfq",
		EntityID:    rfq.ID,
		Reference:   rfq.ReferenceNumber,
		ClientEmail: rfq.ClientEmail,
		ActorEmail:  actor.Email,
		Detail:      fmt.Sprintf("%s → %s (%s)", rfq.Origin, rfq.Destination, rfq.Mode),
	})
	return rfq, nil
}

// Get loads an RFQ, restricting clients to their own records.
func (s *RFQWorkflowService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.RFQ, error) {
	rfq, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleClient && !s.ownedBy(rfq, actor) {
		return nil, appErrors.ErrForbidden
	}
	return rfq, nil
}

// List returns RFQs matching the query, scoped by actor role.
func (s *RFQWorkflowService) List(ctx context.Context, query dto.RFQQuery, actor *models.JWTClaims) ([]models.RFQ, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	filter := models.RFQFilter{
		Status:    query.Status,
		Mode:      query.Mode,
		CompanyID: query.CompanyID,
		Search:    strings.TrimSpace(query.Search),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	}
	if actor.Role == models.RoleClient {
		filter.ClientEmail = strings.ToLower(actor.Email)
	}
	rfqs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rfqs")
	}
	return rfqs, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// PreviewCargoTotals exposes the pure costing engine for running totals. No
// state is read or written.
func (s *RFQWorkflowService) PreviewCargoTotals(req dto.CargoPreviewRequest) (models.CargoTotals, error) {
	if !req.Mode.Valid() {
		return models.CargoTotals{}, appErrors.Validation("missing_required_field", "mode must be SEA, AIR or INLAND")
	}
	return s.cargo.ComputeTotals(req.CargoLines, req.Mode), nil
}

// UpdateCargoLines replaces the cargo lines while the RFQ is still editable.
// Once pricing begins the lines are frozen by the workflow, not the model.
func (s *RFQWorkflowService) UpdateCargoLines(ctx context.Context, id string, req dto.UpdateCargoRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	rfq, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleClient:
		if !s.ownedBy(rfq, actor) {
			return nil, appErrors.ErrForbidden
		}
	case models.RoleAdmin, models.RoleSales:
	default:
		return nil, appErrors.ErrForbidden
	}
	if !rfq.Editable() {
		return nil, appErrors.InvalidTransition(string(rfq.Status), transitionEditCargo)
	}

	totals := s.cargo.ComputeTotals(req.CargoLines, rfq.Mode)
	lines := models.CargoLines(req.CargoLines)
	params := repository.UpdateRFQStateParams{
		ID:              rfq.ID,
		ExpectedVersion: expectedVersion(req.Version, rfq.Version),
		CargoLines:      &lines,
		WeightKg:        &totals.TotalWeightKg,
		VolumeCBM:       &totals.TotalVolumeCBM,
		UpdatedDate:     time.Now().UTC(),
	}
	if err := s.apply(ctx, transitionEditCargo, params); err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionRFQCargoEdit, rfq.ID, rfq.CargoLines, req.CargoLines)
	return s.load(ctx, id)
}

// AssignSales routes the RFQ to a sales owner and moves it out of NEW. A
// re-assignment while already ASSIGNED_SALES replaces the owner and notifies
// the new one.
func (s *RFQWorkflowService) AssignSales(ctx context.Context, id string, req dto.AssignRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	rfq, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(models.RoleAdmin, models.RoleSales) {
		return nil, appErrors.ErrForbidden
	}
	if rfq.Status != models.RFQStatusNew && rfq.Status != models.RFQStatusAssignedSales {
		return nil, appErrors.InvalidTransition(string(rfq.Status), transitionAssignSales)
	}

	result, err := s.router.Resolve(ctx, rfq, models.DepartmentSales, req.Email, actor)
	if err != nil {
		s.observe(transitionAssignSales, false)
		return nil, err
	}

	status := models.RFQStatusAssignedSales
	params := repository.UpdateRFQStateParams{
		ID:                 rfq.ID,
		ExpectedVersion:    expectedVersion(req.Version, rfq.Version),
		Status:             &status,
		AssignedSalesEmail: &result.AssigneeEmail,
		AssignedSalesName:  &result.AssigneeName,
		UpdatedDate:        time.Now().UTC(),
	}
	if err := s.apply(ctx, transitionAssignSales, params); err != nil {
		return nil, err
	}

	s.emitAudit(ctx, actor, models.AuditActionRFQTransition, rfq.ID, rfq.Status, status)
	s.publish(models.DomainEvent{
		Type:          models.EventRFQAssigned,
		EntityType:    "rfq",
		EntityID:      rfq.ID,
		Reference:     rfq.ReferenceNumber,
		Department:    models.DepartmentSales,
		AssigneeEmail: result.Notify.RecipientEmail,
		AssigneeName:  result.Notify.RecipientName,
		ClientEmail:   rfq.ClientEmail,
		ActorEmail:    actor.Email,
	})
	return s.load(ctx, id)
}

// AssignPricing staffs the pricing seat without changing the pipeline state.
// The pricing assignee is notified when the RFQ is actually sent to pricing.
func (s *RFQWorkflowService) AssignPricing(ctx context.Context, id string, req dto.AssignRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	rfq, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(models.RoleAdmin, models.RoleSales) {
		return nil, appErrors.ErrForbidden
	}
	if rfq.Status.Terminal() || rfq.Status == models.RFQStatusClientConfirmed {
		return nil, appErrors.InvalidTransition(string(rfq.Status), transitionAssignPricing)
	}

	result, err := s.router.Resolve(ctx, rfq, models.DepartmentPricing, req.Email, actor)
	if err != nil {
		s.observe(transitionAssignPricing, false)
		return nil, err
	}

	params := repository.UpdateRFQStateParams{
		ID:                   rfq.ID,
		ExpectedVersion:      expectedVersion(req.Version, rfq.Version),
		AssignedPricingEmail: &result.AssigneeEmail,
		AssignedPricingName:  &result.AssigneeName,
		UpdatedDate:          time.Now().UTC(),
	}
	if err := s.apply(ctx, transitionAssignPricing, params); err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionRFQTransition, rfq.ID, rfq.AssignedPricingEmail, result.AssigneeEmail)
	return s.load(ctx, id)
}

// SendToPricing moves an owned RFQ into pricing. The guard requires a staffed
// pricing seat; the pricing assignee is notified.
func (s *RFQWorkflowService) SendToPricing(ctx context.Context, id string, req dto.TransitionRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	rfq, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(models.RoleAdmin, models.RoleSales) {
		return nil, appErrors.ErrForbidden
	}
	if rfq.Status != models.RFQStatusAssignedSales {
		return nil, appErrors.InvalidTransition(string(rfq.Status), transitionSendToPricing)
	}
	if rfq.AssignedPricingEmail == nil {
		return nil, appErrors.InvalidTransition(string(rfq.Status), transitionSendToPricing)
	}

	status := models.RFQStatusPricingInProgress
	params := repository.UpdateRFQStateParams{
		ID:              rfq.ID,
		ExpectedVersion: expectedVersion(req.Version, rfq.Version),
		Status:          &status,
		UpdatedDate:     time.Now().UTC(),
	}
	if err := s.apply(ctx, transitionSendToPricing, params); err != nil {
		return nil, err
	}

	s.emitAudit(ctx, actor, models.AuditActionRFQTransition, rfq.ID, rfq.Status, status)
	s.publish(models.DomainEvent{
		Type:          models.EventRFQAssigned,
		EntityType:    "rfq",
		EntityID:      rfq.ID,
		Reference:     rfq.ReferenceNumber,
		Department:    models.DepartmentPricing,
		AssigneeEmail: *rfq.AssignedPricingEmail,
		AssigneeName:  derefString(rfq.AssignedPricingName),
		ClientEmail:   rfq.ClientEmail,
		ActorEmail:    actor.Email,
	})
	return s.load(ctx, id)
}

// SubmitQuotation builds a fresh snapshot and attaches it, moving the RFQ to
// QUOTATION_READY. Re-submitting while already QUOTATION_READY replaces the
// snapshot in full and re-fires the notification: the pricing content may
// have changed, so a silent no-op would hide it from sales.
func (s *RFQWorkflowService) SubmitQuotation(ctx context.Context, id string, req dto.SubmitQuotationRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	rfq, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(models.RoleAdmin, models.RolePricing) {
		return nil, appErrors.ErrForbidden
	}
	if rfq.Status != models.RFQStatusPricingInProgress && rfq.Status != models.RFQStatusQuotationReady {
		return nil, appErrors.InvalidTransition(string(rfq.Status), transitionSubmitQuote)
	}
	if !s.cargo.HasBillableCargo(rfq.CargoLines) {
		return nil, appErrors.Validation("no_billable_cargo", "every cargo line is degenerate, nothing to price")
	}

	quote, err := s.quotes.Build(req.LineItems, QuotationOptions{
		Currency:     req.Currency,
		ValidityDays: req.ValidityDays,
		Notes:        req.Notes,
		CreatedBy:    actor.Email,
	})
	if err != nil {
		s.observe(transitionSubmitQuote, false)
		return nil, err
	}

	var quotationURL *string
	if s.renderer != nil {
		if url, renderErr := s.renderer.Render(ctx, rfq, quote); renderErr != nil {
			s.logger.Warn("quotation pdf rendering failed",
				zap.String("rfq_id", rfq.ID), zap.Error(renderErr))
		} else {
			quotationURL = &url
		}
	}

	status := models.RFQStatusQuotationReady
	amount, _ := quote.Subtotal.Float64()
	params := repository.UpdateRFQStateParams{
		ID:                rfq.ID,
		ExpectedVersion:   expectedVersion(req.Version, rfq.Version),
		Status:            &status,
		Quotation:         quote,
		QuotationAmount:   &amount,
		QuotationCurrency: &quote.Currency,
		QuotationURL:      quotationURL,
		UpdatedDate:       time.Now().UTC(),
	}
	if notes := strings.TrimSpace(req.PricingNotes); notes != "" {
		params.PricingNotes = &notes
	}
	if err := s.apply(ctx, transitionSubmitQuote, params); err != nil {
		return nil, err
	}

	s.emitAudit(ctx, actor, models.AuditActionRFQTransition, rfq.ID, rfq.QuotationDetails, quote)
	s.publish(models.DomainEvent{
		Type:        models.EventPricingComplete,
		EntityType:  "rfq",
		EntityID:    rfq.ID,
		Reference:   rfq.ReferenceNumber,
		SalesEmail:  derefString(rfq.AssignedSalesEmail),
		ClientEmail: rfq.ClientEmail,
		ActorEmail:  actor.Email,
		Detail:      fmt.Sprintf("%s %s", quote.Subtotal.StringFixed(2), quote.Currency),
	})
	return s.load(ctx, id)
}

// SendToClient releases a ready quotation to the client.
func (s *RFQWorkflowService) SendToClient(ctx context.Context, id string, req dto.TransitionRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	rfq, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(models.RoleAdmin, models.RoleSales) {
		return nil, appErrors.ErrForbidden
	}
	if rfq.Status != models.RFQStatusQuotationReady {
		return nil, appErrors.InvalidTransition(string(rfq.Status), transitionSendToClient)
	}

	status := models.RFQStatusSentToClient
	params := repository.UpdateRFQStateParams{
		ID:              rfq.ID,
		ExpectedVersion: expectedVersion(req.Version, rfq.Version),
		Status:          &status,
		UpdatedDate:     time.Now().UTC(),
	}
	if err := s.apply(ctx, transitionSendToClient, params); err != nil {
		return nil, err
	}

	s.emitAudit(ctx, actor, models.AuditActionRFQTransition, rfq.ID, rfq.Status, status)
	s.publish(models.DomainEvent{
		Type:        models.EventQuotationSent,
		EntityType:  "rfq",
		EntityID:    rfq.ID,
		Reference:   rfq.ReferenceNumber,
		ClientEmail: rfq.ClientEmail,
		SalesEmail:  derefString(rfq.AssignedSalesEmail),
		ActorEmail:  actor.Email,
		ActionURL:   derefString(rfq.QuotationURL),
	})
	return s.load(ctx, id)
}

// ClientDecision records acceptance or rejection by the RFQ's client. Only
// the client on the record may decide; anyone else gets the transition error
// with the state left untouched.
func (s *RFQWorkflowService) ClientDecision(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	rfq, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	transition := transitionClientReject
	if req.Accept {
		transition = transitionClientAccept
	}
	if rfq.Status != models.RFQStatusSentToClient && rfq.Status != models.RFQStatusQuotationReady {
		return nil, appErrors.InvalidTransition(string(rfq.Status), transition)
	}
	if !strings.EqualFold(actor.Email, rfq.ClientEmail) {
		return nil, appErrors.InvalidTransition(string(rfq.Status), transition)
	}

	status := models.RFQStatusRejected
	if req.Accept {
		status = models.RFQStatusClientConfirmed
	}
	params := repository.UpdateRFQStateParams{
		ID:              rfq.ID,
		ExpectedVersion: expectedVersion(req.Version, rfq.Version),
		Status:          &status,
		UpdatedDate:     time.Now().UTC(),
	}
	if err := s.apply(ctx, transition, params); err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionRFQTransition, rfq.ID, rfq.Status, status)

	if req.Accept {
		if s.shipments != nil {
			if _, shipErr := s.shipments.CreateFromRFQ(ctx, rfq); shipErr != nil {
				// The confirmation stands; operations re-creates the
				// shipment manually when this happens.
				s.logger.Error("shipment creation after confirmation failed",
					zap.String("rfq_id", rfq.ID), zap.Error(shipErr))
			}
		}
		s.publish(models.DomainEvent{
			Type:        models.EventQuotationConfirmed,
			EntityType:  "rfq",
			EntityID:    rfq.ID,
			Reference:   rfq.ReferenceNumber,
			SalesEmail:  derefString(rfq.AssignedSalesEmail),
			ClientEmail: rfq.ClientEmail,
			ActorEmail:  actor.Email,
		})
	} else {
		s.publish(models.DomainEvent{
			Type:        models.EventRFQRejected,
			EntityType:  "rfq",
			EntityID:    rfq.ID,
			Reference:   rfq.ReferenceNumber,
			SalesEmail:  derefString(rfq.AssignedSalesEmail),
			ClientEmail: rfq.ClientEmail,
			ActorEmail:  actor.Email,
		})
	}
	return s.load(ctx, id)
}

// MarkOutcome sets the commercial overlay (won/lost) without moving the
// pipeline status. Outcomes are logged, not notified.
func (s *RFQWorkflowService) MarkOutcome(ctx context.Context, id string, req dto.OutcomeRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	rfq, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(models.RoleAdmin, models.RoleSales) {
		return nil, appErrors.ErrForbidden
	}
	if rfq.Status.Terminal() {
		return nil, appErrors.InvalidTransition(string(rfq.Status), transitionMarkOutcome)
	}
	if req.Outcome != models.OutcomeWon && req.Outcome != models.OutcomeLost {
		return nil, appErrors.Validation("missing_required_field", "outcome must be WON or LOST")
	}

	params := repository.UpdateRFQStateParams{
		ID:              rfq.ID,
		ExpectedVersion: expectedVersion(req.Version, rfq.Version),
		FinalStatus:     &req.Outcome,
		UpdatedDate:     time.Now().UTC(),
	}
	if req.Outcome == models.OutcomeWon && req.FinalValue != nil {
		params.FinalValue = req.FinalValue
	}
	if req.Outcome == models.OutcomeLost {
		if reason := strings.TrimSpace(req.LostReason); reason != "" {
			params.LostReason = &reason
		}
	}
	if err := s.apply(ctx, transitionMarkOutcome, params); err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionRFQOutcome, rfq.ID, rfq.FinalStatus, req.Outcome)
	s.logger.Info("rfq outcome recorded",
		zap.String("rfq_id", rfq.ID),
		zap.String("reference", rfq.ReferenceNumber),
		zap.String("outcome", string(req.Outcome)))
	return s.load(ctx, id)
}

// Cancel is the administrative override reaching CANCELLED from any
// non-terminal state. Stakeholders on the record are notified.
func (s *RFQWorkflowService) Cancel(ctx context.Context, id string, req dto.TransitionRequest, actor *models.JWTClaims) (*models.RFQ, error) {
	rfq, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(models.RoleAdmin, models.RoleSales) {
		return nil, appErrors.ErrForbidden
	}
	if rfq.Status.Terminal() {
		return nil, appErrors.InvalidTransition(string(rfq.Status), transitionCancel)
	}

	status := models.RFQStatusCancelled
	params := repository.UpdateRFQStateParams{
		ID:              rfq.ID,
		ExpectedVersion: expectedVersion(req.Version, rfq.Version),
		Status:          &status,
		UpdatedDate:     time.Now().UTC(),
	}
	if err := s.apply(ctx, transitionCancel, params); err != nil {
		return nil, err
	}

	s.emitAudit(ctx, actor, models.AuditActionRFQTransition, rfq.ID, rfq.Status, status)
	s.publish(models.DomainEvent{
		Type:         models.EventRFQCancelled,
		EntityType:   "rfq",
		EntityID:     rfq.ID,
		Reference:    rfq.ReferenceNumber,
		ClientEmail:  rfq.ClientEmail,
		SalesEmail:   derefString(rfq.AssignedSalesEmail),
		PricingEmail: derefString(rfq.AssignedPricingEmail),
		ActorEmail:   actor.Email,
	})
	return s.load(ctx, id)
}

// ownedBy reports whether the actor is the client on the record. Client
// identity is the email, matching the check ClientDecision performs.
func (s *RFQWorkflowService) ownedBy(rfq *models.RFQ, actor *models.JWTClaims) bool {
	return actor != nil && strings.EqualFold(rfq.ClientEmail, actor.Email)
}

func (s *RFQWorkflowService) load(ctx context.Context, id string) (*models.RFQ, error) {
	rfq, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rfq")
	}
	return rfq, nil
}

// apply performs the guarded write. A zero-row update means another writer
// bumped the version between our read and write.
func (s *RFQWorkflowService) apply(ctx context.Context, transition string, params repository.UpdateRFQStateParams) error {
	if err := s.repo.UpdateWorkflowState(ctx, params); err != nil {
		s.observe(transition, false)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConcurrencyConflict, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rfq")
	}
	s.observe(transition, true)
	return nil
}

func (s *RFQWorkflowService) publish(event models.DomainEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := s.events.Publish(event); err != nil {
		// The transition already committed; losing the event only delays
		// notifications, it never unwinds the write.
		s.logger.Warn("failed to publish domain event",
			zap.String("event_type", string(event.Type)),
			zap.String("entity_id", event.EntityID),
			zap.Error(err))
	}
}

func (s *RFQWorkflowService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string, oldValue, newValue interface{}) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "rfq",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "rfq-workflow",
	}
	if actor != nil {
		log.UserID = &actor.UserID
	}
	if oldValue != nil {
		if raw, err := json.Marshal(oldValue); err == nil {
			log.OldValues = raw
		}
	}
	if newValue != nil {
		if raw, err := json.Marshal(newValue); err == nil {
			log.NewValues = raw
		}
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (s *RFQWorkflowService) observe(transition string, success bool) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(transition, success)
	}
}

func expectedVersion(requested, loaded int64) int64 {
	if requested > 0 {
		return requested
	}
	return loaded
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func newReferenceNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "RFQ-" + suffix
}
