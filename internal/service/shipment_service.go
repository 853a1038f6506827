package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/dto"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
)

type shipmentStore interface {
	Create(ctx context.Context, shipment *models.Shipment) error
	GetByID(ctx context.Context, id string) (*models.Shipment, error)
	List(ctx context.Context, filter models.ShipmentFilter) ([]models.Shipment, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ShipmentStatus, updatedAt time.Time) error
}

// shipmentStatusRank orders the execution pipeline. Moves only go forward.
var shipmentStatusRank = map[models.ShipmentStatus]int{
	models.ShipmentStatusPending:   0,
	models.ShipmentStatusBooked:    1,
	models.ShipmentStatusInTransit: 2,
	models.ShipmentStatusArrived:   3,
	models.ShipmentStatusDelivered: 4,
}

// ShipmentService manages execution records opened from confirmed RFQs.
type ShipmentService struct {
	store  shipmentStore
	audit  workflowAuditLogger
	events EventSink
	logger *zap.Logger
}

// NewShipmentService constructs the service.
func NewShipmentService(store shipmentStore, audit workflowAuditLogger, events EventSink, logger *zap.Logger) *ShipmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = EventSinkFunc(func(models.DomainEvent) error { return nil })
	}
	return &ShipmentService{store: store, audit: audit, events: events, logger: logger}
}

// CreateFromRFQ opens a PENDING shipment carrying the confirmed RFQ's routing
// and cargo summary. Called by the workflow on client confirmation.
func (s *ShipmentService) CreateFromRFQ(ctx context.Context, rfq *models.RFQ) (*models.Shipment, error) {
	now := time.Now().UTC()
	shipment := &models.Shipment{
		ID:              uuid.NewString(),
		RFQID:           rfq.ID,
		ReferenceNumber: strings.Replace(rfq.ReferenceNumber, "RFQ-", "SHP-", 1),
		TrackingNumber:  newTrackingNumber(),
		Mode:            rfq.Mode,
		Origin:          rfq.Origin,
		Destination:     rfq.Destination,
		WeightKg:        rfq.WeightKg,
		VolumeCBM:       rfq.VolumeCBM,
		CompanyID:       rfq.CompanyID,
		CompanyName:     rfq.CompanyName,
		ClientEmail:     rfq.ClientEmail,
		Status:          models.ShipmentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, shipment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create shipment")
	}
	s.logger.Info("shipment opened from confirmed rfq",
		zap.String("shipment_id", shipment.ID),
		zap.String("rfq_id", rfq.ID),
		zap.String("tracking_number", shipment.TrackingNumber))
	return shipment, nil
}

// Get loads a shipment, restricting clients to their own records.
func (s *ShipmentService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Shipment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	shipment, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shipment")
	}
	if actor.Role == models.RoleClient && !strings.EqualFold(shipment.ClientEmail, actor.Email) {
		return nil, appErrors.ErrForbidden
	}
	return shipment, nil
}

// List returns shipments matching the query, scoped by actor role.
func (s *ShipmentService) List(ctx context.Context, query dto.ShipmentQuery, actor *models.JWTClaims) ([]models.Shipment, *models.Pagination, error) {
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
	filter := models.ShipmentFilter{
		Status: query.Status,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if actor.Role == models.RoleClient {
		filter.ClientEmail = strings.ToLower(actor.Email)
	}
	shipments, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shipments")
	}
	return shipments, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// UpdateStatus advances a shipment. Only forward moves are allowed and only
// operations staff or admins may move them.
func (s *ShipmentService) UpdateStatus(ctx context.Context, id string, req dto.UpdateShipmentStatusRequest, actor *models.JWTClaims) (*models.Shipment, error) {
	if !actor.HasRole(models.RoleAdmin, models.RoleOperations) {
		return nil, appErrors.ErrForbidden
	}
	if !req.Status.Valid() {
		return nil, appErrors.Validation("missing_required_field", "unknown shipment status")
	}
	shipment, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if shipmentStatusRank[req.Status] <= shipmentStatusRank[shipment.Status] {
		return nil, appErrors.InvalidTransition(string(shipment.Status), fmt.Sprintf("move_to_%s", strings.ToLower(string(req.Status))))
	}

	now := time.Now().UTC()
	if err := s.store.UpdateStatus(ctx, id, req.Status, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConcurrencyConflict, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update shipment")
	}

	if s.audit != nil {
		log := &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionShipmentMove,
			Resource:   "shipment",
			ResourceID: &id,
			IPAddress:  "system",
			UserAgent:  "shipment-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}
	s.publishStatusChange(shipment, req.Status, actor)

	shipment.Status = req.Status
	shipment.UpdatedAt = now
	return shipment, nil
}

func (s *ShipmentService) publishStatusChange(shipment *models.Shipment, next models.ShipmentStatus, actor *models.JWTClaims) {
	event := models.DomainEvent{
		ID:          uuid.NewString(),
		Type:        models.EventShipmentStatusChanged,
		EntityType:  "shipment",
		EntityID:    shipment.ID,
		Reference:   shipment.ReferenceNumber,
		ClientEmail: shipment.ClientEmail,
		ActorEmail:  actor.Email,
		Detail:      fmt.Sprintf("%s → %s", shipment.Status, next),
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.events.Publish(event); err != nil {
		s.logger.Warn("failed to publish shipment event",
			zap.String("shipment_id", shipment.ID), zap.Error(err))
	}
}

func newTrackingNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
	return "TRK" + suffix
}
