package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/jobs"
)

type notificationStore interface {
	// Create persists the record, returning false when the (event_id,
	// recipient_email) pair was already written by an earlier delivery.
	Create(ctx context.Context, n *models.Notification) (bool, error)
}

// DispatchFailure describes one recipient the dispatcher could not reach on a
// side channel. Persisted notifications are never in this list; a failure to
// persist fails the whole dispatch instead.
type DispatchFailure struct {
	RecipientEmail string `json:"recipient_email"`
	Channel        string `json:"channel"`
	Reason         string `json:"reason"`
}

// EmailSender is the outbound mail dependency.
type EmailSender interface {
	Send(to, subject, body string) error
}

// NotificationDispatcher resolves domain events into per-recipient
// notification records plus best-effort emails. Redelivered events are safe:
// the store deduplicates on (event_id, recipient_email) and a deduped record
// sends no second email.
type NotificationDispatcher struct {
	store     notificationStore
	directory directoryReader
	mail      EmailSender
	logger    *zap.Logger
}

// NewNotificationDispatcher builds the dispatcher. The email sender may be
// nil; in-app records are then the only channel.
func NewNotificationDispatcher(store notificationStore, directory directoryReader, mail EmailSender, logger *zap.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationDispatcher{store: store, directory: directory, mail: mail, logger: logger}
}

// HandleJob adapts the dispatcher onto the background queue. Only persistence
// failures propagate; those requeue the event, and dedup absorbs the retry.
func (d *NotificationDispatcher) HandleJob(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.DomainEvent)
	if !ok {
		d.logger.Error("dropping job with unexpected payload",
			zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	_, err := d.Dispatch(ctx, event)
	return err
}

// Dispatch fans the event out to every resolved recipient. Side-channel
// failures are collected and returned; they never abort remaining recipients.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, event models.DomainEvent) ([]DispatchFailure, error) {
	recipients, err := d.resolveRecipients(ctx, event)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		d.logger.Debug("event resolved to no recipients",
			zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
		return nil, nil
	}

	title, message := renderNotification(event)
	var failures []DispatchFailure
	for _, recipient := range recipients {
		n := &models.Notification{
			ID:              uuid.NewString(),
			EventID:         event.ID,
			Type:            notificationType(event.Type),
			Title:           title,
			Message:         message,
			RecipientEmail:  recipient,
			EntityType:      event.EntityType,
			EntityID:        event.EntityID,
			EntityReference: event.Reference,
			CreatedAt:       event.OccurredAt,
		}
		if event.ActionURL != "" {
			url := event.ActionURL
			n.ActionURL = &url
		}
		created, err := d.store.Create(ctx, n)
		if err != nil {
			return failures, fmt.Errorf("persist notification for %s: %w", recipient, err)
		}
		if !created {
			// Redelivery; this recipient was already handled.
			continue
		}
		if d.mail == nil {
			continue
		}
		if err := d.mail.Send(recipient, title, message); err != nil {
			d.logger.Warn("email delivery failed",
				zap.String("event_id", event.ID),
				zap.String("recipient", recipient),
				zap.Error(err))
			failures = append(failures, DispatchFailure{
				RecipientEmail: recipient,
				Channel:        "email",
				Reason:         err.Error(),
			})
		}
	}
	return failures, nil
}

// resolveRecipients maps an event onto the stakeholder emails it concerns.
func (d *NotificationDispatcher) resolveRecipients(ctx context.Context, event models.DomainEvent) ([]string, error) {
	switch event.Type {
	case models.EventRFQCreated:
		return d.departmentRoster(ctx, models.DepartmentSales)
	case models.EventRFQAssigned:
		return dedupeEmails(event.AssigneeEmail), nil
	case models.EventPricingComplete:
		return dedupeEmails(event.SalesEmail), nil
	case models.EventQuotationSent:
		return dedupeEmails(event.ClientEmail), nil
	case models.EventQuotationConfirmed, models.EventRFQRejected:
		return dedupeEmails(event.SalesEmail), nil
	case models.EventRFQCancelled:
		return dedupeEmails(event.ClientEmail, event.SalesEmail, event.PricingEmail), nil
	case models.EventShipmentStatusChanged:
		// Execution updates go to the client and the whole sales and
		// operations staff; shipments carry no single assignee.
		sales, err := d.departmentRoster(ctx, models.DepartmentSales)
		if err != nil {
			return nil, err
		}
		operations, err := d.departmentRoster(ctx, models.DepartmentOperations)
		if err != nil {
			return nil, err
		}
		recipients := append([]string{event.ClientEmail}, sales...)
		recipients = append(recipients, operations...)
		return dedupeEmails(recipients...), nil
	default:
		d.logger.Warn("unknown event type", zap.String("event_type", string(event.Type)))
		return nil, nil
	}
}

func (d *NotificationDispatcher) departmentRoster(ctx context.Context, dept models.Department) ([]string, error) {
	if d.directory == nil {
		return nil, nil
	}
	users, err := d.directory.ListByDepartment(ctx, dept)
	if err != nil {
		return nil, fmt.Errorf("resolve %s roster: %w", strings.ToLower(string(dept)), err)
	}
	emails := make([]string, 0, len(users))
	for _, u := range users {
		if u.Active {
			emails = append(emails, u.Email)
		}
	}
	return dedupeEmails(emails...), nil
}

func renderNotification(event models.DomainEvent) (title, message string) {
	ref := event.Reference
	switch event.Type {
	case models.EventRFQCreated:
		return fmt.Sprintf("New RFQ %s", ref),
			fmt.Sprintf("A new quote request %s arrived: %s.", ref, event.Detail)
	case models.EventRFQAssigned:
		return fmt.Sprintf("RFQ %s assigned to you", ref),
			fmt.Sprintf("You are now the %s owner of RFQ %s.", strings.ToLower(string(event.Department)), ref)
	case models.EventPricingComplete:
		return fmt.Sprintf("Quotation ready for RFQ %s", ref),
			fmt.Sprintf("Pricing completed RFQ %s at %s. Review and send it to the client.", ref, event.Detail)
	case models.EventQuotationSent:
		return fmt.Sprintf("Your quotation for RFQ %s", ref),
			fmt.Sprintf("Your quotation for request %s is ready for review.", ref)
	case models.EventQuotationConfirmed:
		return fmt.Sprintf("RFQ %s confirmed", ref),
			fmt.Sprintf("The client accepted the quotation for RFQ %s. A shipment has been opened.", ref)
	case models.EventRFQRejected:
		return fmt.Sprintf("RFQ %s rejected", ref),
			fmt.Sprintf("The client declined the quotation for RFQ %s.", ref)
	case models.EventRFQCancelled:
		return fmt.Sprintf("RFQ %s cancelled", ref),
			fmt.Sprintf("RFQ %s was cancelled by %s.", ref, event.ActorEmail)
	case models.EventShipmentStatusChanged:
		return fmt.Sprintf("Shipment update for %s", ref),
			fmt.Sprintf("Shipment %s changed status: %s.", ref, event.Detail)
	default:
		return string(event.Type), event.Detail
	}
}

func notificationType(t models.EventType) models.NotificationType {
	switch t {
	case models.EventRFQCreated:
		return models.NotificationRFQCreated
	case models.EventRFQAssigned:
		return models.NotificationRFQAssigned
	case models.EventPricingComplete:
		return models.NotificationPricingComplete
	case models.EventQuotationSent:
		return models.NotificationQuotationSent
	case models.EventQuotationConfirmed:
		return models.NotificationQuotationConfirmed
	case models.EventRFQRejected:
		return models.NotificationRFQRejected
	case models.EventRFQCancelled:
		return models.NotificationRFQCancelled
	case models.EventShipmentStatusChanged:
		return models.NotificationShipmentStatus
	default:
		return models.NotificationType(strings.ToUpper(strings.ReplaceAll(string(t), ".", "_")))
	}
}

func dedupeEmails(emails ...string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// QueueEventSink publishes workflow events onto the background queue that
// feeds the dispatcher.
type QueueEventSink struct {
	queue *jobs.Queue
}

// NewQueueEventSink wraps the notification queue as an EventSink.
func NewQueueEventSink(queue *jobs.Queue) *QueueEventSink {
	return &QueueEventSink{queue: queue}
}

// Publish implements EventSink.
func (s *QueueEventSink) Publish(event models.DomainEvent) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      event.ID,
		Type:    string(event.Type),
		Payload: event,
	})
}
