// internal/services/notification_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/internlink/placement-service/internal/config"
	"github.com/internlink/placement-service/internal/models"
	"github.com/internlink/placement-service/internal/utils"
)

// Notification events.
const (
	EventApplicationCreated    = "application.created"
	EventApplicationWithdrawn  = "application.withdrawn"
	EventApplicationReviewed   = "application.reviewed"
	EventApplicationAccepted   = "application.accepted"
	EventApplicationRejected   = "application.rejected"
	EventApplicationAutoClosed = "application.auto_rejected"
	EventInterviewRequested    = "interview.requested"
	EventInterviewConfirmed    = "interview.confirmed"
	EventInterviewRejected     = "interview.rejected"
	EventCandidateContacted    = "candidate.contacted"
)

var eventTitles = map[string]string{
	EventApplicationCreated:    "New application received",
	EventApplicationWithdrawn:  "Application withdrawn",
	EventApplicationReviewed:   "Your application has been reviewed",
	EventApplicationAccepted:   "Your application has been accepted",
	EventApplicationRejected:   "Your application has been rejected",
	EventApplicationAutoClosed: "Application closed",
	EventInterviewRequested:    "Interview requested",
	EventInterviewConfirmed:    "Interview confirmed",
	EventInterviewRejected:     "Interview declined",
	EventCandidateContacted:    "A company wants to contact you",
}

// NotificationDispatcher is informed after a state change commits. Delivery is
// best effort and never reported back to the caller.
type NotificationDispatcher interface {
	Notify(ctx context.Context, event string, recipientID uuid.UUID, payload map[string]interface{})
}

// EventPublisher is the subset of *redis.Client used for fan-out.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type NotificationService struct {
	db        *gorm.DB
	publisher EventPublisher
	channel   string
}

type NotificationEvent struct {
	ID          uuid.UUID              `json:"id"`
	Event       string                 `json:"event"`
	RecipientID uuid.UUID              `json:"recipient_id"`
	Title       string                 `json:"title"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// NewNotificationService wires the inbox store and the optional Redis publisher.
func NewNotificationService(db *gorm.DB, cfg *config.Config, publisher EventPublisher) *NotificationService {
	return &NotificationService{
		db:        db,
		publisher: publisher,
		channel:   cfg.Redis.Channel,
	}
}

func (s *NotificationService) Notify(ctx context.Context, event string, recipientID uuid.UUID, payload map[string]interface{}) {
	logger := logrus.WithFields(logrus.Fields{
		"event":        event,
		"recipient_id": recipientID,
	})

	title, ok := eventTitles[event]
	if !ok {
		title = event
	}

	notification := &models.Notification{
		RecipientID: recipientID,
		Event:       event,
		Title:       title,
		Payload:     models.JSONB(payload),
	}
	if id, ok := payload["application_id"].(uuid.UUID); ok {
		notification.RelatedResourceType = "application"
		notification.RelatedResourceID = &id
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		logger.WithError(err).Warn("Failed to store notification")
		return
	}

	if s.publisher == nil {
		return
	}

	message, err := json.Marshal(NotificationEvent{
		ID:          notification.ID,
		Event:       event,
		RecipientID: recipientID,
		Title:       title,
		Payload:     payload,
		CreatedAt:   notification.CreatedAt,
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to encode notification event")
		return
	}

	if err := s.publisher.Publish(ctx, s.channel, message).Err(); err != nil {
		logger.WithError(err).Warn("Failed to publish notification event")
	}
}

// inboxOwner is the recipient id used for the actor: companies share one inbox.
func inboxOwner(actor Actor) uuid.UUID {
	if actor.IsCompany() {
		return *actor.CompanyID
	}
	return actor.UserID
}

func (s *NotificationService) ListNotifications(ctx context.Context, actor Actor, unreadOnly bool, params utils.PaginationParams) ([]models.Notification, int64, error) {
	params = utils.NormalizePagination(params)

	query := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ?", inboxOwner(actor))
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, internalError("failed to count notifications", err)
	}

	var notifications []models.Notification
	if err := utils.ApplyPagination(query.Order("created_at DESC"), params).
		Find(&notifications).Error; err != nil {
		return nil, 0, internalError("failed to list notifications", err)
	}

	return notifications, total, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	err := s.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, inboxOwner(actor)).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("notification")
		}
		return nil, internalError("failed to load notification", err)
	}

	if notification.ReadAt != nil {
		return &notification, nil
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&notification).Update("read_at", now).Error; err != nil {
		return nil, internalError("failed to mark notification as read", err)
	}
	notification.ReadAt = &now

	return &notification, nil
}

// notice is a notification queued during a transaction and sent after commit.
type notice struct {
	event     string
	recipient uuid.UUID
	payload   map[string]interface{}
}

// dispatch sends queued notices in the background so a slow or failing
// dispatcher never affects the committed operation.
func dispatch(notifier NotificationDispatcher, notices []notice) {
	if notifier == nil || len(notices) == 0 {
		return
	}
	go func() {
		for _, n := range notices {
			notifier.Notify(context.Background(), n.event, n.recipient, n.payload)
		}
	}()
}
