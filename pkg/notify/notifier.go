// Package notify delivers alerts to buyers. Emails go out as render jobs on
// the platform mailer's Kafka topic; in-app notifications are written
// straight to the notification store.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/openlistings/beacon/pkg/dispatch"
	"github.com/openlistings/beacon/pkg/kafka"
	"github.com/openlistings/beacon/pkg/models"
	"github.com/openlistings/beacon/pkg/tracing"
)

// NotificationStore persists in-app notifications
type NotificationStore interface {
	Insert(ctx context.Context, notification *models.InAppNotification) error
}

// Service implements alert delivery over the platform's channels
type Service struct {
	emails *kafka.Producer
	store  NotificationStore
	logger ectologger.Logger
}

// NewService creates a new notification service
func NewService(emails *kafka.Producer, store NotificationStore, logger ectologger.Logger) *Service {
	return &Service{
		emails: emails,
		store:  store,
		logger: logger,
	}
}

// SendAlertEmail enqueues an email render job for the platform mailer
func (s *Service) SendAlertEmail(ctx context.Context, email, name, template string, view dispatch.PropertyView) error {
	ctx, span := tracing.StartSpan(ctx, "notify.Service.SendAlertEmail")
	defer span.End()

	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	job := &kafka.EmailJob{
		JobID:     uuid.New().String(),
		Recipient: email,
		Name:      name,
		Template:  template,
		Payload:   payload,
	}

	if err := s.emails.PublishEmailJob(ctx, job); err != nil {
		return fmt.Errorf("publish email job: %w", err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":   job.JobID,
		"template": template,
	}).Debug("Enqueued alert email")

	return nil
}

// CreateInAppNotification writes a notification row for the buyer dashboard
func (s *Service) CreateInAppNotification(ctx context.Context, notification dispatch.InAppNotification) error {
	ctx, span := tracing.StartSpan(ctx, "notify.Service.CreateInAppNotification")
	defer span.End()

	row := &models.InAppNotification{
		ID:        uuid.New().String(),
		BuyerID:   notification.BuyerID,
		Kind:      notification.Kind,
		Title:     notification.Title,
		Body:      notification.Body,
		Link:      notification.Link,
		Metadata:  notification.Metadata,
		CreatedAt: time.Now().UTC(),
	}

	return s.store.Insert(ctx, row)
}
