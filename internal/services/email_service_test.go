package services

import (
	"context"
	"sync"
	"testing"

	"admithub/internal/config"
	"admithub/internal/events"
	"admithub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingEmailService struct {
	mu   sync.Mutex
	sent []models.ApplicationStatus
	to   []string
}

func (s *recordingEmailService) SendDecisionEmail(ctx context.Context, to, name string, status models.ApplicationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, status)
	s.to = append(s.to, to)
	return nil
}

func notifierFixture(t *testing.T) (*recordingEmailService, events.EventBus) {
	t.Helper()

	emailSvc := &recordingEmailService{}
	bus := events.NewInMemoryEventBus(events.DefaultConfig(), zap.NewNop())
	require.NoError(t, RegisterEmailNotifier(bus, emailSvc))
	return emailSvc, bus
}

func TestEmailNotifier(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted decision sends mail to the applicant", func(t *testing.T) {
		emailSvc, bus := notifierFixture(t)

		err := bus.Publish(ctx, events.NewApplicationStatusChangedEvent(
			1, 1, "applicant@example.com", models.StatusInReview, models.StatusAccepted, 42))
		require.NoError(t, err)

		require.Len(t, emailSvc.sent, 1)
		assert.Equal(t, models.StatusAccepted, emailSvc.sent[0])
		assert.Equal(t, "applicant@example.com", emailSvc.to[0])
	})

	t.Run("rejected decision sends mail", func(t *testing.T) {
		emailSvc, bus := notifierFixture(t)

		err := bus.Publish(ctx, events.NewApplicationStatusChangedEvent(
			1, 1, "applicant@example.com", models.StatusInReview, models.StatusRejected, 42))
		require.NoError(t, err)

		require.Len(t, emailSvc.sent, 1)
		assert.Equal(t, models.StatusRejected, emailSvc.sent[0])
	})

	t.Run("non-decision transitions are ignored", func(t *testing.T) {
		emailSvc, bus := notifierFixture(t)

		err := bus.Publish(ctx, events.NewApplicationStatusChangedEvent(
			1, 1, "applicant@example.com", models.StatusDraft, models.StatusInReview, 42))
		require.NoError(t, err)

		assert.Empty(t, emailSvc.sent)
	})
}

// The mailer must never move an application to "Confirmation Email
// Sent" on its own; that state is assigned by an admin.
func TestAcceptedDecisionDoesNotAdvanceStatus(t *testing.T) {
	ctx := context.Background()

	f := newServiceFixture(t)
	emailSvc := &recordingEmailService{}
	require.NoError(t, RegisterEmailNotifier(f.bus, emailSvc))

	app, err := f.svc.EnsureApplication(ctx, 1)
	require.NoError(t, err)

	_, err = f.svc.AdminSetStatus(ctx, &SetStatusRequest{
		ApplicationID: app.ID,
		Status:        string(models.StatusAccepted),
		ChangedBy:     42,
	})
	require.NoError(t, err)

	// Deliver the queued status-changed events by hand
	for _, e := range f.bus.published(events.EventTypeStatusChanged) {
		require.NoError(t, f.bus.deliver(ctx, e))
	}

	require.Len(t, emailSvc.sent, 1)
	stored, err := f.appRepo.GetByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stored.Status)

	// Only the explicit admin request reaches the terminal state
	updated, err := f.svc.AdminSetStatus(ctx, &SetStatusRequest{
		ApplicationID: app.ID,
		Status:        string(models.StatusEmailSent),
		ChangedBy:     42,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusEmailSent, updated.Status)
}

func TestSendDecisionEmailDisabled(t *testing.T) {
	svc := NewEmailService(&config.EmailConfig{Enabled: false}, zap.NewNop())

	// Disabled transport logs instead of dialing SMTP
	err := svc.SendDecisionEmail(context.Background(), "applicant@example.com", "Ada", models.StatusAccepted)
	assert.NoError(t, err)

	err = svc.SendDecisionEmail(context.Background(), "", "Ada", models.StatusAccepted)
	serviceErr := GetServiceError(err)
	assert.Equal(t, "VALIDATION_ERROR", serviceErr.Type)
}

func TestDecisionMessage(t *testing.T) {
	subject, body := decisionMessage("Ada", models.StatusAccepted)
	assert.Contains(t, subject, "accepted")
	assert.Contains(t, body, "Hello Ada")

	subject, body = decisionMessage("", models.StatusRejected)
	assert.Equal(t, "An update on your application", subject)
	assert.Contains(t, body, "Hello,")

	_, body = decisionMessage("Ada", models.StatusInReview)
	assert.Contains(t, body, string(models.StatusInReview))
}
