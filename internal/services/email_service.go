package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"admithub/internal/config"
	"admithub/internal/events"
	"admithub/internal/models"

	"go.uber.org/zap"
)

// emailService implements the EmailService interface
type emailService struct {
	config *config.EmailConfig
	logger *zap.Logger
}

// NewEmailService creates a new instance of EmailService
func NewEmailService(config *config.EmailConfig, logger *zap.Logger) EmailService {
	return &emailService{
		config: config,
		logger: logger,
	}
}

// SendDecisionEmail notifies an applicant of a review decision
func (s *emailService) SendDecisionEmail(ctx context.Context, to, name string, status models.ApplicationStatus) error {
	if to == "" {
		return NewValidationError("recipient address is required", nil)
	}

	subject, body := decisionMessage(name, status)

	if !s.config.Enabled {
		s.logger.Info("Email sending disabled, logging instead",
			zap.String("to", to),
			zap.String("subject", subject),
		)
		return nil
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s <%s>", s.config.FromName, s.config.FromAddress),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	auth := smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPass, s.config.SMTPHost)

	if err := smtp.SendMail(addr, auth, s.config.FromAddress, []string{to}, []byte(msg)); err != nil {
		s.logger.Error("Failed to send decision email",
			zap.Error(err),
			zap.String("to", to),
			zap.String("status", status.String()),
		)
		return NewInternalError("failed to send email")
	}

	s.logger.Info("Decision email sent",
		zap.String("to", to),
		zap.String("status", status.String()),
	)
	return nil
}

func decisionMessage(name string, status models.ApplicationStatus) (subject, body string) {
	greeting := "Hello"
	if strings.TrimSpace(name) != "" {
		greeting = "Hello " + strings.TrimSpace(name)
	}

	switch status {
	case models.StatusAccepted:
		return "Your application has been accepted",
			fmt.Sprintf("%s,\n\nCongratulations! Your application has been accepted. We will follow up shortly with the next steps.\n\nThe Admissions Team", greeting)
	case models.StatusRejected:
		return "An update on your application",
			fmt.Sprintf("%s,\n\nThank you for applying. After careful review we are unable to offer you a place this time.\n\nThe Admissions Team", greeting)
	default:
		return "An update on your application",
			fmt.Sprintf("%s,\n\nYour application status is now: %s.\n\nThe Admissions Team", greeting, status)
	}
}

// ===============================
// EVENT SUBSCRIPTION
// ===============================

// RegisterEmailNotifier subscribes the decision mailer to status-changed
// events. The notifier only sends; "Confirmation Email Sent" is a state
// an admin assigns explicitly, never a side effect of mailing.
func RegisterEmailNotifier(bus events.EventBus, emailSvc EmailService) error {
	handler := events.NewEventHandlerFunc("email-notifier", func(ctx context.Context, event events.Event) error {
		changed, ok := event.(*events.ApplicationStatusChangedEvent)
		if !ok {
			return nil
		}

		if changed.NewStatus != models.StatusAccepted && changed.NewStatus != models.StatusRejected {
			return nil
		}

		return emailSvc.SendDecisionEmail(ctx, changed.ApplicantEmail, "", changed.NewStatus)
	})

	return bus.Subscribe(events.EventTypeStatusChanged, handler)
}
