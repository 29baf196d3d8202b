package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/dimitrije/playdate-api/internal/config"
	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type GuardianLookup interface {
	GetGuardian(ctx context.Context, id uuid.UUID) (*models.Guardian, error)
}

// Email mails the recipient guardian. Sending happens off the request
// goroutine.
type Email struct {
	cfg       config.SMTPConfig
	guardians GuardianLookup
	baseURL   string
	send      func(to, subject, body string) error
}

func NewEmail(cfg config.SMTPConfig, guardians GuardianLookup, baseURL string) *Email {
	e := &Email{cfg: cfg, guardians: guardians, baseURL: baseURL}
	e.send = e.smtpSend
	return e
}

func (e *Email) IsConfigured() bool {
	return e.cfg.Host != "" && e.cfg.Username != "" && e.cfg.Password != "" && e.cfg.From != ""
}

func (e *Email) Dispatch(ctx context.Context, n models.Notification) error {
	if !e.IsConfigured() {
		return nil
	}

	guardian, err := e.guardians.GetGuardian(ctx, n.RecipientGuardianID)
	if err != nil {
		return fmt.Errorf("failed to look up recipient: %w", err)
	}

	subject, body := e.compose(n)
	go func() {
		if err := e.send(guardian.Email, subject, body); err != nil {
			log.WithError(err).WithField("kind", n.Kind).Warn("failed to send notification email")
		}
	}()
	return nil
}

func (e *Email) compose(n models.Notification) (subject, body string) {
	var headline, link string
	switch n.Kind {
	case models.NotificationInvitationCreated:
		subject = "You have a new activity invitation"
		headline = "Your child has been invited to an activity."
		link = fmt.Sprintf("%s/invitations/%s", e.baseURL, n.SubjectID)
	case models.NotificationInvitationResponded:
		subject = "An invitation was answered"
		headline = "A family has responded to your invitation."
		if n.ActivityID != nil {
			link = fmt.Sprintf("%s/activities/%s", e.baseURL, *n.ActivityID)
		}
	case models.NotificationConnectionRequested:
		subject = "New connection request"
		headline = "Another family would like to connect."
		link = fmt.Sprintf("%s/connection-requests", e.baseURL)
	case models.NotificationConnectionAccepted:
		subject = "Connection request accepted"
		headline = "Your connection request was accepted."
		link = fmt.Sprintf("%s/connections/%s", e.baseURL, n.SubjectID)
	default:
		subject = "Playdate update"
		headline = "Something changed in your account."
		link = e.baseURL
	}

	body = fmt.Sprintf(`
		<html>
		<body>
			<h2>%s</h2>
			<p>%s</p>
			<p><a href="%s">Open Playdate</a></p>
		</body>
		</html>
	`, subject, headline, link)
	return subject, body
}

func (e *Email) smtpSend(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%s", e.cfg.Host, e.cfg.Port)
	auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		e.cfg.From, to, subject, body)

	return smtp.SendMail(addr, auth, e.cfg.From, []string{to}, []byte(msg))
}
