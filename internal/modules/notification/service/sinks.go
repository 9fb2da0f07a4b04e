package service

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"skillbridge.io/marketplace/internal/entity"
)

// InAppSink stores the notification and pushes it to the live channel.
type InAppSink struct {
	service NotificationService
}

func NewInAppSink(service NotificationService) *InAppSink {
	return &InAppSink{service: service}
}

func (s *InAppSink) Name() string { return "in_app" }

func (s *InAppSink) Deliver(ctx context.Context, msg Message) error {
	text := msg.InAppText()
	if text == "" {
		return nil
	}
	return s.service.CreateNotification(ctx, &entity.Notification{
		UserID:     msg.RecipientID,
		ActorID:    msg.ActorID,
		EntityID:   msg.EntityID,
		EntityType: msg.EntityType,
		Type:       msg.Type,
		Message:    text,
	})
}

type RecipientFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// EmailSink looks up the recipient and mails the rendered message.
type EmailSink struct {
	users  RecipientFinder
	mailer Mailer
}

func NewEmailSink(users RecipientFinder, mailer Mailer) *EmailSink {
	return &EmailSink{users: users, mailer: mailer}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, msg Message) error {
	recipient, err := s.users.FindByID(ctx, msg.RecipientID)
	if err != nil {
		return fmt.Errorf("failed to load recipient: %w", err)
	}
	subject, body, err := msg.Email(recipient)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, recipient.Email, subject, body)
}

// LogMailer only logs what would have been sent. Used when EMAIL_ENABLED is off.
type LogMailer struct {
	log logrus.FieldLogger
}

func NewLogMailer(log logrus.FieldLogger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, to, subject, _ string) error {
	m.log.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("email delivery disabled, message not sent")
	return nil
}

type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: host + ":" + port,
		auth: auth,
		from: from,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, buildMessage(m.from, to, subject, htmlBody)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// buildMessage renders an HTML mail. Headers must stay ASCII, so the subject
// is Q-encoded when it carries anything else.
func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
