package service

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/google/uuid"

	"skillbridge.io/marketplace/internal/entity"
)

// Message is one best-effort notification. Every sink renders it for its own
// channel.
type Message struct {
	Type        string
	RecipientID uuid.UUID
	ActorID     uuid.UUID
	EntityID    uuid.UUID
	EntityType  string

	ActorName      string
	ProjectTitle   string
	ProposedBudget int64
	Timeline       string
}

// Notifier accepts messages without blocking the caller.
type Notifier interface {
	Notify(msg Message)
}

// InAppText is the one-line text stored for the in-app feed. Email-only
// messages return "".
func (m Message) InAppText() string {
	switch m.Type {
	case entity.NotificationProposalSubmitted:
		return fmt.Sprintf("%s submitted a proposal for %q", m.ActorName, m.ProjectTitle)
	case entity.NotificationProposalAccepted:
		return fmt.Sprintf("Your proposal for %q has been accepted", m.ProjectTitle)
	case entity.NotificationProposalRejected:
		return fmt.Sprintf("Your proposal for %q has been rejected", m.ProjectTitle)
	}
	return ""
}

type emailData struct {
	RecipientName  string
	UserType       string
	ProjectTitle   string
	ProposedBudget int64
	Timeline       string
}

var emailTemplates = template.Must(template.New("email").Parse(`
{{define "welcome"}}<h1>Welcome to SkillBridge, {{.RecipientName}}!</h1>
<p>Thank you for joining our platform as a {{.UserType}}.</p>
<p>You can now start {{if eq .UserType "client"}}posting projects and finding talent{{else}}browsing projects and submitting proposals{{end}}.</p>
<p>Best regards,<br>The SkillBridge Team</p>{{end}}
{{define "proposal_submitted"}}<h1>New Proposal Received!</h1>
<p>Hi {{.RecipientName}},</p>
<p>You have received a new proposal for your project "{{.ProjectTitle}}".</p>
<p><strong>Proposed Budget:</strong> ${{.ProposedBudget}}</p>
<p><strong>Timeline:</strong> {{.Timeline}}</p>
<p>Log in to your dashboard to review the full proposal.</p>
<p>Best regards,<br>The SkillBridge Team</p>{{end}}
{{define "proposal_accepted"}}<h1>Proposal Update</h1>
<p>Hi {{.RecipientName}},</p>
<p>Your proposal for "{{.ProjectTitle}}" has been accepted.</p>
<p>Congratulations! You can now start working on this project.</p>
<p>Best regards,<br>The SkillBridge Team</p>{{end}}
{{define "proposal_rejected"}}<h1>Proposal Update</h1>
<p>Hi {{.RecipientName}},</p>
<p>Your proposal for "{{.ProjectTitle}}" has been rejected.</p>
<p>Don't worry, there are many other opportunities available.</p>
<p>Best regards,<br>The SkillBridge Team</p>{{end}}
`))

// Email renders the subject and HTML body addressed to recipient.
func (m Message) Email(recipient *entity.User) (subject, body string, err error) {
	switch m.Type {
	case entity.NotificationWelcome:
		subject = "Welcome to SkillBridge!"
	case entity.NotificationProposalSubmitted:
		subject = fmt.Sprintf("New Proposal for %q", m.ProjectTitle)
	case entity.NotificationProposalAccepted:
		subject = fmt.Sprintf("Proposal accepted for %q", m.ProjectTitle)
	case entity.NotificationProposalRejected:
		subject = fmt.Sprintf("Proposal rejected for %q", m.ProjectTitle)
	default:
		return "", "", fmt.Errorf("no email template for notification type %q", m.Type)
	}

	var buf bytes.Buffer
	err = emailTemplates.ExecuteTemplate(&buf, m.Type, emailData{
		RecipientName:  recipient.Name,
		UserType:       string(recipient.Role),
		ProjectTitle:   m.ProjectTitle,
		ProposedBudget: m.ProposedBudget,
		Timeline:       m.Timeline,
	})
	if err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}
