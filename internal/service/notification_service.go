package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/moderated-board/internal/mailer"
	"github.com/unclebandit/moderated-board/internal/model"
	"github.com/unclebandit/moderated-board/internal/monitoring"
	"github.com/unclebandit/moderated-board/internal/queue"
)

const (
	classAuthorApproved = "author_approved"
	classAdminPending   = "admin_pending"

	// adminPreviewLength is how much of the content goes into the administrator mail.
	adminPreviewLength = 200
)

const approvedSubjectTemplate = `Your message "{subject}" has been approved`

const approvedBodyTemplate = `Hello {username},

Your message "{subject}" has been approved by an administrator and is now visible on the board.
`

var adminSubjectTemplates = map[string]string{
	model.NotificationNewMessage:    "[New message pending review] {subject}",
	model.NotificationEditedMessage: "[Message edited, pending re-review] {subject}",
}

var adminIntroTemplates = map[string]string{
	model.NotificationNewMessage:    "User {username} posted a new message that needs review.",
	model.NotificationEditedMessage: "User {username} edited their message; it needs to be reviewed again.",
}

const adminBodyTemplate = `{intro}

Subject: {subject}
Content: {content}

Review it here:
{review_url}
`

// AuthorNotifier tells an author their message was approved.
type AuthorNotifier interface {
	NotifyAuthorApproved(m *model.Message) error
}

// ReviewRequester alerts administrators that a message waits for review.
type ReviewRequester interface {
	RequestReview(kind string, m *model.Message, username string)
}

// NotificationService is the notification dispatcher. Author mail goes out inline so the
// approving administrator sees the result; administrator mail goes through the queue.
type NotificationService struct {
	Mailer  mailer.Mailer
	Queue   queue.Queue
	Topic   string
	Admins  []string
	BaseURL string
	Log     logrus.FieldLogger
}

// NotifyAuthorApproved sends the approval mail. The caller checks the author has an address.
func (s *NotificationService) NotifyAuthorApproved(m *model.Message) error {
	data := map[string]string{
		"subject":  m.Subject,
		"username": m.AuthorName(),
	}
	email := model.Email{
		To:      []string{m.AuthorEmail()},
		Subject: RenderTemplate(approvedSubjectTemplate, data),
		Body:    RenderTemplate(approvedBodyTemplate, data),
	}

	if err := s.Mailer.Send(email); err != nil {
		monitoring.NotificationsFailed.WithLabelValues(classAuthorApproved).Inc()
		return fmt.Errorf("send approval mail to %s: %w", m.AuthorEmail(), err)
	}
	monitoring.NotificationsSent.WithLabelValues(classAuthorApproved).Inc()
	return nil
}

// RequestReview queues an administrator notification. Failures are logged and never returned.
func (s *NotificationService) RequestReview(kind string, m *model.Message, username string) {
	n := model.AdminNotification{
		ID:          uuid.NewString(),
		Kind:        kind,
		MessageID:   m.ID,
		Username:    username,
		Subject:     m.Subject,
		Content:     m.Content,
		ReviewURL:   s.ReviewURL(m.ID),
		RequestedAt: time.Now().UTC(),
	}

	if err := s.Queue.Publish(s.Topic, n); err != nil {
		monitoring.NotificationsFailed.WithLabelValues(classAdminPending).Inc()
		s.Log.WithError(err).WithFields(logrus.Fields{
			"message_id":      m.ID,
			"notification_id": n.ID,
		}).Warn("Failed to queue administrator notification")
	}
}

// DeliverAdminNotification mails a queued notification to every administrator.
// Returning an error lets the queue retry.
func (s *NotificationService) DeliverAdminNotification(n model.AdminNotification) error {
	if len(s.Admins) == 0 {
		s.Log.WithField("message_id", n.MessageID).Debug("No administrators configured, skipping notification")
		return nil
	}

	email, err := BuildAdminEmail(n, s.Admins)
	if err != nil {
		// a malformed job will not get better on retry
		s.Log.WithError(err).WithField("notification_id", n.ID).Warn("Dropping administrator notification")
		return nil
	}

	if err := s.Mailer.Send(email); err != nil {
		monitoring.NotificationsFailed.WithLabelValues(classAdminPending).Inc()
		return fmt.Errorf("send administrator notification %s: %w", n.ID, err)
	}
	monitoring.NotificationsSent.WithLabelValues(classAdminPending).Inc()
	s.Log.WithFields(logrus.Fields{
		"message_id":      n.MessageID,
		"notification_id": n.ID,
	}).Info("Administrator notification sent")
	return nil
}

func (s *NotificationService) ReviewURL(messageID int) string {
	return fmt.Sprintf("%s/admin/messages/%d", s.BaseURL, messageID)
}

// BuildAdminEmail renders the administrator mail for a queued notification.
func BuildAdminEmail(n model.AdminNotification, admins []string) (model.Email, error) {
	subjectTmpl, ok := adminSubjectTemplates[n.Kind]
	if !ok {
		return model.Email{}, fmt.Errorf("unknown notification kind %q", n.Kind)
	}

	preview, cut := truncateRunes(n.Content, adminPreviewLength)
	if cut {
		preview += "..."
	}
	data := map[string]string{
		"username":   n.Username,
		"subject":    n.Subject,
		"content":    preview,
		"review_url": n.ReviewURL,
	}
	data["intro"] = RenderTemplate(adminIntroTemplates[n.Kind], data)

	return model.Email{
		To:      append([]string(nil), admins...),
		Subject: RenderTemplate(subjectTmpl, data),
		Body:    RenderTemplate(adminBodyTemplate, data),
	}, nil
}

var (
	_ AuthorNotifier  = (*NotificationService)(nil)
	_ ReviewRequester = (*NotificationService)(nil)
)
