package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"
	"farewatch-service/pkg/logger"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailService sends notifications through the Gmail API
type GmailService struct {
	gmailService *gmail.Service
	sender       string
	logger       logger.Logger
}

var _ repository.NotificationRepository = (*GmailService)(nil)

// NewGmailService creates a new Gmail sender. Callers pass
// option.WithTokenSource in production.
func NewGmailService(ctx context.Context, sender string, logger logger.Logger, opts ...option.ClientOption) (*GmailService, error) {
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GmailService{
		gmailService: service,
		sender:       sender,
		logger:       logger.With("component", "gmail"),
	}, nil
}

// Send delivers the notification as a plain-text mail
func (s *GmailService) Send(ctx context.Context, n *entity.Notification) error {
	from := n.From
	if from == "" {
		from = s.sender
	}
	if n.To == "" {
		return fmt.Errorf("gmail: notification has no recipient")
	}

	raw := BuildRawMessage(from, n.To, n.Subject, n.Body, time.Now())
	sent, err := s.gmailService.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		s.logger.Error("Failed to send mail", "to", n.To, "subject", n.Subject, "error", err)
		return fmt.Errorf("gmail send: %w", err)
	}

	s.logger.Info("Mail sent",
		"messageID", sent.Id,
		"to", n.To,
		"subject", n.Subject)

	return nil
}

// BuildRawMessage renders an RFC 2822 message and encodes it the way the
// Gmail API expects (base64url).
func BuildRawMessage(from, to, subject, body string, date time.Time) string {
	var buf bytes.Buffer
	if from != "" {
		fmt.Fprintf(&buf, "From: %s\r\n", from)
	}
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", date.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	buf.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	buf.WriteString(base64.StdEncoding.EncodeToString([]byte(body)))
	buf.WriteString("\r\n")

	return base64.URLEncoding.EncodeToString(buf.Bytes())
}
