// Package email implements the e-mail collaborator: sending via Mailgun and
// rendering the named templates workflows reference by name.
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mailgun/mailgun-go/v4"
	"github.com/floworc/engine/internal/cache"
)

const emailEventsChannel = "email_events"

// Service sends e-mail and records a short-lived, redis-cached audit trail
// of each attempt, mirroring the upstream email service this replaces.
type Service struct {
	mg       mailgun.Mailgun
	from     string
	cache    *cache.RedisCache
	cacheTTL time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithCache attaches a cache backend used for the send-record trail and
// email_events pub/sub channel. Without it, Send still works but records
// nothing.
func WithCache(c *cache.RedisCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithCacheTTL overrides the default 1-hour send-record retention.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cacheTTL = ttl }
}

// New creates a Service backed by Mailgun's API for the given domain/key.
func New(domain, apiKey, from string, opts ...Option) *Service {
	s := &Service{
		mg:       mailgun.NewMailgun(domain, apiKey),
		from:     from,
		cacheTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sendRecord is the cached audit entry for one send attempt.
type sendRecord struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Send delivers one e-mail and returns Mailgun's message ID.
func (s *Service) Send(ctx context.Context, to, subject, body string) (string, error) {
	id := uuid.NewString()
	s.publishEvent(ctx, "email_send_attempt", id, to, subject, "")

	message := s.mg.NewMessage(s.from, subject, body, to)
	resp, msgID, err := s.mg.Send(ctx, message)
	if err != nil {
		s.recordAndPublish(ctx, id, to, subject, "failed", err)
		return "", fmt.Errorf("send email: %w", err)
	}
	if resp != "Queued. Thank you." {
		sendErr := fmt.Errorf("mailgun: unexpected response %q", resp)
		s.recordAndPublish(ctx, id, to, subject, "failed", sendErr)
		return "", sendErr
	}

	s.recordAndPublish(ctx, id, to, subject, "sent", nil)
	return msgID, nil
}

func (s *Service) recordAndPublish(ctx context.Context, id, to, subject, status string, sendErr error) {
	record := sendRecord{ID: id, To: to, Subject: subject, Status: status, CreatedAt: time.Now()}
	if sendErr != nil {
		record.Error = sendErr.Error()
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, "email:"+id, record, s.cacheTTL)
	}

	eventType := "email_sent"
	if status != "sent" {
		eventType = "email_failed"
	}
	s.publishEvent(ctx, eventType, id, to, subject, record.Error)
}

func (s *Service) publishEvent(ctx context.Context, eventType, id, to, subject, errMsg string) {
	if s.cache == nil {
		return
	}
	payload := map[string]any{
		"event":   eventType,
		"id":      id,
		"to":      to,
		"subject": subject,
	}
	if errMsg != "" {
		payload["error"] = errMsg
	}
	_ = s.cache.PublishJSON(ctx, emailEventsChannel, payload)
}
