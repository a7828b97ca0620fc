// Package realtime implements the "external realtime collaborator": a
// pub/sub bridge for job-status and execution updates, with a mock-token /
// simulated-publish fallback when no realtime credentials are configured
// (mirroring the upstream Ably-backed service this subsystem replaces).
package realtime

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/floworc/engine/internal/cache"
	"github.com/floworc/engine/internal/domain"
)

const (
	ChannelRefreshJobs    = "refresh-jobs"
	EventJobStatusUpdate  = "job-status-update"
	EventJobListUpdate    = "job-list-update"
	channelUserJobListFmt = "user-%s-job-list"
	channelExecutionFmt   = "execution-%s"
)

// TokenRequest is the structure handed back to clients that want to connect
// directly to the realtime transport. When no credentials are configured it
// is synthesized locally rather than fetched from an external provider.
type TokenRequest struct {
	KeyName   string `json:"keyName"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
	MAC       string `json:"mac"`
}

// Bridge publishes job and execution updates to external subscribers.
type Bridge struct {
	cache       *cache.RedisCache
	apiKey      string
	realtimeKey string
}

// New creates a Bridge. cache may be nil and apiKey/realtimeKey may be empty
// — in that case the bridge runs in simulated mode: publishes are no-ops and
// GetTokenRequest returns a locally-synthesized mock token.
func New(c *cache.RedisCache, apiKey, realtimeKey string) *Bridge {
	return &Bridge{cache: c, apiKey: apiKey, realtimeKey: realtimeKey}
}

// Configured reports whether real realtime credentials and a cache backend
// are available.
func (b *Bridge) Configured() bool {
	return b.cache != nil && b.realtimeKey != ""
}

// PublishJobStatusUpdate announces a job's current status on the shared
// refresh-jobs channel.
func (b *Bridge) PublishJobStatusUpdate(ctx context.Context, job *domain.Job) error {
	payload := map[string]any{
		"event":   EventJobStatusUpdate,
		"job_id":  job.ID,
		"user_id": job.UserID,
		"status":  job.Status,
	}
	return b.publish(ctx, ChannelRefreshJobs, payload)
}

// PublishJobListUpdate announces that userID's job list changed.
func (b *Bridge) PublishJobListUpdate(ctx context.Context, userID string, jobs []*domain.Job) error {
	channel := fmt.Sprintf(channelUserJobListFmt, userID)
	payload := map[string]any{
		"event":   EventJobListUpdate,
		"user_id": userID,
		"count":   len(jobs),
	}
	return b.publish(ctx, channel, payload)
}

// PublishExecutionUpdate announces an execution lifecycle event scoped to
// workflowID, mirroring the /ws/executions/{workflow_id} local feed.
func (b *Bridge) PublishExecutionUpdate(ctx context.Context, workflowID string, payload map[string]any) error {
	channel := fmt.Sprintf(channelExecutionFmt, workflowID)
	return b.publish(ctx, channel, payload)
}

func (b *Bridge) publish(ctx context.Context, channel string, payload map[string]any) error {
	if !b.Configured() {
		// Simulated mode: nothing external to publish to.
		return nil
	}
	return b.cache.PublishJSON(ctx, channel, payload)
}

// GetTokenRequest returns a token request a client can use to connect to the
// realtime transport directly. When unconfigured, it synthesizes a mock
// token locally instead of erroring.
func (b *Bridge) GetTokenRequest() (*TokenRequest, error) {
	nonce, err := randomNonce()
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ts := time.Now().Unix()
	keyName := b.apiKey
	secret := b.realtimeKey
	if keyName == "" {
		keyName = "mock-key"
	}
	if secret == "" {
		secret = "mock-secret"
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%d:%s", keyName, ts, nonce)

	return &TokenRequest{
		KeyName:   keyName,
		Timestamp: ts,
		Nonce:     nonce,
		MAC:       hex.EncodeToString(mac.Sum(nil)),
	}, nil
}

func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
