package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPCallbackObserver relays events to an external HTTP endpoint, for
// webhook integrations. It is registered on a bus only by callers that opt
// in; the realtime bridge's unconfigured mode does not route through it.
type HTTPCallbackObserver struct {
	name         string
	url          string
	method       string
	headers      map[string]string
	filter       EventFilter
	client       *http.Client
	maxRetries   int
	retryDelay   time.Duration
	retryBackoff float64
}

// HTTPObserverOption configures an HTTPCallbackObserver.
type HTTPObserverOption func(*HTTPCallbackObserver)

func WithHTTPMethod(method string) HTTPObserverOption {
	return func(o *HTTPCallbackObserver) { o.method = method }
}

func WithHTTPHeaders(headers map[string]string) HTTPObserverOption {
	return func(o *HTTPCallbackObserver) { o.headers = headers }
}

func WithHTTPName(name string) HTTPObserverOption {
	return func(o *HTTPCallbackObserver) { o.name = name }
}

func WithHTTPFilter(filter EventFilter) HTTPObserverOption {
	return func(o *HTTPCallbackObserver) { o.filter = filter }
}

func WithHTTPTimeout(timeout time.Duration) HTTPObserverOption {
	return func(o *HTTPCallbackObserver) { o.client.Timeout = timeout }
}

func WithHTTPRetry(maxRetries int, delay time.Duration, backoff float64) HTTPObserverOption {
	return func(o *HTTPCallbackObserver) {
		o.maxRetries = maxRetries
		o.retryDelay = delay
		o.retryBackoff = backoff
	}
}

// NewHTTPCallbackObserver creates an observer that posts events to url.
func NewHTTPCallbackObserver(url string, opts ...HTTPObserverOption) *HTTPCallbackObserver {
	obs := &HTTPCallbackObserver{
		name:         "http_callback",
		url:          url,
		method:       http.MethodPost,
		headers:      make(map[string]string),
		client:       &http.Client{Timeout: 10 * time.Second},
		maxRetries:   3,
		retryDelay:   1 * time.Second,
		retryBackoff: 2.0,
	}
	for _, opt := range opts {
		opt(obs)
	}
	return obs
}

func (o *HTTPCallbackObserver) Name() string        { return o.name }
func (o *HTTPCallbackObserver) Filter() EventFilter { return o.filter }

func (o *HTTPCallbackObserver) OnEvent(ctx context.Context, event Event) error {
	return o.sendWithRetry(ctx, o.buildPayload(event))
}

func (o *HTTPCallbackObserver) buildPayload(event Event) map[string]any {
	payload := map[string]any{
		"event_type":   string(event.Type),
		"execution_id": event.ExecutionID,
		"workflow_id":  event.WorkflowID,
		"timestamp":    event.Timestamp.Format(time.RFC3339),
		"status":       event.Status,
	}
	if event.JobID != "" {
		payload["job_id"] = event.JobID
	}
	if event.UserID != "" {
		payload["user_id"] = event.UserID
	}
	if event.NodeID != "" {
		payload["node_id"] = event.NodeID
	}
	if event.Message != "" {
		payload["message"] = event.Message
	}
	if event.Err != nil {
		payload["error"] = event.Err.Error()
	}
	if event.Data != nil {
		payload["data"] = event.Data
	}
	return payload
}

func (o *HTTPCallbackObserver) sendWithRetry(ctx context.Context, payload map[string]any) error {
	var lastErr error
	delay := o.retryDelay

	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay = time.Duration(float64(delay) * o.retryBackoff)
		}
		if err := o.send(ctx, payload); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("http callback failed after %d attempts: %w", o.maxRetries+1, lastErr)
}

func (o *HTTPCallbackObserver) send(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, o.method, o.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("http callback returned status %d", resp.StatusCode)
	}
	return nil
}
