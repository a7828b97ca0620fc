package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/floworc/engine/internal/apperr"
	"github.com/floworc/engine/internal/domain"
	"github.com/floworc/engine/internal/engine"
)

func (s *Scheduler) runEmailSend(ctx context.Context, job *domain.Job) (map[string]any, error) {
	if s.emailer == nil {
		return nil, apperr.Scheduler("no email collaborator configured", nil).WithJob(job.ID)
	}

	to, _ := job.Payload["to"].(string)
	subject, _ := job.Payload["subject"].(string)
	body, _ := job.Payload["body"].(string)
	if to == "" {
		return nil, apperr.Validation("email_send job missing \"to\"", nil).WithJob(job.ID)
	}

	id, err := s.emailer.Send(ctx, to, subject, body)
	if err != nil {
		return nil, apperr.Transport("send email", err).WithJob(job.ID)
	}
	return map[string]any{"email_id": id}, nil
}

// runHTTPRequest dispatches a one-off request on behalf of an http_request
// job. Unlike a workflow node's http_request action (which fails its node
// outright on error and lets the executor's own retry loop decide whether to
// try again), a scheduled job has no executor wrapped around it, so transient
// network failures are retried here directly against a RetryPolicy before the
// job is marked failed.
func (s *Scheduler) runHTTPRequest(ctx context.Context, job *domain.Job) (map[string]any, error) {
	method, _ := job.Payload["method"].(string)
	if method == "" {
		method = http.MethodGet
	}
	url, _ := job.Payload["url"].(string)
	if url == "" {
		return nil, apperr.Validation("http_request job missing \"url\"", nil).WithJob(job.ID)
	}
	bodyStr, _ := job.Payload["body"].(string)
	headers, _ := job.Payload["headers"].(map[string]any)

	maxAttempts := 0
	if n, ok := job.Payload["max_attempts"].(float64); ok && n > 0 {
		maxAttempts = int(n)
	}
	rp := engine.HTTPJobRetryPolicy(maxAttempts)

	var result map[string]any
	var lastErr error
	for attempt := 1; attempt <= rp.MaxAttempts; attempt++ {
		result, lastErr = s.doHTTPRequest(ctx, method, url, bodyStr, headers)
		if lastErr == nil {
			return result, nil
		}
		if attempt >= rp.MaxAttempts || !engine.IsRetryableError(lastErr) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(rp.GetDelay(attempt)):
		}
	}
	return nil, apperr.Transport("http request", lastErr).WithJob(job.ID)
}

func (s *Scheduler) doHTTPRequest(ctx context.Context, method, url, bodyStr string, headers map[string]any) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBufferString(bodyStr))
	if err != nil {
		return nil, apperr.Handler("build http request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, fmt.Sprintf("%v", v))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return map[string]any{
		"status": resp.StatusCode,
		"body":   string(respBody),
	}, nil
}

func (s *Scheduler) runWorkflowExecution(ctx context.Context, job *domain.Job) (map[string]any, error) {
	if s.loader == nil || s.runner == nil {
		return nil, apperr.Scheduler("no workflow runner configured", nil).WithJob(job.ID)
	}

	workflowID, _ := job.Payload["workflow_id"].(string)
	if workflowID == "" {
		return nil, apperr.Validation("workflow_execution job missing \"workflow_id\"", nil).WithJob(job.ID)
	}
	triggerData, _ := job.Payload["trigger_data"].(map[string]any)

	workflow, err := s.loader.FindByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	exec, err := s.runner.Run(ctx, workflow, triggerData)
	if err != nil {
		if exec != nil {
			return map[string]any{"execution_id": exec.ID, "status": string(exec.Status)}, err
		}
		return nil, err
	}
	return map[string]any{"execution_id": exec.ID, "status": string(exec.Status)}, nil
}
