package action

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxDelaySeconds caps the delay action so a misconfigured workflow can't
// stall the executor indefinitely.
const maxDelaySeconds = 300

// allowedHTTPMethods are the only methods an http_request action may issue.
var allowedHTTPMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// EmailSender is the subset of the e-mail collaborator the "email" action
// needs. Implemented by internal/email.Service.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) (id string, err error)
	RenderTemplate(name string, ctx map[string]any) (subject, body string, ok bool)
}

// RegisterBuiltins wires the built-in action handlers into reg. httpClient
// may be nil, in which case http.DefaultClient is used.
func RegisterBuiltins(reg *Registry, sender EmailSender, httpClient *http.Client) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	reg.MustRegister("delay", handleDelay)
	reg.MustRegister("notify", handleNotify)
	reg.MustRegister("http_request", handleHTTPRequest(httpClient))
	reg.MustRegister("check_ticket_assigned", handleCheckTicketAssigned)
	if sender != nil {
		reg.MustRegister("email", handleEmail(sender))
	}
}

func handleDelay(ctx context.Context, in Input) error {
	seconds := asInt(in.Params["seconds"], 0)
	if seconds < 0 {
		seconds = 0
	}
	if seconds > maxDelaySeconds {
		seconds = maxDelaySeconds
	}
	select {
	case <-time.After(time.Duration(seconds) * time.Second):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func handleNotify(_ context.Context, in Input) error {
	message, _ := in.Params["message"].(string)
	in.Context["last_notification"] = message
	return nil
}

func handleHTTPRequest(client *http.Client) Handler {
	return func(ctx context.Context, in Input) error {
		url, _ := in.Params["url"].(string)
		if url == "" {
			return fmt.Errorf("http_request: missing url param")
		}
		method, _ := in.Params["method"].(string)
		if method == "" {
			method = http.MethodGet
		}
		method = strings.ToUpper(method)
		if !allowedHTTPMethods[method] {
			return fmt.Errorf("http_request: unsupported method %q", method)
		}

		var bodyReader io.Reader
		if body, ok := in.Params["body"].(string); ok && body != "" {
			bodyReader = strings.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return fmt.Errorf("http_request: build request: %w", err)
		}
		if headers, ok := in.Params["headers"].(map[string]any); ok {
			for k, v := range headers {
				req.Header.Set(k, fmt.Sprintf("%v", v))
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			in.Context["last_http_status"] = 0
			return fmt.Errorf("http_request: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		headers := make(map[string]string, len(resp.Header))
		for k := range resp.Header {
			headers[k] = resp.Header.Get(k)
		}

		in.Context["last_http_status"] = resp.StatusCode
		in.Context["last_http_response"] = string(respBody)
		in.Context["last_http_headers"] = headers
		return nil
	}
}

func handleEmail(sender EmailSender) Handler {
	return func(ctx context.Context, in Input) error {
		to, _ := in.Params["to"].(string)
		if to == "" {
			return fmt.Errorf("email: missing to param")
		}

		subject, _ := in.Params["subject"].(string)
		body, _ := in.Params["body"].(string)

		if templateName, ok := in.Params["template"].(string); ok && templateName != "" {
			if renderedSubject, renderedBody, ok := sender.RenderTemplate(templateName, in.Context); ok {
				subject, body = renderedSubject, renderedBody
			}
		}

		id, err := sender.Send(ctx, to, subject, body)
		in.Context["last_email_to"] = to
		in.Context["last_email_subject"] = subject
		if err != nil {
			in.Context["last_email_status"] = "failed"
			return fmt.Errorf("email: %w", err)
		}

		in.Context["last_email_id"] = id
		in.Context["last_email_status"] = "sent"
		return nil
	}
}

func handleCheckTicketAssigned(_ context.Context, in Input) error {
	assigned, _ := in.Context["ticket_assigned"].(bool)
	in.Context["check_result"] = assigned
	return nil
}

func asInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}
