package email

import (
	"bytes"
	"html/template"
)

// namedTemplates mirrors the two named templates a workflow's "email" action
// can reference by name instead of supplying a literal body.
var namedTemplates = map[string]struct {
	subject string
	body    *template.Template
}{
	"ack_ticket": {
		subject: "We've received your ticket",
		body: template.Must(template.New("ack_ticket").Parse(
			`<p>Hi,</p><p>Thanks for reaching out about ticket {{.ticket_id}}. ` +
				`Our team has received it and will follow up shortly.</p>`)),
	},
	"escalate_ticket": {
		subject: "Ticket escalated",
		body: template.Must(template.New("escalate_ticket").Parse(
			`<p>Ticket {{.ticket_id}} has been escalated and assigned to a specialist. ` +
				`We'll update you as soon as there's progress.</p>`)),
	},
}

// RenderTemplate resolves a named template against ctx. ok is false when name
// isn't recognized, in which case callers should fall back to a plain body.
func (s *Service) RenderTemplate(name string, ctx map[string]any) (subject, body string, ok bool) {
	tpl, found := namedTemplates[name]
	if !found {
		return "", "", false
	}

	var buf bytes.Buffer
	if err := tpl.body.Execute(&buf, ctx); err != nil {
		return "", "", false
	}
	return tpl.subject, buf.String(), true
}
