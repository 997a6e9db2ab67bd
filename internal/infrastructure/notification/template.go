package notification

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"

	ordersvc "github.com/storefront/backend/internal/application/order"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Template is a subject/body pair rendered against the request variables
type Template struct {
	ID      string
	Subject string
	Body    string
}

var defaultTemplates = map[ordersvc.NotificationType]Template{
	ordersvc.NotificationOrderShipped: {
		ID:      "order-shipped",
		Subject: "Your order {{.orderNumber}} has shipped",
		Body: `Hi {{title .customerName}},

Good news: order {{.orderNumber}} is on its way with {{upper .carrier}}.
Tracking number: {{.trackingNumber}}
{{- with .trackingUrl}}
Track it here: {{.}}
{{- end}}
{{- with .estimatedDeliveryDate}}
Estimated delivery: {{.}}
{{- end}}
`,
	},
	ordersvc.NotificationOrderDelivered: {
		ID:      "order-delivered",
		Subject: "Your order {{.orderNumber}} was delivered",
		Body: `Hi {{title .customerName}},

Order {{.orderNumber}} was delivered on {{.deliveredAt}}.
We hope you enjoy it.
`,
	},
}

var funcMap = template.FuncMap{
	"title": titleCase,
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"trim":  strings.TrimSpace,
	"default": func(fallback, value string) string {
		if value == "" {
			return fallback
		}
		return value
	},
}

type parsedTemplate struct {
	subject *template.Template
	body    *template.Template
}

// Renderer renders notification templates. Registered templates are parsed once.
type Renderer struct {
	mu        sync.RWMutex
	templates map[string]parsedTemplate
	byType    map[ordersvc.NotificationType]string
}

// NewRenderer creates a renderer holding the built-in order templates
func NewRenderer() *Renderer {
	r := &Renderer{
		templates: make(map[string]parsedTemplate),
		byType:    make(map[ordersvc.NotificationType]string),
	}
	for typ, tmpl := range defaultTemplates {
		if err := r.Register(tmpl); err != nil {
			panic(err)
		}
		r.byType[typ] = tmpl.ID
	}
	return r
}

// Register adds or replaces a template addressable by its ID
func (r *Renderer) Register(tmpl Template) error {
	if tmpl.ID == "" {
		return fmt.Errorf("template id cannot be empty")
	}
	subject, err := parse(tmpl.ID+":subject", tmpl.Subject)
	if err != nil {
		return err
	}
	body, err := parse(tmpl.ID+":body", tmpl.Body)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates[tmpl.ID] = parsedTemplate{subject: subject, body: body}
	r.mu.Unlock()
	return nil
}

// Render resolves the template for req and returns the subject, the body
// and the id of the template used. req.Subject, when set, is itself a
// template that replaces the registered subject.
func (r *Renderer) Render(req ordersvc.NotificationRequest) (subject, body, templateID string, err error) {
	r.mu.RLock()
	templateID = req.TemplateID
	if templateID == "" {
		templateID = r.byType[req.Type]
	}
	tmpl, ok := r.templates[templateID]
	r.mu.RUnlock()
	if templateID == "" {
		return "", "", "", fmt.Errorf("no template for notification type %s", req.Type)
	}
	if !ok {
		return "", "", "", fmt.Errorf("unknown notification template %q", templateID)
	}

	subjectTmpl := tmpl.subject
	if req.Subject != "" {
		if subjectTmpl, err = parse(templateID+":subject", req.Subject); err != nil {
			return "", "", "", err
		}
	}
	if subject, err = execute(subjectTmpl, req.Variables); err != nil {
		return "", "", "", err
	}
	if body, err = execute(tmpl.body, req.Variables); err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), body, templateID, nil
}

func parse(name, src string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=zero").Funcs(funcMap).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return t, nil
}

func execute(t *template.Template, vars map[string]string) (string, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// titleCase converts a name to title case using proper Unicode handling
func titleCase(s string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(s))
}
