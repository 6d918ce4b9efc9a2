package templates

import (
	"context"
	"errors"
	"html"
	"net/url"
	"regexp"
	"strings"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/store"
	"callcenter-api/pkg/phone"

	"github.com/microcosm-cc/bluemonday"
)

const defaultSubject = "Message"

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

type Service struct {
	Store  store.Store
	Region string
	policy *bluemonday.Policy
}

func NewService(st store.Store, region string) *Service {
	return &Service{Store: st, Region: region, policy: bluemonday.StrictPolicy()}
}

type CreateInput struct {
	Name      string   `json:"name"`
	Message   string   `json:"message"`
	Variables []string `json:"variables"`
}

type RenderInput struct {
	TemplateID int64    `json:"templateId"`
	Phone      string   `json:"phoneNumber"`
	Email      string   `json:"email"`
	Subject    string   `json:"subject"`
	Values     []string `json:"values"`
}

type Rendered struct {
	Message     string  `json:"message"`
	WhatsAppURL *string `json:"whatsappUrl"`
	GmailURL    *string `json:"gmailUrl"`
}

// Create stores a template with all markup stripped from its message. When
// no variables are given they are taken from the message placeholders in
// order of appearance.
func (s *Service) Create(ctx context.Context, in CreateInput) (store.Template, error) {
	name := strings.TrimSpace(in.Name)
	msg := strings.TrimSpace(s.sanitize(in.Message))
	if name == "" || msg == "" {
		return store.Template{}, apperr.Validation("name and message are required")
	}
	vars := cleanVariables(in.Variables)
	if len(vars) == 0 {
		vars = Placeholders(msg)
	}

	out, err := s.Store.CreateTemplate(ctx, store.Template{Name: name, Message: msg, Variables: vars})
	if err != nil {
		return store.Template{}, apperr.Persistence("create template", err)
	}
	return out, nil
}

func (s *Service) List(ctx context.Context) ([]store.Template, error) {
	out, err := s.Store.ListTemplates(ctx)
	if err != nil {
		return nil, apperr.Persistence("list templates", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (store.Template, error) {
	t, err := s.Store.GetTemplate(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Template{}, apperr.NotFound("Template not found")
	}
	if err != nil {
		return store.Template{}, apperr.Persistence("get template", err)
	}
	return t, nil
}

// Render fills the template and builds share links for the given phone
// and email.
func (s *Service) Render(ctx context.Context, in RenderInput) (Rendered, error) {
	if in.TemplateID <= 0 || in.Values == nil {
		return Rendered{}, apperr.Validation("templateId and values[] are required")
	}
	t, err := s.Get(ctx, in.TemplateID)
	if err != nil {
		return Rendered{}, err
	}

	out := Rendered{Message: Fill(t.Message, t.Variables, in.Values)}
	text := encodeComponent(out.Message)

	if p := strings.TrimSpace(in.Phone); p != "" {
		digits := phone.Digits(phone.Normalize(p, s.Region))
		if digits == "" {
			return Rendered{}, apperr.Validation("Invalid phone number")
		}
		link := "https://wa.me/" + digits + "?text=" + text
		out.WhatsAppURL = &link
	}
	if e := strings.TrimSpace(in.Email); e != "" {
		subject := strings.TrimSpace(in.Subject)
		if subject == "" {
			subject = defaultSubject
		}
		link := "https://mail.google.com/mail/?view=cm&to=" + encodeComponent(e) +
			"&su=" + encodeComponent(subject) + "&body=" + text
		out.GmailURL = &link
	}
	return out, nil
}

// Fill replaces the first occurrence of each {{variable}} with the value at
// the same index. Missing values become empty strings.
func Fill(message string, variables, values []string) string {
	for i, v := range variables {
		val := ""
		if i < len(values) {
			val = values[i]
		}
		message = strings.Replace(message, "{{"+v+"}}", val, 1)
	}
	return message
}

// Placeholders lists the distinct {{name}} placeholders in message.
func Placeholders(message string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range placeholder.FindAllStringSubmatch(message, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// sanitize drops all markup. StrictPolicy escapes entities, which would
// mangle plain text like "it's", so the result is unescaped again.
func (s *Service) sanitize(msg string) string {
	return html.UnescapeString(s.policy.Sanitize(msg))
}

func cleanVariables(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// encodeComponent percent-encodes s for a query value, spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
