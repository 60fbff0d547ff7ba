package mailersend

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"
)

// Preview is an email rendered locally for one recipient.
type Preview struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	HTML      string `json:"html,omitempty"`
	Text      string `json:"text,omitempty"`
}

var previewEngine = liquid.NewEngine()

// Preview renders subject, html and text the way the provider would for
// recipientEmail: {{ var }} from personalization, {$var} from variables.
// Templates stored on the provider side (TemplateID) are not fetched.
func (e *Email) Preview(recipientEmail string) (*Preview, error) {
	bindings := map[string]interface{}{}
	for k, v := range e.personalizationFor(recipientEmail) {
		bindings[k] = v
	}

	pairs := []string{}
	for _, s := range e.variablesFor(recipientEmail) {
		pairs = append(pairs, "{$"+s.Var+"}", s.Value)
	}
	legacy := strings.NewReplacer(pairs...)

	render := func(field, src string) (string, error) {
		if src == "" {
			return "", nil
		}
		// substitution values are inserted after rendering and never parsed
		out, err := previewEngine.ParseAndRenderString(src, bindings)
		if err != nil {
			return "", fmt.Errorf("rendering %s: %w", field, err)
		}
		return legacy.Replace(out), nil
	}

	p := &Preview{Recipient: recipientEmail}
	var err error
	if p.Subject, err = render("subject", e.Subject); err != nil {
		return nil, err
	}
	if p.HTML, err = render("html", e.HTML); err != nil {
		return nil, err
	}
	if p.Text, err = render("text", e.Text); err != nil {
		return nil, err
	}
	return p, nil
}

// PreviewAll renders the email for every "to" recipient.
func (e *Email) PreviewAll() ([]*Preview, error) {
	out := make([]*Preview, 0, len(e.To))
	for _, r := range e.To {
		p, err := e.Preview(r.Email)
		if err != nil {
			return nil, fmt.Errorf("preview for %s: %w", r.Email, err)
		}
		out = append(out, p)
	}
	return out, nil
}
