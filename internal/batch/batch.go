// Package batch loads bulk-send batches from YAML.
//
// A batch file looks like:
//
//	emails:
//	  - to:
//	      - {email: ann@example.com, name: Ann}
//	    subject: "Hello {{ name }}"
//	    html: "<p>Hi {{ name }}</p>"
//	    personalization_all: {company: Acme}
//	    personalization:
//	      ann@example.com: {name: Ann}
//
// Emails are built through the mailersend builder, so a missing sender
// falls back to the client's default and shared values reach every
// recipient.
package batch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ignite/mailersend-go/internal/mailersend"
)

// ErrEmpty is returned for a batch with no emails.
var ErrEmpty = errors.New("batch contains no emails")

// File is the YAML document.
type File struct {
	Emails []Entry `yaml:"emails"`
}

// Entry is one email in a batch.
type Entry struct {
	From       *mailersend.Recipient  `yaml:"from"`
	To         []mailersend.Recipient `yaml:"to"`
	CC         []mailersend.Recipient `yaml:"cc"`
	BCC        []mailersend.Recipient `yaml:"bcc"`
	ReplyTo    *mailersend.Recipient  `yaml:"reply_to"`
	Subject    string                 `yaml:"subject"`
	HTML       string                 `yaml:"html"`
	Text       string                 `yaml:"text"`
	TemplateID string                 `yaml:"template_id"`
	Tags       []string               `yaml:"tags"`
	SendAt     *time.Time             `yaml:"send_at"`

	PersonalizationAll map[string]string            `yaml:"personalization_all"`
	Personalization    map[string]map[string]string `yaml:"personalization"`
	VariablesAll       map[string]string            `yaml:"variables_all"`
	Variables          map[string]map[string]string `yaml:"variables"`
}

// Load reads and parses a batch file.
func Load(path string, newEmail func() *mailersend.Email) ([]*mailersend.Email, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return Parse(data, newEmail)
}

// Parse decodes a batch document into emails. newEmail supplies each
// fresh email, normally Client.CreateEmail.
func Parse(data []byte, newEmail func() *mailersend.Email) ([]*mailersend.Email, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}
	if len(f.Emails) == 0 {
		return nil, ErrEmpty
	}

	emails := make([]*mailersend.Email, 0, len(f.Emails))
	for i, entry := range f.Emails {
		email, err := entry.build(newEmail())
		if err != nil {
			return nil, fmt.Errorf("email %d: %w", i, err)
		}
		emails = append(emails, email)
	}
	return emails, nil
}

func (en Entry) build(e *mailersend.Email) (*mailersend.Email, error) {
	if len(en.To) == 0 {
		return nil, errors.New("no recipients")
	}

	if en.From != nil {
		e.SetFrom(en.From.Name, en.From.Email)
	}
	if en.ReplyTo != nil {
		e.SetReplyTo(en.ReplyTo.Name, en.ReplyTo.Email)
	}
	e.AddRecipients(en.To...)
	for _, r := range en.CC {
		e.AddCC(r.Name, r.Email)
	}
	for _, r := range en.BCC {
		e.AddBCC(r.Name, r.Email)
	}
	e.Subject = en.Subject
	e.HTML = en.HTML
	e.Text = en.Text
	e.TemplateID = en.TemplateID
	for _, tag := range en.Tags {
		e.AddTag(tag)
	}
	if en.SendAt != nil {
		e.SetSendAt(*en.SendAt)
	}

	for _, k := range sortedKeys(en.PersonalizationAll) {
		e.AddPersonalizationForAll(k, en.PersonalizationAll[k])
	}
	for _, addr := range sortedKeys(en.Personalization) {
		data := en.Personalization[addr]
		for _, k := range sortedKeys(data) {
			e.AddPersonalization(addr, k, data[k])
		}
	}
	for _, k := range sortedKeys(en.VariablesAll) {
		e.AddVariableForAll(k, en.VariablesAll[k])
	}
	for _, addr := range sortedKeys(en.Variables) {
		subs := en.Variables[addr]
		for _, k := range sortedKeys(subs) {
			e.AddVariable(addr, k, subs[k])
		}
	}
	return e, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
