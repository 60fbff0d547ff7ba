package batch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mailersend-go/internal/mailersend"
)

var defaultFrom = &mailersend.Recipient{Email: "info@example.com", Name: "Info"}

func newEmail() *mailersend.Email {
	return mailersend.NewEmail(defaultFrom)
}

const sample = `
emails:
  - to:
      - {email: ann@example.com, name: Ann}
      - {email: bob@example.com}
    subject: "Hello {{ name }}"
    html: "<p>{{ company }}</p>"
    tags: [welcome]
    send_at: 2024-05-01T10:00:00Z
    personalization_all: {company: Acme}
    personalization:
      ann@example.com: {name: Ann}
    variables:
      bob@example.com: {code: "42"}
  - from: {email: ops@example.com, name: Ops}
    to:
      - {email: carol@example.com}
    reply_to: {email: support@example.com}
    cc:
      - {email: cc@example.com}
    template_id: tmpl-1
`

func TestParse(t *testing.T) {
	emails, err := Parse([]byte(sample), newEmail)
	require.NoError(t, err)
	require.Len(t, emails, 2)

	first := emails[0]
	assert.Equal(t, "info@example.com", first.From.Email)
	assert.Equal(t, []mailersend.Recipient{
		{Email: "ann@example.com", Name: "Ann"},
		{Email: "bob@example.com"},
	}, first.To)
	assert.Equal(t, "Hello {{ name }}", first.Subject)
	assert.Equal(t, []string{"welcome"}, first.Tags)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).Unix(), first.SendAt)

	first.PreparePersonalizationForAllRecipients()
	require.Len(t, first.Personalization, 2)
	name, ok := first.Personalization[0].Get("name")
	assert.True(t, ok)
	assert.Equal(t, "Ann", name)
	company, _ := first.Personalization[1].Get("company")
	assert.Equal(t, "Acme", company)

	require.Len(t, first.Variables, 1)
	code, ok := first.Variables[0].Value("code")
	assert.True(t, ok)
	assert.Equal(t, "42", code)

	second := emails[1]
	assert.Equal(t, "ops@example.com", second.From.Email)
	assert.Equal(t, "support@example.com", second.ReplyTo.Email)
	assert.Len(t, second.CC, 1)
	assert.Equal(t, "tmpl-1", second.TemplateID)
}

func TestParse_DefaultSenderIsCopied(t *testing.T) {
	emails, err := Parse([]byte(sample), newEmail)
	require.NoError(t, err)

	emails[0].From.Email = "changed@example.com"
	assert.Equal(t, "info@example.com", defaultFrom.Email)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty document", ``, ErrEmpty.Error()},
		{"no emails", `emails: []`, ErrEmpty.Error()},
		{"no recipients", "emails:\n  - subject: s\n", "email 0: no recipients"},
		{"unknown field", "emails:\n  - tos: []\n", "failed to parse batch file"},
		{"malformed", "emails: [", "failed to parse batch file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), newEmail)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	emails, err := Load(path, newEmail)
	require.NoError(t, err)
	assert.Len(t, emails, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), newEmail)
	assert.Error(t, err)
}
