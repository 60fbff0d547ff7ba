package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mailersend-go/internal/mailersend"
	"github.com/ignite/mailersend-go/internal/stub"
)

const testToken = "mlsn.cli-test"

// run executes the CLI against a fresh stub and returns stdout and stderr.
func run(t *testing.T, opts stub.Options, args ...string) (string, string, error) {
	t.Helper()

	opts.Token = testToken
	ts := httptest.NewServer(stub.NewServer(opts).Handler())
	t.Cleanup(ts.Close)

	t.Setenv("MAILERSEND_API_TOKEN", testToken)
	t.Setenv("MAILERSEND_BASE_URL", ts.URL+"/v1")
	t.Setenv("MAILERSEND_FROM_EMAIL", "info@example.com")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&app{})
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSendCommand(t *testing.T) {
	out, _, err := run(t, stub.Options{},
		"send", "--to", "ann@example.com", "--subject", "Hi", "--text", "hello", "--var", "name=Ann")
	require.NoError(t, err)

	var resp mailersend.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 202, resp.StatusCode)
	assert.NotEmpty(t, resp.MessageID)
}

func TestSendCommand_DryRun(t *testing.T) {
	out, _, err := run(t, stub.Options{},
		"send", "--dry-run",
		"--to", "ann@example.com", "--to", "bob@example.com",
		"--subject", "Hi {{ name }}", "--var", "name=friend")
	require.NoError(t, err)

	var previews []mailersend.Preview
	require.NoError(t, json.Unmarshal([]byte(out), &previews))
	require.Len(t, previews, 2)
	assert.Equal(t, "Hi friend", previews[0].Subject)
	assert.Equal(t, "bob@example.com", previews[1].Recipient)
}

func TestSendCommand_ValidationFailure(t *testing.T) {
	_, _, err := run(t, stub.Options{}, "send", "--to", "ann@example.com")
	require.Error(t, err)
	assert.Equal(t, mailersend.KindTransport, mailersend.KindOf(err))

	var buf bytes.Buffer
	printError(&buf, err)
	assert.Contains(t, buf.String(), "  subject: ")
	assert.Contains(t, buf.String(), "  text: ")
}

func TestSendCommand_BadFlags(t *testing.T) {
	_, _, err := run(t, stub.Options{}, "send", "--subject", "x")
	assert.EqualError(t, err, "at least one --to recipient is required")

	_, _, err = run(t, stub.Options{}, "send", "--to", "a@example.com", "--var", "novalue")
	assert.ErrorContains(t, err, `invalid --var "novalue"`)
}

func TestSendCommand_MissingToken(t *testing.T) {
	t.Setenv("MAILERSEND_API_TOKEN", "")

	var stdout bytes.Buffer
	cmd := newRootCmd(&app{})
	cmd.SetArgs([]string{"send", "--to", "a@example.com", "--subject", "s", "--text", "t"})
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()

	require.Error(t, err)
	assert.ErrorContains(t, err, "MAILERSEND_API_TOKEN")
}

func TestBulkSendAndStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
emails:
  - to: [{email: ann@example.com}, {email: bob@example.com}]
    subject: "Hi {{ name }}"
    text: hello
    personalization_all: {name: friend}
`), 0o600))

	opts := stub.Options{}
	opts.Token = testToken
	ts := httptest.NewServer(stub.NewServer(opts).Handler())
	defer ts.Close()

	t.Setenv("MAILERSEND_API_TOKEN", testToken)
	t.Setenv("MAILERSEND_BASE_URL", ts.URL+"/v1")
	t.Setenv("MAILERSEND_FROM_EMAIL", "info@example.com")

	var stdout bytes.Buffer
	cmd := newRootCmd(&app{})
	cmd.SetArgs([]string{"bulk-send", "--file", path})
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, cmd.Execute())

	var submitted map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &submitted))
	id := submitted["bulk_email_id"]
	require.NotEmpty(t, id)

	stdout.Reset()
	cmd = newRootCmd(&app{})
	cmd.SetArgs([]string{"bulk-status", id})
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, cmd.Execute())

	var status mailersend.BulkSendStatus
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &status))
	assert.Equal(t, id, status.ID)
	assert.Equal(t, mailersend.BulkStateCompleted, status.State)
	assert.Equal(t, 2, status.TotalRecipientsCount)
}

func TestBulkSend_Wait(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("emails:\n  - to: [{email: a@example.com}]\n    subject: s\n    text: t\n"), 0o600))

	out, stderr, err := run(t, stub.Options{},
		"bulk-send", "--file", path, "--wait", "--poll-interval", "10ms", "--log-level", "debug")
	require.NoError(t, err)

	var status mailersend.BulkSendStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Done())
	assert.Len(t, status.MessagesID, 1)

	// debug logging redacts the token
	assert.NotContains(t, stderr, testToken)
	assert.True(t, strings.Contains(stderr, "configuration loaded"))
}

func TestBulkSend_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("emails:\n  - subject: no recipients\n"), 0o600))

	_, _, err := run(t, stub.Options{}, "bulk-send", "--file", path)
	assert.ErrorContains(t, err, "no recipients")
}

func TestBulkStatus_UnknownID(t *testing.T) {
	_, _, err := run(t, stub.Options{}, "bulk-status", "nope")
	require.Error(t, err)

	var apiErr *mailersend.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, &mailersend.Error{
		Kind:        mailersend.KindTransport,
		StatusCode:  422,
		Message:     "The given data was invalid.",
		FieldErrors: map[string][]string{"to": {"required"}, "from.email": {"required", "must be valid"}},
	})

	assert.Equal(t, "Error: mailersend transport error (status 422): The given data was invalid.\n"+
		"  from.email: required; must be valid\n"+
		"  to: required\n", buf.String())
}
