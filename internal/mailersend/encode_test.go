package mailersend

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeObject(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &obj))
	return obj
}

func TestModeIncludes(t *testing.T) {
	tests := []struct {
		mode  Mode
		field string
		set   bool
		want  bool
	}{
		{ModeSend, "subject", true, true},
		{ModeSend, "subject", false, false},
		{ModeSend, "from", false, true},
		{ModeSend, "to", false, true},
		{ModeSend, "personalization", false, false},
		{ModeBulk, "personalization", false, true},
		{ModeBulk, "variables", false, true},
		{ModeBulk, "html", false, false},
		{ModeDeserialize, "from", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String()+"/"+tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mode.Includes(tt.field, tt.set))
		})
	}
}

func TestMarshalEmail_SendOmitsUnsetFields(t *testing.T) {
	e := NewEmail(&Recipient{Email: "from@example.com", Name: "Sender"})
	e.AddRecipient("Ann", "ann@example.com")
	e.Subject = "Hi"

	data, err := MarshalEmail(e, ModeSend)
	require.NoError(t, err)

	obj := decodeObject(t, data)
	assert.ElementsMatch(t, []string{"from", "to", "subject"}, keys(obj))
	assert.Equal(t, map[string]interface{}{"email": "from@example.com", "name": "Sender"}, obj["from"])
	assert.NotContains(t, string(data), "null")
}

func TestMarshalEmail_ForcedFieldsUseEmptyForm(t *testing.T) {
	data, err := MarshalEmail(&Email{}, ModeSend)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":{"email":""},"to":[]}`, string(data))

	data, err = MarshalEmail(&Email{}, ModeBulk)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":{"email":""},"to":[],"personalization":[],"variables":[]}`, string(data))
}

func TestMarshalEmail_AllFields(t *testing.T) {
	e := NewEmail(&Recipient{Email: "from@example.com"})
	e.AddRecipient("", "a@example.com")
	e.AddCC("", "cc@example.com")
	e.AddBCC("", "bcc@example.com")
	e.SetReplyTo("Support", "support@example.com")
	e.Subject = "Subject"
	e.HTML = "<p>Hi</p>"
	e.Text = "Hi"
	e.TemplateID = "tmpl-1"
	e.AddTag("welcome")
	e.AddPersonalization("a@example.com", "name", "Ann")
	e.AddVariable("a@example.com", "code", "42")
	e.AddAttachment("hello.txt", []byte("hello"))
	e.SetSendAt(time.Unix(1700000000, 0))
	e.InReplyTo = "msg-0"
	e.SetPrecedenceBulk(false)
	e.SetTracking(true, false, true)

	data, err := MarshalEmail(e, ModeSend)
	require.NoError(t, err)

	obj := decodeObject(t, data)
	assert.ElementsMatch(t, []string{
		"from", "to", "cc", "bcc", "reply_to", "subject", "html", "text", "template_id", "tags",
		"personalization", "variables", "attachments", "send_at", "in_reply_to", "precedence_bulk", "settings",
	}, keys(obj))
	assert.EqualValues(t, 1700000000, obj["send_at"])
	assert.Equal(t, false, obj["precedence_bulk"])
	assert.Equal(t, []interface{}{map[string]interface{}{"content": "aGVsbG8=", "filename": "hello.txt"}}, obj["attachments"])
	assert.Equal(t, []interface{}{map[string]interface{}{"email": "a@example.com", "data": map[string]interface{}{"name": "Ann"}}}, obj["personalization"])
	assert.Equal(t, map[string]interface{}{"track_clicks": true, "track_opens": false, "track_content": true}, obj["settings"])
}

func TestMarshalEmail_DeserializeModeRejected(t *testing.T) {
	_, err := MarshalEmail(&Email{}, ModeDeserialize)
	assert.ErrorIs(t, err, ErrDeserializeMode)
}

func TestMarshalBulk(t *testing.T) {
	a := NewEmail(&Recipient{Email: "from@example.com"})
	a.AddRecipient("", "a@example.com")
	a.PreparePersonalizationForAllRecipients()
	a.PrepareSubstitutionsForAllRecipients()

	data, err := MarshalBulk([]*Email{a})
	require.NoError(t, err)

	assert.JSONEq(t, `[{
		"from": {"email": "from@example.com"},
		"to": [{"email": "a@example.com"}],
		"personalization": [{"email": "a@example.com", "data": {}}],
		"variables": [{"email": "a@example.com", "substitutions": []}]
	}]`, string(data))
}

func TestMarshalBulk_NilEmail(t *testing.T) {
	_, err := MarshalBulk([]*Email{nil})
	assert.Error(t, err)
}

func keys(obj map[string]interface{}) []string {
	out := make([]string, 0, len(obj))
	for k := range obj {
		out = append(out, k)
	}
	return out
}
