package mailersend

import (
	"encoding/base64"
	"time"
)

// Recipient is an address with an optional display name.
type Recipient struct {
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Attachment is a file sent with the email. Content is base64 encoded.
type Attachment struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
	// ID makes the attachment inline, referenced as cid:<ID> in html.
	ID string `json:"id,omitempty"`
}

// Settings toggles provider-side tracking for one email.
type Settings struct {
	TrackClicks  bool `json:"track_clicks"`
	TrackOpens   bool `json:"track_opens"`
	TrackContent bool `json:"track_content"`
}

// Email is an outbound request. Create it with Client.CreateEmail, fill it
// with the builder methods and hand it to Send or BulkSend. An Email must
// not be shared between concurrent calls.
type Email struct {
	From    *Recipient
	To      []Recipient
	CC      []Recipient
	BCC     []Recipient
	ReplyTo *Recipient

	Subject    string
	HTML       string
	Text       string
	TemplateID string
	Tags       []string

	Personalization []Personalization
	Variables       []Variable

	Attachments    []Attachment
	SendAt         int64 // unix seconds, 0 sends immediately
	InReplyTo      string
	PrecedenceBulk *bool
	Settings       *Settings

	// applied to every recipient during normalization
	allPersonalization map[string]string
	allVariables       []Substitution
}

// NewEmail returns an empty Email with from as sender.
func NewEmail(from *Recipient) *Email {
	e := &Email{}
	if from != nil {
		f := *from
		e.From = &f
	}
	return e
}

// SetFrom sets the sender.
func (e *Email) SetFrom(name, email string) {
	e.From = &Recipient{Name: name, Email: email}
}

// SetReplyTo sets the reply-to address.
func (e *Email) SetReplyTo(name, email string) {
	e.ReplyTo = &Recipient{Name: name, Email: email}
}

// AddRecipient appends a "to" recipient.
func (e *Email) AddRecipient(name, email string) {
	e.To = append(e.To, Recipient{Name: name, Email: email})
}

// AddRecipients appends several "to" recipients.
func (e *Email) AddRecipients(recipients ...Recipient) {
	e.To = append(e.To, recipients...)
}

// AddCC appends a carbon-copy recipient.
func (e *Email) AddCC(name, email string) {
	e.CC = append(e.CC, Recipient{Name: name, Email: email})
}

// AddBCC appends a blind-carbon-copy recipient.
func (e *Email) AddBCC(name, email string) {
	e.BCC = append(e.BCC, Recipient{Name: name, Email: email})
}

// AddTag appends a tag.
func (e *Email) AddTag(tag string) {
	e.Tags = append(e.Tags, tag)
}

// AddAttachment base64-encodes content and attaches it.
func (e *Email) AddAttachment(filename string, content []byte) {
	e.Attachments = append(e.Attachments, Attachment{
		Filename: filename,
		Content:  base64.StdEncoding.EncodeToString(content),
	})
}

// AddInlineAttachment attaches content referenced from html as cid:id.
func (e *Email) AddInlineAttachment(id, filename string, content []byte) {
	e.AddAttachment(filename, content)
	e.Attachments[len(e.Attachments)-1].ID = id
}

// SetSendAt schedules the email. The zero time clears the schedule.
func (e *Email) SetSendAt(t time.Time) {
	if t.IsZero() {
		e.SendAt = 0
		return
	}
	e.SendAt = t.Unix()
}

// SetTracking sets the per-email tracking switches.
func (e *Email) SetTracking(clicks, opens, content bool) {
	e.Settings = &Settings{TrackClicks: clicks, TrackOpens: opens, TrackContent: content}
}

// SetPrecedenceBulk sets the Precedence: bulk header override.
func (e *Email) SetPrecedenceBulk(v bool) {
	e.PrecedenceBulk = &v
}

// AddPersonalization sets key for one recipient. Repeated calls for the
// same address update a single entry.
func (e *Email) AddPersonalization(email, key, value string) {
	k := emailKey(email)
	for i := range e.Personalization {
		if emailKey(e.Personalization[i].Email) == k {
			e.Personalization[i].Set(key, value)
			return
		}
	}
	p := NewPersonalization(email)
	p.Set(key, value)
	e.Personalization = append(e.Personalization, p)
}

// AddPersonalizationForAll sets key for every recipient that does not set
// it itself. It takes effect when the email is prepared for sending.
func (e *Email) AddPersonalizationForAll(key, value string) {
	if e.allPersonalization == nil {
		e.allPersonalization = map[string]string{}
	}
	e.allPersonalization[key] = value
}

// AddVariable sets a legacy substitution for one recipient.
func (e *Email) AddVariable(email, name, value string) {
	k := emailKey(email)
	for i := range e.Variables {
		if emailKey(e.Variables[i].Email) == k {
			e.Variables[i].Set(name, value)
			return
		}
	}
	v := NewVariable(email)
	v.Set(name, value)
	e.Variables = append(e.Variables, v)
}

// AddVariableForAll sets a legacy substitution for every recipient.
func (e *Email) AddVariableForAll(name, value string) {
	for i := range e.allVariables {
		if e.allVariables[i].Var == name {
			e.allVariables[i].Value = value
			return
		}
	}
	e.allVariables = append(e.allVariables, Substitution{Var: name, Value: value})
}

// PreparePersonalizationForAllRecipients gives every "to" recipient exactly
// one personalization entry. Missing entries are created empty and then
// filled from the for-all values.
func (e *Email) PreparePersonalizationForAllRecipients() {
	e.Personalization = mergePersonalization(e.Personalization, e.To, e.allPersonalization)
}

// PrepareSubstitutionsForAllRecipients does the same for legacy variables.
func (e *Email) PrepareSubstitutionsForAllRecipients() {
	e.Variables = mergeVariables(e.Variables, e.To, e.allVariables)
}

// PrepareForSingleSend returns the request body for POST /email. For-all
// values, if any, are merged into the recipients' entries first.
func (e *Email) PrepareForSingleSend() ([]byte, error) {
	if len(e.allPersonalization) > 0 {
		e.PreparePersonalizationForAllRecipients()
	}
	if len(e.allVariables) > 0 {
		e.PrepareSubstitutionsForAllRecipients()
	}
	return MarshalEmail(e, ModeSend)
}

// personalizationFor returns the data that applies to email, including the
// for-all values.
func (e *Email) personalizationFor(email string) map[string]string {
	data := map[string]string{}
	for k, v := range e.allPersonalization {
		data[k] = v
	}
	k := emailKey(email)
	for _, p := range e.Personalization {
		if emailKey(p.Email) == k {
			for key, v := range p.Data {
				data[key] = v
			}
		}
	}
	return data
}

func (e *Email) variablesFor(email string) []Substitution {
	v := NewVariable(email)
	for _, s := range e.allVariables {
		v.Set(s.Var, s.Value)
	}
	k := emailKey(email)
	for _, entry := range e.Variables {
		if emailKey(entry.Email) == k {
			for _, s := range entry.Substitutions {
				v.Set(s.Var, s.Value)
			}
		}
	}
	return v.Substitutions
}
