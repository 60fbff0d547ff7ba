package mailersend

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Mode selects how an Email is written to the wire.
type Mode int

const (
	// ModeSend is used for POST /email.
	ModeSend Mode = iota
	// ModeBulk is used for each element of the POST /bulk-email array.
	ModeBulk
	// ModeDeserialize is reserved for reading responses. Encoding a
	// request in this mode fails.
	ModeDeserialize
)

func (m Mode) String() string {
	switch m {
	case ModeSend:
		return "send"
	case ModeBulk:
		return "bulk"
	case ModeDeserialize:
		return "deserialize"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ErrDeserializeMode is returned when a request is encoded in ModeDeserialize.
var ErrDeserializeMode = errors.New("mailersend: deserialize mode cannot encode requests")

// forcedFields lists, per mode, the fields written even when unset. A forced
// unset field is written as its empty form, never as null.
var forcedFields = map[Mode]map[string]bool{
	ModeSend: {"from": true, "to": true},
	ModeBulk: {"from": true, "to": true, "personalization": true, "variables": true},
}

// Includes reports whether field is written in this mode. set tells whether
// the field holds a non-default value.
func (m Mode) Includes(field string, set bool) bool {
	if m == ModeDeserialize {
		return false
	}
	return set || forcedFields[m][field]
}

// EncodeEmail maps e to its wire object for mode. It does not mutate e.
func EncodeEmail(e *Email, mode Mode) (map[string]interface{}, error) {
	if e == nil {
		return nil, errors.New("mailersend: nil email")
	}
	if mode != ModeSend && mode != ModeBulk {
		return nil, ErrDeserializeMode
	}

	out := map[string]interface{}{}
	put := func(field string, set bool, value func() interface{}) {
		if mode.Includes(field, set) {
			out[field] = value()
		}
	}

	put("from", e.From != nil, func() interface{} {
		if e.From == nil {
			return Recipient{}
		}
		return *e.From
	})
	put("to", len(e.To) > 0, func() interface{} { return recipientsOrEmpty(e.To) })
	put("cc", len(e.CC) > 0, func() interface{} { return e.CC })
	put("bcc", len(e.BCC) > 0, func() interface{} { return e.BCC })
	put("reply_to", e.ReplyTo != nil, func() interface{} { return *e.ReplyTo })
	put("subject", e.Subject != "", func() interface{} { return e.Subject })
	put("html", e.HTML != "", func() interface{} { return e.HTML })
	put("text", e.Text != "", func() interface{} { return e.Text })
	put("template_id", e.TemplateID != "", func() interface{} { return e.TemplateID })
	put("tags", len(e.Tags) > 0, func() interface{} { return e.Tags })
	put("personalization", len(e.Personalization) > 0, func() interface{} {
		return encodePersonalization(e.Personalization)
	})
	put("variables", len(e.Variables) > 0, func() interface{} {
		return encodeVariables(e.Variables)
	})
	put("attachments", len(e.Attachments) > 0, func() interface{} { return e.Attachments })
	put("send_at", e.SendAt > 0, func() interface{} { return e.SendAt })
	put("in_reply_to", e.InReplyTo != "", func() interface{} { return e.InReplyTo })
	put("precedence_bulk", e.PrecedenceBulk != nil, func() interface{} { return *e.PrecedenceBulk })
	put("settings", e.Settings != nil, func() interface{} { return *e.Settings })

	return out, nil
}

// MarshalEmail encodes e for mode as JSON.
func MarshalEmail(e *Email, mode Mode) ([]byte, error) {
	obj, err := EncodeEmail(e, mode)
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

// MarshalBulk encodes emails as the JSON array expected by POST /bulk-email.
// Callers normalize personalization and variables beforehand.
func MarshalBulk(emails []*Email) ([]byte, error) {
	arr := make([]map[string]interface{}, 0, len(emails))
	for i, e := range emails {
		obj, err := EncodeEmail(e, ModeBulk)
		if err != nil {
			return nil, fmt.Errorf("encoding email %d: %w", i, err)
		}
		arr = append(arr, obj)
	}
	return json.Marshal(arr)
}

func recipientsOrEmpty(rs []Recipient) []Recipient {
	if rs == nil {
		return []Recipient{}
	}
	return rs
}

// encodePersonalization copies the entries. Each one serializes through
// Personalization.MarshalJSON, so data is key-ordered and never null.
func encodePersonalization(ps []Personalization) []Personalization {
	out := make([]Personalization, len(ps))
	copy(out, ps)
	return out
}

// encodeVariables guarantees "substitutions": [] rather than null.
func encodeVariables(vs []Variable) []Variable {
	out := make([]Variable, len(vs))
	for i, v := range vs {
		out[i] = Variable{Email: v.Email, Substitutions: v.Substitutions}
		if out[i].Substitutions == nil {
			out[i].Substitutions = []Substitution{}
		}
	}
	return out
}
