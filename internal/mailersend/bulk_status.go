package mailersend

import (
	"bytes"
	"encoding/json"
	"time"
)

// TimestampLayout is the provider's date-time format,
// e.g. "2021-09-17T10:39:05.000000Z". Fractional seconds are optional.
const TimestampLayout = "2006-01-02T15:04:05.999999Z07:00"

var jsonNull = []byte("null")

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

// ParseBulkSendStatus decodes a GET /bulk-email/{id} body. Fields are read
// one at a time because the provider omits or nulls optional ones.
func ParseBulkSendStatus(body []byte) (*BulkSendStatus, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		pe := newParseError(body, "status body is not a JSON object")
		pe.Err = err
		return nil, pe
	}

	rawData, ok := envelope["data"]
	if !ok || isNull(rawData) {
		return nil, newParseError(body, "missing data object")
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(rawData, &data); err != nil {
		pe := newParseError(body, "data is not an object")
		pe.Err = err
		return nil, pe
	}

	p := statusParser{data: data, body: body}
	status := &BulkSendStatus{}

	// required scalars
	p.str("id", &status.ID)
	p.str("state", &status.State)
	p.integer("total_recipients_count", &status.TotalRecipientsCount)
	p.integer("suppressed_recipients_count", &status.SuppressedRecipientsCount)
	p.integer("validation_errors_count", &status.ValidationErrorsCount)

	// never nil
	status.MessagesID = p.stringList("messages_id")

	// the provider has shipped the misspelled key
	status.ValidationErrors = p.optionalObject("validation_errors", "validataion_errors")
	status.SuppressedRecipients = p.optionalObject("suppressed_recipients")

	status.CreatedAt = p.timestamp("created_at")
	status.UpdatedAt = p.timestamp("updated_at")

	if p.err != nil {
		return nil, p.err
	}
	return status, nil
}

// statusParser records the first failure and skips the remaining fields.
type statusParser struct {
	data map[string]json.RawMessage
	body []byte
	err  *Error
}

func (p *statusParser) fail(format string, args ...interface{}) {
	if p.err == nil {
		p.err = newParseError(p.body, format, args...)
	}
}

func (p *statusParser) required(field string) (json.RawMessage, bool) {
	if p.err != nil {
		return nil, false
	}
	raw, ok := p.data[field]
	if !ok {
		p.fail("missing required field %q", field)
		return nil, false
	}
	if isNull(raw) {
		p.fail("required field %q is null", field)
		return nil, false
	}
	return raw, true
}

func (p *statusParser) str(field string, dst *string) {
	raw, ok := p.required(field)
	if !ok {
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		p.fail("field %q is not a string", field)
	}
}

func (p *statusParser) integer(field string, dst *int) {
	raw, ok := p.required(field)
	if !ok {
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		p.fail("field %q is not an integer", field)
	}
}

func (p *statusParser) stringList(field string) []string {
	out := []string{}
	if p.err != nil {
		return out
	}
	raw, ok := p.data[field]
	if !ok || isNull(raw) {
		return out
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		p.fail("field %q is not a list of strings", field)
		return []string{}
	}
	for i, elem := range elems {
		var s string
		if isNull(elem) || json.Unmarshal(elem, &s) != nil {
			p.fail("field %q element %d is not a string", field, i)
			return []string{}
		}
		out = append(out, s)
	}
	return out
}

// optionalObject returns the first present, non-null key as a map. An empty
// object yields an empty non-nil map so callers can tell it from absence.
func (p *statusParser) optionalObject(keys ...string) map[string]interface{} {
	if p.err != nil {
		return nil
	}
	for _, key := range keys {
		raw, ok := p.data[key]
		if !ok || isNull(raw) {
			continue
		}
		obj := map[string]interface{}{}
		if err := json.Unmarshal(raw, &obj); err != nil {
			p.fail("field %q is not an object", key)
			return nil
		}
		return obj
	}
	return nil
}

func (p *statusParser) timestamp(field string) time.Time {
	var s string
	p.str(field, &s)
	if p.err != nil {
		return time.Time{}
	}
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		p.fail("field %q: unparseable timestamp %q", field, s)
		return time.Time{}
	}
	return t
}
