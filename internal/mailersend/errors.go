package mailersend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies where a request failed.
type ErrorKind int

const (
	// KindTransport covers network failures and non-2xx HTTP statuses.
	KindTransport ErrorKind = iota + 1
	// KindValidation covers field-level errors reported by the provider in
	// an otherwise successful response, and requests rejected before sending.
	KindValidation
	// KindParse means the response body did not have the expected shape.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by every client operation.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	// ResponseBody is the raw body as received, empty when there was none.
	ResponseBody string
	// FieldErrors maps a request field ("from.email") to its messages.
	FieldErrors map[string][]string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("mailersend ")
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a *Error anywhere in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// errorEnvelope is the provider's error body.
type errorEnvelope struct {
	Message string
	Errors  map[string][]string
}

// decodeEnvelope reads message and errors independently so a malformed
// member does not discard the other. A field whose messages arrive as a
// bare string becomes a one-element list. ok is false when body is not a
// JSON object.
func decodeEnvelope(body []byte) (env errorEnvelope, ok bool) {
	var members map[string]json.RawMessage
	if len(body) == 0 || json.Unmarshal(body, &members) != nil || members == nil {
		return env, false
	}

	if raw, found := members["message"]; found {
		_ = json.Unmarshal(raw, &env.Message)
	}

	var fields map[string]json.RawMessage
	if raw, found := members["errors"]; found && json.Unmarshal(raw, &fields) == nil {
		for field, rawMsgs := range fields {
			var msgs []string
			if json.Unmarshal(rawMsgs, &msgs) == nil && msgs != nil {
				env.addErrors(field, msgs...)
				continue
			}
			var msg string
			if json.Unmarshal(rawMsgs, &msg) == nil && msg != "" {
				env.addErrors(field, msg)
			}
		}
	}
	return env, true
}

func (env *errorEnvelope) addErrors(field string, msgs ...string) {
	if env.Errors == nil {
		env.Errors = map[string][]string{}
	}
	env.Errors[field] = msgs
}

// errorFromResponse builds a transport error from a non-2xx response. The
// envelope fields are used when the body carries them.
func errorFromResponse(status int, body []byte) *Error {
	apiErr := &Error{
		Kind:         KindTransport,
		StatusCode:   status,
		Message:      http.StatusText(status),
		ResponseBody: string(body),
		FieldErrors:  map[string][]string{},
	}

	if env, ok := decodeEnvelope(body); ok {
		if env.Message != "" {
			apiErr.Message = env.Message
		}
		for field, msgs := range env.Errors {
			apiErr.FieldErrors[field] = msgs
		}
	}
	return apiErr
}

// validationFromBody returns a validation error when a 2xx body carries a
// non-empty errors map, nil otherwise.
func validationFromBody(status int, body []byte) *Error {
	env, ok := decodeEnvelope(body)
	if !ok || len(env.Errors) == 0 {
		return nil
	}
	msg := env.Message
	if msg == "" {
		msg = "request contains invalid fields"
	}
	return &Error{
		Kind:         KindValidation,
		StatusCode:   status,
		Message:      msg,
		ResponseBody: string(body),
		FieldErrors:  env.Errors,
	}
}

func newParseError(body []byte, format string, args ...interface{}) *Error {
	return &Error{
		Kind:         KindParse,
		Message:      fmt.Sprintf(format, args...),
		ResponseBody: string(body),
		FieldErrors:  map[string][]string{},
	}
}

func newValidationError(msg string) *Error {
	return &Error{
		Kind:        KindValidation,
		Message:     msg,
		FieldErrors: map[string][]string{},
	}
}
