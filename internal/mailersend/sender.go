package mailersend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	sendPath     = "/email"
	bulkSendPath = "/bulk-email"
)

// Send delivers a single email.
func (c *Client) Send(ctx context.Context, email *Email) (*Response, error) {
	if email == nil {
		return nil, newValidationError("email is nil")
	}

	body, err := email.PrepareForSingleSend()
	if err != nil {
		return nil, fmt.Errorf("encoding email: %w", err)
	}

	raw, err := c.transport.PostRequest(ctx, sendPath, body)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		StatusCode: raw.StatusCode,
		MessageID:  raw.Header.Get("X-Message-Id"),
	}
	if len(strings.TrimSpace(string(raw.Body))) > 0 {
		var decoded sendResponse
		if err := json.Unmarshal(raw.Body, &decoded); err != nil {
			pe := newParseError(raw.Body, "send response is not valid JSON")
			pe.StatusCode = raw.StatusCode
			pe.Err = err
			return nil, pe
		}
		resp.Warnings = decoded.Warnings
	}

	c.log.Info("email sent",
		"message_id", resp.MessageID,
		"to", recipientList(email.To),
		"warnings", len(resp.Warnings),
	)
	return resp, nil
}

// BulkSend submits emails as one asynchronous job and returns its id. Each
// email's personalization and variables are normalized in place first.
func (c *Client) BulkSend(ctx context.Context, emails []*Email) (string, error) {
	if len(emails) == 0 {
		return "", newValidationError("no emails to send")
	}

	recipients := 0
	for i, email := range emails {
		if email == nil {
			return "", newValidationError(fmt.Sprintf("email %d is nil", i))
		}
		email.PreparePersonalizationForAllRecipients()
		email.PrepareSubstitutionsForAllRecipients()
		recipients += len(email.To)
	}

	body, err := MarshalBulk(emails)
	if err != nil {
		return "", fmt.Errorf("encoding bulk request: %w", err)
	}

	raw, err := c.transport.PostRequest(ctx, bulkSendPath, body)
	if err != nil {
		return "", err
	}

	var decoded bulkSendResponse
	if err := json.Unmarshal(raw.Body, &decoded); err != nil {
		pe := newParseError(raw.Body, "bulk send response is not valid JSON")
		pe.StatusCode = raw.StatusCode
		pe.Err = err
		return "", pe
	}
	if decoded.BulkEmailID == "" {
		pe := newParseError(raw.Body, "bulk send response has no bulk_email_id")
		pe.StatusCode = raw.StatusCode
		return "", pe
	}

	c.log.Info("bulk email submitted",
		"bulk_email_id", decoded.BulkEmailID,
		"emails", len(emails),
		"recipients", recipients,
	)
	return decoded.BulkEmailID, nil
}

// BulkSendStatus fetches the state of a bulk job.
func (c *Client) BulkSendStatus(ctx context.Context, bulkSendID string) (*BulkSendStatus, error) {
	if strings.TrimSpace(bulkSendID) == "" {
		return nil, newValidationError("bulk send id is empty")
	}

	raw, err := c.transport.GetRequest(ctx, bulkSendPath+"/"+url.PathEscape(bulkSendID))
	if err != nil {
		return nil, err
	}

	status, err := ParseBulkSendStatus(raw.Body)
	if err != nil {
		if pe, ok := err.(*Error); ok {
			pe.StatusCode = raw.StatusCode
		}
		return nil, err
	}

	c.log.Debug("bulk email status",
		"bulk_email_id", status.ID,
		"state", status.State,
		"messages", len(status.MessagesID),
	)
	return status, nil
}

func recipientList(rs []Recipient) string {
	emails := make([]string, len(rs))
	for i, r := range rs {
		emails[i] = r.Email
	}
	return strings.Join(emails, ", ")
}
