package mailersend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/mailersend-go/internal/pkg/logger"
)

// HTTPDoer is the interface for executing HTTP requests.
// *http.Client satisfies it; tests substitute their own.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RawResponse is a successful (2xx) response as read off the wire.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport executes authenticated requests against the API. It does not
// retry: every failure is returned to the caller as a *Error.
type Transport struct {
	baseURL    string
	token      string
	httpClient HTTPDoer
	log        *logger.Logger
}

// NewTransport creates a Transport. A nil httpClient gets a plain
// http.Client with the given timeout.
func NewTransport(baseURL, token string, httpClient HTTPDoer, timeout time.Duration, log *logger.Logger) *Transport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Transport{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
		log:        log,
	}
}

// PostRequest sends body as JSON to path.
func (t *Transport) PostRequest(ctx context.Context, path string, body []byte) (*RawResponse, error) {
	return t.do(ctx, http.MethodPost, path, body)
}

// GetRequest fetches path.
func (t *Transport) GetRequest(ctx context.Context, path string) (*RawResponse, error) {
	return t.do(ctx, http.MethodGet, path, nil)
}

func (t *Transport) do(ctx context.Context, method, path string, body []byte) (*RawResponse, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reqBody)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "creating request", Err: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.log.Warn("mailersend request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, &Error{Kind: KindTransport, Message: "executing request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, StatusCode: resp.StatusCode, Message: "reading response", Err: err}
	}

	t.log.Debug("mailersend request",
		"method", method,
		"path", path,
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := errorFromResponse(resp.StatusCode, respBody)
		t.log.Warn("mailersend API error",
			"path", path,
			"request_id", requestID,
			"status", resp.StatusCode,
			"message", apiErr.Message,
		)
		return nil, apiErr
	}

	if apiErr := validationFromBody(resp.StatusCode, respBody); apiErr != nil {
		return nil, apiErr
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

func (t *Transport) String() string {
	return fmt.Sprintf("Transport(%s, token=%s)", t.baseURL, logger.RedactToken(t.token))
}
