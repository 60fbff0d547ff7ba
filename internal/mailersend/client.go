package mailersend

import (
	"sync"

	"github.com/ignite/mailersend-go/internal/config"
	"github.com/ignite/mailersend-go/internal/pkg/logger"
)

// Client is a MailerSend email API client. Token and base URL are fixed at
// construction; each Client is independent of every other.
type Client struct {
	transport *Transport
	log       *logger.Logger

	mu          sync.RWMutex
	defaultFrom *Recipient
}

// Option customizes a Client at construction time.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient HTTPDoer
	log        *logger.Logger
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(o *clientOptions) { o.httpClient = doer }
}

// WithLogger sets the logger used for request and send events.
func WithLogger(l *logger.Logger) Option {
	return func(o *clientOptions) { o.log = l }
}

// NewClient creates a new MailerSend API client
func NewClient(cfg config.MailerSendConfig, opts ...Option) *Client {
	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}

	c := &Client{
		transport: NewTransport(cfg.BaseURL, cfg.APIToken, o.httpClient, cfg.Timeout(), o.log),
		log:       o.log,
	}
	if cfg.DefaultFrom.Email != "" {
		c.defaultFrom = &Recipient{Email: cfg.DefaultFrom.Email, Name: cfg.DefaultFrom.Name}
	}
	return c
}

// SetDefaultFrom sets the sender used by emails created afterwards.
func (c *Client) SetDefaultFrom(from Recipient) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultFrom = &from
}

// DefaultFrom returns the configured default sender, if any.
func (c *Client) DefaultFrom() (Recipient, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.defaultFrom == nil {
		return Recipient{}, false
	}
	return *c.defaultFrom, true
}

// CreateEmail returns a new Email from the default sender.
func (c *Client) CreateEmail() *Email {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return NewEmail(c.defaultFrom)
}
