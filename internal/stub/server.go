// Package stub serves a local imitation of the MailerSend email API.
//
// Accepted emails are never delivered. Bulk jobs live in memory and
// complete once their processing delay has elapsed, which lets the client
// and CLI be exercised end to end without a provider account.
package stub

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/ignite/mailersend-go/internal/pkg/httputil"
	"github.com/ignite/mailersend-go/internal/pkg/logger"
)

// TimestampLayout is how the provider renders created_at and updated_at.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Options configure a Server.
type Options struct {
	// Token, when set, must be presented as a Bearer token.
	Token string
	// ProcessingDelay is how long a bulk job stays queued.
	ProcessingDelay time.Duration
	// Suppressed addresses are accepted but never sent to.
	Suppressed []string
	Logger     *logger.Logger
}

// Server is the stub API.
type Server struct {
	opts   Options
	log    *logger.Logger
	router *chi.Mux
	now    func() time.Time

	mu         sync.Mutex
	jobs       map[string]*bulkJob
	suppressed map[string]bool
}

type bulkJob struct {
	id                   string
	createdAt            time.Time
	completedAt          time.Time
	total                int
	suppressedCount      int
	invalidCount         int
	validationErrors     map[string][]string
	suppressedRecipients map[string][]string
	messageIDs           []string
}

// NewServer creates a stub with its routes registered.
func NewServer(opts Options) *Server {
	s := &Server{
		opts:       opts,
		log:        opts.Logger,
		now:        time.Now,
		jobs:       make(map[string]*bulkJob),
		suppressed: make(map[string]bool),
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	for _, addr := range opts.Suppressed {
		s.suppressed[normalize(addr)] = true
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Server-Identity", "mailersend-stub")
			next.ServeHTTP(w, req)
		})
	})

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Message-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		httputil.OK(w, map[string]string{"status": "healthy", "service": "mailersend-stub"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/email", s.handleSend)
		r.Post("/bulk-email", s.handleBulkSend)
		r.Get("/bulk-email/{id}", s.handleBulkStatus)
	})

	return r
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.opts.Token {
			s.log.Warn("stub rejected request", "path", r.URL.Path, "reason", "bad token")
			httputil.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// emailRequest holds the parts of a submitted email the stub validates.
type emailRequest struct {
	From *struct {
		Email string `json:"email"`
	} `json:"from"`
	To []struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"to"`
	Subject    string `json:"subject"`
	HTML       string `json:"html"`
	Text       string `json:"text"`
	TemplateID string `json:"template_id"`
}

func (req *emailRequest) validate(prefix string) map[string][]string {
	fields := map[string][]string{}
	add := func(field, msg string) {
		fields[prefix+field] = append(fields[prefix+field], msg)
	}
	if req.From == nil || strings.TrimSpace(req.From.Email) == "" {
		add("from.email", "The from.email field is required.")
	}
	if len(req.To) == 0 {
		add("to", "The to field is required.")
	}
	for i, to := range req.To {
		if !strings.Contains(to.Email, "@") {
			add("to."+strconv.Itoa(i)+".email", "The to."+strconv.Itoa(i)+".email must be a valid email address.")
		}
	}
	if req.TemplateID == "" {
		if req.Subject == "" {
			add("subject", "The subject field is required when template id is not present.")
		}
		if req.HTML == "" && req.Text == "" {
			add("text", "The text field is required when template id is not present.")
		}
	}
	return fields
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if fields := req.validate(""); len(fields) > 0 {
		httputil.ValidationError(w, firstMessage(fields), fields)
		return
	}

	var suppressed []warningRecipient
	for _, to := range req.To {
		if s.isSuppressed(to.Email) {
			suppressed = append(suppressed, warningRecipient{
				Email:   to.Email,
				Name:    to.Name,
				Reasons: []string{"unsubscribed"},
			})
		}
	}

	messageID := newID()
	w.Header().Set("X-Message-Id", messageID)
	s.log.Info("stub accepted email", "message_id", messageID, "recipients", len(req.To))

	if len(suppressed) == 0 {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	warningType := "SOME_SUPPRESSED"
	if len(suppressed) == len(req.To) {
		warningType = "ALL_SUPPRESSED"
	}
	httputil.Accepted(w, sendWarningResponse{
		Message: "There are some warnings for your request.",
		Warnings: []sendWarning{{
			Type:       warningType,
			Warning:    "Some of the recipients have been suppressed.",
			Recipients: suppressed,
		}},
	})
}

func (s *Server) handleBulkSend(w http.ResponseWriter, r *http.Request) {
	var reqs []emailRequest
	if !httputil.Decode(w, r, &reqs) {
		return
	}
	if len(reqs) == 0 {
		httputil.ValidationError(w, "The given data was invalid.", map[string][]string{
			"messages": {"At least one message is required."},
		})
		return
	}

	now := s.clock()
	job := &bulkJob{
		id:          newID(),
		createdAt:   now,
		completedAt: now.Add(s.opts.ProcessingDelay),
	}
	for i, req := range reqs {
		if fields := req.validate("message." + strconv.Itoa(i) + "."); len(fields) > 0 {
			job.invalidCount++
			if job.validationErrors == nil {
				job.validationErrors = map[string][]string{}
			}
			for k, v := range fields {
				job.validationErrors[k] = v
			}
			continue
		}
		job.total += len(req.To)
		for _, to := range req.To {
			if s.isSuppressed(to.Email) {
				job.suppressedCount++
				if job.suppressedRecipients == nil {
					job.suppressedRecipients = map[string][]string{}
				}
				job.suppressedRecipients[to.Email] = []string{"unsubscribed"}
			}
		}
		job.messageIDs = append(job.messageIDs, newID())
	}

	s.mu.Lock()
	s.jobs[job.id] = job
	s.mu.Unlock()

	s.log.Info("stub queued bulk job", "bulk_email_id", job.id, "messages", len(reqs))
	httputil.Accepted(w, map[string]string{
		"message":       "The bulk email is being processed.",
		"bulk_email_id": job.id,
	})
}

func (s *Server) handleBulkStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	now := s.clock()
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		httputil.NotFound(w, "The requested resource could not be found.")
		return
	}

	httputil.OK(w, map[string]interface{}{"data": job.status(now)})
}

// status renders the job as the provider does. Optional fields are sent as
// null rather than omitted, and messages_id stays null until completion.
func (j *bulkJob) status(now time.Time) map[string]interface{} {
	state := "queued"
	updatedAt := j.createdAt
	var messageIDs interface{}
	if !now.Before(j.completedAt) {
		state = "completed"
		updatedAt = j.completedAt
		messageIDs = j.messageIDs
		if j.messageIDs == nil {
			messageIDs = []string{}
		}
	}

	var validationErrors, suppressed interface{}
	if j.validationErrors != nil {
		validationErrors = j.validationErrors
	}
	if j.suppressedRecipients != nil {
		suppressed = j.suppressedRecipients
	}

	return map[string]interface{}{
		"id":                          j.id,
		"state":                       state,
		"total_recipients_count":      j.total,
		"suppressed_recipients_count": j.suppressedCount,
		"suppressed_recipients":       suppressed,
		"validation_errors_count":     j.invalidCount,
		"validation_errors":           validationErrors,
		"messages_id":                 messageIDs,
		"created_at":                  j.createdAt.Format(TimestampLayout),
		"updated_at":                  updatedAt.Format(TimestampLayout),
	}
}

func (s *Server) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().UTC()
}

func (s *Server) setClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Server) isSuppressed(addr string) bool {
	return s.suppressed[normalize(addr)]
}

type sendWarningResponse struct {
	Message  string        `json:"message"`
	Warnings []sendWarning `json:"warnings"`
}

type sendWarning struct {
	Type       string             `json:"type"`
	Warning    string             `json:"warning"`
	Recipients []warningRecipient `json:"recipients"`
}

type warningRecipient struct {
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Reasons []string `json:"reasons"`
}

// newID returns a 24 character hex id like the provider's object ids.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

func normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func firstMessage(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msg := fields[keys[0]][0]
	if len(keys) > 1 {
		msg += " (and " + strconv.Itoa(len(keys)-1) + " more error"
		if len(keys) > 2 {
			msg += "s"
		}
		msg += ")"
	}
	return msg
}
