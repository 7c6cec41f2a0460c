package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"reviewhooks/internal"
	"reviewhooks/pkg/review"
	"reviewhooks/pkg/scm"

	"github.com/sirupsen/logrus"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusIgnored = "ignored"
)

// Reviewer turns a diff into review feedback.
type Reviewer interface {
	Review(ctx context.Context, diffText string) (string, error)
}

// Verifier authenticates a delivery before it is identified.
type Verifier struct {
	Check     func(header http.Header, body []byte) bool
	Rejection string
}

// Route binds an adapter to the verification its deliveries must pass.
type Route struct {
	Adapter scm.Adapter
	// Verify is nil for providers whose deliveries are not verified.
	Verify *Verifier
}

// Response is the JSON body returned to the webhook sender.
type Response struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	// Feedback is set on success only, and is emitted even when empty.
	Feedback *string `json:"ai_feedback,omitempty"`
}

// Outcome is the HTTP status and body of a dispatched delivery.
type Outcome struct {
	Code int
	Body Response
}

// Dispatcher handles POST /webhook: it selects a route by header, verifies,
// identifies, fetches the diff, requests a review and posts it back.
type Dispatcher struct {
	routes      []Route
	reviewer    Reviewer
	filter      *internal.ReviewFilter
	logger      *logrus.Entry
	maxBody     int64
	debugEvents bool
}

// Option is a function that configures a Dispatcher.
type Option func(*Dispatcher)

// WithRoute appends a provider route. Routes are matched in the order added.
func WithRoute(route Route) Option {
	return func(d *Dispatcher) {
		if route.Adapter != nil {
			d.routes = append(d.routes, route)
		}
	}
}

// WithFilter sets the skip rules consulted after identification.
func WithFilter(filter *internal.ReviewFilter) Option {
	return func(d *Dispatcher) {
		d.filter = filter
	}
}

// WithMaxBody caps the request body size.
func WithMaxBody(n int64) Option {
	return func(d *Dispatcher) {
		d.maxBody = n
	}
}

// WithDebugEvents logs every received payload.
func WithDebugEvents(enabled bool) Option {
	return func(d *Dispatcher) {
		d.debugEvents = enabled
	}
}

// WithLogger sets the logger for the dispatcher.
func WithLogger(l *logrus.Entry) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a Dispatcher that sends diffs to reviewer.
func NewDispatcher(reviewer Reviewer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		reviewer: reviewer,
		logger:   internal.NewLogger("webhook"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ServeHTTP handles an incoming HTTP request.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	w.Header().Set(requestIDHeader, reqID)
	logger := internal.WithRequestID(d.logger, reqID)

	if r.Method != http.MethodPost {
		d.respond(w, failed(http.StatusMethodNotAllowed, "Method not allowed"))
		return
	}
	if d.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, d.maxBody)
	}
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		logger.WithError(err).Warn("read body failed")
		d.respond(w, failed(http.StatusBadRequest, "Failed to read request body"))
		return
	}

	d.respond(w, d.Dispatch(r.Context(), r.Header, rawBody, logger))
}

func (d *Dispatcher) respond(w http.ResponseWriter, outcome Outcome) {
	internal.IncOutcome(outcome.Body.Status)
	writeJSON(w, outcome.Code, outcome.Body)
}

// Dispatch runs one delivery through the review pipeline.
func (d *Dispatcher) Dispatch(ctx context.Context, header http.Header, body []byte, logger *logrus.Entry) Outcome {
	if logger == nil {
		logger = d.logger
	}
	route, ok := d.match(header)
	if !ok {
		internal.IncRequest("unknown")
		logger.Info("ignoring delivery from unknown source")
		return ignored("Unknown webhook source")
	}
	adapter := route.Adapter
	provider := adapter.Provider()
	eventName := header.Get(adapter.EventHeader())
	internal.IncRequest(provider)
	logger = logger.WithFields(logrus.Fields{"provider": provider, "event": eventName})

	if d.debugEvents {
		logDebugEvent(logger, provider, eventName, body)
	}

	if route.Verify != nil && !route.Verify.Check(header, body) {
		internal.IncFailure("signature")
		logger.Warn("delivery rejected: verification failed")
		return failed(http.StatusForbidden, route.Verify.Rejection)
	}

	target, ok := adapter.Identify(header, body)
	if !ok {
		logger.Info("event not handled")
		return ignored("Event not handled")
	}
	logger = logger.WithField("target", target.String())

	if rule, skip := d.filter.Skip(body, logger); skip {
		logger.Infof("review skipped by rule %s", rule)
		return ignored("Skipped by rule " + rule)
	}

	diff, err := adapter.FetchDiff(ctx, target)
	if err != nil {
		internal.IncFailure("fetch")
		logger.WithError(err).Error("diff fetch failed")
		return failed(http.StatusInternalServerError, "Failed to fetch diff")
	}

	feedback, err := d.reviewer.Review(ctx, diff)
	if err != nil {
		internal.IncFailure("review")
		var statusErr *review.StatusError
		switch {
		case errors.Is(err, review.ErrMissingAPIKey):
			logger.WithError(err).Error("review client is not configured")
		case errors.As(err, &statusErr):
			logger.WithError(err).WithField("status_code", statusErr.StatusCode).Error("review endpoint rejected the diff")
		default:
			logger.WithError(err).Error("review failed")
		}
		return failed(http.StatusInternalServerError, "Failed to generate review")
	}

	if err := adapter.PostFeedback(ctx, target, feedback); err != nil {
		internal.IncFailure("post")
		logger.WithError(err).Error("feedback post failed")
		return failed(http.StatusInternalServerError, "Failed to post review")
	}

	logger.Infof("review posted for %s (action=%s)", target, target.Action)
	return Outcome{Code: http.StatusOK, Body: Response{Status: StatusSuccess, Feedback: &feedback}}
}

func (d *Dispatcher) match(header http.Header) (Route, bool) {
	for _, route := range d.routes {
		if len(header.Values(route.Adapter.EventHeader())) > 0 {
			return route, true
		}
	}
	return Route{}, false
}

func ignored(message string) Outcome {
	return Outcome{Code: http.StatusOK, Body: Response{Status: StatusIgnored, Message: message}}
}

func failed(code int, message string) Outcome {
	return Outcome{Code: code, Body: Response{Status: StatusError, Message: message}}
}
