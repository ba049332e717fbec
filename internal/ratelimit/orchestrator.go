package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Request is the framework-neutral view of an incoming request.
type Request interface {
	Method() string
	URL() string
	IP() string
	Header(name string) string
}

// ResponseSink receives the rate limit headers of a request.
type ResponseSink interface {
	SetHeader(name, value string)
}

// KeyFunc derives the identifier key of a request. The response is available
// for keys that depend on state set by earlier middleware.
type KeyFunc func(req Request, res ResponseSink) string

// QuotaFunc resolves the quota that applies to a request.
type QuotaFunc func(req Request) Quota

// RequestLogger records the outcome of every limited request.
type RequestLogger interface {
	Log(at time.Time, ip, url string, success bool) error
}

// Recorder counts decisions by outcome.
type Recorder interface {
	Observe(outcome string)
}

// Decision outcomes reported to the Recorder.
const (
	OutcomeAdmitted    = "admitted"
	OutcomeRejected    = "rejected"
	OutcomeSkipped     = "skipped"
	OutcomeCompensated = "compensated"
)

// DefaultStatusCode is the status of rejected requests.
const DefaultStatusCode = http.StatusTooManyRequests

// Options configures an Orchestrator. Zero values select the defaults.
type Options struct {
	// KeyFn overrides the default client IP key.
	KeyFn KeyFunc
	// Skip lists identifier keys that are never limited.
	Skip []string
	// SkipFailedRequests takes back the count of requests answered with status >= 400.
	SkipFailedRequests bool
	// Message replaces the default rejection text.
	Message string
	// StatusCode of rejections, 429 by default.
	StatusCode int
	// Dialect of the quota headers, legacy by default.
	Dialect Dialect
	// QuotaFn resolves the per-request quota, DefaultQuota by default.
	QuotaFn QuotaFunc
	// Clock defaults to time.Now.
	Clock Clock

	// RequestLog, Metrics and Publish are optional observers.
	RequestLog RequestLogger
	Metrics    Recorder
	Publish    func(event *Event) error
}

// RejectionBody is the JSON body of a rejected request.
type RejectionBody struct {
	Error string `json:"error"`
}

// Rejection is the response an adapter writes for a rejected request.
type Rejection struct {
	Status int
	Body   RejectionBody
}

// Outcome describes how a request was handled.
type Outcome struct {
	Key       string
	Quota     Quota
	Skipped   bool
	Decision  Decision
	Rejection *Rejection

	request Request
}

// Rejected reports whether the request must be answered with Rejection.
func (o *Outcome) Rejected() bool {
	return o.Rejection != nil
}

// Orchestrator runs the per-request flow: quota and key resolution, header
// emission, the admission decision and compensation of failed requests.
type Orchestrator struct {
	limiter *FixedWindowLimiter
	opts    Options
	skip    map[string]struct{}
	logger  *zap.Logger
}

// NewOrchestrator creates a new Orchestrator for store.
func NewOrchestrator(store Store, opts Options, logger *zap.Logger) (*Orchestrator, error) {
	if store == nil {
		return nil, NewConfigError("store", ErrMissingStoreHandle)
	}

	dialect, err := ParseDialect(string(opts.Dialect))
	if err != nil {
		return nil, NewConfigError("headersDialect", err)
	}

	opts.Dialect = dialect

	if opts.StatusCode == 0 {
		opts.StatusCode = DefaultStatusCode
	}

	if opts.KeyFn == nil {
		opts.KeyFn = IPKey
	}

	if opts.QuotaFn == nil {
		opts.QuotaFn = func(Request) Quota { return DefaultQuota() }
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	skip := make(map[string]struct{}, len(opts.Skip))
	for _, key := range opts.Skip {
		skip[key] = struct{}{}
	}

	opts.Skip = slices.Clone(opts.Skip)

	return &Orchestrator{
		limiter: NewFixedWindowLimiter(store),
		opts:    opts,
		skip:    skip,
		logger:  logger,
	}, nil
}

// Process decides whether req is admitted. Headers are written to res for
// every request that is not skipped. A rejected Outcome carries the response
// the adapter must write; an admitted one must be passed to Complete once
// the response status is known.
func (o *Orchestrator) Process(ctx context.Context, req Request, res ResponseSink) (*Outcome, error) {
	if res == nil {
		return nil, ErrUnsupportedResponse
	}

	quota := o.opts.QuotaFn(req)
	if err := quota.Validate(); err != nil {
		return nil, fmt.Errorf("resolve quota for %s: %w", req.URL(), err)
	}

	outcome := &Outcome{
		Key:     o.opts.KeyFn(req, res),
		Quota:   quota,
		request: req,
	}

	if _, ok := o.skip[outcome.Key]; ok {
		outcome.Skipped = true
		o.observe(OutcomeSkipped)
		o.logger.Debug("rate limiting skipped", zap.String("key", outcome.Key))

		return outcome, nil
	}

	now := o.opts.Clock()
	nowMs := now.UnixMilli()

	prior, err := o.lookup(ctx, outcome.Key)
	if err != nil {
		return nil, err
	}

	o.writeHeaders(res, quota, nowMs, prior)

	decision, err := o.limiter.Evaluate(ctx, quota, nowMs, outcome.Key, prior)
	if err != nil {
		return nil, err
	}

	outcome.Decision = decision

	if decision.Allowed {
		o.observe(OutcomeAdmitted)

		return outcome, nil
	}

	o.reject(res, outcome, now)

	return outcome, nil
}

// Complete finishes an admitted request whose response has the given status.
// With SkipFailedRequests enabled, a status >= 400 takes back the request's
// count. Nothing is compensated when ctx is already done, i.e. the client
// went away before the response completed.
func (o *Orchestrator) Complete(ctx context.Context, outcome *Outcome, status int) error {
	if outcome == nil || outcome.Skipped || outcome.Rejected() {
		return nil
	}

	failed := status >= http.StatusBadRequest
	o.logRequest(outcome.request, o.opts.Clock(), !failed)

	if !o.opts.SkipFailedRequests || !failed {
		return nil
	}

	if ctx.Err() != nil {
		o.logger.Debug("request aborted, not compensating", zap.String("key", outcome.Key))

		return nil
	}

	if err := o.limiter.Compensate(ctx, outcome.Key); err != nil {
		return err
	}

	o.observe(OutcomeCompensated)
	o.logger.Debug("failed request compensated",
		zap.String("key", outcome.Key),
		zap.Int("status", status),
	)
	o.publish(outcome, EventCompensated, status)

	return nil
}

func (o *Orchestrator) lookup(ctx context.Context, key string) (*Record, error) {
	record, err := o.limiter.Store().Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read record for %q: %w", key, err)
	}

	return &record, nil
}

// writeHeaders renders the state as it stands with this request counted,
// computed from the snapshot read before the decision.
func (o *Orchestrator) writeHeaders(res ResponseSink, quota Quota, now int64, prior *Record) {
	state := HeaderState{
		Limit:       quota.Max,
		Requests:    1,
		Expires:     now + quota.Window*1000,
		Window:      quota.Window,
		RequestTime: now,
	}

	if prior != nil {
		state.Requests = prior.Requests + 1
		state.Expires = prior.Expires
	}

	for _, h := range BuildHeaders(o.opts.Dialect, state) {
		res.SetHeader(h.Name, h.Value)
	}
}

func (o *Orchestrator) reject(res ResponseSink, outcome *Outcome, now time.Time) {
	retryAfter := outcome.Decision.RetryAfter

	if o.opts.Dialect == DialectLegacy {
		res.SetHeader(HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))
	}

	msg := o.opts.Message
	if msg == "" {
		msg = fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retryAfter)
	}

	outcome.Rejection = &Rejection{
		Status: o.opts.StatusCode,
		Body:   RejectionBody{Error: msg},
	}

	o.observe(OutcomeRejected)
	o.logger.Warn("rate limit exceeded",
		zap.String("key", outcome.Key),
		zap.String("method", outcome.request.Method()),
		zap.String("url", outcome.request.URL()),
		zap.Int64("count", outcome.Decision.Record.Requests),
		zap.Int64("max", outcome.Quota.Max),
		zap.Int64("window", outcome.Quota.Window),
		zap.Int64("retry_after", retryAfter),
	)
	o.logRequest(outcome.request, now, false)
	o.publish(outcome, EventRejected, o.opts.StatusCode)
}

func (o *Orchestrator) logRequest(req Request, at time.Time, success bool) {
	if o.opts.RequestLog == nil {
		return
	}

	if err := o.opts.RequestLog.Log(at, req.IP(), req.URL(), success); err != nil {
		o.logger.Error("failed to write request log", zap.Error(err))
	}
}

func (o *Orchestrator) observe(outcome string) {
	if o.opts.Metrics != nil {
		o.opts.Metrics.Observe(outcome)
	}
}

func (o *Orchestrator) publish(outcome *Outcome, kind EventKind, status int) {
	if o.opts.Publish == nil {
		return
	}

	event := NewEvent(kind, outcome, status, o.opts.Clock())
	if err := o.opts.Publish(event); err != nil {
		o.logger.Error("failed to publish rate limit event",
			zap.String("kind", string(kind)),
			zap.String("key", outcome.Key),
			zap.Error(err),
		)
	}
}
