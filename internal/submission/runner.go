package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-configadmin/internal/metrics"
	"github.com/goliatone/go-configadmin/internal/notify"
	"github.com/goliatone/go-configadmin/pkg/configapi"
	"github.com/goliatone/go-configadmin/pkg/functional"
	"github.com/goliatone/go-configadmin/pkg/render"
)

// Updater sends a configuration to the API.
type Updater interface {
	PutConfiguration(ctx context.Context, cfg functional.FunctionalConfiguration) (string, error)
}

// Counter receives one outcome per finished submission.
type Counter interface {
	CountSubmission(outcome string)
}

type RunnerOption func(*Runner)

// WithResultDelay holds a successful result back for d before it is shown.
func WithResultDelay(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d >= 0 {
			r.delay = d
		}
	}
}

// WithTimeout bounds the background PUT.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithPublisher(publisher notify.Publisher) RunnerOption {
	return func(r *Runner) {
		if publisher != nil {
			r.publisher = publisher
		}
	}
}

func WithCounter(counter Counter) RunnerOption {
	return func(r *Runner) {
		if counter != nil {
			r.counter = counter
		}
	}
}

func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProfile names the profile reported in events.
func WithProfile(profile string) RunnerOption {
	return func(r *Runner) {
		r.profile = profile
	}
}

// Request is a validated update.
type Request struct {
	Configuration functional.FunctionalConfiguration
	Changes       []functional.Change
	Values        map[string]any
	Actor         string
}

// Runner starts submissions and records their outcome in a Store.
type Runner struct {
	store     Store
	api       Updater
	publisher notify.Publisher
	counter   Counter
	logger    *zap.Logger
	profile   string
	delay     time.Duration
	timeout   time.Duration
	now       func() time.Time
	newID     func() string
	wg        sync.WaitGroup
}

func NewRunner(store Store, api Updater, options ...RunnerOption) *Runner {
	r := &Runner{
		store:     store,
		api:       api,
		publisher: notify.Nop{},
		counter:   nopCounter{},
		logger:    zap.NewNop(),
		delay:     2 * time.Second,
		timeout:   30 * time.Second,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Submit stores a waiting submission and sends the PUT in the background.
// The background call keeps the values of ctx (the operator's token) but not
// its cancellation.
func (r *Runner) Submit(ctx context.Context, req Request) (Submission, error) {
	sub := Submission{
		ID:        r.newID(),
		Profile:   r.profile,
		Actor:     req.Actor,
		State:     StateWaiting,
		Changes:   req.Changes,
		Values:    req.Values,
		CreatedAt: r.now().UTC(),
	}
	if err := r.store.Save(ctx, sub); err != nil {
		return Submission{}, err
	}

	r.wg.Add(1)
	go r.run(context.WithoutCancel(ctx), sub, req.Configuration)
	return sub, nil
}

// Get returns the stored submission.
func (r *Runner) Get(ctx context.Context, id string) (Submission, error) {
	return r.store.Get(ctx, id)
}

// Wait blocks until every background submission finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, sub Submission, cfg functional.FunctionalConfiguration) {
	defer r.wg.Done()
	logger := r.logger.With(zap.String("submission", sub.ID), zap.String("profile", sub.Profile))

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	result, err := r.api.PutConfiguration(callCtx, cfg)
	cancel()

	switch {
	case err != nil:
		sub.State = StateFailed
		sub.Message, sub.Errors = failureDetails(err)
		logger.Warn("configuration update failed", zap.Error(err))
	case result == functional.ResultUpdateFailed:
		sub.State = StateFailed
		sub.Message = result
		logger.Warn("configuration update refused", zap.String("result", result))
	default:
		time.Sleep(r.delay)
		sub.State = StateSucceeded
		sub.Message = result
		logger.Info("configuration updated", zap.String("result", result), zap.Int("changes", len(sub.Changes)))
	}
	sub.CompletedAt = r.now().UTC()

	saveCtx, cancelSave := context.WithTimeout(ctx, 5*time.Second)
	defer cancelSave()
	if err := r.store.Save(saveCtx, sub); err != nil {
		logger.Error("store submission result", zap.Error(err))
	}

	if sub.State == StateFailed {
		r.counter.CountSubmission(metrics.OutcomeFailed)
		return
	}
	r.counter.CountSubmission(metrics.OutcomeSucceeded)
	event := notify.UpdateEvent{
		SubmissionID: sub.ID,
		Profile:      sub.Profile,
		Actor:        sub.Actor,
		Message:      sub.Message,
		Changes:      sub.Changes,
		At:           sub.CompletedAt,
	}
	if err := r.publisher.Publish(saveCtx, event); err != nil {
		logger.Warn("publish update event", zap.Error(err))
	}
}

// failureDetails prefers the API's own text ("Configuration update failed")
// and keeps the field errors of a structured error body.
func failureDetails(err error) (string, map[string][]string) {
	var apiErr *configapi.APIError
	if !errors.As(err, &apiErr) {
		return functional.ResultUpdateFailed, nil
	}
	if errors.Is(err, configapi.ErrUnauthorized) {
		return fmt.Sprintf("%s: not authorized (status %d)", functional.ResultUpdateFailed, apiErr.Status), nil
	}
	payload := render.DecodeErrorPayload([]byte(apiErr.Body))
	message := functional.ResultUpdateFailed
	if texts := payload[""]; len(texts) > 0 && texts[0] != "" && len(texts[0]) < 200 {
		message = texts[0]
	}
	delete(payload, "")
	if len(payload) == 0 {
		payload = nil
	}
	return message, payload
}

type nopCounter struct{}

func (nopCounter) CountSubmission(string) {}
