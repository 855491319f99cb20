package submission

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-configadmin/internal/metrics"
	"github.com/goliatone/go-configadmin/internal/notify"
	"github.com/goliatone/go-configadmin/pkg/configapi"
	"github.com/goliatone/go-configadmin/pkg/functional"
	"github.com/goliatone/go-configadmin/pkg/testsupport"
)

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, Submission{ID: "a", State: StateWaiting}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, "a")
	if err != nil || got.State != StateWaiting {
		t.Fatalf("get: %+v %v", got, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired entry, got %v", err)
	}
	if err := store.Save(ctx, Submission{ID: "b"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected expired entries pruned, have %d", store.Len())
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	client := &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
	store := NewRedisStore(client, "configadmin:submission:", 15*time.Minute)
	ctx := context.Background()

	sub := Submission{
		ID:      "abc",
		State:   StateFailed,
		Message: functional.ResultUpdateFailed,
		Changes: []functional.Change{{Key: "proximityTracing.ble.p0", CurrentValue: "-66", NewValue: "-60"}},
	}
	if err := store.Save(ctx, sub); err != nil {
		t.Fatalf("save: %v", err)
	}
	if client.ttls["configadmin:submission:abc"] != 15*time.Minute {
		t.Fatalf("expected ttl on key, got %v", client.ttls)
	}
	got, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(sub, got); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type stubUpdater struct {
	result string
	err    error
	token  string
}

func (s *stubUpdater) PutConfiguration(ctx context.Context, _ functional.FunctionalConfiguration) (string, error) {
	s.token = configapi.TokenFromContext(ctx)
	return s.result, s.err
}

type countingCounter struct {
	mu       sync.Mutex
	outcomes []string
}

func (c *countingCounter) CountSubmission(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, outcome)
}

type recordingPublisher struct {
	events []notify.UpdateEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event notify.UpdateEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestRunnerSuccess(t *testing.T) {
	updater := &stubUpdater{result: functional.ResultUpdated}
	counter := &countingCounter{}
	publisher := &recordingPublisher{}
	runner := NewRunner(NewMemoryStore(time.Minute), updater,
		WithResultDelay(0), WithCounter(counter), WithPublisher(publisher), WithProfile("dev"))
	runner.newID = func() string { return "sub-1" }

	ctx, cancel := context.WithCancel(configapi.WithToken(context.Background(), "operator-token"))
	changes := []functional.Change{{Key: "proximityTracing.ble.p0", CurrentValue: "-66", NewValue: "-60"}}
	sub, err := runner.Submit(ctx, Request{Changes: changes, Actor: "ada"})
	cancel()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.State != StateWaiting || sub.ID != "sub-1" {
		t.Fatalf("unexpected initial submission %+v", sub)
	}

	runner.Wait()
	got, err := runner.Get(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != StateSucceeded || got.Message != functional.ResultUpdated || got.CompletedAt.IsZero() {
		t.Fatalf("unexpected result %+v", got)
	}
	if updater.token != "operator-token" {
		t.Fatalf("background call must keep the operator token, got %q", updater.token)
	}
	if diff := cmp.Diff([]string{metrics.OutcomeSucceeded}, counter.outcomes); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if len(publisher.events) != 1 || publisher.events[0].Actor != "ada" || publisher.events[0].Profile != "dev" {
		t.Fatalf("unexpected events %+v", publisher.events)
	}
}

func TestRunnerFailure(t *testing.T) {
	cases := []struct {
		name    string
		updater *stubUpdater
		want    string
	}{
		{"refused by text", &stubUpdater{result: functional.ResultUpdateFailed}, functional.ResultUpdateFailed},
		{"api error body", &stubUpdater{err: &configapi.APIError{Op: configapi.OpPutConfiguration, Status: 500, Body: functional.ResultUpdateFailed}}, functional.ResultUpdateFailed},
		{"transport", &stubUpdater{err: errors.New("connection refused")}, functional.ResultUpdateFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			counter := &countingCounter{}
			publisher := &recordingPublisher{}
			runner := NewRunner(NewMemoryStore(time.Minute), tc.updater, WithCounter(counter), WithPublisher(publisher))
			sub, err := runner.Submit(context.Background(), Request{})
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			runner.Wait()
			got, _ := runner.Get(context.Background(), sub.ID)
			if got.State != StateFailed || got.Message != tc.want {
				t.Fatalf("unexpected result %+v", got)
			}
			if len(publisher.events) != 0 {
				t.Fatalf("failures must not publish events")
			}
			if diff := cmp.Diff([]string{metrics.OutcomeFailed}, counter.outcomes); diff != "" {
				t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunnerAgainstConfigAPI(t *testing.T) {
	api := testsupport.NewFakeConfigAPI(t, "dev", testsupport.SampleConfiguration())
	release := api.HoldPuts()
	client := configapi.New(configapi.WithBaseURL(api.URL()), configapi.WithProfile("dev"))
	runner := NewRunner(NewMemoryStore(time.Minute), client, WithResultDelay(time.Millisecond))

	next := testsupport.SampleConfiguration()
	next.ProximityTracing.Ble.P0 = functional.Int(-60)
	sub, err := runner.Submit(context.Background(), Request{Configuration: next})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waiting, _ := runner.Get(context.Background(), sub.ID)
	if waiting.Done() {
		t.Fatalf("submission must wait for the API")
	}

	release()
	runner.Wait()
	done, _ := runner.Get(context.Background(), sub.ID)
	if done.State != StateSucceeded {
		t.Fatalf("unexpected state %+v", done)
	}
	if got := api.Configuration().ProximityTracing.Ble.P0; got == nil || *got != -60 {
		t.Fatalf("configuration not stored by the API: %v", got)
	}
	if api.Count(http.MethodPut) != 1 {
		t.Fatalf("expected one PUT, got %d", api.Count(http.MethodPut))
	}
}

func TestFailureDetailsKeepFieldErrors(t *testing.T) {
	body := `{"message":"p0 rejected","errors":{"proximityTracing.ble.p0":["P0 is out of range"]}}`
	message, fields := failureDetails(&configapi.APIError{Op: configapi.OpPutConfiguration, Status: 400, Body: body})
	if message != "p0 rejected" {
		t.Fatalf("message = %q", message)
	}
	want := map[string][]string{"proximityTracing.ble.p0": {"P0 is out of range"}}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	message, fields = failureDetails(fmt.Errorf("%w: %w", &configapi.APIError{Op: configapi.OpPutConfiguration, Status: 401}, configapi.ErrUnauthorized))
	if fields != nil || message != functional.ResultUpdateFailed+": not authorized (status 401)" {
		t.Fatalf("unauthorized = %q %v", message, fields)
	}
}
