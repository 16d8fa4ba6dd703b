package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances instantly on Sleep so polling loops run without delay.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps++
	c.mu.Unlock()
	return nil
}

type providerScript struct {
	mu         sync.Mutex
	statuses   []string
	polls      int
	output     any
	jobError   any
	version    string
	auth       string
	pollStatus int
}

func (p *providerScript) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/predictions", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.auth = r.Header.Get("Authorization")

		var body struct {
			Version string         `json:"version"`
			Input   map[string]any `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		p.version = body.Version

		writeJSON(w, map[string]any{"id": "pred-1", "status": "starting"})
	})
	mux.HandleFunc("GET /v1/predictions/{id}", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.pollStatus != 0 {
			p.polls++
			http.Error(w, "upstream unavailable", p.pollStatus)
			return
		}

		status := p.statuses[len(p.statuses)-1]
		if p.polls < len(p.statuses) {
			status = p.statuses[p.polls]
		}
		p.polls++

		resp := map[string]any{"id": r.PathValue("id"), "status": status}
		if status == "succeeded" {
			resp["output"] = p.output
		}
		if p.jobError != nil {
			resp["error"] = p.jobError
		}
		writeJSON(w, resp)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, script *providerScript, clock Clock) *Client {
	t.Helper()
	srv := httptest.NewServer(script.handler(t))
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{
		BaseURL:      srv.URL,
		APIToken:     "token-123",
		HTTPClient:   srv.Client(),
		PollInterval: 2 * time.Second,
		PollTimeout:  60 * time.Second,
		Clock:        clock,
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(Options{})
	require.Error(t, err)
}

func TestRunSucceedsAfterPolling(t *testing.T) {
	script := &providerScript{
		statuses: []string{"starting", "processing", "succeeded"},
		output:   []any{"https://cdn.example.com/result.png"},
	}
	client := newTestClient(t, script, newFakeClock())

	result, err := client.Run(context.Background(),
		"flux/change-haircut:abc123", map[string]any{"input_image": "https://x/y.png"})
	require.NoError(t, err)

	assert.Equal(t, "pred-1", result.ID)
	assert.Equal(t, StateSucceeded, result.State)
	assert.Equal(t, []any{"https://cdn.example.com/result.png"}, result.Output)
	assert.Equal(t, "abc123", script.version, "only the version hash goes on the wire")
	assert.Equal(t, "Token token-123", script.auth)
}

func TestRunReportsProviderFailure(t *testing.T) {
	script := &providerScript{
		statuses: []string{"processing", "failed"},
		jobError: "NSFW content detected",
	}
	client := newTestClient(t, script, newFakeClock())

	result, err := client.Run(context.Background(), "m:v", nil)
	require.Error(t, err)
	assert.Equal(t, StateFailed, result.State)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateFailed, runErr.State)
	assert.Equal(t, "NSFW content detected", runErr.Detail)
}

func TestRunReportsCancellation(t *testing.T) {
	script := &providerScript{statuses: []string{"canceled"}}
	client := newTestClient(t, script, newFakeClock())

	result, err := client.Run(context.Background(), "m:v", nil)
	require.Error(t, err)
	assert.Equal(t, StateCanceled, result.State)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateCanceled, runErr.State)
}

func TestRunTimesOutAtCeiling(t *testing.T) {
	script := &providerScript{statuses: []string{"processing"}}
	clock := newFakeClock()
	client := newTestClient(t, script, clock)

	start := clock.Now()
	result, err := client.Run(context.Background(), "m:v", nil)

	require.ErrorIs(t, err, ErrTimedOut)
	require.NotNil(t, result)
	assert.Equal(t, StateTimedOut, result.State)

	// The loop gives up no earlier than the ceiling and no later than one
	// extra interval past it.
	elapsed := clock.Now().Sub(start)
	assert.GreaterOrEqual(t, elapsed, 60*time.Second)
	assert.Less(t, elapsed, 62*time.Second)
}

func TestRunSurfacesPollFailure(t *testing.T) {
	script := &providerScript{pollStatus: http.StatusInternalServerError}
	client := newTestClient(t, script, newFakeClock())

	result, err := client.Run(context.Background(), "m:v", nil)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "poll prediction pred-1")
	assert.Equal(t, 1, script.polls, "first failed status check aborts the run")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	script := &providerScript{statuses: []string{"processing"}}
	client := newTestClient(t, script, newFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Run(ctx, "m:v", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunTreatsUnknownStatusAsInFlight(t *testing.T) {
	script := &providerScript{
		statuses: []string{"warming_up", "processing", "succeeded"},
		output:   "https://cdn.example.com/one.png",
	}
	client := newTestClient(t, script, newFakeClock())

	result, err := client.Run(context.Background(), "m:v", nil)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, result.State)
	assert.Equal(t, 3, script.polls)
}

func TestStateTransitions(t *testing.T) {
	cases := []struct {
		status   string
		want     State
		terminal bool
	}{
		{"starting", StatePolling, false},
		{"processing", StatePolling, false},
		{"succeeded", StateSucceeded, true},
		{"failed", StateFailed, true},
		{"canceled", StateCanceled, true},
		{"somenewstatus", StatePolling, false},
		{"", StatePolling, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("status=%q", tc.status), func(t *testing.T) {
			state := FromProviderStatus(tc.status)
			assert.Equal(t, tc.want, state)
			assert.Equal(t, tc.terminal, state.Terminal())
		})
	}
	assert.True(t, StateTimedOut.Terminal())
}

func TestStringifyDetail(t *testing.T) {
	assert.Equal(t, "", StringifyDetail(nil))
	assert.Equal(t, "boom", StringifyDetail("boom"))
	assert.JSONEq(t, `{"code":42}`, StringifyDetail(map[string]any{"code": 42}))
}

func TestVersionOf(t *testing.T) {
	assert.Equal(t, "hash", versionOf("owner/name:hash"))
	assert.Equal(t, "bare-version", versionOf("bare-version"))
	assert.Equal(t, "v2", versionOf("weird:name:v2"))
}

func TestRunErrorMessage(t *testing.T) {
	assert.Equal(t, "prediction failed: bad input",
		(&RunError{State: StateFailed, Detail: "bad input"}).Error())
	assert.Equal(t, "prediction canceled",
		(&RunError{State: StateCanceled}).Error())
}
