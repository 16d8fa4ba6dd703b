package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrTimedOut is returned when a job does not reach a terminal state within
// the configured polling ceiling.
var ErrTimedOut = errors.New("prediction timed out")

// RunError carries the provider's terminal failure. Detail is the
// stringified provider error; callers inspect it for content-policy
// classification.
type RunError struct {
	State  State
	Detail string
}

func (e *RunError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("prediction %s", e.State)
	}
	return fmt.Sprintf("prediction %s: %s", e.State, e.Detail)
}

// Result is the terminal outcome of one prediction run.
type Result struct {
	ID     string
	State  State
	Output any
}

type Options struct {
	BaseURL      string
	APIToken     string
	HTTPClient   *http.Client
	PollInterval time.Duration
	PollTimeout  time.Duration
	Clock        Clock
	Logger       zerolog.Logger
}

// Client drives asynchronous prediction jobs on the external provider:
// create synchronously, then poll at a fixed interval until the job reaches
// a terminal state or the wall-clock ceiling is hit.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	pollInterval time.Duration
	pollTimeout  time.Duration
	clock        Clock
	log          zerolog.Logger
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIToken) == "" {
		return nil, errors.New("prediction: api token is required")
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.replicate.com"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	timeout := opts.PollTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Client{
		httpClient:   httpClient,
		baseURL:      base,
		token:        strings.TrimSpace(opts.APIToken),
		pollInterval: interval,
		pollTimeout:  timeout,
		clock:        clock,
		log:          opts.Logger,
	}, nil
}

type predictionPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output any    `json:"output"`
	Error  any    `json:"error"`
}

// Run submits a job for the given model ("owner/name:version") and blocks
// the calling goroutine until it settles. The polling ceiling applies even
// when ctx carries no deadline of its own; ctx cancellation interrupts the
// wait between polls.
func (c *Client) Run(ctx context.Context, model string, input map[string]any) (*Result, error) {
	pred, err := c.create(ctx, versionOf(model), input)
	if err != nil {
		return nil, fmt.Errorf("create prediction: %w", err)
	}

	c.log.Debug().
		Str("prediction_id", pred.ID).
		Str("model", model).
		Msg("prediction created")

	deadline := c.clock.Now().Add(c.pollTimeout)
	state := FromProviderStatus(pred.Status)

	for !state.Terminal() {
		if !c.clock.Now().Before(deadline) {
			c.log.Warn().
				Str("prediction_id", pred.ID).
				Dur("ceiling", c.pollTimeout).
				Msg("prediction polling ceiling exceeded")
			return &Result{ID: pred.ID, State: StateTimedOut},
				fmt.Errorf("%w after %s", ErrTimedOut, c.pollTimeout)
		}
		if err := c.clock.Sleep(ctx, c.pollInterval); err != nil {
			return nil, err
		}
		id := pred.ID
		pred, err = c.get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("poll prediction %s: %w", id, err)
		}
		state = FromProviderStatus(pred.Status)
		c.log.Debug().
			Str("prediction_id", pred.ID).
			Str("status", pred.Status).
			Msg("prediction polled")
	}

	result := &Result{ID: pred.ID, State: state, Output: pred.Output}
	if state != StateSucceeded {
		return result, &RunError{State: state, Detail: StringifyDetail(pred.Error)}
	}
	return result, nil
}

func (c *Client) create(ctx context.Context, version string, input map[string]any) (*predictionPayload, error) {
	body, err := json.Marshal(map[string]any{
		"version": version,
		"input":   input,
	})
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, c.baseURL+"/v1/predictions", bytes.NewReader(body))
}

func (c *Client) get(ctx context.Context, id string) (*predictionPayload, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+"/v1/predictions/"+id, nil)
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader) (*predictionPayload, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, truncate(string(data), 256))
	}

	var payload predictionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.ID == "" {
		return nil, errors.New("provider response missing prediction id")
	}
	return &payload, nil
}

// StringifyDetail renders a provider error payload deterministically: plain
// strings pass through, anything structured is JSON-encoded.
func StringifyDetail(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Sprintf("%v", d)
		}
		return string(data)
	}
}

// versionOf extracts the version hash from a model id of the form
// "owner/name:version". Ids without a version pass through unchanged.
func versionOf(model string) string {
	if idx := strings.LastIndex(model, ":"); idx >= 0 {
		return model[idx+1:]
	}
	return model
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
