package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/voicemetrics/callbridge/internal/domain/record"
	"github.com/voicemetrics/callbridge/pkg/logger"
	"github.com/voicemetrics/callbridge/pkg/metrics"
)

// Default call-client configuration constants.
const (
	defaultCallPageLimit  = 1000
	defaultMaxAttempts    = 3
	defaultInitialBackoff = time.Second
	defaultRatePerSecond  = 0.1989
)

// CallClient fetches call batches from the voice-agent platform's list-calls
// endpoint, one request per configured outbound number.
type CallClient struct {
	baseURL     string
	apiKey      string
	fromNumbers []string
	pageLimit   int
	ratePerSec  float64
	httpClient  *http.Client
	maxAttempts int
	backoff     time.Duration
	log         logger.Logger
}

// NewCallClient creates a call client with configuration options.
func NewCallClient(baseURL, apiKey string, fromNumbers []string, opts ...CallOption) *CallClient {
	c := &CallClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		fromNumbers: fromNumbers,
		pageLimit:   defaultCallPageLimit,
		ratePerSec:  defaultRatePerSecond,
		httpClient:  http.DefaultClient,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultInitialBackoff,
		log:         logger.Get().Named("call-source"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// listCallsRequest mirrors the platform's list-calls request body.
type listCallsRequest struct {
	Limit      int    `json:"limit"`
	FromNumber string `json:"from_number"`
}

// callPayload mirrors one call in the platform response. Timestamps are Unix
// milliseconds; the agent's dynamic variables carry the captured email and
// product title when the conversation produced them.
type callPayload struct {
	CallID     string `json:"call_id"`
	FromNumber string `json:"from_number"`
	ToNumber   string `json:"to_number"`
	StartTS    int64  `json:"start_timestamp"`
	EndTS      int64  `json:"end_timestamp"`
	Variables  struct {
		Email string `json:"email"`
		Title string `json:"title"`
	} `json:"dynamic_variables"`
}

// listCallsResponse accepts both response shapes the platform has shipped: a
// bare list or an object wrapping it.
type listCallsResponse struct {
	Calls []callPayload `json:"calls"`
}

// FetchCalls fetches and parses the call batch for every configured outbound
// number. A number whose fetch fails after retries fails the whole batch; a
// single unparseable call is skipped.
func (c *CallClient) FetchCalls(ctx context.Context) ([]record.Call, error) {
	var out []record.Call
	for _, number := range c.fromNumbers {
		payloads, err := c.fetchForNumber(ctx, number)
		if err != nil {
			return nil, fmt.Errorf("fetch calls for %s: %w", number, err)
		}
		for _, p := range payloads {
			call, ok := c.parseCall(ctx, p, number)
			if !ok {
				metrics.RecordSourceParseError("calls")
				continue
			}
			out = append(out, call)
		}
	}
	metrics.RecordSourceFetched("calls", len(out))
	return out, nil
}

// fetchForNumber posts the list request with bounded exponential backoff on
// throttling and server errors.
func (c *CallClient) fetchForNumber(ctx context.Context, number string) ([]callPayload, error) {
	body, err := json.Marshal(listCallsRequest{Limit: c.pageLimit, FromNumber: number})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var resp *http.Response
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/list-calls", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if resp.StatusCode == http.StatusOK {
			break
		}
		_ = resp.Body.Close()

		if !retryable(resp.StatusCode) {
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		wait := c.backoff << attempt
		c.log.Warn(ctx, "call API throttled; backing off",
			logger.Int("status", resp.StatusCode),
			logger.String("wait", wait.String()),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, fmt.Errorf("fetch cancelled: %w", ctx.Err())
		}
		resp = nil
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: retries exhausted", ErrUnavailable)
	}
	defer resp.Body.Close()

	// The endpoint has returned both a bare array and a wrapper object
	// across API versions; accept either.
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	var list []callPayload
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped listCallsResponse
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return wrapped.Calls, nil
}

// parseCall converts one payload into a Call. Calls from other outbound
// numbers or without both timestamps are skipped.
func (c *CallClient) parseCall(ctx context.Context, p callPayload, number string) (record.Call, bool) {
	if p.FromNumber != number {
		return record.Call{}, false
	}
	if p.StartTS == 0 || p.EndTS == 0 {
		c.log.Debug(ctx, "skipping call without timestamps", logger.String("call_id", p.CallID))
		return record.Call{}, false
	}

	start := time.UnixMilli(p.StartTS).UTC()
	end := time.UnixMilli(p.EndTS).UTC()
	duration := end.Sub(start).Seconds()
	if duration < 0 {
		return record.Call{}, false
	}

	id := p.CallID
	if id == "" {
		// Deterministic fallback so re-fetches upsert instead of duplicating.
		id = fmt.Sprintf("%s_%d", p.ToNumber, p.StartTS)
	}

	return record.Call{
		ID:          id,
		Email:       p.Variables.Email,
		ToNumber:    p.ToNumber,
		StartedAt:   start,
		EndedAt:     end,
		DurationSec: duration,
		Cost:        round4(duration * c.ratePerSec),
		Title:       p.Variables.Title,
	}, true
}

// retryable reports whether the status warrants another attempt.
func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// round4 rounds to 4 decimal places, matching the platform's cost precision.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
