package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"vigil/internal/screening/models"
	"vigil/pkg/platform/sentinel"
)

// HTTPConfig configures the HTTP backend adapter.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	// RPS bounds outgoing calls client-side so batch workers cannot
	// overrun the backend's rate limits. Zero disables the limiter.
	RPS int
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// HTTPClient talks to the screening backend over HTTP JSON. Deadlines are the
// caller's responsibility: the orchestrator applies the per-call timeout
// through the context.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds the adapter.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS)
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  client,
		limiter: limiter,
	}
}

// matchRequest is the wire form of a structured match call.
type matchRequest struct {
	Name      string   `json:"name"`
	Schema    string   `json:"schema,omitempty"`
	Countries []string `json:"countries,omitempty"`
	BirthDate string   `json:"birth_date,omitempty"`
	Limit     int      `json:"limit"`
	Threshold int      `json:"threshold"`
}

// candidatesResponse carries ranked candidates. Elements are kept raw first
// so the original payload can travel with each entity for export.
type candidatesResponse struct {
	Candidates []json.RawMessage `json:"candidates"`
}

type wireCandidate struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Aliases   []string `json:"aliases"`
	Schema    string   `json:"schema"`
	Countries []string `json:"countries"`
	Topics    []string `json:"topics"`
	Dataset   string   `json:"dataset"`
}

// Match implements Client.
func (c *HTTPClient) Match(ctx context.Context, criteria MatchCriteria, limit int, threshold int) ([]models.CandidateEntity, error) {
	body, err := json.Marshal(matchRequest{
		Name:      criteria.Name,
		Schema:    string(criteria.Schema),
		Countries: criteria.Countries,
		BirthDate: criteria.BirthDate,
		Limit:     limit,
		Threshold: threshold,
	})
	if err != nil {
		return nil, NewCallError(ErrorInternal, "match", "encode request", err)
	}
	return c.call(ctx, "match", http.MethodPost, c.baseURL+"/match", body)
}

// Search implements Client.
func (c *HTTPClient) Search(ctx context.Context, term string, limit int) ([]models.CandidateEntity, error) {
	u := fmt.Sprintf("%s/search?q=%s&limit=%s",
		c.baseURL, url.QueryEscape(term), strconv.Itoa(limit))
	return c.call(ctx, "search", http.MethodGet, u, nil)
}

func (c *HTTPClient) call(ctx context.Context, op, method, u string, body []byte) ([]models.CandidateEntity, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, classifyTransport(op, "rate limiter wait", err)
		}
	}

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, NewCallError(ErrorInternal, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "ApiKey "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(op, "round trip", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewCallError(ErrorRateLimited, op, "backend rate limited", sentinel.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		// A missing route will not fix itself on retry.
		return nil, NewCallError(ErrorBadData, op, "backend endpoint not found", sentinel.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, NewCallError(ErrorTransport, op,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), sentinel.ErrUnavailable)
	}

	var wire candidatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, NewCallError(ErrorBadData, op, "decode response",
			fmt.Errorf("%w: %w", sentinel.ErrBadResponse, err))
	}

	candidates := make([]models.CandidateEntity, 0, len(wire.Candidates))
	for i, raw := range wire.Candidates {
		var wc wireCandidate
		if err := json.Unmarshal(raw, &wc); err != nil {
			return nil, NewCallError(ErrorBadData, op,
				fmt.Sprintf("decode candidate %d", i), err)
		}
		if wc.ID == "" || wc.Name == "" {
			return nil, NewCallError(ErrorBadData, op,
				fmt.Sprintf("candidate %d missing id or name", i), sentinel.ErrBadResponse)
		}
		candidates = append(candidates, models.CandidateEntity{
			ID:        wc.ID,
			Name:      wc.Name,
			Aliases:   wc.Aliases,
			Schema:    models.EntitySchema(wc.Schema),
			Countries: wc.Countries,
			Topics:    wc.Topics,
			Dataset:   wc.Dataset,
			Raw:       raw,
		})
	}
	return candidates, nil
}

// classifyTransport maps low-level failures to the taxonomy. Context
// deadlines become timeouts; everything else is a transport failure.
func classifyTransport(op, message string, err error) *CallError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewCallError(ErrorTimeout, op, message,
			fmt.Errorf("%w: %w", sentinel.ErrTimeout, err))
	}
	if errors.Is(err, context.Canceled) {
		ce := NewCallError(ErrorTransport, op, message, err)
		ce.Retryable = false // caller gave up, do not retry
		return ce
	}
	return NewCallError(ErrorTransport, op, message, err)
}
