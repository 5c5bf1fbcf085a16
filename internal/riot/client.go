package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Typed failures surfaced by the client. Callers branch with errors.Is.
var (
	// ErrNotFound means the requested identity does not exist upstream
	ErrNotFound = errors.New("riot: not found")
	// ErrUnauthorized means the API key was rejected; this is an
	// operator-facing configuration fault, not a user error
	ErrUnauthorized = errors.New("riot: api key rejected")
	// ErrRateLimited means the upstream throttled us this cycle
	ErrRateLimited = errors.New("riot: rate limited")
	// ErrUnavailable covers transient upstream failures
	ErrUnavailable = errors.New("riot: upstream unavailable")
)

// Client is a Riot Games API client with rate limiting. One client
// wraps one API key; LoL and TFT keys are issued separately, so the
// bot holds two clients.
type Client struct {
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter

	platformURL string // e.g. https://euw1.api.riotgames.com
	regionURL   string // e.g. https://europe.api.riotgames.com
}

// NewClient creates a new Riot API client for one API key
func NewClient(apiKey, platform, region string) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		// Development keys allow 20 requests per second
		limiter:     rate.NewLimiter(rate.Limit(20), 1),
		platformURL: fmt.Sprintf("https://%s.api.riotgames.com", platform),
		regionURL:   fmt.Sprintf("https://%s.api.riotgames.com", region),
	}
}

// get performs a rate-limited GET and decodes the JSON response
func (c *Client) get(ctx context.Context, url string, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Riot-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return statusError(resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// statusError maps an HTTP status to one of the typed failures
func statusError(status int, body []byte) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, status)
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: status %d, body: %s", ErrUnavailable, status, string(body))
	}
}
