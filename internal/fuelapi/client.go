package fuelapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"FuelStream/internal/ratelimit"
)

const (
	tokenPath     = "/oauth/client_credential/accesstoken"
	allPricesPath = "/FuelPriceCheck/v1/fuel/prices"
	newPricesPath = "/FuelPriceCheck/v1/fuel/prices/new"

	// requesttimestamp header format required by the API: UTC, 12-hour clock.
	timestampFormat = "02/01/2006 03:04:05 PM"
)

// ErrCredentialFailure marks a failed access-token exchange. The feeder
// treats it as a skipped cycle, never as fatal.
var ErrCredentialFailure = errors.New("credential failure")

// Client talks to the FuelPriceCheck-style upstream API. Every price request
// carries a fresh bearer token, the api key, a unique transaction id, and a
// request timestamp.
type Client struct {
	baseURL    string
	apiKey     string
	authHeader string
	httpClient *http.Client
	limiter    *ratelimit.TokenBucket
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter installs a pacing limiter applied before each price request.
func WithLimiter(tb *ratelimit.TokenBucket) Option {
	return func(c *Client) { c.limiter = tb }
}

// NewClient creates an API client. authHeader is the pre-encoded value for
// the token exchange's Authorization header.
func NewClient(baseURL, apiKey, authHeader string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		authHeader: authHeader,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccessToken performs the client-credentials exchange and returns a bearer
// token. Failures are wrapped in ErrCredentialFailure.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	u := c.baseURL + tokenPath + "?" + url.Values{"grant_type": {"client_credentials"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build token request: %v", ErrCredentialFailure, err)
	}
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %s", ErrCredentialFailure, resp.Status)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrCredentialFailure, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access_token", ErrCredentialFailure)
	}
	return tr.AccessToken, nil
}

// AllPrices returns all current fuel prices for all service stations.
// The response can exceed 2 MB; the upstream restricts how often this call
// may be made, which the installed limiter enforces.
func (c *Client) AllPrices(ctx context.Context) (*PriceResponse, error) {
	return c.fetchPrices(ctx, allPricesPath)
}

// NewPrices returns only the prices submitted since the previous prices call
// made with the same api key.
func (c *Client) NewPrices(ctx context.Context) (*PriceResponse, error) {
	return c.fetchPrices(ctx, newPricesPath)
}

func (c *Client) fetchPrices(ctx context.Context, path string) (*PriceResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build prices request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("transactionid", uuid.NewString())
	req.Header.Set("requesttimestamp", time.Now().UTC().Format(timestampFormat))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s: %s: %s", path, resp.Status, body)
	}

	var pr PriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	return &pr, nil
}
