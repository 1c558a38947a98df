package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var ErrNoRoute = errors.New("no route found")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOptions struct {
	Timeout time.Duration
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout: 7 * time.Second,
	}
}

func NewClient(baseURL string, options ...ClientOptions) *Client {
	opts := DefaultClientOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

func (c *Client) CalculateRoute(ctx context.Context, routeRequest RouteRequest) (*Route, error) {
	if err := routeRequest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid route request: %w", err)
	}

	reqURL, err := url.JoinPath(c.baseURL, "route")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	body, err := json.Marshal(routeRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	var routeResponse RouteResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&routeResponse)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && routeResponse.Message != "" {
			return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, routeResponse.Message)
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	if len(routeResponse.Data) == 0 {
		return nil, ErrNoRoute
	}

	return &routeResponse.Data[0], nil
}
