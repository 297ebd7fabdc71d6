// Package backend talks to the marketplace REST API. Only the calls the agent
// itself needs live here; screens make every other request directly.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"homeservices-agent/internal/domain"
)

// Client is a thin wrapper over the backend's /api routes.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// NewClient builds a Client for baseURL (without the /api suffix).
func NewClient(httpClient *http.Client, baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With().Str("component", "backend").Logger(),
	}
}

type cartResponse struct {
	Items []domain.CartItem `json:"items"`
}

// FetchCart returns the server-side cart of customerID. A customer without a
// cart yields an empty slice.
func (c *Client) FetchCart(ctx context.Context, customerID, token string) ([]domain.CartItem, error) {
	endpoint := c.baseURL + "/api/cart/" + url.PathEscape(customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build cart request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("customer_id", customerID).Msg("fetch cart failed")
		return nil, fmt.Errorf("fetch cart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn().Int("status", resp.StatusCode).Str("customer_id", customerID).Msg("fetch cart rejected")
		return nil, fmt.Errorf("fetch cart: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out cartResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if out.Items == nil {
		out.Items = []domain.CartItem{}
	}
	return out.Items, nil
}
