package rewards

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"pinledger/internal/core"
	applog "pinledger/internal/log"
)

// Client calls the offers backend over HTTP.
//
//	GET  {base}/kard/offers?userId=
//	POST {base}/kard/transactions/match
//	POST {base}/kard/cards/{id}/enroll
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	fallback   []core.Offer
}

// NewClient builds an HTTP client. fallback is served when the offer list
// cannot be fetched.
func NewClient(baseURL, token string, fallback []core.Offer) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		fallback:   slices.Clone(fallback),
	}
}

func (c *Client) FetchOffers(ctx context.Context, userID string) []core.Offer {
	var offers []core.Offer
	err := c.do(ctx, http.MethodGet, "/kard/offers?userId="+url.QueryEscape(userID), nil, &offers)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to fetch offers, serving fallback",
			applog.FieldComponent, applog.ComponentRewards,
			"user_id", userID,
			applog.FieldError, err)
		return slices.Clone(c.fallback)
	}
	return offers
}

func (c *Client) MatchTransaction(ctx context.Context, tx core.Transaction) MatchResult {
	var res MatchResult
	if err := c.do(ctx, http.MethodPost, "/kard/transactions/match", tx, &res); err != nil {
		slog.ErrorContext(ctx, "Failed to match transaction",
			applog.FieldComponent, applog.ComponentRewards,
			"transaction_id", tx.ID,
			applog.FieldError, err)
		return MatchResult{}
	}
	if !res.Matched {
		return MatchResult{}
	}
	return res
}

func (c *Client) EnrollCard(ctx context.Context, cardID string) bool {
	if err := c.do(ctx, http.MethodPost, "/kard/cards/"+url.PathEscape(cardID)+"/enroll", nil, nil); err != nil {
		slog.ErrorContext(ctx, "Card enrollment failed",
			applog.FieldComponent, applog.ComponentRewards,
			"card_id", cardID,
			applog.FieldError, err)
		return false
	}
	return true
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(b)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
