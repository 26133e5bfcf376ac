// Package geocode resolves free-text place queries through a Nominatim
// compatible search endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pinledger/internal/core"
	applog "pinledger/internal/log"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "pinledger/1.0"

	// MinQueryLength is the shortest query worth sending for suggestions.
	MinQueryLength = 3
	SuggestLimit   = 5

	// viewboxSpan is the half-width in degrees of the box used to bias
	// results toward the map center.
	viewboxSpan = 0.5
)

type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// place is one Nominatim search hit. lat and lon arrive as strings.
type place struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Type        string `json:"type"`
}

func NewClient(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Suggest returns up to five places for query. Queries shorter than three
// characters and upstream failures yield an empty slice.
func (c *Client) Suggest(ctx context.Context, query string, center *core.Location) []core.SearchResult {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return []core.SearchResult{}
	}
	out, err := c.search(ctx, query, center, SuggestLimit)
	if err != nil {
		logFailure(ctx, "Place suggestions failed", query, err)
		return []core.SearchResult{}
	}
	return out
}

// SearchOne returns the best match for query, or nil.
func (c *Client) SearchOne(ctx context.Context, query string, center *core.Location) *core.SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	out, err := c.search(ctx, query, center, 1)
	if err != nil {
		logFailure(ctx, "Place search failed", query, err)
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return &out[0]
}

func (c *Client) search(ctx context.Context, query string, center *core.Location, limit int) ([]core.SearchResult, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("addressdetails", "1")
	if center != nil {
		params.Set("viewbox", fmt.Sprintf("%.5f,%.5f,%.5f,%.5f",
			center.Lng-viewboxSpan, center.Lat+viewboxSpan, center.Lng+viewboxSpan, center.Lat-viewboxSpan))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim status %d", resp.StatusCode)
	}

	var hits []place
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("decode nominatim response: %w", err)
	}
	out := make([]core.SearchResult, 0, len(hits))
	for _, h := range hits {
		r, ok := h.result()
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (p place) result() (core.SearchResult, bool) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return core.SearchResult{}, false
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return core.SearchResult{}, false
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.TrimSpace(strings.Split(p.DisplayName, ",")[0])
	}
	return core.SearchResult{
		Name:        name,
		Location:    core.Location{Lat: lat, Lng: lng, Address: p.DisplayName},
		Description: p.Type,
	}, true
}

func logFailure(ctx context.Context, msg, query string, err error) {
	if ctx.Err() != nil {
		slog.DebugContext(ctx, msg, applog.FieldComponent, applog.ComponentGeocode, "query", query, applog.FieldError, err)
		return
	}
	slog.ErrorContext(ctx, msg, applog.FieldComponent, applog.ComponentGeocode, "query", query, applog.FieldError, err)
}
