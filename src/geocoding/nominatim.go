// Package geocoding resolves proposal addresses to coordinates through a
// Nominatim compatible search endpoint.
package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stake-plus/civic-proposals/src/proposals"
	"github.com/stake-plus/civic-proposals/src/webclient"
)

var ErrNoResults = errors.New("geocoding: address not found")

type Client struct {
	baseURL  string
	http     *http.Client
	attempts int
	delay    time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithRetry(attempts int, initialDelay time.Duration) Option {
	return func(cl *Client) {
		cl.attempts = attempts
		cl.delay = initialDelay
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     webclient.NewDefault(10 * time.Second),
		attempts: 3,
		delay:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (c *Client) Lookup(ctx context.Context, address string) (proposals.Coordinates, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	body, err := webclient.GetJSON(ctx, c.http, c.baseURL+"/search?"+q.Encode(), c.attempts, c.delay)
	if err != nil {
		return proposals.Coordinates{}, fmt.Errorf("geocode %q: %w", address, err)
	}

	var places []place
	if err := json.Unmarshal(body, &places); err != nil {
		return proposals.Coordinates{}, fmt.Errorf("geocode %q: decode: %w", address, err)
	}
	if len(places) == 0 {
		return proposals.Coordinates{}, ErrNoResults
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return proposals.Coordinates{}, fmt.Errorf("geocode %q: latitude: %w", address, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return proposals.Coordinates{}, fmt.Errorf("geocode %q: longitude: %w", address, err)
	}
	return proposals.Coordinates{Latitude: lat, Longitude: lon}, nil
}
