// ABOUTME: HTTP client for the external weather provider (Open-Meteo shaped API).
// ABOUTME: Geocodes place names and fetches current temperature and humidity.

package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL = "https://api.open-meteo.com/v1/forecast"

	defaultRequestTimeout = 10 * time.Second
)

// Place is one geocoding match.
type Place struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Country     string
}

// Conditions is the current weather at a coordinate.
type Conditions struct {
	Temperature float64 // degrees Celsius
	Humidity    float64 // relative humidity, percent
}

// Provider is what the clima handlers depend on; tests substitute fakes.
type Provider interface {
	// Geocode resolves a place name. Returns (nil, nil) when the provider
	// has no match for the name.
	Geocode(ctx context.Context, place string) (*Place, error)
	// CurrentConditions fetches current temperature and humidity.
	CurrentConditions(ctx context.Context, lat, lon float64) (*Conditions, error)
}

// Client implements Provider against the Open-Meteo public API.
type Client struct {
	geocodeURL  string
	forecastURL string
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides the geocoding and forecast endpoints (for tests).
func WithBaseURLs(geocodeURL, forecastURL string) Option {
	return func(c *Client) {
		c.geocodeURL = geocodeURL
		c.forecastURL = forecastURL
	}
}

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a weather client with a bounded request timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		geocodeURL:  defaultGeocodeURL,
		forecastURL: defaultForecastURL,
		httpClient:  &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Country   string  `json:"country"`
	} `json:"results"`
}

// Geocode resolves a place name to coordinates using the geocoding endpoint.
func (c *Client) Geocode(ctx context.Context, place string) (*Place, error) {
	q := url.Values{}
	q.Set("name", place)
	q.Set("count", "1")

	var resp geocodeResponse
	if err := c.getJSON(ctx, c.geocodeURL+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", place, err)
	}

	if len(resp.Results) == 0 {
		return nil, nil
	}

	r := resp.Results[0]
	return &Place{
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		DisplayName: r.Name,
		Country:     r.Country,
	}, nil
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
	} `json:"current"`
}

// CurrentConditions fetches the current temperature and relative humidity.
func (c *Client) CurrentConditions(ctx context.Context, lat, lon float64) (*Conditions, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m")

	var resp forecastResponse
	if err := c.getJSON(ctx, c.forecastURL+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetching conditions: %w", err)
	}

	return &Conditions{
		Temperature: resp.Current.Temperature,
		Humidity:    resp.Current.Humidity,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
