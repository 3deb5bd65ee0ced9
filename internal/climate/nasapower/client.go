// Package nasapower implements a climate.Provider backed by the NASA POWER API.
package nasapower

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/weatherodds/weatherodds/internal/climate"
	"github.com/weatherodds/weatherodds/internal/provider/resilience"
)

const (
	// ProviderName identifies this climatology provider.
	ProviderName = "nasa-power"

	// DefaultBaseURL is the NASA POWER daily point endpoint.
	DefaultBaseURL = "https://power.larc.nasa.gov/api/temporal/daily/point"

	// DefaultCommunity is the POWER user community (renewable energy).
	DefaultCommunity = "RE"

	// DefaultFillValue is the sentinel POWER emits for missing days.
	DefaultFillValue = -999.0

	dateLayout = "20060102"
)

// ErrMalformedResponse is returned when the payload lacks the expected structure.
var ErrMalformedResponse = errors.New("malformed provider response")

// ClientConfig holds configuration for the NASA POWER client.
type ClientConfig struct {
	// BaseURL is the API endpoint (optional, defaults to DefaultBaseURL).
	BaseURL string

	// Community is the POWER community code (optional, defaults to RE).
	Community string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a NASA POWER API client.
type Client struct {
	baseURL    string
	community  string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new NASA POWER client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	community := cfg.Community
	if community == "" {
		community = DefaultCommunity
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		baseURL:    baseURL,
		community:  community,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchSeries implements climate.Provider with a single batched request.
func (c *Client) FetchSeries(ctx context.Context, coord climate.Coordinate, codes []string, window climate.DateRange) (map[string]climate.RawSample, error) {
	if len(codes) == 0 {
		return map[string]climate.RawSample{}, nil
	}

	reqURL := c.buildURL(coord, codes, window)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Strs("codes", codes).
		Float64("lat", coord.Lat).
		Float64("lon", coord.Lon).
		Msg("requesting climatology series")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload pointResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if payload.Properties.Parameter == nil {
		return nil, fmt.Errorf("%w: missing properties.parameter", ErrMalformedResponse)
	}

	fill := DefaultFillValue
	if payload.Header.FillValue != nil {
		fill = *payload.Header.FillValue
	}

	out := make(map[string]climate.RawSample, len(codes))
	for _, code := range codes {
		out[code] = toSample(payload.Properties.Parameter[code], fill)
	}
	return out, nil
}

func (c *Client) buildURL(coord climate.Coordinate, codes []string, window climate.DateRange) string {
	q := url.Values{}
	q.Set("parameters", strings.Join(codes, ","))
	q.Set("start", window.Start.UTC().Format(dateLayout))
	q.Set("end", window.End.UTC().Format(dateLayout))
	q.Set("latitude", fmt.Sprintf("%.4f", coord.Lat))
	q.Set("longitude", fmt.Sprintf("%.4f", coord.Lon))
	q.Set("community", c.community)
	q.Set("format", "JSON")
	return c.baseURL + "?" + q.Encode()
}

// toSample flattens a date-keyed series in date order, dropping fill values
// and anything that is not a finite number.
func toSample(series map[string]any, fill float64) climate.RawSample {
	dates := make([]string, 0, len(series))
	for d := range series {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	values := make([]float64, 0, len(dates))
	for _, d := range dates {
		v, ok := series[d].(float64)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v == fill {
			continue
		}
		values = append(values, v)
	}
	return climate.RawSample{Values: values}
}

// NASA POWER API response structures.

type pointResponse struct {
	Header struct {
		FillValue *float64 `json:"fill_value"`
	} `json:"header"`
	Properties struct {
		Parameter map[string]map[string]any `json:"parameter"`
	} `json:"properties"`
}
