package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carbridge-io/carbridge/internal/pkg/metrics"
	"github.com/carbridge-io/carbridge/pkg/options"
)

// Client is the vehicle-cloud collaborator the bridge polls and sends
// commands through. A nil document with a nil error is never returned; fetch
// failures surface as errors and the caller decides what to retain.
type Client interface {
	// FetchVehicleRecord returns the vehicle record document.
	FetchVehicleRecord(ctx context.Context, vin string) (map[string]any, error)

	// FetchVehicleShadow returns the vehicle shadow document.
	FetchVehicleShadow(ctx context.Context, vin string) (map[string]any, error)

	// FetchAddress reverse-geocodes the given coordinates.
	FetchAddress(ctx context.Context, lat, lon float64) (map[string]any, error)

	// SendCommand posts a remote-control command for the vehicle.
	SendCommand(ctx context.Context, vin, command string, params map[string]any) error
}

type httpClient struct {
	baseURL    string
	geocodeURL string
	token      string
	http       *http.Client
}

var _ Client = (*httpClient)(nil)

// NewClient creates a Client backed by the vehicle cloud REST API.
func NewClient(opts *options.CloudOptions) Client {
	return &httpClient{
		baseURL:    opts.BaseURL,
		geocodeURL: opts.GeocodeURL,
		token:      opts.AccessToken,
		http:       &http.Client{Timeout: opts.Timeout},
	}
}

func (c *httpClient) FetchVehicleRecord(ctx context.Context, vin string) (map[string]any, error) {
	return c.getJSON(ctx, "record", fmt.Sprintf("%s/vehicles/%s/record", c.baseURL, vin))
}

func (c *httpClient) FetchVehicleShadow(ctx context.Context, vin string) (map[string]any, error) {
	return c.getJSON(ctx, "shadow", fmt.Sprintf("%s/vehicles/%s/shadow", c.baseURL, vin))
}

func (c *httpClient) FetchAddress(ctx context.Context, lat, lon float64) (map[string]any, error) {
	if c.geocodeURL == "" {
		return nil, fmt.Errorf("geocoding is not configured")
	}
	url := fmt.Sprintf("%s/reverse?lat=%f&lon=%f", c.geocodeURL, lat, lon)
	return c.getJSON(ctx, "address", url)
}

func (c *httpClient) SendCommand(ctx context.Context, vin, command string, params map[string]any) error {
	url := fmt.Sprintf("%s/vehicles/%s/commands/%s", c.baseURL, vin, command)

	body := []byte("{}")
	if len(params) > 0 {
		var err error
		if body, err = json.Marshal(params); err != nil {
			return fmt.Errorf("encoding command params: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending command %s: %w", command, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("command %s rejected with status %d: %s", command, resp.StatusCode, string(payload))
	}

	return nil
}

func (c *httpClient) getJSON(ctx context.Context, endpoint, url string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.authorize(req)

	started := time.Now()
	resp, err := c.http.Do(req)
	metrics.FetchDuration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d for %s: %s", resp.StatusCode, endpoint, string(body))
	}

	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", endpoint, err)
	}

	return doc, nil
}

func (c *httpClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
