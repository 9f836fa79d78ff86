// Package mlservice is a client for the solar AC power prediction service.
package mlservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/solarroi/solarroi/internal/provider/resilience"
)

const (
	// ProviderName identifies the prediction service.
	ProviderName = "ml-service"

	// DefaultURL is the prediction endpoint of a locally running service.
	DefaultURL = "http://127.0.0.1:5000/predict"
)

// ErrRejected is returned when the service answers with a non-2xx status.
var ErrRejected = errors.New("prediction request rejected")

// ClientConfig holds configuration for the prediction client.
type ClientConfig struct {
	// URL is the full prediction endpoint.
	URL string

	// HTTPClient is optional; defaults to a resilient client named ProviderName.
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client calls POST {URL} with {temperature, irradiation}.
type Client struct {
	url        string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new prediction client.
func NewClient(cfg ClientConfig) *Client {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		url:        url,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

type predictRequest struct {
	Temperature float64 `json:"temperature"`
	Irradiation float64 `json:"irradiation"`
}

type predictResponse struct {
	PredictedACPowerKW *float64 `json:"predicted_ac_power_kw"`
	Error              string   `json:"error"`
}

// PredictACPower returns the predicted AC power in kW. A 2xx response
// without a prediction yields 0.
func (c *Client) PredictACPower(ctx context.Context, temperatureC, irradiation float64) (float64, error) {
	body, err := json.Marshal(predictRequest{Temperature: temperatureC, Irradiation: irradiation})
	if err != nil {
		return 0, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("reading response: %w", err)
	}

	var out predictResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && out.Error != "" {
			return 0, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, out.Error)
		}
		return 0, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	if decodeErr != nil {
		return 0, fmt.Errorf("decoding response: %w", decodeErr)
	}

	if out.PredictedACPowerKW == nil {
		c.logger.Debug().Msg("prediction response carried no predicted_ac_power_kw")
		return 0, nil
	}
	return *out.PredictedACPowerKW, nil
}
