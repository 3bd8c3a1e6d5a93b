package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/irfndi/sector-rotation-go/internal/config"
	"github.com/irfndi/sector-rotation-go/internal/models"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Client reads economic series from the FRED API.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	apiKey     string
}

// NewClient creates a new FRED client instance
func NewClient(cfg *config.FREDConfig) *Client {
	return &Client{
		HTTPClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
		BaseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

// FetchSeries returns every observation of seriesID from start onwards.
// Observations carrying FRED's "." placeholder are omitted.
func (c *Client) FetchSeries(ctx context.Context, seriesID string, start time.Time) ([]models.MacroObservation, error) {
	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	if !start.IsZero() {
		params.Set("observation_start", start.Format(dateLayout))
	}

	var response ObservationsResponse
	if err := c.makeRequest(ctx, "/fred/series/observations?"+params.Encode(), &response); err != nil {
		return nil, fmt.Errorf("failed to fetch series %s: %w", seriesID, err)
	}

	observations := make([]models.MacroObservation, 0, len(response.Observations))
	for _, obs := range response.Observations {
		if obs.Value == missingValue || strings.TrimSpace(obs.Value) == "" {
			continue
		}
		date, err := time.Parse(dateLayout, obs.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date %q of series %s: %w", obs.Date, seriesID, err)
		}
		value, err := decimal.NewFromString(obs.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse value %q of series %s: %w", obs.Value, seriesID, err)
		}
		observations = append(observations, models.MacroObservation{
			Date:  date,
			Value: value.InexactFloat64(),
		})
	}
	return observations, nil
}

// HealthCheck requests a single recent observation of the policy rate.
func (c *Client) HealthCheck(ctx context.Context) error {
	params := url.Values{}
	params.Set("series_id", "FEDFUNDS")
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("limit", "1")
	params.Set("sort_order", "desc")
	var response ObservationsResponse
	return c.makeRequest(ctx, "/fred/series/observations?"+params.Encode(), &response)
}

func (c *Client) makeRequest(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "SectorRotation-Go/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.ErrorMessage != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errorResp.ErrorMessage}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
