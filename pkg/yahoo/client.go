package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/irfndi/sector-rotation-go/internal/config"
	"github.com/irfndi/sector-rotation-go/internal/models"
)

const userAgent = "Mozilla/5.0 (compatible; SectorRotation-Go/1.0)"

// Client talks to the Yahoo Finance chart and quoteSummary endpoints.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	maxRetries int
	backoff    time.Duration
}

// NewClient creates a new Yahoo Finance client instance
func NewClient(cfg *config.YahooConfig) *Client {
	return &Client{
		HTTPClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
		BaseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		maxRetries: cfg.MaxRetries,
		backoff:    500 * time.Millisecond,
	}
}

// FetchMonthlyVolume returns the monthly bars of a ticker between start and
// end. Bars with a null volume are skipped. Timestamps are expressed in the
// exchange's timezone so month boundaries match the listing's calendar.
func (c *Client) FetchMonthlyVolume(ctx context.Context, ticker string, start, end time.Time) ([]models.RawObservation, error) {
	params := url.Values{}
	params.Set("interval", "1mo")
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	params.Set("includePrePost", "false")
	path := fmt.Sprintf("/v8/finance/chart/%s?%s", url.PathEscape(ticker), params.Encode())

	var response ChartResponse
	if err := c.makeRequest(ctx, path, &response); err != nil {
		return nil, err
	}
	return parseChart(ticker, &response)
}

func parseChart(ticker string, response *ChartResponse) ([]models.RawObservation, error) {
	if response.Chart.Error != nil {
		return nil, &APIError{StatusCode: http.StatusOK, Code: response.Chart.Error.Code, Description: response.Chart.Error.Description}
	}
	if len(response.Chart.Result) == 0 {
		return nil, fmt.Errorf("no result in response for %s", ticker)
	}

	result := response.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data in response for %s", ticker)
	}
	volumes := result.Indicators.Quote[0].Volume
	if len(volumes) != len(result.Timestamp) {
		return nil, fmt.Errorf("data alignment error for %s: %d timestamps, %d volumes", ticker, len(result.Timestamp), len(volumes))
	}

	loc := exchangeLocation(result.Meta.ExchangeTimezoneName, result.Meta.Timezone, result.Meta.Gmtoffset)
	observations := make([]models.RawObservation, 0, len(volumes))
	for i, ts := range result.Timestamp {
		if volumes[i] == nil {
			continue
		}
		observations = append(observations, models.RawObservation{
			Ticker:    ticker,
			Timestamp: time.Unix(ts, 0).In(loc),
			Volume:    *volumes[i],
		})
	}
	return observations, nil
}

func exchangeLocation(name, abbreviation string, offset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone(abbreviation, offset)
}

// FetchSector returns the industry label of a ticker, falling back to its
// sector. An empty string means Yahoo has no profile for it.
func (c *Client) FetchSector(ctx context.Context, ticker string) (string, error) {
	path := fmt.Sprintf("/v10/finance/quoteSummary/%s?modules=assetProfile", url.PathEscape(ticker))

	var response QuoteSummaryResponse
	if err := c.makeRequest(ctx, path, &response); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", err
	}
	if response.QuoteSummary.Error != nil {
		return "", &APIError{StatusCode: http.StatusOK, Code: response.QuoteSummary.Error.Code, Description: response.QuoteSummary.Error.Description}
	}
	for _, r := range response.QuoteSummary.Result {
		if r.AssetProfile == nil {
			continue
		}
		if industry := strings.TrimSpace(r.AssetProfile.Industry); industry != "" {
			return industry, nil
		}
		if sector := strings.TrimSpace(r.AssetProfile.Sector); sector != "" {
			return sector, nil
		}
	}
	return "", nil
}

// HealthCheck queries the chart endpoint with a liquid index fund.
func (c *Client) HealthCheck(ctx context.Context) error {
	var response ChartResponse
	return c.makeRequest(ctx, "/v8/finance/chart/SPY?interval=1mo&range=1mo", &response)
}

// makeRequest issues a GET and decodes the JSON body into result, retrying
// throttled and server-side failures with a linear backoff.
func (c *Client) makeRequest(ctx context.Context, path string, result interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		lastErr = c.do(ctx, path, result)
		var apiErr *APIError
		if lastErr == nil || !errors.As(lastErr, &apiErr) || !apiErr.Temporary() {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

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
		return decodeError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// decodeError extracts the embedded error object of either envelope.
func decodeError(status int, body []byte) error {
	var envelope map[string]struct {
		Error *ErrorDetail `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		for _, v := range envelope {
			if v.Error != nil {
				return &APIError{StatusCode: status, Code: v.Error.Code, Description: v.Error.Description}
			}
		}
	}
	return &APIError{StatusCode: status, Description: strings.TrimSpace(string(body))}
}
