package yahoo

import "fmt"

// ChartResponse is the body of the v8 chart endpoint.
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *ErrorDetail  `json:"error"`
	} `json:"chart"`
}

// ChartResult is one instrument's series.
type ChartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		Currency             string `json:"currency"`
		ExchangeName         string `json:"exchangeName"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
		Timezone             string `json:"timezone"`
		Gmtoffset            int    `json:"gmtoffset"`
		DataGranularity      string `json:"dataGranularity"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// QuoteSummaryResponse is the body of the v10 quoteSummary endpoint.
type QuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile *AssetProfile `json:"assetProfile"`
		} `json:"result"`
		Error *ErrorDetail `json:"error"`
	} `json:"quoteSummary"`
}

// AssetProfile carries the classification labels of a listing.
type AssetProfile struct {
	Industry string `json:"industry"`
	Sector   string `json:"sector"`
}

// ErrorDetail is the error object Yahoo embeds in its envelopes.
type ErrorDetail struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// APIError is returned for non-2xx responses and embedded error objects.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("yahoo finance error (%d): %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("yahoo finance error (%d): %s - %s", e.StatusCode, e.Code, e.Description)
}

// Temporary reports whether the request may succeed on retry.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
