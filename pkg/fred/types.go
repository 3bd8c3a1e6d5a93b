package fred

import "fmt"

// missingValue is FRED's placeholder for an observation with no value.
const missingValue = "."

// ObservationsResponse is the body of /fred/series/observations.
type ObservationsResponse struct {
	RealtimeStart    string        `json:"realtime_start"`
	RealtimeEnd      string        `json:"realtime_end"`
	ObservationStart string        `json:"observation_start"`
	ObservationEnd   string        `json:"observation_end"`
	Units            string        `json:"units"`
	Count            int           `json:"count"`
	Observations     []Observation `json:"observations"`
}

// Observation is one dated value; Value is a decimal string or ".".
type Observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// ErrorResponse is FRED's error body.
type ErrorResponse struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("FRED service error (%d): %s", e.StatusCode, e.Message)
}
