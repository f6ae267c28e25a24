// Package marketdata provides a client for an EODHD-style quote and
// reference data API.
package marketdata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// QueryOption represents an optional parameter for API queries.
type QueryOption func(*queryParams)

// queryParams holds optional query parameters.
type queryParams struct {
	From   time.Time
	To     time.Time
	Period string // d, w, m
	Order  string // a (asc), d (desc)
}

// WithDateRange sets the date range for the query.
func WithDateRange(from, to time.Time) QueryOption {
	return func(p *queryParams) {
		p.From = from
		p.To = to
	}
}

// WithPeriod sets the period (d=daily, w=weekly, m=monthly).
func WithPeriod(period string) QueryOption {
	return func(p *queryParams) {
		p.Period = period
	}
}

// APIError represents an error from the upstream API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("market data API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError represents a rate limit error.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("market data rate limit exceeded, retry after %v", e.RetryAfter)
}

// naFloat is a float64 that tolerates the API's "NA" placeholder and
// bare nulls. Missing values decode to NaN and are omitted from the
// normalized quote instead of being surfaced.
type naFloat float64

func (f *naFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = naFloat(math.NaN())
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" || strings.EqualFold(s, "NA") {
		*f = naFloat(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = naFloat(math.NaN())
		return nil
	}
	*f = naFloat(v)
	return nil
}

// Value returns the float and whether it is present.
func (f naFloat) Value() (float64, bool) {
	v := float64(f)
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
