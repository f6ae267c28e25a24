package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the EODHD API.
	DefaultBaseURL = "https://eodhd.com/api"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10
)

// Client is a quote/reference data API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new market data API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a GET request to the API.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &RateLimitError{RetryAfter: time.Second}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Market data API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// realTimeQuote is the wire shape of one real-time quote row.
type realTimeQuote struct {
	Code          string  `json:"code"`
	Timestamp     int64   `json:"timestamp"`
	Open          naFloat `json:"open"`
	High          naFloat `json:"high"`
	Low           naFloat `json:"low"`
	Close         naFloat `json:"close"`
	PreviousClose naFloat `json:"previousClose"`
	Change        naFloat `json:"change"`
	ChangePercent naFloat `json:"change_p"`
	Volume        naFloat `json:"volume"`
}

// GetQuotes retrieves real-time quotes for one or more symbols.
// The upstream returns a single object for one symbol and an array
// for several; both normalize to the same map[symbol]*Quote shape.
// Symbols the upstream omits or returns without a price are left out
// of the result rather than raising.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error) {
	if len(symbols) == 0 {
		return map[string]*models.Quote{}, nil
	}

	params := url.Values{}
	if len(symbols) > 1 {
		params.Set("s", strings.Join(symbols[1:], ","))
	}

	var raw json.RawMessage
	if err := c.get(ctx, "/real-time/"+symbols[0], params, &raw); err != nil {
		return nil, err
	}

	rows, err := decodeQuoteRows(raw)
	if err != nil {
		return nil, err
	}

	quotes := make(map[string]*models.Quote, len(rows))
	for _, row := range rows {
		if row.Code == "" {
			continue
		}
		quote := normalizeQuote(row)
		if quote == nil {
			continue
		}
		quotes[row.Code] = quote
	}
	return quotes, nil
}

// decodeQuoteRows accepts either a single quote object or an array.
func decodeQuoteRows(raw json.RawMessage) ([]realTimeQuote, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var rows []realTimeQuote
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode quote array: %w", err)
		}
		return rows, nil
	}
	var row realTimeQuote
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("failed to decode quote object: %w", err)
	}
	return []realTimeQuote{row}, nil
}

// normalizeQuote maps a wire row to a Quote, dropping absent fields.
// A row with no usable price at all is dropped entirely.
func normalizeQuote(row realTimeQuote) *models.Quote {
	price, hasPrice := row.Close.Value()
	if !hasPrice {
		return nil
	}

	quote := &models.Quote{
		Symbol: row.Code,
		Price:  price,
		AsOf:   time.Unix(row.Timestamp, 0).UTC(),
	}
	if row.Timestamp == 0 {
		quote.AsOf = time.Now().UTC()
	}
	if v, ok := row.Open.Value(); ok {
		quote.Open = v
	}
	if v, ok := row.High.Value(); ok {
		quote.High = v
	}
	if v, ok := row.Low.Value(); ok {
		quote.Low = v
	}
	if v, ok := row.PreviousClose.Value(); ok {
		quote.PreviousClose = v
	}
	if v, ok := row.Change.Value(); ok {
		quote.Change = v
	}
	if v, ok := row.ChangePercent.Value(); ok {
		quote.ChangePercent = v
	}
	if v, ok := row.Volume.Value(); ok {
		quote.Volume = int64(v)
	}
	return quote
}

// eodRow is the wire shape of one end-of-day history row.
type eodRow struct {
	Date          string  `json:"date"`
	Open          naFloat `json:"open"`
	High          naFloat `json:"high"`
	Low           naFloat `json:"low"`
	Close         naFloat `json:"close"`
	AdjustedClose naFloat `json:"adjusted_close"`
	Volume        naFloat `json:"volume"`
}

// GetEOD retrieves end-of-day price history for a symbol.
// Symbol format: TICKER.EXCHANGE (e.g., "AAPL.US").
func (c *Client) GetEOD(ctx context.Context, symbol string, opts ...QueryOption) ([]models.OHLCVBar, error) {
	params := &queryParams{Period: "d", Order: "a"}
	for _, opt := range opts {
		opt(params)
	}

	query := url.Values{}
	if !params.From.IsZero() {
		query.Set("from", params.From.Format("2006-01-02"))
	}
	if !params.To.IsZero() {
		query.Set("to", params.To.Format("2006-01-02"))
	}
	if params.Period != "" {
		query.Set("period", params.Period)
	}
	if params.Order != "" {
		query.Set("order", params.Order)
	}

	var rows []eodRow
	if err := c.get(ctx, "/eod/"+symbol, query, &rows); err != nil {
		return nil, err
	}

	bars := make([]models.OHLCVBar, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			continue
		}
		bar := models.OHLCVBar{Date: date}
		if v, ok := row.Open.Value(); ok {
			bar.Open = v
		}
		if v, ok := row.High.Value(); ok {
			bar.High = v
		}
		if v, ok := row.Low.Value(); ok {
			bar.Low = v
		}
		if v, ok := row.Close.Value(); ok {
			bar.Close = v
		}
		if v, ok := row.AdjustedClose.Value(); ok {
			bar.AdjustedClose = v
		}
		if v, ok := row.Volume.Value(); ok {
			bar.Volume = int64(v)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// fundamentalsResponse is the subset of the fundamentals payload the
// service uses.
type fundamentalsResponse struct {
	General struct {
		Code         string `json:"Code"`
		Name         string `json:"Name"`
		Exchange     string `json:"Exchange"`
		CurrencyCode string `json:"CurrencyCode"`
		Sector       string `json:"Sector"`
		Industry     string `json:"Industry"`
	} `json:"General"`
	Highlights struct {
		MarketCapitalization naFloat `json:"MarketCapitalization"`
		PERatio              naFloat `json:"PERatio"`
		DividendYield        naFloat `json:"DividendYield"`
	} `json:"Highlights"`
}

// GetCompanyInfo retrieves reference data for one symbol.
func (c *Client) GetCompanyInfo(ctx context.Context, symbol string) (*models.CompanyInfo, error) {
	var resp fundamentalsResponse
	if err := c.get(ctx, "/fundamentals/"+symbol, nil, &resp); err != nil {
		return nil, err
	}

	info := &models.CompanyInfo{
		Symbol:   symbol,
		Name:     resp.General.Name,
		Sector:   resp.General.Sector,
		Industry: resp.General.Industry,
		Currency: resp.General.CurrencyCode,
		Exchange: resp.General.Exchange,
	}
	if v, ok := resp.Highlights.MarketCapitalization.Value(); ok {
		info.MarketCap = v
	}
	if v, ok := resp.Highlights.PERatio.Value(); ok {
		info.PERatio = v
	}
	if v, ok := resp.Highlights.DividendYield.Value(); ok {
		info.DividendYield = v
	}
	return info, nil
}
