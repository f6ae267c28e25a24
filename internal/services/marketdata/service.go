package marketdata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/marketdata"
	"github.com/ternarybob/indago/internal/models"
)

// quoteClient is the upstream API surface the service consumes.
type quoteClient interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error)
	GetEOD(ctx context.Context, symbol string, opts ...marketdata.QueryOption) ([]models.OHLCVBar, error)
	GetCompanyInfo(ctx context.Context, symbol string) (*models.CompanyInfo, error)
}

// benchmarkNames maps benchmark index symbols to display names.
var benchmarkNames = map[string]string{
	"GSPC.INDX": "S&P 500",
	"IXIC.INDX": "NASDAQ Composite",
	"DJI.INDX":  "Dow Jones Industrial Average",
	"AXJO.INDX": "S&P/ASX 200",
	"FTSE.INDX": "FTSE 100",
	"N225.INDX": "Nikkei 225",
}

// sectorProxies maps sector names to their ETF proxy symbols.
var sectorProxies = []struct {
	Sector string
	Symbol string
}{
	{"Technology", "XLK.US"},
	{"Financials", "XLF.US"},
	{"Health Care", "XLV.US"},
	{"Energy", "XLE.US"},
	{"Consumer Discretionary", "XLY.US"},
	{"Consumer Staples", "XLP.US"},
	{"Industrials", "XLI.US"},
	{"Utilities", "XLU.US"},
	{"Materials", "XLB.US"},
	{"Real Estate", "XLRE.US"},
	{"Communication Services", "XLC.US"},
}

// macroNames maps macro symbols to display names and units.
var macroNames = map[string]struct {
	Name string
	Unit string
}{
	"US10Y.GBOND":  {"US 10Y Treasury Yield", "%"},
	"US2Y.GBOND":   {"US 2Y Treasury Yield", "%"},
	"EURUSD.FOREX": {"EUR/USD", ""},
	"AUDUSD.FOREX": {"AUD/USD", ""},
	"USDJPY.FOREX": {"USD/JPY", ""},
	"GC.COMM":      {"Gold", "USD/oz"},
	"CL.COMM":      {"WTI Crude", "USD/bbl"},
}

type cacheEntry struct {
	value   interface{}
	expires time.Time
}

// Service fronts the quote API with an in-memory TTL cache. Repeated
// reads inside the cache window never hit the upstream.
type Service struct {
	client quoteClient
	config *common.MarketConfig
	logger arbor.ILogger

	ttl   time.Duration
	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewService creates a market data service backed by the real API client.
func NewService(config *common.MarketConfig, logger arbor.ILogger) *Service {
	opts := []marketdata.ClientOption{
		marketdata.WithLogger(logger),
		marketdata.WithRateLimit(config.RateLimitPerSecond),
	}
	if config.BaseURL != "" {
		opts = append(opts, marketdata.WithBaseURL(config.BaseURL))
	}
	client := marketdata.NewClient(config.APIKey, opts...)
	return newServiceWithClient(client, config, logger)
}

func newServiceWithClient(client quoteClient, config *common.MarketConfig, logger arbor.ILogger) *Service {
	return &Service{
		client: client,
		config: config,
		logger: logger,
		ttl:    time.Duration(config.CacheTTLSeconds) * time.Second,
		cache:  make(map[string]cacheEntry),
	}
}

// cached returns a fresh cache entry for key, or nil.
func (s *Service) cached(key string) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[key]
	if !ok || time.Now().After(entry.expires) {
		return nil
	}
	return entry.value
}

func (s *Service) store(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{value: value, expires: time.Now().Add(s.ttl)}
}

// GetQuotes returns latest quotes for the given symbols. The result
// shape is the same for one symbol and for many. Quotes are cached per
// symbol, so a symbol priced by one request stays warm for any later
// request that includes it.
func (s *Service) GetQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error) {
	if len(symbols) == 0 {
		return map[string]*models.Quote{}, nil
	}

	result := make(map[string]*models.Quote, len(symbols))
	var misses []string
	for _, symbol := range symbols {
		if v := s.cached("quote:" + symbol); v != nil {
			result[symbol] = v.(*models.Quote)
			continue
		}
		misses = append(misses, symbol)
	}

	if len(misses) > 0 {
		quotes, err := s.client.GetQuotes(ctx, misses)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch quotes: %w", err)
		}
		for symbol, quote := range quotes {
			s.store("quote:"+symbol, quote)
			result[symbol] = quote
		}
	}

	return result, nil
}

// GetHistory returns daily price history for a symbol over [from, to].
func (s *Service) GetHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.OHLCVBar, error) {
	key := fmt.Sprintf("eod:%s:%s:%s", symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))

	if v := s.cached(key); v != nil {
		return v.([]models.OHLCVBar), nil
	}

	bars, err := s.client.GetEOD(ctx, symbol, marketdata.WithDateRange(from, to))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}

	s.store(key, bars)
	return bars, nil
}

// GetCompanyInfo returns reference data for one symbol.
func (s *Service) GetCompanyInfo(ctx context.Context, symbol string) (*models.CompanyInfo, error) {
	key := "info:" + symbol

	if v := s.cached(key); v != nil {
		return v.(*models.CompanyInfo), nil
	}

	info, err := s.client.GetCompanyInfo(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company info for %s: %w", symbol, err)
	}

	s.store(key, info)
	return info, nil
}

// GetMarketSummary returns current levels for the configured benchmark
// indices. Benchmarks the upstream cannot price are skipped.
func (s *Service) GetMarketSummary(ctx context.Context) ([]models.IndexLevel, error) {
	if v := s.cached("summary"); v != nil {
		return v.([]models.IndexLevel), nil
	}

	quotes, err := s.GetQuotes(ctx, s.config.Benchmarks)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market summary: %w", err)
	}

	levels := make([]models.IndexLevel, 0, len(s.config.Benchmarks))
	for _, symbol := range s.config.Benchmarks {
		quote, ok := quotes[symbol]
		if !ok {
			if s.logger != nil {
				s.logger.Warn().Str("symbol", symbol).Msg("Benchmark unavailable, skipping")
			}
			continue
		}
		name := benchmarkNames[symbol]
		if name == "" {
			name = symbol
		}
		levels = append(levels, models.IndexLevel{
			Symbol:        symbol,
			Name:          name,
			Level:         quote.Price,
			Change:        quote.Change,
			ChangePercent: quote.ChangePercent,
		})
	}

	s.store("summary", levels)
	return levels, nil
}

// GetSectorPerformance returns each sector's daily move via its ETF
// proxy. Sectors whose proxy cannot be priced are skipped.
func (s *Service) GetSectorPerformance(ctx context.Context) ([]models.SectorPerf, error) {
	if v := s.cached("sectors"); v != nil {
		return v.([]models.SectorPerf), nil
	}

	symbols := make([]string, 0, len(sectorProxies))
	for _, p := range sectorProxies {
		symbols = append(symbols, p.Symbol)
	}

	quotes, err := s.GetQuotes(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sector performance: %w", err)
	}

	perf := make([]models.SectorPerf, 0, len(sectorProxies))
	for _, p := range sectorProxies {
		quote, ok := quotes[p.Symbol]
		if !ok {
			continue
		}
		perf = append(perf, models.SectorPerf{
			Sector:        p.Sector,
			ChangePercent: quote.ChangePercent,
		})
	}

	sort.Slice(perf, func(i, j int) bool {
		return perf[i].ChangePercent > perf[j].ChangePercent
	})

	s.store("sectors", perf)
	return perf, nil
}

// GetMacroIndicators returns readings for the configured macro symbols.
func (s *Service) GetMacroIndicators(ctx context.Context) ([]models.MacroIndicator, error) {
	if v := s.cached("macro"); v != nil {
		return v.([]models.MacroIndicator), nil
	}

	quotes, err := s.GetQuotes(ctx, s.config.MacroSymbols)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch macro indicators: %w", err)
	}

	indicators := make([]models.MacroIndicator, 0, len(s.config.MacroSymbols))
	for _, symbol := range s.config.MacroSymbols {
		quote, ok := quotes[symbol]
		if !ok {
			if s.logger != nil {
				s.logger.Warn().Str("symbol", symbol).Msg("Macro symbol unavailable, skipping")
			}
			continue
		}
		entry, known := macroNames[symbol]
		name, unit := symbol, ""
		if known {
			name, unit = entry.Name, entry.Unit
		}
		indicators = append(indicators, models.MacroIndicator{
			Name:  name,
			Value: quote.Price,
			Unit:  unit,
		})
	}

	s.store("macro", indicators)
	return indicators, nil
}

var _ interfaces.MarketDataService = (*Service)(nil)
