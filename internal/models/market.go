package models

import "time"

// Quote is the normalized latest-price record for one symbol. Missing
// upstream fields stay zero-valued and are omitted from JSON rather
// than carried as NaN.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price,omitempty"`
	Open          float64   `json:"open,omitempty"`
	High          float64   `json:"high,omitempty"`
	Low           float64   `json:"low,omitempty"`
	PreviousClose float64   `json:"previous_close,omitempty"`
	Volume        int64     `json:"volume,omitempty"`
	Change        float64   `json:"change,omitempty"`
	ChangePercent float64   `json:"change_percent,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	AsOf          time.Time `json:"as_of"`
}

// OHLCVBar is one row of daily price history.
type OHLCVBar struct {
	Date          time.Time `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close,omitempty"`
	Volume        int64     `json:"volume"`
}

// CompanyInfo holds reference data for one listed company.
type CompanyInfo struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Sector        string  `json:"sector,omitempty"`
	Industry      string  `json:"industry,omitempty"`
	MarketCap     float64 `json:"market_cap,omitempty"`
	PERatio       float64 `json:"pe_ratio,omitempty"`
	DividendYield float64 `json:"dividend_yield,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	Exchange      string  `json:"exchange,omitempty"`
}

// IndexLevel is one benchmark index reading for the market summary.
type IndexLevel struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Level         float64 `json:"level"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// SectorPerf is one sector's aggregate daily move.
type SectorPerf struct {
	Sector        string  `json:"sector"`
	ChangePercent float64 `json:"change_percent"`
}

// MacroIndicator is one macro reading (rate, fx, commodity).
type MacroIndicator struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}
