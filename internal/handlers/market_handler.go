package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
)

// MarketHandler exposes cached market data reads.
type MarketHandler struct {
	market interfaces.MarketDataService
	logger arbor.ILogger
}

func NewMarketHandler(market interfaces.MarketDataService, logger arbor.ILogger) *MarketHandler {
	return &MarketHandler{
		market: market,
		logger: logger,
	}
}

// QuotesHandler returns cached quotes for ?symbols=A,B,C.
func (h *MarketHandler) QuotesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	raw := r.URL.Query().Get("symbols")
	if strings.TrimSpace(raw) == "" {
		WriteError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}

	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(s); t != "" {
			symbols = append(symbols, t)
		}
	}

	quotes, err := h.market.GetQuotes(r.Context(), symbols)
	if err != nil {
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteData(w, quotes)
}

// SummaryHandler returns benchmark index levels.
func (h *MarketHandler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	indices, err := h.market.GetMarketSummary(r.Context())
	if err != nil {
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteData(w, indices)
}
