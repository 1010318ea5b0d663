package oracle

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"folio/internal/store"
)

// Handler handles market data HTTP requests
type Handler struct {
	oracle *Service
	store  *store.Store
	log    zerolog.Logger
}

// NewHandler creates a new market data handler
func NewHandler(or *Service, st *store.Store, log zerolog.Logger) *Handler {
	return &Handler{
		oracle: or,
		store:  st,
		log:    log.With().Str("handler", "market_data").Logger(),
	}
}

// HandleGetMarketData returns prices and FX rates. With no query parameters
// it covers everything the stored portfolio references; explicit tickers or
// currencies narrow the fetch.
// GET /api/market-data?tickers=AAPL,MSFT&currencies=JPY
func (h *Handler) HandleGetMarketData(w http.ResponseWriter, r *http.Request) {
	tickers := splitParam(r.URL.Query().Get("tickers"))
	currencies := splitParam(r.URL.Query().Get("currencies"))

	if tickers == nil && currencies == nil {
		pf, err := h.store.Load()
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		tickers = pf.Tickers()
		currencies = pf.Currencies()
	}

	snap := h.oracle.Fetch(r.Context(), tickers, currencies)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"prices": snap.Prices,
		"fx":     snap.FX,
	})
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
