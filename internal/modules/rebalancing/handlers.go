package rebalancing

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"folio/internal/modules/valuation"
	"folio/internal/oracle"
	"folio/internal/store"
)

// Handler handles rebalancing HTTP requests
type Handler struct {
	store     *store.Store
	oracle    *oracle.Service
	valuation *valuation.Service
	planner   *Planner
	log       zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(st *store.Store, or *oracle.Service, val *valuation.Service, planner *Planner, log zerolog.Logger) *Handler {
	return &Handler{
		store:     st,
		oracle:    or,
		valuation: val,
		planner:   planner,
		log:       log.With().Str("handler", "rebalancing").Logger(),
	}
}

// HandleGetPlan returns buy proposals for the requested cash amount.
// GET /api/rebalancing/plan?cash=1000
func (h *Handler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	pf, err := h.store.Load()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	snap := h.oracle.Fetch(r.Context(), pf.Tickers(), pf.Currencies())
	report := h.valuation.Valuate(pf, snap)

	cash := report.CashUSD
	if raw := r.URL.Query().Get("cash"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid cash parameter")
			return
		}
		cash = parsed
	}
	// Deployable cash is capped by what the portfolio actually holds.
	if cash > report.CashUSD {
		cash = report.CashUSD
	}
	if cash < 0 {
		cash = 0
	}

	targets := make(map[string]float64, len(pf.Assets))
	for _, a := range pf.Assets {
		targets[a.Ticker] = a.TargetPercent
	}

	trades := h.planner.Plan(report, targets, cash)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cash_to_deploy": cash,
		"net_worth":      report.NetWorth,
		"trades":         trades,
	})
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
