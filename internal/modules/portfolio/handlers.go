// Package portfolio exposes the stored portfolio over HTTP.
package portfolio

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"folio/internal/domain"
	"folio/internal/events"
	"folio/internal/modules/valuation"
	"folio/internal/oracle"
	"folio/internal/store"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	store     *store.Store
	oracle    *oracle.Service
	valuation *valuation.Service
	events    *events.Manager
	log       zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(st *store.Store, or *oracle.Service, val *valuation.Service, ev *events.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		store:     st,
		oracle:    or,
		valuation: val,
		events:    ev,
		log:       log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio returns the stored portfolio together with a live
// valuation report.
// GET /api/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	pf, err := h.store.Load()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	snap := h.oracle.Fetch(r.Context(), pf.Tickers(), pf.Currencies())
	report := h.valuation.Valuate(pf, snap)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": pf,
		"report":    report,
	})
}

// HandleSavePortfolio replaces the stored portfolio with the request body.
// The previous version is backed up first.
// POST /api/portfolio
func (h *Handler) HandleSavePortfolio(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	pf, err := domain.ParsePortfolio(body)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.store.Save(pf); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.events.Emit(events.PortfolioChanged, "portfolio", map[string]interface{}{
		"assets":     len(pf.Assets),
		"currencies": len(pf.CashBalances),
	})

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"saved": true})
}

// HandleRollback restores the most recent backup, replacing the current
// portfolio. The consumed backup is removed so repeated calls walk further
// back in time.
// POST /api/rollback
func (h *Handler) HandleRollback(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Rollback(); err != nil {
		if errors.Is(err, domain.ErrNoBackup) {
			h.writeError(w, http.StatusConflict, "no backups available")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.events.Emit(events.PortfolioRolledBack, "portfolio", nil)

	pf, err := h.store.Load()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"portfolio": pf})
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
