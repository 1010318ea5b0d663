package trading

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"folio/internal/domain"
)

// Handler handles trade execution HTTP requests
type Handler struct {
	executor *Executor
	log      zerolog.Logger
}

// NewHandler creates a new trading handler
func NewHandler(executor *Executor, log zerolog.Logger) *Handler {
	return &Handler{
		executor: executor,
		log:      log.With().Str("handler", "trading").Logger(),
	}
}

type executeRequest struct {
	Trades []domain.TradeInstruction `json:"trades"`
}

// HandleExecuteTrades applies a batch of buy instructions.
// POST /api/trades
func (h *Handler) HandleExecuteTrades(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.executor.Execute(req.Trades)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrUnknownTicker) || errors.Is(err, domain.ErrInvalidPrice) {
			status = http.StatusUnprocessableEntity
		}
		h.writeError(w, status, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"executed":  len(req.Trades),
		"portfolio": updated,
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
