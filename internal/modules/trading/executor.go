// Package trading applies buy instructions to the stored portfolio.
package trading

import (
	"fmt"

	"github.com/rs/zerolog"

	"folio/internal/domain"
	"folio/internal/events"
	"folio/internal/store"
)

// Executor validates and applies trade batches.
type Executor struct {
	store  *store.Store
	events *events.Manager
	log    zerolog.Logger
}

// NewExecutor creates a new trade executor
func NewExecutor(st *store.Store, ev *events.Manager, log zerolog.Logger) *Executor {
	return &Executor{
		store:  st,
		events: ev,
		log:    log.With().Str("service", "trading").Logger(),
	}
}

// Execute applies a batch of buy instructions atomically. The whole batch is
// validated against the freshly loaded portfolio before any lot or cash
// balance changes; a single bad instruction rejects the batch and the stored
// file is untouched.
//
// Purchases debit the USD cash balance. The balance is allowed to go
// negative, it is only logged.
func (e *Executor) Execute(instructions []domain.TradeInstruction) (*domain.Portfolio, error) {
	if len(instructions) == 0 {
		return e.store.Load()
	}

	updated, err := e.store.Update(func(p *domain.Portfolio) error {
		for i, inst := range instructions {
			if err := validate(p, inst); err != nil {
				return fmt.Errorf("instruction %d (%s): %w", i, inst.Ticker, err)
			}
		}
		for _, inst := range instructions {
			apply(p, inst)
		}

		if cash := p.CashBalances["USD"]; cash < 0 {
			e.log.Warn().
				Float64("usd_balance", cash).
				Msg("USD cash balance went negative after trade batch")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := 0.0
	tickers := make([]string, 0, len(instructions))
	for _, inst := range instructions {
		total += inst.Amount
		tickers = append(tickers, inst.Ticker)
	}
	e.events.Emit(events.TradeExecuted, "trading", map[string]interface{}{
		"trades":       len(instructions),
		"tickers":      tickers,
		"total_amount": total,
	})

	e.log.Info().
		Int("trades", len(instructions)).
		Float64("total_amount", total).
		Msg("Trade batch executed")

	return updated, nil
}

func validate(p *domain.Portfolio, inst domain.TradeInstruction) error {
	if p.FindAsset(inst.Ticker) == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnknownTicker, inst.Ticker)
	}
	if inst.Price <= 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPrice, inst.Price)
	}
	if inst.Account == "" {
		return fmt.Errorf("account not specified for %s", inst.Ticker)
	}
	if inst.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %v", inst.Amount)
	}
	return nil
}

// apply merges the purchase into the lot for (ticker, account), creating it
// if needed, and debits USD cash.
func apply(p *domain.Portfolio, inst domain.TradeInstruction) {
	asset := p.FindAsset(inst.Ticker)
	newShares := inst.Amount / inst.Price

	merged := false
	for i := range asset.Holdings {
		h := &asset.Holdings[i]
		if h.Account != inst.Account {
			continue
		}
		totalShares := h.Shares + newShares
		h.AvgPrice = (h.Shares*h.AvgPrice + inst.Amount) / totalShares
		h.Shares = totalShares
		merged = true
		break
	}
	if !merged {
		asset.Holdings = append(asset.Holdings, domain.Holding{
			Account:  inst.Account,
			Shares:   newShares,
			AvgPrice: inst.Price,
		})
	}

	p.CashBalances["USD"] -= inst.Amount
}
