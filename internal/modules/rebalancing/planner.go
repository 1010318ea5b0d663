// Package rebalancing proposes buy-only trades that close allocation gaps.
package rebalancing

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"folio/internal/domain"
	"folio/internal/modules/valuation"
)

// DustThreshold is the minimum proposed trade size in USD. Proposals at or
// below it are suppressed; anything smaller is not worth a trade.
const DustThreshold = 1.0

// DefaultAccount receives buys for assets with no existing holdings.
const DefaultAccount = "main"

// Planner computes rebalancing trade proposals.
type Planner struct {
	log zerolog.Logger
}

// NewPlanner creates a new rebalance planner
func NewPlanner(log zerolog.Logger) *Planner {
	return &Planner{
		log: log.With().Str("service", "rebalancing").Logger(),
	}
}

// Plan distributes cashToDeploy across underweight assets in proportion to
// their allocation gaps.
//
// targets maps ticker to target percent (0-100). Only underweight assets
// generate demand; overweight assets are never sold. The sum of proposed
// amounts never exceeds cashToDeploy, with equality only when no proposal
// was dust-filtered.
//
// Account selection: instructions carry the distinct accounts already holding
// the asset. With exactly one candidate the account is pre-filled; with none
// the default account is used; with several, Account is left empty and the
// caller must pick one before execution.
//
// The caller clamps cashToDeploy to [0, cashUSD] beforehand; the planner does
// not revalidate.
func (pl *Planner) Plan(report *valuation.Report, targets map[string]float64, cashToDeploy float64) []domain.TradeInstruction {
	gaps := make([]float64, len(report.Assets))
	for i := range report.Assets {
		a := &report.Assets[i]
		targetValue := targets[a.Ticker] / 100 * report.NetWorth
		if gap := targetValue - a.MarketValue; gap > 0 {
			gaps[i] = gap
		}
	}

	totalGap := floats.Sum(gaps)
	if totalGap == 0 {
		pl.log.Debug().Msg("No underweight assets, nothing to plan")
		return []domain.TradeInstruction{}
	}

	trades := make([]domain.TradeInstruction, 0, len(report.Assets))
	for i := range report.Assets {
		if gaps[i] == 0 {
			continue
		}
		a := &report.Assets[i]

		amount := gaps[i] / totalGap * cashToDeploy
		if amount <= DustThreshold {
			pl.log.Debug().
				Str("ticker", a.Ticker).
				Float64("amount", amount).
				Msg("Proposal below dust threshold, skipping")
			continue
		}

		account := ""
		switch len(a.Accounts) {
		case 0:
			account = DefaultAccount
		case 1:
			account = a.Accounts[0]
		}

		trades = append(trades, domain.TradeInstruction{
			Ticker:            a.Ticker,
			Amount:            amount,
			Account:           account,
			Price:             a.Price,
			AccountCandidates: a.Accounts,
		})
	}

	pl.log.Info().
		Float64("cash_to_deploy", cashToDeploy).
		Float64("total_gap", totalGap).
		Int("proposals", len(trades)).
		Msg("Rebalance plan computed")

	return trades
}
