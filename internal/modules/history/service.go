package history

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"folio/internal/events"
	"folio/internal/modules/valuation"
	"folio/internal/oracle"
	"folio/internal/store"
)

// Service records net worth snapshots from live valuations.
type Service struct {
	repo      *Repository
	store     *store.Store
	oracle    *oracle.Service
	valuation *valuation.Service
	events    *events.Manager
	log       zerolog.Logger
}

// NewService creates a new history service
func NewService(repo *Repository, st *store.Store, or *oracle.Service, val *valuation.Service, ev *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		store:     st,
		oracle:    or,
		valuation: val,
		events:    ev,
		log:       log.With().Str("service", "history").Logger(),
	}
}

// RecordSnapshot valuates the current portfolio and stores today's net worth
// point. Running it again on the same day overwrites the earlier value.
func (s *Service) RecordSnapshot(ctx context.Context) error {
	pf, err := s.store.Load()
	if err != nil {
		return err
	}

	snap := s.oracle.Fetch(ctx, pf.Tickers(), pf.Currencies())
	report := s.valuation.Valuate(pf, snap)

	point := Snapshot{
		Date:           time.Now().Format("2006-01-02"),
		NetWorth:       report.NetWorth,
		CashUSD:        report.CashUSD,
		PositionsValue: report.PositionsValue,
	}
	if err := s.repo.Upsert(point); err != nil {
		return err
	}

	s.events.Emit(events.SnapshotRecorded, "history", map[string]interface{}{
		"date":      point.Date,
		"net_worth": point.NetWorth,
	})

	s.log.Info().
		Str("date", point.Date).
		Float64("net_worth", point.NetWorth).
		Msg("Net worth snapshot recorded")
	return nil
}

// Series returns the recent snapshots with derived analytics.
func (s *Service) Series(days int) ([]Snapshot, Analytics, error) {
	snapshots, err := s.repo.Recent(days)
	if err != nil {
		return nil, Analytics{}, err
	}
	return snapshots, Analyze(snapshots), nil
}
