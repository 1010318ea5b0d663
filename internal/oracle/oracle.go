// Package oracle assembles price and FX snapshots for the accounting engine.
//
// Fetches fan out concurrently, one goroutine per symbol, bounded by a shared
// time budget. Failures are fail-soft: a symbol that cannot be
// priced is simply absent from the snapshot and the accounting engine
// substitutes 0.0 (price) or 1.0 (FX rate). One bad symbol must never sink a
// whole valuation.
package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"folio/internal/clientdata"
	"folio/internal/domain"
)

// maxConcurrentFetches bounds the fan-out so a large portfolio does not
// hammer the quote API.
const maxConcurrentFetches = 8

// QuoteClient is the upstream price source.
type QuoteClient interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Config holds oracle configuration
type Config struct {
	Timeout  time.Duration // total budget per Fetch call
	CacheTTL time.Duration // freshness window for cached quotes
}

// Service fetches snapshots with a persistent cache in front of the quote
// client. Cache behavior follows the exchange-rate client: fresh hits skip
// the API, API failures fall back to stale data.
type Service struct {
	quotes   QuoteClient
	cache    *clientdata.Repository
	timeout  time.Duration
	cacheTTL time.Duration
	log      zerolog.Logger
}

// cachedQuote is the blob stored per symbol.
type cachedQuote struct {
	Price     float64 `msgpack:"price"`
	FetchedAt int64   `msgpack:"fetched_at"`
}

// New creates a new oracle service. cache may be nil to disable caching.
func New(quotes QuoteClient, cache *clientdata.Repository, cfg Config, log zerolog.Logger) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		quotes:   quotes,
		cache:    cache,
		timeout:  timeout,
		cacheTTL: cfg.CacheTTL,
		log:      log.With().Str("service", "oracle").Logger(),
	}
}

// Fetch returns a snapshot for the given tickers and cash currencies. USD
// needs no rate and is never fetched. Fetch never returns an error; missing
// keys are the failure signal.
func (s *Service) Fetch(ctx context.Context, tickers, currencies []string) domain.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	snap := domain.Snapshot{
		Prices: make(map[string]float64, len(tickers)),
		FX:     make(map[string]float64, len(currencies)),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for _, t := range dedupe(tickers) {
		symbol := t
		g.Go(func() error {
			if price, ok := s.price(ctx, symbol); ok {
				mu.Lock()
				snap.Prices[symbol] = price
				mu.Unlock()
			}
			return nil // fail-soft: never cancel siblings
		})
	}

	for _, c := range dedupe(currencies) {
		if c == "USD" {
			continue
		}
		key := domain.FXKey(c)
		g.Go(func() error {
			if rate, ok := s.price(ctx, key); ok {
				mu.Lock()
				snap.FX[key] = rate
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()

	s.log.Debug().
		Int("tickers", len(tickers)).
		Int("prices", len(snap.Prices)).
		Int("fx", len(snap.FX)).
		Msg("Snapshot assembled")

	return snap
}

// price resolves one symbol: fresh cache, then the API, then stale cache.
func (s *Service) price(ctx context.Context, symbol string) (float64, bool) {
	var cached cachedQuote

	if s.cache != nil {
		if ok, err := s.cache.GetIfFresh(symbol, &cached); err == nil && ok {
			s.log.Debug().Str("symbol", symbol).Float64("price", cached.Price).Msg("Cache hit")
			return cached.Price, true
		}
	}

	price, err := s.quotes.CurrentPrice(ctx, symbol)
	if err == nil && price > 0 {
		if s.cache != nil {
			quote := cachedQuote{Price: price, FetchedAt: time.Now().Unix()}
			if storeErr := s.cache.Store(symbol, quote, s.cacheTTL); storeErr != nil {
				s.log.Warn().Err(storeErr).Str("symbol", symbol).Msg("Failed to cache quote")
			}
		}
		return price, true
	}

	// API failed; stale cache beats no data
	if s.cache != nil {
		if ok, staleErr := s.cache.GetStale(symbol, &cached); staleErr == nil && ok {
			s.log.Warn().
				Err(err).
				Str("symbol", symbol).
				Float64("price", cached.Price).
				Msg("Fetch failed, using stale cached price")
			return cached.Price, true
		}
	}

	s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch price, omitting from snapshot")
	return 0, false
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
