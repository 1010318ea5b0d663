// Package yahoo fetches last-trade prices from Yahoo Finance.
package yahoo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// Client fetches quotes using the go-yfinance library. The library has no
// context support, so each fetch runs in a goroutine and the caller's context
// bounds the wait.
type Client struct {
	log zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// CurrentPrice returns the last trade price for a symbol. FX symbols use
// Yahoo pair notation, e.g. "JPYUSD=X".
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	type result struct {
		price float64
		err   error
	}

	ch := make(chan result, 1)
	go func() {
		price, err := c.fetch(symbol)
		ch <- result{price: price, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case r := <-ch:
		return r.price, r.err
	}
}

// fetch tries the fast quote endpoint first, then falls back to the full
// info payload the same way the quote page does.
func (c *Client) fetch(symbol string) (float64, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to create ticker for %s: %w", symbol, err)
	}
	defer t.Close()

	quote, err := t.Quote()
	if err == nil && quote != nil {
		if quote.RegularMarketPrice > 0 {
			return quote.RegularMarketPrice, nil
		}
		if quote.PreMarketPrice > 0 {
			return quote.PreMarketPrice, nil
		}
		if quote.PostMarketPrice > 0 {
			return quote.PostMarketPrice, nil
		}
	}

	info, err := t.Info()
	if err != nil {
		return 0, fmt.Errorf("failed to get info for %s: %w", symbol, err)
	}
	if info.CurrentPrice > 0 {
		return info.CurrentPrice, nil
	}
	if info.RegularMarketPreviousClose > 0 {
		return info.RegularMarketPreviousClose, nil
	}

	return 0, fmt.Errorf("no valid price for %s", symbol)
}
