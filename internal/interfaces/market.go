package interfaces

import (
	"context"

	"xau-signal-bot/internal/types"
)

// CandleProvider returns raw candles of symbol covering period. Results may
// be unordered, contain duplicates, or hold fewer candles than requested.
type CandleProvider interface {
	Candles(ctx context.Context, symbol, interval string, period types.Period) ([]types.Candle, error)
}

// Fetcher produces a clean window of exactly the configured candle count.
type Fetcher interface {
	Fetch(ctx context.Context) (types.CandleWindow, error)
}
