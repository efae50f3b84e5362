package engine

import (
	"context"

	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/logger"
	"xau-signal-bot/internal/types"
)

// Engine runs the pipeline once: fetch a candle window, ask the model for a
// signal, append it to the log. The first failing stage aborts the run.
type Engine struct {
	symbol    string
	fetcher   interfaces.Fetcher
	requester interfaces.SignalRequester
	log       interfaces.SignalLog
}

var _ interfaces.Engine = (*Engine)(nil)

func NewEngine(symbol string, f interfaces.Fetcher, r interfaces.SignalRequester, l interfaces.SignalLog) *Engine {
	return &Engine{symbol: symbol, fetcher: f, requester: r, log: l}
}

func (e *Engine) Run(ctx context.Context) (*types.RunResult, error) {
	logger.Debug(ctx, "Starting signal run", "symbol", e.symbol)

	window, err := e.fetcher.Fetch(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch candles", err, "symbol", e.symbol)
		return nil, err
	}
	latest := window.Latest()
	logger.Debug(ctx, "Candles fetched successfully",
		"symbol", e.symbol,
		"count", len(window),
		"latest_time", latest.Time,
		"latest_close", latest.Close,
	)

	sig, err := e.requester.Request(ctx, window)
	if err != nil {
		logger.ErrorWithErr(ctx, "Signal request failed", err, "symbol", e.symbol)
		return nil, err
	}

	rows, err := e.log.Append(ctx, sig)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist signal", err, "symbol", e.symbol)
		return nil, err
	}

	logger.Signal(ctx, e.symbol, sig, "log_rows", rows, "latest_close", latest.Close)

	return &types.RunResult{
		Signal:      sig,
		Symbol:      e.symbol,
		Candles:     len(window),
		LatestTime:  latest.Time,
		LatestClose: latest.Close,
		LogRows:     rows,
	}, nil
}
