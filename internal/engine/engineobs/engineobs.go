package engineobs

import (
	"context"
	"time"

	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/logger"
	"xau-signal-bot/internal/trace"
	"xau-signal-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
	symbol string
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(symbol string, eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
		symbol: symbol,
	}
}

func (oe *observableEngine) Run(ctx context.Context) (*types.RunResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Run")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting signal run",
		"symbol", oe.symbol,
	)

	result, err := oe.engine.Run(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Signal run failed", err,
			"symbol", oe.symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Signal run completed",
		"symbol", oe.symbol,
		"short_term_action", result.Signal.ShortTermAction,
		"long_term_action", result.Signal.LongTermAction,
		"confidence", result.Signal.Confidence,
		"candles", result.Candles,
		"log_rows", result.LogRows,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}
