package marketobs

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/logger"
	"xau-signal-bot/internal/trace"
	"xau-signal-bot/internal/types"
)

// observableProvider wraps a CandleProvider with logging & tracing
type observableProvider struct {
	name     string
	provider interfaces.CandleProvider
}

var _ interfaces.CandleProvider = (*observableProvider)(nil)

// Wrap wraps a candle provider with observability middleware
func Wrap(name string, provider interfaces.CandleProvider) interfaces.CandleProvider {
	return &observableProvider{name: name, provider: provider}
}

func (op *observableProvider) Candles(ctx context.Context, symbol, interval string, period types.Period) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.Candles")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", op.name),
		attribute.String("symbol", symbol),
		attribute.String("interval", interval),
		attribute.String("period", period.Label),
	)

	logger.DebugSkip(ctx, 1, "Requesting candles",
		"provider", op.name,
		"symbol", symbol,
		"interval", interval,
		"period", period.Label,
	)

	candles, err := op.provider.Candles(ctx, symbol, interval, period)
	if err != nil {
		// non-fatal; the fetcher owns retries
		logger.WarnSkip(ctx, 1, "Candle request failed",
			"provider", op.name,
			"symbol", symbol,
			"period", period.Label,
			"error", err,
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int("candles", len(candles)))
	logger.DebugSkip(ctx, 1, "Candles received",
		"provider", op.name,
		"symbol", symbol,
		"period", period.Label,
		"count", len(candles),
	)
	return candles, nil
}
