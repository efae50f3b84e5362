package llmobs

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/logger"
	"xau-signal-bot/internal/trace"
	"xau-signal-bot/internal/types"
)

// observableRequester wraps a SignalRequester with observability (logging & tracing)
type observableRequester struct {
	provider  string
	requester interfaces.SignalRequester
}

// Compile-time interface check
var _ interfaces.SignalRequester = (*observableRequester)(nil)

// Wrap wraps a requester with observability middleware
func Wrap(provider string, requester interfaces.SignalRequester) interfaces.SignalRequester {
	return &observableRequester{provider: provider, requester: requester}
}

func (or *observableRequester) Request(ctx context.Context, w types.CandleWindow) (types.Signal, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Request")
	defer span.End()
	span.SetAttributes(attribute.String("provider", or.provider), attribute.Int("candles", len(w)))

	// Use InfoSkip(1) to report the actual caller, not this middleware wrapper
	logger.InfoSkip(ctx, 1, "Requesting trading signal",
		"provider", or.provider,
		"candles", len(w),
		"latest_close", w.Latest().Close,
	)

	sig, err := or.requester.Request(ctx, w)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get trading signal", err,
			"provider", or.provider,
		)
		return types.Signal{}, err
	}

	span.SetAttributes(attribute.Int("confidence", sig.Confidence))
	logger.InfoSkip(ctx, 1, "Trading signal received",
		"provider", or.provider,
		"short_term_action", sig.ShortTermAction,
		"long_term_action", sig.LongTermAction,
		"confidence", sig.Confidence,
	)
	return sig, nil
}
