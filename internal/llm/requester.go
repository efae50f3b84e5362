package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/logger"
	"xau-signal-bot/internal/ta"
	"xau-signal-bot/internal/types"
)

type Params struct {
	Symbol   string
	Interval string
	Extended bool
}

type Option func(*Requester)

// WithClock overrides the clock used to stamp signals.
func WithClock(now func() time.Time) Option {
	return func(r *Requester) { r.now = now }
}

// Requester builds the prompt, calls a chat backend and parses the answer.
type Requester struct {
	p         Params
	completer interfaces.Completer
	now       func() time.Time
}

var _ interfaces.SignalRequester = (*Requester)(nil)

func NewRequester(p Params, c interfaces.Completer, opts ...Option) *Requester {
	r := &Requester{p: p, completer: c, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Requester) Request(ctx context.Context, w types.CandleWindow) (types.Signal, error) {
	if len(w) == 0 {
		return types.Signal{}, fmt.Errorf("%w: empty candle window", types.ErrRequestFailed)
	}

	snap := ta.Compute(w)
	system, user := BuildPrompt(r.p.Symbol, r.p.Interval, w, snap, r.p.Extended)
	logger.Debug(ctx, "Prompt built", "chars", len(user), "candles", len(w), "extended", r.p.Extended)

	content, err := r.completer.Complete(ctx, system, user)
	if err != nil {
		if errors.Is(err, types.ErrRequestFailed) {
			return types.Signal{}, err
		}
		return types.Signal{}, fmt.Errorf("%w: %w", types.ErrRequestFailed, err)
	}

	sig, err := ParseSignal(content, r.p.Extended, r.now().Truncate(time.Second))
	if err != nil {
		logger.Debug(ctx, "Unparsable model answer", "content", content)
		return types.Signal{}, err
	}
	return sig, nil
}
