package interfaces

import (
	"context"

	"xau-signal-bot/internal/types"
)

// SignalRequester turns a candle window into a validated signal.
type SignalRequester interface {
	Request(ctx context.Context, window types.CandleWindow) (types.Signal, error)
}

// Completer sends one system/user prompt pair to a chat model and returns
// the raw text of the first choice.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// SignalLog is the bounded, append-only signal history.
type SignalLog interface {
	Load(ctx context.Context) ([]types.Signal, error)
	// Append adds sig and returns the row count after trimming.
	Append(ctx context.Context, sig types.Signal) (int, error)
}
