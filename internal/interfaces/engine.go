package interfaces

import (
	"context"

	"xau-signal-bot/internal/types"
)

// Engine runs one fetch, request, persist pass.
type Engine interface {
	Run(ctx context.Context) (*types.RunResult, error)
}
