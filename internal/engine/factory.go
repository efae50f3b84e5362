package engine

import (
	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/store"
)

func New(cfg *store.Config, f interfaces.Fetcher, r interfaces.SignalRequester, l interfaces.SignalLog) interfaces.Engine {
	return NewEngine(cfg.Data.Symbol, f, r, l)
}
