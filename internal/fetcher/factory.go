package fetcher

import (
	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/store"
)

func New(cfg *store.Config, provider interfaces.CandleProvider, opts ...Option) (*Fetcher, error) {
	periods, err := cfg.Periods()
	if err != nil {
		return nil, err
	}
	return NewFetcher(Params{
		Symbol:        cfg.Data.Symbol,
		Interval:      cfg.Data.Interval,
		Limit:         cfg.Data.Limit,
		Periods:       periods,
		MaxAttempts:   cfg.Fetch.MaxAttempts,
		PeriodDelay:   cfg.Fetch.PeriodDelay,
		AttemptDelay:  cfg.Fetch.AttemptDelay,
		BackoffFactor: cfg.Fetch.BackoffFactor,
		MaxDelay:      cfg.Fetch.MaxDelay,
		StaleAfter:    cfg.Fetch.StaleAfter,
	}, provider, opts...), nil
}
