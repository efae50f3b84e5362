// Package fetcher turns an unreliable candle provider into a window of
// exactly N clean candles, walking a fallback list of lookback periods and
// retrying the whole list a bounded number of times.
package fetcher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jpillora/backoff"

	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/logger"
	"xau-signal-bot/internal/types"
)

type Params struct {
	Symbol   string
	Interval string
	Limit    int
	Periods  []types.Period

	MaxAttempts   int
	PeriodDelay   time.Duration
	AttemptDelay  time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration
	StaleAfter    time.Duration
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type Option func(*Fetcher)

func WithSleeper(s Sleeper) Option {
	return func(f *Fetcher) { f.sleep = s }
}

func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

type Fetcher struct {
	p        Params
	provider interfaces.CandleProvider

	periodDelay  *backoff.Backoff
	attemptDelay *backoff.Backoff

	sleep Sleeper
	now   func() time.Time
}

var _ interfaces.Fetcher = (*Fetcher)(nil)

func NewFetcher(p Params, provider interfaces.CandleProvider, opts ...Option) *Fetcher {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	f := &Fetcher{
		p:            p,
		provider:     provider,
		periodDelay:  schedule(p.PeriodDelay, p.BackoffFactor, p.MaxDelay),
		attemptDelay: schedule(p.AttemptDelay, p.BackoffFactor, p.MaxDelay),
		sleep:        sleepCtx,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// schedule returns nil for a zero base delay; backoff.Backoff would
// otherwise substitute its own 100ms minimum.
func schedule(base time.Duration, factor float64, ceiling time.Duration) *backoff.Backoff {
	if base <= 0 {
		return nil
	}
	if factor < 1 {
		factor = 1
	}
	if ceiling < base {
		ceiling = base
	}
	return &backoff.Backoff{Min: base, Max: ceiling, Factor: factor}
}

func delayFor(b *backoff.Backoff, n int) time.Duration {
	if b == nil {
		return 0
	}
	return b.ForAttempt(float64(n))
}

// cursor is the fetch position: outer attempt and index into Periods.
type cursor struct {
	attempt int
	period  int
}

// advance moves past a failed cursor. It returns the next cursor and the
// delay to wait before trying it, or done once every attempt is spent.
func (f *Fetcher) advance(c cursor) (next cursor, delay time.Duration, done bool) {
	if c.period+1 < len(f.p.Periods) {
		return cursor{attempt: c.attempt, period: c.period + 1}, delayFor(f.periodDelay, c.period), false
	}
	if c.attempt+1 < f.p.MaxAttempts {
		return cursor{attempt: c.attempt + 1}, delayFor(f.attemptDelay, c.attempt), false
	}
	return c, 0, true
}

// Fetch returns exactly Limit candles, ascending with naive timestamps, or
// an error wrapping types.ErrDataUnavailable.
func (f *Fetcher) Fetch(ctx context.Context) (types.CandleWindow, error) {
	if len(f.p.Periods) == 0 {
		return nil, fmt.Errorf("%w: no lookback periods configured", types.ErrDataUnavailable)
	}

	var (
		c       cursor
		lastErr error
	)
	for {
		period := f.p.Periods[c.period]
		window, err := f.try(ctx, period)
		if err == nil {
			f.noteStaleness(ctx, window)
			logger.Info(ctx, "Candle window ready",
				"symbol", f.p.Symbol,
				"period", period.Label,
				"attempt", c.attempt+1,
				"candles", len(window),
				"latest", window.Latest().Time.Format(time.DateTime),
			)
			return window, nil
		}
		lastErr = err

		next, delay, done := f.advance(c)
		if done {
			return nil, fmt.Errorf("%w: %s %s after %d attempts over %d periods: %w",
				types.ErrDataUnavailable, f.p.Symbol, f.p.Interval, f.p.MaxAttempts, len(f.p.Periods), lastErr)
		}
		if next.attempt != c.attempt {
			logger.Warn(ctx, "All periods failed, retrying",
				"symbol", f.p.Symbol,
				"attempt", c.attempt+1,
				"max_attempts", f.p.MaxAttempts,
				"delay", delay,
			)
		}
		if err := f.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrDataUnavailable, err)
		}
		c = next
	}
}

// try performs one provider request and classifies its failure.
func (f *Fetcher) try(ctx context.Context, period types.Period) (types.CandleWindow, error) {
	raw, err := f.provider.Candles(ctx, f.p.Symbol, f.p.Interval, period)
	if err != nil {
		logger.Warn(ctx, "Fetch failed",
			"symbol", f.p.Symbol,
			"period", period.Label,
			"cause", "transport",
			"error", err,
		)
		return nil, fmt.Errorf("period %s: %w", period.Label, err)
	}

	clean := sanitize(raw)
	if len(clean) < f.p.Limit {
		logger.Warn(ctx, "Fetch failed",
			"symbol", f.p.Symbol,
			"period", period.Label,
			"cause", "insufficient",
			"got", len(clean),
			"need", f.p.Limit,
		)
		return nil, fmt.Errorf("period %s: insufficient data: got %d candles, need %d", period.Label, len(clean), f.p.Limit)
	}
	return types.CandleWindow(clean[len(clean)-f.p.Limit:]), nil
}

func (f *Fetcher) noteStaleness(ctx context.Context, w types.CandleWindow) {
	if f.p.StaleAfter <= 0 {
		return
	}
	latest := w.Latest().Time.UTC()
	age := f.now().UTC().Sub(latest)
	if age > f.p.StaleAfter {
		logger.Info(ctx, "Note: stale/weekend data",
			"symbol", f.p.Symbol,
			"latest", latest.Format(time.DateTime),
			"age", age.Round(time.Minute).String(),
		)
	}
}

// sanitize drops invalid rows, strips zone offsets, sorts ascending and
// keeps the last occurrence of any duplicated timestamp.
func sanitize(raw []types.Candle) []types.Candle {
	out := make([]types.Candle, 0, len(raw))
	for _, c := range raw {
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 || c.Volume < 0 {
			continue
		}
		c.Time = types.NaiveTime(c.Time)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for _, c := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(c.Time) {
			dedup[n-1] = c
			continue
		}
		dedup = append(dedup, c)
	}
	return dedup
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
