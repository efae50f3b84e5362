// Package static synthesizes a deterministic random-walk candle series for
// dry runs without network access.
package static

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/types"
)

const maxCandles = 2000

type Provider struct {
	Base float64
	now  func() time.Time
}

var _ interfaces.CandleProvider = (*Provider)(nil)

func New() *Provider {
	return &Provider{Base: 2300, now: time.Now}
}

// Candles returns one candle per interval step across period, ending at the
// last completed step. The same symbol and step always give the same prices.
func (p *Provider) Candles(ctx context.Context, symbol, interval string, period types.Period) ([]types.Candle, error) {
	step, err := types.IntervalDuration(interval)
	if err != nil {
		return nil, err
	}
	n := int(period.Span / step)
	if n > maxCandles {
		n = maxCandles
	}

	end := p.now().UTC().Truncate(step)
	cs := make([]types.Candle, 0, n)
	for i := n; i > 0; i-- {
		ts := end.Add(-time.Duration(i) * step)
		r := rand.New(rand.NewSource(seed(symbol, ts)))

		c := p.Base + (r.Float64()-0.5)*20
		o := c + (r.Float64()-0.5)*2
		h := max(o, c) + r.Float64()*3
		l := min(o, c) - r.Float64()*3
		cs = append(cs, types.Candle{
			Time:   ts,
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: r.Float64() * 1000,
		})
	}
	return cs, nil
}

func seed(symbol string, ts time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64()) ^ ts.Unix()
}
