// Package binance reads spot klines, PAXGUSDT by default, through go-binance.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gobinance "github.com/adshao/go-binance/v2"

	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/types"
)

// maxKlines is the per-request cap of the klines endpoint.
const maxKlines = 1000

type Params struct {
	APIKey    string
	SecretKey string
	BaseURL   string
}

type Provider struct {
	client *gobinance.Client
	now    func() time.Time
}

var _ interfaces.CandleProvider = (*Provider)(nil)

func New(p Params) *Provider {
	c := gobinance.NewClient(p.APIKey, p.SecretKey)
	if p.BaseURL != "" {
		c.BaseURL = p.BaseURL
	}
	return &Provider{client: c, now: time.Now}
}

// Candles asks for the newest klines ending now that fit inside period.
func (p *Provider) Candles(ctx context.Context, symbol, interval string, period types.Period) ([]types.Candle, error) {
	step, err := types.IntervalDuration(interval)
	if err != nil {
		return nil, err
	}
	limit := int(period.Span / step)
	if limit > maxKlines {
		limit = maxKlines
	}
	if limit < 1 {
		limit = 1
	}

	klines, err := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		EndTime(p.now().UnixMilli()).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
	}

	out := make([]types.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := toCandle(k)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// toCandle converts one kline; Binance times are UTC so the naive form is
// the UTC wall clock.
func toCandle(k *gobinance.Kline) (types.Candle, error) {
	var (
		c   types.Candle
		err error
	)
	c.Time = time.UnixMilli(k.OpenTime).UTC()
	fields := []struct {
		raw string
		dst *float64
	}{
		{k.Open, &c.Open},
		{k.High, &c.High},
		{k.Low, &c.Low},
		{k.Close, &c.Close},
		{k.Volume, &c.Volume},
	}
	for _, f := range fields {
		if *f.dst, err = strconv.ParseFloat(f.raw, 64); err != nil {
			return types.Candle{}, fmt.Errorf("parse kline %d: %w", k.OpenTime, err)
		}
	}
	return c, nil
}
