// Package kite reads historical candles for an MCX gold contract from
// Zerodha Kite Connect.
package kite

import (
	"context"
	"fmt"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/types"
)

type Params struct {
	APIKey          string
	AccessToken     string
	BaseURI         string
	InstrumentToken int
	Continuous      bool
}

type historicalSource interface {
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
}

type Provider struct {
	p   Params
	kc  historicalSource
	now func() time.Time
}

var _ interfaces.CandleProvider = (*Provider)(nil)

func New(p Params) *Provider {
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	if p.BaseURI != "" {
		kc.SetBaseURI(p.BaseURI)
	}
	return &Provider{p: p, kc: kc, now: time.Now}
}

// Candles ignores symbol: Kite addresses contracts by instrument token.
func (p *Provider) Candles(ctx context.Context, symbol, interval string, period types.Period) ([]types.Candle, error) {
	kiteInterval, err := kiteInterval(interval)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	to := p.now()
	rows, err := p.kc.GetHistoricalData(p.p.InstrumentToken, kiteInterval, to.Add(-period.Span), to, p.p.Continuous, false)
	if err != nil {
		return nil, fmt.Errorf("kite historical %s (%d): %w", symbol, p.p.InstrumentToken, err)
	}

	out := make([]types.Candle, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.Candle{
			Time:   types.NaiveTime(r.Date.Time),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: float64(r.Volume),
		})
	}
	return out, nil
}

func kiteInterval(interval string) (string, error) {
	switch interval {
	case "1m":
		return "minute", nil
	case "3m", "5m", "10m", "15m", "30m":
		return interval[:len(interval)-1] + "minute", nil
	case "60m", "1h":
		return "60minute", nil
	case "1d":
		return "day", nil
	}
	return "", fmt.Errorf("interval %q not supported by kite", interval)
}
