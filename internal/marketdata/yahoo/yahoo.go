// Package yahoo reads OHLCV candles from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"xau-signal-bot/internal/api"
	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/types"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

type Params struct {
	BaseURL string
	Timeout time.Duration
}

type Provider struct {
	client *api.Client
	now    func() time.Time
}

var _ interfaces.CandleProvider = (*Provider)(nil)

func New(p Params) *Provider {
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	if p.Timeout <= 0 {
		p.Timeout = 20 * time.Second
	}
	return &Provider{
		client: api.NewClient(
			api.WithBaseURL(strings.TrimRight(p.BaseURL, "/")),
			api.WithTimeout(p.Timeout),
			api.WithHeaders(api.YahooFinanceHeaders()),
			api.WithLogging(true),
		),
		now: time.Now,
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		GMTOffset            int    `json:"gmtoffset"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Candles requests the chart of symbol over period. Day and month periods
// map onto Yahoo's range parameter, shorter ones onto an explicit
// period1/period2 window.
func (p *Provider) Candles(ctx context.Context, symbol, interval string, period types.Period) ([]types.Candle, error) {
	params := url.Values{}
	params.Set("interval", interval)
	params.Set("includePrePost", "false")
	if rangeParam(period.Label) {
		params.Set("range", period.Label)
	} else {
		end := p.now()
		params.Set("period1", strconv.FormatInt(end.Add(-period.Span).Unix(), 10))
		params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	}

	resp, err := p.client.GET(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}

	var out chartResponse
	if err := resp.ParseJSON(&out); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if e := out.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(out.Chart.Result) == 0 {
		return nil, nil
	}
	return toCandles(out.Chart.Result[0]), nil
}

func rangeParam(label string) bool {
	return strings.HasSuffix(label, "d") || strings.HasSuffix(label, "mo")
}

// toCandles zips the quote arrays. Rows with any null field are skipped;
// the exchange timezone is applied before the offset is dropped.
func toCandles(r chartResult) []types.Candle {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	loc := exchangeLocation(r.Meta.ExchangeTimezoneName, r.Meta.GMTOffset)

	out := make([]types.Candle, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		o, okO := at(q.Open, i)
		h, okH := at(q.High, i)
		l, okL := at(q.Low, i)
		c, okC := at(q.Close, i)
		if !okO || !okH || !okL || !okC {
			continue
		}
		v, _ := at(q.Volume, i)
		out = append(out, types.Candle{
			Time:   types.NaiveTime(time.Unix(ts, 0).In(loc)),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}
	return out
}

func at(xs []*float64, i int) (float64, bool) {
	if i >= len(xs) || xs[i] == nil {
		return 0, false
	}
	return *xs[i], true
}

func exchangeLocation(name string, offset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone("exchange", offset)
}
