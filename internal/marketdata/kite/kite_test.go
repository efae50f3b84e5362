package kite

import (
	"context"
	"errors"
	"testing"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"

	"xau-signal-bot/internal/types"
)

type fakeHistory struct {
	rows     []kiteconnect.HistoricalData
	err      error
	token    int
	interval string
	from, to time.Time
}

func (f *fakeHistory) GetHistoricalData(token int, interval string, from, to time.Time, continuous, oi bool) ([]kiteconnect.HistoricalData, error) {
	f.token, f.interval, f.from, f.to = token, interval, from, to
	return f.rows, f.err
}

func TestKiteInterval(t *testing.T) {
	cases := map[string]string{
		"1m":  "minute",
		"5m":  "5minute",
		"15m": "15minute",
		"1h":  "60minute",
		"60m": "60minute",
		"1d":  "day",
	}
	for in, want := range cases {
		got, err := kiteInterval(in)
		if err != nil || got != want {
			t.Errorf("kiteInterval(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := kiteInterval("2h"); err == nil {
		t.Error("Expected 2h to be rejected")
	}
}

func TestCandlesMapsHistoricalData(t *testing.T) {
	ist := time.FixedZone("IST", 19800)
	now := time.Date(2024, 6, 3, 15, 0, 0, 0, ist)
	fake := &fakeHistory{rows: []kiteconnect.HistoricalData{
		{Date: models.Time{Time: time.Date(2024, 6, 3, 14, 30, 0, 0, ist)}, Open: 72000, High: 72100, Low: 71950, Close: 72050, Volume: 340},
		{Date: models.Time{Time: time.Date(2024, 6, 3, 14, 45, 0, 0, ist)}, Open: 72050, High: 72080, Low: 71990, Close: 72010, Volume: 210},
	}}
	p := &Provider{p: Params{InstrumentToken: 109134855}, kc: fake, now: func() time.Time { return now }}

	candles, err := p.Candles(context.Background(), "GOLDM", "15m", types.Period{Label: "5d", Span: 5 * 24 * time.Hour})
	if err != nil {
		t.Fatalf("Candles error: %v", err)
	}
	if fake.token != 109134855 || fake.interval != "15minute" {
		t.Errorf("Unexpected request token=%d interval=%s", fake.token, fake.interval)
	}
	if !fake.from.Equal(now.Add(-5 * 24 * time.Hour)) {
		t.Errorf("Unexpected from %v", fake.from)
	}
	if len(candles) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(candles))
	}
	if want := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC); !candles[0].Time.Equal(want) {
		t.Errorf("Expected IST wall clock kept, got %v", candles[0].Time)
	}
	if candles[1].Volume != 210 {
		t.Errorf("Expected volume 210, got %v", candles[1].Volume)
	}
}

func TestCandlesWrapsError(t *testing.T) {
	p := &Provider{kc: &fakeHistory{err: errors.New("TokenException")}, now: time.Now}
	if _, err := p.Candles(context.Background(), "GOLDM", "15m", types.Period{Label: "5d", Span: time.Hour}); err == nil {
		t.Fatal("Expected error")
	}
}
