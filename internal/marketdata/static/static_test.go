package static

import (
	"context"
	"testing"
	"time"

	"xau-signal-bot/internal/types"
)

func TestCandlesDeterministic(t *testing.T) {
	now := time.Date(2024, 5, 2, 12, 7, 0, 0, time.UTC)
	p := New()
	p.now = func() time.Time { return now }

	period := types.Period{Label: "1d", Span: 24 * time.Hour}
	a, err := p.Candles(context.Background(), "GC=F", "15m", period)
	if err != nil {
		t.Fatalf("Candles error: %v", err)
	}
	b, _ := p.Candles(context.Background(), "GC=F", "15m", period)

	if len(a) != 96 {
		t.Fatalf("Expected 96 candles for one day of 15m bars, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Expected identical candles at %d", i)
		}
	}

	last := a[len(a)-1]
	if want := time.Date(2024, 5, 2, 11, 45, 0, 0, time.UTC); !last.Time.Equal(want) {
		t.Errorf("Expected last candle at %v, got %v", want, last.Time)
	}
	for i, c := range a {
		if c.Low > c.Open || c.Low > c.Close || c.High < c.Open || c.High < c.Close {
			t.Errorf("Candle %d violates OHLC bounds: %+v", i, c)
		}
		if i > 0 && !c.Time.After(a[i-1].Time) {
			t.Errorf("Candle %d not ascending", i)
		}
	}
}

func TestCandlesCapped(t *testing.T) {
	p := New()
	cs, err := p.Candles(context.Background(), "GC=F", "1m", types.Period{Label: "60d", Span: 60 * 24 * time.Hour})
	if err != nil {
		t.Fatalf("Candles error: %v", err)
	}
	if len(cs) != maxCandles {
		t.Errorf("Expected %d candles, got %d", maxCandles, len(cs))
	}
}
