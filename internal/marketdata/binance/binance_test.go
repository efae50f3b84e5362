package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"xau-signal-bot/internal/types"
)

func TestCandlesParsesKlines(t *testing.T) {
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "PAXGUSDT" || q.Get("interval") != "15m" {
			t.Errorf("Unexpected query %v", q)
		}
		if q.Get("limit") != "8" {
			t.Errorf("Expected limit 8 for 2h of 15m bars, got %s", q.Get("limit"))
		}
		w.Write([]byte(`[
		  [1714651200000,"2301.10","2303.00","2300.50","2302.40","12.5",1714652099999,"0",10,"0","0","0"],
		  [1714652100000,"2302.40","2304.10","2301.90","2303.80","9.25",1714652999999,"0",8,"0","0","0"]
		]`))
	}))
	defer srv.Close()

	p := New(Params{BaseURL: srv.URL})
	p.now = func() time.Time { return now }

	candles, err := p.Candles(context.Background(), "PAXGUSDT", "15m", types.Period{Label: "2h", Span: 2 * time.Hour})
	if err != nil {
		t.Fatalf("Candles error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(candles))
	}
	if want := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC); !candles[0].Time.Equal(want) {
		t.Errorf("Expected %v, got %v", want, candles[0].Time)
	}
	if candles[1].Close != 2303.80 || candles[1].Volume != 9.25 {
		t.Errorf("Unexpected second candle %+v", candles[1])
	}
}

func TestCandlesCapsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "1000" {
			t.Errorf("Expected limit capped at 1000, got %s", got)
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	p := New(Params{BaseURL: srv.URL})
	candles, err := p.Candles(context.Background(), "PAXGUSDT", "15m", types.Period{Label: "60d", Span: 60 * 24 * time.Hour})
	if err != nil {
		t.Fatalf("Candles error: %v", err)
	}
	if len(candles) != 0 {
		t.Errorf("Expected no candles, got %d", len(candles))
	}
}

func TestCandlesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	p := New(Params{BaseURL: srv.URL})
	if _, err := p.Candles(context.Background(), "NOPE", "15m", types.Period{Label: "5d", Span: 5 * 24 * time.Hour}); err == nil {
		t.Fatal("Expected API error")
	}
}
