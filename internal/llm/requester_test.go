package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"xau-signal-bot/internal/types"
)

type fakeCompleter struct {
	answer string
	err    error
	system string
	user   string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.answer, f.err
}

func window(n int) types.CandleWindow {
	base := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	w := make(types.CandleWindow, n)
	for i := range w {
		p := 2330 + float64(i%7)
		w[i] = types.Candle{
			Time:   base.Add(time.Duration(i) * 15 * time.Minute),
			Open:   p,
			High:   p + 2,
			Low:    p - 2,
			Close:  p + 1,
			Volume: 100,
		}
	}
	return w
}

func TestRequestBuildsPromptAndParses(t *testing.T) {
	fc := &fakeCompleter{answer: validAnswer}
	now := time.Date(2024, 5, 2, 15, 0, 0, 900_000_000, time.Local)
	r := NewRequester(Params{Symbol: "GC=F", Interval: "15m"}, fc, WithClock(func() time.Time { return now }))

	sig, err := r.Request(context.Background(), window(60))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if sig.Confidence != 82 {
		t.Errorf("Expected confidence 82, got %d", sig.Confidence)
	}
	if !sig.Timestamp.Equal(now.Truncate(time.Second)) {
		t.Errorf("Expected second-precision timestamp, got %v", sig.Timestamp)
	}

	if !strings.Contains(fc.system, "ICT/SMC") {
		t.Errorf("Expected ICT/SMC role in system prompt, got %q", fc.system)
	}
	for _, want := range []string{"GC=F 15m", "2024-05-02 09:00:00", "Current close ~", "RSI14=", "short_term_action", "confidence"} {
		if !strings.Contains(fc.user, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
	if strings.Contains(fc.user, "price_after_15m") {
		t.Error("Expected basic prompt without projection keys")
	}
}

func TestRequestExtendedPrompt(t *testing.T) {
	fc := &fakeCompleter{answer: validAnswer}
	r := NewRequester(Params{Symbol: "GC=F", Interval: "15m", Extended: true}, fc)

	_, err := r.Request(context.Background(), window(60))
	if !errors.Is(err, types.ErrMalformedResponse) {
		t.Errorf("Expected malformed for basic answer under extended schema, got %v", err)
	}
	if !strings.Contains(fc.user, "price_after_1d") {
		t.Error("Expected extended prompt to ask for projections")
	}
}

func TestRequestWrapsBackendError(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("dial tcp: i/o timeout")}
	r := NewRequester(Params{Symbol: "GC=F", Interval: "15m"}, fc)

	_, err := r.Request(context.Background(), window(60))
	if !errors.Is(err, types.ErrRequestFailed) {
		t.Errorf("Expected ErrRequestFailed, got %v", err)
	}
}

func TestRequestShortWindowOmitsIndicators(t *testing.T) {
	fc := &fakeCompleter{answer: validAnswer}
	r := NewRequester(Params{Symbol: "GC=F", Interval: "15m"}, fc)

	if _, err := r.Request(context.Background(), window(5)); err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if strings.Contains(fc.user, "Indicators:") {
		t.Error("Expected indicator line omitted when every indicator is NaN")
	}
}
