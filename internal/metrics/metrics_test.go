package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"xau-signal-bot/internal/types"
)

func TestObserveRunSuccess(t *testing.T) {
	r := New()
	res := &types.RunResult{
		Signal:  types.Signal{ShortTermAction: types.ActionBuy, LongTermAction: types.ActionHold, Confidence: 82},
		Candles: 60,
		LogRows: 17,
	}
	r.ObserveRun("GC=F", res, nil, 2*time.Second)

	if got := testutil.ToFloat64(r.runsTotal.WithLabelValues("ok", "")); got != 1 {
		t.Errorf("Expected 1 ok run, got %v", got)
	}
	if got := testutil.ToFloat64(r.confidence.WithLabelValues("GC=F", "buy", "hold")); got != 82 {
		t.Errorf("Expected confidence 82, got %v", got)
	}
	if got := testutil.ToFloat64(r.logRows); got != 17 {
		t.Errorf("Expected 17 log rows, got %v", got)
	}
}

func TestObserveRunFailureKind(t *testing.T) {
	r := New()
	err := fmt.Errorf("%w: all periods short", types.ErrDataUnavailable)
	r.ObserveRun("GC=F", nil, err, time.Second)
	r.ObserveRun("GC=F", nil, errors.New("boom"), time.Second)

	if got := testutil.ToFloat64(r.runsTotal.WithLabelValues("error", "data_unavailable")); got != 1 {
		t.Errorf("Expected 1 data_unavailable run, got %v", got)
	}
	if got := testutil.ToFloat64(r.runsTotal.WithLabelValues("error", "unknown")); got != 1 {
		t.Errorf("Expected 1 unknown run, got %v", got)
	}
	if n := testutil.CollectAndCount(r.confidence); n != 0 {
		t.Errorf("Expected no confidence series after failures, got %d", n)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveRun("GC=F", &types.RunResult{LogRows: 3}, nil, time.Second)

	path := filepath.Join(t.TempDir(), "prom", "xau.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile error: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(raw), "xau_signal_log_rows 3") {
		t.Errorf("Expected log rows gauge in textfile, got:\n%s", raw)
	}

	if err := r.WriteTextfile(""); err != nil {
		t.Errorf("Expected empty path to be a no-op, got %v", err)
	}
}

func TestRestoreCarriesStateAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xau.prom")

	first := New()
	first.ObserveRun("GC=F", &types.RunResult{
		Signal:  types.Signal{ShortTermAction: types.ActionSell, LongTermAction: types.ActionSell, Confidence: 64},
		Candles: 60,
		LogRows: 9,
	}, nil, time.Second)
	if err := first.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile error: %v", err)
	}
	lastSuccess := testutil.ToFloat64(first.lastSuccess)

	second := New()
	if err := second.Restore(path); err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	second.ObserveRun("GC=F", nil, fmt.Errorf("%w: timeout", types.ErrRequestFailed), time.Second)

	if got := testutil.ToFloat64(second.runsTotal.WithLabelValues("ok", "")); got != 1 {
		t.Errorf("Expected 1 ok run carried over, got %v", got)
	}
	if got := testutil.ToFloat64(second.runsTotal.WithLabelValues("error", "request_failed")); got != 1 {
		t.Errorf("Expected 1 request_failed run, got %v", got)
	}
	if got := testutil.ToFloat64(second.lastSuccess); got != lastSuccess || got == 0 {
		t.Errorf("Expected last success %v kept after failure, got %v", lastSuccess, got)
	}
	if got := testutil.ToFloat64(second.confidence.WithLabelValues("GC=F", "sell", "sell")); got != 64 {
		t.Errorf("Expected confidence 64 carried over, got %v", got)
	}
	if got := testutil.ToFloat64(second.logRows); got != 9 {
		t.Errorf("Expected 9 log rows carried over, got %v", got)
	}
}

func TestRestoreMissingFile(t *testing.T) {
	r := New()
	if err := r.Restore(filepath.Join(t.TempDir(), "absent.prom")); err != nil {
		t.Errorf("Expected missing textfile to be ignored, got %v", err)
	}
	if err := r.Restore(""); err != nil {
		t.Errorf("Expected empty path to be ignored, got %v", err)
	}
}
