package signallog

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"xau-signal-bot/internal/types"
)

var t0 = time.Date(2024, 5, 2, 9, 0, 0, 0, time.Local)

func sample(i int) types.Signal {
	return types.Signal{
		Timestamp:       t0.Add(time.Duration(i) * 15 * time.Minute),
		ShortTermAction: types.ActionBuy,
		ShortTermTP:     2345.5 + float64(i),
		ShortTermSL:     2331,
		ShortTermReason: "Sweep of Asia low, bullish FVG",
		LongTermAction:  types.ActionHold,
		LongTermTP:      2360.25,
		LongTermSL:      2320,
		LongTermReason:  `Range "between" 4h OBs`,
		Confidence:      i % 101,
	}
}

func withProjections(s types.Signal) types.Signal {
	s.Projections = &types.Projections{PriceAfter15m: 2340, PriceAfter1h: 2342.5, PriceAfter4h: 2350, PriceAfter1d: 2361.75}
	return s
}

func newLog(t *testing.T, extended bool) *Log {
	t.Helper()
	return New(Params{
		Path:        filepath.Join(t.TempDir(), "ai_signals.csv"),
		MaxRows:     500,
		Extended:    extended,
		LockTimeout: time.Second,
	})
}

func seed(t *testing.T, l *Log, n int, extended bool) {
	t.Helper()
	sigs := make([]types.Signal, n)
	for i := range sigs {
		sigs[i] = sample(i)
	}
	var buf bytes.Buffer
	if err := encode(&buf, sigs, extended); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(l.Path(), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	l := newLog(t, false)
	sigs, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Expected missing file to load as empty, got %v", err)
	}
	if len(sigs) != 0 {
		t.Errorf("Expected 0 rows, got %d", len(sigs))
	}
}

func TestLoadZeroByteFile(t *testing.T) {
	l := newLog(t, false)
	if err := os.WriteFile(l.Path(), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	sigs, err := l.Load(context.Background())
	if err != nil || len(sigs) != 0 {
		t.Fatalf("Expected empty log, got %d rows, %v", len(sigs), err)
	}
}

func TestAppendRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := newLog(t, false)

	in := sample(7)
	n, err := l.Append(ctx, in)
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 row, got %d", n)
	}

	sigs, err := l.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(sigs) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(sigs))
	}
	if !sigs[0].Equal(in) {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", sigs[0], in)
	}

	raw, _ := os.ReadFile(l.Path())
	header := strings.SplitN(string(raw), "\n", 2)[0]
	want := "timestamp,short_term_action,short_term_tp,short_term_sl,short_term_reason,long_term_action,long_term_tp,long_term_sl,long_term_reason,confidence"
	if header != want {
		t.Errorf("Unexpected header %q", header)
	}
	if !strings.Contains(string(raw), "2024-05-02 10:45:00") {
		t.Errorf("Expected timestamp in %s format, got %s", TimeLayout, raw)
	}
}

func TestAppendGrowsBelowCap(t *testing.T) {
	ctx := context.Background()
	l := newLog(t, false)
	seed(t, l, 120, false)

	n, err := l.Append(ctx, sample(999))
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if n != 121 {
		t.Errorf("Expected 121 rows, got %d", n)
	}

	sigs, _ := l.Load(ctx)
	if len(sigs) != 121 || !sigs[0].Equal(sample(0)) || !sigs[120].Equal(sample(999)) {
		t.Errorf("Expected old rows kept and new row last")
	}
}

func TestAppendEvictsOldest(t *testing.T) {
	ctx := context.Background()
	l := newLog(t, false)
	seed(t, l, 500, false)

	n, err := l.Append(ctx, sample(1000))
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if n != 500 {
		t.Errorf("Expected 500 rows, got %d", n)
	}

	sigs, err := l.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(sigs) != 500 {
		t.Fatalf("Expected 500 rows, got %d", len(sigs))
	}
	if !sigs[0].Equal(sample(1)) {
		t.Errorf("Expected oldest row evicted, first is now %v", sigs[0].Timestamp)
	}
	if !sigs[499].Equal(sample(1000)) {
		t.Errorf("Expected new row last, got %v", sigs[499].Timestamp)
	}
}

func TestAppendExtendedKeepsOldRows(t *testing.T) {
	ctx := context.Background()
	l := newLog(t, true)
	seed(t, l, 3, false)

	if _, err := l.Append(ctx, withProjections(sample(3))); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	raw, _ := os.ReadFile(l.Path())
	header := strings.SplitN(string(raw), "\n", 2)[0]
	if !strings.HasSuffix(header, "confidence,price_after_15m,price_after_1h,price_after_4h,price_after_1d") {
		t.Errorf("Expected projection columns appended to header, got %q", header)
	}

	sigs, err := l.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(sigs) != 4 {
		t.Fatalf("Expected 4 rows, got %d", len(sigs))
	}
	if sigs[0].Projections != nil {
		t.Error("Expected blank projections for pre-existing basic rows")
	}
	if sigs[3].Projections == nil || sigs[3].Projections.PriceAfter1d != 2361.75 {
		t.Errorf("Expected projections on new row, got %+v", sigs[3].Projections)
	}
}

func TestAppendBasicNeverDropsColumns(t *testing.T) {
	ctx := context.Background()
	l := newLog(t, false)
	seeded := []types.Signal{withProjections(sample(0))}
	var buf bytes.Buffer
	if err := encode(&buf, seeded, true); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(l.Path(), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := l.Append(ctx, sample(1)); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	sigs, _ := l.Load(ctx)
	if len(sigs) != 2 || sigs[0].Projections == nil {
		t.Fatalf("Expected existing projections preserved, got %+v", sigs)
	}
	if sigs[1].Projections != nil {
		t.Error("Expected basic row to have blank projections")
	}
}

func TestAppendFailureLeavesFileUntouched(t *testing.T) {
	ctx := context.Background()
	l := newLog(t, false)
	corrupt := "timestamp,short_term_action,short_term_tp,short_term_sl,short_term_reason,long_term_action,long_term_tp,long_term_sl,long_term_reason,confidence\n" +
		"yesterday,buy,abc,1,r,hold,1,1,r,50\n"
	if err := os.WriteFile(l.Path(), []byte(corrupt), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := l.Append(ctx, sample(1))
	if !errors.Is(err, types.ErrPersistenceFailed) {
		t.Fatalf("Expected ErrPersistenceFailed, got %v", err)
	}
	after, _ := os.ReadFile(l.Path())
	if string(after) != corrupt {
		t.Errorf("Expected file byte-identical after failed append")
	}

	if _, err := l.Load(ctx); !errors.Is(err, types.ErrPersistenceFailed) {
		t.Errorf("Expected Load to fail with ErrPersistenceFailed, got %v", err)
	}
}

func TestLoadFloatConfidence(t *testing.T) {
	l := newLog(t, false)
	legacy := "timestamp,short_term_action,short_term_tp,short_term_sl,short_term_reason,long_term_action,long_term_tp,long_term_sl,long_term_reason,confidence\n" +
		"2024-05-01 08:00:00,sell,2300.0,2312.5,\"Bearish breaker, displacement\",sell,2290,2315,Lower highs,65.0\n"
	if err := os.WriteFile(l.Path(), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	sigs, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(sigs) != 1 || sigs[0].Confidence != 65 || sigs[0].ShortTermReason != "Bearish breaker, displacement" {
		t.Errorf("Unexpected legacy row %+v", sigs)
	}
}

func TestAppendLockTimeout(t *testing.T) {
	l := newLog(t, false)
	l.p.LockTimeout = 150 * time.Millisecond

	held := flock.New(l.Path() + ".lock")
	if err := held.Lock(); err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer held.Unlock()

	_, err := l.Append(context.Background(), sample(0))
	if !errors.Is(err, types.ErrPersistenceFailed) {
		t.Fatalf("Expected ErrPersistenceFailed while locked, got %v", err)
	}
	if _, statErr := os.Stat(l.Path()); !os.IsNotExist(statErr) {
		t.Error("Expected no log file written while locked")
	}
}

func TestAppendRoundTripAwkwardReasons(t *testing.T) {
	ctx := context.Background()
	l := newLog(t, false)

	reasons := []string{
		"comma, separated",
		`has "quotes" inside`,
		"line one\nline two",
		"windows\r\nline",
		"old mac\rline",
		"  padded  ",
		"",
	}
	var want []types.Signal
	for i, r := range reasons {
		s := sample(i)
		s.ShortTermReason = types.TruncateReason(r)
		s.LongTermReason = types.TruncateReason(r + ", again")
		if _, err := l.Append(ctx, s); err != nil {
			t.Fatalf("Append %q: %v", r, err)
		}
		want = append(want, s)
	}

	got, err := l.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("Row %d: expected reason %q, got %q", i, want[i].ShortTermReason, got[i].ShortTermReason)
		}
	}
}

func TestAppendStoresCRLFAsLF(t *testing.T) {
	ctx := context.Background()
	l := newLog(t, false)

	s := sample(0)
	s.ShortTermReason = "crlf\r\nx"
	if _, err := l.Append(ctx, s); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	raw, _ := os.ReadFile(l.Path())
	if strings.Contains(string(raw), "crlf\r") {
		t.Errorf("Expected carriage return stripped from stored reason, got %q", raw)
	}
	got, _ := l.Load(ctx)
	if len(got) != 1 || got[0].ShortTermReason != "crlf\nx" {
		t.Errorf("Expected LF reason on load, got %+v", got)
	}
}

func TestLoadRejectsLossyRows(t *testing.T) {
	basic := "timestamp,short_term_action,short_term_tp,short_term_sl,short_term_reason,long_term_action,long_term_tp,long_term_sl,long_term_reason,confidence"
	cases := map[string]string{
		"fractional confidence": basic + "\n" +
			"2024-05-01 08:00:00,buy,2300,2290,r,hold,2310,2280,r,82.5\n",
		"partial projections": basic + ",price_after_15m,price_after_1h,price_after_4h,price_after_1d\n" +
			"2024-05-01 08:00:00,buy,2300,2290,r,hold,2310,2280,r,82,2301,,2305,\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			l := newLog(t, false)
			if err := os.WriteFile(l.Path(), []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := l.Load(context.Background()); !errors.Is(err, types.ErrPersistenceFailed) {
				t.Errorf("Expected ErrPersistenceFailed, got %v", err)
			}
			if _, err := l.Append(context.Background(), sample(1)); !errors.Is(err, types.ErrPersistenceFailed) {
				t.Errorf("Expected Append to refuse the file, got %v", err)
			}
			after, _ := os.ReadFile(l.Path())
			if string(after) != body {
				t.Error("Expected file byte-identical after refused append")
			}
		})
	}
}
