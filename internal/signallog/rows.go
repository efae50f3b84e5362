package signallog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"xau-signal-bot/internal/types"
)

// TimeLayout is the timestamp column format.
const TimeLayout = "2006-01-02 15:04:05"

var projectionColumns = []string{"price_after_15m", "price_after_1h", "price_after_4h", "price_after_1d"}

// Rows keep every column as text; conversion happens in signal() and
// toRow() so blank projection cells survive a round trip.

type basicRow struct {
	Timestamp       string `csv:"timestamp"`
	ShortTermAction string `csv:"short_term_action"`
	ShortTermTP     string `csv:"short_term_tp"`
	ShortTermSL     string `csv:"short_term_sl"`
	ShortTermReason string `csv:"short_term_reason"`
	LongTermAction  string `csv:"long_term_action"`
	LongTermTP      string `csv:"long_term_tp"`
	LongTermSL      string `csv:"long_term_sl"`
	LongTermReason  string `csv:"long_term_reason"`
	Confidence      string `csv:"confidence"`
}

type extendedRow struct {
	Timestamp       string `csv:"timestamp"`
	ShortTermAction string `csv:"short_term_action"`
	ShortTermTP     string `csv:"short_term_tp"`
	ShortTermSL     string `csv:"short_term_sl"`
	ShortTermReason string `csv:"short_term_reason"`
	LongTermAction  string `csv:"long_term_action"`
	LongTermTP      string `csv:"long_term_tp"`
	LongTermSL      string `csv:"long_term_sl"`
	LongTermReason  string `csv:"long_term_reason"`
	Confidence      string `csv:"confidence"`
	PriceAfter15m   string `csv:"price_after_15m"`
	PriceAfter1h    string `csv:"price_after_1h"`
	PriceAfter4h    string `csv:"price_after_4h"`
	PriceAfter1d    string `csv:"price_after_1d"`
}

// fieldParser accumulates the first conversion error of a row.
type fieldParser struct {
	err error
}

func (p *fieldParser) float(col, v string) float64 {
	if p.err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		p.err = fmt.Errorf("column %s: %w", col, err)
	}
	return f
}

// integer accepts "82" and the float-typed "82.0", but not "82.5".
func (p *fieldParser) integer(col, v string) int {
	f := p.float(col, v)
	if p.err == nil && f != math.Trunc(f) {
		p.err = fmt.Errorf("column %s: %q is not an integer", col, v)
	}
	return int(f)
}

// optional returns ok=false for a blank cell.
func (p *fieldParser) optional(col, v string) (float64, bool) {
	if strings.TrimSpace(v) == "" {
		return 0, false
	}
	return p.float(col, v), true
}

func (p *fieldParser) time(col, v string) time.Time {
	if p.err != nil {
		return time.Time{}
	}
	t, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(v), time.Local)
	if err != nil {
		p.err = fmt.Errorf("column %s: %w", col, err)
	}
	return t
}

func (r *extendedRow) signal() (types.Signal, error) {
	var p fieldParser
	s := types.Signal{
		Timestamp:       p.time("timestamp", r.Timestamp),
		ShortTermAction: types.Action(r.ShortTermAction),
		ShortTermTP:     p.float("short_term_tp", r.ShortTermTP),
		ShortTermSL:     p.float("short_term_sl", r.ShortTermSL),
		ShortTermReason: r.ShortTermReason,
		LongTermAction:  types.Action(r.LongTermAction),
		LongTermTP:      p.float("long_term_tp", r.LongTermTP),
		LongTermSL:      p.float("long_term_sl", r.LongTermSL),
		LongTermReason:  r.LongTermReason,
		Confidence:      p.integer("confidence", r.Confidence),
	}

	m15, ok15 := p.optional("price_after_15m", r.PriceAfter15m)
	h1, ok1h := p.optional("price_after_1h", r.PriceAfter1h)
	h4, ok4h := p.optional("price_after_4h", r.PriceAfter4h)
	d1, ok1d := p.optional("price_after_1d", r.PriceAfter1d)
	if p.err != nil {
		return types.Signal{}, p.err
	}
	switch {
	case ok15 && ok1h && ok4h && ok1d:
		s.Projections = &types.Projections{PriceAfter15m: m15, PriceAfter1h: h1, PriceAfter4h: h4, PriceAfter1d: d1}
	case ok15 || ok1h || ok4h || ok1d:
		return types.Signal{}, errors.New("projection columns partially filled")
	}
	return s, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toBasic(s types.Signal) *basicRow {
	return &basicRow{
		Timestamp:       s.Timestamp.Format(TimeLayout),
		ShortTermAction: string(s.ShortTermAction),
		ShortTermTP:     formatFloat(s.ShortTermTP),
		ShortTermSL:     formatFloat(s.ShortTermSL),
		ShortTermReason: types.NormalizeNewlines(s.ShortTermReason),
		LongTermAction:  string(s.LongTermAction),
		LongTermTP:      formatFloat(s.LongTermTP),
		LongTermSL:      formatFloat(s.LongTermSL),
		LongTermReason:  types.NormalizeNewlines(s.LongTermReason),
		Confidence:      strconv.Itoa(s.Confidence),
	}
}

func toExtended(s types.Signal) *extendedRow {
	b := toBasic(s)
	r := &extendedRow{
		Timestamp:       b.Timestamp,
		ShortTermAction: b.ShortTermAction,
		ShortTermTP:     b.ShortTermTP,
		ShortTermSL:     b.ShortTermSL,
		ShortTermReason: b.ShortTermReason,
		LongTermAction:  b.LongTermAction,
		LongTermTP:      b.LongTermTP,
		LongTermSL:      b.LongTermSL,
		LongTermReason:  b.LongTermReason,
		Confidence:      b.Confidence,
	}
	if p := s.Projections; p != nil {
		r.PriceAfter15m = formatFloat(p.PriceAfter15m)
		r.PriceAfter1h = formatFloat(p.PriceAfter1h)
		r.PriceAfter4h = formatFloat(p.PriceAfter4h)
		r.PriceAfter1d = formatFloat(p.PriceAfter1d)
	}
	return r
}
