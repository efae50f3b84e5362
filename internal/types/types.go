package types

import (
	"strings"
	"time"
)

// Candle is one OHLCV sample. Time is the provider-local wall clock with the
// offset stripped (see NaiveTime).
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// CandleWindow is an ascending, duplicate-free series of exactly N candles,
// most recent last.
type CandleWindow []Candle

// Latest returns the most recent candle of the window.
func (w CandleWindow) Latest() Candle {
	if len(w) == 0 {
		return Candle{}
	}
	return w[len(w)-1]
}

func (w CandleWindow) Closes() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.Close
	}
	return out
}

func (w CandleWindow) Highs() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.High
	}
	return out
}

func (w CandleWindow) Lows() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.Low
	}
	return out
}

// NaiveTime drops the zone offset of t and keeps its wall clock, carried in UTC.
func NaiveTime(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Action is one of buy, sell or hold.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// ParseAction normalizes s and reports whether it names a known action.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return a, true
	}
	return a, false
}

// MaxReasonLen bounds the free-text reason columns of the signal log.
const MaxReasonLen = 120

// Signal is one model recommendation captured at Timestamp.
type Signal struct {
	Timestamp       time.Time `json:"timestamp"`
	ShortTermAction Action    `json:"short_term_action"`
	ShortTermTP     float64   `json:"short_term_tp"`
	ShortTermSL     float64   `json:"short_term_sl"`
	ShortTermReason string    `json:"short_term_reason"`
	LongTermAction  Action    `json:"long_term_action"`
	LongTermTP      float64   `json:"long_term_tp"`
	LongTermSL      float64   `json:"long_term_sl"`
	LongTermReason  string    `json:"long_term_reason"`
	Confidence      int       `json:"confidence"`

	// Horizon projections, only set by the extended schema.
	Projections *Projections `json:"projections,omitempty"`
}

// Projections holds the extended schema's price forecasts.
type Projections struct {
	PriceAfter15m float64 `json:"price_after_15m"`
	PriceAfter1h  float64 `json:"price_after_1h"`
	PriceAfter4h  float64 `json:"price_after_4h"`
	PriceAfter1d  float64 `json:"price_after_1d"`
}

// Equal compares two signals field by field.
func (s Signal) Equal(o Signal) bool {
	if !s.Timestamp.Equal(o.Timestamp) {
		return false
	}
	if s.ShortTermAction != o.ShortTermAction || s.ShortTermTP != o.ShortTermTP ||
		s.ShortTermSL != o.ShortTermSL || s.ShortTermReason != o.ShortTermReason {
		return false
	}
	if s.LongTermAction != o.LongTermAction || s.LongTermTP != o.LongTermTP ||
		s.LongTermSL != o.LongTermSL || s.LongTermReason != o.LongTermReason {
		return false
	}
	if s.Confidence != o.Confidence {
		return false
	}
	if (s.Projections == nil) != (o.Projections == nil) {
		return false
	}
	return s.Projections == nil || *s.Projections == *o.Projections
}

// NormalizeNewlines rewrites CRLF and lone CR as LF. CSV readers fold CRLF
// inside quoted cells, so reasons are stored LF-only.
func NormalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// TruncateReason normalizes newlines and cuts s to MaxReasonLen runes.
func TruncateReason(s string) string {
	s = NormalizeNewlines(s)
	r := []rune(s)
	if len(r) <= MaxReasonLen {
		return s
	}
	return string(r[:MaxReasonLen])
}

// RunResult summarizes one successful pipeline invocation.
type RunResult struct {
	Signal      Signal    `json:"signal"`
	Symbol      string    `json:"symbol"`
	Candles     int       `json:"candles"`
	LatestTime  time.Time `json:"latest_candle_time"`
	LatestClose float64   `json:"latest_close"`
	LogRows     int       `json:"log_rows"`
}
