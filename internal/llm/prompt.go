package llm

import (
	"fmt"
	"math"
	"strings"
	"text/tabwriter"

	"xau-signal-bot/internal/ta"
	"xau-signal-bot/internal/types"
)

const systemPrompt = "You are a senior ICT/SMC trader specializing in XAUUSD (gold). " +
	"You answer with a single JSON object and nothing else."

const basicSchema = `{
  "short_term_action": "buy" or "sell" or "hold",
  "short_term_tp": float,
  "short_term_sl": float,
  "short_term_reason": "short sentence",
  "long_term_action": "buy" or "sell" or "hold",
  "long_term_tp": float,
  "long_term_sl": float,
  "long_term_reason": "short sentence",
  "confidence": integer 0-100`

const projectionSchema = `,
  "price_after_15m": float,
  "price_after_1h": float,
  "price_after_4h": float,
  "price_after_1d": float`

// BuildPrompt renders the window as a fixed-width table followed by the
// analysis steps and the JSON contract the parser enforces.
func BuildPrompt(symbol, interval string, w types.CandleWindow, snap ta.Snapshot, extended bool) (system, user string) {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze this %s %s chart data (%d candles, oldest first) for the next moves:\n", symbol, interval, len(w))
	writeTable(&b, w)

	fmt.Fprintf(&b, "\nCurrent close ~%.2f.\n", w.Latest().Close)
	if line := indicatorLine(snap); line != "" {
		fmt.Fprintf(&b, "Indicators: %s\n", line)
	}

	b.WriteString(`Think step-by-step:
1. Swings, order blocks, breakers.
2. FVGs, liquidity sweeps, displacement.
3. Structure, volume, momentum.
4. Short-term (next 15-30 min): buy/sell/hold + quick TP/SL (realistic, in points/USD).
5. Long-term (next 1-2 hours): buy/sell/hold + TP/SL based on structure.
`)
	if extended {
		b.WriteString("6. Project the price 15 minutes, 1 hour, 4 hours and 1 day from now.\n")
	}

	b.WriteString("Output ONLY valid JSON:\n")
	b.WriteString(basicSchema)
	if extended {
		b.WriteString(projectionSchema)
	}
	b.WriteString("\n}\n")

	return systemPrompt, b.String()
}

func writeTable(b *strings.Builder, w types.CandleWindow) {
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "timestamp\topen\thigh\tlow\tclose\tvolume\t")
	for _, c := range w {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.0f\t\n",
			c.Time.Format("2006-01-02 15:04:05"), c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	tw.Flush()
}

func indicatorLine(s ta.Snapshot) string {
	var parts []string
	add := func(name string, v float64) {
		if !math.IsNaN(v) {
			parts = append(parts, fmt.Sprintf("%s=%.2f", name, v))
		}
	}
	add("RSI14", s.RSI14)
	add("ATR14", s.ATR14)
	add("SMA20", s.SMA20)
	add("BB20_upper", s.BBUpper)
	add("BB20_mid", s.BBMid)
	add("BB20_lower", s.BBLower)
	return strings.Join(parts, " ")
}
