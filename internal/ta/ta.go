package ta

import (
	"math"

	"github.com/markcheno/go-talib"

	"xau-signal-bot/internal/types"
)

// Each helper returns the indicator value at the last bar, or NaN when the
// series is too short; go-talib indexes out of range on short input.

func SMA(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n {
		return math.NaN()
	}
	return last(talib.Sma(closes, n))
}

func RSI(closes []float64, period int) float64 {
	if period < 2 || len(closes) < period+1 {
		return math.NaN()
	}
	return last(talib.Rsi(closes, period))
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	if n < 2 || len(closes) < n {
		return math.NaN(), math.NaN(), math.NaN()
	}
	u, m, l := talib.BBands(closes, n, k, k, talib.SMA)
	return last(m), last(u), last(l)
}

func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return math.NaN()
	}
	if period < 1 || len(closes) < period+1 {
		return math.NaN()
	}
	return last(talib.Atr(highs, lows, closes, period))
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return xs[len(xs)-1]
}

// Snapshot is the indicator context handed to the model with the candles.
type Snapshot struct {
	RSI14   float64
	ATR14   float64
	SMA20   float64
	BBUpper float64
	BBMid   float64
	BBLower float64
}

func Compute(w types.CandleWindow) Snapshot {
	closes := w.Closes()
	mid, up, low := Bollinger(closes, 20, 2)
	return Snapshot{
		RSI14:   RSI(closes, 14),
		ATR14:   ATR(w.Highs(), w.Lows(), closes, 14),
		SMA20:   SMA(closes, 20),
		BBUpper: up,
		BBMid:   mid,
		BBLower: low,
	}
}
