package strategy

import (
	"fmt"
	"math"

	"github.com/trader/backend/market"
)

// Series wraps a candle slice and memoizes indicators computed over it.
// Every indicator slice has the same length as the candles and holds NaN
// until enough bars exist to compute it. A Series is not safe for concurrent use.
type Series struct {
	Candles []market.Candle
	closes  []float64
	volumes []float64
	cache   map[string][]float64
}

// NewSeries creates a Series over candles, which must be ordered oldest first.
func NewSeries(candles []market.Candle) *Series {
	s := &Series{
		Candles: candles,
		closes:  make([]float64, len(candles)),
		volumes: make([]float64, len(candles)),
		cache:   make(map[string][]float64),
	}
	for i, c := range candles {
		s.closes[i] = c.Close
		s.volumes[i] = c.Volume
	}
	return s
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.Candles) }

// Close returns the closing price at bar i.
func (s *Series) Close(i int) float64 { return s.closes[i] }

// Volume returns the volume at bar i.
func (s *Series) Volume(i int) float64 { return s.volumes[i] }

func (s *Series) memo(key string, compute func() []float64) []float64 {
	if v, ok := s.cache[key]; ok {
		return v
	}
	v := compute()
	s.cache[key] = v
	return v
}

// SMA returns the simple moving average of closes over period bars.
func (s *Series) SMA(period int) []float64 {
	return s.memo(fmt.Sprintf("sma:%d", period), func() []float64 { return SMA(s.closes, period) })
}

// EMA returns the exponential moving average of closes over period bars.
func (s *Series) EMA(period int) []float64 {
	return s.memo(fmt.Sprintf("ema:%d", period), func() []float64 { return EMA(s.closes, period) })
}

// RSI returns Wilder's relative strength index over period bars.
func (s *Series) RSI(period int) []float64 {
	return s.memo(fmt.Sprintf("rsi:%d", period), func() []float64 { return RSI(s.closes, period) })
}

// AvgVolume returns the simple moving average of volume over period bars.
func (s *Series) AvgVolume(period int) []float64 {
	return s.memo(fmt.Sprintf("avgvol:%d", period), func() []float64 { return SMA(s.volumes, period) })
}

// MACD returns the 12/26 MACD line and its 9-bar signal line.
func (s *Series) MACD() (line, signal []float64) {
	line = s.memo("macd:line", func() []float64 {
		fast, slow := EMA(s.closes, 12), EMA(s.closes, 26)
		out := make([]float64, len(fast))
		for i := range out {
			out[i] = fast[i] - slow[i]
		}
		return out
	})
	signal = s.memo("macd:signal", func() []float64 { return EMA(line, 9) })
	return line, signal
}

// SMA computes a simple moving average. Leading NaN inputs are skipped.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 {
		return out
	}
	start := firstValid(values)
	var sum float64
	for i := start; i < len(values); i++ {
		sum += values[i]
		if i-start >= period {
			sum -= values[i-period]
		}
		if i-start >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes an exponential moving average seeded with the SMA of the first
// period values. Leading NaN inputs are skipped.
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 {
		return out
	}
	start := firstValid(values)
	if len(values)-start < period {
		return out
	}

	var sum float64
	for i := start; i < start+period; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	out[start+period-1] = prev

	k := 2 / float64(period+1)
	for i := start + period; i < len(values); i++ {
		prev = values[i]*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

// RSI computes Wilder's relative strength index.
func RSI(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)
	out[period] = rsiValue(gain, loss)

	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		up, down := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			down = -d
		}
		gain = (gain*float64(period-1) + up) / float64(period)
		loss = (loss*float64(period-1) + down) / float64(period)
		out[i] = rsiValue(gain, loss)
	}
	return out
}

func rsiValue(gain, loss float64) float64 {
	switch {
	case loss == 0 && gain == 0:
		return 50
	case loss == 0:
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func firstValid(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return len(values)
}
