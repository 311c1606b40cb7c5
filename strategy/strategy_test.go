package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trader/backend/market"
)

func seriesOf(closes ...float64) *Series {
	candles := make([]market.Candle, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = market.Candle{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 100}
	}
	return NewSeries(candles)
}

func TestSMA(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
}

func TestEMA(t *testing.T) {
	out := EMA([]float64{1, 2, 3, 4}, 3)
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	// k = 0.5: 4*0.5 + 2*0.5
	assert.InDelta(t, 3.0, out[3], 1e-9)
}

func TestEMASkipsLeadingNaN(t *testing.T) {
	out := EMA([]float64{math.NaN(), math.NaN(), 2, 4}, 2)
	assert.True(t, math.IsNaN(out[2]))
	assert.InDelta(t, 3.0, out[3], 1e-9)
}

func TestRSI(t *testing.T) {
	rising := RSI([]float64{1, 2, 3, 4, 5}, 3)
	assert.True(t, math.IsNaN(rising[2]))
	assert.Equal(t, 100.0, rising[3])
	assert.Equal(t, 100.0, rising[4])

	flat := RSI([]float64{5, 5, 5, 5}, 3)
	assert.Equal(t, 50.0, flat[3])

	// Changes +2, -1, +1: avg gain 1, avg loss 1/3, RS 3, RSI 75.
	mixed := RSI([]float64{10, 12, 11, 12}, 3)
	assert.InDelta(t, 75.0, mixed[3], 1e-9)
}

func TestMACDWarmup(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	s := seriesOf(closes...)
	line, signal := s.MACD()

	assert.True(t, math.IsNaN(line[24]))
	assert.False(t, math.IsNaN(line[25]))
	assert.True(t, math.IsNaN(signal[32]))
	assert.False(t, math.IsNaN(signal[33]))
}

func TestParseTypicalQuery(t *testing.T) {
	st, err := Parse("Entry: Buy when RSI < 30 and price is above 200-day SMA. Use stop loss at 5% and take profit at 10%. Exit: Sell when RSI > 70 or trailing stop loss at 8%")
	require.NoError(t, err)

	require.Len(t, st.Entry, 1)
	assert.Len(t, st.Entry[0], 2)
	assert.Equal(t, []string{"RSI(14) < 30 AND price above SMA(200)"}, st.Entry.Describe())

	require.Len(t, st.Exit, 1)
	assert.Equal(t, []string{"RSI(14) > 70"}, st.Exit.Describe())

	assert.Equal(t, 5.0, st.StopLossPct)
	assert.Equal(t, 10.0, st.TakeProfitPct)
	assert.Equal(t, 8.0, st.TrailingStopPct)
	assert.Empty(t, st.Unrecognized)
}

func TestParseTrailingRiskSentences(t *testing.T) {
	st, err := Parse("Entry: Buy when RSI is below 30 and price is above 200-day SMA. Exit: Sell when RSI is above 70. Stop loss at 5%. Take profit at 10%")
	require.NoError(t, err)

	assert.Equal(t, []string{"RSI(14) < 30 AND price above SMA(200)"}, st.Entry.Describe())
	assert.Equal(t, []string{"RSI(14) > 70"}, st.Exit.Describe())
	assert.Equal(t, 5.0, st.StopLossPct)
	assert.Equal(t, 10.0, st.TakeProfitPct)
	assert.Empty(t, st.Unrecognized)

	st, err = Parse("Entry: Buy when RSI < 30. Exit: Sell when RSI > 70. Trailing stop at 10%. Take profit at 80%")
	require.NoError(t, err)
	assert.Equal(t, 10.0, st.TrailingStopPct)
	assert.Equal(t, 80.0, st.TakeProfitPct)
	assert.Empty(t, st.Unrecognized)
}

func TestParseRSIParenthesizedPeriod(t *testing.T) {
	st, err := Parse("Entry: RSI(14) < 30. Exit: RSI(14) > 70")
	require.NoError(t, err)
	assert.Equal(t, []string{"RSI(14) < 30"}, st.Entry.Describe())
	assert.Equal(t, []string{"RSI(14) > 70"}, st.Exit.Describe())
	assert.Empty(t, st.Unrecognized)

	st, err = Parse("buy when RSI (10) below 30")
	require.NoError(t, err)
	assert.Equal(t, []string{"RSI(10) < 30"}, st.Entry.Describe())
}

func TestParseCrossesAndVolume(t *testing.T) {
	st, err := Parse("Entry: Buy when price crosses above 50-day SMA with increasing volume. Exit: Sell when price drops 5% below 20-day SMA or take profit at 15%")
	require.NoError(t, err)

	assert.Equal(t, []string{"price crosses above SMA(50) AND volume > avg volume(20)"}, st.Entry.Describe())
	assert.Equal(t, []string{"price 5% below SMA(20)"}, st.Exit.Describe())
	assert.Equal(t, 15.0, st.TakeProfitPct)
}

func TestParseGoldenCrossAndBetween(t *testing.T) {
	st, err := Parse("Entry: Buy on golden cross (50 SMA above 200 SMA) with RSI between 40 and 60. Exit: Sell on death cross or stop loss at 10% below entry")
	require.NoError(t, err)

	assert.Equal(t, []string{"SMA(50) crosses above SMA(200) AND RSI(14) between 40 and 60"}, st.Entry.Describe())
	assert.Equal(t, []string{"SMA(50) crosses below SMA(200)"}, st.Exit.Describe())
	assert.Equal(t, 10.0, st.StopLossPct)
	assert.Empty(t, st.Unrecognized)
}

func TestParseMACD(t *testing.T) {
	st, err := Parse("Entry: Buy when MACD crosses above signal line and RSI is below 50. Exit: Sell when MACD crosses below signal line with trailing stop at 7%")
	require.NoError(t, err)

	assert.Equal(t, []string{"MACD crosses above signal AND RSI(14) < 50"}, st.Entry.Describe())
	assert.Equal(t, []string{"MACD crosses below signal"}, st.Exit.Describe())
	assert.Equal(t, 7.0, st.TrailingStopPct)
}

func TestParseWithoutMarkers(t *testing.T) {
	st, err := Parse("buy when 9-day RSI below 20")
	require.NoError(t, err)

	assert.Equal(t, []string{"RSI(9) < 20"}, st.Entry.Describe())
	assert.Empty(t, st.Exit)
}

func TestParseNoEntryRule(t *testing.T) {
	st, err := Parse("Entry: buy when the moon is full. Exit: sell at 5pm")
	assert.ErrorIs(t, err, ErrNoEntryRule)
	require.NotNil(t, st)
	assert.Contains(t, st.Unrecognized, "buy when the moon is full")
}

func TestRuleSignal(t *testing.T) {
	s := seriesOf(10, 9, 8, 7, 6, 12)

	below := Rule{Group{priceVsMA{kind: kindSMA, period: 3, above: false}}}
	assert.False(t, below.Signal(s, 1), "SMA not ready")
	assert.True(t, below.Signal(s, 4))

	crossUp := Rule{Group{priceVsMA{kind: kindSMA, period: 3, above: true, cross: true}}}
	assert.False(t, crossUp.Signal(s, 4))
	assert.True(t, crossUp.Signal(s, 5))

	assert.False(t, Rule{}.Signal(s, 5))
	assert.False(t, Rule{Group{}}.Signal(s, 5), "empty group never signals")
}
