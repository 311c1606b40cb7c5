package backtest

import "math"

func tickerMetrics(r *TickerResult, capital, final, firstClose, lastClose float64) Metrics {
	m := Metrics{
		InitialCapital: round2(capital),
		FinalValue:     round2(final),
		TotalReturnPct: round2((final/capital - 1) * 100),
		NumTrades:      len(r.Trades),
	}
	if firstClose > 0 {
		m.BuyAndHoldReturnPct = round2((lastClose/firstClose - 1) * 100)
	}

	if len(r.Trades) > 0 {
		wins := 0
		var sum float64
		for _, t := range r.Trades {
			if t.PnL > 0 {
				wins++
			}
			sum += t.PnLPct
		}
		m.WinRatePct = round2(float64(wins) / float64(len(r.Trades)) * 100)
		m.AvgTradeReturnPct = round2(sum / float64(len(r.Trades)))
	}

	values := make([]float64, len(r.EquityCurve))
	for i, p := range r.EquityCurve {
		values[i] = p.Value
	}
	m.MaxDrawdownPct = round2(maxDrawdownPct(values))
	m.SharpeRatio = round2(sharpeRatio(values))
	return m
}

func portfolioMetrics(results []TickerResult, capital, idleCash float64) PortfolioMetrics {
	pm := PortfolioMetrics{
		InitialCapital: round2(capital),
		TickersTested:  len(results),
	}

	final := idleCash
	var winRateSum float64
	traded := 0
	best, worst := -1, -1
	for i, r := range results {
		final += r.Metrics.FinalValue
		pm.TotalTrades += r.Metrics.NumTrades
		if r.Metrics.NumTrades > 0 {
			winRateSum += r.Metrics.WinRatePct
			traded++
		}
		if best < 0 || r.Metrics.TotalReturnPct > results[best].Metrics.TotalReturnPct {
			best = i
		}
		if worst < 0 || r.Metrics.TotalReturnPct < results[worst].Metrics.TotalReturnPct {
			worst = i
		}
	}

	pm.FinalValue = round2(final)
	if capital > 0 {
		pm.PortfolioReturnPct = round2((final - capital) / capital * 100)
	}
	if traded > 0 {
		pm.AvgWinRatePct = round2(winRateSum / float64(traded))
	}
	if best >= 0 {
		pm.BestTicker = results[best].Ticker
		pm.WorstTicker = results[worst].Ticker
	}
	return pm
}

// maxDrawdownPct is the largest peak-to-trough fall of values, in percent.
func maxDrawdownPct(values []float64) float64 {
	var peak, worst float64
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// sharpeRatio annualizes the mean over the sample deviation of daily returns.
func sharpeRatio(values []float64) float64 {
	if len(values) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] > 0 {
			returns = append(returns, values[i]/values[i-1]-1)
		}
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(returns)-1))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
