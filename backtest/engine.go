package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/trader/backend/logger"
	"github.com/trader/backend/market"
	"github.com/trader/backend/strategy"
	"github.com/trader/backend/trader"
)

// ErrNoData is returned when no ticker in a request could be loaded.
var ErrNoData = errors.New("no market data for any ticker")

const tradingDaysPerYear = 252

// Exit reasons recorded on trades.
const (
	ReasonStopLoss     = "stop_loss"
	ReasonTrailingStop = "trailing_stop"
	ReasonTakeProfit   = "take_profit"
	ReasonExitSignal   = "exit_signal"
	ReasonEndOfData    = "end_of_data"
)

// Engine runs strategies against historical candles.
type Engine struct {
	provider market.Provider
	now      func() time.Time
}

// NewEngine creates an engine reading candles from provider.
func NewEngine(provider market.Provider) *Engine {
	return &Engine{provider: provider, now: time.Now}
}

// Run backtests st over every ticker in req, which must already be normalized.
// Capital is split equally; allocations of tickers that fail to load stay as cash.
func (e *Engine) Run(ctx context.Context, req Request, st *strategy.Strategy, progress ProgressFunc) (*Response, error) {
	alloc := req.Capital / float64(len(req.Tickers))
	resp := &Response{
		ID:        uuid.NewString(),
		Query:     req.Query,
		Tickers:   req.Tickers,
		Period:    req.Period,
		Capital:   req.Capital,
		Strategy:  st.Summary(),
		Results:   make([]TickerResult, 0, len(req.Tickers)),
		Errors:    make(map[string]string),
		CreatedAt: e.now().UTC(),
	}

	for i, ticker := range req.Tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if progress != nil {
			progress(Progress{Ticker: ticker, Index: i + 1, Total: len(req.Tickers)})
		}

		candles, err := e.provider.Candles(ctx, ticker, req.Period)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.WithFields(logger.Fields{"ticker": ticker, "period": req.Period}).WithError(err).Warn("failed to load candles")
			resp.Errors[ticker] = err.Error()
			continue
		}
		if len(candles) < 2 {
			resp.Errors[ticker] = fmt.Sprintf("not enough data: %d candles", len(candles))
			continue
		}

		result, err := Simulate(ticker, candles, st, alloc)
		if err != nil {
			resp.Errors[ticker] = err.Error()
			continue
		}
		resp.Results = append(resp.Results, *result)
	}

	if len(resp.Results) == 0 {
		return resp, ErrNoData
	}

	resp.PortfolioMetrics = portfolioMetrics(resp.Results, req.Capital, alloc*float64(len(resp.Errors)))
	if len(resp.Errors) == 0 {
		resp.Errors = nil
	}

	logger.WithFields(logger.Fields{
		"id":         resp.ID,
		"tickers":    len(req.Tickers),
		"failed":     len(resp.Errors),
		"return_pct": resp.PortfolioMetrics.PortfolioReturnPct,
	}).Info("backtest completed")
	return resp, nil
}

type openTrade struct {
	index  int
	date   time.Time
	price  float64
	shares float64
	peak   float64
}

// Simulate replays candles for one ticker through a paper account funded with capital.
func Simulate(ticker string, candles []market.Candle, st *strategy.Strategy, capital float64) (*TickerResult, error) {
	pt := trader.NewPaperTrader("", capital)
	series := strategy.NewSeries(candles)

	result := &TickerResult{
		Ticker:      ticker,
		Trades:      []Trade{},
		EquityCurve: make([]EquityPoint, 0, len(candles)),
	}

	var open *openTrade
	for i, c := range candles {
		pt.SetTime(c.Time)
		exitedToday := false

		if open != nil && i > open.index {
			price, reason := exitFor(st, series, i, c, open)
			if reason != "" {
				if _, err := pt.ClosePosition(ticker, price, reason); err != nil {
					return nil, fmt.Errorf("close %s: %w", ticker, err)
				}
				result.Trades = append(result.Trades, closeTrade(open, c.Time, price, reason))
				open = nil
				exitedToday = true
			} else if c.High > open.peak {
				open.peak = c.High
			}
		}

		if open == nil && !exitedToday && i > 0 && st.Entry.Signal(series, i) {
			bal, err := pt.GetBalance()
			if err != nil {
				return nil, err
			}
			shares := math.Floor(bal[0].Available / c.Close)
			if shares > 0 {
				if _, err := pt.CreateOrder(ticker, trader.BuySide, trader.MarketOrder, shares, c.Close); err != nil {
					return nil, fmt.Errorf("open %s: %w", ticker, err)
				}
				open = &openTrade{index: i, date: c.Time, price: c.Close, shares: shares, peak: c.Close}
			}
		}

		pt.Mark(ticker, c.Close)
		result.EquityCurve = append(result.EquityCurve, EquityPoint{
			Date:  c.Time.UTC().Format(market.DateLayout),
			Value: round2(pt.Equity()),
		})
	}

	last := candles[len(candles)-1]
	if open != nil {
		if _, err := pt.ClosePosition(ticker, last.Close, ReasonEndOfData); err != nil {
			return nil, fmt.Errorf("close %s: %w", ticker, err)
		}
		result.Trades = append(result.Trades, closeTrade(open, last.Time, last.Close, ReasonEndOfData))
	}

	result.Metrics = tickerMetrics(result, capital, pt.Equity(), candles[0].Close, last.Close)
	return result, nil
}

// exitFor decides whether the open trade exits on bar i. Stops are checked
// before targets because the intraday order of high and low is unknown.
// A bar that gaps through a level fills at the open.
func exitFor(st *strategy.Strategy, series *strategy.Series, i int, c market.Candle, open *openTrade) (float64, string) {
	if st.StopLossPct > 0 {
		stop := open.price * (1 - st.StopLossPct/100)
		if c.Low <= stop {
			return math.Min(stop, c.Open), ReasonStopLoss
		}
	}
	if st.TrailingStopPct > 0 {
		stop := open.peak * (1 - st.TrailingStopPct/100)
		if c.Low <= stop {
			return math.Min(stop, c.Open), ReasonTrailingStop
		}
	}
	if st.TakeProfitPct > 0 {
		target := open.price * (1 + st.TakeProfitPct/100)
		if c.High >= target {
			return math.Max(target, c.Open), ReasonTakeProfit
		}
	}
	if st.Exit.Signal(series, i) {
		return c.Close, ReasonExitSignal
	}
	return 0, ""
}

func closeTrade(open *openTrade, at time.Time, price float64, reason string) Trade {
	return Trade{
		EntryDate:   open.date.UTC().Format(market.DateLayout),
		EntryPrice:  round2(open.price),
		ExitDate:    at.UTC().Format(market.DateLayout),
		ExitPrice:   round2(price),
		Shares:      open.shares,
		PnL:         round2((price - open.price) * open.shares),
		PnLPct:      round2((price/open.price - 1) * 100),
		HoldingDays: int(at.Sub(open.date).Hours() / 24),
		ExitReason:  reason,
	}
}
