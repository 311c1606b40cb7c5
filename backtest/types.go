package backtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/trader/backend/market"
	"github.com/trader/backend/strategy"
)

// DefaultPeriod is used when a request leaves the period empty.
const DefaultPeriod = "2y"

// Request is the body of a backtest call.
type Request struct {
	Query   string   `json:"query" binding:"required,min=3"`
	Tickers []string `json:"tickers" binding:"required,min=1"`
	Period  string   `json:"period"`
	Capital float64  `json:"capital"`
}

// Normalize upper-cases and de-duplicates tickers and applies defaults.
func (r *Request) Normalize(defaultCapital float64) {
	seen := make(map[string]bool, len(r.Tickers))
	tickers := r.Tickers[:0]
	for _, t := range r.Tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tickers = append(tickers, t)
	}
	r.Tickers = tickers

	r.Period = strings.ToLower(strings.TrimSpace(r.Period))
	if r.Period == "" {
		r.Period = DefaultPeriod
	}
	if r.Capital == 0 {
		r.Capital = defaultCapital
	}
}

// Validate checks a normalized request.
func (r *Request) Validate(maxTickers int) error {
	switch {
	case len(strings.TrimSpace(r.Query)) < 3:
		return fmt.Errorf("query must be at least 3 characters")
	case len(r.Tickers) == 0:
		return fmt.Errorf("at least one ticker is required")
	case maxTickers > 0 && len(r.Tickers) > maxTickers:
		return fmt.Errorf("at most %d tickers are allowed, got %d", maxTickers, len(r.Tickers))
	case r.Capital <= 0:
		return fmt.Errorf("capital must be positive")
	case !market.ValidRange(r.Period):
		return fmt.Errorf("unsupported period %q", r.Period)
	}
	return nil
}

// Trade is one completed round trip.
type Trade struct {
	EntryDate   string  `json:"entry_date"`
	EntryPrice  float64 `json:"entry_price"`
	ExitDate    string  `json:"exit_date"`
	ExitPrice   float64 `json:"exit_price"`
	Shares      float64 `json:"shares"`
	PnL         float64 `json:"pnl"`
	PnLPct      float64 `json:"pnl_pct"`
	HoldingDays int     `json:"holding_days"`
	ExitReason  string  `json:"exit_reason"`
}

// EquityPoint is the account value at the close of a day.
type EquityPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Metrics summarises one ticker's simulation.
type Metrics struct {
	InitialCapital      float64 `json:"initial_capital"`
	FinalValue          float64 `json:"final_value"`
	TotalReturnPct      float64 `json:"total_return_pct"`
	BuyAndHoldReturnPct float64 `json:"buy_and_hold_return_pct"`
	NumTrades           int     `json:"num_trades"`
	WinRatePct          float64 `json:"win_rate_pct"`
	AvgTradeReturnPct   float64 `json:"avg_trade_return_pct"`
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	SharpeRatio         float64 `json:"sharpe_ratio"`
}

// TickerResult is the outcome for one ticker.
type TickerResult struct {
	Ticker      string        `json:"ticker"`
	Metrics     Metrics       `json:"metrics"`
	Trades      []Trade       `json:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve"`
}

// PortfolioMetrics aggregates all tickers.
type PortfolioMetrics struct {
	InitialCapital     float64 `json:"initial_capital"`
	FinalValue         float64 `json:"final_value"`
	PortfolioReturnPct float64 `json:"portfolio_return_pct"`
	AvgWinRatePct      float64 `json:"avg_win_rate_pct"`
	TotalTrades        int     `json:"total_trades"`
	TickersTested      int     `json:"tickers_tested"`
	BestTicker         string  `json:"best_ticker,omitempty"`
	WorstTicker        string  `json:"worst_ticker,omitempty"`
}

// Response is the full backtest result.
type Response struct {
	ID               string            `json:"id"`
	Query            string            `json:"query"`
	Tickers          []string          `json:"tickers"`
	Period           string            `json:"period"`
	Capital          float64           `json:"capital"`
	Strategy         strategy.Summary  `json:"strategy"`
	PortfolioMetrics PortfolioMetrics  `json:"portfolio_metrics"`
	Results          []TickerResult    `json:"results"`
	Errors           map[string]string `json:"errors,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Progress reports that a ticker is about to be processed.
type Progress struct {
	Ticker string `json:"ticker"`
	Index  int    `json:"index"`
	Total  int    `json:"total"`
}

// ProgressFunc receives progress updates. It is called from the goroutine running the backtest.
type ProgressFunc func(Progress)
