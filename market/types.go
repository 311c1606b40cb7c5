package market

import (
	"context"
	"encoding/json"
	"time"
)

// DateLayout is the day format used on the wire.
const DateLayout = "2006-01-02"

// Candle represents a single daily OHLCV bar
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

type candleJSON struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// MarshalJSON writes the candle with a YYYY-MM-DD date, the shape charts consume.
func (c Candle) MarshalJSON() ([]byte, error) {
	return json.Marshal(candleJSON{
		Date:   c.Time.UTC().Format(DateLayout),
		Open:   c.Open,
		High:   c.High,
		Low:    c.Low,
		Close:  c.Close,
		Volume: c.Volume,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *Candle) UnmarshalJSON(data []byte) error {
	var w candleJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t, err := time.Parse(DateLayout, w.Date)
	if err != nil {
		return err
	}
	*c = Candle{Time: t, Open: w.Open, High: w.High, Low: w.Low, Close: w.Close, Volume: w.Volume}
	return nil
}

// Quote is the latest price information for a symbol
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name,omitempty"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previousClose"`
	Change        float64 `json:"change"`
	ChangePct     float64 `json:"changePct"`
	Currency      string  `json:"currency,omitempty"`
	Exchange      string  `json:"exchange,omitempty"`
}

// SearchResult is one symbol search hit
type SearchResult struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// CompanyProfile describes a listed company
type CompanyProfile struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"companyName"`
	Sector      string  `json:"sector"`
	Industry    string  `json:"industry"`
	Description string  `json:"description"`
	Website     string  `json:"website"`
	CEO         string  `json:"ceo"`
	Employees   int     `json:"employees"`
	MarketCap   float64 `json:"marketCap"`
	Country     string  `json:"country"`
	Currency    string  `json:"currency,omitempty"`
	Exchange    string  `json:"exchange,omitempty"`
}

// Provider supplies market data. Implementations must be safe for concurrent use.
type Provider interface {
	// Candles returns daily bars for symbol over a range such as "1y" or "max", oldest first.
	Candles(ctx context.Context, symbol, rangeStr string) ([]Candle, error)

	// Quote returns the latest quote for symbol.
	Quote(ctx context.Context, symbol string) (*Quote, error)

	// Search returns symbols matching q.
	Search(ctx context.Context, q string) ([]SearchResult, error)
}
