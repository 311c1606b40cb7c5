package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// ErrSymbolNotFound is returned when the provider has no data for a symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// APIClient is a client for Yahoo-Finance-compatible chart and search endpoints
type APIClient struct {
	ChartURL   string
	SearchURL  string
	HTTPClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(chartURL, searchURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		ChartURL:  strings.TrimRight(chartURL, "/"),
		SearchURL: strings.TrimRight(searchURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		Currency           string  `json:"currency"`
		ExchangeName       string  `json:"exchangeName"`
		FullExchangeName   string  `json:"fullExchangeName"`
		LongName           string  `json:"longName"`
		ShortName          string  `json:"shortName"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		ChartPreviousClose float64 `json:"chartPreviousClose"`
		PreviousClose      float64 `json:"previousClose"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}

// Candles gets daily candles for symbol over rangeStr
func (c *APIClient) Candles(ctx context.Context, symbol, rangeStr string) ([]Candle, error) {
	res, err := c.chart(ctx, symbol, rangeStr)
	if err != nil {
		return nil, err
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: %s has no price series", ErrSymbolNotFound, symbol)
	}

	q := res.Indicators.Quote[0]
	candles := make([]Candle, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		open, high, low, cls := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
		if open == nil || high == nil || low == nil || cls == nil {
			continue
		}
		var vol float64
		if v := at(q.Volume, i); v != nil {
			vol = *v
		}
		candles = append(candles, Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   *open,
			High:   *high,
			Low:    *low,
			Close:  *cls,
			Volume: vol,
		})
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: %s returned no candles for %s", ErrSymbolNotFound, symbol, rangeStr)
	}
	return candles, nil
}

// Quote gets the latest quote for symbol from the chart metadata
func (c *APIClient) Quote(ctx context.Context, symbol string) (*Quote, error) {
	res, err := c.chart(ctx, symbol, "5d")
	if err != nil {
		return nil, err
	}

	m := res.Meta
	prev := m.ChartPreviousClose
	if m.PreviousClose != 0 {
		prev = m.PreviousClose
	}
	name := m.LongName
	if name == "" {
		name = m.ShortName
	}
	exchange := m.FullExchangeName
	if exchange == "" {
		exchange = m.ExchangeName
	}

	quote := &Quote{
		Symbol:        m.Symbol,
		Name:          name,
		Price:         m.RegularMarketPrice,
		PreviousClose: prev,
		Currency:      m.Currency,
		Exchange:      exchange,
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	if prev != 0 {
		quote.Change = m.RegularMarketPrice - prev
		quote.ChangePct = quote.Change / prev * 100
	}
	return quote, nil
}

// Search looks up equities matching q
func (c *APIClient) Search(ctx context.Context, q string) ([]SearchResult, error) {
	u := fmt.Sprintf("%s/v1/finance/search?q=%s&quotesCount=10&newsCount=0", c.SearchURL, url.QueryEscape(q))

	var body searchResponse
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(body.Quotes))
	for _, quote := range body.Quotes {
		if quote.QuoteType != "" && quote.QuoteType != "EQUITY" {
			continue
		}
		name := quote.LongName
		if name == "" {
			name = quote.ShortName
		}
		results = append(results, SearchResult{Symbol: quote.Symbol, Name: name})
	}
	return results, nil
}

func (c *APIClient) chart(ctx context.Context, symbol, rangeStr string) (*chartResult, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d", c.ChartURL, url.PathEscape(symbol), url.QueryEscape(rangeStr))

	var body chartResponse
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if e := body.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
		}
		return nil, fmt.Errorf("chart %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(body.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return &body.Chart.Result[0], nil
}

// getJSON performs a GET request and decodes a JSON body into out
func (c *APIClient) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// The chart endpoint reports unknown symbols as 404 with a JSON error body.
	if resp.StatusCode == http.StatusNotFound {
		if json.Unmarshal(body, out) == nil {
			return nil
		}
		return ErrSymbolNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.Unmarshal(body, out)
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
