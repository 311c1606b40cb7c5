package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trader/backend/backtest"
	"github.com/trader/backend/config"
	"github.com/trader/backend/market"
	"github.com/trader/backend/storage"
)

type fakeProvider struct {
	candles map[string][]market.Candle
	search  []market.SearchResult
}

func (f *fakeProvider) Candles(ctx context.Context, symbol, rangeStr string) ([]market.Candle, error) {
	c, ok := f.candles[symbol]
	if !ok {
		return nil, market.ErrSymbolNotFound
	}
	return c, nil
}

func (f *fakeProvider) Quote(ctx context.Context, symbol string) (*market.Quote, error) {
	c, ok := f.candles[symbol]
	if !ok || len(c) == 0 {
		return nil, market.ErrSymbolNotFound
	}
	last := c[len(c)-1]
	return &market.Quote{Symbol: symbol, Name: symbol + " Ltd", Price: last.Close, Currency: "INR", Exchange: "NSI"}, nil
}

func (f *fakeProvider) Search(ctx context.Context, q string) ([]market.SearchResult, error) {
	return f.search, nil
}

func rising(n int) []market.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, n)
	for i := range out {
		p := 100 + float64(i%20) - float64(i%7)
		out[i] = market.Candle{Time: start.AddDate(0, 0, i), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 1000}
	}
	return out
}

func newTestServer(t *testing.T, perMinute int) (*Server, *storage.SQLite) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	provider := &fakeProvider{
		candles: map[string][]market.Candle{"TCS.NS": rising(120), "INFY.NS": rising(120)},
		search:  []market.SearchResult{{Symbol: "AAPL", Name: "Apple Inc."}},
	}
	cfg := &config.Config{
		Backtest:  config.BacktestConfig{MaxTickers: 5, DefaultCapital: 50000},
		RateLimit: config.RateLimitConfig{PerMinute: perMinute, Burst: 2},
	}
	return NewServer(Deps{
		Config:   cfg,
		Provider: provider,
		Catalog:  market.NewCatalog(),
		Engine:   backtest.NewEngine(provider),
		Store:    store,
	}), store
}

func do(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

const rsiQuery = "Entry: Buy when RSI < 30. Exit: Sell when RSI > 70"

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, 0)

	for _, path := range []string{"/health", "/api/health"} {
		w := do(s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	s, _ := newTestServer(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))
}

func TestRunBacktest(t *testing.T) {
	s, store := newTestServer(t, 0)

	w := do(s, http.MethodPost, "/backtest", backtest.Request{
		Query:   rsiQuery,
		Tickers: []string{"tcs.ns", "INFY.NS", "TCS.NS"},
		Period:  "1y",
		Capital: 100000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp backtest.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, []string{"TCS.NS", "INFY.NS"}, resp.Tickers)
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, []string{"RSI(14) < 30"}, resp.Strategy.EntryRules)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Contains(t, string(raw["portfolio_metrics"]), "portfolio_return_pct")
	assert.Contains(t, string(raw["portfolio_metrics"]), "avg_win_rate_pct")

	stored, err := store.GetRun(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, stored.ID)

	w = do(s, http.MethodGet, "/backtests/"+resp.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(s, http.MethodGet, "/backtests?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var runs []storage.RunSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, resp.ID, runs[0].ID)
}

func TestRunBacktestPartialFailure(t *testing.T) {
	s, _ := newTestServer(t, 0)

	w := do(s, http.MethodPost, "/backtest", backtest.Request{Query: rsiQuery, Tickers: []string{"TCS.NS", "NOPE.NS"}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp backtest.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 1)
	assert.Contains(t, resp.Errors, "NOPE.NS")
	assert.Equal(t, 50000.0, resp.Capital)
}

func TestRunBacktestRejections(t *testing.T) {
	s, _ := newTestServer(t, 0)

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"malformed json", "not an object", http.StatusBadRequest},
		{"missing query", map[string]interface{}{"tickers": []string{"TCS.NS"}}, http.StatusUnprocessableEntity},
		{"missing tickers", map[string]interface{}{"query": rsiQuery}, http.StatusUnprocessableEntity},
		{"too many tickers", backtest.Request{Query: rsiQuery, Tickers: []string{"A", "B", "C", "D", "E", "F"}}, http.StatusUnprocessableEntity},
		{"bad period", backtest.Request{Query: rsiQuery, Tickers: []string{"TCS.NS"}, Period: "3d"}, http.StatusUnprocessableEntity},
		{"negative capital", backtest.Request{Query: rsiQuery, Tickers: []string{"TCS.NS"}, Capital: -1}, http.StatusUnprocessableEntity},
		{"unparseable strategy", backtest.Request{Query: "buy when the moon is full", Tickers: []string{"TCS.NS"}}, http.StatusUnprocessableEntity},
		{"no data", backtest.Request{Query: rsiQuery, Tickers: []string{"NOPE.NS"}}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, http.MethodPost, "/backtest", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestUnparseableStrategyNamesClauses(t *testing.T) {
	s, _ := newTestServer(t, 0)
	w := do(s, http.MethodPost, "/backtest", backtest.Request{Query: "buy when the moon is full", Tickers: []string{"TCS.NS"}})
	assert.Contains(t, w.Body.String(), "moon")
}

func TestNoDataListsTickerErrors(t *testing.T) {
	s, _ := newTestServer(t, 0)
	w := do(s, http.MethodPost, "/backtest", backtest.Request{Query: rsiQuery, Tickers: []string{"NOPE.NS"}})
	require.Equal(t, http.StatusBadGateway, w.Code)

	var body apiError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Details, "NOPE.NS")
}

func TestGetRunNotFound(t *testing.T) {
	s, _ := newTestServer(t, 0)
	w := do(s, http.MethodGet, "/backtests/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, http.MethodGet, "/backtests?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, 1)
	body := backtest.Request{Query: rsiQuery, Tickers: []string{"NOPE.NS"}}

	assert.NotEqual(t, http.StatusTooManyRequests, do(s, http.MethodPost, "/backtest", body).Code)
	assert.NotEqual(t, http.StatusTooManyRequests, do(s, http.MethodPost, "/backtest", body).Code)

	w := do(s, http.MethodPost, "/backtest", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "61", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate_limited"}`, w.Body.String())

	// Market data routes are not limited.
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/baskets", nil).Code)
}

func TestSearchStocks(t *testing.T) {
	s, _ := newTestServer(t, 0)

	w := do(s, http.MethodGet, "/api/stocks/search?q=tcs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var results []market.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.NotEmpty(t, results)
	assert.Equal(t, "TCS.NS", results[0].Symbol)

	w = do(s, http.MethodGet, "/api/stocks/search?q=apple", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	assert.Equal(t, []market.SearchResult{{Symbol: "AAPL", Name: "Apple Inc."}}, results)

	w = do(s, http.MethodGet, "/api/stocks/search?q=", nil)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestHistoricalPrice(t *testing.T) {
	s, _ := newTestServer(t, 0)

	w := do(s, http.MethodGet, "/api/historical-price?symbol=tcs.ns&timeframe=1Y", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var candles []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &candles))
	require.Len(t, candles, 120)
	assert.Equal(t, "2024-01-01", candles[0]["date"])

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/historical-price", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/historical-price?symbol=TCS.NS&timeframe=7W", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/historical-price?symbol=NOPE", nil).Code)
}

func TestCompanyOverview(t *testing.T) {
	s, _ := newTestServer(t, 0)

	w := do(s, http.MethodGet, "/api/company-overview?symbol=TCS", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile market.CompanyProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "TCS.NS", profile.Symbol)
	assert.Equal(t, "NSI", profile.Exchange)

	w = do(s, http.MethodGet, "/api/company-overview?symbol=zzz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "ZZZ", profile.CompanyName)
	assert.Equal(t, "Unknown", profile.Sector)

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/company-overview", nil).Code)
}

func TestQuoteAndBaskets(t *testing.T) {
	s, _ := newTestServer(t, 0)

	w := do(s, http.MethodGet, "/api/quote?symbol=INFY.NS", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"symbol":"INFY.NS"`)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/quote?symbol=NOPE", nil).Code)

	w = do(s, http.MethodGet, "/api/baskets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nifty50")
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, 0)
	do(s, http.MethodGet, "/health", nil)

	w := do(s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestStreamBacktest(t *testing.T) {
	s, _ := newTestServer(t, 0)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/backtest/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(backtest.Request{Query: rsiQuery, Tickers: []string{"TCS.NS", "INFY.NS"}}))

	var types []string
	for {
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		types = append(types, msg.Type)
		if msg.Type == MessageResult {
			var resp backtest.Response
			require.NoError(t, json.Unmarshal(msg.Data, &resp))
			assert.Len(t, resp.Results, 2)
		}
	}
	assert.Equal(t, []string{MessageProgress, MessageProgress, MessageResult}, types)
}

func TestStreamBacktestInvalidRequest(t *testing.T) {
	s, _ := newTestServer(t, 0)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/backtest/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(backtest.Request{Query: rsiQuery}))

	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageError, msg.Type)
}

// blockingProvider holds every candle fetch until the caller's context ends.
type blockingProvider struct {
	fakeProvider
	started chan struct{}
}

func (b *blockingProvider) Candles(ctx context.Context, symbol, rangeStr string) ([]market.Candle, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStreamBacktestStopsWithServer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := storage.NewSQLite(":memory:")
	require.NoError(t, err)
	defer store.Close()

	provider := &blockingProvider{started: make(chan struct{})}
	base, stop := context.WithCancel(context.Background())
	defer stop()
	s := NewServer(Deps{
		Config:      &config.Config{Backtest: config.BacktestConfig{MaxTickers: 5, DefaultCapital: 50000}},
		Provider:    provider,
		Catalog:     market.NewCatalog(),
		Engine:      backtest.NewEngine(provider),
		Store:       store,
		BaseContext: base,
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/backtest/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(backtest.Request{Query: rsiQuery, Tickers: []string{"TCS.NS"}}))

	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageProgress, msg.Type)
	<-provider.started

	stop()
	waited := make(chan struct{})
	go func() {
		s.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop")
	}

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageError, msg.Type)

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
