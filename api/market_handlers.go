package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trader/backend/logger"
	"github.com/trader/backend/market"
	"github.com/trader/backend/metrics"
)

const searchLimit = 10

func symbolParam(c *gin.Context) (string, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		abortWith(c, &apiError{Status: http.StatusBadRequest, Message: "symbol is required"})
		return "", false
	}
	return symbol, true
}

func marketError(c *gin.Context, symbol string, err error) {
	if errors.Is(err, market.ErrSymbolNotFound) {
		abortWith(c, &apiError{Status: http.StatusNotFound, Message: "no data for " + symbol})
		return
	}
	metrics.MarketDataErrors.Inc()
	logger.WithFields(logger.Fields{"symbol": symbol}).WithError(err).Warn("market data request failed")
	abortWith(c, &apiError{Status: http.StatusBadGateway, Message: "market data unavailable"})
}

func (s *Server) searchStocks(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusOK, []market.SearchResult{})
		return
	}

	results := s.deps.Catalog.Search(q, searchLimit)
	if len(results) == 0 {
		remote, err := s.deps.Provider.Search(c.Request.Context(), q)
		if err != nil {
			metrics.MarketDataErrors.Inc()
			logger.WithError(err).Warn("remote symbol search failed")
		}
		if len(remote) > searchLimit {
			remote = remote[:searchLimit]
		}
		results = append(results, remote...)
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) getHistoricalPrice(c *gin.Context) {
	symbol, ok := symbolParam(c)
	if !ok {
		return
	}
	rangeStr, ok := market.TimeframeToRange(c.Query("timeframe"))
	if !ok {
		abortWith(c, &apiError{Status: http.StatusBadRequest, Message: "unsupported timeframe"})
		return
	}

	candles, err := s.deps.Provider.Candles(c.Request.Context(), symbol, rangeStr)
	if err != nil {
		marketError(c, symbol, err)
		return
	}
	c.JSON(http.StatusOK, candles)
}

func (s *Server) getCompanyOverview(c *gin.Context) {
	symbol, ok := symbolParam(c)
	if !ok {
		return
	}

	profile := s.deps.Catalog.Profile(symbol)
	quote, err := s.deps.Provider.Quote(c.Request.Context(), profile.Symbol)
	if err != nil {
		logger.WithFields(logger.Fields{"symbol": symbol}).WithError(err).Debug("quote unavailable for company overview")
	} else {
		if profile.CompanyName == profile.Symbol && quote.Name != "" {
			profile.CompanyName = quote.Name
		}
		if quote.Currency != "" {
			profile.Currency = quote.Currency
		}
		if quote.Exchange != "" {
			profile.Exchange = quote.Exchange
		}
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) getQuote(c *gin.Context) {
	symbol, ok := symbolParam(c)
	if !ok {
		return
	}

	quote, err := s.deps.Provider.Quote(c.Request.Context(), symbol)
	if err != nil {
		marketError(c, symbol, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (s *Server) getBaskets(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Catalog.Baskets())
}
