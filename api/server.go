package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/trader/backend/backtest"
	"github.com/trader/backend/config"
	"github.com/trader/backend/market"
	"github.com/trader/backend/metrics"
	"github.com/trader/backend/storage"
)

// RunStore persists finished backtests.
type RunStore interface {
	SaveRun(ctx context.Context, resp *backtest.Response) error
	GetRun(ctx context.Context, id string) (*backtest.Response, error)
	ListRuns(ctx context.Context, limit int) ([]storage.RunSummary, error)
}

// Deps are the collaborators the API serves from.
type Deps struct {
	Config   *config.Config
	Provider market.Provider
	Catalog  *market.Catalog
	Engine   *backtest.Engine
	Store    RunStore

	// BaseContext bounds work that outlives its request, such as streamed
	// backtests on hijacked connections. Nil means context.Background.
	BaseContext context.Context
}

// Server represents the API server
type Server struct {
	router  *gin.Engine
	deps    Deps
	baseCtx context.Context
	streams sync.WaitGroup
}

// NewServer creates a new API server. gin's mode must be set before calling it.
func NewServer(deps Deps) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger())
	router.Use(metrics.Handler())

	server := &Server{
		router:  router,
		deps:    deps,
		baseCtx: deps.BaseContext,
	}
	if server.baseCtx == nil {
		server.baseCtx = context.Background()
	}

	server.setupRoutes()

	return server
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Wait blocks until every streamed backtest has returned. http.Server.Shutdown
// does not track hijacked connections, so callers cancel BaseContext and then
// Wait before closing the store.
func (s *Server) Wait() {
	s.streams.Wait()
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", metrics.Exposer())

	limited := s.router.Group("/", RateLimit(s.deps.Config.RateLimit.PerMinute, s.deps.Config.RateLimit.Burst))
	limited.POST("/backtest", s.runBacktest)
	limited.GET("/backtest/stream", s.streamBacktest)

	s.router.GET("/backtests", s.listRuns)
	s.router.GET("/backtests/:id", s.getRun)

	// Market data routes
	api := s.router.Group("/api")
	api.GET("/health", s.healthCheck)
	api.GET("/stocks/search", s.searchStocks)
	api.GET("/historical-price", s.getHistoricalPrice)
	api.GET("/company-overview", s.getCompanyOverview)
	api.GET("/quote", s.getQuote)
	api.GET("/baskets", s.getBaskets)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
