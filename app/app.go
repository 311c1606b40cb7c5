package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/trader/backend/api"
	"github.com/trader/backend/backtest"
	"github.com/trader/backend/config"
	"github.com/trader/backend/logger"
	"github.com/trader/backend/market"
	"github.com/trader/backend/storage"
)

// App holds application-wide dependencies
type App struct {
	Config   *config.Config
	Store    *storage.SQLite
	Provider market.Provider
	Catalog  *market.Catalog
	Engine   *backtest.Engine
}

// CreateApp loads configuration and wires every component of the backend.
func CreateApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return New(cfg)
}

// New wires the backend from an already loaded configuration.
func New(cfg *config.Config) (*App, error) {
	logger.Init(cfg.Logging)

	store, err := storage.NewSQLite(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	client := market.NewAPIClient(cfg.Market.ChartURL, cfg.Market.SearchURL, cfg.Market.Timeout())
	provider, err := market.NewCachedProvider(client, cfg.Market.CacheSize, cfg.Market.CacheTTL())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create market cache: %w", err)
	}

	return &App{
		Config:   cfg,
		Store:    store,
		Provider: provider,
		Catalog:  market.NewCatalog(),
		Engine:   backtest.NewEngine(provider),
	}, nil
}

// Run serves the API until SIGINT or SIGTERM.
func (a *App) Run(debug bool, host string, port int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx, debug, host, port)
}

// RunContext serves the API until ctx is done, then shuts down gracefully and
// closes storage.
func (a *App) RunContext(ctx context.Context, debug bool, host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		a.Store.Close()
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return a.serve(ctx, ln, debug)
}

// serve owns ln and the store from here on.
func (a *App) serve(ctx context.Context, ln net.Listener, debug bool) error {
	defer a.Store.Close()

	if debug {
		gin.SetMode(gin.DebugMode)
		logger.SetLevel("debug")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	serveCtx, cancelServe := context.WithCancel(ctx)

	server := api.NewServer(api.Deps{
		Config:      a.Config,
		Provider:    a.Provider,
		Catalog:     a.Catalog,
		Engine:      a.Engine,
		Store:       a.Store,
		BaseContext: serveCtx,
	})
	// Streams still running must finish before the store closes.
	defer server.Wait()
	defer cancelServe()

	srv := &http.Server{
		Handler:      server.Handler(),
		ReadTimeout:  a.Config.Server.ReadTimeout(),
		WriteTimeout: a.Config.HTTPWriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.WithFields(logger.Fields{"addr": ln.Addr().String(), "debug": debug}).Info("starting http server")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown")
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
