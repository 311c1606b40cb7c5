package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/trader/backend/backtest"
	"github.com/trader/backend/logger"
	"github.com/trader/backend/metrics"
	"github.com/trader/backend/storage"
	"github.com/trader/backend/strategy"
)

const defaultListLimit = 20

// apiError carries the HTTP status a failure maps to.
type apiError struct {
	Status  int               `json:"-"`
	Message string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *apiError) Error() string { return e.Message }

func abortWith(c *gin.Context, e *apiError) {
	c.AbortWithStatusJSON(e.Status, e)
}

// bindError maps a gin binding failure to 422 for validation errors and 400 otherwise.
func bindError(err error) *apiError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, len(verrs))
		for i, fe := range verrs {
			msgs[i] = fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag())
		}
		return &apiError{Status: http.StatusUnprocessableEntity, Message: strings.Join(msgs, "; ")}
	}
	return &apiError{Status: http.StatusBadRequest, Message: "invalid request body: " + err.Error()}
}

func (s *Server) runBacktest(c *gin.Context) {
	var req backtest.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, bindError(err))
		return
	}

	resp, apiErr := s.execute(c.Request.Context(), req, nil)
	if apiErr != nil {
		abortWith(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// execute validates, parses, runs and stores a backtest.
func (s *Server) execute(ctx context.Context, req backtest.Request, progress backtest.ProgressFunc) (*backtest.Response, *apiError) {
	cfg := s.deps.Config.Backtest
	req.Normalize(cfg.DefaultCapital)
	if err := req.Validate(cfg.MaxTickers); err != nil {
		return nil, &apiError{Status: http.StatusUnprocessableEntity, Message: err.Error()}
	}

	st, err := strategy.Parse(req.Query)
	if err != nil {
		msg := err.Error()
		if len(st.Unrecognized) > 0 {
			msg += ": could not understand " + strconv.Quote(strings.Join(st.Unrecognized, "; "))
		}
		metrics.BacktestsTotal.WithLabelValues("invalid_strategy").Inc()
		return nil, &apiError{Status: http.StatusUnprocessableEntity, Message: msg}
	}

	start := time.Now()
	resp, err := s.deps.Engine.Run(ctx, req, st, progress)
	metrics.BacktestDuration.Observe(time.Since(start).Seconds())
	switch {
	case errors.Is(err, backtest.ErrNoData):
		metrics.BacktestsTotal.WithLabelValues("no_data").Inc()
		metrics.MarketDataErrors.Add(float64(len(resp.Errors)))
		return nil, &apiError{Status: http.StatusBadGateway, Message: err.Error(), Details: resp.Errors}
	case err != nil:
		metrics.BacktestsTotal.WithLabelValues("error").Inc()
		logger.WithError(err).Error("backtest failed")
		return nil, &apiError{Status: http.StatusInternalServerError, Message: "backtest failed"}
	}
	metrics.BacktestsTotal.WithLabelValues("ok").Inc()
	metrics.MarketDataErrors.Add(float64(len(resp.Errors)))

	if err := s.deps.Store.SaveRun(ctx, resp); err != nil {
		logger.WithError(err).WithField("id", resp.ID).Warn("failed to store backtest run")
	}
	return resp, nil
}

func (s *Server) listRuns(c *gin.Context) {
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			abortWith(c, &apiError{Status: http.StatusBadRequest, Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := s.deps.Store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		logger.WithError(err).Error("list backtest runs")
		abortWith(c, &apiError{Status: http.StatusInternalServerError, Message: "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) getRun(c *gin.Context) {
	resp, err := s.deps.Store.GetRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		abortWith(c, &apiError{Status: http.StatusNotFound, Message: "backtest not found"})
		return
	}
	if err != nil {
		logger.WithError(err).Error("get backtest run")
		abortWith(c, &apiError{Status: http.StatusInternalServerError, Message: "failed to load run"})
		return
	}
	c.JSON(http.StatusOK, resp)
}
