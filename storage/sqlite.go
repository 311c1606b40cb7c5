package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/trader/backend/backtest"
	"github.com/trader/backend/logger"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("not found")

// MaxListLimit caps ListRuns.
const MaxListLimit = 100

const schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	tickers TEXT NOT NULL,
	period TEXT NOT NULL,
	capital REAL NOT NULL,
	return_pct REAL NOT NULL,
	response TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backtest_runs_created_at ON backtest_runs(created_at);
`

// RunSummary is a listing row for a stored backtest.
type RunSummary struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Tickers   []string  `json:"tickers"`
	Period    string    `json:"period"`
	Capital   float64   `json:"capital"`
	ReturnPct float64   `json:"portfolio_return_pct"`
	CreatedAt time.Time `json:"created_at"`
}

// SQLite stores backtest runs in a SQLite database
type SQLite struct {
	DB   *sql.DB
	Path string
}

// NewSQLite opens (creating if needed) the database at dbPath and migrates it.
func NewSQLite(dbPath string) (*SQLite, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLite{DB: db, Path: dbPath}
	if err := s.configure(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.WithFields(logger.Fields{"path": dbPath}).Info("SQLite storage ready")
	return s, nil
}

func (s *SQLite) configure() error {
	if s.Path != ":memory:" {
		if _, err := s.DB.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := s.DB.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := s.DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.DB.Close()
}

// SaveRun stores a finished backtest.
func (s *SQLite) SaveRun(ctx context.Context, resp *backtest.Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	tickers, err := json.Marshal(resp.Tickers)
	if err != nil {
		return fmt.Errorf("marshal tickers: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO backtest_runs (id, query, tickers, period, capital, return_pct, response, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		resp.ID, resp.Query, string(tickers), resp.Period, resp.Capital,
		resp.PortfolioMetrics.PortfolioReturnPct, string(body), resp.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", resp.ID, err)
	}
	return nil
}

// GetRun loads a stored backtest by id.
func (s *SQLite) GetRun(ctx context.Context, id string) (*backtest.Response, error) {
	var body string
	err := s.DB.QueryRowContext(ctx, `SELECT response FROM backtest_runs WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", id, err)
	}

	var resp backtest.Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &resp, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLite) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, query, tickers, period, capital, return_pct, created_at
		FROM backtest_runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		var tickers string
		if err := rows.Scan(&r.ID, &r.Query, &tickers, &r.Period, &r.Capital, &r.ReturnPct, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(tickers), &r.Tickers); err != nil {
			return nil, fmt.Errorf("decode tickers of %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
