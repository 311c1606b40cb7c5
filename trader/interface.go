package trader

import "errors"

// OrderType represents the type of order
type OrderType string

const (
	// MarketOrder is an order executed immediately at current market price
	MarketOrder OrderType = "market"
	// LimitOrder is an order to be executed at a specific price or better
	LimitOrder OrderType = "limit"
	// StopOrder is an order to buy/sell when price reaches a specified level
	StopOrder OrderType = "stop"
)

// Side represents the side of the order
type Side string

const (
	// BuySide represents a buy order
	BuySide Side = "buy"
	// SellSide represents a sell order
	SellSide Side = "sell"
)

// Status represents the status of an order
type Status string

const (
	// OrderStatusFilled is a completely filled order
	OrderStatusFilled Status = "filled"
	// OrderStatusRejected is a rejected order
	OrderStatusRejected Status = "rejected"
)

var (
	// ErrInsufficientFunds is returned when a buy costs more than the available cash.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNoPosition is returned when closing a pair that has no open position.
	ErrNoPosition = errors.New("no open position")
	// ErrInvalidOrder is returned for non-positive amounts or prices and unsupported sides.
	ErrInvalidOrder = errors.New("invalid order")
)

// Order represents a trading order
type Order struct {
	ID           string    `json:"id"`
	Pair         string    `json:"symbol"`
	Type         OrderType `json:"type"`
	Side         Side      `json:"side"`
	Price        float64   `json:"price"`
	Amount       float64   `json:"amount"`
	FilledAmount float64   `json:"filled_amount"`
	Status       Status    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	CreatedTime  int64     `json:"created_time"`
}

// Position represents an open long position
type Position struct {
	Pair          string  `json:"symbol"`
	Side          Side    `json:"side"`
	Size          float64 `json:"size"`
	EntryPrice    float64 `json:"entry_price"`
	MarkPrice     float64 `json:"mark_price"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
	RealizedPnl   float64 `json:"realized_pnl"`
	CreatedTime   int64   `json:"created_time"`
}

// Balance represents account balance
type Balance struct {
	Currency  string  `json:"currency"`
	Total     float64 `json:"total"`
	Available float64 `json:"available"`
	InOrders  float64 `json:"in_orders"`
}

// Trader interface defines the order operations a strategy runner needs
type Trader interface {
	// GetBalance retrieves the account balance
	GetBalance() ([]Balance, error)

	// GetPosition retrieves the current position for a trading pair, or nil when flat
	GetPosition(pair string) (*Position, error)

	// GetPositions retrieves all current positions
	GetPositions() ([]Position, error)

	// CreateOrder creates a new order
	CreateOrder(pair string, side Side, orderType OrderType, amount, price float64) (*Order, error)

	// GetOrders retrieves orders for a pair; empty pair and status match all
	GetOrders(pair string, status Status) ([]Order, error)

	// ClosePosition closes the whole position in pair at price
	ClosePosition(pair string, price float64, reason string) (*Order, error)
}
