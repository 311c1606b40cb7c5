package trader

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// PaperTrader implements the Trader interface with instant simulated fills.
// Only long spot positions are supported.
type PaperTrader struct {
	mu        sync.Mutex
	currency  string
	cash      float64
	positions map[string]*Position
	orders    []Order
	now       time.Time
	seq       int
}

// NewPaperTrader creates a paper account holding cash in currency
func NewPaperTrader(currency string, cash float64) *PaperTrader {
	return &PaperTrader{
		currency:  currency,
		cash:      cash,
		positions: make(map[string]*Position),
	}
}

// SetTime sets the simulated clock used to stamp orders and positions.
func (t *PaperTrader) SetTime(now time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Mark updates the mark price of an open position.
func (t *PaperTrader) Mark(pair string, price float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.positions[pair]; ok {
		p.MarkPrice = price
		p.UnrealizedPnl = (price - p.EntryPrice) * p.Size
	}
}

// Equity returns cash plus open positions at their mark price.
func (t *PaperTrader) Equity() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	equity := t.cash
	for _, p := range t.positions {
		equity += p.Size * p.MarkPrice
	}
	return equity
}

// GetBalance implements the Trader interface
func (t *PaperTrader) GetBalance() ([]Balance, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var inPositions float64
	for _, p := range t.positions {
		inPositions += p.Size * p.MarkPrice
	}
	return []Balance{{
		Currency:  t.currency,
		Total:     t.cash + inPositions,
		Available: t.cash,
		InOrders:  inPositions,
	}}, nil
}

// GetPosition implements the Trader interface
func (t *PaperTrader) GetPosition(pair string) (*Position, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.positions[pair]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// GetPositions implements the Trader interface
func (t *PaperTrader) GetPositions() ([]Position, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pair < out[j].Pair })
	return out, nil
}

// CreateOrder implements the Trader interface. Orders fill immediately and in full at price.
func (t *PaperTrader) CreateOrder(pair string, side Side, orderType OrderType, amount, price float64) (*Order, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if amount <= 0 || price <= 0 {
		return nil, fmt.Errorf("%w: amount %.4f price %.4f", ErrInvalidOrder, amount, price)
	}

	switch side {
	case BuySide:
		cost := amount * price
		if cost > t.cash {
			return nil, fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientFunds, cost, t.cash)
		}
		t.cash -= cost
		if p, ok := t.positions[pair]; ok {
			total := p.Size + amount
			p.EntryPrice = (p.EntryPrice*p.Size + price*amount) / total
			p.Size = total
			p.MarkPrice = price
		} else {
			t.positions[pair] = &Position{
				Pair:        pair,
				Side:        BuySide,
				Size:        amount,
				EntryPrice:  price,
				MarkPrice:   price,
				CreatedTime: t.now.Unix(),
			}
		}
	case SellSide:
		p, ok := t.positions[pair]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoPosition, pair)
		}
		if amount > p.Size {
			return nil, fmt.Errorf("%w: sell %.4f exceeds position %.4f", ErrInvalidOrder, amount, p.Size)
		}
		t.cash += amount * price
		p.RealizedPnl += (price - p.EntryPrice) * amount
		p.Size -= amount
		if p.Size == 0 {
			delete(t.positions, pair)
		}
	default:
		return nil, fmt.Errorf("%w: side %q", ErrInvalidOrder, side)
	}

	return t.record(pair, side, orderType, amount, price, ""), nil
}

// GetOrders implements the Trader interface
func (t *PaperTrader) GetOrders(pair string, status Status) ([]Order, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Order
	for _, o := range t.orders {
		if (pair == "" || o.Pair == pair) && (status == "" || o.Status == status) {
			out = append(out, o)
		}
	}
	return out, nil
}

// ClosePosition implements the Trader interface
func (t *PaperTrader) ClosePosition(pair string, price float64, reason string) (*Order, error) {
	t.mu.Lock()
	p, ok := t.positions[pair]
	if !ok {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNoPosition, pair)
	}
	size := p.Size
	t.mu.Unlock()

	order, err := t.CreateOrder(pair, SellSide, MarketOrder, size, price)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.orders[len(t.orders)-1].Reason = reason
	order.Reason = reason
	t.mu.Unlock()
	return order, nil
}

// record appends a filled order; callers hold t.mu.
func (t *PaperTrader) record(pair string, side Side, orderType OrderType, amount, price float64, reason string) *Order {
	t.seq++
	o := Order{
		ID:           strconv.Itoa(t.seq),
		Pair:         pair,
		Type:         orderType,
		Side:         side,
		Price:        price,
		Amount:       amount,
		FilledAmount: amount,
		Status:       OrderStatusFilled,
		Reason:       reason,
		CreatedTime:  t.now.Unix(),
	}
	t.orders = append(t.orders, o)
	return &o
}
