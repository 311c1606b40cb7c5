package strategy

import (
	"fmt"
	"math"
	"strings"
)

// Condition is a single boolean test evaluated at a bar.
type Condition interface {
	Holds(s *Series, i int) bool
	String() string
}

// Group is a conjunction of conditions.
type Group []Condition

// Holds reports whether every condition in g holds at bar i.
func (g Group) Holds(s *Series, i int) bool {
	for _, c := range g {
		if !c.Holds(s, i) {
			return false
		}
	}
	return len(g) > 0
}

func (g Group) String() string {
	parts := make([]string, len(g))
	for i, c := range g {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

// Rule is a disjunction of groups.
type Rule []Group

// Signal reports whether any group of r holds at bar i.
func (r Rule) Signal(s *Series, i int) bool {
	for _, g := range r {
		if g.Holds(s, i) {
			return true
		}
	}
	return false
}

// Describe returns one line per group.
func (r Rule) Describe() []string {
	out := make([]string, len(r))
	for i, g := range r {
		out[i] = g.String()
	}
	return out
}

type comparison int

const (
	lessThan comparison = iota
	greaterThan
	between
)

type maKind string

const (
	kindSMA maKind = "SMA"
	kindEMA maKind = "EMA"
)

func movingAverage(s *Series, kind maKind, period int) []float64 {
	if kind == kindEMA {
		return s.EMA(period)
	}
	return s.SMA(period)
}

func valid(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// crossed reports whether a moved from at-or-below b to above b (up) or the
// reverse (down) between bars i-1 and i.
func crossed(a, b []float64, i int, up bool) bool {
	if i < 1 || !valid(a[i], b[i], a[i-1], b[i-1]) {
		return false
	}
	if up {
		return a[i-1] <= b[i-1] && a[i] > b[i]
	}
	return a[i-1] >= b[i-1] && a[i] < b[i]
}

type rsiCondition struct {
	period int
	cmp    comparison
	lo, hi float64
}

func (c rsiCondition) Holds(s *Series, i int) bool {
	v := s.RSI(c.period)[i]
	if math.IsNaN(v) {
		return false
	}
	switch c.cmp {
	case lessThan:
		return v < c.lo
	case greaterThan:
		return v > c.lo
	default:
		return v >= c.lo && v <= c.hi
	}
}

func (c rsiCondition) String() string {
	switch c.cmp {
	case lessThan:
		return fmt.Sprintf("RSI(%d) < %g", c.period, c.lo)
	case greaterThan:
		return fmt.Sprintf("RSI(%d) > %g", c.period, c.lo)
	default:
		return fmt.Sprintf("RSI(%d) between %g and %g", c.period, c.lo, c.hi)
	}
}

type priceVsMA struct {
	kind   maKind
	period int
	above  bool
	cross  bool
}

func (c priceVsMA) Holds(s *Series, i int) bool {
	ma := movingAverage(s, c.kind, c.period)
	if c.cross {
		return crossed(s.closes, ma, i, c.above)
	}
	if !valid(ma[i]) {
		return false
	}
	if c.above {
		return s.closes[i] > ma[i]
	}
	return s.closes[i] < ma[i]
}

func (c priceVsMA) String() string {
	verb := "below"
	if c.above {
		verb = "above"
	}
	if c.cross {
		verb = "crosses " + verb
	}
	return fmt.Sprintf("price %s %s(%d)", verb, c.kind, c.period)
}

type priceBelowMAPct struct {
	kind   maKind
	period int
	pct    float64
}

func (c priceBelowMAPct) Holds(s *Series, i int) bool {
	ma := movingAverage(s, c.kind, c.period)[i]
	if math.IsNaN(ma) {
		return false
	}
	return s.closes[i] <= ma*(1-c.pct/100)
}

func (c priceBelowMAPct) String() string {
	return fmt.Sprintf("price %g%% below %s(%d)", c.pct, c.kind, c.period)
}

type maVsMA struct {
	kind       maKind
	fast, slow int
	above      bool
	cross      bool
}

func (c maVsMA) Holds(s *Series, i int) bool {
	fast := movingAverage(s, c.kind, c.fast)
	slow := movingAverage(s, c.kind, c.slow)
	if c.cross {
		return crossed(fast, slow, i, c.above)
	}
	if !valid(fast[i], slow[i]) {
		return false
	}
	if c.above {
		return fast[i] > slow[i]
	}
	return fast[i] < slow[i]
}

func (c maVsMA) String() string {
	verb := "below"
	if c.above {
		verb = "above"
	}
	if c.cross {
		verb = "crosses " + verb
	}
	return fmt.Sprintf("%s(%d) %s %s(%d)", c.kind, c.fast, verb, c.kind, c.slow)
}

type macdCross struct {
	above bool
}

func (c macdCross) Holds(s *Series, i int) bool {
	line, signal := s.MACD()
	return crossed(line, signal, i, c.above)
}

func (c macdCross) String() string {
	if c.above {
		return "MACD crosses above signal"
	}
	return "MACD crosses below signal"
}

type volumeAboveAverage struct {
	period int
}

func (c volumeAboveAverage) Holds(s *Series, i int) bool {
	avg := s.AvgVolume(c.period)[i]
	if math.IsNaN(avg) || avg == 0 {
		return false
	}
	return s.volumes[i] > avg
}

func (c volumeAboveAverage) String() string {
	return fmt.Sprintf("volume > avg volume(%d)", c.period)
}
