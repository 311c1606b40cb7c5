package strategy

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoEntryRule is returned when no entry condition can be recognised in a query.
var ErrNoEntryRule = errors.New("no recognisable entry rule in strategy")

const defaultRSIPeriod = 14

// Strategy is a parsed trading strategy.
type Strategy struct {
	Entry           Rule
	Exit            Rule
	StopLossPct     float64
	TakeProfitPct   float64
	TrailingStopPct float64
	Unrecognized    []string
}

// Summary is the serialisable description of a Strategy.
type Summary struct {
	EntryRules      []string `json:"entry_rules"`
	ExitRules       []string `json:"exit_rules"`
	StopLossPct     float64  `json:"stop_loss_pct,omitempty"`
	TakeProfitPct   float64  `json:"take_profit_pct,omitempty"`
	TrailingStopPct float64  `json:"trailing_stop_pct,omitempty"`
	Unrecognized    []string `json:"unrecognized,omitempty"`
}

// Summary describes s for API responses.
func (s *Strategy) Summary() Summary {
	return Summary{
		EntryRules:      s.Entry.Describe(),
		ExitRules:       s.Exit.Describe(),
		StopLossPct:     s.StopLossPct,
		TakeProfitPct:   s.TakeProfitPct,
		TrailingStopPct: s.TrailingStopPct,
		Unrecognized:    s.Unrecognized,
	}
}

const num = `(\d+(?:\.\d+)?)`

var (
	entryMarker = regexp.MustCompile(`(?i)\bentry\s*:`)
	exitMarker  = regexp.MustCompile(`(?i)\bexit\s*:`)

	trailingRe   = regexp.MustCompile(`trailing\s+stop(?:[- ]?loss)?\s*(?:at|of|=)?\s*` + num + `\s*%`)
	stopLossRe   = regexp.MustCompile(`stop[- ]?loss\s*(?:at|of|=)?\s*` + num + `\s*%(?:\s+(?:below|under)\s+(?:the\s+)?entry(?:\s+price)?)?`)
	takeProfitRe = regexp.MustCompile(`(?:take[- ]?profit|profit\s+target|target)\s*(?:at|of|=)?\s*` + num + `\s*%`)

	betweenRe  = regexp.MustCompile(`between\s+` + num + `\s+and\s+` + num)
	sentenceRe = regexp.MustCompile(`\.(?:\s+|$)|;`)
	orRe       = regexp.MustCompile(`\s+or\s+`)
	andRe      = regexp.MustCompile(`\s+and\s+|\s+with\s+|,`)
	parenRe    = regexp.MustCompile(`[()]`)
	wordRe     = regexp.MustCompile(`[a-z0-9%]+`)

	goldenRe  = regexp.MustCompile(`golden\s+cross`)
	deathRe   = regexp.MustCompile(`death\s+cross`)
	maMAre    = regexp.MustCompile(`(\d+)(?:[- ]?day)?\s*(sma|ema|ma)\s+(?:is\s+)?(crosses\s+above|crosses\s+below|crosses\s+over|crosses\s+under|above|below)\s+(?:the\s+)?(\d+)(?:[- ]?day)?\s*(sma|ema|ma)\b`)
	macdRe    = regexp.MustCompile(`macd(?:\s+line)?\s+cross(?:es)?\s+(above|below|over|under)\s+(?:the\s+)?signal`)
	rsiRe     = regexp.MustCompile(`(?:(\d+)[- ]?(?:day|period)\s+)?rsi(?:\s*\(?\s*(\d+)\s*\)?)?\s*(?:is\s+)?(<=|>=|<|>|below|above|under|over|less\s+than|greater\s+than|between)\s*` + num + `(?:\s*-\s*` + num + `)?`)
	pctMARe   = regexp.MustCompile(num + `\s*%\s+below\s+(?:the\s+)?(\d+)(?:[- ]?day)?\s*(sma|ema|ma|moving\s+average)\b`)
	priceMARe = regexp.MustCompile(`(crosses\s+above|crosses\s+below|crosses\s+over|crosses\s+under|above|below|over|under)\s+(?:the\s+)?(\d+)(?:[- ]?day)?\s*(sma|ema|ma|moving\s+average)\b`)
	volumeRe  = regexp.MustCompile(`(?:increasing|rising|higher|high|above[- ]average)\s+volume|volume\s+(?:is\s+)?(?:increasing|rising|above\s+average|spike)`)
)

var fillerWords = map[string]bool{
	"buy": true, "sell": true, "when": true, "if": true, "then": true, "use": true,
	"on": true, "the": true, "price": true, "is": true, "enter": true, "exit": true,
	"go": true, "long": true, "close": true, "position": true, "at": true, "a": true,
	"an": true, "only": true, "signal": true, "stock": true, "shares": true,
	// Left behind when a risk sentence is removed between two sentence breaks.
	"and": true, "or": true,
}

// Parse turns a query of the form "Entry: <text>. Exit: <text>" into a Strategy.
// Risk limits may appear anywhere in the query.
func Parse(query string) (*Strategy, error) {
	text := strings.ToLower(strings.TrimSpace(query))

	st := &Strategy{}
	text = st.extractRisk(text)

	entryText, exitText := splitSides(text)
	st.Entry = st.parseSide(entryText)
	st.Exit = st.parseSide(exitText)

	if len(st.Entry) == 0 {
		return st, ErrNoEntryRule
	}
	return st, nil
}

func (st *Strategy) extractRisk(text string) string {
	if m := trailingRe.FindStringSubmatch(text); m != nil {
		st.TrailingStopPct = parseFloat(m[1])
		text = trailingRe.ReplaceAllString(text, " ")
	}
	if m := stopLossRe.FindStringSubmatch(text); m != nil {
		st.StopLossPct = parseFloat(m[1])
		text = stopLossRe.ReplaceAllString(text, " ")
	}
	if m := takeProfitRe.FindStringSubmatch(text); m != nil {
		st.TakeProfitPct = parseFloat(m[1])
		text = takeProfitRe.ReplaceAllString(text, " ")
	}
	return text
}

func splitSides(text string) (entry, exit string) {
	entry = text
	if loc := exitMarker.FindStringIndex(text); loc != nil {
		entry, exit = text[:loc[0]], text[loc[1]:]
	}
	if loc := entryMarker.FindStringIndex(entry); loc != nil {
		entry = entry[loc[1]:]
	}
	return entry, exit
}

func (st *Strategy) parseSide(text string) Rule {
	text = betweenRe.ReplaceAllString(text, "between $1-$2")
	text = parenRe.ReplaceAllString(text, " ")
	text = sentenceRe.ReplaceAllString(text, " and ")

	var rule Rule
	for _, alt := range orRe.Split(text, -1) {
		var group Group
		for _, clause := range andRe.Split(alt, -1) {
			clause = strings.TrimSpace(clause)
			if clause == "" {
				continue
			}
			cond := parseClause(clause)
			if cond == nil {
				if !isFiller(clause) {
					st.Unrecognized = append(st.Unrecognized, clause)
				}
				continue
			}
			group = append(group, cond)
		}
		if len(group) > 0 {
			rule = append(rule, group)
		}
	}
	return rule
}

func parseClause(clause string) Condition {
	switch {
	case goldenRe.MatchString(clause):
		return maVsMA{kind: kindSMA, fast: 50, slow: 200, above: true, cross: true}
	case deathRe.MatchString(clause):
		return maVsMA{kind: kindSMA, fast: 50, slow: 200, above: false, cross: true}
	}

	if m := maMAre.FindStringSubmatch(clause); m != nil {
		above, cross := direction(m[3])
		return maVsMA{kind: maKindOf(m[2]), fast: atoi(m[1]), slow: atoi(m[4]), above: above, cross: cross}
	}

	if m := macdRe.FindStringSubmatch(clause); m != nil {
		return macdCross{above: m[1] == "above" || m[1] == "over"}
	}

	if m := rsiRe.FindStringSubmatch(clause); m != nil {
		period := defaultRSIPeriod
		if m[1] != "" {
			period = atoi(m[1])
		} else if m[2] != "" {
			period = atoi(m[2])
		}
		c := rsiCondition{period: period, lo: parseFloat(m[4])}
		switch strings.Join(strings.Fields(m[3]), " ") {
		case "<", "<=", "below", "under", "less than":
			c.cmp = lessThan
		case ">", ">=", "above", "over", "greater than":
			c.cmp = greaterThan
		default:
			if m[5] == "" {
				return nil
			}
			c.cmp = between
			c.hi = parseFloat(m[5])
			if c.hi < c.lo {
				c.lo, c.hi = c.hi, c.lo
			}
		}
		return c
	}

	if m := pctMARe.FindStringSubmatch(clause); m != nil {
		return priceBelowMAPct{kind: maKindOf(m[3]), period: atoi(m[2]), pct: parseFloat(m[1])}
	}

	if m := priceMARe.FindStringSubmatch(clause); m != nil {
		above, cross := direction(m[1])
		return priceVsMA{kind: maKindOf(m[3]), period: atoi(m[2]), above: above, cross: cross}
	}

	if volumeRe.MatchString(clause) {
		return volumeAboveAverage{period: 20}
	}

	return nil
}

func direction(verb string) (above, cross bool) {
	fields := strings.Fields(verb)
	cross = len(fields) > 1
	last := fields[len(fields)-1]
	return last == "above" || last == "over", cross
}

func maKindOf(s string) maKind {
	if s == "ema" {
		return kindEMA
	}
	return kindSMA
}

func isFiller(clause string) bool {
	for _, w := range wordRe.FindAllString(clause, -1) {
		if !fillerWords[w] {
			return false
		}
	}
	return true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
