package market

import "strings"

var validRanges = map[string]bool{
	"1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true,
	"ytd": true, "max": true,
}

var timeframes = map[string]string{
	"1M":  "1mo",
	"3M":  "3mo",
	"6M":  "6mo",
	"YTD": "ytd",
	"1Y":  "1y",
	"2Y":  "2y",
	"5Y":  "5y",
	"10Y": "10y",
	"MAX": "max",
}

// ValidRange reports whether r is a range the provider accepts.
func ValidRange(r string) bool {
	return validRanges[r]
}

// TimeframeToRange maps a chart timeframe such as "1Y" to a provider range.
// Empty selects one year.
func TimeframeToRange(tf string) (string, bool) {
	if tf == "" {
		return "1y", true
	}
	if r, ok := timeframes[strings.ToUpper(tf)]; ok {
		return r, true
	}
	if r := strings.ToLower(tf); ValidRange(r) {
		return r, true
	}
	return "", false
}
