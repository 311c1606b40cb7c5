package market

import (
	"sort"
	"strings"
)

// Stock is a catalog entry for a listed company.
type Stock struct {
	Symbol   string
	Name     string
	Sector   string
	Industry string
}

// Basket is a named group of tickers offered as a backtest universe.
type Basket struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Tickers     []string `json:"tickers"`
}

var stocks = []Stock{
	{"RELIANCE.NS", "Reliance Industries Limited", "Energy", "Oil & Gas Refining & Marketing"},
	{"TCS.NS", "Tata Consultancy Services Limited", "Technology", "Information Technology Services"},
	{"HDFCBANK.NS", "HDFC Bank Limited", "Financial Services", "Banks - Regional"},
	{"INFY.NS", "Infosys Limited", "Technology", "Information Technology Services"},
	{"ICICIBANK.NS", "ICICI Bank Limited", "Financial Services", "Banks - Regional"},
	{"HINDUNILVR.NS", "Hindustan Unilever Limited", "Consumer Defensive", "Household & Personal Products"},
	{"ITC.NS", "ITC Limited", "Consumer Defensive", "Tobacco"},
	{"SBIN.NS", "State Bank of India", "Financial Services", "Banks - Regional"},
	{"BHARTIARTL.NS", "Bharti Airtel Limited", "Communication Services", "Telecom Services"},
	{"KOTAKBANK.NS", "Kotak Mahindra Bank Limited", "Financial Services", "Banks - Regional"},
	{"LT.NS", "Larsen & Toubro Limited", "Industrials", "Engineering & Construction"},
	{"AXISBANK.NS", "Axis Bank Limited", "Financial Services", "Banks - Regional"},
	{"ASIANPAINT.NS", "Asian Paints Limited", "Basic Materials", "Specialty Chemicals"},
	{"MARUTI.NS", "Maruti Suzuki India Limited", "Consumer Cyclical", "Auto Manufacturers"},
	{"TITAN.NS", "Titan Company Limited", "Consumer Cyclical", "Luxury Goods"},
	{"SUNPHARMA.NS", "Sun Pharmaceutical Industries Limited", "Healthcare", "Drug Manufacturers - Specialty & Generic"},
	{"BAJFINANCE.NS", "Bajaj Finance Limited", "Financial Services", "Credit Services"},
	{"WIPRO.NS", "Wipro Limited", "Technology", "Information Technology Services"},
	{"ULTRACEMCO.NS", "UltraTech Cement Limited", "Basic Materials", "Building Materials"},
	{"ONGC.NS", "Oil and Natural Gas Corporation Limited", "Energy", "Oil & Gas Integrated"},
	{"NTPC.NS", "NTPC Limited", "Utilities", "Utilities - Independent Power Producers"},
	{"NESTLEIND.NS", "Nestle India Limited", "Consumer Defensive", "Packaged Foods"},
	{"TATAMOTORS.NS", "Tata Motors Limited", "Consumer Cyclical", "Auto Manufacturers"},
	{"M&M.NS", "Mahindra & Mahindra Limited", "Consumer Cyclical", "Auto Manufacturers"},
	{"HCLTECH.NS", "HCL Technologies Limited", "Technology", "Information Technology Services"},
	{"POWERGRID.NS", "Power Grid Corporation of India Limited", "Utilities", "Utilities - Regulated Electric"},
	{"ADANIENT.NS", "Adani Enterprises Limited", "Energy", "Thermal Coal"},
	{"TATASTEEL.NS", "Tata Steel Limited", "Basic Materials", "Steel"},
	{"ADANIPORTS.NS", "Adani Ports and Special Economic Zone Limited", "Industrials", "Marine Shipping"},
	{"BAJAJFINSV.NS", "Bajaj Finserv Ltd.", "Financial Services", "Insurance - Diversified"},
	{"COALINDIA.NS", "Coal India Limited", "Energy", "Thermal Coal"},
	{"JSWSTEEL.NS", "JSW Steel Limited", "Basic Materials", "Steel"},
	{"TECHM.NS", "Tech Mahindra Limited", "Technology", "Information Technology Services"},
	{"HDFCLIFE.NS", "HDFC Life Insurance Company Limited", "Financial Services", "Insurance - Life"},
	{"GRASIM.NS", "Grasim Industries Limited", "Basic Materials", "Building Materials"},
	{"INDUSINDBK.NS", "IndusInd Bank Limited", "Financial Services", "Banks - Regional"},
	{"DIVISLAB.NS", "Divi's Laboratories Limited", "Healthcare", "Drug Manufacturers - Specialty & Generic"},
	{"DRREDDY.NS", "Dr. Reddy's Laboratories Limited", "Healthcare", "Drug Manufacturers - Specialty & Generic"},
	{"CIPLA.NS", "Cipla Limited", "Healthcare", "Drug Manufacturers - Specialty & Generic"},
	{"BPCL.NS", "Bharat Petroleum Corporation Limited", "Energy", "Oil & Gas Refining & Marketing"},
	{"SBILIFE.NS", "SBI Life Insurance Company Limited", "Financial Services", "Insurance - Life"},
	{"BRITANNIA.NS", "Britannia Industries Limited", "Consumer Defensive", "Packaged Foods"},
	{"EICHERMOT.NS", "Eicher Motors Limited", "Consumer Cyclical", "Auto Manufacturers"},
	{"APOLLOHOSP.NS", "Apollo Hospitals Enterprise Limited", "Healthcare", "Medical Care Facilities"},
	{"TATACONSUM.NS", "Tata Consumer Products Limited", "Consumer Defensive", "Packaged Foods"},
	{"HEROMOTOCO.NS", "Hero MotoCorp Limited", "Consumer Cyclical", "Auto Manufacturers"},
	{"BAJAJ-AUTO.NS", "Bajaj Auto Limited", "Consumer Cyclical", "Auto Manufacturers"},
	{"UPL.NS", "UPL Limited", "Basic Materials", "Agricultural Inputs"},
	{"HINDALCO.NS", "Hindalco Industries Limited", "Basic Materials", "Aluminum"},
	{"LTIM.NS", "LTIMindtree Limited", "Technology", "Information Technology Services"},
	{"PERSISTENT.NS", "Persistent Systems Limited", "Technology", "Information Technology Services"},
	{"COFORGE.NS", "Coforge Limited", "Technology", "Information Technology Services"},
	{"BANKBARODA.NS", "Bank of Baroda", "Financial Services", "Banks - Regional"},
	{"PNB.NS", "Punjab National Bank", "Financial Services", "Banks - Regional"},
	{"BIOCON.NS", "Biocon Limited", "Healthcare", "Biotechnology"},
	{"LUPIN.NS", "Lupin Limited", "Healthcare", "Drug Manufacturers - Specialty & Generic"},
	{"TVSMOTOR.NS", "TVS Motor Company Limited", "Consumer Cyclical", "Auto Manufacturers"},
}

var nifty50 = []string{
	"RELIANCE.NS", "TCS.NS", "HDFCBANK.NS", "INFY.NS", "ICICIBANK.NS",
	"HINDUNILVR.NS", "ITC.NS", "SBIN.NS", "BHARTIARTL.NS", "KOTAKBANK.NS",
	"LT.NS", "AXISBANK.NS", "ASIANPAINT.NS", "MARUTI.NS", "TITAN.NS",
	"SUNPHARMA.NS", "BAJFINANCE.NS", "WIPRO.NS", "ULTRACEMCO.NS", "ONGC.NS",
	"NTPC.NS", "NESTLEIND.NS", "TATAMOTORS.NS", "M&M.NS", "HCLTECH.NS",
	"POWERGRID.NS", "ADANIENT.NS", "TATASTEEL.NS", "ADANIPORTS.NS", "BAJAJFINSV.NS",
	"COALINDIA.NS", "JSWSTEEL.NS", "TECHM.NS", "HDFCLIFE.NS", "GRASIM.NS",
	"INDUSINDBK.NS", "DIVISLAB.NS", "DRREDDY.NS", "CIPLA.NS", "BPCL.NS",
	"SBILIFE.NS", "BRITANNIA.NS", "EICHERMOT.NS", "APOLLOHOSP.NS", "TATACONSUM.NS",
	"HEROMOTOCO.NS", "BAJAJ-AUTO.NS", "UPL.NS", "HINDALCO.NS", "LTIM.NS",
}

var sensex30 = []string{
	"RELIANCE.NS", "TCS.NS", "HDFCBANK.NS", "INFY.NS", "ICICIBANK.NS",
	"HINDUNILVR.NS", "ITC.NS", "SBIN.NS", "BHARTIARTL.NS", "KOTAKBANK.NS",
	"LT.NS", "AXISBANK.NS", "ASIANPAINT.NS", "MARUTI.NS", "TITAN.NS",
	"SUNPHARMA.NS", "BAJFINANCE.NS", "WIPRO.NS", "ULTRACEMCO.NS", "NTPC.NS",
	"NESTLEIND.NS", "TATAMOTORS.NS", "M&M.NS", "HCLTECH.NS", "POWERGRID.NS",
	"TECHM.NS", "INDUSINDBK.NS", "TATASTEEL.NS", "JSWSTEEL.NS", "BAJAJFINSV.NS",
}

var baskets = []Basket{
	{ID: "nifty50", Label: "NIFTY 50", Description: "Top 50 Indian companies by market cap", Tickers: nifty50},
	{ID: "sensex", Label: "SENSEX 30", Description: "BSE 30 index companies", Tickers: sensex30},
	{ID: "top10", Label: "Top 10 Stocks", Description: "India's largest companies", Tickers: nifty50[:10]},
	{ID: "it_sector", Label: "IT Sector", Description: "Major IT companies", Tickers: []string{
		"TCS.NS", "INFY.NS", "WIPRO.NS", "HCLTECH.NS", "TECHM.NS", "LTIM.NS", "PERSISTENT.NS", "COFORGE.NS",
	}},
	{ID: "banking", Label: "Banking", Description: "Top banking stocks", Tickers: []string{
		"HDFCBANK.NS", "ICICIBANK.NS", "SBIN.NS", "KOTAKBANK.NS", "AXISBANK.NS", "INDUSINDBK.NS", "BANKBARODA.NS", "PNB.NS",
	}},
	{ID: "pharma", Label: "Pharma", Description: "Healthcare & Pharma stocks", Tickers: []string{
		"SUNPHARMA.NS", "DRREDDY.NS", "CIPLA.NS", "DIVISLAB.NS", "APOLLOHOSP.NS", "BIOCON.NS", "LUPIN.NS",
	}},
	{ID: "auto", Label: "Auto", Description: "Automobile sector", Tickers: []string{
		"TATAMOTORS.NS", "M&M.NS", "MARUTI.NS", "BAJAJ-AUTO.NS", "HEROMOTOCO.NS", "EICHERMOT.NS", "TVSMOTOR.NS",
	}},
}

// Catalog is an in-memory index of known symbols.
type Catalog struct {
	bySymbol map[string]Stock
	ordered  []Stock
}

// NewCatalog builds the catalog of bundled NSE symbols.
func NewCatalog() *Catalog {
	c := &Catalog{bySymbol: make(map[string]Stock, len(stocks))}
	for _, s := range stocks {
		c.bySymbol[s.Symbol] = s
		c.ordered = append(c.ordered, s)
	}
	return c
}

// Lookup finds a stock by symbol. The ".NS" suffix is optional.
func (c *Catalog) Lookup(symbol string) (Stock, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if s, ok := c.bySymbol[symbol]; ok {
		return s, true
	}
	s, ok := c.bySymbol[symbol+".NS"]
	return s, ok
}

// Search returns up to limit stocks whose symbol starts with q or whose name
// contains q, ignoring case. Symbol prefix hits rank first.
func (c *Catalog) Search(q string, limit int) []SearchResult {
	q = strings.ToUpper(strings.TrimSpace(q))
	if q == "" {
		return []SearchResult{}
	}

	type hit struct {
		stock Stock
		rank  int
	}
	var hits []hit
	for i, s := range c.ordered {
		switch {
		case strings.HasPrefix(s.Symbol, q):
			hits = append(hits, hit{s, i})
		case strings.Contains(strings.ToUpper(s.Name), q):
			hits = append(hits, hit{s, len(c.ordered) + i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })

	results := make([]SearchResult, 0, limit)
	for _, h := range hits {
		if len(results) == limit {
			break
		}
		results = append(results, SearchResult{Symbol: h.stock.Symbol, Name: h.stock.Name})
	}
	return results
}

// Profile returns what the catalog knows about symbol as a company profile.
func (c *Catalog) Profile(symbol string) CompanyProfile {
	p := CompanyProfile{
		Symbol:      symbol,
		CompanyName: symbol,
		Sector:      "Unknown",
		Industry:    "Unknown",
		Description: "Company information for " + symbol,
	}
	if s, ok := c.Lookup(symbol); ok {
		p.Symbol = s.Symbol
		p.CompanyName = s.Name
		p.Sector = s.Sector
		p.Industry = s.Industry
		p.Description = s.Name + " operates in the " + s.Industry + " industry of the " + s.Sector + " sector."
		p.Country = "India"
		p.Currency = "INR"
		p.Exchange = "NSE"
	}
	return p
}

// Baskets returns the predefined ticker baskets.
func (c *Catalog) Baskets() []Basket {
	return baskets
}
