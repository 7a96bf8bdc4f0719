package gate

// currencyPair is one entry of GET /api/v4/spot/currency_pairs.
type currencyPair struct {
	ID              string `json:"id"`
	Base            string `json:"base"`
	Quote           string `json:"quote"`
	TradeStatus     string `json:"trade_status"`
	AmountPrecision int    `json:"amount_precision"`
	Precision       int    `json:"precision"`
}

// ticker is one entry of GET /api/v4/spot/tickers.
type ticker struct {
	CurrencyPair string `json:"currency_pair"`
	Last         string `json:"last"`
}

// orderRequest is the POST /api/v4/spot/orders body. For market buys the
// amount is denominated in the quote currency; for market sells in the base
// currency.
type orderRequest struct {
	CurrencyPair string `json:"currency_pair"`
	Type         string `json:"type"`
	Account      string `json:"account"`
	Side         string `json:"side"`
	Amount       string `json:"amount"`
	TimeInForce  string `json:"time_in_force"`
}

// orderResponse is the subset of the spot order response the bot consumes.
type orderResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	CreateTimeMs string `json:"create_time_ms"`
	Amount       string `json:"amount"`
	FilledAmount string `json:"filled_amount"`
	FilledTotal  string `json:"filled_total"`
	AvgDealPrice string `json:"avg_deal_price"`
}

// apiError is the error envelope Gate returns with non-2xx statuses.
type apiError struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}
