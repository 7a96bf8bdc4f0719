package binance

// exchangeInfoResponse is the subset of GET /api/v3/exchangeInfo the bot
// consumes.
type exchangeInfoResponse struct {
	Symbols []symbolInfo `json:"symbols"`
}

// symbolInfo describes one listed trading pair.
type symbolInfo struct {
	Symbol               string         `json:"symbol"`
	Status               string         `json:"status"`
	BaseAsset            string         `json:"baseAsset"`
	QuoteAsset           string         `json:"quoteAsset"`
	IsSpotTradingAllowed bool           `json:"isSpotTradingAllowed"`
	Filters              []symbolFilter `json:"filters"`
}

// symbolFilter carries the exchange trading rules per pair. Only LOT_SIZE
// is consumed.
type symbolFilter struct {
	FilterType string `json:"filterType"`
	StepSize   string `json:"stepSize"`
}

// tickerPriceResponse is GET /api/v3/ticker/price for one symbol.
type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// orderFill is one fill inside a market order response.
type orderFill struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

// orderResponse is POST /api/v3/order. The test endpoint returns an empty
// body instead.
type orderResponse struct {
	Symbol              string      `json:"symbol"`
	TransactTime        int64       `json:"transactTime"`
	Status              string      `json:"status"`
	ExecutedQty         string      `json:"executedQty"`
	CummulativeQuoteQty string      `json:"cummulativeQuoteQty"`
	Fills               []orderFill `json:"fills"`
}

// apiError is the error envelope Binance returns with non-2xx statuses.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}
