// Package domain defines the core types shared across the bot: instruments,
// positions, broker configuration, and the interfaces implemented by the
// exchange gateways, stores, and caches.
package domain

// Instrument is a tradeable symbol pair on one venue. Instruments are
// immutable once discovered; identity is the Symbol.
type Instrument struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"base_asset"`
	QuoteAsset string `json:"quote_asset"`
}

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderResult is the venue's view of a placed order.
type OrderResult struct {
	Symbol    string    `json:"symbol"`
	Side      OrderSide `json:"side"`
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	Status    string    `json:"status"`
	Timestamp int64     `json:"timestamp"`
}

// BrokerConfig holds the per-venue trading parameters. It is loaded once at
// startup and passed by value into each broker loop; the engine never
// mutates it.
type BrokerConfig struct {
	Broker     string
	QuoteAsset string

	// OrderQuantity is the entry notional in the quote asset.
	OrderQuantity float64

	StopLossPercent   float64
	TakeProfitPercent float64

	TrailingEnabled bool
	TrailingPercent float64
	// TrailingActivationPercent is carried for config-schema compatibility;
	// the exit rules do not consult it.
	TrailingActivationPercent float64

	// Test makes the gateway simulate fills instead of placing live orders.
	Test bool
}
