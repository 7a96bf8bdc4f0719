package domain

import "context"

// BrokerGateway is the capability set every supported exchange must
// implement. The engine depends only on this interface; venue specifics
// (auth, endpoints, lot rounding) live in internal/platform.
type BrokerGateway interface {
	// Name returns the broker identifier, e.g. "binance".
	Name() string

	// ListInstruments returns every spot instrument currently tradeable
	// against the given quote asset.
	ListInstruments(ctx context.Context, quoteAsset string) ([]Instrument, error)

	// CurrentPrice returns the latest traded price for the instrument.
	CurrentPrice(ctx context.Context, inst Instrument) (float64, error)

	// PlaceOrder submits a market order. referencePrice is the price the
	// decision was made at; test-mode gateways fill at it. Exit orders may
	// be retried on later cycles after a failure, so venues that do not
	// deduplicate must tolerate a repeated request.
	PlaceOrder(ctx context.Context, inst Instrument, side OrderSide, size, referencePrice float64) (OrderResult, error)

	// SizeForNotional converts a quote-asset notional into an order size at
	// the given price, truncated to the venue's lot precision. Truncation
	// only; never rounds up.
	SizeForNotional(ctx context.Context, inst Instrument, notional, price float64) (float64, error)
}

// PriceSource serves cached prices, keyed by symbol. Implementations are the
// Redis price cache fed by the websocket stream; ErrNotFound means the
// caller should fall back to the gateway.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (float64, error)
}
