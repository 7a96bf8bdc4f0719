package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"sync"
	"time"

	"listingbot/internal/domain"
)

// Gateway adapts the Gate.io REST client to the BrokerGateway contract.
type Gateway struct {
	client *Client
	test   bool
	logger *slog.Logger

	mu         sync.Mutex
	precisions map[string]int // pair id -> base amount precision
}

var _ domain.BrokerGateway = (*Gateway)(nil)

// NewGateway creates a Gate.io gateway. Gate has no order validation
// endpoint, so test mode skips the API call entirely and synthesizes the
// fill.
func NewGateway(client *Client, test bool, logger *slog.Logger) *Gateway {
	return &Gateway{
		client:     client,
		test:       test,
		logger:     logger.With(slog.String("component", "gate")),
		precisions: make(map[string]int),
	}
}

// Name returns the broker identifier.
func (g *Gateway) Name() string {
	return "gate"
}

// ListInstruments returns every tradable spot pair against the quote asset.
// Pair amount precisions are cached for order sizing.
func (g *Gateway) ListInstruments(ctx context.Context, quoteAsset string) ([]domain.Instrument, error) {
	body, err := g.client.doPublicRequest(ctx, "/api/v4/spot/currency_pairs", nil)
	if err != nil {
		return nil, fmt.Errorf("gate: currency pairs: %w", err)
	}

	var pairs []currencyPair
	if err := json.Unmarshal(body, &pairs); err != nil {
		return nil, fmt.Errorf("gate: decode currency pairs: %w", err)
	}

	var out []domain.Instrument
	g.mu.Lock()
	for _, p := range pairs {
		if p.TradeStatus != "tradable" {
			continue
		}
		g.precisions[p.ID] = p.AmountPrecision
		if p.Quote != quoteAsset {
			continue
		}
		out = append(out, domain.Instrument{
			Symbol:     p.ID,
			BaseAsset:  p.Base,
			QuoteAsset: p.Quote,
		})
	}
	g.mu.Unlock()

	return out, nil
}

// CurrentPrice returns the last trade price for the pair.
func (g *Gateway) CurrentPrice(ctx context.Context, inst domain.Instrument) (float64, error) {
	params := url.Values{}
	params.Set("currency_pair", inst.Symbol)

	body, err := g.client.doPublicRequest(ctx, "/api/v4/spot/tickers", params)
	if err != nil {
		return 0, fmt.Errorf("gate: ticker %s: %w: %w", inst.Symbol, domain.ErrPriceUnavailable, err)
	}

	var ticks []ticker
	if err := json.Unmarshal(body, &ticks); err != nil {
		return 0, fmt.Errorf("gate: decode ticker %s: %w", inst.Symbol, err)
	}
	if len(ticks) == 0 {
		return 0, fmt.Errorf("gate: ticker %s: %w: empty response", inst.Symbol, domain.ErrPriceUnavailable)
	}
	price, err := strconv.ParseFloat(ticks[0].Last, 64)
	if err != nil {
		return 0, fmt.Errorf("gate: parse price %q for %s: %w", ticks[0].Last, inst.Symbol, err)
	}
	return price, nil
}

// SizeForNotional converts a quote-asset notional to a base-asset order
// size, truncated to the pair's amount precision. Truncation never rounds
// up.
func (g *Gateway) SizeForNotional(ctx context.Context, inst domain.Instrument, notional, price float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("gate: size %s: price must be positive, got %v", inst.Symbol, price)
	}

	prec, err := g.amountPrecision(ctx, inst.Symbol)
	if err != nil {
		return 0, err
	}
	pow := math.Pow10(prec)
	size := math.Floor(notional/price*pow) / pow
	if size <= 0 {
		return 0, fmt.Errorf("gate: size %s: notional %v at price %v is below precision %d",
			inst.Symbol, notional, price, prec)
	}
	return size, nil
}

// PlaceOrder submits a market order. Gate denominates market buys in the
// quote currency and market sells in the base currency.
func (g *Gateway) PlaceOrder(ctx context.Context, inst domain.Instrument, side domain.OrderSide, size, referencePrice float64) (domain.OrderResult, error) {
	if g.test {
		return domain.OrderResult{
			Symbol:    inst.Symbol,
			Side:      side,
			Price:     referencePrice,
			Size:      size,
			Status:    domain.StatusTest,
			Timestamp: time.Now().UnixMilli(),
		}, nil
	}

	amount := size
	if side == domain.SideBuy {
		amount = size * referencePrice
	}
	order := orderRequest{
		CurrencyPair: inst.Symbol,
		Type:         "market",
		Account:      "spot",
		Side:         sideString(side),
		Amount:       strconv.FormatFloat(amount, 'f', -1, 64),
		TimeInForce:  "ioc",
	}

	body, err := g.client.doSignedRequest(ctx, "POST", "/api/v4/spot/orders", nil, order)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("gate: place %s %s: %w: %w",
			side, inst.Symbol, domain.ErrOrderRejected, err)
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("gate: decode order response %s: %w", inst.Symbol, err)
	}

	result := domain.OrderResult{
		Symbol:    inst.Symbol,
		Side:      side,
		Price:     referencePrice,
		Size:      size,
		Status:    domain.StatusLive,
		Timestamp: time.Now().UnixMilli(),
	}
	if p, err := strconv.ParseFloat(resp.AvgDealPrice, 64); err == nil && p > 0 {
		result.Price = p
	}
	if q, err := strconv.ParseFloat(resp.FilledAmount, 64); err == nil && q > 0 {
		result.Size = q
	}
	if ms, err := strconv.ParseFloat(resp.CreateTimeMs, 64); err == nil && ms > 0 {
		result.Timestamp = int64(ms)
	}
	return result, nil
}

// amountPrecision returns the cached base precision for the pair,
// refreshing the pair list once on a miss.
func (g *Gateway) amountPrecision(ctx context.Context, symbol string) (int, error) {
	g.mu.Lock()
	prec, ok := g.precisions[symbol]
	g.mu.Unlock()
	if ok {
		return prec, nil
	}

	g.logger.DebugContext(ctx, "precision cache miss, refreshing pair list",
		slog.String("symbol", symbol),
	)
	if _, err := g.ListInstruments(ctx, ""); err != nil {
		return 0, fmt.Errorf("gate: refresh precisions: %w", err)
	}

	g.mu.Lock()
	prec, ok = g.precisions[symbol]
	g.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("gate: no precision for %s", symbol)
	}
	return prec, nil
}

// sideString maps the domain order side to Gate's lowercase form.
func sideString(side domain.OrderSide) string {
	if side == domain.SideBuy {
		return "buy"
	}
	return "sell"
}
