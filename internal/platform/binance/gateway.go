package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"listingbot/internal/domain"
)

// Gateway adapts the Binance REST client to the BrokerGateway contract.
type Gateway struct {
	client *Client
	test   bool
	logger *slog.Logger

	mu    sync.Mutex
	steps map[string]string // symbol -> LOT_SIZE step size
}

var _ domain.BrokerGateway = (*Gateway)(nil)

// NewGateway creates a Binance gateway. With test enabled, entry and exit
// orders go to the order validation endpoint and no real trade is placed.
func NewGateway(client *Client, test bool, logger *slog.Logger) *Gateway {
	return &Gateway{
		client: client,
		test:   test,
		logger: logger.With(slog.String("component", "binance")),
		steps:  make(map[string]string),
	}
}

// Name returns the broker identifier.
func (g *Gateway) Name() string {
	return "binance"
}

// ListInstruments returns every spot pair currently trading against the
// quote asset. The pairs' lot-size steps are cached for order sizing.
func (g *Gateway) ListInstruments(ctx context.Context, quoteAsset string) ([]domain.Instrument, error) {
	body, err := g.client.doPublicRequest(ctx, "/api/v3/exchangeInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("binance: exchange info: %w", err)
	}

	var info exchangeInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("binance: decode exchange info: %w", err)
	}

	var out []domain.Instrument
	g.mu.Lock()
	for _, s := range info.Symbols {
		if s.Status != "TRADING" || !s.IsSpotTradingAllowed {
			continue
		}
		for _, f := range s.Filters {
			if f.FilterType == "LOT_SIZE" {
				g.steps[s.Symbol] = f.StepSize
				break
			}
		}
		if s.QuoteAsset != quoteAsset {
			continue
		}
		out = append(out, domain.Instrument{
			Symbol:     s.Symbol,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
		})
	}
	g.mu.Unlock()

	return out, nil
}

// CurrentPrice returns the latest trade price for the instrument.
func (g *Gateway) CurrentPrice(ctx context.Context, inst domain.Instrument) (float64, error) {
	params := url.Values{}
	params.Set("symbol", inst.Symbol)

	body, err := g.client.doPublicRequest(ctx, "/api/v3/ticker/price", params)
	if err != nil {
		return 0, fmt.Errorf("binance: ticker %s: %w: %w", inst.Symbol, domain.ErrPriceUnavailable, err)
	}

	var tick tickerPriceResponse
	if err := json.Unmarshal(body, &tick); err != nil {
		return 0, fmt.Errorf("binance: decode ticker %s: %w", inst.Symbol, err)
	}
	price, err := strconv.ParseFloat(tick.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("binance: parse price %q for %s: %w", tick.Price, inst.Symbol, err)
	}
	return price, nil
}

// SizeForNotional converts a quote-asset notional to a base-asset order
// size, truncated to the pair's lot-size step. Truncation never rounds up,
// so the resulting order never exceeds the configured notional.
func (g *Gateway) SizeForNotional(ctx context.Context, inst domain.Instrument, notional, price float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("binance: size %s: price must be positive, got %v", inst.Symbol, price)
	}

	step, err := g.stepSize(ctx, inst.Symbol)
	if err != nil {
		return 0, err
	}
	size := TruncateToStep(notional/price, step)
	if size <= 0 {
		return 0, fmt.Errorf("binance: size %s: notional %v at price %v is below lot step %s",
			inst.Symbol, notional, price, step)
	}
	return size, nil
}

// PlaceOrder submits a market order. In test mode the order goes to the
// validation endpoint and a synthetic fill at the reference price is
// returned.
func (g *Gateway) PlaceOrder(ctx context.Context, inst domain.Instrument, side domain.OrderSide, size, referencePrice float64) (domain.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", inst.Symbol)
	params.Set("side", string(side))
	params.Set("type", "MARKET")
	params.Set("quantity", strconv.FormatFloat(size, 'f', -1, 64))

	path := "/api/v3/order"
	if g.test {
		path = "/api/v3/order/test"
	}

	body, err := g.client.doSignedRequest(ctx, "POST", path, params)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: place %s %s: %w: %w",
			side, inst.Symbol, domain.ErrOrderRejected, err)
	}

	if g.test {
		// The test endpoint validates and returns an empty body.
		return domain.OrderResult{
			Symbol:    inst.Symbol,
			Side:      side,
			Price:     referencePrice,
			Size:      size,
			Status:    domain.StatusTest,
			Timestamp: time.Now().UnixMilli(),
		}, nil
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: decode order response %s: %w", inst.Symbol, err)
	}

	result := domain.OrderResult{
		Symbol:    inst.Symbol,
		Side:      side,
		Price:     fillPrice(resp, referencePrice),
		Size:      size,
		Status:    domain.StatusLive,
		Timestamp: resp.TransactTime,
	}
	if qty, err := strconv.ParseFloat(resp.ExecutedQty, 64); err == nil && qty > 0 {
		result.Size = qty
	}
	if result.Timestamp == 0 {
		result.Timestamp = time.Now().UnixMilli()
	}
	return result, nil
}

// stepSize returns the cached lot-size step for the symbol, refreshing the
// exchange info once on a miss (freshly listed pairs may not be cached
// yet).
func (g *Gateway) stepSize(ctx context.Context, symbol string) (string, error) {
	g.mu.Lock()
	step, ok := g.steps[symbol]
	g.mu.Unlock()
	if ok {
		return step, nil
	}

	g.logger.DebugContext(ctx, "lot step cache miss, refreshing exchange info",
		slog.String("symbol", symbol),
	)
	// Refresh with any quote asset; the call caches steps for all pairs.
	if _, err := g.ListInstruments(ctx, ""); err != nil {
		return "", fmt.Errorf("binance: refresh lot steps: %w", err)
	}

	g.mu.Lock()
	step, ok = g.steps[symbol]
	g.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("binance: no lot step for %s", symbol)
	}
	return step, nil
}

// fillPrice derives the average fill price from the order response, falling
// back to the reference price when the response carries no usable fills.
func fillPrice(resp orderResponse, referencePrice float64) float64 {
	var quote, qty float64
	for _, f := range resp.Fills {
		p, perr := strconv.ParseFloat(f.Price, 64)
		q, qerr := strconv.ParseFloat(f.Qty, 64)
		if perr != nil || qerr != nil {
			continue
		}
		quote += p * q
		qty += q
	}
	if qty > 0 {
		return quote / qty
	}
	return referencePrice
}

// TruncateToStep truncates qty down to the precision implied by the
// exchange's step string (e.g. "0.00100000" means three decimals). It never
// rounds up.
func TruncateToStep(qty float64, step string) float64 {
	prec := stepPrecision(step)
	pow := math.Pow10(prec)
	return math.Floor(qty*pow) / pow
}

// stepPrecision counts the significant decimals of a step string like
// "0.00100000". A step of "1.00000000" (or malformed input) means whole
// units.
func stepPrecision(step string) int {
	dot := strings.IndexByte(step, '.')
	if dot < 0 {
		return 0
	}
	frac := strings.TrimRight(step[dot+1:], "0")
	return len(frac)
}
