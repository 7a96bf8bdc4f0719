package binance

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"listingbot/internal/domain"
)

func TestStepPrecision(t *testing.T) {
	tests := []struct {
		step string
		want int
	}{
		{"0.00100000", 3},
		{"0.00000100", 6},
		{"1.00000000", 0},
		{"0.10000000", 1},
		{"1", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			if got := stepPrecision(tt.step); got != tt.want {
				t.Errorf("stepPrecision(%q) = %d, want %d", tt.step, got, tt.want)
			}
		})
	}
}

func TestTruncateToStepNeverRoundsUp(t *testing.T) {
	tests := []struct {
		name string
		qty  float64
		step string
		want float64
	}{
		{"three decimals", 0.123456, "0.00100000", 0.123},
		{"whole units", 5.999, "1.00000000", 5},
		{"below one step", 0.0004, "0.00100000", 0},
		{"exact multiple", 0.5, "0.10000000", 0.5},
		{"boundary stays down", 0.069999, "0.00100000", 0.069},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateToStep(tt.qty, tt.step)
			if got != tt.want {
				t.Errorf("TruncateToStep(%v, %q) = %v, want %v", tt.qty, tt.step, got, tt.want)
			}
			if got > tt.qty {
				t.Errorf("TruncateToStep(%v, %q) = %v rounded up", tt.qty, tt.step, got)
			}
		})
	}
}

const exchangeInfoBody = `{
	"symbols": [
		{
			"symbol": "NEWUSDT",
			"status": "TRADING",
			"baseAsset": "NEW",
			"quoteAsset": "USDT",
			"isSpotTradingAllowed": true,
			"filters": [{"filterType": "LOT_SIZE", "stepSize": "0.01000000"}]
		},
		{
			"symbol": "NEWBTC",
			"status": "TRADING",
			"baseAsset": "NEW",
			"quoteAsset": "BTC",
			"isSpotTradingAllowed": true,
			"filters": [{"filterType": "LOT_SIZE", "stepSize": "0.00100000"}]
		},
		{
			"symbol": "HALTUSDT",
			"status": "BREAK",
			"baseAsset": "HALT",
			"quoteAsset": "USDT",
			"isSpotTradingAllowed": true,
			"filters": [{"filterType": "LOT_SIZE", "stepSize": "1.00000000"}]
		}
	]
}`

func testGateway(t *testing.T, handler http.Handler, test bool) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "test-key", "test-secret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGateway(client, test, logger)
}

func TestListInstrumentsFiltersByStatusAndQuote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, exchangeInfoBody)
	})
	gw := testGateway(t, mux, true)

	got, err := gw.ListInstruments(context.Background(), "USDT")
	if err != nil {
		t.Fatalf("ListInstruments: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("instruments = %+v, want only NEWUSDT", got)
	}
	if got[0].Symbol != "NEWUSDT" || got[0].BaseAsset != "NEW" {
		t.Errorf("instrument = %+v", got[0])
	}
}

func TestCurrentPrice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/ticker/price", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "NEWUSDT" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		io.WriteString(w, `{"symbol":"NEWUSDT","price":"1.50000000"}`)
	})
	gw := testGateway(t, mux, true)

	price, err := gw.CurrentPrice(context.Background(), domain.Instrument{Symbol: "NEWUSDT"})
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if price != 1.5 {
		t.Errorf("price = %v, want 1.5", price)
	}
}

func TestSizeForNotionalUsesLotStep(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, exchangeInfoBody)
	})
	gw := testGateway(t, mux, true)

	// 100 USDT at 1.5 is 66.666..., truncated to the 0.01 step.
	size, err := gw.SizeForNotional(context.Background(), domain.Instrument{Symbol: "NEWUSDT"}, 100, 1.5)
	if err != nil {
		t.Fatalf("SizeForNotional: %v", err)
	}
	if size != 66.66 {
		t.Errorf("size = %v, want 66.66", size)
	}
}

func TestPlaceOrderTestModeReturnsSyntheticFill(t *testing.T) {
	var gotPath string
	var gotKey string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/order/test", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-MBX-APIKEY")
		if r.URL.Query().Get("signature") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"code":-1022,"msg":"Signature missing"}`)
			return
		}
		io.WriteString(w, `{}`)
	})
	gw := testGateway(t, mux, true)

	fill, err := gw.PlaceOrder(context.Background(),
		domain.Instrument{Symbol: "NEWUSDT"}, domain.SideBuy, 66.66, 1.5)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if gotPath != "/api/v3/order/test" {
		t.Errorf("path = %q, want the validation endpoint", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if fill.Status != domain.StatusTest {
		t.Errorf("Status = %q, want %q", fill.Status, domain.StatusTest)
	}
	if fill.Price != 1.5 || fill.Size != 66.66 {
		t.Errorf("fill = %+v, want reference price and requested size", fill)
	}
	if fill.Timestamp == 0 {
		t.Error("Timestamp not set")
	}
}

func TestPlaceOrderSurfacesAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/order/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"code":-2010,"msg":"Account has insufficient balance"}`)
	})
	gw := testGateway(t, mux, true)

	_, err := gw.PlaceOrder(context.Background(),
		domain.Instrument{Symbol: "NEWUSDT"}, domain.SideSell, 1, 1.5)
	if err == nil {
		t.Fatal("PlaceOrder wanted an error")
	}
}

func TestFillPriceWeightedAverage(t *testing.T) {
	resp := orderResponse{
		Fills: []orderFill{
			{Price: "10.0", Qty: "1"},
			{Price: "20.0", Qty: "3"},
		},
	}
	if got := fillPrice(resp, 99); got != 17.5 {
		t.Errorf("fillPrice = %v, want 17.5", got)
	}

	empty := orderResponse{}
	if got := fillPrice(empty, 99); got != 99 {
		t.Errorf("fillPrice with no fills = %v, want the reference price", got)
	}
}
