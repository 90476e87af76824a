package oracle

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"synthmint/native/mint"
)

func priceServer(t *testing.T, rate string, lastUpdated uint64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/prices/sAPPL":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"rate":         rate,
				"last_updated": lastUpdated,
			})
		case "/collateral/uluna":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"rate":         rate,
				"multiplier":   "1.2",
				"is_revoked":   true,
				"last_updated": lastUpdated,
			})
		case "/pairs":
			_ = json.NewEncoder(w).Encode(map[string]string{"pair": "pair-" + r.URL.Query().Get("asset")})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAssetPrice(t *testing.T) {
	server := priceServer(t, "123.45", 1_000)
	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	price, err := client.AssetPrice(mint.TokenAsset("sAPPL"), 1_030)
	if err != nil {
		t.Fatalf("asset price: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("123.45")) {
		t.Fatalf("unexpected price: %s", price)
	}
}

func TestAssetPriceStale(t *testing.T) {
	server := priceServer(t, "123.45", 1_000)
	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	// One second past the 60s window.
	if _, err := client.AssetPrice(mint.TokenAsset("sAPPL"), 1_061); !errors.Is(err, ErrPriceStale) {
		t.Fatalf("expected ErrPriceStale, got %v", err)
	}
	// Exactly at the window boundary is still fresh.
	if _, err := client.AssetPrice(mint.TokenAsset("sAPPL"), 1_060); err != nil {
		t.Fatalf("boundary price: %v", err)
	}
	// Zero quote time skips the staleness check.
	if _, err := client.AssetPrice(mint.TokenAsset("sAPPL"), 0); err != nil {
		t.Fatalf("zero quote time: %v", err)
	}
}

func TestAssetPriceRejectsNonPositiveRate(t *testing.T) {
	server := priceServer(t, "0", 1_000)
	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.AssetPrice(mint.TokenAsset("sAPPL"), 0); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestCollateralInfoRejectsNonPositiveRate(t *testing.T) {
	server := priceServer(t, "-3", 1_000)
	client, err := NewCollateralClient(Config{BaseURL: server.URL}, "uusd")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.CollateralInfo(mint.NativeAsset("uluna"), 0); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestAssetPriceNotFound(t *testing.T) {
	server := priceServer(t, "1", 1_000)
	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.AssetPrice(mint.TokenAsset("sUNKNOWN"), 0); !errors.Is(err, ErrPriceNotFound) {
		t.Fatalf("expected ErrPriceNotFound, got %v", err)
	}
}

func TestCollateralInfoBaseDenomShortcut(t *testing.T) {
	client, err := NewCollateralClient(Config{BaseURL: "http://unused.invalid"}, "uusd")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	// The base denomination never hits the remote oracle.
	info, err := client.CollateralInfo(mint.NativeAsset("uusd"), 0)
	if err != nil {
		t.Fatalf("collateral info: %v", err)
	}
	if !info.Price.Equal(decimal.New(1, 0)) || !info.Multiplier.Equal(decimal.New(1, 0)) || info.IsRevoked {
		t.Fatalf("unexpected base denom info: %+v", info)
	}
}

func TestCollateralInfoRemote(t *testing.T) {
	server := priceServer(t, "0.5", 1_000)
	client, err := NewCollateralClient(Config{BaseURL: server.URL}, "uusd")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	info, err := client.CollateralInfo(mint.NativeAsset("uluna"), 1_030)
	if err != nil {
		t.Fatalf("collateral info: %v", err)
	}
	if !info.Price.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("unexpected price: %s", info.Price)
	}
	if !info.Multiplier.Equal(decimal.RequireFromString("1.2")) {
		t.Fatalf("unexpected multiplier: %s", info.Multiplier)
	}
	if !info.IsRevoked {
		t.Fatal("expected revoked flag")
	}
}

func TestPairFor(t *testing.T) {
	server := priceServer(t, "1", 1_000)
	client, err := NewPairClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	pair, err := client.PairFor(mint.NativeAsset("uusd"), mint.TokenAsset("sAPPL"))
	if err != nil {
		t.Fatalf("pair for: %v", err)
	}
	if pair != "pair-sAPPL" {
		t.Fatalf("unexpected pair: %s", pair)
	}
}
