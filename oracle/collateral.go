package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"synthmint/native/mint"
)

// CollateralClient fetches collateral prices, multipliers and revocation
// state over HTTP. It implements mint.CollateralSource. The base denomination
// is answered locally at a fixed price of one.
type CollateralClient struct {
	baseURL    string
	baseDenom  string
	httpClient *http.Client
}

type collateralResponse struct {
	Rate        string `json:"rate"`
	Multiplier  string `json:"multiplier"`
	IsRevoked   bool   `json:"is_revoked"`
	LastUpdated uint64 `json:"last_updated"`
}

// NewCollateralClient constructs a collateral oracle client. baseDenom is the
// denomination every price is quoted in.
func NewCollateralClient(cfg Config, baseDenom string) (*CollateralClient, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("oracle: base url required")
	}
	if strings.TrimSpace(baseDenom) == "" {
		return nil, fmt.Errorf("oracle: base denom required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CollateralClient{
		baseURL:   strings.TrimRight(base, "/"),
		baseDenom: baseDenom,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// CollateralInfo returns the live price, multiplier and revocation flag for a
// collateral kind.
func (c *CollateralClient) CollateralInfo(info mint.AssetInfo, quoteTime uint64) (mint.CollateralInfo, error) {
	if c == nil {
		return mint.CollateralInfo{}, fmt.Errorf("oracle: client not configured")
	}
	if info.IsNative() && info.Denom == c.baseDenom {
		return mint.CollateralInfo{
			Price:      decimal.New(1, 0),
			Multiplier: decimal.New(1, 0),
		}, nil
	}

	target := fmt.Sprintf("%s/collateral/%s", c.baseURL, url.PathEscape(info.String()))
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, target, nil)
	if err != nil {
		return mint.CollateralInfo{}, fmt.Errorf("oracle: request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mint.CollateralInfo{}, fmt.Errorf("oracle: call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return mint.CollateralInfo{}, ErrPriceNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return mint.CollateralInfo{}, fmt.Errorf("oracle: unexpected status %d", resp.StatusCode)
	}
	var payload collateralResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return mint.CollateralInfo{}, fmt.Errorf("oracle: decode: %w", err)
	}
	if quoteTime != 0 && payload.LastUpdated+priceExpireTime < quoteTime {
		return mint.CollateralInfo{}, ErrPriceStale
	}
	price, err := decimal.NewFromString(payload.Rate)
	if err != nil {
		return mint.CollateralInfo{}, fmt.Errorf("oracle: parse rate: %w", err)
	}
	if price.Sign() <= 0 {
		return mint.CollateralInfo{}, ErrInvalidPrice
	}
	multiplier := decimal.New(1, 0)
	if payload.Multiplier != "" {
		multiplier, err = decimal.NewFromString(payload.Multiplier)
		if err != nil {
			return mint.CollateralInfo{}, fmt.Errorf("oracle: parse multiplier: %w", err)
		}
		if multiplier.Sign() <= 0 {
			return mint.CollateralInfo{}, ErrInvalidPrice
		}
	}
	return mint.CollateralInfo{
		Price:      price,
		Multiplier: multiplier,
		IsRevoked:  payload.IsRevoked,
	}, nil
}
