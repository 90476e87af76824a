package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"synthmint/native/mint"
)

// priceExpireTime is how long a quoted price stays usable, in seconds.
const priceExpireTime = 60

var (
	ErrPriceStale    = errors.New("oracle: price is too old")
	ErrPriceNotFound = errors.New("oracle: no price for asset")
	ErrInvalidPrice  = errors.New("oracle: price must be positive")
)

// Config defines the HTTP client settings for an oracle endpoint.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client fetches synthetic-asset prices over HTTP and enforces the staleness
// window. It implements mint.PriceSource.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type priceResponse struct {
	Rate        string `json:"rate"`
	LastUpdated uint64 `json:"last_updated"`
}

// NewClient constructs a price client with sane defaults.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("oracle: base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// AssetPrice fetches the latest price for the asset, quoted in the base
// denomination. A non-zero quoteTime rejects prices older than the staleness
// window.
func (c *Client) AssetPrice(info mint.AssetInfo, quoteTime uint64) (decimal.Decimal, error) {
	if c == nil {
		return decimal.Decimal{}, fmt.Errorf("oracle: client not configured")
	}
	payload, err := c.fetchPrice(context.Background(), info.String())
	if err != nil {
		return decimal.Decimal{}, err
	}
	if quoteTime != 0 && payload.LastUpdated+priceExpireTime < quoteTime {
		return decimal.Decimal{}, ErrPriceStale
	}
	rate, err := decimal.NewFromString(payload.Rate)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("oracle: parse rate: %w", err)
	}
	if rate.Sign() <= 0 {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	return rate, nil
}

func (c *Client) fetchPrice(ctx context.Context, asset string) (*priceResponse, error) {
	target := fmt.Sprintf("%s/prices/%s", c.baseURL, url.PathEscape(asset))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("oracle: request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle: call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPriceNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle: unexpected status %d", resp.StatusCode)
	}
	var payload priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("oracle: decode: %w", err)
	}
	return &payload, nil
}
