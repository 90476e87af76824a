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

	"synthmint/native/mint"
)

// ErrPairNotFound is returned when the factory has no pair listed for the
// asset.
var ErrPairNotFound = errors.New("oracle: pair not found")

// PairClient resolves swap pair addresses from a factory endpoint. It
// implements mint.PairSource.
type PairClient struct {
	baseURL    string
	httpClient *http.Client
}

type pairResponse struct {
	Pair string `json:"pair"`
}

// NewPairClient constructs a pair lookup client.
func NewPairClient(cfg Config) (*PairClient, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("oracle: base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PairClient{
		baseURL: strings.TrimRight(base, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// PairFor returns the pair handling trades between base and asset.
func (c *PairClient) PairFor(base mint.AssetInfo, asset mint.AssetInfo) (string, error) {
	if c == nil {
		return "", fmt.Errorf("oracle: client not configured")
	}
	query := url.Values{}
	query.Set("base", base.String())
	query.Set("asset", asset.String())
	target := fmt.Sprintf("%s/pairs?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("oracle: request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle: call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", ErrPairNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle: unexpected status %d", resp.StatusCode)
	}
	var payload pairResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("oracle: decode: %w", err)
	}
	if payload.Pair == "" {
		return "", ErrPairNotFound
	}
	return payload.Pair, nil
}
