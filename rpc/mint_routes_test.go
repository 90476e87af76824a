package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"synthmint/crypto"
	"synthmint/native/mint"
	"synthmint/storage"
)

type fixedPrices map[string]decimal.Decimal

func (f fixedPrices) AssetPrice(info mint.AssetInfo, _ uint64) (decimal.Decimal, error) {
	price, ok := f[info.String()]
	if !ok {
		return decimal.Decimal{}, errors.New("no price")
	}
	return price, nil
}

type fixedCollateral map[string]mint.CollateralInfo

func (f fixedCollateral) CollateralInfo(info mint.AssetInfo, _ uint64) (mint.CollateralInfo, error) {
	collateralInfo, ok := f[info.String()]
	if !ok {
		return mint.CollateralInfo{}, errors.New("no collateral info")
	}
	return collateralInfo, nil
}

type fixedPairs string

func (f fixedPairs) PairFor(_, _ mint.AssetInfo) (string, error) { return string(f), nil }

func testAddress(t *testing.T, b byte) crypto.Address {
	t.Helper()
	return crypto.MustNewAddress(crypto.AccountPrefix, bytes.Repeat([]byte{b}, 20))
}

func newTestServer(t *testing.T) (*httptest.Server, crypto.Address, crypto.Address) {
	t.Helper()

	owner := testAddress(t, 0x01)
	user := testAddress(t, 0x10)

	ledger := mint.NewLedger(storage.NewMemDB())
	require.NoError(t, ledger.PutConfig(&mint.Config{
		Owner:           owner,
		Collector:       testAddress(t, 0x02),
		BaseDenom:       "uusd",
		ProtocolFeeRate: decimal.RequireFromString("0.015"),
		Lock:            "lockmod",
		Staking:         "stakingmod",
		SwapFactory:     "factory",
	}))
	require.NoError(t, ledger.PutAssetConfig(&mint.AssetConfig{
		Token:              "sAPPL",
		AuctionDiscount:    decimal.RequireFromString("0.2"),
		MinCollateralRatio: decimal.RequireFromString("1.5"),
	}))

	engine := mint.NewEngine(ledger, testAddress(t, 0x03))
	engine.SetPriceSource(fixedPrices{"sAPPL": decimal.RequireFromString("1")})
	engine.SetCollateralSource(fixedCollateral{"uusd": {
		Price:      decimal.RequireFromString("1"),
		Multiplier: decimal.RequireFromString("1"),
	}})
	engine.SetPairSource(fixedPairs("pair-sappl-uusd"))
	engine.SetTaxSource(mint.FixedTax{})

	server := httptest.NewServer(NewServer(engine, nil).Router())
	t.Cleanup(server.Close)
	return server, owner, user
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func openTestPosition(t *testing.T, server *httptest.Server, user crypto.Address) receiptPayload {
	t.Helper()
	resp := postJSON(t, server.URL+"/v1/mint/positions", map[string]any{
		"sender":           user.String(),
		"collateral":       map[string]string{"denom": "uusd", "amount": "1000000"},
		"asset_info":       map[string]string{"token": "sAPPL"},
		"collateral_ratio": "1.5",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var receipt receiptPayload
	decodeBody(t, resp, &receipt)
	return receipt
}

func TestOpenPositionEndpoint(t *testing.T) {
	server, _, user := newTestServer(t)

	receipt := openTestPosition(t, server, user)
	require.Len(t, receipt.Commands, 1)
	require.Equal(t, "mint_tokens", receipt.Commands[0].Type)
	require.Equal(t, "666666", receipt.Commands[0].Amount)
	require.Equal(t, user.String(), receipt.Commands[0].Recipient)
	require.Equal(t, mint.TypePositionOpened, receipt.Event.Type)
	require.Equal(t, "1", receipt.Event.Attributes["position_idx"])
}

func TestGetPositionEndpoint(t *testing.T) {
	server, _, user := newTestServer(t)
	openTestPosition(t, server, user)

	resp, err := http.Get(server.URL + "/v1/mint/positions/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var position positionPayload
	decodeBody(t, resp, &position)
	require.Equal(t, uint64(1), position.Idx)
	require.Equal(t, user.String(), position.Owner)
	require.Equal(t, "1000000", position.Collateral.Amount)
	require.Equal(t, "666666", position.Asset.Amount)
	require.False(t, position.IsShort)
}

func TestGetPositionNotFound(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/v1/mint/positions/99")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWithdrawByStrangerForbidden(t *testing.T) {
	server, _, user := newTestServer(t)
	openTestPosition(t, server, user)

	resp := postJSON(t, server.URL+"/v1/mint/positions/1/withdraw", map[string]any{
		"sender":     testAddress(t, 0x99).String(),
		"collateral": map[string]string{"denom": "uusd", "amount": "1"},
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWithdrawBreakingRatioRejected(t *testing.T) {
	server, _, user := newTestServer(t)
	openTestPosition(t, server, user)

	resp := postJSON(t, server.URL+"/v1/mint/positions/1/withdraw", map[string]any{
		"sender":     user.String(),
		"collateral": map[string]string{"denom": "uusd", "amount": "500000"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	require.Contains(t, body["error"], "collateral ratio")
}

func TestListPositionsEndpoint(t *testing.T) {
	server, _, user := newTestServer(t)
	openTestPosition(t, server, user)
	openTestPosition(t, server, user)

	resp, err := http.Get(fmt.Sprintf("%s/v1/mint/positions?owner=%s&limit=1", server.URL, user.String()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Positions []positionPayload `json:"positions"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Positions, 1)
	require.Equal(t, uint64(1), body.Positions[0].Idx)

	resp, err = http.Get(fmt.Sprintf("%s/v1/mint/positions?owner=%s&start_after=1", server.URL, user.String()))
	require.NoError(t, err)
	decodeBody(t, resp, &body)
	resp.Body.Close()
	require.Len(t, body.Positions, 1)
	require.Equal(t, uint64(2), body.Positions[0].Idx)
}

func TestRegisterAssetEndpointAuthorization(t *testing.T) {
	server, owner, user := newTestServer(t)

	resp := postJSON(t, server.URL+"/v1/mint/assets", map[string]any{
		"sender":               user.String(),
		"token":                "sTSLA",
		"auction_discount":     "0.2",
		"min_collateral_ratio": "1.5",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = postJSON(t, server.URL+"/v1/mint/assets", map[string]any{
		"sender":               owner.String(),
		"token":                "sTSLA",
		"auction_discount":     "0.2",
		"min_collateral_ratio": "1.5",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(server.URL + "/v1/mint/assets/sTSLA")
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var asset assetConfigPayload
	decodeBody(t, getResp, &asset)
	require.Equal(t, "sTSLA", asset.Token)
	require.Equal(t, "1.5", asset.MinCollateralRatio)
}

func TestMigrateAssetEndpoint(t *testing.T) {
	server, owner, user := newTestServer(t)
	openTestPosition(t, server, user)

	resp := postJSON(t, server.URL+"/v1/mint/assets/sAPPL/migrate", map[string]any{
		"sender":    owner.String(),
		"end_price": "2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Minting against the deprecated asset now fails.
	resp = postJSON(t, server.URL+"/v1/mint/positions/1/mint", map[string]any{
		"sender": user.String(),
		"asset":  map[string]string{"token": "sAPPL", "amount": "1"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestOpenPositionBadRequest(t *testing.T) {
	server, _, user := newTestServer(t)

	// Both token and denom set on the collateral.
	resp := postJSON(t, server.URL+"/v1/mint/positions", map[string]any{
		"sender":           user.String(),
		"collateral":       map[string]string{"denom": "uusd", "token": "sAPPL", "amount": "100"},
		"asset_info":       map[string]string{"token": "sAPPL"},
		"collateral_ratio": "1.5",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Malformed amount.
	resp = postJSON(t, server.URL+"/v1/mint/positions", map[string]any{
		"sender":           user.String(),
		"collateral":       map[string]string{"denom": "uusd", "amount": "not-a-number"},
		"asset_info":       map[string]string{"token": "sAPPL"},
		"collateral_ratio": "1.5",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
