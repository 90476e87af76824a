package rpc

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"synthmint/crypto"
	"synthmint/native/mint"
)

type assetInfoPayload struct {
	Token string `json:"token,omitempty"`
	Denom string `json:"denom,omitempty"`
}

type assetPayload struct {
	Token  string `json:"token,omitempty"`
	Denom  string `json:"denom,omitempty"`
	Amount string `json:"amount"`
}

type shortParamsPayload struct {
	BeliefPrice string `json:"belief_price,omitempty"`
	MaxSpread   string `json:"max_spread,omitempty"`
}

type eventPayload struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

type commandPayload struct {
	Type        string `json:"type"`
	Token       string `json:"token,omitempty"`
	Denom       string `json:"denom,omitempty"`
	Recipient   string `json:"recipient,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Tax         string `json:"tax,omitempty"`
	Pair        string `json:"pair,omitempty"`
	BeliefPrice string `json:"belief_price,omitempty"`
	MaxSpread   string `json:"max_spread,omitempty"`
	To          string `json:"to,omitempty"`
	Lock        string `json:"lock,omitempty"`
	Staking     string `json:"staking,omitempty"`
	Staker      string `json:"staker,omitempty"`
	PositionIdx uint64 `json:"position_idx,omitempty"`
}

type receiptPayload struct {
	Commands []commandPayload `json:"commands"`
	Event    eventPayload     `json:"event"`
}

type positionPayload struct {
	Idx        uint64       `json:"idx"`
	Owner      string       `json:"owner"`
	Collateral assetPayload `json:"collateral"`
	Asset      assetPayload `json:"asset"`
	IsShort    bool         `json:"is_short"`
}

func (p assetInfoPayload) toInfo() (mint.AssetInfo, error) {
	hasToken := strings.TrimSpace(p.Token) != ""
	hasDenom := strings.TrimSpace(p.Denom) != ""
	if hasToken == hasDenom {
		return mint.AssetInfo{}, errors.New("exactly one of token and denom must be set")
	}
	if hasToken {
		return mint.TokenAsset(strings.TrimSpace(p.Token)), nil
	}
	return mint.NativeAsset(strings.TrimSpace(p.Denom)), nil
}

func (p assetPayload) toAsset() (mint.Asset, error) {
	info, err := assetInfoPayload{Token: p.Token, Denom: p.Denom}.toInfo()
	if err != nil {
		return mint.Asset{}, err
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		return mint.Asset{}, err
	}
	return mint.Asset{Info: info, Amount: amount}, nil
}

func (p *shortParamsPayload) toParams() (*mint.ShortParams, error) {
	if p == nil {
		return nil, nil
	}
	params := &mint.ShortParams{}
	if p.BeliefPrice != "" {
		price, err := decimal.NewFromString(p.BeliefPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid belief_price: %w", err)
		}
		params.BeliefPrice = &price
	}
	if p.MaxSpread != "" {
		spread, err := decimal.NewFromString(p.MaxSpread)
		if err != nil {
			return nil, fmt.Errorf("invalid max_spread: %w", err)
		}
		params.MaxSpread = &spread
	}
	return params, nil
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

func parseAddress(raw string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("invalid address: %w", err)
	}
	return addr, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return value, nil
}

func encodeAsset(a mint.Asset) assetPayload {
	payload := assetPayload{Token: a.Info.Token, Denom: a.Info.Denom}
	if a.Amount != nil {
		payload.Amount = a.Amount.String()
	}
	return payload
}

func encodePosition(view *mint.PositionView) positionPayload {
	return positionPayload{
		Idx:        view.Idx,
		Owner:      view.Owner,
		Collateral: encodeAsset(view.Collateral),
		Asset:      encodeAsset(view.Asset),
		IsShort:    view.IsShort,
	}
}

func encodeReceipt(receipt *mint.Receipt) receiptPayload {
	payload := receiptPayload{
		Commands: make([]commandPayload, 0, len(receipt.Commands)),
		Event: eventPayload{
			Type:       receipt.Event.Type,
			Attributes: receipt.Event.Attributes,
		},
	}
	for _, cmd := range receipt.Commands {
		payload.Commands = append(payload.Commands, encodeCommand(cmd))
	}
	return payload
}

func encodeCommand(cmd mint.Command) commandPayload {
	payload := commandPayload{Type: cmd.CommandType()}
	switch c := cmd.(type) {
	case mint.MintTokens:
		payload.Token = c.Token
		payload.Recipient = c.Recipient
		payload.Amount = c.Amount.String()
	case mint.BurnTokens:
		payload.Token = c.Token
		payload.Amount = c.Amount.String()
	case mint.TransferTokens:
		payload.Token = c.Token
		payload.Recipient = c.Recipient
		payload.Amount = c.Amount.String()
	case mint.NativeSend:
		payload.Denom = c.Denom
		payload.Recipient = c.Recipient
		payload.Amount = c.Amount.String()
		payload.Tax = c.Tax.String()
	case mint.Swap:
		payload.Pair = c.Pair
		payload.Token = c.Token
		payload.Amount = c.Amount.String()
		payload.To = c.To
		if c.BeliefPrice != nil {
			payload.BeliefPrice = c.BeliefPrice.String()
		}
		if c.MaxSpread != nil {
			payload.MaxSpread = c.MaxSpread.String()
		}
	case mint.LockPositionFunds:
		payload.Lock = c.Lock
		payload.PositionIdx = c.PositionIdx
		payload.Recipient = c.Receiver
	case mint.ReleasePositionFunds:
		payload.Lock = c.Lock
		payload.PositionIdx = c.PositionIdx
	case mint.IncreaseShortToken:
		payload.Staking = c.Staking
		payload.Token = c.Token
		payload.Staker = c.Staker
		payload.Amount = c.Amount.String()
	case mint.DecreaseShortToken:
		payload.Staking = c.Staking
		payload.Token = c.Token
		payload.Staker = c.Staker
		payload.Amount = c.Amount.String()
	}
	return payload
}
