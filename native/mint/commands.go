package mint

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Command is an outbound intent queued for the host to dispatch after the
// operation's storage writes are applied. Commands are fire-and-forget from
// the engine's point of view: their effects are never visible within the
// operation that emitted them, so ordering within the returned slice is the
// only contract downstream modules can rely on.
type Command interface {
	CommandType() string
}

// MintTokens asks the token module to mint synthetic tokens to a recipient.
type MintTokens struct {
	Token     string
	Recipient string
	Amount    *big.Int
}

func (MintTokens) CommandType() string { return "mint_tokens" }

// BurnTokens asks the token module to burn synthetic tokens held by the mint
// module.
type BurnTokens struct {
	Token  string
	Amount *big.Int
}

func (BurnTokens) CommandType() string { return "burn_tokens" }

// TransferTokens moves synthetic tokens from the mint module to a recipient.
type TransferTokens struct {
	Token     string
	Recipient string
	Amount    *big.Int
}

func (TransferTokens) CommandType() string { return "transfer_tokens" }

// NativeSend moves native coins to a recipient. Amount is net of the network
// transfer tax; Tax records the deducted portion for event reporting.
type NativeSend struct {
	Denom     string
	Recipient string
	Amount    *big.Int
	Tax       *big.Int
}

func (NativeSend) CommandType() string { return "native_send" }

// Swap sells freshly minted tokens on the configured pair, routing the
// proceeds to the receiver (the lock module for short positions).
type Swap struct {
	Pair        string
	Token       string
	Amount      *big.Int
	BeliefPrice *decimal.Decimal
	MaxSpread   *decimal.Decimal
	To          string
}

func (Swap) CommandType() string { return "swap" }

// LockPositionFunds associates swap proceeds held by the lock module with a
// position and its funds receiver.
type LockPositionFunds struct {
	Lock        string
	PositionIdx uint64
	Receiver    string
}

func (LockPositionFunds) CommandType() string { return "lock_position_funds" }

// ReleasePositionFunds releases the locked funds of a closed short position.
type ReleasePositionFunds struct {
	Lock        string
	PositionIdx uint64
}

func (ReleasePositionFunds) CommandType() string { return "release_position_funds" }

// IncreaseShortToken bumps the staker's short counter in the staking module.
type IncreaseShortToken struct {
	Staking string
	Token   string
	Staker  string
	Amount  *big.Int
}

func (IncreaseShortToken) CommandType() string { return "increase_short_token" }

// DecreaseShortToken reduces the staker's short counter in the staking module.
type DecreaseShortToken struct {
	Staking string
	Token   string
	Staker  string
	Amount  *big.Int
}

func (DecreaseShortToken) CommandType() string { return "decrease_short_token" }

// transferCommand builds the command returning an asset to a recipient. Token
// transfers go through the token module untaxed; native sends deduct the
// network transfer tax. The reported tax is returned alongside.
func transferCommand(asset Asset, recipient string, tax TaxSource) (Command, *big.Int, error) {
	if !asset.Info.IsNative() {
		return TransferTokens{
			Token:     asset.Info.Token,
			Recipient: recipient,
			Amount:    new(big.Int).Set(asset.Amount),
		}, big.NewInt(0), nil
	}
	taxAmount, err := computeTax(asset, tax)
	if err != nil {
		return nil, nil, err
	}
	net, err := checkedSub(asset.Amount, taxAmount)
	if err != nil {
		return nil, nil, err
	}
	return NativeSend{
		Denom:     asset.Info.Denom,
		Recipient: recipient,
		Amount:    net,
		Tax:       taxAmount,
	}, taxAmount, nil
}

// computeTax returns min(amount*rate, cap) for native assets and zero for
// token assets.
func computeTax(asset Asset, tax TaxSource) (*big.Int, error) {
	if !asset.Info.IsNative() || tax == nil {
		return big.NewInt(0), nil
	}
	rate, err := tax.TaxRate()
	if err != nil {
		return nil, err
	}
	cap, err := tax.TaxCap(asset.Info.Denom)
	if err != nil {
		return nil, err
	}
	taxAmount := mulTruncate(asset.Amount, rate)
	if cap != nil && taxAmount.Cmp(cap) > 0 {
		taxAmount = new(big.Int).Set(cap)
	}
	return taxAmount, nil
}
