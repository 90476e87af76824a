package mint

import (
	"math/big"

	"github.com/shopspring/decimal"

	"synthmint/crypto"
)

// AssetInfo identifies either a synthetic token or a native denomination.
// Exactly one of Token and Denom is set.
type AssetInfo struct {
	// Token is the synthetic token symbol, empty for native coins.
	Token string
	// Denom is the native denomination, empty for tokens.
	Denom string
}

// NativeAsset builds the info record for a native denomination.
func NativeAsset(denom string) AssetInfo { return AssetInfo{Denom: denom} }

// TokenAsset builds the info record for a synthetic token.
func TokenAsset(token string) AssetInfo { return AssetInfo{Token: token} }

// IsNative reports whether the info identifies a native denomination.
func (a AssetInfo) IsNative() bool { return a.Denom != "" }

// Equal compares both the kind and the identifier.
func (a AssetInfo) Equal(b AssetInfo) bool { return a.Token == b.Token && a.Denom == b.Denom }

func (a AssetInfo) String() string {
	if a.IsNative() {
		return a.Denom
	}
	return a.Token
}

// Asset couples an asset kind with an integer amount in the smallest unit.
type Asset struct {
	Info   AssetInfo
	Amount *big.Int
}

// Copy returns a deep copy so callers cannot mutate shared amounts.
func (a Asset) Copy() Asset {
	clone := Asset{Info: a.Info}
	if a.Amount != nil {
		clone.Amount = new(big.Int).Set(a.Amount)
	}
	return clone
}

// Position is a single collateral-to-synthetic-asset debt record. Idx values
// are assigned once at creation and never reused.
type Position struct {
	Idx        uint64
	Owner      crypto.Address
	Collateral Asset
	Asset      Asset
}

// Copy returns a deep copy to avoid callers mutating shared pointers.
func (p *Position) Copy() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Collateral = p.Collateral.Copy()
	clone.Asset = p.Asset.Copy()
	return &clone
}

// AssetConfig captures the per-synthetic-asset risk parameters. EndPrice is
// set once the asset is deprecated; from that point on minting stops and
// burning becomes permissionless redemption at the recorded price.
type AssetConfig struct {
	Token              string
	AuctionDiscount    decimal.Decimal
	MinCollateralRatio decimal.Decimal
	EndPrice           *decimal.Decimal
	// MintEnd bounds the minting window for pre-launch assets, expressed as a
	// block height. Zero means unbounded.
	MintEnd uint64
}

// Deprecated reports whether the asset has been migrated to a fixed end price.
func (c *AssetConfig) Deprecated() bool { return c != nil && c.EndPrice != nil }

// CollateralInfo is the oracle-provided view of a collateral kind. It is
// fetched fresh on every operation and never cached across operations.
type CollateralInfo struct {
	Price      decimal.Decimal
	Multiplier decimal.Decimal
	IsRevoked  bool
}

// Config is the module-wide configuration record, loaded once per operation.
type Config struct {
	Owner           crypto.Address
	Collector       crypto.Address
	BaseDenom       string
	ProtocolFeeRate decimal.Decimal
	// Lock, Staking and SwapFactory identify the external modules targeted by
	// outbound commands.
	Lock        string
	Staking     string
	SwapFactory string
}

// ShortParams flags a position as short. Presence, not content, is what marks
// the position; the price bounds are forwarded to the swap command when set.
type ShortParams struct {
	BeliefPrice *decimal.Decimal
	MaxSpread   *decimal.Decimal
}

// PositionView is the query-facing projection of a position.
type PositionView struct {
	Idx        uint64
	Owner      string
	Collateral Asset
	Asset      Asset
	IsShort    bool
}

// Order controls pagination direction for position listings.
type Order int

const (
	OrderAsc Order = iota
	OrderDesc
)

// PositionFilter narrows and paginates position listings. StartAfter is an
// exclusive cursor; zero means start from the boundary of the range.
type PositionFilter struct {
	Owner      *crypto.Address
	AssetToken string
	StartAfter uint64
	Limit      uint32
	Order      Order
}
