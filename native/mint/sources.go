package mint

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PriceSource serves synthetic-asset prices. quoteTime is the unix second the
// caller considers "now"; implementations reject prices staler than their
// tolerance. Zero means the latest price without a staleness check.
type PriceSource interface {
	AssetPrice(info AssetInfo, quoteTime uint64) (decimal.Decimal, error)
}

// CollateralSource serves the price, effective multiplier and revocation flag
// of a collateral kind. Queried fresh on every operation that needs it.
type CollateralSource interface {
	CollateralInfo(info AssetInfo, quoteTime uint64) (CollateralInfo, error)
}

// PairSource resolves the swap pair used to sell a synthetic asset into the
// base denomination.
type PairSource interface {
	PairFor(base AssetInfo, asset AssetInfo) (string, error)
}

// TaxSource serves the network transfer tax parameters applied to native
// sends.
type TaxSource interface {
	TaxRate() (decimal.Decimal, error)
	TaxCap(denom string) (*big.Int, error)
}

// FixedTax is a TaxSource with static parameters, suitable for deployments
// where the tax schedule is part of the node configuration.
type FixedTax struct {
	Rate decimal.Decimal
	Caps map[string]*big.Int
}

func (t FixedTax) TaxRate() (decimal.Decimal, error) { return t.Rate, nil }

func (t FixedTax) TaxCap(denom string) (*big.Int, error) {
	if cap, ok := t.Caps[denom]; ok {
		return new(big.Int).Set(cap), nil
	}
	return nil, nil
}
