package mint

import (
	"github.com/shopspring/decimal"

	"synthmint/crypto"
)

// ConfigUpdate carries the mutable module parameters. Nil fields are left
// unchanged.
type ConfigUpdate struct {
	Owner           *crypto.Address
	Collector       *crypto.Address
	ProtocolFeeRate *decimal.Decimal
	Lock            *string
	Staking         *string
	SwapFactory     *string
}

func validateAssetParams(auctionDiscount, minCollateralRatio decimal.Decimal) error {
	if auctionDiscount.Sign() < 0 || auctionDiscount.GreaterThanOrEqual(decimalOne) {
		return ErrInvalidAuctionDiscount
	}
	if minCollateralRatio.LessThan(decimalOne) {
		return ErrInvalidMinRatio
	}
	return nil
}

func (e *Engine) requireOwner(sender crypto.Address) (*Config, error) {
	cfg, err := e.ledger.Config()
	if err != nil {
		return nil, err
	}
	if !sender.Equal(cfg.Owner) {
		return nil, ErrUnauthorized
	}
	return cfg, nil
}

// RegisterAsset whitelists a synthetic token with its risk parameters. A zero
// mintEnd leaves the minting window open indefinitely.
func (e *Engine) RegisterAsset(sender crypto.Address, token string, auctionDiscount, minCollateralRatio decimal.Decimal, mintEnd uint64) error {
	if _, err := e.requireOwner(sender); err != nil {
		return err
	}
	if err := validateAssetParams(auctionDiscount, minCollateralRatio); err != nil {
		return err
	}
	if _, err := e.ledger.AssetConfig(token); err == nil {
		return ErrAssetRegistered
	}
	return e.ledger.PutAssetConfig(&AssetConfig{
		Token:              token,
		AuctionDiscount:    auctionDiscount,
		MinCollateralRatio: minCollateralRatio,
		MintEnd:            mintEnd,
	})
}

// UpdateAsset adjusts the risk parameters of a registered asset. Nil fields
// are left unchanged.
func (e *Engine) UpdateAsset(sender crypto.Address, token string, auctionDiscount, minCollateralRatio *decimal.Decimal, mintEnd *uint64) error {
	if _, err := e.requireOwner(sender); err != nil {
		return err
	}
	cfg, err := e.ledger.AssetConfig(token)
	if err != nil {
		return err
	}
	if auctionDiscount != nil {
		cfg.AuctionDiscount = *auctionDiscount
	}
	if minCollateralRatio != nil {
		cfg.MinCollateralRatio = *minCollateralRatio
	}
	if mintEnd != nil {
		cfg.MintEnd = *mintEnd
	}
	if err := validateAssetParams(cfg.AuctionDiscount, cfg.MinCollateralRatio); err != nil {
		return err
	}
	return e.ledger.PutAssetConfig(cfg)
}

// RegisterMigration deprecates an asset at a fixed end price. Minting stops,
// burning becomes permissionless redemption, and the minimum collateral ratio
// drops to one so holders can withdraw the freed collateral.
func (e *Engine) RegisterMigration(sender crypto.Address, token string, endPrice decimal.Decimal) error {
	if _, err := e.requireOwner(sender); err != nil {
		return err
	}
	cfg, err := e.ledger.AssetConfig(token)
	if err != nil {
		return err
	}
	if cfg.Deprecated() {
		return ErrAssetDeprecated
	}
	price := endPrice
	cfg.EndPrice = &price
	cfg.MinCollateralRatio = decimalOne
	return e.ledger.PutAssetConfig(cfg)
}

// UpdateConfig applies an owner-gated partial update of the module
// configuration.
func (e *Engine) UpdateConfig(sender crypto.Address, update ConfigUpdate) error {
	cfg, err := e.requireOwner(sender)
	if err != nil {
		return err
	}
	if update.Owner != nil {
		cfg.Owner = *update.Owner
	}
	if update.Collector != nil {
		cfg.Collector = *update.Collector
	}
	if update.ProtocolFeeRate != nil {
		if update.ProtocolFeeRate.Sign() < 0 || update.ProtocolFeeRate.GreaterThanOrEqual(decimalOne) {
			return ErrInvalidFeeRate
		}
		cfg.ProtocolFeeRate = *update.ProtocolFeeRate
	}
	if update.Lock != nil {
		cfg.Lock = *update.Lock
	}
	if update.Staking != nil {
		cfg.Staking = *update.Staking
	}
	if update.SwapFactory != nil {
		cfg.SwapFactory = *update.SwapFactory
	}
	return e.ledger.PutConfig(cfg)
}
