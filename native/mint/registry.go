package mint

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/shopspring/decimal"

	"synthmint/crypto"
	"synthmint/storage"
)

type storedAssetConfig struct {
	Token              string
	AuctionDiscount    string
	MinCollateralRatio string
	EndPrice           string
	MintEnd            uint64
}

type storedConfig struct {
	Owner           string
	Collector       string
	BaseDenom       string
	ProtocolFeeRate string
	Lock            string
	Staking         string
	SwapFactory     string
}

// PutAssetConfig stores or replaces the configuration of a synthetic asset.
func (l *Ledger) PutAssetConfig(cfg *AssetConfig) error {
	record := storedAssetConfig{
		Token:              cfg.Token,
		AuctionDiscount:    cfg.AuctionDiscount.String(),
		MinCollateralRatio: cfg.MinCollateralRatio.String(),
		MintEnd:            cfg.MintEnd,
	}
	if cfg.EndPrice != nil {
		record.EndPrice = cfg.EndPrice.String()
	}
	raw, err := rlp.EncodeToBytes(&record)
	if err != nil {
		return err
	}
	return l.db.Put(assetConfigKey(cfg.Token), raw)
}

// AssetConfig loads the configuration of a registered synthetic asset.
func (l *Ledger) AssetConfig(token string) (*AssetConfig, error) {
	raw, err := l.db.Get(assetConfigKey(token))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrAssetNotRegistered
	}
	if err != nil {
		return nil, err
	}
	var record storedAssetConfig
	if err := rlp.DecodeBytes(raw, &record); err != nil {
		return nil, err
	}
	discount, err := decimal.NewFromString(record.AuctionDiscount)
	if err != nil {
		return nil, fmt.Errorf("mint: corrupted auction discount: %w", err)
	}
	minRatio, err := decimal.NewFromString(record.MinCollateralRatio)
	if err != nil {
		return nil, fmt.Errorf("mint: corrupted min collateral ratio: %w", err)
	}
	cfg := &AssetConfig{
		Token:              record.Token,
		AuctionDiscount:    discount,
		MinCollateralRatio: minRatio,
		MintEnd:            record.MintEnd,
	}
	if record.EndPrice != "" {
		endPrice, err := decimal.NewFromString(record.EndPrice)
		if err != nil {
			return nil, fmt.Errorf("mint: corrupted end price: %w", err)
		}
		cfg.EndPrice = &endPrice
	}
	return cfg, nil
}

// encodeOptionalAddress keeps unset addresses as empty strings so the record
// round-trips through storage.
func encodeOptionalAddress(addr crypto.Address) string {
	if addr.IsZero() {
		return ""
	}
	return addr.String()
}

func decodeOptionalAddress(raw string) (crypto.Address, error) {
	if raw == "" {
		return crypto.Address{}, nil
	}
	return crypto.DecodeAddress(raw)
}

// PutConfig stores the module-wide configuration record.
func (l *Ledger) PutConfig(cfg *Config) error {
	record := storedConfig{
		Owner:           encodeOptionalAddress(cfg.Owner),
		Collector:       encodeOptionalAddress(cfg.Collector),
		BaseDenom:       cfg.BaseDenom,
		ProtocolFeeRate: cfg.ProtocolFeeRate.String(),
		Lock:            cfg.Lock,
		Staking:         cfg.Staking,
		SwapFactory:     cfg.SwapFactory,
	}
	raw, err := rlp.EncodeToBytes(&record)
	if err != nil {
		return err
	}
	return l.db.Put(configKey, raw)
}

// Config loads the module-wide configuration record.
func (l *Ledger) Config() (*Config, error) {
	raw, err := l.db.Get(configKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	var record storedConfig
	if err := rlp.DecodeBytes(raw, &record); err != nil {
		return nil, err
	}
	owner, err := decodeOptionalAddress(record.Owner)
	if err != nil {
		return nil, fmt.Errorf("mint: corrupted config owner: %w", err)
	}
	collector, err := decodeOptionalAddress(record.Collector)
	if err != nil {
		return nil, fmt.Errorf("mint: corrupted config collector: %w", err)
	}
	feeRate, err := decimal.NewFromString(record.ProtocolFeeRate)
	if err != nil {
		return nil, fmt.Errorf("mint: corrupted protocol fee rate: %w", err)
	}
	return &Config{
		Owner:           owner,
		Collector:       collector,
		BaseDenom:       record.BaseDenom,
		ProtocolFeeRate: feeRate,
		Lock:            record.Lock,
		Staking:         record.Staking,
		SwapFactory:     record.SwapFactory,
	}, nil
}
