package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"synthmint/crypto"
)

// Validate rejects configurations that cannot be turned into a running
// daemon. Addresses are only checked when set; an empty owner disables the
// admin surface rather than failing startup.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.BaseDenom) == "" {
		return fmt.Errorf("config: BaseDenom required")
	}

	rate, err := decimal.NewFromString(cfg.ProtocolFeeRate)
	if err != nil {
		return fmt.Errorf("config: invalid ProtocolFeeRate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.New(1, 0)) {
		return fmt.Errorf("config: ProtocolFeeRate must be in [0, 1)")
	}

	for field, value := range map[string]string{
		"OwnerAddress":     cfg.OwnerAddress,
		"CollectorAddress": cfg.CollectorAddress,
		"ModuleAddress":    cfg.ModuleAddress,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := crypto.DecodeAddress(value); err != nil {
			return fmt.Errorf("config: invalid %s: %w", field, err)
		}
	}

	if cfg.TaxRate != "" {
		taxRate, err := decimal.NewFromString(cfg.TaxRate)
		if err != nil {
			return fmt.Errorf("config: invalid TaxRate: %w", err)
		}
		if taxRate.IsNegative() || taxRate.GreaterThanOrEqual(decimal.New(1, 0)) {
			return fmt.Errorf("config: TaxRate must be in [0, 1)")
		}
	}
	for denom, cap := range cfg.TaxCaps {
		if _, ok := new(big.Int).SetString(cap, 10); !ok {
			return fmt.Errorf("config: invalid TaxCaps[%s]: %q", denom, cap)
		}
	}

	return nil
}
