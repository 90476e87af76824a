package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration, loaded from a TOML file. Amounts and
// rates are strings so the file round-trips without float precision loss.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Env           string `toml:"Env"`
	LogFile       string `toml:"LogFile"`

	BaseDenom       string `toml:"BaseDenom"`
	ProtocolFeeRate string `toml:"ProtocolFeeRate"`

	OwnerAddress     string `toml:"OwnerAddress"`
	CollectorAddress string `toml:"CollectorAddress"`
	ModuleAddress    string `toml:"ModuleAddress"`

	LockModule    string `toml:"LockModule"`
	StakingModule string `toml:"StakingModule"`
	SwapFactory   string `toml:"SwapFactory"`

	PriceOracleURL      string `toml:"PriceOracleURL"`
	CollateralOracleURL string `toml:"CollateralOracleURL"`
	PairOracleURL       string `toml:"PairOracleURL"`
	OracleTimeoutSecs   uint64 `toml:"OracleTimeoutSecs"`

	TaxRate string            `toml:"TaxRate"`
	TaxCaps map[string]string `toml:"TaxCaps"`

	Pauses Pauses `toml:"Pauses"`
}

// Pauses flags modules whose state-changing operations are suspended.
type Pauses struct {
	Mint bool `toml:"Mint"`
}

// IsPaused reports whether the named module is paused. It satisfies the pause
// view consumed by the native engines.
func (p Pauses) IsPaused(module string) bool {
	switch strings.ToLower(strings.TrimSpace(module)) {
	case "mint":
		return p.Mint
	default:
		return false
	}
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./synthmint-data"
	}
	if strings.TrimSpace(cfg.BaseDenom) == "" {
		cfg.BaseDenom = "uusd"
	}
	if strings.TrimSpace(cfg.ProtocolFeeRate) == "" {
		cfg.ProtocolFeeRate = "0.015"
	}
	if cfg.OracleTimeoutSecs == 0 {
		cfg.OracleTimeoutSecs = 10
	}
	if cfg.TaxCaps == nil {
		cfg.TaxCaps = map[string]string{}
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
