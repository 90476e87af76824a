package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"synthmint/config"
	"synthmint/crypto"
	"synthmint/native/mint"
	"synthmint/observability/logging"
	"synthmint/oracle"
	"synthmint/rpc"
	"synthmint/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("SYNTHMINT_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("synthmint", env, cfg.LogFile)

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "mint"))
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	engine, err := buildEngine(cfg, db)
	if err != nil {
		logger.Error("Failed to build mint engine", slog.Any("error", err))
		os.Exit(1)
	}

	server := rpc.NewServer(engine, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", slog.Any("error", err))
	}
}

// buildEngine wires the ledger, oracle clients and tax schedule into a mint
// engine and syncs the stored module configuration from the file.
func buildEngine(cfg *config.Config, db storage.Database) (*mint.Engine, error) {
	moduleAddr, err := parseAddressOrZero(cfg.ModuleAddress)
	if err != nil {
		return nil, fmt.Errorf("module address: %w", err)
	}

	ledger := mint.NewLedger(db)
	engine := mint.NewEngine(ledger, moduleAddr)

	oracleTimeout := time.Duration(cfg.OracleTimeoutSecs) * time.Second
	prices, err := oracle.NewClient(oracle.Config{BaseURL: cfg.PriceOracleURL, Timeout: oracleTimeout})
	if err != nil {
		return nil, fmt.Errorf("price oracle: %w", err)
	}
	collateral, err := oracle.NewCollateralClient(oracle.Config{BaseURL: cfg.CollateralOracleURL, Timeout: oracleTimeout}, cfg.BaseDenom)
	if err != nil {
		return nil, fmt.Errorf("collateral oracle: %w", err)
	}
	pairs, err := oracle.NewPairClient(oracle.Config{BaseURL: cfg.PairOracleURL, Timeout: oracleTimeout})
	if err != nil {
		return nil, fmt.Errorf("pair oracle: %w", err)
	}
	engine.SetPriceSource(prices)
	engine.SetCollateralSource(collateral)
	engine.SetPairSource(pairs)
	engine.SetPauses(cfg.Pauses)

	taxSource, err := buildTaxSource(cfg)
	if err != nil {
		return nil, err
	}
	engine.SetTaxSource(taxSource)

	if err := syncModuleConfig(cfg, ledger); err != nil {
		return nil, err
	}
	return engine, nil
}

func buildTaxSource(cfg *config.Config) (mint.TaxSource, error) {
	tax := mint.FixedTax{Caps: map[string]*big.Int{}}
	if cfg.TaxRate != "" {
		rate, err := decimal.NewFromString(cfg.TaxRate)
		if err != nil {
			return nil, fmt.Errorf("tax rate: %w", err)
		}
		tax.Rate = rate
	}
	for denom, raw := range cfg.TaxCaps {
		cap, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("tax cap for %s: invalid amount %q", denom, raw)
		}
		tax.Caps[denom] = cap
	}
	return tax, nil
}

// syncModuleConfig pushes the file configuration into the ledger so engine
// operations see the current owner, collector and fee rate.
func syncModuleConfig(cfg *config.Config, ledger *mint.Ledger) error {
	owner, err := parseAddressOrZero(cfg.OwnerAddress)
	if err != nil {
		return fmt.Errorf("owner address: %w", err)
	}
	collector, err := parseAddressOrZero(cfg.CollectorAddress)
	if err != nil {
		return fmt.Errorf("collector address: %w", err)
	}
	feeRate, err := decimal.NewFromString(cfg.ProtocolFeeRate)
	if err != nil {
		return fmt.Errorf("protocol fee rate: %w", err)
	}
	return ledger.PutConfig(&mint.Config{
		Owner:           owner,
		Collector:       collector,
		BaseDenom:       cfg.BaseDenom,
		ProtocolFeeRate: feeRate,
		Lock:            cfg.LockModule,
		Staking:         cfg.StakingModule,
		SwapFactory:     cfg.SwapFactory,
	})
}

func parseAddressOrZero(raw string) (crypto.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return crypto.Address{}, nil
	}
	return crypto.DecodeAddress(raw)
}
