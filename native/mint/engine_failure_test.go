package mint

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

type failingPairs struct{}

func (failingPairs) PairFor(_, _ AssetInfo) (string, error) {
	return "", errors.New("factory unreachable")
}

type failingTax struct{}

func (failingTax) TaxRate() (decimal.Decimal, error) {
	return decimal.Decimal{}, errors.New("tax schedule unavailable")
}

func (failingTax) TaxCap(string) (*big.Int, error) {
	return nil, errors.New("tax schedule unavailable")
}

func TestOpenShortLeavesNoPositionOnPairFailure(t *testing.T) {
	env := newTestEnv(t)
	env.engine.SetPairSource(failingPairs{})

	_, err := env.engine.OpenPosition(env.user, baseCollateral(1_500_000), TokenAsset(testToken), d(t, "1.5"), &ShortParams{})
	if err == nil {
		t.Fatal("expected pair lookup failure")
	}

	if _, err := env.ledger.Get(1); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("position must not survive a failed open, got %v", err)
	}
	isShort, err := env.ledger.IsShort(1)
	if err != nil {
		t.Fatalf("is short: %v", err)
	}
	if isShort {
		t.Fatal("short tag must not survive a failed open")
	}
	next, err := env.engine.NextPositionIdx()
	if err != nil {
		t.Fatalf("next idx: %v", err)
	}
	if next != 1 {
		t.Fatalf("idx counter moved to %d on a failed open", next)
	}
}

func TestMintShortKeepsDebtOnPairFailure(t *testing.T) {
	env := newTestEnv(t)

	receipt, err := env.engine.OpenPosition(env.user, baseCollateral(1_500_000), TokenAsset(testToken), d(t, "2"), &ShortParams{})
	if err != nil {
		t.Fatalf("open short: %v", err)
	}
	idx, err := parseIdxAttr(receipt)
	if err != nil {
		t.Fatalf("position idx: %v", err)
	}

	env.engine.SetPairSource(failingPairs{})
	if _, err := env.engine.Mint(env.user, idx, synthAsset(100_000), nil); err == nil {
		t.Fatal("expected pair lookup failure")
	}

	position, err := env.ledger.Get(idx)
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	if position.Asset.Amount.Cmp(big.NewInt(750_000)) != 0 {
		t.Fatalf("debt changed on a failed mint: %s", position.Asset.Amount)
	}
}

func TestWithdrawKeepsCollateralOnTaxFailure(t *testing.T) {
	env := newTestEnv(t)
	idx := env.open(t, 1_500_000, "2")

	env.engine.SetTaxSource(failingTax{})
	withdrawal := baseCollateral(100_000)
	if _, err := env.engine.Withdraw(env.user, idx, &withdrawal); err == nil {
		t.Fatal("expected tax lookup failure")
	}

	position, err := env.ledger.Get(idx)
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	if position.Collateral.Amount.Cmp(big.NewInt(1_500_000)) != 0 {
		t.Fatalf("collateral changed on a failed withdraw: %s", position.Collateral.Amount)
	}
}

func TestAuctionKeepsPositionOnTaxFailure(t *testing.T) {
	env, idx := auctionEnv(t)
	env.prices.prices[testToken] = d(t, "116")

	env.engine.SetTaxSource(failingTax{})
	if _, err := env.engine.Auction(env.collector, idx, synthAsset(4_000)); err == nil {
		t.Fatal("expected tax lookup failure")
	}

	position, err := env.ledger.Get(idx)
	if err != nil {
		t.Fatalf("position must survive a failed auction: %v", err)
	}
	if position.Collateral.Amount.Cmp(big.NewInt(920_000)) != 0 {
		t.Fatalf("collateral changed on a failed auction: %s", position.Collateral.Amount)
	}
	if position.Asset.Amount.Cmp(big.NewInt(4_000)) != 0 {
		t.Fatalf("debt changed on a failed auction: %s", position.Asset.Amount)
	}
}

func TestRedemptionKeepsPositionOnTaxFailure(t *testing.T) {
	env, idx := migratedEnv(t)
	stranger := makeAddress(0x20)

	env.engine.SetTaxSource(failingTax{})
	if _, err := env.engine.Burn(stranger, idx, synthAsset(40)); err == nil {
		t.Fatal("expected tax lookup failure")
	}

	position, err := env.ledger.Get(idx)
	if err != nil {
		t.Fatalf("position must survive a failed redemption: %v", err)
	}
	if position.Asset.Amount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("debt changed on a failed redemption: %s", position.Asset.Amount)
	}
	if position.Collateral.Amount.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("collateral changed on a failed redemption: %s", position.Collateral.Amount)
	}
}

func TestZeroAssetPriceRejected(t *testing.T) {
	env := newTestEnv(t)
	idx := env.open(t, 1_500_000, "1.5")

	env.prices.prices[testToken] = d(t, "0")
	if _, err := env.engine.OpenPosition(env.user, baseCollateral(1_000_000), TokenAsset(testToken), d(t, "1.5"), nil); !errors.Is(err, ErrInvalidQuote) {
		t.Fatalf("expected ErrInvalidQuote on open, got %v", err)
	}
	if _, err := env.engine.Mint(env.user, idx, synthAsset(1), nil); !errors.Is(err, ErrInvalidQuote) {
		t.Fatalf("expected ErrInvalidQuote on mint, got %v", err)
	}
	if _, err := env.engine.Burn(env.user, idx, synthAsset(1)); !errors.Is(err, ErrInvalidQuote) {
		t.Fatalf("expected ErrInvalidQuote on burn, got %v", err)
	}
	if _, err := env.engine.Auction(env.collector, idx, synthAsset(1)); !errors.Is(err, ErrInvalidQuote) {
		t.Fatalf("expected ErrInvalidQuote on auction, got %v", err)
	}
}

func TestZeroCollateralQuoteRejected(t *testing.T) {
	env := newTestEnv(t)

	env.collateral.infos[testBaseDenom] = CollateralInfo{Price: d(t, "0"), Multiplier: d(t, "1")}
	if _, err := env.engine.OpenPosition(env.user, baseCollateral(1_000_000), TokenAsset(testToken), d(t, "1.5"), nil); !errors.Is(err, ErrInvalidQuote) {
		t.Fatalf("expected ErrInvalidQuote for zero price, got %v", err)
	}

	// A zero multiplier would void the minimum ratio requirement entirely.
	env.collateral.infos[testBaseDenom] = CollateralInfo{Price: d(t, "1"), Multiplier: d(t, "0")}
	if _, err := env.engine.OpenPosition(env.user, baseCollateral(1_000_000), TokenAsset(testToken), d(t, "1.5"), nil); !errors.Is(err, ErrInvalidQuote) {
		t.Fatalf("expected ErrInvalidQuote for zero multiplier, got %v", err)
	}
}
