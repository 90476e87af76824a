package mint

import (
	"errors"
	"math/big"
	"testing"
)

// auctionEnv seeds a position with 4_000 sAPPL debt against 920_000 uusd,
// safe at an asset price of 115 and under water one tick above it.
func auctionEnv(t *testing.T) (*testEnv, uint64) {
	t.Helper()
	env := newTestEnv(t)
	cfg, err := env.ledger.AssetConfig(testToken)
	if err != nil {
		t.Fatalf("asset config: %v", err)
	}
	cfg.MinCollateralRatio = d(t, "2")
	if err := env.ledger.PutAssetConfig(cfg); err != nil {
		t.Fatalf("put asset config: %v", err)
	}

	// Mint 4_000 at a round price, then top up the collateral and move the
	// price to the 115 boundary.
	env.prices.prices[testToken] = d(t, "100")
	receipt, err := env.engine.OpenPosition(env.user, baseCollateral(800_000), TokenAsset(testToken), d(t, "2"), nil)
	if err != nil {
		t.Fatalf("open position: %v", err)
	}
	idx, err := parseIdxAttr(receipt)
	if err != nil {
		t.Fatalf("position idx: %v", err)
	}
	position, err := env.ledger.Get(idx)
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	if position.Asset.Amount.Cmp(big.NewInt(4_000)) != 0 {
		t.Fatalf("fixture minted %s, want 4000", position.Asset.Amount)
	}
	if _, err := env.engine.Deposit(env.user, idx, baseCollateral(120_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	env.prices.prices[testToken] = d(t, "115")
	return env, idx
}

func TestAuctionRejectsSafePosition(t *testing.T) {
	env, idx := auctionEnv(t)
	liquidator := makeAddress(0x42)

	// Exactly at the minimum ratio: 4_000 * 115 * 2 == 920_000.
	if _, err := env.engine.Auction(liquidator, idx, synthAsset(1_000)); !errors.Is(err, ErrSafelyCollateralized) {
		t.Fatalf("expected ErrSafelyCollateralized, got %v", err)
	}
}

func TestAuctionLiquidatesFullDebt(t *testing.T) {
	env, idx := auctionEnv(t)
	liquidator := makeAddress(0x42)
	env.prices.prices[testToken] = d(t, "116")

	receipt, err := env.engine.Auction(liquidator, idx, synthAsset(4_000))
	if err != nil {
		t.Fatalf("auction: %v", err)
	}

	// Discounted price 116 / (1 - 0.2) = 145, so the offer claims
	// 4_000 * 145 = 580_000 collateral; the remaining 340_000 go back to
	// the position owner and the position closes.
	if len(receipt.Commands) != 4 {
		t.Fatalf("expected 4 commands, got %d", len(receipt.Commands))
	}
	residual, ok := receipt.Commands[0].(NativeSend)
	if !ok {
		t.Fatalf("expected residual NativeSend, got %T", receipt.Commands[0])
	}
	if residual.Recipient != env.user.String() {
		t.Fatalf("residual collateral should return to owner, got %s", residual.Recipient)
	}
	if residual.Amount.Cmp(big.NewInt(340_000)) != 0 {
		t.Fatalf("unexpected residual amount: %s", residual.Amount)
	}

	burn, ok := receipt.Commands[1].(BurnTokens)
	if !ok {
		t.Fatalf("expected BurnTokens, got %T", receipt.Commands[1])
	}
	if burn.Amount.Cmp(big.NewInt(4_000)) != 0 {
		t.Fatalf("unexpected burn amount: %s", burn.Amount)
	}

	payout, ok := receipt.Commands[2].(NativeSend)
	if !ok {
		t.Fatalf("expected payout NativeSend, got %T", receipt.Commands[2])
	}
	// Fee is 1.5% of the liquidated value 4_000 * 116 = 464_000, so 6_960
	// comes off the 580_000 payout.
	if payout.Amount.Cmp(big.NewInt(573_040)) != 0 {
		t.Fatalf("unexpected payout: %s", payout.Amount)
	}
	if payout.Recipient != liquidator.String() {
		t.Fatalf("payout should go to liquidator, got %s", payout.Recipient)
	}

	fee, ok := receipt.Commands[3].(NativeSend)
	if !ok {
		t.Fatalf("expected fee NativeSend, got %T", receipt.Commands[3])
	}
	if fee.Amount.Cmp(big.NewInt(6_960)) != 0 {
		t.Fatalf("unexpected fee: %s", fee.Amount)
	}
	if fee.Recipient != env.collector.String() {
		t.Fatalf("fee should go to collector, got %s", fee.Recipient)
	}

	if _, err := env.ledger.Get(idx); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("expected position removed, got %v", err)
	}
}

func TestAuctionPartialLeavesPositionOpen(t *testing.T) {
	env, idx := auctionEnv(t)
	liquidator := makeAddress(0x42)
	env.prices.prices[testToken] = d(t, "116")

	receipt, err := env.engine.Auction(liquidator, idx, synthAsset(1_000))
	if err != nil {
		t.Fatalf("auction: %v", err)
	}

	// Offer claims 1_000 * 145 = 145_000 of the 920_000 collateral.
	if len(receipt.Commands) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(receipt.Commands))
	}

	position, err := env.ledger.Get(idx)
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	if position.Asset.Amount.Cmp(big.NewInt(3_000)) != 0 {
		t.Fatalf("unexpected remaining asset: %s", position.Asset.Amount)
	}
	if position.Collateral.Amount.Cmp(big.NewInt(775_000)) != 0 {
		t.Fatalf("unexpected remaining collateral: %s", position.Collateral.Amount)
	}
}

func TestAuctionCapsPayoutAndRefundsExcess(t *testing.T) {
	env, idx := auctionEnv(t)
	liquidator := makeAddress(0x42)
	env.prices.prices[testToken] = d(t, "116")

	// Drain most of the collateral so the full offer overshoots it.
	position, err := env.ledger.Get(idx)
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	position.Collateral.Amount = big.NewInt(100_000)
	if err := env.ledger.Update(position); err != nil {
		t.Fatalf("update position: %v", err)
	}

	receipt, err := env.engine.Auction(liquidator, idx, synthAsset(4_000))
	if err != nil {
		t.Fatalf("auction: %v", err)
	}

	// Offer value 580_000 exceeds the 100_000 collateral. The excess
	// 480_000 converts back to floor(480_000 / 145) = 3_310 refunded
	// assets, leaving 690 actually liquidated.
	refund, ok := receipt.Commands[0].(TransferTokens)
	if !ok {
		t.Fatalf("expected TransferTokens refund, got %T", receipt.Commands[0])
	}
	if refund.Amount.Cmp(big.NewInt(3_310)) != 0 {
		t.Fatalf("unexpected refund: %s", refund.Amount)
	}
	if refund.Recipient != liquidator.String() {
		t.Fatalf("refund should go to liquidator, got %s", refund.Recipient)
	}

	burn := receipt.Commands[1].(BurnTokens)
	if burn.Amount.Cmp(big.NewInt(690)) != 0 {
		t.Fatalf("unexpected burn amount: %s", burn.Amount)
	}

	payout := receipt.Commands[2].(NativeSend)
	// Fee: 1.5% of floor(690 * 116) = 80_040 is 1_200.
	if payout.Amount.Cmp(big.NewInt(98_800)) != 0 {
		t.Fatalf("unexpected payout: %s", payout.Amount)
	}
	fee := receipt.Commands[3].(NativeSend)
	if fee.Amount.Cmp(big.NewInt(1_200)) != 0 {
		t.Fatalf("unexpected fee: %s", fee.Amount)
	}

	// All collateral sold; the position closes even with debt left.
	if _, err := env.ledger.Get(idx); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("expected position removed, got %v", err)
	}
}

func TestAuctionRejectsOverLiquidation(t *testing.T) {
	env, idx := auctionEnv(t)
	env.prices.prices[testToken] = d(t, "116")

	if _, err := env.engine.Auction(makeAddress(0x42), idx, synthAsset(4_001)); !errors.Is(err, ErrLiquidateExceedsMinted) {
		t.Fatalf("expected ErrLiquidateExceedsMinted, got %v", err)
	}
}

func TestAuctionRejectsDeprecatedAsset(t *testing.T) {
	env, idx := auctionEnv(t)
	if err := env.engine.RegisterMigration(env.owner, testToken, d(t, "116")); err != nil {
		t.Fatalf("register migration: %v", err)
	}

	if _, err := env.engine.Auction(makeAddress(0x42), idx, synthAsset(1_000)); !errors.Is(err, ErrAssetDeprecated) {
		t.Fatalf("expected ErrAssetDeprecated, got %v", err)
	}
}
