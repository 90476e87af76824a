package mint

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"synthmint/crypto"
	nativecommon "synthmint/native/common"
)

const moduleName = "mint"

// closeDustTolerance absorbs integer rounding when a redemption burn drains a
// position: residual collateral of at most one unit closes the position.
var closeDustTolerance = big.NewInt(1)

// Engine orchestrates the position lifecycle: open, deposit, withdraw, mint,
// burn and auction. Every operation loads configuration and prices fresh,
// validates before any ledger write, and returns the ordered outbound command
// list for the host to dispatch.
type Engine struct {
	ledger        *Ledger
	moduleAddress crypto.Address
	prices        PriceSource
	collateral    CollateralSource
	pairs         PairSource
	tax           TaxSource
	pauses        nativecommon.PauseView
	blockHeight   uint64
	now           func() time.Time
}

// NewEngine constructs a mint engine bound to the ledger and the module's own
// account address, which receives self-mints for short positions.
func NewEngine(ledger *Ledger, moduleAddr crypto.Address) *Engine {
	return &Engine{
		ledger:        ledger,
		moduleAddress: moduleAddr,
		now:           time.Now,
	}
}

// SetPriceSource wires the synthetic-asset price oracle.
func (e *Engine) SetPriceSource(src PriceSource) { e.prices = src }

// SetCollateralSource wires the collateral oracle.
func (e *Engine) SetCollateralSource(src CollateralSource) { e.collateral = src }

// SetPairSource wires the swap factory lookup used by short positions.
func (e *Engine) SetPairSource(src PairSource) { e.pairs = src }

// SetTaxSource wires the network transfer tax schedule.
func (e *Engine) SetTaxSource(src TaxSource) { e.tax = src }

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetBlockHeight records the height used when checking mint windows.
func (e *Engine) SetBlockHeight(height uint64) { e.blockHeight = height }

// SetClock overrides the wall clock used for price staleness quoting.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

func (e *Engine) quoteTime() uint64 {
	return uint64(e.now().Unix())
}

// --- guard helpers ---

func assertCollateral(position *Position, collateral Asset) error {
	if !collateral.Info.Equal(position.Collateral.Info) || collateral.Amount == nil || collateral.Amount.Sign() <= 0 {
		return ErrWrongCollateral
	}
	return nil
}

func assertAsset(position *Position, asset Asset) error {
	if !asset.Info.Equal(position.Asset.Info) || asset.Amount == nil || asset.Amount.Sign() <= 0 {
		return ErrWrongAsset
	}
	return nil
}

func (e *Engine) assertMintWindow(cfg *AssetConfig) error {
	if cfg.MintEnd != 0 && cfg.MintEnd < e.blockHeight {
		return ErrMintWindowClosed
	}
	return nil
}

func (e *Engine) assertBurnWindow(cfg *AssetConfig) error {
	if cfg.MintEnd != 0 && cfg.MintEnd < e.blockHeight {
		return ErrBurnWindowClosed
	}
	return nil
}

// assetPrice loads a fresh synthetic price and rejects non-positive quotes
// before they can reach a division.
func (e *Engine) assetPrice(info AssetInfo) (decimal.Decimal, error) {
	price, err := e.prices.AssetPrice(info, e.quoteTime())
	if err != nil {
		return decimal.Decimal{}, err
	}
	if price.Sign() <= 0 {
		return decimal.Decimal{}, ErrInvalidQuote
	}
	return price, nil
}

// collateralQuote loads fresh collateral info. Price and multiplier must be
// positive: a zero multiplier would void the collateral ratio requirement.
func (e *Engine) collateralQuote(info AssetInfo) (CollateralInfo, error) {
	collateralInfo, err := e.collateral.CollateralInfo(info, e.quoteTime())
	if err != nil {
		return CollateralInfo{}, err
	}
	if collateralInfo.Price.Sign() <= 0 || collateralInfo.Multiplier.Sign() <= 0 {
		return CollateralInfo{}, ErrInvalidQuote
	}
	return collateralInfo, nil
}

// liveCollateral loads fresh collateral info and rejects revoked collateral.
func (e *Engine) liveCollateral(info AssetInfo) (CollateralInfo, error) {
	collateralInfo, err := e.collateralQuote(info)
	if err != nil {
		return CollateralInfo{}, err
	}
	if collateralInfo.IsRevoked {
		return CollateralInfo{}, ErrCollateralRevoked
	}
	return collateralInfo, nil
}

// requiredCollateral computes the collateral an asset amount must be backed
// by: value in collateral units, times the minimum collateral ratio, times
// the collateral multiplier, truncating at each step the way amount/price
// multiplication truncates everywhere else.
func requiredCollateral(assetAmount *big.Int, priceRatio, minRatio, multiplier decimal.Decimal) *big.Int {
	value := mulTruncate(assetAmount, priceRatio)
	required := mulTruncate(value, minRatio)
	return mulTruncate(required, multiplier)
}

// --- operations ---

// OpenPosition locks collateral and mints a synthetic asset against it at the
// requested collateral ratio. A non-nil shortParams flags the position as
// short for its whole lifetime.
func (e *Engine) OpenPosition(sender crypto.Address, collateral Asset, assetInfo AssetInfo, collateralRatio decimal.Decimal, shortParams *ShortParams) (*Receipt, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	cfg, err := e.ledger.Config()
	if err != nil {
		return nil, err
	}
	if collateral.Amount == nil || collateral.Amount.Sign() <= 0 {
		return nil, ErrWrongCollateral
	}
	if assetInfo.IsNative() {
		return nil, ErrWrongAsset
	}

	collateralInfo, err := e.liveCollateral(collateral.Info)
	if err != nil {
		return nil, err
	}

	assetConfig, err := e.ledger.AssetConfig(assetInfo.Token)
	if err != nil {
		return nil, err
	}
	if assetConfig.Deprecated() {
		return nil, ErrAssetDeprecated
	}
	if err := e.assertMintWindow(assetConfig); err != nil {
		return nil, err
	}

	if collateralRatio.LessThan(assetConfig.MinCollateralRatio.Mul(collateralInfo.Multiplier)) {
		return nil, ErrLowCollateralRatio
	}

	assetPrice, err := e.assetPrice(assetInfo)
	if err != nil {
		return nil, err
	}

	// Convert collateral to mint amount at the requested ratio.
	assetPriceInCollateral, err := decimalRatio(collateralInfo.Price, assetPrice)
	if err != nil {
		return nil, err
	}
	ratioFactor, err := reciprocal(collateralRatio)
	if err != nil {
		return nil, err
	}
	mintAmount := mulTruncate(mulTruncate(collateral.Amount, assetPriceInCollateral), ratioFactor)
	if mintAmount.Sign() == 0 {
		return nil, ErrInsufficientCollateral
	}

	// Resolve every external input before touching the ledger: a failure
	// past this point must not leave a position behind.
	isShort := shortParams != nil
	var pair string
	if isShort {
		pair, err = e.resolvePair(cfg, assetInfo.Token)
		if err != nil {
			return nil, err
		}
	}

	idx, err := e.ledger.ReserveIdx()
	if err != nil {
		return nil, err
	}
	position := &Position{
		Idx:        idx,
		Owner:      sender,
		Collateral: collateral.Copy(),
		Asset:      Asset{Info: assetInfo, Amount: mintAmount},
	}
	if err := e.ledger.Create(position); err != nil {
		return nil, err
	}

	var commands []Command
	if isShort {
		if err := e.ledger.MarkShort(idx); err != nil {
			return nil, err
		}
		commands = e.shortCommands(cfg, pair, idx, assetInfo.Token, mintAmount, sender, shortParams)
	} else {
		commands = []Command{MintTokens{
			Token:     assetInfo.Token,
			Recipient: sender.String(),
			Amount:    new(big.Int).Set(mintAmount),
		}}
	}

	return &Receipt{
		Commands: commands,
		Event:    positionOpened(idx, mintAmount, assetInfo, collateral, isShort),
	}, nil
}

// Deposit adds collateral to an existing position. Depositing only improves
// the collateral ratio, so no ratio check is performed.
func (e *Engine) Deposit(sender crypto.Address, idx uint64, collateral Asset) (*Receipt, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	position, err := e.ledger.Get(idx)
	if err != nil {
		return nil, err
	}
	if !sender.Equal(position.Owner) {
		return nil, ErrUnauthorized
	}
	if err := assertCollateral(position, collateral); err != nil {
		return nil, err
	}
	if _, err := e.liveCollateral(position.Collateral.Info); err != nil {
		return nil, err
	}
	assetConfig, err := e.ledger.AssetConfig(position.Asset.Info.Token)
	if err != nil {
		return nil, err
	}
	if assetConfig.Deprecated() {
		return nil, ErrAssetDeprecated
	}

	position.Collateral.Amount = new(big.Int).Add(position.Collateral.Amount, collateral.Amount)
	if err := e.ledger.Update(position); err != nil {
		return nil, err
	}

	return &Receipt{Event: deposited(idx, collateral)}, nil
}

// Withdraw releases collateral back to the owner, keeping the position above
// its minimum collateral ratio. A nil collateral withdraws everything. The
// protocol fee is taken from the withdrawn amount and routed to the
// collector; the transfer tax is computed on the remainder.
func (e *Engine) Withdraw(sender crypto.Address, idx uint64, collateral *Asset) (*Receipt, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	cfg, err := e.ledger.Config()
	if err != nil {
		return nil, err
	}
	position, err := e.ledger.Get(idx)
	if err != nil {
		return nil, err
	}
	if !sender.Equal(position.Owner) {
		return nil, ErrUnauthorized
	}

	var withdrawal Asset
	if collateral != nil {
		if err := assertCollateral(position, *collateral); err != nil {
			return nil, err
		}
		if position.Collateral.Amount.Cmp(collateral.Amount) < 0 {
			return nil, ErrWithdrawExceedsDeposit
		}
		withdrawal = collateral.Copy()
	} else {
		withdrawal = position.Collateral.Copy()
	}

	assetConfig, err := e.ledger.AssetConfig(position.Asset.Info.Token)
	if err != nil {
		return nil, err
	}

	remaining, err := checkedSub(position.Collateral.Amount, withdrawal.Amount)
	if err != nil {
		return nil, ErrWithdrawExceedsDeposit
	}

	// The ratio invariant is suspended once the asset is deprecated: holders
	// unwind at the recorded end price instead.
	if !assetConfig.Deprecated() {
		assetPrice, err := e.assetPrice(position.Asset.Info)
		if err != nil {
			return nil, err
		}
		collateralInfo, err := e.collateralQuote(position.Collateral.Info)
		if err != nil {
			return nil, err
		}
		priceInCollateral, err := decimalRatio(assetPrice, collateralInfo.Price)
		if err != nil {
			return nil, err
		}
		required := requiredCollateral(
			position.Asset.Amount,
			priceInCollateral,
			assetConfig.MinCollateralRatio,
			collateralInfo.Multiplier,
		)
		if required.Cmp(remaining) > 0 {
			return nil, ErrBelowMinCollateralRatio
		}
	}

	// Stage the fee split and both transfers before the ledger write so a
	// tax lookup failure cannot strand a mutated position.
	protocolFee := mulTruncate(withdrawal.Amount, cfg.ProtocolFeeRate)
	net, err := checkedSub(withdrawal.Amount, protocolFee)
	if err != nil {
		return nil, err
	}

	ownerTransfer, taxAmount, err := transferCommand(Asset{Info: withdrawal.Info, Amount: net}, sender.String(), e.tax)
	if err != nil {
		return nil, err
	}
	commands := []Command{ownerTransfer}
	if protocolFee.Sign() > 0 {
		feeTransfer, _, err := transferCommand(Asset{Info: withdrawal.Info, Amount: protocolFee}, cfg.Collector.String(), e.tax)
		if err != nil {
			return nil, err
		}
		commands = append(commands, feeTransfer)
	}

	isShort, err := e.ledger.IsShort(idx)
	if err != nil {
		return nil, err
	}

	position.Collateral.Amount = remaining
	closed := remaining.Sign() == 0 && position.Asset.Amount.Sign() == 0
	if closed {
		if err := e.ledger.Remove(idx); err != nil {
			return nil, err
		}
	} else {
		if err := e.ledger.Update(position); err != nil {
			return nil, err
		}
	}

	if closed && isShort {
		commands = append(commands, ReleasePositionFunds{Lock: cfg.Lock, PositionIdx: idx})
	}

	return &Receipt{
		Commands: commands,
		Event:    withdrawn(idx, withdrawal, protocolFee, taxAmount),
	}, nil
}

// Mint issues additional synthetic assets against the position's collateral,
// re-checking the collateral ratio with fresh prices. Short positions repeat
// the mint, swap, lock and staking sequence for the newly minted amount.
func (e *Engine) Mint(sender crypto.Address, idx uint64, asset Asset, shortParams *ShortParams) (*Receipt, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	cfg, err := e.ledger.Config()
	if err != nil {
		return nil, err
	}
	position, err := e.ledger.Get(idx)
	if err != nil {
		return nil, err
	}
	if !sender.Equal(position.Owner) {
		return nil, ErrUnauthorized
	}
	if err := assertAsset(position, asset); err != nil {
		return nil, err
	}

	assetConfig, err := e.ledger.AssetConfig(position.Asset.Info.Token)
	if err != nil {
		return nil, err
	}
	if assetConfig.Deprecated() {
		return nil, ErrAssetDeprecated
	}
	if err := e.assertMintWindow(assetConfig); err != nil {
		return nil, err
	}

	collateralInfo, err := e.liveCollateral(position.Collateral.Info)
	if err != nil {
		return nil, err
	}
	assetPrice, err := e.assetPrice(position.Asset.Info)
	if err != nil {
		return nil, err
	}

	newAssetAmount := new(big.Int).Add(position.Asset.Amount, asset.Amount)
	priceInCollateral, err := decimalRatio(assetPrice, collateralInfo.Price)
	if err != nil {
		return nil, err
	}
	required := requiredCollateral(
		newAssetAmount,
		priceInCollateral,
		assetConfig.MinCollateralRatio,
		collateralInfo.Multiplier,
	)
	if required.Cmp(position.Collateral.Amount) > 0 {
		return nil, ErrBelowMinCollateralRatio
	}

	// Resolve the pair before growing the debt: the position must not end
	// up owing assets whose mint command was never emitted.
	isShort, err := e.ledger.IsShort(idx)
	if err != nil {
		return nil, err
	}
	var pair string
	if isShort {
		pair, err = e.resolvePair(cfg, position.Asset.Info.Token)
		if err != nil {
			return nil, err
		}
	}

	position.Asset.Amount = newAssetAmount
	if err := e.ledger.Update(position); err != nil {
		return nil, err
	}

	var commands []Command
	if isShort {
		commands = e.shortCommands(cfg, pair, idx, position.Asset.Info.Token, asset.Amount, position.Owner, shortParams)
	} else {
		commands = []Command{MintTokens{
			Token:     position.Asset.Info.Token,
			Recipient: position.Owner.String(),
			Amount:    new(big.Int).Set(asset.Amount),
		}}
	}

	return &Receipt{
		Commands: commands,
		Event:    minted(idx, asset, isShort),
	}, nil
}

// Burn retires synthetic assets against the position. While the asset is
// live only the owner may burn; once it carries an end price, anyone may burn
// on the owner's behalf and collect the redeemed collateral.
func (e *Engine) Burn(sender crypto.Address, idx uint64, asset Asset) (*Receipt, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	cfg, err := e.ledger.Config()
	if err != nil {
		return nil, err
	}
	position, err := e.ledger.Get(idx)
	if err != nil {
		return nil, err
	}
	if err := assertAsset(position, asset); err != nil {
		return nil, err
	}
	burnAmount := asset.Amount
	if position.Asset.Amount.Cmp(burnAmount) < 0 {
		return nil, ErrBurnExceedsMinted
	}

	assetConfig, err := e.ledger.AssetConfig(position.Asset.Info.Token)
	if err != nil {
		return nil, err
	}
	isShort, err := e.ledger.IsShort(idx)
	if err != nil {
		return nil, err
	}
	collateralInfo, err := e.collateralQuote(position.Collateral.Info)
	if err != nil {
		return nil, err
	}

	commands := []Command{BurnTokens{
		Token:  position.Asset.Info.Token,
		Amount: new(big.Int).Set(burnAmount),
	}}
	attributes := map[string]string{}
	closed := false

	if assetConfig.Deprecated() {
		// Permissionless redemption: the burner receives collateral at the
		// better of the end price and the position's own conversion rate, so
		// a mispriced end price can never drain the owner below their
		// pro-rata share.
		priceInCollateral, err := decimalRatio(*assetConfig.EndPrice, collateralInfo.Price)
		if err != nil {
			return nil, err
		}
		conversionRate, err := decimalRatio(
			decimal.NewFromBigInt(position.Collateral.Amount, 0),
			decimal.NewFromBigInt(position.Asset.Amount, 0),
		)
		if err != nil {
			return nil, err
		}
		refund := minBig(
			mulTruncate(burnAmount, priceInCollateral),
			mulTruncate(burnAmount, conversionRate),
		)

		remainingAsset, err := checkedSub(position.Asset.Amount, burnAmount)
		if err != nil {
			return nil, ErrBurnExceedsMinted
		}
		remainingCollateral, err := checkedSub(position.Collateral.Amount, refund)
		if err != nil {
			return nil, err
		}

		// Stage both transfers before the ledger write so a tax lookup
		// failure cannot strand a half-redeemed position.
		protocolFee := mulTruncate(mulTruncate(burnAmount, priceInCollateral), cfg.ProtocolFeeRate)
		if protocolFee.Cmp(refund) > 0 {
			protocolFee = new(big.Int).Set(refund)
		}
		netRefund := new(big.Int).Sub(refund, protocolFee)

		if protocolFee.Sign() > 0 {
			feeTransfer, _, err := transferCommand(Asset{Info: position.Collateral.Info, Amount: protocolFee}, cfg.Collector.String(), e.tax)
			if err != nil {
				return nil, err
			}
			commands = append(commands, feeTransfer)
		}
		refundTransfer, _, err := transferCommand(Asset{Info: position.Collateral.Info, Amount: netRefund}, sender.String(), e.tax)
		if err != nil {
			return nil, err
		}
		commands = append(commands, refundTransfer)

		position.Asset.Amount = remainingAsset
		position.Collateral.Amount = remainingCollateral
		if remainingAsset.Sign() == 0 && remainingCollateral.Cmp(closeDustTolerance) <= 0 {
			closed = true
			if err := e.ledger.Remove(idx); err != nil {
				return nil, err
			}
		} else {
			if err := e.ledger.Update(position); err != nil {
				return nil, err
			}
		}

		attributes["protocol_fee"] = amountAttr(protocolFee, position.Collateral.Info)
		attributes["refund_collateral_amount"] = amountAttr(netRefund, position.Collateral.Info)
	} else {
		if !sender.Equal(position.Owner) {
			return nil, ErrUnauthorized
		}
		if err := e.assertBurnWindow(assetConfig); err != nil {
			return nil, err
		}

		assetPrice, err := e.assetPrice(position.Asset.Info)
		if err != nil {
			return nil, err
		}
		priceInCollateral, err := decimalRatio(assetPrice, collateralInfo.Price)
		if err != nil {
			return nil, err
		}

		protocolFee := mulTruncate(mulTruncate(burnAmount, priceInCollateral), cfg.ProtocolFeeRate)
		if protocolFee.Sign() > 0 {
			position.Collateral.Amount, err = checkedSub(position.Collateral.Amount, protocolFee)
			if err != nil {
				return nil, ErrBelowMinCollateralRatio
			}
			feeTransfer, _, err := transferCommand(Asset{Info: position.Collateral.Info, Amount: protocolFee}, cfg.Collector.String(), e.tax)
			if err != nil {
				return nil, err
			}
			commands = append(commands, feeTransfer)
		}
		attributes["protocol_fee"] = amountAttr(protocolFee, position.Collateral.Info)

		position.Asset.Amount, err = checkedSub(position.Asset.Amount, burnAmount)
		if err != nil {
			return nil, ErrBurnExceedsMinted
		}
		if err := e.ledger.Update(position); err != nil {
			return nil, err
		}
	}

	if isShort {
		commands = append(commands, DecreaseShortToken{
			Staking: cfg.Staking,
			Token:   position.Asset.Info.Token,
			Staker:  position.Owner.String(),
			Amount:  new(big.Int).Set(burnAmount),
		})
		if closed {
			commands = append(commands, ReleasePositionFunds{Lock: cfg.Lock, PositionIdx: idx})
		}
	}

	return &Receipt{
		Commands: commands,
		Event:    burned(idx, asset, attributes),
	}, nil
}

// Auction lets any caller liquidate an undercollateralized position by
// offering synthetic assets in exchange for discounted collateral.
func (e *Engine) Auction(sender crypto.Address, idx uint64, asset Asset) (*Receipt, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	cfg, err := e.ledger.Config()
	if err != nil {
		return nil, err
	}
	position, err := e.ledger.Get(idx)
	if err != nil {
		return nil, err
	}
	if err := assertAsset(position, asset); err != nil {
		return nil, err
	}

	assetConfig, err := e.ledger.AssetConfig(position.Asset.Info.Token)
	if err != nil {
		return nil, err
	}
	if assetConfig.Deprecated() {
		return nil, ErrAssetDeprecated
	}
	if asset.Amount.Cmp(position.Asset.Amount) > 0 {
		return nil, ErrLiquidateExceedsMinted
	}

	assetPrice, err := e.assetPrice(position.Asset.Info)
	if err != nil {
		return nil, err
	}
	collateralInfo, err := e.collateralQuote(position.Collateral.Info)
	if err != nil {
		return nil, err
	}
	priceInCollateral, err := decimalRatio(assetPrice, collateralInfo.Price)
	if err != nil {
		return nil, err
	}

	// A position sitting exactly at the minimum collateral ratio is still
	// safe; liquidation requires the requirement to strictly exceed the
	// collateral.
	required := requiredCollateral(
		position.Asset.Amount,
		priceInCollateral,
		assetConfig.MinCollateralRatio,
		collateralInfo.Multiplier,
	)
	if required.Cmp(position.Collateral.Amount) <= 0 {
		return nil, ErrSafelyCollateralized
	}

	discountFactor, err := oneMinus(assetConfig.AuctionDiscount)
	if err != nil || discountFactor.IsZero() {
		return nil, ErrInvalidAuctionDiscount
	}
	discountedPrice := priceInCollateral.Div(discountFactor)

	var commands []Command

	// Cap the collateral payout to what the position holds; the surplus of
	// the offered asset is handed back to the liquidator.
	offerValue := mulTruncate(asset.Amount, discountedPrice)
	returnCollateral := offerValue
	refundAsset := big.NewInt(0)
	if offerValue.Cmp(position.Collateral.Amount) > 0 {
		excess := new(big.Int).Sub(offerValue, position.Collateral.Amount)
		undiscount, err := reciprocal(discountedPrice)
		if err != nil {
			return nil, err
		}
		refundAsset = mulTruncate(excess, undiscount)
		returnCollateral = new(big.Int).Set(position.Collateral.Amount)
		commands = append(commands, TransferTokens{
			Token:     position.Asset.Info.Token,
			Recipient: sender.String(),
			Amount:    new(big.Int).Set(refundAsset),
		})
	}

	liquidated, err := checkedSub(asset.Amount, refundAsset)
	if err != nil {
		return nil, err
	}
	leftAsset, err := checkedSub(position.Asset.Amount, liquidated)
	if err != nil {
		return nil, err
	}
	leftCollateral, err := checkedSub(position.Collateral.Amount, returnCollateral)
	if err != nil {
		return nil, err
	}

	isShort, err := e.ledger.IsShort(idx)
	if err != nil {
		return nil, err
	}

	// Stage every transfer before the ledger write so a tax lookup failure
	// cannot strand a half-liquidated position.
	var residualTransfer Command
	closed := leftCollateral.Sign() == 0 || leftAsset.Sign() == 0
	if leftCollateral.Sign() != 0 && leftAsset.Sign() == 0 {
		// All assets paid back; the residual collateral belongs to the
		// position owner.
		residualTransfer, _, err = transferCommand(Asset{Info: position.Collateral.Info, Amount: leftCollateral}, position.Owner.String(), e.tax)
		if err != nil {
			return nil, err
		}
	}

	// The protocol fee is computed on the liquidated amount after the
	// collateral cap and comes out of the liquidator's payout.
	protocolFee := mulTruncate(mulTruncate(liquidated, priceInCollateral), cfg.ProtocolFeeRate)
	returnNet, err := checkedSub(returnCollateral, protocolFee)
	if err != nil {
		protocolFee = new(big.Int).Set(returnCollateral)
		returnNet = big.NewInt(0)
	}

	liquidatorTransfer, taxAmount, err := transferCommand(Asset{Info: position.Collateral.Info, Amount: returnNet}, sender.String(), e.tax)
	if err != nil {
		return nil, err
	}
	var feeTransfer Command
	if protocolFee.Sign() > 0 {
		feeTransfer, _, err = transferCommand(Asset{Info: position.Collateral.Info, Amount: protocolFee}, cfg.Collector.String(), e.tax)
		if err != nil {
			return nil, err
		}
	}

	if closed {
		// With the collateral sold out any residual asset debt dissolves
		// with the position.
		if err := e.ledger.Remove(idx); err != nil {
			return nil, err
		}
	} else {
		position.Collateral.Amount = leftCollateral
		position.Asset.Amount = leftAsset
		if err := e.ledger.Update(position); err != nil {
			return nil, err
		}
	}

	if residualTransfer != nil {
		commands = append(commands, residualTransfer)
	}
	commands = append(commands, BurnTokens{
		Token:  position.Asset.Info.Token,
		Amount: new(big.Int).Set(liquidated),
	})
	commands = append(commands, liquidatorTransfer)
	if feeTransfer != nil {
		commands = append(commands, feeTransfer)
	}

	if isShort {
		commands = append(commands, DecreaseShortToken{
			Staking: cfg.Staking,
			Token:   position.Asset.Info.Token,
			Staker:  position.Owner.String(),
			Amount:  new(big.Int).Set(liquidated),
		})
		if closed {
			commands = append(commands, ReleasePositionFunds{Lock: cfg.Lock, PositionIdx: idx})
		}
	}

	return &Receipt{
		Commands: commands,
		Event: auctioned(
			idx,
			position.Owner.String(),
			Asset{Info: position.Collateral.Info, Amount: returnNet},
			Asset{Info: position.Asset.Info, Amount: liquidated},
			protocolFee,
			taxAmount,
		),
	}, nil
}
