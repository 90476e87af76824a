package mint

import (
	"math/big"
	"strconv"

	"synthmint/core/events"
)

// Event types emitted by the mint module.
const (
	TypePositionOpened  = "mint.position_opened"
	TypeDeposited       = "mint.deposited"
	TypeWithdrawn       = "mint.withdrawn"
	TypeMinted          = "mint.minted"
	TypeBurned          = "mint.burned"
	TypeAuctioned       = "mint.auctioned"
	TypeAssetRegistered = "mint.asset_registered"
	TypeAssetMigrated   = "mint.asset_migrated"
	TypeConfigUpdated   = "mint.config_updated"
)

// Receipt is the observable outcome of one engine operation: the ordered
// outbound command list and the structured event record.
type Receipt struct {
	Commands []Command
	Event    events.Event
}

func amountAttr(amount *big.Int, info AssetInfo) string {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return amount.String() + info.String()
}

func positionOpened(idx uint64, mintAmount *big.Int, assetInfo AssetInfo, collateral Asset, isShort bool) events.Event {
	return events.Event{
		Type: TypePositionOpened,
		Attributes: map[string]string{
			"position_idx":      strconv.FormatUint(idx, 10),
			"mint_amount":       amountAttr(mintAmount, assetInfo),
			"collateral_amount": amountAttr(collateral.Amount, collateral.Info),
			"is_short":          strconv.FormatBool(isShort),
		},
	}
}

func deposited(idx uint64, collateral Asset) events.Event {
	return events.Event{
		Type: TypeDeposited,
		Attributes: map[string]string{
			"position_idx":   strconv.FormatUint(idx, 10),
			"deposit_amount": amountAttr(collateral.Amount, collateral.Info),
		},
	}
}

func withdrawn(idx uint64, collateral Asset, protocolFee, tax *big.Int) events.Event {
	return events.Event{
		Type: TypeWithdrawn,
		Attributes: map[string]string{
			"position_idx":    strconv.FormatUint(idx, 10),
			"withdraw_amount": amountAttr(collateral.Amount, collateral.Info),
			"protocol_fee":    amountAttr(protocolFee, collateral.Info),
			"tax_amount":      amountAttr(tax, collateral.Info),
		},
	}
}

func minted(idx uint64, asset Asset, isShort bool) events.Event {
	return events.Event{
		Type: TypeMinted,
		Attributes: map[string]string{
			"position_idx": strconv.FormatUint(idx, 10),
			"mint_amount":  amountAttr(asset.Amount, asset.Info),
			"is_short":     strconv.FormatBool(isShort),
		},
	}
}

func burned(idx uint64, asset Asset, extra map[string]string) events.Event {
	attributes := map[string]string{
		"position_idx": strconv.FormatUint(idx, 10),
		"burn_amount":  amountAttr(asset.Amount, asset.Info),
	}
	for k, v := range extra {
		attributes[k] = v
	}
	return events.Event{Type: TypeBurned, Attributes: attributes}
}

func auctioned(idx uint64, owner string, returnCollateral Asset, liquidated Asset, protocolFee, tax *big.Int) events.Event {
	return events.Event{
		Type: TypeAuctioned,
		Attributes: map[string]string{
			"position_idx":             strconv.FormatUint(idx, 10),
			"owner":                    owner,
			"return_collateral_amount": amountAttr(returnCollateral.Amount, returnCollateral.Info),
			"liquidated_amount":        amountAttr(liquidated.Amount, liquidated.Info),
			"protocol_fee":             amountAttr(protocolFee, returnCollateral.Info),
			"tax_amount":               amountAttr(tax, returnCollateral.Info),
		},
	}
}
