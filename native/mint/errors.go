package mint

import "errors"

var (
	// Validation failures.
	ErrWrongCollateral         = errors.New("mint: wrong collateral")
	ErrWrongAsset              = errors.New("mint: wrong asset")
	ErrLowCollateralRatio      = errors.New("mint: collateral ratio below asset minimum")
	ErrInsufficientCollateral  = errors.New("mint: collateral is too small to mint")
	ErrWithdrawExceedsDeposit  = errors.New("mint: cannot withdraw more than deposited")
	ErrBelowMinCollateralRatio = errors.New("mint: operation would break the minimum collateral ratio")
	ErrBurnExceedsMinted       = errors.New("mint: cannot burn more than minted")
	ErrLiquidateExceedsMinted  = errors.New("mint: cannot liquidate more than the position amount")
	ErrSafelyCollateralized    = errors.New("mint: cannot liquidate a safely collateralized position")
	ErrMintWindowClosed        = errors.New("mint: minting period for this asset has ended")
	ErrBurnWindowClosed        = errors.New("mint: burning is disabled once the minting period has ended")
	ErrInvalidAuctionDiscount  = errors.New("mint: auction discount must be smaller than 1")
	ErrInvalidMinRatio         = errors.New("mint: min collateral ratio must be bigger than 1")
	ErrInvalidFeeRate          = errors.New("mint: protocol fee rate must be smaller than 1")
	ErrAssetRegistered         = errors.New("mint: asset was already registered")

	// Authorization failures.
	ErrUnauthorized = errors.New("mint: unauthorized")

	// Not-found failures.
	ErrPositionNotFound   = errors.New("mint: position not found")
	ErrAssetNotRegistered = errors.New("mint: asset is not registered")
	ErrConfigNotFound     = errors.New("mint: config not initialised")

	// Asset-state failures.
	ErrAssetDeprecated   = errors.New("mint: operation is not allowed for the deprecated asset")
	ErrCollateralRevoked = errors.New("mint: the collateral asset provided is no longer valid")
	ErrInvalidQuote      = errors.New("mint: oracle quote must be positive")

	// Ledger failures.
	ErrPositionExists = errors.New("mint: position idx already exists")
)
