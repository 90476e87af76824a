package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	nativecommon "synthmint/native/common"
	"synthmint/native/mint"
	"synthmint/oracle"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSONError(w, http.StatusBadRequest, err)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = http.StatusText(status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload, marshalErr := json.Marshal(map[string]string{"error": message})
	if marshalErr != nil {
		payload = []byte(fmt.Sprintf("{\"error\":%q}", message))
	}
	_, _ = w.Write(payload)
}

// writeEngineError picks the HTTP status matching the engine error class.
func writeEngineError(w http.ResponseWriter, err error) {
	writeJSONError(w, engineStatus(err), err)
}

func engineStatus(err error) int {
	switch {
	case errors.Is(err, mint.ErrPositionNotFound),
		errors.Is(err, mint.ErrAssetNotRegistered),
		errors.Is(err, mint.ErrConfigNotFound),
		errors.Is(err, oracle.ErrPriceNotFound),
		errors.Is(err, oracle.ErrPairNotFound):
		return http.StatusNotFound
	case errors.Is(err, mint.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, mint.ErrAssetRegistered):
		return http.StatusConflict
	case errors.Is(err, nativecommon.ErrModulePaused),
		errors.Is(err, oracle.ErrPriceStale),
		errors.Is(err, oracle.ErrInvalidPrice),
		errors.Is(err, mint.ErrInvalidQuote):
		return http.StatusServiceUnavailable
	case errors.Is(err, mint.ErrWrongCollateral),
		errors.Is(err, mint.ErrWrongAsset),
		errors.Is(err, mint.ErrLowCollateralRatio),
		errors.Is(err, mint.ErrInsufficientCollateral),
		errors.Is(err, mint.ErrWithdrawExceedsDeposit),
		errors.Is(err, mint.ErrBelowMinCollateralRatio),
		errors.Is(err, mint.ErrBurnExceedsMinted),
		errors.Is(err, mint.ErrLiquidateExceedsMinted),
		errors.Is(err, mint.ErrSafelyCollateralized),
		errors.Is(err, mint.ErrMintWindowClosed),
		errors.Is(err, mint.ErrBurnWindowClosed),
		errors.Is(err, mint.ErrInvalidAuctionDiscount),
		errors.Is(err, mint.ErrInvalidMinRatio),
		errors.Is(err, mint.ErrInvalidFeeRate),
		errors.Is(err, mint.ErrAssetDeprecated),
		errors.Is(err, mint.ErrCollateralRevoked):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
