package mint

import (
	"math/big"

	"github.com/shopspring/decimal"

	"synthmint/crypto"
)

// resolvePair looks up the swap pair trading the token against the base
// denomination. Callers resolve the pair before any ledger write so a lookup
// failure cannot strand a half-applied operation.
func (e *Engine) resolvePair(cfg *Config, token string) (string, error) {
	return e.pairs.PairFor(NativeAsset(cfg.BaseDenom), TokenAsset(token))
}

// shortCommands builds the command sequence applied to every newly minted
// amount of a short position:
//
//  1. mint the tokens to the module itself,
//  2. swap them into the base denomination with the proceeds sent to the
//     lock module,
//  3. associate the proceeds with the position via the lock hook,
//  4. increase the staker's short token counter.
//
// Each step depends on state the previous one establishes, so the order is
// part of the contract with the host dispatcher.
func (e *Engine) shortCommands(cfg *Config, pair string, idx uint64, token string, amount *big.Int, receiver crypto.Address, params *ShortParams) []Command {
	var beliefPrice, maxSpread *decimal.Decimal
	if params != nil {
		beliefPrice = params.BeliefPrice
		maxSpread = params.MaxSpread
	}

	minted := new(big.Int).Set(amount)
	return []Command{
		MintTokens{Token: token, Recipient: e.moduleAddress.String(), Amount: minted},
		Swap{
			Pair:        pair,
			Token:       token,
			Amount:      new(big.Int).Set(amount),
			BeliefPrice: beliefPrice,
			MaxSpread:   maxSpread,
			To:          cfg.Lock,
		},
		LockPositionFunds{Lock: cfg.Lock, PositionIdx: idx, Receiver: receiver.String()},
		IncreaseShortToken{
			Staking: cfg.Staking,
			Token:   token,
			Staker:  receiver.String(),
			Amount:  new(big.Int).Set(amount),
		},
	}
}
