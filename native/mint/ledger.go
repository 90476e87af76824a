package mint

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"synthmint/crypto"
	"synthmint/storage"
)

// Pagination bounds for position listings.
const (
	DefaultListLimit = 10
	MaxListLimit     = 30
)

// firstPositionIdx is where index assignment starts; indices are never reused.
const firstPositionIdx = 1

// Ledger persists positions, their secondary indices and the per-asset
// configuration records in the underlying key-value store.
type Ledger struct {
	db storage.Database
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(db storage.Database) *Ledger {
	return &Ledger{db: db}
}

type storedPosition struct {
	Idx              uint64
	Owner            string
	CollateralToken  string
	CollateralDenom  string
	CollateralAmount string
	AssetToken       string
	AssetDenom       string
	AssetAmount      string
}

func encodePosition(p *Position) ([]byte, error) {
	record := storedPosition{
		Idx:              p.Idx,
		Owner:            p.Owner.String(),
		CollateralToken:  p.Collateral.Info.Token,
		CollateralDenom:  p.Collateral.Info.Denom,
		CollateralAmount: p.Collateral.Amount.String(),
		AssetToken:       p.Asset.Info.Token,
		AssetDenom:       p.Asset.Info.Denom,
		AssetAmount:      p.Asset.Amount.String(),
	}
	return rlp.EncodeToBytes(&record)
}

func decodePosition(raw []byte) (*Position, error) {
	var record storedPosition
	if err := rlp.DecodeBytes(raw, &record); err != nil {
		return nil, err
	}
	owner, err := crypto.DecodeAddress(record.Owner)
	if err != nil {
		return nil, fmt.Errorf("mint: corrupted position owner: %w", err)
	}
	collateralAmount, ok := new(big.Int).SetString(record.CollateralAmount, 10)
	if !ok {
		return nil, fmt.Errorf("mint: corrupted collateral amount %q", record.CollateralAmount)
	}
	assetAmount, ok := new(big.Int).SetString(record.AssetAmount, 10)
	if !ok {
		return nil, fmt.Errorf("mint: corrupted asset amount %q", record.AssetAmount)
	}
	return &Position{
		Idx:   record.Idx,
		Owner: owner,
		Collateral: Asset{
			Info:   AssetInfo{Token: record.CollateralToken, Denom: record.CollateralDenom},
			Amount: collateralAmount,
		},
		Asset: Asset{
			Info:   AssetInfo{Token: record.AssetToken, Denom: record.AssetDenom},
			Amount: assetAmount,
		},
	}, nil
}

// NextIdx returns the next index that will be assigned without reserving it.
func (l *Ledger) NextIdx() (uint64, error) {
	raw, err := l.db.Get(positionIdxKey)
	if errors.Is(err, storage.ErrNotFound) {
		return firstPositionIdx, nil
	}
	if err != nil {
		return 0, err
	}
	return idxFromBytes(raw), nil
}

// ReserveIdx returns the next unused index and atomically advances the
// counter. Reserved indices are never handed out again, even after removal.
func (l *Ledger) ReserveIdx() (uint64, error) {
	idx, err := l.NextIdx()
	if err != nil {
		return 0, err
	}
	if err := l.db.Put(positionIdxKey, idxBytes(idx+1)); err != nil {
		return 0, err
	}
	return idx, nil
}

// Create stores a new position together with its owner and asset index
// entries. It fails when the index is already occupied.
func (l *Ledger) Create(p *Position) error {
	key := positionKey(p.Idx)
	exists, err := l.db.Has(key)
	if err != nil {
		return err
	}
	if exists {
		return ErrPositionExists
	}
	raw, err := encodePosition(p)
	if err != nil {
		return err
	}
	if err := l.db.Put(key, raw); err != nil {
		return err
	}
	if err := l.db.Put(ownerIndexKey(p.Owner.Bytes(), p.Idx), []byte{1}); err != nil {
		return err
	}
	return l.db.Put(assetIndexKey(p.Asset.Info.Token, p.Idx), []byte{1})
}

// Get loads a position by index.
func (l *Ledger) Get(idx uint64) (*Position, error) {
	raw, err := l.db.Get(positionKey(idx))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrPositionNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodePosition(raw)
}

// Update rewrites an existing position record. The owner and asset kinds of a
// position never change, so the secondary indices stay untouched.
func (l *Ledger) Update(p *Position) error {
	raw, err := encodePosition(p)
	if err != nil {
		return err
	}
	return l.db.Put(positionKey(p.Idx), raw)
}

// Remove deletes the position, its index entries and its short tag.
func (l *Ledger) Remove(idx uint64) error {
	position, err := l.Get(idx)
	if err != nil {
		return err
	}
	if err := l.db.Delete(positionKey(idx)); err != nil {
		return err
	}
	if err := l.db.Delete(ownerIndexKey(position.Owner.Bytes(), idx)); err != nil {
		return err
	}
	if err := l.db.Delete(assetIndexKey(position.Asset.Info.Token, idx)); err != nil {
		return err
	}
	return l.db.Delete(shortKey(idx))
}

// MarkShort flags a position as short. The tag is immutable after creation.
func (l *Ledger) MarkShort(idx uint64) error {
	return l.db.Put(shortKey(idx), []byte{1})
}

// IsShort reports whether the position carries the short tag.
func (l *Ledger) IsShort(idx uint64) (bool, error) {
	return l.db.Has(shortKey(idx))
}

// List returns positions matching the filter, paginated with an
// exclusive-start cursor.
func (l *Ledger) List(filter PositionFilter) ([]*Position, error) {
	limit := int(filter.Limit)
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	switch {
	case filter.Owner != nil:
		return l.listByIndex(ownerIndexRange(filter.Owner.Bytes()), filter, limit)
	case filter.AssetToken != "":
		return l.listByIndex(assetIndexRange(filter.AssetToken), filter, limit)
	default:
		return l.listAll(filter, limit)
	}
}

func (l *Ledger) listAll(filter PositionFilter, limit int) ([]*Position, error) {
	start, end := cursorRange(positionPrefix, filter)
	it := l.db.NewIterator(start, end, filter.Order == OrderDesc)
	defer it.Release()

	positions := make([]*Position, 0, limit)
	for it.Next() {
		if len(positions) >= limit {
			break
		}
		position, err := decodePosition(it.Value())
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}
	return positions, nil
}

func (l *Ledger) listByIndex(prefix []byte, filter PositionFilter, limit int) ([]*Position, error) {
	start, end := cursorRange(prefix, filter)
	it := l.db.NewIterator(start, end, filter.Order == OrderDesc)
	defer it.Release()

	positions := make([]*Position, 0, limit)
	for it.Next() {
		if len(positions) >= limit {
			break
		}
		position, err := l.Get(idxFromBytes(it.Key()))
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}
	return positions, nil
}

// cursorRange translates the exclusive-start cursor into an iterator range.
// Ascending listings start right after the cursor; descending listings end
// right before it (iterator ranges exclude the upper bound already).
func cursorRange(prefix []byte, filter PositionFilter) ([]byte, []byte) {
	start := append([]byte(nil), prefix...)
	end := prefixUpperBound(prefix)
	if filter.StartAfter == 0 {
		return start, end
	}
	if filter.Order == OrderDesc {
		return start, append(append([]byte(nil), prefix...), idxBytes(filter.StartAfter)...)
	}
	return append(append([]byte(nil), prefix...), idxBytes(filter.StartAfter+1)...), end
}

// prefixUpperBound returns the smallest key greater than every key carrying
// the prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
