package mint

// Position returns the query projection of a single position.
func (e *Engine) Position(idx uint64) (*PositionView, error) {
	position, err := e.ledger.Get(idx)
	if err != nil {
		return nil, err
	}
	return e.positionView(position)
}

// Positions lists positions matching the filter, paginated by an exclusive
// start cursor.
func (e *Engine) Positions(filter PositionFilter) ([]*PositionView, error) {
	positions, err := e.ledger.List(filter)
	if err != nil {
		return nil, err
	}
	views := make([]*PositionView, 0, len(positions))
	for _, position := range positions {
		view, err := e.positionView(position)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (e *Engine) positionView(position *Position) (*PositionView, error) {
	isShort, err := e.ledger.IsShort(position.Idx)
	if err != nil {
		return nil, err
	}
	return &PositionView{
		Idx:        position.Idx,
		Owner:      position.Owner.String(),
		Collateral: position.Collateral.Copy(),
		Asset:      position.Asset.Copy(),
		IsShort:    isShort,
	}, nil
}

// NextPositionIdx exposes the idx the next opened position will receive.
func (e *Engine) NextPositionIdx() (uint64, error) {
	return e.ledger.NextIdx()
}

// AssetConfig returns the risk parameters of a registered asset.
func (e *Engine) AssetConfig(token string) (*AssetConfig, error) {
	return e.ledger.AssetConfig(token)
}

// ModuleConfig returns the module-wide configuration.
func (e *Engine) ModuleConfig() (*Config, error) {
	return e.ledger.Config()
}
