package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"synthmint/crypto"
	"synthmint/native/mint"
	"synthmint/observability"
)

const requestLimit = 1 << 20 // 1 MiB

// mintRoutes wires HTTP handlers to the mint engine.
type mintRoutes struct {
	engine *mint.Engine
	log    *slog.Logger
}

func (mr *mintRoutes) mount(r chi.Router) {
	r.Post("/positions", mr.openPosition)
	r.Get("/positions", mr.listPositions)
	r.Get("/positions/next-idx", mr.nextIdx)
	r.Get("/positions/{idx}", mr.getPosition)
	r.Post("/positions/{idx}/deposit", mr.deposit)
	r.Post("/positions/{idx}/withdraw", mr.withdraw)
	r.Post("/positions/{idx}/mint", mr.mintAsset)
	r.Post("/positions/{idx}/burn", mr.burnAsset)
	r.Post("/positions/{idx}/auction", mr.auction)

	r.Get("/config", mr.getConfig)
	r.Post("/config", mr.updateConfig)
	r.Get("/assets/{token}", mr.getAsset)
	r.Post("/assets", mr.registerAsset)
	r.Post("/assets/{token}", mr.updateAsset)
	r.Post("/assets/{token}/migrate", mr.registerMigration)
}

func (mr *mintRoutes) decodeRequest(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("missing request body")
	}
	defer r.Body.Close()

	reader := io.LimitReader(r.Body, requestLimit)
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(data) == 0 {
		return errors.New("request body is empty")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func (mr *mintRoutes) writeReceipt(w http.ResponseWriter, receipt *mint.Receipt) {
	for _, cmd := range receipt.Commands {
		observability.ModuleMetrics().RecordCommand("mint", cmd.CommandType())
	}
	writeJSON(w, http.StatusOK, encodeReceipt(receipt))
}

func idxParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "idx")
	idx, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid position idx %q", raw)
	}
	return idx, nil
}

// --- position lifecycle ---

type openPositionRequest struct {
	Sender          string              `json:"sender"`
	Collateral      assetPayload        `json:"collateral"`
	AssetInfo       assetInfoPayload    `json:"asset_info"`
	CollateralRatio string              `json:"collateral_ratio"`
	Short           *shortParamsPayload `json:"short,omitempty"`
}

func (mr *mintRoutes) openPosition(w http.ResponseWriter, r *http.Request) {
	var req openPositionRequest
	if err := mr.decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	collateral, err := req.Collateral.toAsset()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	assetInfo, err := req.AssetInfo.toInfo()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	ratio, err := parseDecimal("collateral_ratio", req.CollateralRatio)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	short, err := req.Short.toParams()
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	receipt, err := mr.engine.OpenPosition(sender, collateral, assetInfo, ratio, short)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	mr.log.Info("position opened",
		"owner", sender.String(),
		"asset", assetInfo.String(),
		"short", short != nil,
	)
	mr.writeReceipt(w, receipt)
}

type depositRequest struct {
	Sender     string       `json:"sender"`
	Collateral assetPayload `json:"collateral"`
}

func (mr *mintRoutes) deposit(w http.ResponseWriter, r *http.Request) {
	idx, err := idxParam(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req depositRequest
	if err := mr.decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	collateral, err := req.Collateral.toAsset()
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	receipt, err := mr.engine.Deposit(sender, idx, collateral)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	mr.writeReceipt(w, receipt)
}

type withdrawRequest struct {
	Sender     string        `json:"sender"`
	Collateral *assetPayload `json:"collateral,omitempty"`
}

func (mr *mintRoutes) withdraw(w http.ResponseWriter, r *http.Request) {
	idx, err := idxParam(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req withdrawRequest
	if err := mr.decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var collateral *mint.Asset
	if req.Collateral != nil {
		parsed, err := req.Collateral.toAsset()
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		collateral = &parsed
	}

	receipt, err := mr.engine.Withdraw(sender, idx, collateral)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	mr.writeReceipt(w, receipt)
}

type mintRequest struct {
	Sender string              `json:"sender"`
	Asset  assetPayload        `json:"asset"`
	Short  *shortParamsPayload `json:"short,omitempty"`
}

func (mr *mintRoutes) mintAsset(w http.ResponseWriter, r *http.Request) {
	idx, err := idxParam(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req mintRequest
	if err := mr.decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	asset, err := req.Asset.toAsset()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	short, err := req.Short.toParams()
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	receipt, err := mr.engine.Mint(sender, idx, asset, short)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	mr.writeReceipt(w, receipt)
}

type burnRequest struct {
	Sender string       `json:"sender"`
	Asset  assetPayload `json:"asset"`
}

func (mr *mintRoutes) burnAsset(w http.ResponseWriter, r *http.Request) {
	idx, err := idxParam(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req burnRequest
	if err := mr.decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	asset, err := req.Asset.toAsset()
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	receipt, err := mr.engine.Burn(sender, idx, asset)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	mr.writeReceipt(w, receipt)
}

func (mr *mintRoutes) auction(w http.ResponseWriter, r *http.Request) {
	idx, err := idxParam(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req burnRequest
	if err := mr.decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	asset, err := req.Asset.toAsset()
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	receipt, err := mr.engine.Auction(sender, idx, asset)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	mr.log.Info("position auctioned", "idx", idx, "liquidator", sender.String())
	mr.writeReceipt(w, receipt)
}

// --- queries ---

func (mr *mintRoutes) getPosition(w http.ResponseWriter, r *http.Request) {
	idx, err := idxParam(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	view, err := mr.engine.Position(idx)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, encodePosition(view))
}

func (mr *mintRoutes) listPositions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	views, err := mr.engine.Positions(filter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	payload := make([]positionPayload, 0, len(views))
	for _, view := range views {
		payload = append(payload, encodePosition(view))
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": payload})
}

func parseFilter(r *http.Request) (mint.PositionFilter, error) {
	query := r.URL.Query()
	filter := mint.PositionFilter{
		AssetToken: strings.TrimSpace(query.Get("asset")),
	}
	if owner := strings.TrimSpace(query.Get("owner")); owner != "" {
		addr, err := crypto.DecodeAddress(owner)
		if err != nil {
			return filter, fmt.Errorf("invalid owner: %w", err)
		}
		filter.Owner = &addr
	}
	if raw := query.Get("start_after"); raw != "" {
		start, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid start_after %q", raw)
		}
		filter.StartAfter = start
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return filter, fmt.Errorf("invalid limit %q", raw)
		}
		filter.Limit = uint32(limit)
	}
	switch strings.ToLower(query.Get("order")) {
	case "", "asc":
		filter.Order = mint.OrderAsc
	case "desc":
		filter.Order = mint.OrderDesc
	default:
		return filter, fmt.Errorf("invalid order %q", query.Get("order"))
	}
	return filter, nil
}

func (mr *mintRoutes) nextIdx(w http.ResponseWriter, _ *http.Request) {
	idx, err := mr.engine.NextPositionIdx()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"next_idx": idx})
}

type configPayload struct {
	Owner           string `json:"owner"`
	Collector       string `json:"collector"`
	BaseDenom       string `json:"base_denom"`
	ProtocolFeeRate string `json:"protocol_fee_rate"`
	Lock            string `json:"lock"`
	Staking         string `json:"staking"`
	SwapFactory     string `json:"swap_factory"`
}

func (mr *mintRoutes) getConfig(w http.ResponseWriter, _ *http.Request) {
	cfg, err := mr.engine.ModuleConfig()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configPayload{
		Owner:           cfg.Owner.String(),
		Collector:       cfg.Collector.String(),
		BaseDenom:       cfg.BaseDenom,
		ProtocolFeeRate: cfg.ProtocolFeeRate.String(),
		Lock:            cfg.Lock,
		Staking:         cfg.Staking,
		SwapFactory:     cfg.SwapFactory,
	})
}

type assetConfigPayload struct {
	Token              string `json:"token"`
	AuctionDiscount    string `json:"auction_discount"`
	MinCollateralRatio string `json:"min_collateral_ratio"`
	EndPrice           string `json:"end_price,omitempty"`
	MintEnd            uint64 `json:"mint_end,omitempty"`
}

func (mr *mintRoutes) getAsset(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	cfg, err := mr.engine.AssetConfig(token)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	payload := assetConfigPayload{
		Token:              cfg.Token,
		AuctionDiscount:    cfg.AuctionDiscount.String(),
		MinCollateralRatio: cfg.MinCollateralRatio.String(),
		MintEnd:            cfg.MintEnd,
	}
	if cfg.EndPrice != nil {
		payload.EndPrice = cfg.EndPrice.String()
	}
	writeJSON(w, http.StatusOK, payload)
}

// --- admin ---

type registerAssetRequest struct {
	Sender             string `json:"sender"`
	Token              string `json:"token"`
	AuctionDiscount    string `json:"auction_discount"`
	MinCollateralRatio string `json:"min_collateral_ratio"`
	MintEnd            uint64 `json:"mint_end,omitempty"`
}

func (mr *mintRoutes) registerAsset(w http.ResponseWriter, r *http.Request) {
	var req registerAssetRequest
	if err := mr.decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeBadRequest(w, errors.New("token required"))
		return
	}
	discount, err := parseDecimal("auction_discount", req.AuctionDiscount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	minRatio, err := parseDecimal("min_collateral_ratio", req.MinCollateralRatio)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := mr.engine.RegisterAsset(sender, req.Token, discount, minRatio, req.MintEnd); err != nil {
		writeEngineError(w, err)
		return
	}
	mr.log.Info("asset registered", "token", req.Token)
	writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

type updateAssetRequest struct {
	Sender             string  `json:"sender"`
	AuctionDiscount    *string `json:"auction_discount,omitempty"`
	MinCollateralRatio *string `json:"min_collateral_ratio,omitempty"`
	MintEnd            *uint64 `json:"mint_end,omitempty"`
}

func (mr *mintRoutes) updateAsset(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req updateAssetRequest
	if err := mr.decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var discount, minRatio *decimal.Decimal
	if req.AuctionDiscount != nil {
		parsed, err := parseDecimal("auction_discount", *req.AuctionDiscount)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		discount = &parsed
	}
	if req.MinCollateralRatio != nil {
		parsed, err := parseDecimal("min_collateral_ratio", *req.MinCollateralRatio)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		minRatio = &parsed
	}

	if err := mr.engine.UpdateAsset(sender, token, discount, minRatio, req.MintEnd); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type registerMigrationRequest struct {
	Sender   string `json:"sender"`
	EndPrice string `json:"end_price"`
}

func (mr *mintRoutes) registerMigration(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req registerMigrationRequest
	if err := mr.decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	endPrice, err := parseDecimal("end_price", req.EndPrice)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := mr.engine.RegisterMigration(sender, token, endPrice); err != nil {
		writeEngineError(w, err)
		return
	}
	mr.log.Info("asset migrated", "token", token, "end_price", endPrice.String())
	writeJSON(w, http.StatusOK, map[string]string{"status": "migrated"})
}

type updateConfigRequest struct {
	Sender          string  `json:"sender"`
	Owner           *string `json:"owner,omitempty"`
	Collector       *string `json:"collector,omitempty"`
	ProtocolFeeRate *string `json:"protocol_fee_rate,omitempty"`
	Lock            *string `json:"lock,omitempty"`
	Staking         *string `json:"staking,omitempty"`
	SwapFactory     *string `json:"swap_factory,omitempty"`
}

func (mr *mintRoutes) updateConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := mr.decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	update := mint.ConfigUpdate{
		Lock:        req.Lock,
		Staking:     req.Staking,
		SwapFactory: req.SwapFactory,
	}
	if req.Owner != nil {
		owner, err := parseAddress(*req.Owner)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		update.Owner = &owner
	}
	if req.Collector != nil {
		collector, err := parseAddress(*req.Collector)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		update.Collector = &collector
	}
	if req.ProtocolFeeRate != nil {
		rate, err := parseDecimal("protocol_fee_rate", *req.ProtocolFeeRate)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		update.ProtocolFeeRate = &rate
	}

	if err := mr.engine.UpdateConfig(sender, update); err != nil {
		writeEngineError(w, err)
		return
	}
	mr.log.Info("config updated")
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
