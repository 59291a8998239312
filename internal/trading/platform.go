// Package trading owns the participant registry, the trading network, the
// ledger, and the suggestion engine, and provides the HTTP handlers that
// expose them. Trades execute atomically against a two-sided feasibility
// check: either every accounting update lands together with the ledger
// write, or none do.
package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexusgrid/energy-engine/internal/analytics"
	"github.com/nexusgrid/energy-engine/internal/feasibility"
	"github.com/nexusgrid/energy-engine/internal/graph"
	"github.com/nexusgrid/energy-engine/internal/ledger"
	"github.com/nexusgrid/energy-engine/internal/member"
	"github.com/nexusgrid/energy-engine/internal/metrics"
	"github.com/nexusgrid/energy-engine/internal/model"
	"github.com/nexusgrid/energy-engine/internal/suggest"
)

var (
	// ErrUnknownParticipant is returned when a trade or link references an
	// unregistered id.
	ErrUnknownParticipant = errors.New("trading: unknown participant")

	// ErrDuplicateParticipant is returned when an id is registered twice.
	ErrDuplicateParticipant = errors.New("trading: participant already registered")

	// ErrSelfLink is returned when a link request names the same id twice.
	ErrSelfLink = errors.New("trading: cannot link a participant to itself")

	// ErrSelfTrade is returned when a trade names the same participant as
	// seller and buyer. Storage participants carry both surplus and demand,
	// so without this check a self-trade would pass feasibility and the
	// auto-link would create a self-loop.
	ErrSelfTrade = errors.New("trading: participant cannot trade with itself")
)

// DefaultFeeRate is the platform cut per trade: fee = total × rate.
var DefaultFeeRate = decimal.NewFromFloat(0.02)

// Default canvas for the radial layout, matching the renderer's viewport.
const (
	DefaultCanvasWidth  = 800
	DefaultCanvasHeight = 600
)

// DefaultLayoutInterval is the background layout refresh period.
const DefaultLayoutInterval = 2 * time.Second

// Platform orchestrates the marketplace. A single mutex serializes
// registration and trade execution (single-instance, in-memory); the network
// carries its own lock because the layout refresher shares it.
type Platform struct {
	mu           sync.RWMutex
	participants map[string]*model.Participant

	network   *graph.Network
	ledger    *ledger.Ledger
	analytics *analytics.Engine
	suggester *suggest.Engine

	feeRate      decimal.Decimal
	canvasWidth  float64
	canvasHeight float64

	wsHub *WSHub // optional WebSocket hub for trade broadcasts

	refreshEvery time.Duration
	stop         chan struct{}
	done         chan struct{}
	closeOnce    sync.Once
}

// New creates a trading platform. Pass nil for rng to use a time-seeded
// source, and nil for hub if WebSocket broadcasting is not needed.
func New(led *ledger.Ledger, an *analytics.Engine, rng *rand.Rand, hub *WSHub) *Platform {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	network := graph.New()
	return &Platform{
		participants: make(map[string]*model.Participant),
		network:      network,
		ledger:       led,
		analytics:    an,
		suggester:    suggest.New(network, rng),
		feeRate:      DefaultFeeRate,
		canvasWidth:  DefaultCanvasWidth,
		canvasHeight: DefaultCanvasHeight,
		wsHub:        hub,
		refreshEvery: DefaultLayoutInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// SetLayoutInterval overrides the layout refresh period. Must be called
// before Start; non-positive durations are ignored.
func (p *Platform) SetLayoutInterval(d time.Duration) {
	if d > 0 {
		p.refreshEvery = d
	}
}

// Start launches the periodic layout refresher. Call Close to stop it.
func (p *Platform) Start() {
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.refreshEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.refreshLayout()
			case <-p.stop:
				return
			}
		}
	}()
}

// Close signals the layout refresher to stop and waits for it to exit.
func (p *Platform) Close() {
	p.closeOnce.Do(func() {
		close(p.stop)
		<-p.done
	})
}

func (p *Platform) refreshLayout() {
	p.network.Layout(p.canvasWidth, p.canvasHeight)
}

// RegisterParticipant validates and adds a participant to the registry, then
// recomputes the layout. Participants are never deleted in-process.
func (p *Platform) RegisterParticipant(reg *member.Registration) (*model.Participant, error) {
	if err := member.Validate(reg); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if _, exists := p.participants[reg.ID]; exists {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateParticipant, reg.ID)
	}
	participant := reg.Participant()
	p.participants[reg.ID] = participant
	count := len(p.participants)
	p.mu.Unlock()

	metrics.Participants.Set(float64(count))
	p.refreshLayout()

	slog.Info("participant registered",
		"id", participant.ID,
		"kind", participant.Kind,
		"surplus", participant.Surplus.String(),
		"demand", participant.Demand.String(),
	)
	return participant, nil
}

// Link adds an explicit trading relationship between two registered
// participants and recomputes the layout. Idempotent.
func (p *Platform) Link(a, b string) error {
	if a == b {
		return ErrSelfLink
	}

	p.mu.RLock()
	_, okA := p.participants[a]
	_, okB := p.participants[b]
	p.mu.RUnlock()
	if !okA {
		return fmt.Errorf("%w: %s", ErrUnknownParticipant, a)
	}
	if !okB {
		return fmt.Errorf("%w: %s", ErrUnknownParticipant, b)
	}

	p.network.AddLink(a, b)
	metrics.NetworkLinks.Set(float64(p.network.TotalLinks()))
	p.refreshLayout()
	return nil
}

// Unlink removes an explicit trading relationship. The trading flow never
// calls this; it exists for operator use.
func (p *Platform) Unlink(a, b string) {
	p.network.RemoveLink(a, b)
	metrics.NetworkLinks.Set(float64(p.network.TotalLinks()))
	p.refreshLayout()
}

// ExecuteTrade validates and applies one trade. On rejection the platform
// state is untouched. On success the seller's surplus and the buyer's demand
// each decrease by energy, the buyer pays the full total, the seller
// receives the total net of fee, the transaction is recorded, and the pair
// is linked if it was not already.
func (p *Platform) ExecuteTrade(ctx context.Context, sellerID, buyerID string, energy, pricePerUnit decimal.Decimal) (*model.Transaction, error) {
	start := time.Now()

	if sellerID == buyerID {
		return nil, p.reject(fmt.Errorf("%w: %s", ErrSelfTrade, sellerID))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	seller, ok := p.participants[sellerID]
	if !ok {
		return nil, p.reject(fmt.Errorf("%w: %s", ErrUnknownParticipant, sellerID))
	}
	buyer, ok := p.participants[buyerID]
	if !ok {
		return nil, p.reject(fmt.Errorf("%w: %s", ErrUnknownParticipant, buyerID))
	}

	if err := feasibility.Check(seller, buyer, energy, pricePerUnit); err != nil {
		return nil, p.reject(err)
	}

	total := energy.Mul(pricePerUnit)
	fee := total.Mul(p.feeRate)
	sellerReceives := total.Sub(fee)

	txn := &model.Transaction{
		ID:           uuid.New().String(),
		SellerID:     sellerID,
		BuyerID:      buyerID,
		EnergyAmount: energy,
		PricePerUnit: pricePerUnit,
		TotalPrice:   total,
		Timestamp:    time.Now().UTC(),
	}

	// Ledger write first: if the archive rejects the record, no balances
	// have moved and the trade fails cleanly.
	if err := p.ledger.Record(ctx, txn); err != nil {
		return nil, err
	}

	seller.Surplus = seller.Surplus.Sub(energy)
	buyer.Demand = buyer.Demand.Sub(energy)
	seller.Balance = seller.Balance.Add(sellerReceives)
	buyer.Balance = buyer.Balance.Sub(total)
	seller.Transactions = append(seller.Transactions, txn.ID)
	buyer.Transactions = append(buyer.Transactions, txn.ID)

	// First trade between an unconnected pair creates the link.
	if !p.network.Connected(sellerID, buyerID) {
		p.network.AddLink(sellerID, buyerID)
		metrics.NetworkLinks.Set(float64(p.network.TotalLinks()))
		p.refreshLayout()
	}

	metrics.TradesTotal.Inc()
	metrics.TradedEnergy.Add(energy.InexactFloat64())
	metrics.TradeLatency.Observe(time.Since(start).Seconds())

	slog.Info("trade executed",
		"txn_id", txn.ID,
		"seller", sellerID,
		"buyer", buyerID,
		"energy", energy.String(),
		"price", pricePerUnit.String(),
		"total", total.String(),
		"fee", fee.String(),
	)

	if p.wsHub != nil {
		p.wsHub.BroadcastTrade(txn)
	}
	return txn, nil
}

// reject counts the rejection and passes the error through unchanged.
func (p *Platform) reject(err error) error {
	metrics.TradeRejections.WithLabelValues(rejectionReason(err)).Inc()
	return err
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownParticipant):
		return "unknown_participant"
	case errors.Is(err, ErrSelfTrade):
		return "self_trade"
	case errors.Is(err, feasibility.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, feasibility.ErrInsufficientSurplus):
		return "insufficient_surplus"
	case errors.Is(err, feasibility.ErrSellerOverdrawn):
		return "seller_overdrawn"
	case errors.Is(err, feasibility.ErrInsufficientDemand):
		return "insufficient_demand"
	case errors.Is(err, feasibility.ErrInsufficientBalance):
		return "insufficient_balance"
	default:
		return "other"
	}
}

// Participant returns a copy of the registry entry for id.
func (p *Platform) Participant(id string) (model.Participant, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	participant, ok := p.participants[id]
	if !ok {
		return model.Participant{}, false
	}
	return copyParticipant(participant), true
}

// Sellers returns participants with surplus > 0, sorted by id.
func (p *Platform) Sellers() []model.Participant {
	return p.filtered(func(m *model.Participant) bool { return m.Surplus.IsPositive() })
}

// Buyers returns participants with demand > 0, sorted by id.
func (p *Platform) Buyers() []model.Participant {
	return p.filtered(func(m *model.Participant) bool { return m.Demand.IsPositive() })
}

func (p *Platform) filtered(keep func(*model.Participant) bool) []model.Participant {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []model.Participant
	for _, id := range p.sortedIDsLocked() {
		if participant := p.participants[id]; keep(participant) {
			out = append(out, copyParticipant(participant))
		}
	}
	return out
}

// History returns the full transaction feed, oldest first.
func (p *Platform) History(ctx context.Context) ([]model.Transaction, error) {
	return p.ledger.All(ctx)
}

// Recent returns the last n transactions in insertion order.
func (p *Platform) Recent(ctx context.Context, n int) ([]model.Transaction, error) {
	return p.ledger.Recent(ctx, n)
}

// ParticipantTransactions returns the trades involving id, in insertion order.
func (p *Platform) ParticipantTransactions(ctx context.Context, id string) ([]model.Transaction, error) {
	return p.ledger.ForParticipant(ctx, id)
}

// PriceHistory returns the most recent maxPoints price samples.
func (p *Platform) PriceHistory(maxPoints int) []model.HistoryPoint {
	return p.analytics.PriceHistory(maxPoints)
}

// VolumeHistory returns the most recent maxPoints volume samples.
func (p *Platform) VolumeHistory(maxPoints int) []model.HistoryPoint {
	return p.analytics.VolumeHistory(maxPoints)
}

// Network exposes the trading graph for path queries.
func (p *Platform) Network() *graph.Network {
	return p.network
}

// Suggestions recomputes the ranked candidate trades over the current
// registry. Results are ephemeral and never persisted.
func (p *Platform) Suggestions() []model.TradeSuggestion {
	p.mu.RLock()
	registry := make([]*model.Participant, 0, len(p.participants))
	for _, id := range p.sortedIDsLocked() {
		entry := copyParticipant(p.participants[id])
		registry = append(registry, &entry)
	}
	p.mu.RUnlock()

	return p.suggester.Generate(registry)
}

// MarketStats derives aggregate market metrics. transaction_fees is
// approximated as revenue × feeRate rather than a per-trade fee sum, and
// network_efficiency is the mean inverse path length over all connected
// participant pairs with O(V²) shortest-path queries, acceptable at this scale.
func (p *Platform) MarketStats(ctx context.Context) (map[string]decimal.Decimal, error) {
	volume, err := p.ledger.TotalVolume(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := p.ledger.TotalRevenue(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	ids := p.sortedIDsLocked()
	totalParticipants := len(p.participants)
	p.mu.RUnlock()

	stats := map[string]decimal.Decimal{
		"total_energy_traded": volume,
		"total_revenue":       revenue,
		"transaction_fees":    revenue.Mul(p.feeRate),
		"average_price":       p.analytics.AveragePrice(),
		"price_volatility":    p.analytics.PriceVolatility(),
		"active_sellers":      decimal.NewFromInt(int64(len(p.Sellers()))),
		"active_buyers":       decimal.NewFromInt(int64(len(p.Buyers()))),
		"total_users":         decimal.NewFromInt(int64(totalParticipants)),
		"total_connections":   decimal.NewFromInt(int64(p.network.TotalLinks())),
		"network_efficiency":  p.networkEfficiency(ids),
	}
	return stats, nil
}

func (p *Platform) networkEfficiency(ids []string) decimal.Decimal {
	var efficiency float64
	pathCount := 0
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if path := p.network.ShortestPath(ids[i], ids[j]); len(path) > 0 {
				efficiency += 1.0 / float64(len(path))
				pathCount++
			}
		}
	}
	if pathCount == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(efficiency / float64(pathCount)).Round(analytics.Scale)
}

// Snapshot builds the renderer-facing network view: every registered
// participant with its layout position and derived status, plus the
// deduplicated link list. Participants the layout has not placed yet sit at
// the canvas center.
func (p *Platform) Snapshot() model.NetworkSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := model.NetworkSnapshot{
		Nodes: make([]model.NetworkNode, 0, len(p.participants)),
		Links: []model.NetworkLink{},
	}

	for _, id := range p.sortedIDsLocked() {
		participant := p.participants[id]
		pos, ok := p.network.PositionOf(id)
		if !ok {
			pos = graph.Position{X: p.canvasWidth / 2, Y: p.canvasHeight / 2}
		}
		snapshot.Nodes = append(snapshot.Nodes, model.NetworkNode{
			ID:      participant.ID,
			Name:    participant.Name,
			Status:  participant.Status(),
			Surplus: participant.Surplus,
			Demand:  participant.Demand,
			Balance: participant.Balance,
			X:       pos.X,
			Y:       pos.Y,
		})
	}

	for _, pair := range p.network.Links() {
		snapshot.Links = append(snapshot.Links, model.NetworkLink{From: pair[0], To: pair[1]})
	}
	return snapshot
}

// sortedIDsLocked returns registry ids in sorted order. Callers must hold at
// least a read lock.
func (p *Platform) sortedIDsLocked() []string {
	ids := make([]string, 0, len(p.participants))
	for id := range p.participants {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func copyParticipant(m *model.Participant) model.Participant {
	out := *m
	out.Transactions = slices.Clone(m.Transactions)
	return out
}
