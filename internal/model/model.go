// Package model defines the core domain types shared across the energy engine.
// All monetary and energy values use shopspring/decimal, never float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Participant kinds as declared at registration. The derived status (see
// Status) may differ from the declared kind once energy changes hands.
const (
	KindProducer = "producer"
	KindConsumer = "consumer"
	KindStorage  = "storage"
)

// Participant is a registered actor in the trading network. Created once at
// registration; surplus, demand, balance and the transaction history mutate
// only through trade execution. Never deleted in-process.
type Participant struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Surplus      decimal.Decimal `json:"surplus"` // kWh available to sell, >= 0
	Demand       decimal.Decimal `json:"demand"`  // kWh still wanted, >= 0
	Balance      decimal.Decimal `json:"balance"`
	Kind         string          `json:"kind"`
	Transactions []string        `json:"transactions"` // transaction ids, oldest first
}

// Status derives the participant's current role from its energy position:
// storage when both surplus and demand are positive, producer when only
// surplus is, consumer otherwise.
func (p *Participant) Status() string {
	switch {
	case p.Surplus.IsPositive() && p.Demand.IsPositive():
		return KindStorage
	case p.Surplus.IsPositive():
		return KindProducer
	default:
		return KindConsumer
	}
}

// Transaction is an immutable record of an executed trade.
// Once created, these are never modified or deleted.
type Transaction struct {
	ID           string          `json:"id"`
	SellerID     string          `json:"sellerId"`
	BuyerID      string          `json:"buyerId"`
	EnergyAmount decimal.Decimal `json:"energyAmount"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	TotalPrice   decimal.Decimal `json:"totalPrice"` // EnergyAmount × PricePerUnit
	Timestamp    time.Time       `json:"timestamp"`
}

// TradeSuggestion is an ephemeral candidate trade, recomputed on request and
// never persisted. MatchScore is a heuristic in [0,1], not a profitability
// guarantee.
type TradeSuggestion struct {
	SellerID        string          `json:"sellerId"`
	BuyerID         string          `json:"buyerId"`
	SuggestedEnergy decimal.Decimal `json:"suggestedEnergy"`
	SuggestedPrice  decimal.Decimal `json:"suggestedPrice"`
	MatchScore      decimal.Decimal `json:"matchScore"`
	Path            []string        `json:"path"` // shortest network path, possibly empty
	Reason          string          `json:"reason"`
}

// NetworkNode is a participant as seen by the rendering layer, with computed
// layout coordinates and derived status.
type NetworkNode struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Status  string          `json:"status"`
	Surplus decimal.Decimal `json:"surplus"`
	Demand  decimal.Decimal `json:"demand"`
	Balance decimal.Decimal `json:"balance"`
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
}

// NetworkLink is one undirected trading relationship, reported exactly once
// per pair regardless of insertion order.
type NetworkLink struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NetworkSnapshot is the renderer-facing view of the trading network.
// Field names are a wire contract with the (out-of-process) rendering layer.
type NetworkSnapshot struct {
	Nodes []NetworkNode `json:"nodes"`
	Links []NetworkLink `json:"links"`
}

// HistoryPoint is one (timestamp, value) pair from the price or volume series.
type HistoryPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}
