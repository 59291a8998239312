// Package feasibility implements the two-sided pre-trade check: a trade must
// fit the seller's surplus, the buyer's remaining demand, and the buyer's
// balance before any state is mutated. A failed check is a rejection the
// caller can retry with corrected inputs, never a fatal error.
package feasibility

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/nexusgrid/energy-engine/internal/model"
)

var (
	// ErrInvalidAmount is returned when energy or price is not positive.
	ErrInvalidAmount = errors.New("feasibility: energy amount and price must be positive")

	// ErrInsufficientSurplus is returned when the seller cannot cover the
	// requested energy.
	ErrInsufficientSurplus = errors.New("feasibility: seller surplus below requested energy")

	// ErrSellerOverdrawn is returned when the seller's balance is negative.
	ErrSellerOverdrawn = errors.New("feasibility: seller balance is negative")

	// ErrInsufficientDemand is returned when the buyer does not want that
	// much energy.
	ErrInsufficientDemand = errors.New("feasibility: buyer demand below requested energy")

	// ErrInsufficientBalance is returned when the buyer cannot pay the total.
	ErrInsufficientBalance = errors.New("feasibility: buyer balance below total cost")
)

// Check validates a proposed trade against both participants' current state.
// Returns nil when the trade can execute, or the first violated constraint.
func Check(seller, buyer *model.Participant, energy, pricePerUnit decimal.Decimal) error {
	if !energy.IsPositive() || !pricePerUnit.IsPositive() {
		return ErrInvalidAmount
	}
	if seller.Surplus.LessThan(energy) {
		return ErrInsufficientSurplus
	}
	if seller.Balance.IsNegative() {
		return ErrSellerOverdrawn
	}
	if buyer.Demand.LessThan(energy) {
		return ErrInsufficientDemand
	}
	if buyer.Balance.LessThan(energy.Mul(pricePerUnit)) {
		return ErrInsufficientBalance
	}
	return nil
}
