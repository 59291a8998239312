// Package member validates participant registrations before they enter the
// registry: identifier format, declared kind, and non-negative energy figures.
package member

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/nexusgrid/energy-engine/internal/model"
)

var validKinds = map[string]bool{
	model.KindProducer: true,
	model.KindConsumer: true,
	model.KindStorage:  true,
}

// idRegex matches stable participant identifiers: letters, digits,
// underscores and hyphens. Example: PROD-07, house_12.
var idRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var (
	ErrInvalidID     = errors.New("member: invalid participant id")
	ErrEmptyName     = errors.New("member: display name is required")
	ErrInvalidKind   = errors.New("member: unsupported participant kind")
	ErrNegativeValue = errors.New("member: surplus and demand must be non-negative")
)

// Registration is a validated participant registration tuple.
type Registration struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Surplus decimal.Decimal `json:"surplus"`
	Demand  decimal.Decimal `json:"demand"`
	Balance decimal.Decimal `json:"balance"`
	Kind    string          `json:"kind"`
}

// Validate checks a registration tuple. An empty kind defaults to producer.
func Validate(r *Registration) error {
	if !idRegex.MatchString(r.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, r.ID)
	}
	if r.Name == "" {
		return ErrEmptyName
	}
	if r.Kind == "" {
		r.Kind = model.KindProducer
	}
	if !validKinds[r.Kind] {
		return fmt.Errorf("%w: %q", ErrInvalidKind, r.Kind)
	}
	if r.Surplus.IsNegative() || r.Demand.IsNegative() {
		return ErrNegativeValue
	}
	return nil
}

// Participant builds the registry entry for a validated registration.
func (r *Registration) Participant() *model.Participant {
	return &model.Participant{
		ID:      r.ID,
		Name:    r.Name,
		Surplus: r.Surplus,
		Demand:  r.Demand,
		Balance: r.Balance,
		Kind:    r.Kind,
	}
}
