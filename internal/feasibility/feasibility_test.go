package feasibility_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nexusgrid/energy-engine/internal/feasibility"
	"github.com/nexusgrid/energy-engine/internal/model"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func seller() *model.Participant {
	return &model.Participant{ID: "S", Surplus: d(100), Balance: d(0), Kind: model.KindProducer}
}

func buyer() *model.Participant {
	return &model.Participant{ID: "B", Demand: d(50), Balance: d(10), Kind: model.KindConsumer}
}

func TestCheck_OK(t *testing.T) {
	if err := feasibility.Check(seller(), buyer(), d(30), d(0.10)); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
}

func TestCheck_ExactBoundaries(t *testing.T) {
	// Surplus, demand, and balance may be consumed exactly.
	b := buyer()
	b.Demand = d(100)
	b.Balance = d(10) // 100 * 0.10
	if err := feasibility.Check(seller(), b, d(100), d(0.10)); err != nil {
		t.Fatalf("boundary trade should pass, got %v", err)
	}
}

func TestCheck_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		seller *model.Participant
		buyer  *model.Participant
		energy decimal.Decimal
		price  decimal.Decimal
		want   error
	}{
		{"zero energy", seller(), buyer(), d(0), d(0.10), feasibility.ErrInvalidAmount},
		{"negative energy", seller(), buyer(), d(-5), d(0.10), feasibility.ErrInvalidAmount},
		{"zero price", seller(), buyer(), d(30), d(0), feasibility.ErrInvalidAmount},
		{"surplus too low", seller(), buyer(), d(150), d(0.10), feasibility.ErrInsufficientSurplus},
		{
			"seller overdrawn",
			&model.Participant{ID: "S", Surplus: d(100), Balance: d(-1)},
			buyer(), d(30), d(0.10), feasibility.ErrSellerOverdrawn,
		},
		{"demand too low", seller(), buyer(), d(80), d(0.10), feasibility.ErrInsufficientDemand},
		{
			"buyer cannot pay",
			seller(),
			&model.Participant{ID: "B", Demand: d(50), Balance: d(1)},
			d(30), d(0.10), feasibility.ErrInsufficientBalance,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := feasibility.Check(tc.seller, tc.buyer, tc.energy, tc.price)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
