package member_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nexusgrid/energy-engine/internal/member"
	"github.com/nexusgrid/energy-engine/internal/model"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func valid() *member.Registration {
	return &member.Registration{
		ID:      "PROD-07",
		Name:    "Solar Farm 7",
		Surplus: d(120),
		Demand:  d(0),
		Balance: d(50),
		Kind:    model.KindProducer,
	}
}

func TestValidate_OK(t *testing.T) {
	if err := member.Validate(valid()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_DefaultsKindToProducer(t *testing.T) {
	r := valid()
	r.Kind = ""
	if err := member.Validate(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Kind != model.KindProducer {
		t.Errorf("expected kind producer, got %q", r.Kind)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*member.Registration)
		want   error
	}{
		{"empty id", func(r *member.Registration) { r.ID = "" }, member.ErrInvalidID},
		{"id with spaces", func(r *member.Registration) { r.ID = "node 7" }, member.ErrInvalidID},
		{"empty name", func(r *member.Registration) { r.Name = "" }, member.ErrEmptyName},
		{"bad kind", func(r *member.Registration) { r.Kind = "reactor" }, member.ErrInvalidKind},
		{"negative surplus", func(r *member.Registration) { r.Surplus = d(-1) }, member.ErrNegativeValue},
		{"negative demand", func(r *member.Registration) { r.Demand = d(-1) }, member.ErrNegativeValue},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := valid()
			tc.mutate(r)
			if err := member.Validate(r); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParticipant_CopiesFields(t *testing.T) {
	r := valid()
	p := r.Participant()

	if p.ID != r.ID || p.Name != r.Name || p.Kind != r.Kind {
		t.Errorf("participant fields do not match registration: %+v", p)
	}
	if !p.Surplus.Equal(r.Surplus) || !p.Demand.Equal(r.Demand) || !p.Balance.Equal(r.Balance) {
		t.Errorf("participant figures do not match registration: %+v", p)
	}
}
