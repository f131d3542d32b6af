package stripe

import (
	"errors"
	"testing"
)

func TestPriceFor(t *testing.T) {
	c := NewClient(Config{
		Prices: PriceTable{
			"congregacion": {Monthly: "price_month", Annual: "price_year"},
			"distrito":     {Monthly: "price_d_month"},
		},
	})

	tests := []struct {
		name     string
		plan     string
		interval string
		want     string
		wantErr  bool
	}{
		{"monthly default", "congregacion", "", "price_month", false},
		{"monthly explicit", "congregacion", "monthly", "price_month", false},
		{"annual", "congregacion", "annual", "price_year", false},
		{"plan without annual price", "distrito", "annual", "", true},
		{"unconfigured plan", "conferencia", "monthly", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.PriceFor(tt.plan, tt.interval)
			if tt.wantErr {
				if !errors.Is(err, ErrNoPriceForPlan) {
					t.Fatalf("err = %v, want ErrNoPriceForPlan", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PriceFor: %v", err)
			}
			if got != tt.want {
				t.Errorf("price = %q, want %q", got, tt.want)
			}
		})
	}
}
