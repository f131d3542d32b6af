package model

import "testing"

func TestPlanByID(t *testing.T) {
	p, ok := PlanByID(PlanDistrict)
	if !ok {
		t.Fatal("expected district plan in catalog")
	}
	if p.ChurchLimit != 12 {
		t.Errorf("church limit = %d, want 12", p.ChurchLimit)
	}
	if !p.SelfServe {
		t.Error("district plan should be self-serve")
	}

	if _, ok := PlanByID("enterprise"); ok {
		t.Error("unknown plan should not resolve")
	}
}

func TestConferencePlanNotSelfServe(t *testing.T) {
	p, ok := PlanByID(PlanConference)
	if !ok {
		t.Fatal("expected conference plan in catalog")
	}
	if p.SelfServe {
		t.Error("conference plan is sold by hand, not self-serve")
	}
	if p.ChurchLimit != 0 {
		t.Errorf("church limit = %d, want 0 (unlimited)", p.ChurchLimit)
	}
}

func TestFeatureList(t *testing.T) {
	p, _ := PlanByID(PlanCongregation)
	if got, want := p.FeatureList(), "backup,push"; got != want {
		t.Errorf("feature list = %q, want %q", got, want)
	}
}

func TestAllowsChurches(t *testing.T) {
	congregation, _ := PlanByID(PlanCongregation)
	district, _ := PlanByID(PlanDistrict)
	conference, _ := PlanByID(PlanConference)

	tests := []struct {
		name     string
		plan     Plan
		churches int
		want     bool
	}{
		{"congregation within limit", congregation, 1, true},
		{"congregation over limit", congregation, 2, false},
		{"district at limit", district, 12, true},
		{"district over limit", district, 13, false},
		{"conference unlimited", conference, 500, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.plan.AllowsChurches(tt.churches); got != tt.want {
				t.Errorf("AllowsChurches(%d) = %v, want %v", tt.churches, got, tt.want)
			}
		})
	}
}

func TestPlansReturnsCopy(t *testing.T) {
	plans := Plans()
	if len(plans) != 3 {
		t.Fatalf("catalog size = %d, want 3", len(plans))
	}
	plans[0].ChurchLimit = 999

	fresh, _ := PlanByID(plans[0].ID)
	if fresh.ChurchLimit == 999 {
		t.Error("mutating the returned slice must not change the catalog")
	}
}
