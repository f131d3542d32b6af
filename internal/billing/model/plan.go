package model

import "strings"

// Feature names understood by the app's license client. They gate the
// hosted-only subsystems; everything else runs on the free tier.
const (
	FeatureBackup   = "backup"
	FeaturePush     = "push"
	FeatureWhatsApp = "whatsapp"
)

// Plan ids. A congregation covers one church; a district covers the
// churches of one district pastor; a conference is sold by hand and only
// collects waitlist signups here.
const (
	PlanCongregation = "congregacion"
	PlanDistrict     = "distrito"
	PlanConference   = "conferencia"
)

// Plan describes one hosted tier. ChurchLimit 0 means unlimited.
// SelfServe plans go through Stripe checkout; the rest join the waitlist.
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ChurchLimit int      `json:"church_limit"`
	Features    []string `json:"features"`
	SelfServe   bool     `json:"self_serve"`
}

var catalog = []Plan{
	{
		ID:          PlanCongregation,
		Name:        "Congregación",
		ChurchLimit: 1,
		Features:    []string{FeatureBackup, FeaturePush},
		SelfServe:   true,
	},
	{
		ID:          PlanDistrict,
		Name:        "Distrito",
		ChurchLimit: 12,
		Features:    []string{FeatureBackup, FeaturePush, FeatureWhatsApp},
		SelfServe:   true,
	},
	{
		ID:          PlanConference,
		Name:        "Conferencia",
		ChurchLimit: 0,
		Features:    []string{FeatureBackup, FeaturePush, FeatureWhatsApp},
		SelfServe:   false,
	},
}

// Plans returns the full catalog in display order.
func Plans() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

// PlanByID looks up a catalog plan.
func PlanByID(id string) (Plan, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// FeatureList renders the plan's features in the comma-joined form stored
// on license rows and returned by the validate endpoint.
func (p Plan) FeatureList() string {
	return strings.Join(p.Features, ",")
}

// AllowsChurches reports whether a deployment with the given number of
// churches fits under the plan's limit.
func (p Plan) AllowsChurches(n int) bool {
	return p.ChurchLimit == 0 || n <= p.ChurchLimit
}
