package model

// Strategy names a derived outreach pattern.
type Strategy string

const (
	StrategyCrossSPOC           Strategy = "cross_spoc_same_company"
	StrategySPOCAtNewCompany    Strategy = "spoc_at_new_company"
	StrategyReverseReferral     Strategy = "reverse_referral"
	StrategyDormantReactivation Strategy = "dormant_reactivation"
)

// Priority bands for derived opportunities.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
)

// Opportunity is a cross-identity pattern derived after classification and
// scoring. Derivation is read-only over the identity population.
type Opportunity struct {
	Strategy      Strategy `json:"strategy"`
	TargetKey     string   `json:"target_key"`
	TargetName    string   `json:"target_name,omitempty"`
	TargetEmail   string   `json:"target_email,omitempty"`
	ReferenceKey  string   `json:"reference_key,omitempty"`
	ReferenceName string   `json:"reference_name,omitempty"`
	Company       string   `json:"company,omitempty"`
	Priority      string   `json:"priority"`
	Angle         string   `json:"angle,omitempty"`
}
