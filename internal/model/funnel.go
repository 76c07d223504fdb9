package model

import "strings"

// FunnelStage is one mutually exclusive sales-readiness bucket.
type FunnelStage string

const (
	StageBottomActive      FunnelStage = "BOTTOM_ACTIVE"
	StageBottomDormantWarm FunnelStage = "BOTTOM_DORMANT_WARM"
	StageBottomDormantCold FunnelStage = "BOTTOM_DORMANT_COLD"
	StageHiddenJobChange   FunnelStage = "HIDDEN_JOB_CHANGE"
	StageMiddleStalled     FunnelStage = "MIDDLE_STALLED"
	StageMiddleJDShared    FunnelStage = "MIDDLE_JD_SHARED"
	StageMiddleProposal    FunnelStage = "MIDDLE_PROPOSAL_SENT"
	StageMiddleNegotiation FunnelStage = "MIDDLE_NEGOTIATION"
	StageMiddleReconnect   FunnelStage = "MIDDLE_RECONNECT_LATER"
	StageHiddenInbound     FunnelStage = "HIDDEN_INBOUND"
	StageHiddenReferral    FunnelStage = "HIDDEN_REFERRAL"
	StageHiddenKeepInTouch FunnelStage = "HIDDEN_KEEP_IN_TOUCH"
	StageTopCold           FunnelStage = "TOP_COLD"
)

// Band returns the funnel band prefix of a stage (bottom, middle, hidden, top).
func (s FunnelStage) Band() string {
	str := string(s)
	if idx := strings.Index(str, "_"); idx > 0 {
		return strings.ToLower(str[:idx])
	}
	return strings.ToLower(str)
}

// Dormant reports whether the stage is one of the dormant bottom stages,
// which makes the identity a reactivation candidate.
func (s FunnelStage) Dormant() bool {
	return s == StageBottomDormantWarm || s == StageBottomDormantCold
}

// AllStages returns every defined stage, in classification priority order.
func AllStages() []FunnelStage {
	return []FunnelStage{
		StageBottomActive,
		StageBottomDormantWarm,
		StageBottomDormantCold,
		StageHiddenJobChange,
		StageMiddleStalled,
		StageMiddleJDShared,
		StageMiddleProposal,
		StageMiddleNegotiation,
		StageMiddleReconnect,
		StageHiddenInbound,
		StageHiddenReferral,
		StageHiddenKeepInTouch,
		StageTopCold,
	}
}
