// Package funnel assigns each identity exactly one sales-funnel stage.
package funnel

import (
	"time"

	"go.uber.org/zap"

	"github.com/jaibojo/txo-crm/internal/config"
	"github.com/jaibojo/txo-crm/internal/model"
)

// Rule is one entry in the ordered decision table. Rules are evaluated top
// to bottom; the first match is terminal for the run. Structured facts come
// before text-derived signals because a known engagement date is stronger
// evidence than inferred conversation language.
type Rule struct {
	Name   string
	Stage  model.FunnelStage
	Reason string
	Match  func(id *model.Identity, now time.Time) bool
}

// Classifier evaluates the rule table against one identity at a time.
type Classifier struct {
	rules []Rule
}

// stageForMiddle maps conversation-state signal kinds to their stages.
var stageForMiddle = map[model.SignalKind]model.FunnelStage{
	model.SignalStalled:        model.StageMiddleStalled,
	model.SignalJDShared:       model.StageMiddleJDShared,
	model.SignalProposalSent:   model.StageMiddleProposal,
	model.SignalNegotiation:    model.StageMiddleNegotiation,
	model.SignalReconnectLater: model.StageMiddleReconnect,
}

// stageForHidden maps hidden-opportunity signal kinds to their stages.
var stageForHidden = map[model.SignalKind]model.FunnelStage{
	model.SignalInboundUnfollowed: model.StageHiddenInbound,
	model.SignalReferralMention:   model.StageHiddenReferral,
	model.SignalKeepInTouch:       model.StageHiddenKeepInTouch,
}

// NewClassifier builds the rule table from the configured recency windows.
func NewClassifier(cfg config.FunnelConfig) *Classifier {
	active := time.Duration(cfg.ActiveWindowDays) * 24 * time.Hour
	dormantMax := time.Duration(cfg.DormantMaxDays) * 24 * time.Hour

	rules := []Rule{
		{
			Name:   "recency_active",
			Stage:  model.StageBottomActive,
			Reason: "recent_contact",
			Match: func(id *model.Identity, now time.Time) bool {
				return id.LastContact != nil && now.Sub(*id.LastContact) <= active
			},
		},
		{
			Name:   "recency_dormant_warm",
			Stage:  model.StageBottomDormantWarm,
			Reason: "dormant_with_history",
			Match: func(id *model.Identity, now time.Time) bool {
				if id.LastContact == nil || id.Placements < 1 {
					return false
				}
				age := now.Sub(*id.LastContact)
				return age > active && age <= dormantMax
			},
		},
		{
			Name:   "recency_dormant_cold",
			Stage:  model.StageBottomDormantCold,
			Reason: "long_dormant_with_history",
			Match: func(id *model.Identity, now time.Time) bool {
				return id.LastContact != nil && id.Placements >= 1 &&
					now.Sub(*id.LastContact) > dormantMax
			},
		},
		{
			Name:   "employer_change",
			Stage:  model.StageHiddenJobChange,
			Reason: "job_change_detected",
			Match: func(id *model.Identity, _ time.Time) bool {
				return id.JobChanged()
			},
		},
	}

	for _, kind := range model.MiddleKinds() {
		rules = append(rules, signalRule(kind, stageForMiddle[kind]))
	}
	for _, kind := range model.HiddenKinds() {
		rules = append(rules, signalRule(kind, stageForHidden[kind]))
	}

	rules = append(rules, Rule{
		Name:   "default_cold",
		Stage:  model.StageTopCold,
		Reason: "no_evidence",
		Match:  func(*model.Identity, time.Time) bool { return true },
	})

	return &Classifier{rules: rules}
}

func signalRule(kind model.SignalKind, stage model.FunnelStage) Rule {
	return Rule{
		Name:   "signal_" + string(kind),
		Stage:  stage,
		Reason: string(kind),
		Match: func(id *model.Identity, _ time.Time) bool {
			return hasSignal(id, kind)
		},
	}
}

func hasSignal(id *model.Identity, kind model.SignalKind) bool {
	for _, s := range id.Signals {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

// Classify sets the stage and reason on the identity and returns the
// winning rule name.
func (c *Classifier) Classify(id *model.Identity, now time.Time) string {
	for _, rule := range c.rules {
		if !rule.Match(id, now) {
			continue
		}
		id.FunnelStage = rule.Stage
		id.FunnelReason = rule.Reason
		zap.L().Debug("funnel: classified",
			zap.String("identity", id.Key),
			zap.String("rule", rule.Name),
			zap.String("stage", string(rule.Stage)),
		)
		return rule.Name
	}
	// The default rule always matches; this is unreachable.
	return ""
}

// Rules exposes the table for tests and documentation tooling.
func (c *Classifier) Rules() []Rule {
	return c.rules
}
