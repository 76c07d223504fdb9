package config

import "github.com/jaibojo/txo-crm/internal/model"

// DefaultSeniorityTiers returns the ordinal title-keyword tier table.
// First matching tier wins, so executive keywords come first.
func DefaultSeniorityTiers() []TitleTier {
	return []TitleTier{
		{
			Keywords: []string{"ceo", "cto", "cfo", "coo", "chro", "founder", "president", "vp", "vice president", "director"},
			Score:    100,
		},
		{
			Keywords: []string{"head", "lead", "principal", "manager", "senior"},
			Score:    70,
		},
		{
			Keywords: []string{"coordinator", "specialist", "analyst", "associate", "recruiter"},
			Score:    40,
		},
	}
}

// DefaultCompanySizeTiers maps company size buckets to sub-scores.
func DefaultCompanySizeTiers() map[string]float64 {
	return map[string]float64{
		"enterprise": 100,
		"large":      85,
		"mid":        70,
		"small":      40,
		"startup":    25,
	}
}

// DefaultTierConfidence maps phrase specificity tiers to signal confidence.
func DefaultTierConfidence() map[string]float64 {
	return map[string]float64{
		"narrow":   0.9,
		"standard": 0.7,
		"broad":    0.5,
	}
}

// DefaultPhrases returns the per-kind trigger phrase sets. Order within a
// kind matters: the first matching phrase wins and is recorded as evidence.
func DefaultPhrases() map[model.SignalKind][]Phrase {
	return map[model.SignalKind][]Phrase{
		model.SignalStalled: {
			{Text: "haven't heard back", Tier: "narrow"},
			{Text: "following up again", Tier: "narrow"},
			{Text: "circling back", Tier: "standard"},
			{Text: "no response", Tier: "standard"},
			{Text: "any update", Tier: "broad"},
		},
		model.SignalJDShared: {
			{Text: "attached the job description", Tier: "narrow"},
			{Text: "sharing the jd", Tier: "narrow"},
			{Text: "job description", Tier: "standard"},
			{Text: "role requirements", Tier: "standard"},
			{Text: "the jd", Tier: "broad"},
		},
		model.SignalProposalSent: {
			{Text: "attached our proposal", Tier: "narrow"},
			{Text: "sent the proposal", Tier: "narrow"},
			{Text: "proposal", Tier: "standard"},
			{Text: "our quote", Tier: "standard"},
			{Text: "pricing", Tier: "broad"},
		},
		model.SignalNegotiation: {
			{Text: "negotiate the rate", Tier: "narrow"},
			{Text: "discuss commercials", Tier: "narrow"},
			{Text: "negotiation", Tier: "standard"},
			{Text: "budget", Tier: "broad"},
		},
		model.SignalReconnectLater: {
			{Text: "reconnect next quarter", Tier: "narrow"},
			{Text: "reach out in a few months", Tier: "narrow"},
			{Text: "touch base later", Tier: "standard"},
			{Text: "reconnect", Tier: "broad"},
		},
		model.SignalInboundUnfollowed: {
			{Text: "came across your profile", Tier: "narrow"},
			{Text: "can you help us hire", Tier: "narrow"},
			{Text: "interested in your services", Tier: "standard"},
			{Text: "reaching out to you", Tier: "broad"},
		},
		model.SignalReferralMention: {
			{Text: "was referred to you by", Tier: "narrow"},
			{Text: "referred by", Tier: "narrow"},
			{Text: "recommended you", Tier: "standard"},
			{Text: "referral", Tier: "broad"},
		},
		model.SignalKeepInTouch: {
			{Text: "let's keep in touch", Tier: "narrow"},
			{Text: "keep in touch", Tier: "standard"},
			{Text: "stay in touch", Tier: "standard"},
			{Text: "stay connected", Tier: "broad"},
		},
	}
}
