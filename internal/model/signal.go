package model

import "time"

// SignalKind is a typed funnel-relevant event observed in free text.
type SignalKind string

const (
	SignalStalled           SignalKind = "STALLED"
	SignalJDShared          SignalKind = "JD_SHARED"
	SignalProposalSent      SignalKind = "PROPOSAL_SENT"
	SignalNegotiation       SignalKind = "NEGOTIATION"
	SignalReconnectLater    SignalKind = "RECONNECT_LATER"
	SignalInboundUnfollowed SignalKind = "INBOUND_UNFOLLOWED"
	SignalReferralMention   SignalKind = "REFERRAL_MENTION"
	SignalKeepInTouch       SignalKind = "KEEP_IN_TOUCH"
)

// MiddleKinds lists conversation-state kinds in classification priority order:
// further-along conversation states outrank earlier-stage ones.
func MiddleKinds() []SignalKind {
	return []SignalKind{
		SignalStalled,
		SignalJDShared,
		SignalProposalSent,
		SignalNegotiation,
		SignalReconnectLater,
	}
}

// HiddenKinds lists hidden-opportunity kinds in classification priority order.
func HiddenKinds() []SignalKind {
	return []SignalKind{
		SignalInboundUnfollowed,
		SignalReferralMention,
		SignalKeepInTouch,
	}
}

// Signal is an observation extracted from one message body. Immutable,
// many-to-one with the record it came from.
type Signal struct {
	Kind           SignalKind `json:"kind"`
	SourceRecordID string     `json:"source_record_id"`
	MatchedPhrase  string     `json:"matched_phrase"`
	OccurredAt     *time.Time `json:"occurred_at,omitempty"`
	Confidence     float64    `json:"confidence"`
}

// DedupeKey identifies a signal within an identity's aggregated list.
func (s Signal) DedupeKey() string {
	ts := ""
	if s.OccurredAt != nil {
		ts = s.OccurredAt.UTC().Format(time.RFC3339)
	}
	return string(s.Kind) + "|" + ts + "|" + s.MatchedPhrase
}
