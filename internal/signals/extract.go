// Package signals scans free text for funnel-relevant trigger phrases.
package signals

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jaibojo/txo-crm/internal/config"
	"github.com/jaibojo/txo-crm/internal/model"
)

// scanOrder fixes the kind iteration order so extraction output is
// deterministic regardless of map ordering.
var scanOrder = append(model.MiddleKinds(), model.HiddenKinds()...)

// Extractor matches configured phrase sets against message text. Matching is
// case-insensitive substring; at most one signal per kind per body, first
// matching phrase wins for that kind.
type Extractor struct {
	cfg config.SignalConfig
}

// NewExtractor creates an Extractor from immutable signal configuration.
func NewExtractor(cfg config.SignalConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract scans one body (subject prepended by the caller when available)
// and returns the detected signals for the originating record.
func (e *Extractor) Extract(recordID, body string, occurredAt *time.Time) []model.Signal {
	text := strings.ToLower(body)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []model.Signal
	for _, kind := range scanOrder {
		phrases, ok := e.cfg.Phrases[kind]
		if !ok {
			continue
		}
		for _, p := range phrases {
			if !strings.Contains(text, strings.ToLower(p.Text)) {
				continue
			}
			out = append(out, model.Signal{
				Kind:           kind,
				SourceRecordID: recordID,
				MatchedPhrase:  p.Text,
				OccurredAt:     occurredAt,
				Confidence:     e.cfg.TierConfidence[p.Tier],
			})
			zap.L().Debug("signals: matched phrase",
				zap.String("record", recordID),
				zap.String("kind", string(kind)),
				zap.String("phrase", p.Text),
			)
			break
		}
	}
	return out
}
