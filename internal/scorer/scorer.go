// Package scorer computes 0-100 priority scores for resolved identities.
package scorer

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jaibojo/txo-crm/internal/config"
	"github.com/jaibojo/txo-crm/internal/model"
)

// ValidateConfig checks that a ScoringConfig is internally consistent.
// Weight and tier errors are fatal: every downstream score depends on them.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	weights := map[string]float64{
		"recency":            c.Weights.Recency,
		"relationship_depth": c.Weights.Depth,
		"engagement":         c.Weights.Engagement,
		"seniority":          c.Weights.Seniority,
		"company_size":       c.Weights.CompanySize,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s weight must be >= 0", name))
		}
	}

	// Weights must sum to 1.0 (allow tolerance for floating-point).
	if sum := c.Weights.Sum(); math.Abs(sum-1.0) > 0.01 {
		errs = append(errs, fmt.Sprintf("weights must sum to 1.0, got %.3f", sum))
	}

	if c.RecencyCutoffDays <= 0 {
		errs = append(errs, "recency_cutoff_days must be > 0")
	}

	if len(c.SeniorityTiers) == 0 {
		errs = append(errs, "seniority_tiers must not be empty")
	}
	for i, tier := range c.SeniorityTiers {
		if len(tier.Keywords) == 0 {
			errs = append(errs, fmt.Sprintf("seniority tier %d has no keywords", i))
		}
		if tier.Score < 0 || tier.Score > 100 {
			errs = append(errs, fmt.Sprintf("seniority tier %d score must be in [0,100]", i))
		}
	}

	for bucket, score := range c.CompanySizeTiers {
		if score < 0 || score > 100 {
			errs = append(errs, fmt.Sprintf("company size bucket %q score must be in [0,100]", bucket))
		}
	}

	if len(errs) > 0 {
		return eris.Wrapf(model.ErrInvalidConfig,
			"scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Scorer computes priority scores. Construct via New after ValidateConfig.
type Scorer struct {
	cfg config.ScoringConfig
	now time.Time
}

// New returns a Scorer evaluating recency relative to now.
func New(cfg config.ScoringConfig, now time.Time) *Scorer {
	return &Scorer{cfg: cfg, now: now}
}

// Score computes and sets the identity's priority score. The returned
// components map keys each sub-score by name for report transparency.
func (s *Scorer) Score(id *model.Identity) map[string]float64 {
	components := map[string]float64{
		"recency":            s.scoreRecency(id.LastContact),
		"relationship_depth": scoreDepth(id.Placements, id.Revenue),
		"engagement":         scoreEngagement(id.InboundCount, id.OutboundCount),
		"seniority":          s.scoreSeniority(id.Title),
		"company_size":       s.scoreCompanySize(id.CompanySize),
	}

	w := s.cfg.Weights
	total := w.Recency*components["recency"] +
		w.Depth*components["relationship_depth"] +
		w.Engagement*components["engagement"] +
		w.Seniority*components["seniority"] +
		w.CompanySize*components["company_size"]

	id.PriorityScore = int(math.Round(math.Max(0, math.Min(total, 100))))

	zap.L().Debug("scorer: scored identity",
		zap.String("identity", id.Key),
		zap.Int("score", id.PriorityScore),
	)
	return components
}

// scoreRecency maps days since last contact onto a decreasing step table.
// No contact date, or contact older than the cutoff, scores zero.
func (s *Scorer) scoreRecency(lastContact *time.Time) float64 {
	if lastContact == nil {
		return 0
	}
	days := int(s.now.Sub(*lastContact).Hours() / 24)
	if days >= s.cfg.RecencyCutoffDays {
		return 0
	}
	switch {
	case days < 30:
		return 100
	case days < 90:
		return 80
	case days < 180:
		return 60
	case days < 365:
		return 40
	default:
		return 20
	}
}

// scoreDepth saturates in placement count and attributed revenue.
// Twelve placements or 500k revenue alone each cap their component.
func scoreDepth(placements int, revenue float64) float64 {
	p := math.Min(float64(placements)*5, 60)
	var r float64
	if revenue > 0 {
		r = math.Min(revenue/12500, 40)
	}
	return math.Min(p+r, 100)
}

// scoreEngagement is the inbound/outbound reply ratio scaled to [0,100].
// No outbound history means the ratio is undefined and scores zero.
func scoreEngagement(inbound, outbound int) float64 {
	if outbound <= 0 {
		return 0
	}
	return math.Min(float64(inbound)/float64(outbound)*100, 100)
}

// scoreSeniority returns the score of the first tier with a keyword
// contained in the lowercased title. Tiers are ordered most senior first.
func (s *Scorer) scoreSeniority(title string) float64 {
	if title == "" {
		return 0
	}
	lower := strings.ToLower(title)
	for _, tier := range s.cfg.SeniorityTiers {
		for _, kw := range tier.Keywords {
			if strings.Contains(lower, kw) {
				return tier.Score
			}
		}
	}
	return 0
}

func (s *Scorer) scoreCompanySize(bucket string) float64 {
	if bucket == "" {
		return 0
	}
	return s.cfg.CompanySizeTiers[strings.ToLower(strings.TrimSpace(bucket))]
}

// Rank orders identities by score descending, breaking ties by more
// recent last contact, then by identity key. The sort is stable so equal
// identities keep their input order.
func Rank(ids []*model.Identity) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		switch {
		case a.LastContact == nil && b.LastContact == nil:
		case a.LastContact == nil:
			return false
		case b.LastContact == nil:
			return true
		case !a.LastContact.Equal(*b.LastContact):
			return a.LastContact.After(*b.LastContact)
		}
		return a.Key < b.Key
	})
}
