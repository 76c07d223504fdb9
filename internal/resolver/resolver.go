// Package resolver merges normalized records into one canonical identity per
// real-world contact.
package resolver

import (
	"sort"

	"go.uber.org/zap"

	"github.com/jaibojo/txo-crm/internal/config"
	"github.com/jaibojo/txo-crm/internal/model"
)

// Resolver partitions a record set into identity clusters using a fixed
// match cascade: exact email, exact LinkedIn URL, then fuzzy name+company.
// Clustering is transitive-closure via union-find; records are processed in
// canonical key order so the partition never depends on input ordering.
type Resolver struct {
	sim       Similarity
	threshold float64
}

// NewResolver creates a Resolver. If sim is nil the default token scorer
// is used.
func NewResolver(sim Similarity, cfg config.ResolverConfig) *Resolver {
	if sim == nil {
		sim = NewTokenSimilarity()
	}
	return &Resolver{sim: sim, threshold: cfg.FuzzyThreshold}
}

// Resolve clusters records and builds merged identities. Fuzzy merges that
// would join clusters with conflicting non-empty emails are refused and
// reported as merge conflicts rather than silently picking a side.
func (r *Resolver) Resolve(records []model.NormalizedRecord, signalsByRecord map[string][]model.Signal) ([]*model.Identity, []model.MergeConflict) {
	// Canonical order makes union-find representatives, and therefore the
	// whole pass, independent of caller ordering.
	sorted := make([]model.NormalizedRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID() < sorted[j].ID() })

	uf := newUnionFind(len(sorted))

	// Pass 1: exact normalized email.
	byEmail := make(map[string]int)
	for i, rec := range sorted {
		if rec.Email == "" {
			continue
		}
		if first, ok := byEmail[rec.Email]; ok {
			uf.union(first, i)
		} else {
			byEmail[rec.Email] = i
		}
	}

	// Pass 2: exact LinkedIn URL.
	byLinkedIn := make(map[string]int)
	for i, rec := range sorted {
		if rec.LinkedInURL == "" {
			continue
		}
		if first, ok := byLinkedIn[rec.LinkedInURL]; ok {
			uf.union(first, i)
		} else {
			byLinkedIn[rec.LinkedInURL] = i
		}
	}

	// Pass 3: fuzzy name + company, pairwise in canonical order.
	var conflicts []model.MergeConflict
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if uf.find(i) == uf.find(j) {
				continue
			}
			if !r.fuzzyMatch(sorted[i], sorted[j]) {
				continue
			}

			leftEmails := clusterEmails(sorted, uf, i)
			rightEmails := clusterEmails(sorted, uf, j)
			if len(leftEmails) > 0 && len(rightEmails) > 0 && disjoint(leftEmails, rightEmails) {
				conflict := model.MergeConflict{
					LeftKey:    sorted[i].ID(),
					LeftEmail:  anyKey(leftEmails),
					RightKey:   sorted[j].ID(),
					RightEmail: anyKey(rightEmails),
					Reason:     "fuzzy name+company match with conflicting emails",
				}
				conflicts = append(conflicts, conflict)
				zap.L().Warn("resolver: ambiguous merge kept separate",
					zap.Error(conflict.Err()),
				)
				continue
			}

			uf.union(i, j)
		}
	}

	// Materialize clusters into merged identities.
	clusters := make(map[int][]model.NormalizedRecord)
	for i, rec := range sorted {
		root := uf.find(i)
		clusters[root] = append(clusters[root], rec)
	}

	roots := make([]int, 0, len(clusters))
	for root := range clusters {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	identities := make([]*model.Identity, 0, len(clusters))
	for _, root := range roots {
		identities = append(identities, buildIdentity(clusters[root], signalsByRecord))
	}

	zap.L().Info("resolver: clustering complete",
		zap.Int("records", len(sorted)),
		zap.Int("identities", len(identities)),
		zap.Int("conflicts", len(conflicts)),
	)

	return identities, conflicts
}

// fuzzyMatch applies the third cascade rule: both name and company must
// clear the configured similarity threshold.
func (r *Resolver) fuzzyMatch(a, b model.NormalizedRecord) bool {
	if a.Name == "" || b.Name == "" || a.CompanyToken == "" || b.CompanyToken == "" {
		return false
	}
	if r.sim.Score(a.Name, b.Name) < r.threshold {
		return false
	}
	return r.sim.Score(a.CompanyToken, b.CompanyToken) >= r.threshold
}

func clusterEmails(records []model.NormalizedRecord, uf *unionFind, member int) map[string]bool {
	root := uf.find(member)
	emails := make(map[string]bool)
	for i, rec := range records {
		if rec.Email != "" && uf.find(i) == root {
			emails[rec.Email] = true
		}
	}
	return emails
}

func disjoint(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return false
		}
	}
	return true
}

func anyKey(set map[string]bool) string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

// unionFind is a standard disjoint-set with path compression. Union by
// smaller root keeps representatives canonical for a sorted input.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
