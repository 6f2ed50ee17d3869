// Package merge enriches ranked candidates with locally computed scores,
// folds in the local dataset, and derives risk.
//
// Hard invariant: the backend's ranking is authoritative. Local confidence is
// used for classification, filtering, and risk only — never for reordering.
// Sources annotate results with provenance instead of mixing rankings.
package merge

import (
	"vigil/internal/screening/models"
	"vigil/internal/screening/normalize"
	"vigil/internal/screening/similarity"
)

// Config tunes risk derivation.
type Config struct {
	// SanctionFloor is the minimum confidence at which a sanction-class
	// topic forces HIGH risk. It removes true non-matches from the
	// forced-HIGH rule; zero falls back to the fuzzy threshold behavior
	// (everything surviving the NO_MATCH filter qualifies).
	SanctionFloor int
}

// Merger builds MatchResults from candidates. Safe for concurrent use.
type Merger struct {
	normalizer *normalize.Normalizer
	scorer     *similarity.Scorer
	cfg        Config
}

// New builds a Merger.
func New(normalizer *normalize.Normalizer, scorer *similarity.Scorer, cfg Config) *Merger {
	return &Merger{normalizer: normalizer, scorer: scorer, cfg: cfg}
}

// Merge scores remote candidates (in backend order) and local candidates
// (appended after, in dataset order), deduplicates by entity ID keeping the
// first provenance that produced an entity, filters NO_MATCH, and paginates.
func (m *Merger) Merge(
	query models.ScreeningQuery,
	queryName normalize.Name,
	remote []models.CandidateEntity,
	remoteProvenance models.Provenance,
	local []models.CandidateEntity,
) []models.MatchResult {
	type sourced struct {
		entity     models.CandidateEntity
		provenance models.Provenance
	}

	ordered := make([]sourced, 0, len(remote)+len(local))
	for _, c := range remote {
		ordered = append(ordered, sourced{entity: c, provenance: remoteProvenance})
	}
	for _, c := range local {
		ordered = append(ordered, sourced{entity: c, provenance: models.ProvenanceLocalDataset})
	}

	seen := make(map[string]struct{}, len(ordered))
	results := make([]models.MatchResult, 0, len(ordered))
	for _, s := range ordered {
		if _, dup := seen[s.entity.ID]; dup {
			continue
		}
		seen[s.entity.ID] = struct{}{}

		result, ok := m.score(query, queryName, s.entity, s.provenance)
		if !ok {
			continue
		}
		results = append(results, result)
	}

	return paginate(results, query.Limit, query.Offset)
}

// score grades one entity across all of its names. Returns ok=false for
// NO_MATCH, which is excluded downstream.
func (m *Merger) score(query models.ScreeningQuery, queryName normalize.Name, entity models.CandidateEntity, provenance models.Provenance) (models.MatchResult, bool) {
	rawNames := entity.Names()
	names := make([]normalize.Name, 0, len(rawNames))
	kept := make([]string, 0, len(rawNames))
	for _, raw := range rawNames {
		name, err := m.normalizer.Normalize(raw)
		if err != nil {
			continue // unnormalizable alias contributes nothing
		}
		names = append(names, name)
		kept = append(kept, raw)
	}
	if len(names) == 0 {
		return models.MatchResult{}, false
	}

	confidence, matchType, best := m.scorer.ScoreBest(queryName, names, query.Threshold)
	if matchType == models.MatchNone || best < 0 {
		return models.MatchResult{}, false
	}

	return models.MatchResult{
		QueryID:     query.ID,
		Entity:      entity,
		MatchType:   matchType,
		Confidence:  confidence,
		RiskLevel:   m.risk(entity, confidence),
		Provenance:  provenance,
		MatchedName: kept[best],
	}, true
}

// risk is a deterministic lookup. Sanction-class topics force HIGH above the
// floor; otherwise the confidence bucket decides.
func (m *Merger) risk(entity models.CandidateEntity, confidence int) models.RiskLevel {
	if entity.HasSanctionTopic() && confidence >= m.cfg.SanctionFloor {
		return models.RiskHigh
	}
	switch {
	case confidence >= 85:
		return models.RiskHigh
	case confidence >= 50:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// paginate applies limit/offset strictly after merge and dedup. Zero limit
// means no page bound.
func paginate(results []models.MatchResult, limit, offset int) []models.MatchResult {
	if offset > 0 {
		if offset >= len(results) {
			return []models.MatchResult{}
		}
		results = results[offset:]
	}
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}
