// Package similarity scores a normalized query against candidate names. It
// combines three independent signals — token overlap, edit distance, and
// phonetic coding — into a 0-100 confidence plus a match-type grade.
//
// The scorer is a pure numeric function: it never returns an error, and its
// worst outcome is a NO_MATCH classification.
package similarity

import (
	"math"

	"github.com/agnivade/levenshtein"

	"vigil/internal/screening/models"
	"vigil/internal/screening/normalize"
)

// Weights calibrate the combined confidence. They should sum to 1; Scorer
// normalizes them defensively at construction.
type Weights struct {
	TokenOverlap float64
	EditDistance float64
	Phonetic     float64
}

// DefaultWeights is the starting calibration. It is a tunable, not a law;
// the scenario tests in this package pin its observable behavior.
func DefaultWeights() Weights {
	return Weights{TokenOverlap: 0.5, EditDistance: 0.3, Phonetic: 0.2}
}

// Config tunes the scorer.
type Config struct {
	Weights Weights
	// FuzzyThreshold is the minimum confidence before NO_MATCH. The
	// service injects the configured value; zero falls back to 40.
	FuzzyThreshold int
}

// Scorer computes name similarity. Safe for concurrent use.
type Scorer struct {
	weights   Weights
	threshold int
}

// New builds a Scorer from the config.
func New(cfg Config) *Scorer {
	w := cfg.Weights
	sum := w.TokenOverlap + w.EditDistance + w.Phonetic
	if sum <= 0 {
		w = DefaultWeights()
		sum = 1
	}
	w.TokenOverlap /= sum
	w.EditDistance /= sum
	w.Phonetic /= sum

	threshold := cfg.FuzzyThreshold
	if threshold <= 0 {
		threshold = 40
	}
	return &Scorer{weights: w, threshold: threshold}
}

// Score grades one candidate name against the query.
//
// Signals:
//   - exact full-string equality short-circuits to (100, EXACT)
//   - token overlap: fraction of query tokens with a counterpart in the
//     candidate (exact, phonetically equal, or edit ratio >= 0.5), each
//     candidate token consumable once
//   - edit ratio: 1 - lev(a,b)/max(len), on the full strings and on the
//     best per-token alignment, whichever is higher
//   - phonetic ratio: fraction of query tokens with a phonetically equal
//     candidate token
func (s *Scorer) Score(query, candidate normalize.Name) (int, models.MatchType) {
	return s.ScoreWithThreshold(query, candidate, s.threshold)
}

// ScoreWithThreshold is Score with a per-query threshold override.
func (s *Scorer) ScoreWithThreshold(query, candidate normalize.Name, threshold int) (int, models.MatchType) {
	if query.IsZero() || candidate.IsZero() {
		return 0, models.MatchNone
	}
	if threshold <= 0 {
		threshold = s.threshold
	}

	if query.Equal(candidate) {
		return 100, models.MatchExact
	}

	overlap, phonRatio := tokenSignals(query.Tokens, candidate.Tokens)
	edit := editSignal(query, candidate)

	conf := int(math.Round(100 * (s.weights.TokenOverlap*overlap +
		s.weights.EditDistance*edit +
		s.weights.Phonetic*phonRatio)))
	if conf > 99 {
		// Only true string equality earns 100.
		conf = 99
	}

	switch {
	case conf >= 60 && phoneticEqual(query.Tokens, candidate.Tokens):
		return conf, models.MatchPhonetic
	case conf >= threshold:
		return conf, models.MatchFuzzy
	default:
		return conf, models.MatchNone
	}
}

// ScoreBest grades the query against every name of a candidate entity and
// returns the best confidence, its grade, and the name that produced it.
func (s *Scorer) ScoreBest(query normalize.Name, names []normalize.Name, threshold int) (int, models.MatchType, int) {
	bestConf, bestType, bestIdx := 0, models.MatchNone, -1
	for i, name := range names {
		conf, mt := s.ScoreWithThreshold(query, name, threshold)
		if conf > bestConf || bestIdx == -1 {
			bestConf, bestType, bestIdx = conf, mt, i
		}
		if bestType == models.MatchExact {
			break
		}
	}
	return bestConf, bestType, bestIdx
}

// tokenSignals computes the overlap and phonetic ratios in one pass. Each
// candidate token can satisfy at most one query token, assigned greedily by
// best similarity.
func tokenSignals(query, candidate []string) (overlap, phonetic float64) {
	used := make([]bool, len(candidate))
	matched, phonMatched := 0, 0

	for _, q := range query {
		bestIdx, bestSim := -1, 0.0
		bestPhon := false
		qCode := soundex(q)

		for i, c := range candidate {
			if used[i] {
				continue
			}
			sim := tokenRatio(q, c)
			phon := qCode != "" && qCode == soundex(c)
			if phon && sim < 1 {
				// Phonetic equality counts as a full token match.
				sim = 1
			}
			if sim > bestSim {
				bestIdx, bestSim, bestPhon = i, sim, phon
			}
		}

		if bestIdx >= 0 && bestSim >= 0.5 {
			used[bestIdx] = true
			matched++
			if bestPhon {
				phonMatched++
			}
		}
	}

	n := float64(len(query))
	return float64(matched) / n, float64(phonMatched) / n
}

// editSignal is the higher of the full-string ratio and the mean best-token
// alignment ratio.
func editSignal(query, candidate normalize.Name) float64 {
	full := tokenRatio(query.Full(), candidate.Full())

	var sum float64
	for _, q := range query.Tokens {
		best := 0.0
		for _, c := range candidate.Tokens {
			if r := tokenRatio(q, c); r > best {
				best = r
			}
		}
		sum += best
	}
	aligned := sum / float64(len(query.Tokens))

	return math.Max(full, aligned)
}

// tokenRatio is the normalized Levenshtein similarity of two strings.
func tokenRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
