// Package normalize canonicalizes raw entity names before scoring. The
// pipeline is pure and deterministic: unicode decomposition with diacritic
// stripping, case folding, punctuation removal, honorific trimming, and
// whitespace-collapsing tokenization.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	dErrors "vigil/pkg/domain-errors"
	pstrings "vigil/pkg/platform/strings"
)

// stripDiacritics decomposes to NFD, drops combining marks, and recomposes.
// This folds "Élodie" to "Elodie" and removes Arabic harakat.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// DefaultHonorifics are the prefix/suffix tokens dropped from name ends.
// Callers can extend or replace the list through Config.
func DefaultHonorifics() []string {
	return []string{
		"mr", "mrs", "ms", "mx", "miss", "dr", "prof", "sir", "dame",
		"lord", "lady", "jr", "sr", "ii", "iii", "iv", "esq", "phd",
	}
}

// Config tunes the normalizer. The zero value uses the defaults.
type Config struct {
	Honorifics []string
}

// Normalizer canonicalizes raw names. Safe for concurrent use.
type Normalizer struct {
	honorifics map[string]struct{}
}

// New builds a Normalizer from the config.
func New(cfg Config) *Normalizer {
	honorifics := cfg.Honorifics
	if len(honorifics) == 0 {
		honorifics = DefaultHonorifics()
	}
	set := make(map[string]struct{}, len(honorifics))
	for _, h := range pstrings.DedupeAndTrimLower(honorifics) {
		set[h] = struct{}{}
	}
	return &Normalizer{honorifics: set}
}

// Name is a canonical token sequence. Tokens preserve input order.
type Name struct {
	Tokens []string
}

// Full returns the tokens joined with single spaces.
func (n Name) Full() string { return strings.Join(n.Tokens, " ") }

// IsZero reports whether the name has no tokens.
func (n Name) IsZero() bool { return len(n.Tokens) == 0 }

// Equal reports token-for-token equality.
func (n Name) Equal(other Name) bool {
	if len(n.Tokens) != len(other.Tokens) {
		return false
	}
	for i, tok := range n.Tokens {
		if tok != other.Tokens[i] {
			return false
		}
	}
	return true
}

// Normalize canonicalizes a raw name. It fails only when nothing remains
// after stripping, which surfaces as a validation error.
func (n *Normalizer) Normalize(raw string) (Name, error) {
	folded, _, err := transform.String(stripDiacritics, strings.ToLower(raw))
	if err != nil {
		// The chain never fails on valid UTF-8; treat failure as empty input.
		folded = strings.ToLower(raw)
	}

	// Replace punctuation and symbols with spaces so "O'Neill-Smith"
	// tokenizes as [o neill smith].
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	tokens = n.trimHonorifics(tokens)

	if len(tokens) == 0 {
		return Name{}, dErrors.New(dErrors.CodeValidation, "query name is empty after normalization")
	}
	return Name{Tokens: tokens}, nil
}

// trimHonorifics drops honorific tokens from both ends. Interior tokens are
// kept: "dr dre" loses the prefix, but "mohammed el sayed" keeps "el".
func (n *Normalizer) trimHonorifics(tokens []string) []string {
	for len(tokens) > 0 {
		if _, ok := n.honorifics[tokens[0]]; !ok {
			break
		}
		tokens = tokens[1:]
	}
	for len(tokens) > 0 {
		if _, ok := n.honorifics[tokens[len(tokens)-1]]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}
