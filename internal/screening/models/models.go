// Package models holds the screening domain types shared by the pipeline
// stages. These are plain data carriers; behavior lives in the stage packages.
package models

import (
	"encoding/json"
	"strings"

	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	pstrings "vigil/pkg/platform/strings"
)

// EntitySchema classifies the kind of entity being screened.
type EntitySchema string

const (
	SchemaPerson       EntitySchema = "Person"
	SchemaCompany      EntitySchema = "Company"
	SchemaOrganization EntitySchema = "Organization"
)

// ParseEntitySchema validates a schema string. Empty means "any".
func ParseEntitySchema(s string) (EntitySchema, error) {
	switch EntitySchema(s) {
	case "", SchemaPerson, SchemaCompany, SchemaOrganization:
		return EntitySchema(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown entity schema %q", s)
}

// MatchType grades how a candidate name matched the query.
type MatchType string

const (
	MatchExact    MatchType = "EXACT"
	MatchPhonetic MatchType = "PHONETIC"
	MatchFuzzy    MatchType = "FUZZY"
	MatchNone     MatchType = "NO_MATCH"
)

// RiskLevel is the compliance classification derived from topics and
// confidence.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Provenance records which source produced a candidate.
type Provenance string

const (
	ProvenanceRemoteMatch  Provenance = "REMOTE_MATCH"
	ProvenanceRemoteSearch Provenance = "REMOTE_SEARCH"
	ProvenanceLocalDataset Provenance = "LOCAL_DATASET"
)

// ScreenStatus reports whether the remote leg of a screen ran normally.
type ScreenStatus string

const (
	ScreenOK ScreenStatus = "OK"
	// ScreenDegraded means both remote calls failed and the result set is
	// remote-empty. Presented as "no match found", never as an error.
	ScreenDegraded ScreenStatus = "DEGRADED"
)

// ScreeningQuery is a single screening request. Immutable once submitted.
type ScreeningQuery struct {
	ID          id.QueryID
	Name        string
	BirthDate   string // YYYY-MM-DD, optional
	Nationality string
	Schema      EntitySchema
	Countries   []string
	Threshold   int // 0 means use the configured default
	Limit       int // 0 means use the configured default
	Offset      int
}

// CandidateEntity is one watchlist candidate as returned by a source.
// Produced per invocation; never mutated after creation.
type CandidateEntity struct {
	ID        string
	Name      string
	Aliases   []string
	Schema    EntitySchema
	Countries []string
	Topics    []string
	Dataset   string
	// Raw preserves the source payload verbatim for downstream export.
	Raw json.RawMessage
}

// Names returns the canonical name plus aliases, deduplicated with order
// preserved so the canonical name stays first.
func (c CandidateEntity) Names() []string {
	return pstrings.DedupeAndTrim(append([]string{c.Name}, c.Aliases...))
}

// HasSanctionTopic reports whether any topic tag is sanction-class
// (e.g. "sanction", "sanction.linked").
func (c CandidateEntity) HasSanctionTopic() bool {
	for _, topic := range c.Topics {
		if strings.HasPrefix(strings.ToLower(topic), "sanction") {
			return true
		}
	}
	return false
}

// MatchResult pairs a query with one scored candidate. Re-screening produces a
// new MatchResult rather than mutating an old one.
type MatchResult struct {
	QueryID     id.QueryID
	Entity      CandidateEntity
	MatchType   MatchType
	Confidence  int // 0-100
	RiskLevel   RiskLevel
	Provenance  Provenance
	MatchedName string // the alias that produced the best score
}
