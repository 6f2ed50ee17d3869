package handler

import (
	"encoding/json"
	"time"

	"vigil/internal/screening/models"
)

// ScreenResponse is the HTTP response for POST /screen.
type ScreenResponse struct {
	QueryID string           `json:"query_id"`
	Status  string           `json:"status"`
	Results []ResultResponse `json:"results"`
}

// ResultResponse is one scored candidate.
type ResultResponse struct {
	MatchType   string         `json:"match_type"`
	Confidence  int            `json:"confidence"`
	RiskLevel   string         `json:"risk_level"`
	Provenance  string         `json:"provenance"`
	MatchedName string         `json:"matched_name"`
	Entity      EntityResponse `json:"entity"`
}

// EntityResponse is the candidate entity portion of a result.
type EntityResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Aliases   []string        `json:"aliases,omitempty"`
	Schema    string          `json:"schema,omitempty"`
	Countries []string        `json:"countries,omitempty"`
	Topics    []string        `json:"topics,omitempty"`
	Dataset   string          `json:"dataset,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// FromResults converts domain results to an HTTP response.
func FromResults(queryID string, status models.ScreenStatus, results []models.MatchResult) *ScreenResponse {
	out := make([]ResultResponse, len(results))
	for i, r := range results {
		out[i] = fromResult(r)
	}
	return &ScreenResponse{QueryID: queryID, Status: string(status), Results: out}
}

func fromResult(r models.MatchResult) ResultResponse {
	return ResultResponse{
		MatchType:   string(r.MatchType),
		Confidence:  r.Confidence,
		RiskLevel:   string(r.RiskLevel),
		Provenance:  string(r.Provenance),
		MatchedName: r.MatchedName,
		Entity: EntityResponse{
			ID:        r.Entity.ID,
			Name:      r.Entity.Name,
			Aliases:   r.Entity.Aliases,
			Schema:    string(r.Entity.Schema),
			Countries: r.Entity.Countries,
			Topics:    r.Entity.Topics,
			Dataset:   r.Entity.Dataset,
			Raw:       r.Entity.Raw,
		},
	}
}

// BatchResponse is the job snapshot returned by the batch endpoints.
type BatchResponse struct {
	BatchID     string     `json:"batch_id"`
	Status      string     `json:"status"`
	Total       int        `json:"total"`
	Completed   int        `json:"completed"`
	Failures    int        `json:"failures"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// FromJob converts a domain job snapshot to an HTTP response.
func FromJob(job models.BatchJob) *BatchResponse {
	resp := &BatchResponse{
		BatchID:     job.ID.String(),
		Status:      string(job.Status),
		Total:       job.Total,
		Completed:   job.Completed,
		Failures:    job.Failures,
		SubmittedAt: job.SubmittedAt,
	}
	if !job.StartedAt.IsZero() {
		resp.StartedAt = &job.StartedAt
	}
	if !job.FinishedAt.IsZero() {
		resp.FinishedAt = &job.FinishedAt
	}
	return resp
}

// BatchResultsResponse is the HTTP response for GET /screen/batch/{id}/results.
type BatchResultsResponse struct {
	Job      *BatchResponse    `json:"job"`
	Outcomes []OutcomeResponse `json:"outcomes"`
}

// OutcomeResponse is the result of one batch item.
type OutcomeResponse struct {
	Index   int              `json:"index"`
	QueryID string           `json:"query_id"`
	Name    string           `json:"name"`
	Status  string           `json:"status,omitempty"`
	Results []ResultResponse `json:"results,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// FromOutcomes converts a job with its outcomes to an HTTP response.
func FromOutcomes(job models.BatchJob, outcomes []models.ItemOutcome) *BatchResultsResponse {
	out := make([]OutcomeResponse, len(outcomes))
	for i, o := range outcomes {
		results := make([]ResultResponse, len(o.Results))
		for j, r := range o.Results {
			results[j] = fromResult(r)
		}
		out[i] = OutcomeResponse{
			Index:   o.Index,
			QueryID: o.QueryID.String(),
			Name:    o.Name,
			Status:  string(o.Status),
			Results: results,
			Error:   o.Error,
		}
	}
	return &BatchResultsResponse{Job: FromJob(job), Outcomes: out}
}
