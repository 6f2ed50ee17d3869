package handler

import (
	"strings"
	"time"

	"vigil/internal/screening/models"
	dErrors "vigil/pkg/domain-errors"
)

// ScreenRequest is the HTTP request body for POST /screen.
type ScreenRequest struct {
	Name        string   `json:"name"`
	BirthDate   string   `json:"birth_date,omitempty"`
	Nationality string   `json:"nationality,omitempty"`
	Schema      string   `json:"schema,omitempty"`
	Countries   []string `json:"countries,omitempty"`
	Threshold   int      `json:"threshold,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	Offset      int      `json:"offset,omitempty"`

	// Parsed values (populated by Validate)
	parsedSchema models.EntitySchema
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ScreenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > 500 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 500 characters")
	}
	if r.Threshold < 0 || r.Threshold > 100 {
		return dErrors.New(dErrors.CodeValidation, "threshold must be within [0,100]")
	}
	if r.Limit < 0 || r.Offset < 0 {
		return dErrors.New(dErrors.CodeValidation, "limit and offset must not be negative")
	}

	schema, err := models.ParseEntitySchema(strings.TrimSpace(r.Schema))
	if err != nil {
		return err
	}
	r.parsedSchema = schema

	r.BirthDate = strings.TrimSpace(r.BirthDate)
	if r.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", r.BirthDate); err != nil {
			return dErrors.New(dErrors.CodeValidation, "birth_date must be YYYY-MM-DD")
		}
	}
	return nil
}

// ToQuery converts the validated request to a domain query.
func (r *ScreenRequest) ToQuery() models.ScreeningQuery {
	return models.ScreeningQuery{
		Name:        r.Name,
		BirthDate:   r.BirthDate,
		Nationality: strings.TrimSpace(r.Nationality),
		Schema:      r.parsedSchema,
		Countries:   r.Countries,
		Threshold:   r.Threshold,
		Limit:       r.Limit,
		Offset:      r.Offset,
	}
}

// BatchRequest is the HTTP request body for POST /screen/batch. Item-level
// validation happens inside the batch workers so one malformed query is an
// item failure, not a rejected submission.
type BatchRequest struct {
	Queries []BatchItem `json:"queries"`
}

// BatchItem is one query in a batch submission.
type BatchItem struct {
	Name        string   `json:"name"`
	BirthDate   string   `json:"birth_date,omitempty"`
	Nationality string   `json:"nationality,omitempty"`
	Schema      string   `json:"schema,omitempty"`
	Countries   []string `json:"countries,omitempty"`
	Threshold   int      `json:"threshold,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// Validate checks the submission shape only.
func (r *BatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Queries) == 0 {
		return dErrors.New(dErrors.CodeValidation, "queries must not be empty")
	}
	return nil
}

// ToQueries converts the submission to domain queries.
func (r *BatchRequest) ToQueries() []models.ScreeningQuery {
	queries := make([]models.ScreeningQuery, len(r.Queries))
	for i, item := range r.Queries {
		queries[i] = models.ScreeningQuery{
			Name:        strings.TrimSpace(item.Name),
			BirthDate:   strings.TrimSpace(item.BirthDate),
			Nationality: strings.TrimSpace(item.Nationality),
			Schema:      models.EntitySchema(strings.TrimSpace(item.Schema)),
			Countries:   item.Countries,
			Threshold:   item.Threshold,
			Limit:       item.Limit,
		}
	}
	return queries
}
