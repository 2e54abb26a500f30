// file: internal/server/response_types.go
// version: 2.0.0
// guid: 55a18759-c237-4439-8000-6b4da7b34123

package server

import (
	"github.com/jdfalk/cpe-resolver/internal/models"
)

// ResolveRequest is the body of POST /api/v1/resolve
type ResolveRequest struct {
	Aliases []string `json:"aliases" binding:"required,min=1,dive,required"`
}

// ResolveResponse returns one record per requested alias, in request order
type ResolveResponse struct {
	RunID   string                `json:"run_id"`
	Count   int                   `json:"count"`
	Summary map[string]int        `json:"summary"`
	Results []models.OutputRecord `json:"results"`
}

// ListResponse provides a consistent format for list responses
type ListResponse struct {
	Items any `json:"items"`
	Count int `json:"count"`
	Limit int `json:"limit"`
}

// StatusResponse provides a consistent format for status check responses
type StatusResponse struct {
	Status string `json:"status"` // "ok", "degraded"
	Code   string `json:"code,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// NewListResponse creates a new ListResponse
func NewListResponse(items any, count int, limit int) *ListResponse {
	return &ListResponse{
		Items: items,
		Count: count,
		Limit: limit,
	}
}

// NewResolveResponse tallies records by match type
func NewResolveResponse(runID string, recs []models.OutputRecord) *ResolveResponse {
	summary := make(map[string]int)
	for _, r := range recs {
		summary[string(r.MatchType)]++
	}
	if recs == nil {
		recs = []models.OutputRecord{}
	}
	return &ResolveResponse{RunID: runID, Count: len(recs), Summary: summary, Results: recs}
}

// NewStatusResponse creates a new StatusResponse
func NewStatusResponse(status string, code string, data any) *StatusResponse {
	return &StatusResponse{
		Status: status,
		Code:   code,
		Data:   data,
	}
}
