// file: internal/resolver/audit.go
// version: 1.0.0
// guid: 729bfdfb-e8d0-4827-b158-fd05939c05e1

package resolver

import (
	"context"

	"github.com/jdfalk/cpe-resolver/internal/ai"
	"github.com/jdfalk/cpe-resolver/internal/models"
)

// Auditor performs the secondary plausibility check on a selection
type Auditor interface {
	Audit(ctx context.Context, alias string, d *models.MatchDecision, attempts int) (models.AuditOutcome, error)
}

// LLMAuditor asks the text-generation backend whether the selected record
// plausibly identifies the alias.
type LLMAuditor struct {
	LLM ai.Completer
}

type auditResponse struct {
	Restart   ai.FlexBool   `json:"restart"`
	Reasoning ai.FlexString `json:"reasoning"`
}

// Audit implements Auditor. A decision without a usable candidate always
// restarts. When the backend fails the outcome is a restart and the error
// is returned alongside it for diagnostics.
func (a *LLMAuditor) Audit(ctx context.Context, alias string, d *models.MatchDecision, attempts int) (models.AuditOutcome, error) {
	if !d.Usable() {
		return models.AuditOutcome{Restart: true, Reasoning: "no usable match to audit"}, nil
	}
	var resp auditResponse
	err := ai.CompleteJSON(ctx, a.LLM, ai.Request{
		System:     auditSystemPrompt,
		User:       auditUserPrompt(alias, d),
		Schema:     auditSchema,
		SchemaName: "audit_outcome",
		Retry:      attempts > 0,
	}, &resp)
	if err != nil {
		return models.AuditOutcome{Restart: true, Reasoning: "audit unavailable"},
			stageError(AuditFailure, PhaseAuditing, err)
	}
	return models.AuditOutcome{Restart: bool(resp.Restart), Reasoning: string(resp.Reasoning)}, nil
}
