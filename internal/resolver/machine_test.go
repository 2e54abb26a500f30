// file: internal/resolver/machine_test.go
// version: 1.0.0
// guid: 679b41f7-7814-4e07-8417-afbfc36ba03f

package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

var edgeID = models.ParsedIdentity{Vendor: "microsoft", Product: "edge", Version: "100"}

func TestMachineFastPathSkipsScorer(t *testing.T) {
	parser := &stubParser{ids: []models.ParsedIdentity{edgeID}}
	retriever := &stubRetriever{result: Retrieval{FromCatalog: true, Candidates: []models.Candidate{
		candidate("1", "microsoft", "edge", "99"),
		candidate("2", "microsoft", "edge", "100"),
		candidate("3", "microsoft", "edge", "101"),
	}}}
	scorer := &stubScorer{}
	auditor := &stubAuditor{}

	m := NewMachine(parser, retriever, scorer, auditor, MachineConfig{MaxRetries: 1})
	s := m.Run(context.Background(), "Microsoft Edge 100", nil)

	assert.Equal(t, TerminalResolved, s.Terminal)
	assert.Equal(t, int32(0), scorer.calls.Load())
	assert.Equal(t, int32(1), auditor.calls.Load())
	require.NotNil(t, s.Decision)
	assert.Equal(t, 100, s.Decision.Confidence)
	assert.Equal(t, models.MatchExact, s.Decision.MatchType)
	assert.Equal(t, "2", s.Decision.MatchedCandidateID)
	assert.Equal(t, 1, s.Attempts)
}

func TestMachineBoundedRetries(t *testing.T) {
	parser := &stubParser{ids: []models.ParsedIdentity{edgeID}}
	retriever := &stubRetriever{result: Retrieval{Candidates: []models.Candidate{candidate("1", "microsoft", "edge", "99")}}}
	scorer := &stubScorer{}
	auditor := &stubAuditor{restart: true}

	m := NewMachine(parser, retriever, scorer, auditor, MachineConfig{MaxRetries: 2})
	s := m.Run(context.Background(), "Microsoft Edge", nil)

	assert.Equal(t, TerminalNoMatch, s.Terminal)
	assert.Equal(t, 3, s.Attempts)
	assert.Equal(t, int32(3), parser.calls.Load())
	assert.Equal(t, int32(3), scorer.calls.Load())
}

func TestMachineAlwaysRestartingAuditWithUsableDecision(t *testing.T) {
	c := candidate("1", "microsoft", "edge", "99")
	parser := &stubParser{ids: []models.ParsedIdentity{edgeID}}
	retriever := &stubRetriever{result: Retrieval{Candidates: []models.Candidate{c}}}
	scorer := &stubScorer{decision: &models.MatchDecision{MatchType: models.MatchPossible, Confidence: 60, MatchedCandidateID: "1", Candidate: &c}}
	auditor := &stubAuditor{restart: true}

	m := NewMachine(parser, retriever, scorer, auditor, MachineConfig{MaxRetries: 2})
	s := m.Run(context.Background(), "Microsoft Edge", nil)

	assert.Equal(t, 3, s.Attempts)
	assert.Equal(t, int32(3), auditor.calls.Load())
	assert.Equal(t, TerminalResolved, s.Terminal)
}

func TestMachineRestartPassesHistory(t *testing.T) {
	first := models.ParsedIdentity{Vendor: "acme", Product: "widget", Version: "1"}
	second := models.ParsedIdentity{Vendor: "acme", Product: "widget_pro", Version: "1"}
	parser := &stubParser{ids: []models.ParsedIdentity{first, second}}
	retriever := &stubRetriever{}

	m := NewMachine(parser, retriever, &stubScorer{}, &stubAuditor{}, MachineConfig{MaxRetries: 1})
	s := m.Run(context.Background(), "Acme Widget 1", nil)

	assert.Equal(t, TerminalNoMatch, s.Terminal)
	assert.Equal(t, 2, s.Attempts)
	require.Len(t, parser.seen, 2)
	assert.Empty(t, parser.seen[0])
	assert.Equal(t, []models.ParsedIdentity{first}, parser.seen[1])
	assert.Equal(t, []models.ParsedIdentity{first, second}, s.ParseHistory)
}

func TestMachineParseHistoryBound(t *testing.T) {
	ids := []models.ParsedIdentity{
		{Vendor: "a", Product: "p1"}, {Vendor: "a", Product: "p2"}, {Vendor: "a", Product: "p3"},
	}
	parser := &stubParser{ids: ids}
	retriever := &stubRetriever{}
	scorer := &stubScorer{}

	m := NewMachine(parser, retriever, scorer, &stubAuditor{}, MachineConfig{MaxRetries: 10, MaxParseHistory: 2})
	s := m.Run(context.Background(), "alias", nil)

	assert.Equal(t, TerminalNoMatch, s.Terminal)
	assert.Len(t, s.ParseHistory, 3)
	assert.Equal(t, 2, s.Attempts)
	assert.Equal(t, int32(2), scorer.calls.Load())
}

func TestMachineParseFailure(t *testing.T) {
	parser := &stubParser{err: errors.New("model unavailable")}
	retriever := &stubRetriever{}
	m := NewMachine(parser, retriever, &stubScorer{}, &stubAuditor{}, MachineConfig{MaxRetries: 2})

	s := m.Run(context.Background(), "x", nil)
	assert.Equal(t, TerminalError, s.Terminal)
	assert.Equal(t, 0, s.Attempts)
	kind, _ := KindOf(s.Err)
	assert.Equal(t, ParseFailure, kind)
	assert.Equal(t, int32(0), retriever.calls.Load())
}

func TestMachineStageFailures(t *testing.T) {
	tests := []struct {
		name      string
		retriever *stubRetriever
		scorer    *stubScorer
		wantKind  ErrorKind
	}{
		{
			name:      "retrieval",
			retriever: &stubRetriever{err: errors.New("db locked")},
			scorer:    &stubScorer{},
			wantKind:  RetrievalFailure,
		},
		{
			name:      "validation index",
			retriever: &stubRetriever{err: stageError(ValidationIndexOutOfRange, PhaseRetrieving, errors.New("index 9"))},
			scorer:    &stubScorer{},
			wantKind:  ValidationIndexOutOfRange,
		},
		{
			name:      "scoring",
			retriever: &stubRetriever{result: Retrieval{Candidates: []models.Candidate{candidate("1", "v", "p", "1")}}},
			scorer:    &stubScorer{err: errors.New("bad json")},
			wantKind:  ScoringFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(&stubParser{ids: []models.ParsedIdentity{edgeID}}, tt.retriever, tt.scorer, &stubAuditor{}, MachineConfig{})
			s := m.Run(context.Background(), "x", nil)
			assert.Equal(t, TerminalError, s.Terminal)
			kind, ok := KindOf(s.Err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestMachineAuditFailureRestarts(t *testing.T) {
	c := candidate("1", "microsoft", "edge", "100")
	parser := &stubParser{ids: []models.ParsedIdentity{edgeID}}
	retriever := &stubRetriever{result: Retrieval{Candidates: []models.Candidate{c}}}
	scorer := &stubScorer{decision: &models.MatchDecision{MatchType: models.MatchExact, Confidence: 100, MatchedCandidateID: "1", Candidate: &c}}
	auditor := &stubAuditor{err: errors.New("timeout")}

	m := NewMachine(parser, retriever, scorer, auditor, MachineConfig{MaxRetries: 1})
	s := m.Run(context.Background(), "Edge 100", nil)

	assert.Equal(t, TerminalResolved, s.Terminal)
	assert.Equal(t, 2, s.Attempts)
	assert.Contains(t, s.Diagnostics[len(s.Diagnostics)-1], "audit failed")
}

func TestMachineRecordsRepeatedParse(t *testing.T) {
	other := models.ParsedIdentity{Vendor: "microsoft", Product: "edge_beta", Version: "100"}
	parser := &stubParser{ids: []models.ParsedIdentity{edgeID, other, edgeID}}
	retriever := &stubRetriever{result: Retrieval{Candidates: []models.Candidate{candidate("1", "microsoft", "edge", "99")}}}

	m := NewMachine(parser, retriever, &stubScorer{}, &stubAuditor{restart: true}, MachineConfig{MaxRetries: 2})
	s := m.Run(context.Background(), "Microsoft Edge", nil)

	var repeats []string
	for _, d := range s.Diagnostics {
		if strings.Contains(d, "re-parse repeated") {
			repeats = append(repeats, d)
		}
	}
	assert.Equal(t, []string{"re-parse repeated vendor=microsoft product=edge"}, repeats)
	assert.Len(t, s.ParseHistory, 2)
}

func TestMachineCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMachine(&stubParser{ids: []models.ParsedIdentity{edgeID}}, &stubRetriever{}, &stubScorer{}, &stubAuditor{}, MachineConfig{})
	s := m.Run(ctx, "x", nil)
	assert.Equal(t, TerminalError, s.Terminal)
	assert.ErrorIs(t, s.Err, context.Canceled)
}

func TestMachineTransitionTable(t *testing.T) {
	m := NewMachine(nil, nil, nil, nil, MachineConfig{MaxRetries: 1, MaxParseHistory: 1})
	withHistory := func(n int) State {
		s := NewState("x")
		for i := 0; i < n; i++ {
			s = s.WithIdentity(models.ParsedIdentity{Product: string(rune('a' + i))})
		}
		return s
	}

	assert.Equal(t, PhaseRetrieving, m.next(PhaseParsing, withHistory(1)))
	assert.Equal(t, PhaseDone, m.next(PhaseParsing, NewState("x").Fail(errors.New("x"))))
	assert.Equal(t, PhaseScoring, m.next(PhaseRetrieving, withHistory(1)))
	assert.Equal(t, PhaseDone, m.next(PhaseRetrieving, withHistory(2)))
	assert.Equal(t, PhaseNarrowing, m.next(PhaseRetrieving,
		withHistory(1).WithCandidates([]models.Candidate{candidate("1", "v", "p", "1")}, true)))
	assert.Equal(t, PhaseAuditing, m.next(PhaseNarrowing, NewState("x").WithFastPath(candidate("1", "v", "p", "1"))))
	assert.Equal(t, PhaseScoring, m.next(PhaseNarrowing, NewState("x")))
	assert.Equal(t, PhaseAuditing, m.next(PhaseScoring, NewState("x")))

	restart := NewState("x").WithAudit(models.AuditOutcome{Restart: true})
	assert.Equal(t, PhaseParsing, m.next(PhaseAuditing, restart))
	assert.Equal(t, PhaseDone, m.next(PhaseAuditing, restart.WithAudit(models.AuditOutcome{Restart: true})))
	assert.Equal(t, PhaseDone, m.next(PhaseAuditing, NewState("x").WithAudit(models.AuditOutcome{})))
}

func TestMachineEmitsStageSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	m := NewMachine(&stubParser{ids: []models.ParsedIdentity{edgeID}},
		&stubRetriever{err: errors.New("offline")}, &stubScorer{}, &stubAuditor{}, MachineConfig{})
	m.Run(context.Background(), "Edge", nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "resolver.parsing", spans[0].Name())
	assert.Equal(t, "resolver.retrieving", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
