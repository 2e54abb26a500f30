// file: internal/resolver/machine.go
// version: 1.0.0
// guid: 356cc797-71a9-4c2e-95ca-076000f37375

package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jdfalk/cpe-resolver/internal/logging"
	"github.com/jdfalk/cpe-resolver/internal/matcher"
	"github.com/jdfalk/cpe-resolver/internal/metrics"
	"github.com/jdfalk/cpe-resolver/internal/models"
)

const tracerName = "github.com/jdfalk/cpe-resolver/internal/resolver"

// DefaultMaxParseHistory bounds parse attempts that keep retrieving nothing
const DefaultMaxParseHistory = 3

// MachineConfig tunes the state machine
type MachineConfig struct {
	MaxRetries      int
	MaxParseHistory int
	MinorThreshold  int
}

// Machine sequences the pipeline stages for one alias using an explicit
// transition table
type Machine struct {
	parser    Parser
	retriever Retriever
	scorer    Scorer
	auditor   Auditor
	cfg       MachineConfig
}

// NewMachine wires the stages together
func NewMachine(p Parser, r Retriever, s Scorer, a Auditor, cfg MachineConfig) *Machine {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxParseHistory <= 0 {
		cfg.MaxParseHistory = DefaultMaxParseHistory
	}
	if cfg.MinorThreshold <= 0 {
		cfg.MinorThreshold = matcher.DefaultMinorThreshold
	}
	return &Machine{parser: p, retriever: r, scorer: s, auditor: a, cfg: cfg}
}

type stageFunc func(ctx context.Context, s State) State

type transition struct {
	when func(State) bool
	next Phase
}

func always(State) bool { return true }

func (m *Machine) stages() map[Phase]stageFunc {
	return map[Phase]stageFunc{
		PhaseParsing:    m.parse,
		PhaseRetrieving: m.retrieve,
		PhaseNarrowing:  m.narrow,
		PhaseScoring:    m.score,
		PhaseAuditing:   m.audit,
	}
}

// transitions is evaluated top to bottom; the first matching row wins. A
// state carrying a terminal always moves to PhaseDone before the table is
// consulted.
func (m *Machine) transitions() map[Phase][]transition {
	return map[Phase][]transition{
		PhaseParsing: {
			{always, PhaseRetrieving},
		},
		PhaseRetrieving: {
			{m.parsesExhausted, PhaseDone},
			{func(s State) bool { return s.NeedsNarrowing }, PhaseNarrowing},
			{always, PhaseScoring},
		},
		PhaseNarrowing: {
			{func(s State) bool { return s.FastPath != nil }, PhaseAuditing},
			{always, PhaseScoring},
		},
		PhaseScoring: {
			{always, PhaseAuditing},
		},
		PhaseAuditing: {
			{m.shouldRestart, PhaseParsing},
			{always, PhaseDone},
		},
	}
}

func (m *Machine) parsesExhausted(s State) bool {
	return len(s.Candidates) == 0 && len(s.ParseHistory) > m.cfg.MaxParseHistory
}

func (m *Machine) shouldRestart(s State) bool {
	return s.Audit != nil && s.Audit.Restart && s.Attempts <= m.cfg.MaxRetries
}

func (m *Machine) next(from Phase, s State) Phase {
	if s.Done() {
		return PhaseDone
	}
	for _, t := range m.transitions()[from] {
		if t.when(s) {
			return t.next
		}
	}
	return PhaseDone
}

// maxSteps bounds the loop independently of the transition table
func (m *Machine) maxSteps() int {
	return (m.cfg.MaxRetries + 2) * 8
}

// Run drives one alias to a terminal state. log may be nil.
func (m *Machine) Run(ctx context.Context, alias string, log *logging.ServiceLogger) State {
	if log == nil {
		log = logging.NewServiceLogger("resolver", "")
	}
	stages := m.stages()
	s := NewState(alias)
	for step := 0; ; step++ {
		if s.Phase == PhaseDone {
			return m.finish(s, log)
		}
		if step >= m.maxSteps() {
			return s.Fail(fmt.Errorf("resolution exceeded %d steps", m.maxSteps()))
		}
		if err := ctx.Err(); err != nil {
			return s.Fail(err)
		}
		from := s.Phase
		s = m.instrument(ctx, from, s, stages[from], log)
		s = s.WithPhase(m.next(from, s))
	}
}

func (m *Machine) finish(s State, log *logging.ServiceLogger) State {
	if !s.Done() {
		if s.Decision.Usable() {
			s = s.Finish(TerminalResolved)
		} else {
			s = s.Finish(TerminalNoMatch)
		}
	}
	if s.Terminal == TerminalError {
		log.LogError("resolve", s.Err)
	} else {
		log.LogOperation("resolve", map[string]any{"terminal": s.Terminal, "attempts": s.Attempts})
	}
	return s
}

func (m *Machine) instrument(ctx context.Context, phase Phase, s State, fn stageFunc, log *logging.ServiceLogger) State {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "resolver."+string(phase),
		trace.WithAttributes(
			attribute.String("alias", s.Alias),
			attribute.Int("attempts", s.Attempts),
			attribute.Int("parse_history", len(s.ParseHistory)),
		),
	)
	defer span.End()

	stop := log.LogExecutionTime(string(phase))
	out := fn(ctx, s)
	metrics.ObserveStageDuration(string(phase), stop())

	span.SetAttributes(attribute.Int("candidates", len(out.Candidates)))
	if out.Terminal == TerminalError && !s.Done() {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Err.Error())
	}
	return out
}

func (m *Machine) parse(ctx context.Context, s State) State {
	id, err := m.parser.Parse(ctx, s.Alias, s.ParseHistory)
	if err != nil {
		return s.Fail(stageError(ParseFailure, PhaseParsing, err))
	}
	n := s.WithIdentity(id)
	if repeatsHistory(id, s.ParseHistory) {
		n = n.WithDiagnostic(fmt.Sprintf("re-parse repeated vendor=%s product=%s", id.Vendor, id.Product))
	}
	return n
}

func (m *Machine) retrieve(ctx context.Context, s State) State {
	if s.Identity == nil {
		return s.Fail(stageError(RetrievalFailure, PhaseRetrieving, errors.New("retrieval without a parsed identity")))
	}
	r, err := m.retriever.Retrieve(ctx, s.Alias, *s.Identity)
	if err != nil {
		var se *StageError
		if !errors.As(err, &se) {
			err = stageError(RetrievalFailure, PhaseRetrieving, err)
		}
		return s.Fail(err)
	}
	n := s.WithCandidates(r.Candidates, r.FromCatalog && len(r.Candidates) > 0)
	for _, d := range r.Diagnostics {
		n = n.WithDiagnostic(d)
	}
	if len(r.Candidates) == 0 {
		n = n.WithDiagnostic(fmt.Sprintf("%v for vendor=%s product=%s", ErrNoCandidates, s.Identity.Vendor, s.Identity.Product))
	}
	return n
}

func (m *Machine) narrow(_ context.Context, s State) State {
	res := matcher.NarrowVersions(s.Candidates, s.Identity.Version, m.cfg.MinorThreshold)
	if res.FastPath != nil {
		return s.WithFastPath(*res.FastPath)
	}
	return s.WithCandidates(res.Candidates, false)
}

func (m *Machine) score(ctx context.Context, s State) State {
	d, err := m.scorer.Score(ctx, s.Alias, *s.Identity, s.Candidates)
	if err != nil {
		var se *StageError
		if !errors.As(err, &se) {
			err = stageError(ScoringFailure, PhaseScoring, err)
		}
		return s.Fail(err)
	}
	if d == nil {
		d = &models.MatchDecision{MatchType: models.MatchNone, Reasoning: "scorer returned no decision"}
	}
	n := s.WithDecision(d)
	if d.LookupFailed {
		n = n.WithDiagnostic(fmt.Sprintf("scorer selected unknown candidate %q", d.MatchedCandidateID))
	}
	for _, pm := range d.PossibleMatches {
		if pm.LookupFailed {
			n = n.WithDiagnostic(fmt.Sprintf("scorer listed unknown possible match %q", pm.CandidateID))
		}
	}
	return n
}

// audit never ends a resolution by itself. Every call counts as one attempt.
func (m *Machine) audit(ctx context.Context, s State) State {
	if !s.Decision.Usable() {
		return s.WithAudit(models.AuditOutcome{Restart: true, Reasoning: "no usable match"})
	}
	start := time.Now()
	out, err := m.auditor.Audit(ctx, s.Alias, s.Decision, s.Attempts)
	if err != nil {
		out.Restart = true
	}
	n := s.WithAudit(out)
	if err != nil {
		n = n.WithDiagnostic(fmt.Sprintf("audit failed after %v, restarting: %v", time.Since(start).Round(time.Millisecond), err))
	}
	return n
}
