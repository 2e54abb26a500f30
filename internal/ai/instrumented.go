// file: internal/ai/instrumented.go
// version: 1.0.0
// guid: 65df2210-c16f-49f7-8725-6d76941b63f4

package ai

import (
	"context"
	"sync/atomic"

	"github.com/jdfalk/cpe-resolver/internal/metrics"
)

// InstrumentedCompleter counts calls and in-flight requests around another Completer
type InstrumentedCompleter struct {
	next     Completer
	inFlight atomic.Int64
	peak     atomic.Int64
	calls    atomic.Int64
	failures atomic.Int64
}

// Instrument wraps c
func Instrument(c Completer) *InstrumentedCompleter {
	return &InstrumentedCompleter{next: c}
}

// Name returns the wrapped backend's name
func (i *InstrumentedCompleter) Name() string {
	return i.next.Name()
}

// Complete forwards to the wrapped backend
func (i *InstrumentedCompleter) Complete(ctx context.Context, req Request) (string, error) {
	n := i.inFlight.Add(1)
	for {
		p := i.peak.Load()
		if n <= p || i.peak.CompareAndSwap(p, n) {
			break
		}
	}
	metrics.IncExternalInFlight()
	defer func() {
		i.inFlight.Add(-1)
		metrics.DecExternalInFlight()
	}()

	i.calls.Add(1)
	out, err := i.next.Complete(ctx, req)
	if err != nil {
		i.failures.Add(1)
		metrics.IncGenerationCall(i.next.Name(), "error")
		return "", err
	}
	metrics.IncGenerationCall(i.next.Name(), "ok")
	return out, nil
}

// InFlight returns the number of calls currently running
func (i *InstrumentedCompleter) InFlight() int64 { return i.inFlight.Load() }

// Peak returns the highest number of concurrent calls observed
func (i *InstrumentedCompleter) Peak() int64 { return i.peak.Load() }

// Calls returns the total number of calls made
func (i *InstrumentedCompleter) Calls() int64 { return i.calls.Load() }

// Failures returns the number of calls that returned an error
func (i *InstrumentedCompleter) Failures() int64 { return i.failures.Load() }
