// file: internal/metrics/metrics_test.go
// version: 2.0.0
// guid: cad03ac0-6eb2-43df-bb9d-14e1173daf79

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	Register()
	Register()
}

func TestIncResolutionCompleted(t *testing.T) {
	before := testutil.ToFloat64(resolutionCompleted.WithLabelValues("Exact"))
	IncResolutionCompleted("Exact", 1)
	assert.Equal(t, before+1, testutil.ToFloat64(resolutionCompleted.WithLabelValues("Exact")))
}

func TestIncResolutionStarted(t *testing.T) {
	before := testutil.ToFloat64(resolutionStarted)
	IncResolutionStarted()
	assert.Equal(t, before+1, testutil.ToFloat64(resolutionStarted))
}

func TestExternalInFlight(t *testing.T) {
	before := testutil.ToFloat64(externalInFlight)
	IncExternalInFlight()
	IncExternalInFlight()
	DecExternalInFlight()
	assert.Equal(t, before+1, testutil.ToFloat64(externalInFlight))
	DecExternalInFlight()
}

func TestObserveRateLimitWait(t *testing.T) {
	before := testutil.ToFloat64(rateLimitWaits)
	ObserveRateLimitWait(1500 * time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(rateLimitWaits))
}

func TestObserveStageDuration(t *testing.T) {
	ObserveStageDuration("parse", 100*time.Millisecond)
}

func TestIncGenerationCall(t *testing.T) {
	IncGenerationCall("ollama", "ok")
	assert.Equal(t, 1.0, testutil.ToFloat64(generationCalls.WithLabelValues("ollama", "ok")))
}

func TestIncCacheLookup(t *testing.T) {
	IncCacheLookup("hit")
}

func TestSetIndexDocuments(t *testing.T) {
	SetIndexDocuments(42)
	assert.Equal(t, 42.0, testutil.ToFloat64(indexDocuments))
}

func TestHTTPCounters(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("/api/v1/resolve", "200"))
	IncHTTPRequest("/api/v1/resolve", 200)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("/api/v1/resolve", "200")))

	rejected := testutil.ToFloat64(httpRejected.WithLabelValues("rate_limit"))
	IncHTTPRejected("rate_limit")
	assert.Equal(t, rejected+1, testutil.ToFloat64(httpRejected.WithLabelValues("rate_limit")))
}
