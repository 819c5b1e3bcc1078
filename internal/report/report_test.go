package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/bustcall/pkg/logging"
)

func intPtr(v int) *int { return &v }

func criticalResult() *Result {
	start := time.Date(2025, 9, 19, 1, 17, 28, 0, time.UTC)
	r := NewResult("corrupt-pkg", start, start.Add(1500*time.Microsecond))
	r.Score = intPtr(10)
	r.Tier = "critical"
	r.Action = "invalidate+restart"
	r.Backend = "fs"
	r.Handle = "fs:/tmp/cache/corrupt-pkg"
	r.Invalidation = "already_absent"
	r.RestartRequested = true
	r.ExitCode = 1
	return r
}

func TestNewResultAssignsInvocationID(t *testing.T) {
	a := NewResult("x", time.Now(), time.Now())
	b := NewResult("x", time.Now(), time.Now())

	assert.Len(t, a.InvocationID, 36)
	assert.NotEqual(t, a.InvocationID, b.InvocationID)
}

func TestSummary(t *testing.T) {
	r := criticalResult()

	assert.Equal(t,
		"BUST corrupt-pkg | score=10 | tier=critical | action=invalidate+restart | invalidation=already_absent | restart=true | exit=1 | runtime=1.5ms",
		r.Summary())

	failed := NewResult("left-pad", r.StartTime, r.StartTime)
	failed.Error = "probe failed"
	failed.ExitCode = 2
	assert.Equal(t, `BUST left-pad | error="probe failed" | exit=2 | runtime=0s`, failed.Summary())
}

func TestLogSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.DEBUG, false)
	logger.SetOutput(&buf)

	r := criticalResult()
	r.LogSummary(logger)

	assert.Contains(t, buf.String(), "DEBUG: BUST corrupt-pkg")
	assert.Contains(t, buf.String(), "invocation_id="+r.InvocationID)
}

func TestWriteJSON(t *testing.T) {
	r := criticalResult()
	r.SetStages(map[string]time.Duration{"probe": 250 * time.Millisecond})

	var buf bytes.Buffer
	require.NoError(t, r.WriteJSON(&buf))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "corrupt-pkg", decoded["package"])
	assert.Equal(t, float64(10), decoded["score"])
	assert.Equal(t, "critical", decoded["tier"])
	assert.Equal(t, true, decoded["restart_requested"])
	assert.Equal(t, 0.25, decoded["stage_seconds"].(map[string]interface{})["probe"])
	assert.NotContains(t, decoded, "error")
}

func TestRecordResult(t *testing.T) {
	m := NewMetrics()

	m.RecordResult(criticalResult())

	ok := NewResult("left-pad", time.Now(), time.Now())
	ok.Score = intPtr(2)
	ok.Tier = "ok"
	ok.Action = "none"
	m.RecordResult(ok)

	failed := NewResult("broken", time.Now(), time.Now())
	failed.Error = "probe failed"
	m.RecordResult(failed)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.invocations.WithLabelValues("critical")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.invocations.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.invalidations.WithLabelValues("fs", "already_absent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.restarts))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failures))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.lastScore))
}

func TestRecordResultSkipsDryRunInvalidation(t *testing.T) {
	m := NewMetrics()

	r := criticalResult()
	r.Invalidation = InvalidationSkipped
	r.RestartRequested = false
	m.RecordResult(r)

	count, err := testutil.GatherAndCount(m.Registry(), "bustcall_invalidations_total")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestEncode(t *testing.T) {
	m := NewMetrics()
	m.RecordResult(criticalResult())

	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf))

	out := buf.String()
	assert.Contains(t, out, `bustcall_invocations_total{tier="critical"} 1`)
	assert.Contains(t, out, "# TYPE bustcall_restarts_requested_total counter")
	assert.Contains(t, out, "bustcall_pipeline_duration_seconds_count 1")
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordResult(criticalResult())

	path := filepath.Join(t.TempDir(), "bustcall.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "bustcall_restarts_requested_total 1"))

	assert.Error(t, m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom")))
}
