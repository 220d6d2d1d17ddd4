package progress

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCell(t *testing.T) {
	rec := &Recorder{}
	obs := WithCell(rec, "pure_python", "pypy")

	obs.Observe(Event{Kind: KindTrialFinished, Index: 1, Total: 3})
	obs.Observe(Event{Kind: KindTrialFinished, Runtime: "explicit"})

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "pure_python", events[0].Workload)
	assert.Equal(t, "pypy", events[0].Runtime)
	assert.Equal(t, "explicit", events[1].Runtime)
}

func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	obs := Multi(a, nil, b)

	obs.Observe(Event{Kind: KindRunStarted})

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestRecorder_OfKind(t *testing.T) {
	rec := &Recorder{}
	rec.Observe(Event{Kind: KindWarmupFinished})
	rec.Observe(Event{Kind: KindTrialFinished})
	rec.Observe(Event{Kind: KindTrialFinished})

	assert.Len(t, rec.OfKind(KindTrialFinished), 2)
	assert.Len(t, rec.OfKind(KindWarmupFinished), 1)
	assert.Empty(t, rec.OfKind(KindCellFinished))
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer

	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.InfoLevel)

	obs := NewLogObserver(log)
	obs.Observe(Event{Kind: KindTrialFinished, Workload: "mixed_io", Runtime: "uv", Index: 2, Total: 3, ExitCode: 1})
	obs.Observe(Event{Kind: KindWarmupFinished, Index: 1, Total: 2, TimedOut: true})

	out := buf.String()
	assert.Contains(t, out, "Trial failed")
	assert.Contains(t, out, "workload=mixed_io")
	assert.Contains(t, out, "runtime=uv")
	assert.Contains(t, out, "Warmup timed out")
}

func TestEvent_Passed(t *testing.T) {
	assert.True(t, Event{ExitCode: 0}.Passed())
	assert.False(t, Event{ExitCode: 2}.Passed())
	assert.False(t, Event{ExitCode: -1, TimedOut: true}.Passed())
}
