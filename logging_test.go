package atmosphere

import (
	"bytes"
	"testing"

	"github.com/gekko3d/atmosphere/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogger_Levels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewWriterLogger("atmo", false, &out, &errOut)

	l.Debugf("hidden %d", 1)
	assert.Empty(t, out.String())

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("shown %d", 2)
	l.Infof("info")
	l.Warnf("warn")
	l.Errorf("error %s", "x")

	assert.Contains(t, out.String(), "[atmo] DEBUG: shown 2")
	assert.Contains(t, out.String(), "[atmo] INFO: info")
	assert.NotContains(t, out.String(), "WARN")
	assert.Contains(t, errOut.String(), "[atmo] WARN: warn")
	assert.Contains(t, errOut.String(), "[atmo] ERROR: error x")
}

func TestDefaultLogger_NoPrefix(t *testing.T) {
	var out bytes.Buffer
	l := NewWriterLogger("", true, &out, &out)
	l.Infof("plain")
	assert.Contains(t, out.String(), "INFO: plain")
	assert.NotContains(t, out.String(), "[")
}

func TestBuilder_LogsThroughOption(t *testing.T) {
	var out bytes.Buffer
	log := NewWriterLogger("atmo", true, &out, &out)
	b, err := NewBuilder(gputest.NewDevice(), testShaders(), nil, 0, nil, WithLogger(log))
	assert.NoError(t, err)
	b.Destroy()
	assert.Contains(t, out.String(), "atmosphere builder ready")

	nop := NewNopLogger()
	nop.SetDebug(true)
	assert.False(t, nop.DebugEnabled())
}

func TestDefaultLogger_With(t *testing.T) {
	var out bytes.Buffer
	root := NewWriterLogger("atmodump", false, &out, &out)
	run := root.With("3f2a9c1e")
	run.Debugf("hidden")
	assert.Empty(t, out.String())

	root.SetDebug(true)
	assert.True(t, run.DebugEnabled())
	run.Debugf("recorded")
	assert.Contains(t, out.String(), "[atmodump/3f2a9c1e] DEBUG: recorded")

	out.Reset()
	NewWriterLogger("", false, &out, &out).With("run").Infof("x")
	assert.Contains(t, out.String(), "[run] INFO: x")

	assert.Equal(t, NewNopLogger(), NewNopLogger().With("run"))
}

func TestBuild_LogsUnderRunID(t *testing.T) {
	var out bytes.Buffer
	log := NewWriterLogger("atmo", true, &out, &out)
	b, err := NewBuilder(gputest.NewDevice(), testShaders(), nil, 0, nil, WithLogger(log))
	require.NoError(t, err)
	defer b.Destroy()

	pending, err := b.Build(DefaultParameters(), gputest.NewCommandBuffer())
	require.NoError(t, err)
	atm := pending.AssertReady()
	atm.Destroy()

	tag := "[atmo/" + atm.RunID().String()[:8] + "]"
	assert.Contains(t, out.String(), tag+" DEBUG: recorded: order")
	assert.Contains(t, out.String(), tag+" DEBUG: destroyed")
}
