package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// These tests swap the package logger and must not run in parallel.

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Logf("frame %d", 3)
	assert.Equal(t, "frame 3", got)

	got = ""
	SetLogger(nil)
	Logf("muted")
	assert.Empty(t, got)
}

func TestLogf_Default(t *testing.T) {
	require.NotNil(t, Logf)
	assert.NotPanics(t, func() { Logf("test message: %s", "value") })
}

func TestUseZap(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	core, logs := observer.New(zap.InfoLevel)
	UseZap(zap.New(core))
	Logf("Processing file %s (%d frames) [%d/%d]", "a.y4m", 10, 1, 2)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Processing file a.y4m (10 frames) [1/2]", entries[0].Message)

	UseZap(nil)
	Logf("muted")
	assert.Equal(t, 1, logs.Len())
}

func TestNewZap(t *testing.T) {
	for _, j := range []bool{true, false} {
		l, err := NewZap(j)
		require.NoError(t, err)
		assert.NotNil(t, l)
	}
}
