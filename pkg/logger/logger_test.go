package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		in   string
		want zap.AtomicLevel
	}{
		{"debug", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"WARN", zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"bogus", zap.NewAtomicLevelAt(zap.InfoLevel)},
	}
	for _, tc := range tests {
		l, err := New(tc.in)
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(tc.want.Level()), tc.in)
		if tc.want.Level() > zap.DebugLevel {
			assert.False(t, l.Core().Enabled(tc.want.Level()-1), tc.in)
		}
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "***45", Mask("12345"))
	assert.Equal(t, "**", Mask("12"))
	assert.Equal(t, "", Mask(""))
}
