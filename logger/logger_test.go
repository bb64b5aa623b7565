package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLevels(t *testing.T) {
	for _, debug := range []bool{false, true} {
		l, err := New(debug)
		require.NoError(t, err)
		assert.Equal(t, debug, l.Core().Enabled(zap.DebugLevel))
		assert.True(t, l.Core().Enabled(zap.InfoLevel))

		c, err := NewConsole(debug)
		require.NoError(t, err)
		assert.Equal(t, debug, c.Core().Enabled(zap.DebugLevel))
	}
}
