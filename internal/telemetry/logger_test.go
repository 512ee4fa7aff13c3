package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsProdLike(t *testing.T) {
	assert.True(t, isProdLike("production"))
	assert.True(t, isProdLike("Production"))
	assert.True(t, isProdLike("staging"))
	assert.False(t, isProdLike("development"))
	assert.False(t, isProdLike(""))
}

func TestNewLoggerReturnsLogger(t *testing.T) {
	log := NewLogger("development", "registry")
	assert.NotNil(t, log)
}
