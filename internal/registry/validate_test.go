package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("add"))
	assert.True(t, ValidName("add-on_2"))
	assert.True(t, ValidName("Anon$abc12345"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("has space"))
	assert.False(t, ValidName("has/slash"))
}
