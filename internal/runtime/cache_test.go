package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheLocationsForMiss(t *testing.T) {
	c := newCache()
	assert.Nil(t, c.locationsFor("ghost"))
	_, ok := c.selectLocation("ghost")
	assert.False(t, ok)
}

func TestCacheReplaceAndSelect(t *testing.T) {
	c := newCache()
	c.replace(map[string][]string{"svc": {"http://localhost:1", "http://localhost:2"}})

	assert.ElementsMatch(t, []string{"http://localhost:1", "http://localhost:2"}, c.locationsFor("svc"))

	valid := map[string]bool{"http://localhost:1": true, "http://localhost:2": true}
	for i := 0; i < 10; i++ {
		loc, ok := c.selectLocation("svc")
		assert.True(t, ok)
		assert.True(t, valid[loc])
	}
}

func TestCacheReplaceOverwritesPreviousContents(t *testing.T) {
	c := newCache()
	c.replace(map[string][]string{"a": {"http://localhost:1"}})
	c.replace(map[string][]string{"b": {"http://localhost:2"}})

	assert.Nil(t, c.locationsFor("a"))
	assert.Equal(t, []string{"http://localhost:2"}, c.locationsFor("b"))
}
