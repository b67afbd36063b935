package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringSet(t *testing.T) {
	set := NewStringSet()
	set.AddAll([]string{"10.0.0.1", "10.0.0.2"})
	set.Add("10.0.0.2")
	assert.Equal(t, 2, set.Size())
	assert.True(t, set.Has("10.0.0.1"))
	assert.False(t, set.Has("10.0.0.9"))
	set.Remove("10.0.0.1")
	assert.Equal(t, 1, set.Size())
	assert.Equal(t, []string{"10.0.0.2"}, set.ToArray())
}
