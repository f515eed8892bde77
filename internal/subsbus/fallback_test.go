package subsbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackRegistryResolvesToPrimaryWhenAvailable(t *testing.T) {
	r := NewFallbackRegistry()
	r.Register("external_bus", "in_memory_bus")

	resolved, ok := r.Resolve("external_bus")
	assert.True(t, ok)
	assert.Equal(t, "external_bus", resolved)
}

func TestFallbackRegistryDemotesWhenPrimaryUnavailable(t *testing.T) {
	r := NewFallbackRegistry()
	r.Register("external_bus", "in_memory_bus")
	r.MarkUnavailable("external_bus")

	resolved, ok := r.Resolve("external_bus")
	assert.True(t, ok)
	assert.Equal(t, "in_memory_bus", resolved)
}

func TestFallbackRegistryChainDeadEnd(t *testing.T) {
	r := NewFallbackRegistry()
	r.MarkUnavailable("external_bus")

	_, ok := r.Resolve("external_bus")
	assert.False(t, ok)
}

func TestFallbackRegistryRecoversAvailability(t *testing.T) {
	r := NewFallbackRegistry()
	r.Register("external_bus", "in_memory_bus")
	r.MarkUnavailable("external_bus")
	r.MarkAvailable("external_bus")

	resolved, ok := r.Resolve("external_bus")
	assert.True(t, ok)
	assert.Equal(t, "external_bus", resolved)
}
