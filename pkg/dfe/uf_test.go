package dfe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateCode_KnownStates(t *testing.T) {
	assert.Len(t, stateCodes, 27)

	for uf, code := range stateCodes {
		got := StateCode(uf)
		assert.Equal(t, code, got, uf)
		assert.Len(t, got, 2, uf)
		assert.Equal(t, got, StateCode(uf), "lookup must be stable for %s", uf)
		assert.True(t, IsKnownState(uf))
	}
}

func TestStateCode_Normalizes(t *testing.T) {
	assert.Equal(t, "43", StateCode("rs"))
	assert.Equal(t, "53", StateCode(" df "))
	assert.Equal(t, "31", StateCode("MG"))
}

func TestStateCode_FallbackOnMiss(t *testing.T) {
	for _, uf := range []string{"", "XX", "São Paulo", "S", "123", "EX"} {
		assert.Equal(t, DefaultStateCode, StateCode(uf), uf)
		assert.False(t, IsKnownState(uf), uf)
	}
}
