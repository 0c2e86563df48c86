package branch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBranch(t *testing.T) {
	b := &Branch{ID: "b1", State: " sp ", Status: StatusActive}
	assert.True(t, b.IsActive())
	assert.Equal(t, "SP", b.UF())

	b.Status = StatusBlocked
	assert.False(t, b.IsActive())
}
