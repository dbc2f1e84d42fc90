package mid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocatorDistinctAndWraps(t *testing.T) {
	a := New()
	seen := make(map[uint16]bool)
	for i := 0; i < 70000; i++ {
		v := a.Next()
		seen[v] = true
	}
	assert.Equal(t, 65536, len(seen))
}

func TestAllocatorSequential(t *testing.T) {
	a := New()
	assert.Equal(t, uint16(0), a.Next())
	assert.Equal(t, uint16(1), a.Next())
	assert.Equal(t, uint16(2), a.Next())
}
