package decode_test

import (
	"testing"

	"github.com/aretw0/flatval/pkg/decode"
	"github.com/aretw0/flatval/pkg/heap"
	"github.com/stretchr/testify/assert"
)

func TestPath_PushIsImmutable(t *testing.T) {
	var root decode.Path
	a := root.Push(0).Push(1)
	b := a.Push(2)
	c := a.Push(3)

	assert.Equal(t, 0, root.Depth())
	assert.Equal(t, 2, a.Depth())
	assert.Equal(t, []heap.ID{0, 1, 2}, b.IDs())
	assert.Equal(t, []heap.ID{0, 1, 3}, c.IDs(), "siblings do not see each other")

	assert.True(t, b.Contains(0))
	assert.True(t, b.Contains(2))
	assert.False(t, c.Contains(2))
	assert.False(t, root.Contains(0))
}
