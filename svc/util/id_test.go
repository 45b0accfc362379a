package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenIDShape(t *testing.T) {
	for i := 0; i < 1000; i++ {
		id, err := GenID()
		require.NoError(t, err)
		require.Len(t, id, IDLength)
		require.True(t, ValidID(id), "id %q has characters outside the URL-safe alphabet", id)
	}
}

func TestGenIDDistinct(t *testing.T) {
	seen := make(map[string]struct{}, 5000)
	for i := 0; i < 5000; i++ {
		id, err := GenID()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %q after %d draws", id, i)
		seen[id] = struct{}{}
	}
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("aZ09-_xy"))
	assert.False(t, ValidID("short"))
	assert.False(t, ValidID("toolonger"))
	assert.False(t, ValidID("bad/char"))
	assert.False(t, ValidID("../../et"))
}
