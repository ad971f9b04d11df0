package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	for range 500 {
		id, err := Generate("snap")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}
	assert.Len(t, ids, 500)
}

func TestSnapshot_Format(t *testing.T) {
	id, err := Snapshot()
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(id, "snap-"))
	suffix := strings.TrimPrefix(id, "snap-")
	assert.Len(t, suffix, 16)
	for _, r := range suffix {
		assert.True(t, strings.ContainsRune(snapshotAlphabet, r), "unexpected rune %q", r)
	}
}
