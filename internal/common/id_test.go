package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublicID(t *testing.T) {
	id, err := NewPublicID()
	require.NoError(t, err)

	assert.Len(t, id, 21)
	for _, c := range id {
		assert.True(t, strings.ContainsRune(publicIDAlphabet, c), "unexpected character %q", c)
	}
}

func TestNewPublicID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := NewPublicID()
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestIsValidPublicID(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{"generated id", "x7k2m9p4q1w8e5r3t6y0u", true},
		{"too short", "abc123", false},
		{"too long", "x7k2m9p4q1w8e5r3t6y0u9", false},
		{"uppercase rejected", "X7K2M9P4Q1W8E5R3T6Y0U", false},
		{"punctuation rejected", "x7k2m9p4q1w8e5r3t6y0-", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidPublicID(tt.id))
		})
	}
}
