package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://env")
		url, err := resolveURL("postgres://flag")
		require.NoError(t, err)
		assert.Equal(t, "postgres://flag", url)
	})

	t.Run("falls back to the environment", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://env")
		url, err := resolveURL("")
		require.NoError(t, err)
		assert.Equal(t, "postgres://env", url)
	})

	t.Run("missing url is an error", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		_, err := resolveURL("")
		assert.Error(t, err)
	})
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"up", "down", "version"})

	down, _, err := root.Find([]string{"down"})
	require.NoError(t, err)
	assert.Equal(t, "1", down.Flags().Lookup("steps").DefValue)
}
