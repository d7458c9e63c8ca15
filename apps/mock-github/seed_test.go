package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilsley/repoproxy/pkg/ghfake"
)

func TestBuiltinSeed_Loads(t *testing.T) {
	f := ghfake.New()
	require.NoError(t, f.Load(builtinSeed()))

	assert.Equal(t, 3, f.Repos())
	assert.NotEmpty(t, f.Branch("acme", "widgets", "main"))
	assert.NotEmpty(t, f.Branch("acme", "widgets", "feature/colors"))
	assert.NotEqual(t, f.Branch("acme", "widgets", "main"), f.Branch("acme", "widgets", "feature/colors"))
	assert.NotEmpty(t, f.Branch("acme", "handbook", "trunk"))
	assert.Empty(t, f.Branch("acme", "empty", "main"))
}

func TestChangelog_SpansSeveralChunks(t *testing.T) {
	lines := strings.Count(changelog(changelogEntries), "\n")
	assert.Equal(t, changelogEntries+2, lines)
	assert.Greater(t, lines, 250)
}

func TestLoadSeed_ExampleFile(t *testing.T) {
	seed, err := loadSeed("seed.example.yaml")
	require.NoError(t, err)
	require.Len(t, seed.Repos, 1)

	f := ghfake.New()
	require.NoError(t, f.Load(seed))
	assert.NotEmpty(t, f.Branch("acme", "widgets", "feature/colors"))
}

func TestLoadSeed_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repos: [oops"), 0o600))
	_, err := loadSeed(path)
	assert.Error(t, err)
}

func TestLoadSeed_MissingFile(t *testing.T) {
	_, err := loadSeed(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
