package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealscout/internal/config"
	"github.com/sells-group/dealscout/internal/discovery"
)

func TestBuildFinderFallsBackToStatic(t *testing.T) {
	finder, err := buildFinder(config.DiscoveryConfig{
		SourcesFile: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	require.NoError(t, err)
	assert.IsType(t, discovery.StaticFinder{}, finder)
}

func TestBuildFinderUsesConfiguredSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - name: alpha
    base_url: https://alpha.example.com
    path: /offers
`), 0o644))

	finder, err := buildFinder(config.DiscoveryConfig{SourcesFile: path})
	require.NoError(t, err)
	assert.IsType(t, &discovery.HTTPFinder{}, finder)
}

func TestBuildFinderWrapsWithCacheWhenEnabled(t *testing.T) {
	finder, err := buildFinder(config.DiscoveryConfig{
		SourcesFile:  filepath.Join(t.TempDir(), "missing.yaml"),
		CacheEnabled: true,
		CacheSize:    16,
		CacheTTLSecs: 60,
	})
	require.NoError(t, err)
	assert.IsType(t, &discovery.CachedFinder{}, finder)
}

func TestBuildFinderRejectsBrokenSourcesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources: [broken"), 0o644))

	_, err := buildFinder(config.DiscoveryConfig{SourcesFile: path})
	assert.Error(t, err)
}

func TestBuildOrchestratorRequiresAPIKey(t *testing.T) {
	_, err := buildOrchestrator(&config.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key")
}
