package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/raftcoord/pkg/resource"
)

const sampleYAML = `
local_member: "127.0.0.1:9101"
members:
  - "127.0.0.1:9101"
  - "127.0.0.1:9102"
  - "127.0.0.1:9103"
election_timeout: 750ms
heartbeat_interval: 250ms
resources:
  counters:
    resource_type: ATOMIC_BOOLEAN
    replicas:
      - "127.0.0.1:9101"
      - "127.0.0.1:9102"
`

func writeTemp(t *testing.T, contents string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9101", cfg.LocalMember)
	require.Len(t, cfg.Members, 3)
	require.Equal(t, 750_000_000, int(cfg.ElectionTimeout.Std()))
	require.Equal(t, resource.AtomicBoolean, cfg.Resources["counters"].Kind)
	require.True(t, cfg.IsActiveMember("127.0.0.1:9102"))
	require.False(t, cfg.IsActiveMember("127.0.0.1:9999"))
}

func TestLoad_InvalidReplicas(t *testing.T) {
	path := writeTemp(t, `
local_member: "127.0.0.1:9101"
members:
  - "127.0.0.1:9101"
resources:
  bad:
    resource_type: MAP
    replicas:
      - "127.0.0.1:9999"
`)
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *resource.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestClone_Independent(t *testing.T) {
	cfg := Default()
	cfg.LocalMember = "a"
	cfg.Members = []string{"a", "b"}
	cfg.Resources["x"] = ResourceConfig{Kind: resource.Set, Replicas: []string{"a"}}

	clone := cfg.Clone()
	clone.Members[0] = "mutated"
	clone.Resources["x"] = ResourceConfig{Kind: resource.Map}

	require.Equal(t, "a", cfg.Members[0])
	require.Equal(t, resource.Set, cfg.Resources["x"].Kind)
}

func TestValidate_MissingLocalMember(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)
}
