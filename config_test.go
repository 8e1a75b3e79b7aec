package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	v := viper.New()
	registerFlags(fs, v)
	require.NoError(t, fs.Parse(args))

	return LoadConfig(v)
}

func TestLoadConfigFlags(t *testing.T) {
	cfg, err := load(t, "--id=a", "--peers=h1:8001,h2:8001", "--election-timeout=3s", "--port=9001")
	require.NoError(t, err)

	assert.Equal(t, "a", cfg.ID)
	assert.Equal(t, []string{"h1:8001", "h2:8001"}, cfg.Peers)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, 3*time.Second, cfg.ElectionTimeout)
	assert.Equal(t, time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, "info", cfg.LogLevel)

	rc := cfg.Raft()
	assert.NoError(t, rc.Validate())
	assert.Equal(t, cfg.Peers, rc.Peers)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("NODE_ID", "b")
	t.Setenv("NODE_PEERS", "h1:8001,h2:8001")
	t.Setenv("NODE_PORT", "9002")
	t.Setenv("NODE_HEARTBEAT_INTERVAL", "250ms")

	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, "b", cfg.ID)
	assert.Equal(t, []string{"h1:8001", "h2:8001"}, cfg.Peers)
	assert.Equal(t, 9002, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.HeartbeatInterval)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id": "c", "peers": ["h3:8001"], "election-timeout": "7s"}`), 0o600))

	cfg, err := load(t, "--config="+path)
	require.NoError(t, err)

	assert.Equal(t, "c", cfg.ID)
	assert.Equal(t, []string{"h3:8001"}, cfg.Peers)
	assert.Equal(t, 7*time.Second, cfg.ElectionTimeout)
}

func TestLoadConfigRequiresID(t *testing.T) {
	_, err := load(t, "--peers=h1:8001")
	assert.Error(t, err)
}
