package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reborn-client/internal/reconnect"
)

const sampleINI = `
debug_packets = true

[connection]
host = server.example.com
port = 14900
protocol_generation = gen5
build_string = 42
protocol_version_string = GNW22122
client_type = 2
connect_timeout = 5

[reconnect]
enabled = true
max_attempts = 3
strategy = linear
initial_delay = 2.0
max_delay = 10.0
multiplier = 2.0
reset_on_success = true

[cache]
cache_directory = /tmp/reborn-cache
`

func writeTempINI(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "client.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMapsSections(t *testing.T) {
	path := writeTempINI(t, sampleINI)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server.example.com", cfg.Connection.Host)
	assert.Equal(t, 14900, cfg.Connection.Port)
	assert.Equal(t, "gen5", cfg.Connection.ProtocolGeneration)
	assert.Equal(t, "/tmp/reborn-cache", cfg.Cache.Directory)
	assert.True(t, cfg.DebugPackets)
}

func TestToReconnectPolicyTranslatesStrategy(t *testing.T) {
	path := writeTempINI(t, sampleINI)
	cfg, err := Load(path)
	require.NoError(t, err)

	rp := cfg.Reconnect.ToReconnectPolicy()
	assert.Equal(t, reconnect.Linear, rp.Strategy)
	assert.Equal(t, 3, rp.MaxAttempts)
}
