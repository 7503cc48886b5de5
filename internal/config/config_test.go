package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoad_DefaultsAppliedWhenFileMissing(t *testing.T) {
	t.Setenv("CHAIN_RPC_URL", "https://rpc.example/v1")
	t.Setenv("CHAIN_WS_URL", "wss://rpc.example/v1")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	require.Equal(t, int64(8453), cfg.Chain.ChainID)
	require.Equal(t, "ipc:///tmp/arbengine.sock", cfg.IPC.Endpoint)
	require.NotEmpty(t, cfg.Adaptor.StartAssets)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	t.Setenv("CHAIN_RPC_URL", "https://rpc.example/v1")
	t.Setenv("CHAIN_WS_URL", "wss://rpc.example/v1")

	path := writeTempConfig(t, `
chain:
  chain_id: 1
adaptor:
  factory_address: "0xdeadbeef"
  start_assets:
    - "0xaaaa"
    - "0xbbbb"
metrics:
  port: 9999
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, int64(1), cfg.Chain.ChainID)
	require.Equal(t, "0xdeadbeef", cfg.Adaptor.FactoryAddress)
	require.Equal(t, []string{"0xaaaa", "0xbbbb"}, cfg.Adaptor.StartAssets)
	require.Equal(t, 9999, cfg.Metrics.Port)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	t.Setenv("CHAIN_RPC_URL", "https://env.example/rpc")
	t.Setenv("CHAIN_WS_URL", "wss://env.example/ws")
	t.Setenv("IPC_ENDPOINT", "ipc:///tmp/override.sock")

	path := writeTempConfig(t, `
chain:
  rpc_url: "https://yaml.example/rpc"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://env.example/rpc", cfg.Chain.RPCURL, "env var must win over YAML")
	require.Equal(t, "ipc:///tmp/override.sock", cfg.IPC.Endpoint)
}

func TestLoad_RejectsMissingRPCURL(t *testing.T) {
	t.Setenv("CHAIN_RPC_URL", "")
	t.Setenv("CHAIN_WS_URL", "wss://rpc.example/v1")

	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoad_RejectsMalformedIPCEndpoint(t *testing.T) {
	t.Setenv("CHAIN_RPC_URL", "https://rpc.example/v1")
	t.Setenv("CHAIN_WS_URL", "wss://rpc.example/v1")
	t.Setenv("IPC_ENDPOINT", "tcp://not-an-ipc-endpoint")

	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.ErrorContains(t, err, "ipc.endpoint")
}
