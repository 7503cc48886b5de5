package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration for arbengine.
type Config struct {
	Chain       ChainConfig       `yaml:"chain"`
	Adaptor     AdaptorConfig     `yaml:"adaptor"`
	IPC         IPCConfig         `yaml:"ipc"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ChainConfig holds blockchain RPC connection settings.
type ChainConfig struct {
	RPCURL            string `yaml:"rpc_url"`
	WSURL             string `yaml:"ws_url"`
	ChainID           int64  `yaml:"chain_id"`
	RequestsPerSecond int    `yaml:"requests_per_second"`
}

// AdaptorConfig holds the DEX adaptor's pool-discovery and feed settings.
type AdaptorConfig struct {
	FactoryAddress string        `yaml:"factory_address"`
	ProtocolType   int           `yaml:"protocol_type"`
	StartAssets    []string      `yaml:"start_assets"`
	BootstrapBatch int           `yaml:"bootstrap_batch"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

// IPCConfig holds the request/reply front-end's socket settings. Endpoint is
// always sourced from the IPC_ENDPOINT environment variable at startup
// (spec.md §6); this value is only the fallback used when that variable is
// unset.
type IPCConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// PersistenceConfig holds the opportunity-log database settings.
type PersistenceConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// MetricsConfig holds Prometheus metrics server settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides, the same defaults -> YAML -> env -> validate pipeline the
// teacher's config loader uses.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	cfg.setDefaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if len(data) > 0 {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) setDefaults() {
	c.Chain = ChainConfig{
		ChainID:           8453, // Base mainnet
		RequestsPerSecond: 10,
	}
	c.Adaptor = AdaptorConfig{
		FactoryAddress: "0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6", // Uniswap-V2-style factory on Base
		ProtocolType:   1,                                            // ProtocolUniswapV2, see internal/arb.DecoratedEdge
		BootstrapBatch: 100,
		ReconnectDelay: 5 * time.Second,
		StartAssets: []string{
			"0x4200000000000000000000000000000000000006", // WETH
			"0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", // USDC
		},
	}
	c.IPC = IPCConfig{
		Endpoint: "ipc:///tmp/arbengine.sock",
	}
	c.Persistence = PersistenceConfig{
		SQLitePath: "./data/arbengine.db",
	}
	c.Metrics = MetricsConfig{
		Enabled: true,
		Port:    8080,
		Path:    "/metrics",
	}
	c.Logging = LoggingConfig{
		Level:  "info",
		Format: "json",
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CHAIN_RPC_URL"); v != "" {
		c.Chain.RPCURL = v
	}
	if v := os.Getenv("CHAIN_WS_URL"); v != "" {
		c.Chain.WSURL = v
	}
	if v := os.Getenv("ADAPTOR_FACTORY_ADDRESS"); v != "" {
		c.Adaptor.FactoryAddress = v
	}
	if v := os.Getenv("IPC_ENDPOINT"); v != "" {
		c.IPC.Endpoint = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil && port > 0 {
			c.Metrics.Port = port
		}
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Persistence.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

func (c *Config) validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required (set CHAIN_RPC_URL env var)")
	}
	if c.Chain.WSURL == "" {
		return fmt.Errorf("chain.ws_url is required (set CHAIN_WS_URL env var)")
	}
	if c.Adaptor.FactoryAddress == "" {
		return fmt.Errorf("adaptor.factory_address is required")
	}
	if c.Adaptor.BootstrapBatch <= 0 {
		return fmt.Errorf("adaptor.bootstrap_batch must be positive")
	}
	if len(c.Adaptor.StartAssets) == 0 {
		return fmt.Errorf("adaptor.start_assets must have at least one asset")
	}
	if !strings.HasPrefix(c.IPC.Endpoint, "ipc://") {
		return fmt.Errorf("ipc.endpoint must be of the form ipc://<path>")
	}
	if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be a valid port number")
	}
	return nil
}
