// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Connector identifiers.
const (
	ConnectorKeystore   = "keystore"
	ConnectorPrivateKey = "privatekey"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Contract  ContractConfig  `mapstructure:"contract"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // set at runtime from flags
}

// ChainConfig describes the single target network.
type ChainConfig struct {
	Name               string        `mapstructure:"name"`
	RPCURL             string        `mapstructure:"rpc_url"`
	ChainID            uint64        `mapstructure:"chain_id"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
}

// ContractConfig holds the counter contract location.
type ContractConfig struct {
	Address string `mapstructure:"address"`
}

// AddressHex returns the contract address as common.Address.
func (c *ContractConfig) AddressHex() common.Address {
	return common.HexToAddress(c.Address)
}

// WalletConfig holds connector credentials. Secrets are expected from the environment.
type WalletConfig struct {
	KeystorePath       string `mapstructure:"keystore_path"`
	KeystorePassphrase string `mapstructure:"keystore_passphrase"`
	PrivateKey         string `mapstructure:"private_key"`
	DefaultConnector   string `mapstructure:"default_connector"`
	AutoConnect        bool   `mapstructure:"auto_connect"`
}

// OracleConfig holds the submission flow timings.
type OracleConfig struct {
	AnimationDelay      time.Duration `mapstructure:"animation_delay"`
	RefreshDelay        time.Duration `mapstructure:"refresh_delay"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
	ReceiptTimeout      time.Duration `mapstructure:"receipt_timeout"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds health endpoint settings.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("CB")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "CB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "CB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "CB_LOG_LEVEL", "LOG_LEVEL")

	// Chain
	v.BindEnv("chain.name", "CB_CHAIN_NAME")
	v.BindEnv("chain.rpc_url", "CB_RPC_URL", "RPC_URL")
	v.BindEnv("chain.chain_id", "CB_CHAIN_ID")

	// Contract
	v.BindEnv("contract.address", "CB_CONTRACT_ADDRESS", "CONTRACT_ADDRESS")

	// Wallet
	v.BindEnv("wallet.keystore_path", "CB_KEYSTORE_PATH")
	v.BindEnv("wallet.keystore_passphrase", "CB_KEYSTORE_PASSPHRASE")
	v.BindEnv("wallet.private_key", "CB_PRIVATE_KEY")
	v.BindEnv("wallet.default_connector", "CB_DEFAULT_CONNECTOR")
	v.BindEnv("wallet.auto_connect", "CB_AUTO_CONNECT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "CB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "CB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "CB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "crystal-ball")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Sepolia testnet
	v.SetDefault("chain.name", "sepolia")
	v.SetDefault("chain.rpc_url", "https://ethereum-sepolia-rpc.publicnode.com")
	v.SetDefault("chain.chain_id", 11155111)
	v.SetDefault("chain.request_timeout", "15s")
	v.SetDefault("chain.rate_limit_per_minute", 600)

	// Wallet defaults
	v.SetDefault("wallet.default_connector", ConnectorKeystore)
	v.SetDefault("wallet.auto_connect", true)

	// Oracle timings
	v.SetDefault("oracle.animation_delay", "2s")
	v.SetDefault("oracle.refresh_delay", "3s")
	v.SetDefault("oracle.receipt_poll_interval", "2s")
	v.SetDefault("oracle.receipt_timeout", "5m")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "crystal-ball")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Health defaults
	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	if c.Chain.ChainID == 0 {
		return fmt.Errorf("chain.chain_id is required")
	}
	if !common.IsHexAddress(c.Contract.Address) {
		return fmt.Errorf("invalid contract.address: %q", c.Contract.Address)
	}
	switch c.Wallet.DefaultConnector {
	case "", ConnectorKeystore, ConnectorPrivateKey:
	default:
		return fmt.Errorf("unknown wallet.default_connector: %s", c.Wallet.DefaultConnector)
	}
	if c.Oracle.AnimationDelay < 0 || c.Oracle.RefreshDelay < 0 {
		return fmt.Errorf("oracle delays cannot be negative")
	}
	if c.Oracle.ReceiptPollInterval <= 0 {
		return fmt.Errorf("oracle.receipt_poll_interval must be positive")
	}
	return nil
}
