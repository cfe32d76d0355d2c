// Package config loads launcher configuration from an optional config file,
// a .env file and LAUNCHER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"pump-launcher/internal/builder"
	"pump-launcher/internal/domain"
	"pump-launcher/internal/keys"
	"pump-launcher/internal/metadata"
	"pump-launcher/internal/solana"
)

// EnvPrefix prefixes every environment variable, e.g. LAUNCHER_RPC_URL or
// LAUNCHER_WALLET_PRIVATE_KEY.
const EnvPrefix = "LAUNCHER"

// ErrNoWallet is returned when no wallet source is configured.
var ErrNoWallet = errors.New("no wallet configured: set wallet.private_key, wallet.keypair_path or wallet.mnemonic")

// Config is the launcher configuration.
type Config struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	WSURL               string        `mapstructure:"ws_url"`
	MetadataURL         string        `mapstructure:"metadata_url"`
	BuilderURL          string        `mapstructure:"builder_url"`
	HTTPTimeout         time.Duration `mapstructure:"http_timeout"`
	RPCMaxRetries       int           `mapstructure:"rpc_max_retries"`
	ConfirmPollInterval time.Duration `mapstructure:"confirm_poll_interval"`
	Commitment          string        `mapstructure:"commitment"`

	Wallet   WalletConfig   `mapstructure:"wallet"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Log      LogConfig      `mapstructure:"log"`
	API      APIConfig      `mapstructure:"api"`
}

// WalletConfig selects the funding wallet. Sources are tried in field order.
type WalletConfig struct {
	PrivateKey  string `mapstructure:"private_key"`  // base58 or JSON byte array
	KeypairPath string `mapstructure:"keypair_path"` // solana-keygen JSON file
	Mnemonic    string `mapstructure:"mnemonic"`
	Passphrase  string `mapstructure:"passphrase"`
	Account     uint32 `mapstructure:"account"`
}

// DefaultsConfig overrides the built-in launch option defaults.
type DefaultsConfig struct {
	InitialLiquiditySOL float64 `mapstructure:"initial_liquidity_sol"`
	SlippageBps         int     `mapstructure:"slippage_bps"`
	PriorityFee         float64 `mapstructure:"priority_fee"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// APIConfig configures the HTTP service.
type APIConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("ws_url", "")
	v.SetDefault("metadata_url", metadata.DefaultEndpoint)
	v.SetDefault("builder_url", builder.DefaultEndpoint)
	v.SetDefault("http_timeout", 60*time.Second)
	v.SetDefault("rpc_max_retries", solana.DefaultMaxRetries)
	v.SetDefault("confirm_poll_interval", solana.DefaultPollInterval)
	v.SetDefault("commitment", string(solana.CommitmentConfirmed))

	// Registered so AutomaticEnv can see them during Unmarshal.
	v.SetDefault("wallet.private_key", "")
	v.SetDefault("wallet.keypair_path", "")
	v.SetDefault("wallet.mnemonic", "")
	v.SetDefault("wallet.passphrase", "")
	v.SetDefault("wallet.account", 0)

	v.SetDefault("defaults.initial_liquidity_sol", domain.DefaultInitialLiquiditySOL)
	v.SetDefault("defaults.slippage_bps", domain.DefaultSlippageBps)
	v.SetDefault("defaults.priority_fee", domain.DefaultPriorityFeeSOL)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("api.addr", ":8080")
}

// Load reads configuration. path may be empty, in which case only defaults,
// .env and the environment are used.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if err := checkURL("rpc_url", c.RPCURL, "http", "https"); err != nil {
		return err
	}
	if c.WSURL != "" {
		if err := checkURL("ws_url", c.WSURL, "ws", "wss"); err != nil {
			return err
		}
	}
	if err := checkURL("metadata_url", c.MetadataURL, "http", "https"); err != nil {
		return err
	}
	if err := checkURL("builder_url", c.BuilderURL, "http", "https"); err != nil {
		return err
	}

	switch solana.Commitment(c.Commitment) {
	case solana.CommitmentConfirmed, solana.CommitmentFinalized:
	case solana.CommitmentProcessed:
		return fmt.Errorf("commitment: %q is weaker than confirmed", c.Commitment)
	default:
		return fmt.Errorf("commitment: unknown level %q", c.Commitment)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	if c.ConfirmPollInterval <= 0 {
		return fmt.Errorf("confirm_poll_interval must be positive")
	}
	if c.RPCMaxRetries < 0 {
		return fmt.Errorf("rpc_max_retries must not be negative")
	}
	if c.Defaults.InitialLiquiditySOL < 0 {
		return fmt.Errorf("defaults.initial_liquidity_sol must not be negative")
	}
	if c.Defaults.SlippageBps < 0 {
		return fmt.Errorf("defaults.slippage_bps must not be negative")
	}
	if c.Defaults.PriorityFee < 0 {
		return fmt.Errorf("defaults.priority_fee must not be negative")
	}
	return nil
}

func checkURL(key, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s: want %s URL, got %q", key, strings.Join(schemes, "/"), raw)
}

// LoadWallet resolves the configured wallet key.
func (c *Config) LoadWallet() (solanago.PrivateKey, error) {
	w := c.Wallet
	switch {
	case w.PrivateKey != "":
		return keys.ParsePrivateKey(w.PrivateKey)
	case w.KeypairPath != "":
		return keys.LoadKeypairFile(w.KeypairPath)
	case w.Mnemonic != "":
		return keys.FromMnemonic(w.Mnemonic, w.Passphrase, w.Account)
	default:
		return nil, ErrNoWallet
	}
}

// ApplyDefaults returns a copy of opts with unset numeric options taken from
// the configured defaults. opts may be nil.
func (c *Config) ApplyDefaults(opts *domain.LaunchOptions) *domain.LaunchOptions {
	out := domain.LaunchOptions{}
	if opts != nil {
		out = *opts
	}
	if out.InitialLiquiditySOL == nil {
		v := c.Defaults.InitialLiquiditySOL
		out.InitialLiquiditySOL = &v
	}
	if out.SlippageBps == nil {
		v := c.Defaults.SlippageBps
		out.SlippageBps = &v
	}
	if out.PriorityFee == nil {
		v := c.Defaults.PriorityFee
		out.PriorityFee = &v
	}
	return &out
}
