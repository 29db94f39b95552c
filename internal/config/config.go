package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
)

// Oracle modes
const (
	ModeSimulated = "simulated"
	ModeChain     = "chain"
)

// EnvPrefix is prepended to every environment variable, e.g. IBSWAP_RPC_URL
const EnvPrefix = "IBSWAP"

// Config holds the settings shared by the API server and the CLI
type Config struct {
	Mode string

	// Chain settings
	RPCURL          string
	ContractAddress string
	PrivateKey      string
	BytecodeFile    string
	GasLimit        uint64
	RateLimit       float64
	RateBurst       int
	PollInterval    time.Duration

	// Deployment arguments, also used by the simulator
	Router   string
	WETH     string
	Governor string

	// Check settings
	Tolerance decimal.Decimal
	Threshold decimal.Decimal
	Deadline  *big.Int
	ReportTTL time.Duration

	// Pool seeding for the simulator
	PoolSource string
	Fork       bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIAddr    string
	LogLevel   string
	LogFormat  string
	TokensFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeSimulated)
	v.SetDefault("rpc_url", "")
	v.SetDefault("contract_address", "")
	v.SetDefault("private_key", "")
	v.SetDefault("bytecode_file", "")
	v.SetDefault("gas_limit", 0)
	v.SetDefault("rate_limit", 0)
	v.SetDefault("rate_burst", 1)
	v.SetDefault("poll_interval", "1s")
	v.SetDefault("router", entities.UniswapV2Router02.Hex())
	v.SetDefault("weth", entities.IBETH.Address.Hex())
	v.SetDefault("governor", "0xcdc2F106E9694B16FFdBFCE2a2612076Ce44b4FE")
	v.SetDefault("tolerance", "0.1")
	v.SetDefault("threshold", "0.5")
	v.SetDefault("deadline", "1000000000000000000000")
	v.SetDefault("report_ttl", "24h")
	v.SetDefault("pool_source", string(entities.DEXUniswapV2))
	v.SetDefault("fork", false)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("api_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("tokens_file", "config/tokens.json")
}

// LoadEnv loads variables from .env files into the process environment.
// Missing files are ignored; variables already set are not overridden.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from defaults, an optional config file and the
// environment, in increasing order of precedence. An empty path searches for
// .ibswap.yaml in the working directory and $HOME.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".ibswap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Mode:            strings.ToLower(v.GetString("mode")),
		RPCURL:          v.GetString("rpc_url"),
		ContractAddress: v.GetString("contract_address"),
		PrivateKey:      strings.TrimPrefix(v.GetString("private_key"), "0x"),
		BytecodeFile:    v.GetString("bytecode_file"),
		GasLimit:        v.GetUint64("gas_limit"),
		RateLimit:       v.GetFloat64("rate_limit"),
		RateBurst:       v.GetInt("rate_burst"),
		PollInterval:    v.GetDuration("poll_interval"),
		Router:          v.GetString("router"),
		WETH:            v.GetString("weth"),
		Governor:        v.GetString("governor"),
		ReportTTL:       v.GetDuration("report_ttl"),
		PoolSource:      v.GetString("pool_source"),
		Fork:            v.GetBool("fork"),
		RedisAddr:       v.GetString("redis_addr"),
		RedisPassword:   v.GetString("redis_password"),
		RedisDB:         v.GetInt("redis_db"),
		APIAddr:         v.GetString("api_addr"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       strings.ToLower(v.GetString("log_format")),
		TokensFile:      v.GetString("tokens_file"),
	}

	var err error
	if cfg.Tolerance, err = decimal.NewFromString(v.GetString("tolerance")); err != nil {
		return nil, fmt.Errorf("invalid tolerance: %w", err)
	}
	if cfg.Threshold, err = decimal.NewFromString(v.GetString("threshold")); err != nil {
		return nil, fmt.Errorf("invalid threshold: %w", err)
	}
	deadline, ok := new(big.Int).SetString(v.GetString("deadline"), 10)
	if !ok {
		return nil, fmt.Errorf("invalid deadline %q", v.GetString("deadline"))
	}
	cfg.Deadline = deadline

	return cfg, nil
}

// Validate checks the configuration for values no component can work with
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSimulated:
	case ModeChain:
		if c.RPCURL == "" {
			return errors.New("rpc_url is required in chain mode")
		}
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Fork && c.RPCURL == "" {
		return errors.New("rpc_url is required to fork pool state")
	}

	for name, addr := range map[string]string{
		"contract_address": c.ContractAddress,
		"router":           c.Router,
		"weth":             c.WETH,
		"governor":         c.Governor,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("%s: invalid address %q", name, addr)
		}
	}

	if !c.Tolerance.IsPositive() || c.Tolerance.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("tolerance %s: %w", c.Tolerance, entities.ErrInvalidTolerance)
	}
	if !c.Threshold.IsPositive() {
		return fmt.Errorf("threshold must be positive, got %s", c.Threshold)
	}
	if c.Deadline.Sign() <= 0 {
		return errors.New("deadline must be positive")
	}
	if c.RateLimit < 0 {
		return errors.New("rate_limit must not be negative")
	}

	switch c.PoolSource {
	case string(entities.DEXUniswapV2), string(entities.DEXSushiswap):
	default:
		return fmt.Errorf("unknown pool_source %q", c.PoolSource)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

// HasSigner reports whether a private key is configured
func (c *Config) HasSigner() bool {
	return c.PrivateKey != ""
}
