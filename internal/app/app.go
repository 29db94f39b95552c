package app

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/bimakw/ibswap-verifier/internal/config"
	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	"github.com/bimakw/ibswap-verifier/internal/domain/services"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/cache"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/dex"
	chain "github.com/bimakw/ibswap-verifier/internal/infrastructure/ethereum"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/ibswap"
)

var (
	ErrNoContract   = errors.New("contract_address is required in chain mode")
	ErrNoBytecode   = errors.New("bytecode_file is required to deploy")
	ErrUnknownPools = errors.New("unknown pool source")
)

// App holds the components shared by the API server and the CLI
type App struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Tokens   *entities.TokenRegistry
	Store    cache.Store
	Oracle   ibswap.Oracle
	Verifier *services.QuoteVerifier
	Checks   *services.CheckService
	Admin    *services.AdminService

	// Simulator is set in simulated mode only
	Simulator *ibswap.Simulator
	// Chain is set when an RPC endpoint is in use
	Chain *chain.Client

	closers []func()
}

// New wires the oracle selected by cfg.Mode and the services on top of it
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		Tokens: LoadTokens(cfg.TokensFile, logger),
		Store:  OpenStore(cfg, logger),
	}
	a.closers = append(a.closers, func() { _ = a.Store.Close() })

	var err error
	if cfg.Mode == config.ModeChain {
		err = a.bindChain(ctx)
	} else {
		err = a.bindSimulator(ctx)
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Verifier = services.NewQuoteVerifier(a.Oracle, logger)
	a.Checks = services.NewCheckService(a.Verifier, a.Store, CheckConfig(cfg), logger)
	a.Admin = services.NewAdminService(a.Oracle, logger)

	if a.Simulator != nil {
		// the simulated governor lists every registered ib token
		if err := a.Admin.AddSupportedTokens(ctx, a.Simulator.Tokens()); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to list simulated tokens: %w", err)
		}
	}
	return a, nil
}

// Close releases the RPC connection and the store
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// CheckConfig maps configuration onto check settings
func CheckConfig(cfg *config.Config) services.CheckConfig {
	return services.CheckConfig{
		Tolerance: cfg.Tolerance,
		Threshold: cfg.Threshold,
		Deadline:  cfg.Deadline,
		ReportTTL: cfg.ReportTTL,
	}
}

// LoadTokens reads the token list, falling back to the built-in tokens
func LoadTokens(path string, logger *logrus.Logger) *entities.TokenRegistry {
	if path == "" {
		return entities.DefaultRegistry()
	}
	registry := entities.NewTokenRegistry()
	if err := registry.LoadFromFile(path); err != nil {
		logger.WithError(err).Warn("Using built-in token list")
		return entities.DefaultRegistry()
	}
	logger.WithField("tokens", registry.Count()).Info("Loaded tokens from config")
	return registry
}

// OpenStore connects to Redis when configured and otherwise keeps reports in
// memory. A Redis connection failure also falls back to memory.
func OpenStore(cfg *config.Config, logger *logrus.Logger) cache.Store {
	if cfg.RedisAddr == "" {
		logger.Info("Using in-memory report store")
		return cache.NewInMemoryCache()
	}
	redisCache, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Warn("Failed to connect to Redis. Using in-memory report store.")
		return cache.NewInMemoryCache()
	}
	logger.WithField("addr", cfg.RedisAddr).Info("Connected to Redis")
	return redisCache
}

// Signer parses the configured private key
func Signer(cfg *config.Config) (*ecdsa.PrivateKey, error) {
	if !cfg.HasSigner() {
		return nil, ibswap.ErrNoSigner
	}
	key, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// Dial connects to the configured RPC endpoint and reads the head block to
// confirm the node is serving requests.
func Dial(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*chain.Client, error) {
	eth, err := chain.NewClient(cfg.RPCURL,
		chain.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		chain.WithPollInterval(cfg.PollInterval),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrOracleUnavailable, err)
	}
	head, err := eth.BlockNumber(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("%w: %v", entities.ErrOracleUnavailable, err)
	}
	logger.WithFields(logrus.Fields{
		"chain_id": eth.ChainID().String(),
		"block":    head,
	}).Info("Connected to Ethereum")
	return eth, nil
}

func (a *App) dial(ctx context.Context) (*chain.Client, error) {
	if a.Chain != nil {
		return a.Chain, nil
	}
	eth, err := Dial(ctx, a.Config, a.Logger)
	if err != nil {
		return nil, err
	}
	a.Chain = eth
	a.closers = append(a.closers, eth.Close)
	return eth, nil
}

func clientOptions(cfg *config.Config, logger *logrus.Logger) ([]ibswap.ClientOption, error) {
	opts := []ibswap.ClientOption{ibswap.WithLogger(logrus.NewEntry(logger))}
	if cfg.GasLimit > 0 {
		opts = append(opts, ibswap.WithGasLimit(cfg.GasLimit))
	}
	if cfg.HasSigner() {
		key, err := Signer(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ibswap.WithSigner(key))
	} else if cfg.Governor != "" {
		opts = append(opts, ibswap.WithFrom(common.HexToAddress(cfg.Governor)))
	}
	return opts, nil
}

func (a *App) bindChain(ctx context.Context) error {
	if a.Config.ContractAddress == "" {
		return ErrNoContract
	}
	opts, err := clientOptions(a.Config, a.Logger)
	if err != nil {
		return err
	}
	eth, err := a.dial(ctx)
	if err != nil {
		return err
	}
	a.Oracle = ibswap.NewClient(eth, common.HexToAddress(a.Config.ContractAddress), opts...)
	return nil
}

func (a *App) bindSimulator(ctx context.Context) error {
	cfg := a.Config
	sim := ibswap.NewMainnetSimulation(ibswap.DeployConfig{
		Router:   common.HexToAddress(cfg.Router),
		WETH:     common.HexToAddress(cfg.WETH),
		Governor: common.HexToAddress(cfg.Governor),
		Logger:   logrus.NewEntry(a.Logger),
	})

	if cfg.Fork {
		eth, err := a.dial(ctx)
		if err != nil {
			return err
		}
		reader, ok := dex.NewPoolReader(cfg.PoolSource, eth)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPools, cfg.PoolSource)
		}
		if err := SeedPools(ctx, sim, reader, a.Store, a.Logger); err != nil {
			return err
		}
	}

	a.Simulator = sim
	a.Oracle = sim.Session(common.HexToAddress(cfg.Governor))
	return nil
}

// Deploy creates a new swap contract from the configured bytecode with the
// configured router and weth arguments and returns its address.
func Deploy(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (common.Address, *types.Receipt, error) {
	if cfg.BytecodeFile == "" {
		return common.Address{}, nil, ErrNoBytecode
	}
	key, err := Signer(cfg)
	if err != nil {
		return common.Address{}, nil, err
	}
	bytecode, err := ibswap.LoadBytecode(cfg.BytecodeFile)
	if err != nil {
		return common.Address{}, nil, err
	}
	eth, err := Dial(ctx, cfg, logger)
	if err != nil {
		return common.Address{}, nil, err
	}
	defer eth.Close()

	client, receipt, err := ibswap.Deploy(ctx, eth, key, bytecode, ibswap.DeployParams{
		Router: common.HexToAddress(cfg.Router),
		WETH:   common.HexToAddress(cfg.WETH),
	}, ibswap.WithLogger(logrus.NewEntry(logger)))
	if err != nil {
		return common.Address{}, receipt, err
	}
	return client.Address(), receipt, nil
}
