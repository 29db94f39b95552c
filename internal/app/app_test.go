package app

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimakw/ibswap-verifier/internal/config"
	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/cache"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/ibswap"
)

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func simulatedConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Mode = config.ModeSimulated
	cfg.Fork = false
	cfg.RedisAddr = ""
	cfg.TokensFile = filepath.Join("..", "..", "config", "tokens.json")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewSimulatedRunsDefaultScenarios(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, simulatedConfig(t), quietLogger())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Simulator)
	assert.Nil(t, a.Chain)
	assert.Equal(t, 8, a.Tokens.Count())

	reports, err := a.Checks.RunScenarios(ctx, entities.DefaultScenarios())
	require.NoError(t, err)
	for _, r := range reports {
		assert.True(t, r.Passed, r.Scenario)
	}

	recent, err := a.Checks.RecentReports(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, len(reports))
}

func TestNewChainRequiresContract(t *testing.T) {
	cfg := simulatedConfig(t)
	cfg.Mode = config.ModeChain
	cfg.RPCURL = "http://127.0.0.1:1"

	_, err := New(context.Background(), cfg, quietLogger())
	assert.ErrorIs(t, err, ErrNoContract)
}

func TestLoadTokensFallsBack(t *testing.T) {
	registry := LoadTokens(filepath.Join(t.TempDir(), "missing.json"), quietLogger())
	assert.Equal(t, entities.DefaultRegistry().Count(), registry.Count())

	tok, ok := registry.GetBySymbol("ibdaiv2")
	require.True(t, ok)
	assert.Equal(t, entities.IBDAI.Address, tok.Address)
}

func TestSigner(t *testing.T) {
	cfg := simulatedConfig(t)
	cfg.PrivateKey = ""
	_, err := Signer(cfg)
	assert.ErrorIs(t, err, ibswap.ErrNoSigner)

	cfg.PrivateKey = "not-hex"
	_, err = Signer(cfg)
	assert.Error(t, err)

	cfg.PrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	key, err := Signer(cfg)
	require.NoError(t, err)
	assert.NotNil(t, key)
}

func TestDeployRequiresBytecode(t *testing.T) {
	cfg := simulatedConfig(t)
	cfg.BytecodeFile = ""
	_, _, err := Deploy(context.Background(), cfg, quietLogger())
	assert.ErrorIs(t, err, ErrNoBytecode)
}

type fakeReader struct {
	calls int
	err   error
}

func (r *fakeReader) GetPairAddress(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	return common.Address{}, errors.New("not used")
}

func (r *fakeReader) GetPairByTokens(ctx context.Context, tokenA, tokenB entities.Token) (*entities.Pair, error) {
	return nil, errors.New("not used")
}

func (r *fakeReader) FetchPairs(ctx context.Context, tokens [][2]entities.Token) ([]*entities.Pair, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	pairs := make([]*entities.Pair, len(tokens))
	for i, t := range tokens {
		// a deep pool at one token0 per token1
		pairs[i] = ibswap.NewPool(common.BigToAddress(big.NewInt(int64(i+1))), t[0], t[1],
			new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil),
			new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil))
		pairs[i].DEX = entities.DEXSushiswap
	}
	return pairs, nil
}

func (r *fakeReader) DEXType() entities.DEXType {
	return entities.DEXSushiswap
}

func TestSeedPoolsUsesCache(t *testing.T) {
	ctx := context.Background()
	store := cache.NewInMemoryCache()
	reader := &fakeReader{}

	sim := ibswap.NewMainnetSimulation(ibswap.DeployConfig{})
	require.NoError(t, SeedPools(ctx, sim, reader, store, quietLogger()))
	assert.Equal(t, 1, reader.calls)

	pool, ok := sim.Pool(entities.WETH.Address, entities.USDC.Address)
	require.True(t, ok)
	assert.Equal(t, entities.DEXSushiswap, pool.DEX)
	assert.Equal(t, "1000000000000000000000000000000", pool.Reserve0.String())

	other := ibswap.NewMainnetSimulation(ibswap.DeployConfig{})
	require.NoError(t, SeedPools(ctx, other, reader, store, quietLogger()))
	assert.Equal(t, 1, reader.calls)

	pool, ok = other.Pool(entities.WETH.Address, entities.DAI.Address)
	require.True(t, ok)
	assert.Equal(t, entities.DEXSushiswap, pool.DEX)
}

func TestSeedPoolsReaderFailure(t *testing.T) {
	reader := &fakeReader{err: errors.New("rpc down")}
	sim := ibswap.NewMainnetSimulation(ibswap.DeployConfig{})

	err := SeedPools(context.Background(), sim, reader, cache.NewInMemoryCache(), quietLogger())
	assert.Error(t, err)

	pool, ok := sim.Pool(entities.WETH.Address, entities.USDC.Address)
	require.True(t, ok)
	assert.Equal(t, entities.DEXUniswapV2, pool.DEX)
}
