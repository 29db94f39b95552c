package dex

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
)

var (
	testFactory  = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	usdcWethPair = common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")
)

// mockCaller emulates a router, a factory with a single pair, and that pair
type mockCaller struct {
	factoryCalls int
	pairs        map[common.Address][2]*big.Int
	failReserves bool
}

func word(b []byte) []byte {
	return common.LeftPadBytes(b, 32)
}

func (m *mockCaller) CallContract(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
	switch {
	case bytes.Equal(msg.Data, factorySelector):
		m.factoryCalls++
		return word(testFactory.Bytes()), nil
	case bytes.HasPrefix(msg.Data, getPairSelector):
		if *msg.To != testFactory {
			return nil, errors.New("execution reverted")
		}
		token0 := common.BytesToAddress(msg.Data[16:36])
		token1 := common.BytesToAddress(msg.Data[48:68])
		if token0 == entities.USDC.Address && token1 == entities.WETH.Address {
			return word(usdcWethPair.Bytes()), nil
		}
		return word(nil), nil
	case bytes.Equal(msg.Data, getReservesSelector):
		if m.failReserves {
			return nil, errors.New("connection reset")
		}
		r, ok := m.pairs[*msg.To]
		if !ok {
			return nil, errors.New("execution reverted")
		}
		out := append(word(r[0].Bytes()), word(r[1].Bytes())...)
		return append(out, word(big.NewInt(1_700_000_000).Bytes())...), nil
	}
	return nil, errors.New("unexpected call")
}

func (m *mockCaller) Multicall(ctx context.Context, calls []ethereum.CallMsg) ([][]byte, error) {
	out := make([][]byte, len(calls))
	for i, c := range calls {
		res, err := m.CallContract(ctx, c)
		if err != nil {
			return out, err
		}
		out[i] = res
	}
	return out, nil
}

func newMockCaller() *mockCaller {
	return &mockCaller{
		pairs: map[common.Address][2]*big.Int{
			usdcWethPair: {big.NewInt(2e13), new(big.Int).Mul(big.NewInt(1e4), big.NewInt(1e18))},
		},
	}
}

func TestGetPairByTokensSortsAndReads(t *testing.T) {
	caller := newMockCaller()
	reader := NewUniswapV2Reader(caller, UniswapV2RouterAddress)

	// WETH first: the reader must sort by address bytes, not checksum text
	pair, err := reader.GetPairByTokens(context.Background(), entities.WETH, entities.USDC)
	require.NoError(t, err)

	assert.Equal(t, usdcWethPair, pair.Address)
	assert.Equal(t, entities.USDC.Symbol, pair.Token0.Symbol)
	assert.Equal(t, entities.WETH.Symbol, pair.Token1.Symbol)
	assert.Equal(t, big.NewInt(2e13), pair.Reserve0)
	assert.Equal(t, entities.DEXUniswapV2, pair.DEX)
	assert.Equal(t, uint64(30), pair.Fee)
}

func TestFactoryResolvedOnce(t *testing.T) {
	caller := newMockCaller()
	reader := NewUniswapV2Reader(caller, UniswapV2RouterAddress)

	for i := 0; i < 3; i++ {
		addr, err := reader.GetPairAddress(context.Background(), entities.USDC.Address, entities.WETH.Address)
		require.NoError(t, err)
		assert.Equal(t, usdcWethPair, addr)
	}
	assert.Equal(t, 1, caller.factoryCalls)
}

func TestFetchPairsMissingPair(t *testing.T) {
	reader := NewUniswapV2Reader(newMockCaller(), UniswapV2RouterAddress)

	_, err := reader.FetchPairs(context.Background(), [][2]entities.Token{
		{entities.WETH, entities.USDC},
		{entities.USDT, entities.USDC},
	})
	assert.ErrorIs(t, err, ErrPairNotFound)
}

func TestFetchPairsReserveFailure(t *testing.T) {
	caller := newMockCaller()
	caller.failReserves = true

	_, err := NewUniswapV2Reader(caller, UniswapV2RouterAddress).
		FetchPairs(context.Background(), [][2]entities.Token{{entities.WETH, entities.USDC}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get reserves")
}

func TestNewPoolReader(t *testing.T) {
	r, ok := NewPoolReader(SourceSushiswap, newMockCaller())
	require.True(t, ok)
	assert.Equal(t, entities.DEXSushiswap, r.DEXType())

	_, ok = NewPoolReader("curve", newMockCaller())
	assert.False(t, ok)
}
