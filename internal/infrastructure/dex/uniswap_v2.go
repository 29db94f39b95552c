package dex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	chain "github.com/bimakw/ibswap-verifier/internal/infrastructure/ethereum"
)

// UniswapV2 ABI function signatures (keccak256 hash of function signature)
var (
	// getReserves() returns (uint112 reserve0, uint112 reserve1, uint32 blockTimestampLast)
	getReservesSelector = common.Hex2Bytes("0902f1ac")
	// getPair(address,address) returns (address)
	getPairSelector = common.Hex2Bytes("e6a43905")
	// factory() returns (address)
	factorySelector = common.Hex2Bytes("c45a0155")
)

// Router addresses
var (
	UniswapV2RouterAddress = entities.UniswapV2Router02
	SushiswapRouterAddress = common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F")
)

// ErrPairNotFound is returned when the factory has no pair for two tokens
var ErrPairNotFound = errors.New("pair does not exist")

// Caller is the read-only RPC surface the reader needs
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	Multicall(ctx context.Context, calls []ethereum.CallMsg) ([][]byte, error)
}

// UniswapV2Reader reads pair reserves of a Uniswap V2 compatible DEX. The
// factory is resolved from the router on first use.
type UniswapV2Reader struct {
	caller  Caller
	router  common.Address
	dexType entities.DEXType
	fee     uint64 // Fee in basis points (30 = 0.3%)

	mu      sync.Mutex
	factory common.Address
}

// NewUniswapV2Reader creates a reader for the Uniswap V2 deployment behind router
func NewUniswapV2Reader(caller Caller, router common.Address) *UniswapV2Reader {
	return &UniswapV2Reader{
		caller:  caller,
		router:  router,
		dexType: entities.DEXUniswapV2,
		fee:     30, // 0.3% fee
	}
}

// NewSushiswapReader creates a reader for Sushiswap (same interface as Uniswap V2)
func NewSushiswapReader(caller Caller) *UniswapV2Reader {
	r := NewUniswapV2Reader(caller, SushiswapRouterAddress)
	r.dexType = entities.DEXSushiswap
	return r
}

// Factory returns the pair factory the router is wired to
func (r *UniswapV2Reader) Factory(ctx context.Context) (common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factory != (common.Address{}) {
		return r.factory, nil
	}

	result, err := r.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &r.router,
		Data: factorySelector,
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get factory: %w", err)
	}
	if len(result) < 32 {
		return common.Address{}, fmt.Errorf("invalid factory response length")
	}

	r.factory = common.BytesToAddress(result[12:32])
	return r.factory, nil
}

// GetPairAddress returns the pair address for two tokens
func (r *UniswapV2Reader) GetPairAddress(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	msg, err := r.getPairCall(ctx, tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}

	result, err := r.caller.CallContract(ctx, msg)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get pair address: %w", err)
	}
	return decodeAddress(result)
}

// GetPairByTokens fetches pair data by tokens
func (r *UniswapV2Reader) GetPairByTokens(ctx context.Context, tokenA, tokenB entities.Token) (*entities.Pair, error) {
	pairs, err := r.FetchPairs(ctx, [][2]entities.Token{{tokenA, tokenB}})
	if err != nil {
		return nil, err
	}
	return pairs[0], nil
}

// FetchPairs resolves and reads several pairs in two batched rounds: pair
// addresses first, then reserves.
func (r *UniswapV2Reader) FetchPairs(ctx context.Context, tokens [][2]entities.Token) ([]*entities.Pair, error) {
	calls := make([]ethereum.CallMsg, len(tokens))
	for i, t := range tokens {
		msg, err := r.getPairCall(ctx, t[0].Address, t[1].Address)
		if err != nil {
			return nil, err
		}
		calls[i] = msg
	}

	results, err := r.caller.Multicall(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("failed to get pair addresses: %w", err)
	}

	addresses := make([]common.Address, len(tokens))
	for i, res := range results {
		addr, err := decodeAddress(res)
		if err != nil {
			return nil, err
		}
		if addr == chain.ZeroAddress {
			return nil, fmt.Errorf("%s/%s: %w", tokens[i][0].Symbol, tokens[i][1].Symbol, ErrPairNotFound)
		}
		addresses[i] = addr
		calls[i] = ethereum.CallMsg{To: &addresses[i], Data: getReservesSelector}
	}

	results, err = r.caller.Multicall(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("failed to get reserves: %w", err)
	}

	now := time.Now().Unix()
	pairs := make([]*entities.Pair, len(tokens))
	for i, res := range results {
		if len(res) < 64 {
			return nil, fmt.Errorf("invalid reserves response length")
		}
		token0, token1 := sortTokens(tokens[i][0], tokens[i][1])
		pairs[i] = &entities.Pair{
			Address:   addresses[i],
			Token0:    token0,
			Token1:    token1,
			Reserve0:  new(big.Int).SetBytes(res[0:32]),
			Reserve1:  new(big.Int).SetBytes(res[32:64]),
			DEX:       r.dexType,
			Fee:       r.fee,
			UpdatedAt: now,
		}
	}
	return pairs, nil
}

// DEXType returns the DEX type
func (r *UniswapV2Reader) DEXType() entities.DEXType {
	return r.dexType
}

func (r *UniswapV2Reader) getPairCall(ctx context.Context, tokenA, tokenB common.Address) (ethereum.CallMsg, error) {
	factory, err := r.Factory(ctx)
	if err != nil {
		return ethereum.CallMsg{}, err
	}

	// Encode getPair(token0, token1)
	token0, token1 := sortAddresses(tokenA, tokenB)
	data := make([]byte, 68)
	copy(data[0:4], getPairSelector)
	copy(data[16:36], token0.Bytes())
	copy(data[48:68], token1.Bytes())

	return ethereum.CallMsg{To: &factory, Data: data}, nil
}

func decodeAddress(result []byte) (common.Address, error) {
	if len(result) < 32 {
		return common.Address{}, fmt.Errorf("invalid response length")
	}
	return common.BytesToAddress(result[12:32]), nil
}

// sortAddresses sorts two addresses in ascending byte order (Uniswap V2 convention)
func sortAddresses(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return a, b
	}
	return b, a
}

func sortTokens(a, b entities.Token) (entities.Token, entities.Token) {
	if bytes.Compare(a.Address.Bytes(), b.Address.Bytes()) < 0 {
		return a, b
	}
	return b, a
}
