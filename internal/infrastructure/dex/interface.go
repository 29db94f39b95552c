package dex

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
)

// PoolReader reads live constant-product pool state from a DEX
type PoolReader interface {
	GetPairAddress(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error)

	GetPairByTokens(ctx context.Context, tokenA, tokenB entities.Token) (*entities.Pair, error)

	// FetchPairs reads several pairs in one batch, in input order
	FetchPairs(ctx context.Context, tokens [][2]entities.Token) ([]*entities.Pair, error)

	// DEXType returns the type of DEX
	DEXType() entities.DEXType
}

var _ PoolReader = (*UniswapV2Reader)(nil)

// Pool sources selectable by configuration
const (
	SourceUniswapV2 = string(entities.DEXUniswapV2)
	SourceSushiswap = string(entities.DEXSushiswap)
)

// NewPoolReader returns the reader for a named pool source
func NewPoolReader(source string, caller Caller) (PoolReader, bool) {
	switch source {
	case SourceUniswapV2:
		return NewUniswapV2Reader(caller, UniswapV2RouterAddress), true
	case SourceSushiswap:
		return NewSushiswapReader(caller), true
	default:
		return nil, false
	}
}
