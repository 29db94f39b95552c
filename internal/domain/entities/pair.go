package entities

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DEXType represents the type of decentralized exchange
type DEXType string

const (
	DEXUniswapV2 DEXType = "uniswap_v2"
	DEXSushiswap DEXType = "sushiswap"
)

// Pair represents a constant-product liquidity pool
type Pair struct {
	Address   common.Address `json:"address"`
	Token0    Token          `json:"token0"`
	Token1    Token          `json:"token1"`
	Reserve0  *big.Int       `json:"reserve0"`
	Reserve1  *big.Int       `json:"reserve1"`
	DEX       DEXType        `json:"dex"`
	Fee       uint64         `json:"fee"` // Fee in basis points (e.g., 30 = 0.3%)
	UpdatedAt int64          `json:"updatedAt"`
}

// Has reports whether token is one side of the pair
func (p *Pair) Has(token common.Address) bool {
	return p.Token0.Address == token || p.Token1.Address == token
}

func (p *Pair) reserves(tokenIn common.Address) (in, out *big.Int) {
	if tokenIn == p.Token0.Address {
		return p.Reserve0, p.Reserve1
	}
	return p.Reserve1, p.Reserve0
}

// GetAmountOut applies the Uniswap V2 formula with the pair fee
func (p *Pair) GetAmountOut(amountIn *big.Int, tokenIn common.Address) *big.Int {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return big.NewInt(0)
	}

	reserveIn, reserveOut := p.reserves(tokenIn)
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return big.NewInt(0)
	}

	// Apply fee (e.g., 0.3% fee means multiply by 997/1000)
	feeMultiplier := big.NewInt(10000 - int64(p.Fee))
	amountInWithFee := new(big.Int).Mul(amountIn, feeMultiplier)

	// numerator = amountInWithFee * reserveOut
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)

	// denominator = reserveIn * 10000 + amountInWithFee
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(10000))
	denominator.Add(denominator, amountInWithFee)

	return new(big.Int).Div(numerator, denominator)
}

// ApplySwap moves reserves after amountIn of tokenIn was traded for amountOut
func (p *Pair) ApplySwap(amountIn, amountOut *big.Int, tokenIn common.Address) {
	if tokenIn == p.Token0.Address {
		p.Reserve0 = new(big.Int).Add(p.Reserve0, amountIn)
		p.Reserve1 = new(big.Int).Sub(p.Reserve1, amountOut)
		return
	}
	p.Reserve1 = new(big.Int).Add(p.Reserve1, amountIn)
	p.Reserve0 = new(big.Int).Sub(p.Reserve0, amountOut)
}

// Clone returns a deep copy so callers cannot mutate shared reserves
func (p *Pair) Clone() *Pair {
	c := *p
	if p.Reserve0 != nil {
		c.Reserve0 = new(big.Int).Set(p.Reserve0)
	}
	if p.Reserve1 != nil {
		c.Reserve1 = new(big.Int).Set(p.Reserve1)
	}
	return &c
}
