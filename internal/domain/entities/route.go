package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MaxHops is the longest route the swap contract estimates (via one intermediate)
const MaxHops = 2

// Quote is the oracle estimate selected for a swap. Routes holds every
// candidate the oracle returned, positionally: Routes[0] is the underlying
// input and Routes[n] is the output after n hops.
type Quote struct {
	Pair         TokenPair  `json:"pair"`
	AmountIn     *big.Int   `json:"amountIn"`     // wrapped units
	UnderlyingIn *big.Int   `json:"underlyingIn"` // underlying units
	Routes       []*big.Int `json:"routes"`
	HopCount     int        `json:"hopCount"`
	AmountOut    *big.Int   `json:"amountOut"` // underlying units of Pair.Out
}

// RouteAt returns the estimate produced after hopCount hops
func RouteAt(routes []*big.Int, hopCount int) (*big.Int, error) {
	if hopCount < 1 || hopCount > MaxHops || hopCount >= len(routes) {
		return nil, ErrInvalidRoute
	}
	if routes[hopCount] == nil || routes[hopCount].Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	return routes[hopCount], nil
}

// SwapRequest carries the parameters submitted to the swap contract unchanged
type SwapRequest struct {
	TokenIn      common.Address `json:"tokenIn"`
	TokenOut     common.Address `json:"tokenOut"`
	AmountIn     *big.Int       `json:"amountIn"`
	MinAmountOut *big.Int       `json:"minAmountOut"`
	Deadline     *big.Int       `json:"deadline"`
}

// SwapResult is the realized outcome of a swap as reported by the contract
type SwapResult struct {
	Request   SwapRequest `json:"request"`
	AmountOut *big.Int    `json:"amountOut"` // wrapped units of TokenOut
	TxHash    common.Hash `json:"txHash,omitempty"`
	GasUsed   uint64      `json:"gasUsed,omitempty"`
}

// CheckReport records one quote-then-verify run
type CheckReport struct {
	ID           string     `json:"id"`
	Scenario     string     `json:"scenario,omitempty"`
	TokenIn      Token      `json:"tokenIn"`
	TokenOut     Token      `json:"tokenOut"`
	AmountIn     *big.Int   `json:"amountIn"`
	HopCount     int        `json:"hopCount"`
	Routes       []*big.Int `json:"routes"`
	EstimatedOut *big.Int   `json:"estimatedOut"` // underlying
	ExpectedOut  *big.Int   `json:"expectedOut"`  // wrapped
	MinAmountOut *big.Int   `json:"minAmountOut"` // wrapped
	RealizedOut  *big.Int   `json:"realizedOut"`  // wrapped
	Deadline     *big.Int   `json:"deadline"`
	Tolerance    string     `json:"tolerance"`
	Threshold    string     `json:"threshold"`
	Deviation    string     `json:"deviation"` // percent
	Passed       bool       `json:"passed"`
	TxHash       string     `json:"txHash,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Scenario is a named swap to verify
type Scenario struct {
	Name     string
	TokenIn  Token
	TokenOut Token
	AmountIn *big.Int
	HopCount int
}

// DefaultScenarios returns the mainnet swaps the contract is exercised with
func DefaultScenarios() []Scenario {
	eightTrillion := new(big.Int).Mul(big.NewInt(8), big.NewInt(1e12))
	return []Scenario{
		{Name: "ibETHv2->ibUSDCv2", TokenIn: IBETH, TokenOut: IBUSDC, AmountIn: big.NewInt(992637183), HopCount: 1},
		{Name: "ibUSDTv2->ibETHv2", TokenIn: IBUSDT, TokenOut: IBETH, AmountIn: new(big.Int).Set(eightTrillion), HopCount: 1},
		{Name: "ibUSDTv2->ibUSDCv2", TokenIn: IBUSDT, TokenOut: IBUSDC, AmountIn: new(big.Int).Set(eightTrillion), HopCount: 2},
		{Name: "ibUSDTv2->ibDAIv2", TokenIn: IBUSDT, TokenOut: IBDAI, AmountIn: new(big.Int).Set(eightTrillion), HopCount: 2},
	}
}
