package entities

import "github.com/ethereum/go-ethereum/common"

// Token is an ERC20 token. Wrapped (interest-bearing) tokens carry the address
// of the asset they are redeemable for in Underlying.
type Token struct {
	Address    common.Address `json:"address"`
	Symbol     string         `json:"symbol"`
	Name       string         `json:"name"`
	Decimals   uint8          `json:"decimals"`
	Underlying common.Address `json:"underlying,omitempty"`
}

// IsWrapped reports whether the token is an ib wrapper around another token
func (t Token) IsWrapped() bool {
	return t.Underlying != (common.Address{})
}

// WETH is the canonical Wrapped Ether token on Ethereum mainnet
var WETH = Token{
	Address:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
	Symbol:   "WETH",
	Name:     "Wrapped Ether",
	Decimals: 18,
}

// USDC is USD Coin on Ethereum mainnet
var USDC = Token{
	Address:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
	Symbol:   "USDC",
	Name:     "USD Coin",
	Decimals: 6,
}

// USDT is Tether USD on Ethereum mainnet
var USDT = Token{
	Address:  common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
	Symbol:   "USDT",
	Name:     "Tether USD",
	Decimals: 6,
}

// DAI is Dai Stablecoin on Ethereum mainnet
var DAI = Token{
	Address:  common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
	Symbol:   "DAI",
	Name:     "Dai Stablecoin",
	Decimals: 18,
}

// Homora v2 interest-bearing wrappers. ibETHv2 doubles as the wrapped-native
// identity the swap contract is deployed with.
var (
	IBETH = Token{
		Address:    common.HexToAddress("0xeEa3311250FE4c3268F8E684f7C87A82fF183Ec1"),
		Symbol:     "ibETHv2",
		Name:       "Interest Bearing ETH v2",
		Decimals:   18,
		Underlying: WETH.Address,
	}
	IBUSDT = Token{
		Address:    common.HexToAddress("0x020EDC614187F9937A1EFEEE007656C6356FB13A"),
		Symbol:     "ibUSDTv2",
		Name:       "Interest Bearing USDT v2",
		Decimals:   8,
		Underlying: USDT.Address,
	}
	IBUSDC = Token{
		Address:    common.HexToAddress("0x08bd64BFC832F1C2B3e07e634934453bA7Fa2db2"),
		Symbol:     "ibUSDCv2",
		Name:       "Interest Bearing USDC v2",
		Decimals:   8,
		Underlying: USDC.Address,
	}
	IBDAI = Token{
		Address:    common.HexToAddress("0xee8389d235E092b2945fE363e97CDBeD121A0439"),
		Symbol:     "ibDAIv2",
		Name:       "Interest Bearing DAI v2",
		Decimals:   8,
		Underlying: DAI.Address,
	}
)

// UniswapV2Router02 is the router the swap contract is deployed against
var UniswapV2Router02 = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
