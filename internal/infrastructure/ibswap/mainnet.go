package ibswap

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
)

// Approximate mainnet exchange rates, underlying per wrapped scaled by 1e18.
// The 8-decimal wrappers follow the Compound cToken convention.
var mainnetRates = map[common.Address]*big.Int{
	entities.IBETH.Address:  big.NewInt(1_050_000_000_000_000_000),
	entities.IBUSDT.Address: big.NewInt(220_000_000_000_000),
	entities.IBUSDC.Address: big.NewInt(225_000_000_000_000),
	entities.IBDAI.Address:  new(big.Int).Mul(big.NewInt(22), new(big.Int).Exp(big.NewInt(10), big.NewInt(25), nil)),
}

// SeedBalance is the amount of each ib token credited to the governor by
// NewMainnetSimulation.
var SeedBalance = map[common.Address]*big.Int{
	entities.IBETH.Address:  new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18)),
	entities.IBUSDT.Address: big.NewInt(1e15),
	entities.IBUSDC.Address: big.NewInt(1e15),
	entities.IBDAI.Address:  big.NewInt(1e15),
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// NewPool builds a Uniswap V2 pair with tokens sorted by address, as the
// factory does.
func NewPool(address common.Address, a, b entities.Token, reserveA, reserveB *big.Int) *entities.Pair {
	if a.Address.Cmp(b.Address) > 0 {
		a, b = b, a
		reserveA, reserveB = reserveB, reserveA
	}
	return &entities.Pair{
		Address:  address,
		Token0:   a,
		Token1:   b,
		Reserve0: new(big.Int).Set(reserveA),
		Reserve1: new(big.Int).Set(reserveB),
		DEX:      entities.DEXUniswapV2,
		Fee:      30,
	}
}

// MainnetPools returns WETH pools against USDC, USDT and DAI with reserves
// close to mainnet at roughly 2000 USD per ETH.
func MainnetPools() []*entities.Pair {
	return []*entities.Pair{
		NewPool(common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"),
			entities.WETH, entities.USDC, pow10(22), new(big.Int).Mul(big.NewInt(2), pow10(13))),
		NewPool(common.HexToAddress("0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852"),
			entities.WETH, entities.USDT, new(big.Int).Mul(big.NewInt(8), pow10(21)), new(big.Int).Mul(big.NewInt(16), pow10(12))),
		NewPool(common.HexToAddress("0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11"),
			entities.WETH, entities.DAI, new(big.Int).Mul(big.NewInt(5), pow10(21)), pow10(25)),
	}
}

// NewMainnetSimulation deploys a simulated contract the way the mainnet one is
// deployed (router, ibETHv2 as the wrapped-native token), registers the four
// ib tokens, installs MainnetPools and funds the governor with SeedBalance.
// No token is added to the supported set.
func NewMainnetSimulation(cfg DeployConfig) *Simulator {
	if cfg.Router == (common.Address{}) {
		cfg.Router = entities.UniswapV2Router02
	}
	if cfg.WETH == (common.Address{}) {
		cfg.WETH = entities.IBETH.Address
	}
	sim := NewSimulator(cfg)

	for _, t := range []entities.Token{entities.IBETH, entities.IBUSDT, entities.IBUSDC, entities.IBDAI} {
		// registration only fails for unwrapped tokens or non-positive rates
		_ = sim.RegisterToken(t, mainnetRates[t.Address])
		sim.Mint(t.Address, cfg.Governor, SeedBalance[t.Address])
	}
	for _, p := range MainnetPools() {
		sim.SetPool(p)
	}
	return sim
}
