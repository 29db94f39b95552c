package ibswap

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const homoraIBSwapABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[
		{"name":"_router","type":"address"},{"name":"_weth","type":"address"}]},
	{"type":"function","name":"governor","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"pendingGovernor","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"setPendingGovernor","stateMutability":"nonpayable",
		"inputs":[{"name":"_pendingGovernor","type":"address"}],"outputs":[]},
	{"type":"function","name":"acceptGovernor","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"addIBTokens","stateMutability":"nonpayable",
		"inputs":[{"name":"ibTokens","type":"address[]"}],"outputs":[]},
	{"type":"function","name":"getEstimatedAmountsOut","stateMutability":"view","inputs":[
		{"name":"ibTokenIn","type":"address"},{"name":"ibTokenOut","type":"address"},{"name":"amountIn","type":"uint256"}],
		"outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"swap","stateMutability":"nonpayable","inputs":[
		{"name":"ibTokenIn","type":"address"},{"name":"ibTokenOut","type":"address"},
		{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"deadline","type":"uint256"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"ibToToken","stateMutability":"view","inputs":[
		{"name":"ibToken","type":"address"},{"name":"amount","type":"uint256"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"tokenToIB","stateMutability":"view","inputs":[
		{"name":"ibToken","type":"address"},{"name":"amount","type":"uint256"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"receive","stateMutability":"payable"}
]`

// SafeBox (ib token) subset used by the client
const safeBoxABI = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[
		{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[
		{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[
		{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"uToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

var (
	swapABI    = mustParseABI(homoraIBSwapABI)
	ibTokenABI = mustParseABI(safeBoxABI)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("ibswap: invalid ABI: " + err.Error())
	}
	return parsed
}
