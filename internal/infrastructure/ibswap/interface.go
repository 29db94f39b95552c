package ibswap

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
)

// Oracle is the swap contract as seen by a single caller. Amounts passed to
// EstimateRoutes are underlying units; Swap takes and returns wrapped units.
type Oracle interface {
	// Governor returns the privileged administrator of the contract
	Governor(ctx context.Context) (common.Address, error)

	// PendingGovernor returns the nominated successor, zero when none
	PendingGovernor(ctx context.Context) (common.Address, error)

	// AddSupportedTokens authorizes wrapped tokens for swapping (governor only)
	AddSupportedTokens(ctx context.Context, tokens []common.Address) error

	// EstimateRoutes returns the router's amounts along the swap path.
	// Index 0 is the input amount, index n the output after n hops.
	EstimateRoutes(ctx context.Context, tokenIn, tokenOut common.Address, underlyingAmountIn *big.Int) ([]*big.Int, error)

	Swap(ctx context.Context, req entities.SwapRequest) (*entities.SwapResult, error)

	WrappedToUnderlying(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error)
	UnderlyingToWrapped(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error)

	// TransferValue sends native value to the contract outside of swap paths
	TransferValue(ctx context.Context, amount *big.Int) error
}
