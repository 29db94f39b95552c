package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/ibswap"
)

// QuoteVerifier derives a slippage-bounded swap plan from the oracle's
// estimate and checks realized outputs against it. It holds no state between
// calls and never retries.
type QuoteVerifier struct {
	oracle ibswap.Oracle
	logger *logrus.Logger
}

// NewQuoteVerifier creates a new quote verifier
func NewQuoteVerifier(oracle ibswap.Oracle, logger *logrus.Logger) *QuoteVerifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &QuoteVerifier{
		oracle: oracle,
		logger: logger,
	}
}

// EstimateOutput converts amountIn to underlying units and returns the
// oracle's estimate after hopCount hops.
func (v *QuoteVerifier) EstimateOutput(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut entities.Token, hopCount int) (*entities.Quote, error) {
	pair := entities.TokenPair{In: tokenIn, Out: tokenOut}
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	if hopCount < 1 || hopCount > entities.MaxHops {
		return nil, fmt.Errorf("hop count %d: %w", hopCount, entities.ErrInvalidRoute)
	}
	in, err := entities.NewTokenAmount(tokenIn, entities.KindWrapped, amountIn)
	if err != nil {
		return nil, err
	}

	underlyingIn, err := v.oracle.WrappedToUnderlying(ctx, tokenIn.Address, in.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s to underlying: %w", tokenIn.Symbol, err)
	}

	routes, err := v.oracle.EstimateRoutes(ctx, tokenIn.Address, tokenOut.Address, underlyingIn)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate routes: %w", err)
	}

	estimate, err := entities.RouteAt(routes, hopCount)
	if err != nil {
		return nil, fmt.Errorf("%d routes for hop count %d: %w", len(routes), hopCount, err)
	}

	v.logger.WithFields(logrus.Fields{
		"token_in":      tokenIn.Symbol,
		"token_out":     tokenOut.Symbol,
		"amount_in":     in.String(),
		"underlying_in": underlyingIn.String(),
		"hops":          hopCount,
		"estimate":      estimate.String(),
	}).Debug("Estimated output")

	return &entities.Quote{
		Pair:         pair,
		AmountIn:     in.Value,
		UnderlyingIn: underlyingIn,
		Routes:       routes,
		HopCount:     hopCount,
		AmountOut:    new(big.Int).Set(estimate),
	}, nil
}

// ComputeMinimumAcceptable returns floor(estimated * (1 - tolerance)) converted
// to wrapped units of tokenOut.
func (v *QuoteVerifier) ComputeMinimumAcceptable(ctx context.Context, tokenOut entities.Token, estimated *big.Int, tolerance decimal.Decimal) (*big.Int, error) {
	floor, err := DiscountFloor(estimated, tolerance)
	if err != nil {
		return nil, err
	}

	minimum, err := v.oracle.UnderlyingToWrapped(ctx, tokenOut.Address, floor)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s minimum to wrapped: %w", tokenOut.Symbol, err)
	}
	return minimum, nil
}

// ExpectedWrapped converts an underlying estimate into wrapped units of tokenOut
func (v *QuoteVerifier) ExpectedWrapped(ctx context.Context, tokenOut entities.Token, estimated *big.Int) (*big.Int, error) {
	expected, err := v.oracle.UnderlyingToWrapped(ctx, tokenOut.Address, estimated)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s estimate to wrapped: %w", tokenOut.Symbol, err)
	}
	return expected, nil
}

// ExecuteSwap submits req unchanged and returns the realized output as
// reported. Collaborator errors are returned as is.
func (v *QuoteVerifier) ExecuteSwap(ctx context.Context, req entities.SwapRequest) (*entities.SwapResult, error) {
	log := v.logger.WithFields(logrus.Fields{
		"token_in":       req.TokenIn.Hex(),
		"token_out":      req.TokenOut.Hex(),
		"amount_in":      bigString(req.AmountIn),
		"min_amount_out": bigString(req.MinAmountOut),
		"deadline":       bigString(req.Deadline),
	})

	result, err := v.oracle.Swap(ctx, req)
	if err != nil {
		log.WithError(err).Warn("Swap rejected")
		return nil, err
	}

	log.WithField("amount_out", result.AmountOut.String()).Info("Swap realized")
	return result, nil
}

// DiscountFloor returns floor(amount * (1 - tolerance)) for tolerance in (0, 1)
func DiscountFloor(amount *big.Int, tolerance decimal.Decimal) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, entities.ErrNegativeAmount
	}
	if !tolerance.IsPositive() || tolerance.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, entities.ErrInvalidTolerance
	}

	keep := new(big.Rat).Sub(big.NewRat(1, 1), tolerance.Rat())
	scaled := new(big.Rat).Mul(new(big.Rat).SetInt(amount), keep)
	// both operands are non-negative, so truncation is floor
	return new(big.Int).Quo(scaled.Num(), scaled.Denom()), nil
}

// VerifyWithinTolerance reports whether |actual - estimated| / estimated * 100
// is strictly below percentThreshold. The comparison is exact.
func VerifyWithinTolerance(estimated, actual *big.Int, percentThreshold decimal.Decimal) (bool, error) {
	if estimated == nil || estimated.Sign() <= 0 {
		return false, entities.ErrInvalidEstimate
	}
	if actual == nil {
		return false, entities.ErrNegativeAmount
	}

	diff := new(big.Int).Sub(actual, estimated)
	diff.Abs(diff)

	// diff*100 < threshold*estimated
	lhs := new(big.Rat).SetInt(diff.Mul(diff, big.NewInt(100)))
	rhs := new(big.Rat).Mul(percentThreshold.Rat(), new(big.Rat).SetInt(estimated))
	return lhs.Cmp(rhs) < 0, nil
}

// DeviationPercent returns |actual - estimated| / estimated * 100
func DeviationPercent(estimated, actual *big.Int) (decimal.Decimal, error) {
	if estimated == nil || estimated.Sign() <= 0 {
		return decimal.Zero, entities.ErrInvalidEstimate
	}
	if actual == nil {
		return decimal.Zero, entities.ErrNegativeAmount
	}
	diff := new(big.Int).Sub(actual, estimated)
	return decimal.NewFromBigInt(diff.Abs(diff), 0).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromBigInt(estimated, 0)), nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "<nil>"
	}
	return v.String()
}
