package cli

import (
	"fmt"
	"math/big"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
)

type estimateOutput struct {
	Quote        *entities.Quote `json:"quote"`
	Tolerance    string          `json:"tolerance"`
	MinAmountOut *big.Int        `json:"minAmountOut"`
	ExpectedOut  *big.Int        `json:"expectedOut"`
}

// parseAmountArg reads a human amount in token units, or base units when raw
func parseAmountArg(s string, token entities.Token, raw bool) (*big.Int, error) {
	if raw {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok || v.Sign() < 0 {
			return nil, fmt.Errorf("invalid amount %q", s)
		}
		return v, nil
	}
	v, err := entities.ParseUnits(s, token.Decimals)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

func newEstimateCommand(e *env) *cobra.Command {
	var (
		hops      int
		raw       bool
		tolerance string
	)

	cmd := &cobra.Command{
		Use:   "estimate <amount> <token-in> <token-out>",
		Short: "Estimate a swap and its minimum acceptable output",
		Long: `Estimate the output of swapping <amount> of one ib token into another, and
the minimum output a swap should accept at the configured tolerance.

Amounts are in whole ib-token units unless --raw is given.

Examples:
  ibswap estimate 9.92637183 ibETHv2 ibUSDCv2
  ibswap estimate 80000 ibUSDTv2 ibDAIv2 --hops 2
  ibswap estimate 8000000000000 ibUSDTv2 ibETHv2 --raw --tolerance 0.05`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := e.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			tokens, err := resolve(a.Tokens, args[1], args[2])
			if err != nil {
				return err
			}
			tokenIn, tokenOut := tokens[0], tokens[1]
			amountIn, err := parseAmountArg(args[0], tokenIn, raw)
			if err != nil {
				return err
			}

			tol := e.cfg.Tolerance
			if tolerance != "" {
				if tol, err = decimal.NewFromString(tolerance); err != nil {
					return fmt.Errorf("invalid tolerance: %w", err)
				}
			}

			quote, err := a.Verifier.EstimateOutput(ctx, amountIn, tokenIn, tokenOut, hops)
			if err != nil {
				return err
			}
			minOut, err := a.Verifier.ComputeMinimumAcceptable(ctx, tokenOut, quote.AmountOut, tol)
			if err != nil {
				return err
			}
			expected, err := a.Verifier.ExpectedWrapped(ctx, tokenOut, quote.AmountOut)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if e.jsonOutput {
				return printJSON(w, estimateOutput{Quote: quote, Tolerance: tol.String(), MinAmountOut: minOut, ExpectedOut: expected})
			}

			underlying, _ := a.Tokens.UnderlyingOf(tokenOut.Address)
			header(w, "SWAP ESTIMATE")
			in := entities.TokenAmount{Token: tokenIn, Kind: entities.KindWrapped, Value: quote.AmountIn}
			out := entities.TokenAmount{Token: underlying, Kind: entities.KindUnderlying, Value: quote.AmountOut}
			fmt.Fprintf(w, "\n  From:              %s\n", color.YellowString(in.String()))
			fmt.Fprintf(w, "  Underlying in:     %s\n", quote.UnderlyingIn)
			fmt.Fprintf(w, "  Hops:              %d\n", quote.HopCount)
			fmt.Fprintf(w, "  Estimated out:     %s (%s)\n", color.YellowString(out.String()), out.Kind)
			fmt.Fprintf(w, "  Expected out:      %s %s\n", entities.FormatUnits(expected, tokenOut.Decimals), color.YellowString(tokenOut.Symbol))
			fmt.Fprintf(w, "  Minimum out:       %s %s (tolerance %s)\n", color.CyanString(entities.FormatUnits(minOut, tokenOut.Decimals)), tokenOut.Symbol, tol)
			footer(w)
			return nil
		},
	}

	cmd.Flags().IntVar(&hops, "hops", 1, "Hop count of the estimate to use (1 or 2)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Amount is in base units")
	cmd.Flags().StringVar(&tolerance, "tolerance", "", "Slippage tolerance fraction (default from config)")
	return cmd
}
