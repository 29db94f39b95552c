package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
)

// ErrChecksFailed is returned when a check ran but landed outside the threshold
var ErrChecksFailed = errors.New("one or more checks failed")

func newCheckCommand(e *env) *cobra.Command {
	var (
		hops  int
		raw   bool
		suite bool
	)

	cmd := &cobra.Command{
		Use:   "check [<amount> <token-in> <token-out>]",
		Short: "Estimate, swap and verify the realized output",
		Long: `Run the full check for one swap: estimate, derive the minimum output at the
configured tolerance, swap with that minimum, and verify the realized output
is within the configured threshold of the estimate.

With --suite, run the built-in mainnet scenarios instead.

Examples:
  ibswap check --suite
  ibswap check 9.92637183 ibETHv2 ibUSDCv2
  ibswap check 80000 ibUSDTv2 ibDAIv2 --hops 2`,
		Args: func(cmd *cobra.Command, args []string) error {
			if suite {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := e.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			scenarios := entities.DefaultScenarios()
			if !suite {
				tokens, err := resolve(a.Tokens, args[1], args[2])
				if err != nil {
					return err
				}
				amountIn, err := parseAmountArg(args[0], tokens[0], raw)
				if err != nil {
					return err
				}
				scenarios = []entities.Scenario{{
					Name:     tokens[0].Symbol + "->" + tokens[1].Symbol,
					TokenIn:  tokens[0],
					TokenOut: tokens[1],
					AmountIn: amountIn,
					HopCount: hops,
				}}
			}

			s := e.spin(cmd.ErrOrStderr(), fmt.Sprintf("Running %d check(s)...", len(scenarios)))
			reports, runErr := a.Checks.RunScenarios(ctx, scenarios)
			s.Stop()

			w := cmd.OutOrStdout()
			if e.jsonOutput {
				if err := printJSON(w, reports); err != nil {
					return err
				}
			} else {
				displayReports(w, reports)
			}

			if runErr != nil {
				return runErr
			}
			for _, r := range reports {
				if !r.Passed {
					return ErrChecksFailed
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&hops, "hops", 1, "Hop count of the estimate to use (1 or 2)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Amount is in base units")
	cmd.Flags().BoolVar(&suite, "suite", false, "Run the built-in mainnet scenarios")
	return cmd
}

func displayReports(w io.Writer, reports []*entities.CheckReport) {
	header(w, "CHECK RESULTS")
	passed := 0
	for _, r := range reports {
		if r.Passed {
			passed++
		}
		fmt.Fprintf(w, "\n  %s  %s (%d hop)\n", passFail(r.Passed), color.YellowString(r.Scenario), r.HopCount)
		fmt.Fprintf(w, "        expected  %s\n", r.ExpectedOut)
		fmt.Fprintf(w, "        realized  %s\n", r.RealizedOut)
		fmt.Fprintf(w, "        minimum   %s\n", r.MinAmountOut)
		fmt.Fprintf(w, "        deviation %s%% (threshold %s%%)\n", r.Deviation, r.Threshold)
		if r.TxHash != "" {
			fmt.Fprintf(w, "        tx        %s\n", color.HiBlackString(r.TxHash))
		}
	}
	footer(w)
	fmt.Fprintf(w, "\n%d/%d passed\n\n", passed, len(reports))
}
