package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bimakw/ibswap-verifier/internal/app"
	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	"github.com/bimakw/ibswap-verifier/internal/domain/services"
)

func newAddTokensCommand(e *env) *cobra.Command {
	var caller string

	cmd := &cobra.Command{
		Use:   "add-tokens <token>...",
		Short: "Authorize ib tokens for swapping (governor only)",
		Long: `Add ib tokens to the contract's supported set. Only the governor may do
this; any other caller is rejected with "not the governor".

In simulated mode --as sends the call from another account.

Examples:
  ibswap add-tokens ibUSDTv2 ibUSDCv2 ibDAIv2
  ibswap add-tokens ibDAIv2 --as 0x000000000000000000000000000000000000dEaD`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := e.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			tokens, err := resolve(a.Tokens, args...)
			if err != nil {
				return err
			}

			admin := a.Admin
			if caller != "" {
				if a.Simulator == nil {
					return errors.New("--as is only available in simulated mode")
				}
				if !common.IsHexAddress(caller) {
					return fmt.Errorf("invalid address %q", caller)
				}
				admin = services.NewAdminService(a.Simulator.Session(common.HexToAddress(caller)), e.logger)
			}

			s := e.spin(cmd.ErrOrStderr(), "Adding supported tokens...")
			err = admin.AddSupportedTokens(ctx, tokens)
			s.Stop()
			if err != nil {
				if reason, ok := entities.RevertReason(err); ok {
					return fmt.Errorf("add-tokens rejected: %s", reason)
				}
				return err
			}

			w := cmd.OutOrStdout()
			if e.jsonOutput {
				return printJSON(w, map[string]interface{}{"added": tokens})
			}
			color.New(color.FgGreen).Fprintf(w, "\nAdded %d token(s)\n\n", len(tokens))
			return nil
		},
	}

	cmd.Flags().StringVar(&caller, "as", "", "Caller address (simulated mode only)")
	return cmd
}

func newGovernorCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "governor",
		Short: "Show the contract governor and any pending successor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := e.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			gov, err := a.Admin.Governor(ctx)
			if err != nil {
				return err
			}
			pending, err := a.Admin.PendingGovernor(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if e.jsonOutput {
				out := map[string]string{"governor": gov.Hex()}
				if pending != (common.Address{}) {
					out["pendingGovernor"] = pending.Hex()
				}
				return printJSON(w, out)
			}
			fmt.Fprintf(w, "\n  Governor:  %s\n", color.CyanString(gov.Hex()))
			if pending == (common.Address{}) {
				fmt.Fprintf(w, "  Pending:   none\n\n")
			} else {
				fmt.Fprintf(w, "  Pending:   %s\n\n", pending.Hex())
			}
			return nil
		},
	}
}

func newSendEthCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "send-eth <amount>",
		Short: "Send ether directly to the contract",
		Long: `Send ether to the contract outside of a swap. The contract only accepts
value from its WETH token, so this is expected to revert with
"unexpected-eth-sender"; the command reports the revert reason.

Examples:
  ibswap send-eth 0.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			amount, err := entities.ParseUnits(args[0], 18)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}

			a, err := e.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			s := e.spin(cmd.ErrOrStderr(), "Sending ether...")
			err = a.Admin.TransferValue(ctx, amount)
			s.Stop()

			w := cmd.OutOrStdout()
			reason, reverted := entities.RevertReason(err)
			if e.jsonOutput {
				out := map[string]interface{}{"amount": amount.String(), "accepted": err == nil}
				if reverted {
					out["reason"] = reason
				}
				if err != nil && !reverted {
					return err
				}
				return printJSON(w, out)
			}

			switch {
			case err == nil:
				color.New(color.FgYellow).Fprintf(w, "\nTransfer of %s ETH was accepted\n\n", args[0])
			case reverted:
				fmt.Fprintf(w, "\nTransfer rejected: %s\n\n", color.RedString(reason))
			default:
				return err
			}
			return nil
		},
	}
}

func newDeployCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a new swap contract",
		Long: `Deploy the swap contract from bytecode_file with the configured router and
weth constructor arguments. The deploying key becomes the governor.

Examples:
  IBSWAP_MODE=chain IBSWAP_BYTECODE_FILE=HomoraIBSwap.bin ibswap deploy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := e.spin(cmd.ErrOrStderr(), "Deploying contract...")
			start := time.Now()
			addr, receipt, err := app.Deploy(cmd.Context(), e.cfg, e.logger)
			s.Stop()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if e.jsonOutput {
				return printJSON(w, map[string]interface{}{
					"address": addr.Hex(),
					"txHash":  receipt.TxHash.Hex(),
					"gasUsed": receipt.GasUsed,
				})
			}
			header(w, "CONTRACT DEPLOYED")
			fmt.Fprintf(w, "\n  Address:  %s\n", color.CyanString(addr.Hex()))
			fmt.Fprintf(w, "  Tx:       %s\n", receipt.TxHash.Hex())
			fmt.Fprintf(w, "  Gas used: %d\n", receipt.GasUsed)
			fmt.Fprintf(w, "  Took:     %s\n", time.Since(start).Round(time.Millisecond))
			footer(w)
			return nil
		},
	}
}
