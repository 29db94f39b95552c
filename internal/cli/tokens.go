package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bimakw/ibswap-verifier/internal/app"
	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
)

func newTokensCommand(e *env) *cobra.Command {
	var wrappedOnly bool

	cmd := &cobra.Command{
		Use:     "tokens",
		Aliases: []string{"list-tokens", "ls"},
		Short:   "List known tokens",
		Long: `List the tokens from the token config (tokens_file), with the asset
each ib token is redeemable for.

Examples:
  ibswap tokens
  ibswap tokens --wrapped`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := app.LoadTokens(e.cfg.TokensFile, e.logger)
			tokens := registry.GetAll()
			if wrappedOnly {
				tokens = registry.Wrapped()
			}

			w := cmd.OutOrStdout()
			if e.jsonOutput {
				return printJSON(w, tokens)
			}
			displayTokens(cmd, registry, tokens)
			return nil
		},
	}

	cmd.Flags().BoolVar(&wrappedOnly, "wrapped", false, "Only list ib tokens")
	return cmd
}

func displayTokens(cmd *cobra.Command, registry *entities.TokenRegistry, tokens []entities.Token) {
	w := cmd.OutOrStdout()
	if len(tokens) == 0 {
		fmt.Fprintln(w, "\nNo tokens configured.")
		return
	}

	header(w, "TOKENS")
	for _, t := range tokens {
		line := fmt.Sprintf("  %-10s  %2d decimals  %s", color.YellowString(t.Symbol), t.Decimals, color.HiBlackString(t.Address.Hex()))
		if u, ok := registry.UnderlyingOf(t.Address); ok {
			line += "  -> " + u.Symbol
		}
		fmt.Fprintln(w, line)
	}
	footer(w)
	fmt.Fprintf(w, "\nTotal: %d tokens\n\n", len(tokens))
}
