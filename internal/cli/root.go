package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bimakw/ibswap-verifier/internal/app"
	"github.com/bimakw/ibswap-verifier/internal/config"
	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	"github.com/bimakw/ibswap-verifier/internal/logging"
)

const version = "0.3.0"

// env is the state shared by every command of one invocation
type env struct {
	configPath string
	jsonOutput bool
	verbose    bool

	cfg    *config.Config
	logger *logrus.Logger
}

// NewRootCommand builds the ibswap command tree
func NewRootCommand() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "ibswap",
		Short: "Quote, swap and verify ib-token swaps",
		Long: `ibswap estimates swaps between Homora interest-bearing tokens, derives a
slippage-guarded minimum output, executes the swap and checks the realized
output against the estimate.

By default it runs against an in-process simulation seeded with mainnet-like
pools. Set mode: chain (or IBSWAP_MODE=chain) to use a deployed contract.

Examples:
  ibswap tokens
  ibswap estimate 80000 ibUSDTv2 ibDAIv2 --hops 2
  ibswap check --suite
  ibswap add-tokens ibUSDTv2 ibUSDCv2 ibDAIv2`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
	}

	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "Config file (default .ibswap.yaml)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().BoolVarP(&e.jsonOutput, "json", "j", false, "Output in JSON format")

	root.AddCommand(
		newTokensCommand(e),
		newEstimateCommand(e),
		newCheckCommand(e),
		newGovernorCommand(e),
		newAddTokensCommand(e),
		newSendEthCommand(e),
		newDeployCommand(e),
	)
	return root
}

// Execute runs the CLI with the process arguments
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (e *env) load() error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := "warn"
	if e.verbose {
		level = "debug"
	}
	e.cfg = cfg
	e.logger = logging.New(level, cfg.LogFormat)
	return nil
}

func (e *env) app(ctx context.Context) (*app.App, error) {
	return app.New(ctx, e.cfg, e.logger)
}

// resolve looks tokens up by symbol or address
func resolve(tokens *entities.TokenRegistry, refs ...string) ([]entities.Token, error) {
	out := make([]entities.Token, len(refs))
	for i, ref := range refs {
		t, ok := tokens.Resolve(ref)
		if !ok {
			return nil, fmt.Errorf("unknown token %q (try: ibswap tokens)", ref)
		}
		out[i] = t
	}
	return out, nil
}

func (e *env) spin(w io.Writer, suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	if !e.jsonOutput {
		s.Start()
	}
	return s
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func header(w io.Writer, title string) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	color.New(color.FgGreen).Fprintf(w, "%s\n", centre(title, 60))
	fmt.Fprintln(w, strings.Repeat("=", 60))
}

func footer(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
}

func centre(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", (width-len(s))/2) + s
}

func passFail(passed bool) string {
	if passed {
		return color.GreenString("PASS")
	}
	return color.RedString("FAIL")
}
