package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/cache"
)

// Defaults used when running a check
var (
	DefaultTolerance = decimal.RequireFromString("0.1")
	DefaultThreshold = decimal.RequireFromString("0.5")
	DefaultDeadline  = new(big.Int).Exp(big.NewInt(10), big.NewInt(21), nil)
)

// CheckConfig parameterises a quote-then-verify run
type CheckConfig struct {
	Tolerance decimal.Decimal // slippage guard fraction
	Threshold decimal.Decimal // pass band in percent
	Deadline  *big.Int
	ReportTTL time.Duration
}

// DefaultCheckConfig returns the settings of the mainnet integration checks
func DefaultCheckConfig() CheckConfig {
	return CheckConfig{
		Tolerance: DefaultTolerance,
		Threshold: DefaultThreshold,
		Deadline:  new(big.Int).Set(DefaultDeadline),
		ReportTTL: 24 * time.Hour,
	}
}

// CheckService runs estimate, guard, swap and tolerance check as one unit and
// records the outcome
type CheckService struct {
	verifier *QuoteVerifier
	store    cache.ReportStore
	cfg      CheckConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewCheckService creates a new check service. store may be nil.
func NewCheckService(verifier *QuoteVerifier, store cache.ReportStore, cfg CheckConfig, logger *logrus.Logger) *CheckService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CheckService{
		verifier: verifier,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Config returns the service settings
func (s *CheckService) Config() CheckConfig {
	return s.cfg
}

// Run executes one scenario. A rejected swap is returned as an error; a swap
// that executes but lands outside the threshold yields a report with
// Passed=false.
func (s *CheckService) Run(ctx context.Context, sc entities.Scenario) (*entities.CheckReport, error) {
	log := s.logger.WithFields(logrus.Fields{
		"scenario":  sc.Name,
		"token_in":  sc.TokenIn.Symbol,
		"token_out": sc.TokenOut.Symbol,
		"hops":      sc.HopCount,
	})

	quote, err := s.verifier.EstimateOutput(ctx, sc.AmountIn, sc.TokenIn, sc.TokenOut, sc.HopCount)
	if err != nil {
		return nil, err
	}

	minOut, err := s.verifier.ComputeMinimumAcceptable(ctx, sc.TokenOut, quote.AmountOut, s.cfg.Tolerance)
	if err != nil {
		return nil, err
	}

	result, err := s.verifier.ExecuteSwap(ctx, entities.SwapRequest{
		TokenIn:      sc.TokenIn.Address,
		TokenOut:     sc.TokenOut.Address,
		AmountIn:     new(big.Int).Set(sc.AmountIn),
		MinAmountOut: minOut,
		Deadline:     new(big.Int).Set(s.cfg.Deadline),
	})
	if err != nil {
		return nil, err
	}

	expected, err := s.verifier.ExpectedWrapped(ctx, sc.TokenOut, quote.AmountOut)
	if err != nil {
		return nil, err
	}

	passed, err := VerifyWithinTolerance(expected, result.AmountOut, s.cfg.Threshold)
	if err != nil {
		return nil, fmt.Errorf("expected %s output: %w", sc.TokenOut.Symbol, err)
	}
	deviation, _ := DeviationPercent(expected, result.AmountOut)

	report := &entities.CheckReport{
		ID:           uuid.NewString(),
		Scenario:     sc.Name,
		TokenIn:      sc.TokenIn,
		TokenOut:     sc.TokenOut,
		AmountIn:     new(big.Int).Set(sc.AmountIn),
		HopCount:     sc.HopCount,
		Routes:       quote.Routes,
		EstimatedOut: quote.AmountOut,
		ExpectedOut:  expected,
		MinAmountOut: minOut,
		RealizedOut:  result.AmountOut,
		Deadline:     new(big.Int).Set(s.cfg.Deadline),
		Tolerance:    s.cfg.Tolerance.String(),
		Threshold:    s.cfg.Threshold.String(),
		Deviation:    deviation.StringFixed(6),
		Passed:       passed,
		CreatedAt:    s.now().UTC(),
	}
	if result.TxHash != (common.Hash{}) {
		report.TxHash = result.TxHash.Hex()
	}

	log.WithFields(logrus.Fields{
		"expected":  expected.String(),
		"realized":  result.AmountOut.String(),
		"deviation": report.Deviation,
		"passed":    passed,
	}).Info("Check completed")

	if s.store != nil {
		if err := s.store.SaveReport(ctx, report, s.cfg.ReportTTL); err != nil {
			log.WithError(err).Error("Failed to store report")
		}
	}
	return report, nil
}

// RunScenarios runs scenarios one after another. Swaps move pool state, so
// scenarios sharing an oracle are never run in parallel. Errors are collected
// and returned together with the reports that did complete.
func (s *CheckService) RunScenarios(ctx context.Context, scenarios []entities.Scenario) ([]*entities.CheckReport, error) {
	reports := make([]*entities.CheckReport, 0, len(scenarios))
	var errs []error

	for _, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report, err := s.Run(ctx, sc)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sc.Name, err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}

// Report returns a stored report
func (s *CheckService) Report(ctx context.Context, id string) (*entities.CheckReport, error) {
	if s.store == nil {
		return nil, cache.ErrReportNotFound
	}
	return s.store.GetReport(ctx, id)
}

// RecentReports returns the newest stored reports
func (s *CheckService) RecentReports(ctx context.Context, limit int) ([]*entities.CheckReport, error) {
	if s.store == nil {
		return []*entities.CheckReport{}, nil
	}
	return s.store.RecentReports(ctx, limit)
}
