package services

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/ibswap"
)

// AdminService wraps the privileged and value-transfer calls of the oracle
type AdminService struct {
	oracle ibswap.Oracle
	logger *logrus.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(oracle ibswap.Oracle, logger *logrus.Logger) *AdminService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AdminService{oracle: oracle, logger: logger}
}

// Governor returns the contract governor
func (s *AdminService) Governor(ctx context.Context) (common.Address, error) {
	return s.oracle.Governor(ctx)
}

// PendingGovernor returns the account nominated to take over governance
func (s *AdminService) PendingGovernor(ctx context.Context) (common.Address, error) {
	return s.oracle.PendingGovernor(ctx)
}

// AddSupportedTokens authorizes wrapped tokens for swapping
func (s *AdminService) AddSupportedTokens(ctx context.Context, tokens []entities.Token) error {
	addrs := make([]common.Address, len(tokens))
	symbols := make([]string, len(tokens))
	for i, t := range tokens {
		if !t.IsWrapped() {
			return entities.ErrUnsupportedToken
		}
		addrs[i] = t.Address
		symbols[i] = t.Symbol
	}

	if err := s.oracle.AddSupportedTokens(ctx, addrs); err != nil {
		s.logger.WithError(err).WithField("tokens", symbols).Warn("Adding supported tokens rejected")
		return err
	}
	s.logger.WithField("tokens", symbols).Info("Supported tokens added")
	return nil
}

// TransferValue sends native value to the contract
func (s *AdminService) TransferValue(ctx context.Context, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return entities.ErrNegativeAmount
	}
	return s.oracle.TransferValue(ctx, amount)
}
