package ibswap

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	chain "github.com/bimakw/ibswap-verifier/internal/infrastructure/ethereum"
)

// ErrNoSigner is returned when a write is attempted without a private key
var ErrNoSigner = errors.New("no signer configured")

// Backend is the subset of the RPC client the swap contract binding needs
type Backend interface {
	ChainID() *big.Int
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Client talks to a deployed HomoraIBSwap contract over JSON-RPC
type Client struct {
	backend  Backend
	contract common.Address
	key      *ecdsa.PrivateKey
	from     common.Address
	gasLimit uint64
	logger   *logrus.Entry
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithSigner sets the key used to sign transactions and as the call origin
func WithSigner(key *ecdsa.PrivateKey) ClientOption {
	return func(c *Client) {
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}
}

// WithFrom sets the call origin for read-only clients
func WithFrom(from common.Address) ClientOption {
	return func(c *Client) {
		c.from = from
	}
}

// WithGasLimit fixes the gas limit instead of estimating it
func WithGasLimit(limit uint64) ClientOption {
	return func(c *Client) {
		c.gasLimit = limit
	}
}

// WithLogger sets the client logger
func WithLogger(logger *logrus.Entry) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient binds to the swap contract at address
func NewClient(backend Backend, address common.Address, opts ...ClientOption) *Client {
	c := &Client{
		backend:  backend,
		contract: address,
		logger:   logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("contract", address.Hex())
	return c
}

// Address returns the bound contract address
func (c *Client) Address() common.Address {
	return c.contract
}

// From returns the account calls and transactions originate from
func (c *Client) From() common.Address {
	return c.from
}

// Governor returns the privileged administrator of the contract
func (c *Client) Governor(ctx context.Context) (common.Address, error) {
	out, err := c.call(ctx, c.contract, swapABI, "governor")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// PendingGovernor returns the account allowed to accept governorship
func (c *Client) PendingGovernor(ctx context.Context) (common.Address, error) {
	out, err := c.call(ctx, c.contract, swapABI, "pendingGovernor")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// AddSupportedTokens calls addIBTokens
func (c *Client) AddSupportedTokens(ctx context.Context, tokens []common.Address) error {
	data, err := swapABI.Pack("addIBTokens", tokens)
	if err != nil {
		return err
	}
	receipt, err := c.transact(ctx, c.contract, data, nil)
	if err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{
		"tokens":  len(tokens),
		"tx_hash": receipt.TxHash.Hex(),
	}).Info("Added supported ib tokens")
	return nil
}

// EstimateRoutes calls getEstimatedAmountsOut
func (c *Client) EstimateRoutes(ctx context.Context, tokenIn, tokenOut common.Address, underlyingAmountIn *big.Int) ([]*big.Int, error) {
	out, err := c.call(ctx, c.contract, swapABI, "getEstimatedAmountsOut", tokenIn, tokenOut, underlyingAmountIn)
	if err != nil {
		return nil, err
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected getEstimatedAmountsOut output %T", entities.ErrOracleUnavailable, out[0])
	}
	return amounts, nil
}

// WrappedToUnderlying calls ibToToken
func (c *Client) WrappedToUnderlying(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error) {
	return c.callUint(ctx, c.contract, swapABI, "ibToToken", token, amount)
}

// UnderlyingToWrapped calls tokenToIB
func (c *Client) UnderlyingToWrapped(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error) {
	return c.callUint(ctx, c.contract, swapABI, "tokenToIB", token, amount)
}

// BalanceOf returns the ib token balance of account
func (c *Client) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	return c.callUint(ctx, token, ibTokenABI, "balanceOf", account)
}

// Swap approves the input token if needed, submits the swap and reports the
// output-token balance delta of the signer as the realized amount. The two
// balance reads bracket the transaction, so any other transfer of the output
// token to or from the signer landing in between is counted too; use a
// dedicated signer account for checks.
func (c *Client) Swap(ctx context.Context, req entities.SwapRequest) (*entities.SwapResult, error) {
	if c.key == nil {
		return nil, ErrNoSigner
	}
	if err := c.ensureAllowance(ctx, req.TokenIn, req.AmountIn); err != nil {
		return nil, err
	}

	before, err := c.BalanceOf(ctx, req.TokenOut, c.from)
	if err != nil {
		return nil, err
	}

	data, err := swapABI.Pack("swap", req.TokenIn, req.TokenOut, req.AmountIn, req.MinAmountOut, req.Deadline)
	if err != nil {
		return nil, err
	}
	receipt, err := c.transact(ctx, c.contract, data, nil)
	if err != nil {
		return nil, err
	}

	after, err := c.BalanceOf(ctx, req.TokenOut, c.from)
	if err != nil {
		return nil, err
	}

	result := &entities.SwapResult{
		Request:   req,
		AmountOut: new(big.Int).Sub(after, before),
		TxHash:    receipt.TxHash,
		GasUsed:   receipt.GasUsed,
	}
	c.logger.WithFields(logrus.Fields{
		"token_in":   req.TokenIn.Hex(),
		"token_out":  req.TokenOut.Hex(),
		"amount_in":  req.AmountIn.String(),
		"amount_out": result.AmountOut.String(),
		"tx_hash":    receipt.TxHash.Hex(),
		"gas_used":   receipt.GasUsed,
	}).Info("Swap executed")
	return result, nil
}

// TransferValue sends native value to the contract with empty calldata
func (c *Client) TransferValue(ctx context.Context, amount *big.Int) error {
	_, err := c.transact(ctx, c.contract, nil, amount)
	return err
}

func (c *Client) ensureAllowance(ctx context.Context, token common.Address, amount *big.Int) error {
	allowance, err := c.callUint(ctx, token, ibTokenABI, "allowance", c.from, c.contract)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}

	data, err := ibTokenABI.Pack("approve", c.contract, math.MaxBig256)
	if err != nil {
		return err
	}
	if _, err := c.transact(ctx, token, data, nil); err != nil {
		return fmt.Errorf("approve %s: %w", token.Hex(), err)
	}
	return nil
}

func (c *Client) callUint(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.call(ctx, to, parsed, method, args...)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

func (c *Client) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{From: c.from, To: &to, Data: data})
	if err != nil {
		return nil, classify(err)
	}

	out, err := parsed.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", entities.ErrOracleUnavailable, method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s returned no data", entities.ErrOracleUnavailable, method)
	}
	return out, nil
}

// transact preflights the call so that revert reasons surface before any gas
// is spent, then signs, sends and waits for the receipt.
func (c *Client) transact(ctx context.Context, to common.Address, data []byte, value *big.Int) (*types.Receipt, error) {
	if c.key == nil {
		return nil, ErrNoSigner
	}
	if value == nil {
		value = new(big.Int)
	}

	msg := ethereum.CallMsg{From: c.from, To: &to, Data: data, Value: value}
	if _, err := c.backend.CallContract(ctx, msg); err != nil {
		return nil, classify(err)
	}

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", entities.ErrOracleUnavailable, err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: gas price: %v", entities.ErrOracleUnavailable, err)
	}
	gasLimit := c.gasLimit
	if gasLimit == 0 {
		estimated, err := c.backend.EstimateGas(ctx, msg)
		if err != nil {
			return nil, classify(err)
		}
		// 20% headroom over the estimate
		gasLimit = estimated * 12 / 10
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.backend.ChainID()), c.key)
	if err != nil {
		return nil, err
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, classify(err)
	}

	c.logger.WithFields(logrus.Fields{
		"to":      to.Hex(),
		"tx_hash": signed.Hash().Hex(),
		"nonce":   nonce,
	}).Debug("Transaction sent")

	receipt, err := c.backend.WaitMined(ctx, signed.Hash())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: receipt %s: %v", entities.ErrOracleUnavailable, signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s: %w", signed.Hash().Hex(), entities.NewRevertError(""))
	}
	return receipt, nil
}

// classify turns an RPC failure into a RevertError when the node reported a
// revert, and into ErrOracleUnavailable otherwise.
func classify(err error) error {
	if reason, ok := chain.RevertReason(err); ok {
		return entities.NewRevertError(reason)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", entities.ErrOracleUnavailable, err)
}
