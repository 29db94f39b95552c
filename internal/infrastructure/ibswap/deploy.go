package ibswap

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
)

// DeployParams are the constructor arguments of the swap contract
type DeployParams struct {
	Router common.Address
	WETH   common.Address
}

// LoadBytecode reads hex-encoded creation bytecode from a file
func LoadBytecode(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	code, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("bytecode %s: %w", path, err)
	}
	return code, nil
}

// Deploy creates a new swap contract, waits for it to be mined and returns a
// client bound to it. The deploying account becomes the governor.
func Deploy(ctx context.Context, backend Backend, key *ecdsa.PrivateKey, bytecode []byte, params DeployParams, opts ...ClientOption) (*Client, *types.Receipt, error) {
	ctorArgs, err := swapABI.Pack("", params.Router, params.WETH)
	if err != nil {
		return nil, nil, err
	}
	data := append(append([]byte{}, bytecode...), ctorArgs...)
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: nonce: %v", entities.ErrOracleUnavailable, err)
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: gas price: %v", entities.ErrOracleUnavailable, err)
	}
	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: from, Data: data})
	if err != nil {
		return nil, nil, classify(err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		Value:    new(big.Int),
		Gas:      gas * 12 / 10,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(backend.ChainID()), key)
	if err != nil {
		return nil, nil, err
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return nil, nil, classify(err)
	}

	receipt, err := backend.WaitMined(ctx, signed.Hash())
	if err != nil {
		return nil, nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, receipt, fmt.Errorf("deployment %s: %w", signed.Hash().Hex(), entities.NewRevertError(""))
	}
	opts = append([]ClientOption{WithSigner(key)}, opts...)
	return NewClient(backend, receipt.ContractAddress, opts...), receipt, nil
}
