package EVMRPC

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// TxRequest is an unsigned transaction. A nil To deploys Data as contract code.
type TxRequest struct {
	To       *common.Address
	Data     []byte
	GasLimit uint64
	// nil asks the node for a gas price
	GasPrice *big.Int
}

func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	return WithClient(ctx, c, func(ctx context.Context, client *ethclient.Client) (uint64, error) {
		return client.BlockNumber(ctx)
	})
}

// FinalizedBlock returns the finalized head. Networks without a finality
// notion return the latest block.
func (c *Client) FinalizedBlock(ctx context.Context) (uint64, error) {
	if !c.hasFinality {
		return c.LatestBlock(ctx)
	}
	return WithClient(ctx, c, func(ctx context.Context, client *ethclient.Client) (uint64, error) {
		header, err := client.HeaderByNumber(ctx, big.NewInt(int64(rpc.FinalizedBlockNumber)))
		if err != nil {
			return 0, err
		}
		return header.Number.Uint64(), nil
	})
}

// Call executes a read-only contract method and returns its unpacked outputs.
func (c *Client) Call(ctx context.Context, contract common.Address, contractABI *abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := WithClient(ctx, c, func(ctx context.Context, client *ethclient.Client) ([]byte, error) {
		return client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, contract.Hex(), err)
	}
	return contractABI.Unpack(method, out)
}

// BuildAndSend fills nonce and gas price, signs with key and broadcasts.
func (c *Client) BuildAndSend(ctx context.Context, req TxRequest, key *ecdsa.PrivateKey) (common.Hash, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)
	return WithClient(ctx, c, func(ctx context.Context, client *ethclient.Client) (common.Hash, error) {
		nonce, err := client.PendingNonceAt(ctx, from)
		if err != nil {
			return common.Hash{}, fmt.Errorf("error getting nonce for %s: %w", from.Hex(), err)
		}

		gasPrice := req.GasPrice
		if gasPrice == nil {
			gasPrice, err = client.SuggestGasPrice(ctx)
			if err != nil {
				return common.Hash{}, fmt.Errorf("error getting suggested gas price: %w", err)
			}
		}

		gasLimit := req.GasLimit
		if gasLimit == 0 {
			gasLimit, err = client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: req.To, Data: req.Data, GasPrice: gasPrice})
			if err != nil {
				return common.Hash{}, fmt.Errorf("error estimating gas: %w", err)
			}
		}

		tx := ethtypes.NewTx(&ethtypes.LegacyTx{
			Nonce:    nonce,
			To:       req.To,
			Value:    big.NewInt(0),
			Gas:      gasLimit,
			GasPrice: gasPrice,
			Data:     req.Data,
		})
		signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(c.chainID), key)
		if err != nil {
			return common.Hash{}, fmt.Errorf("error signing transaction: %w", err)
		}
		if err := client.SendTransaction(ctx, signed); err != nil {
			return common.Hash{}, fmt.Errorf("error sending transaction: %w", err)
		}
		return signed.Hash(), nil
	})
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	return WithClient(ctx, c, func(ctx context.Context, client *ethclient.Client) (*ethtypes.Receipt, error) {
		return client.TransactionReceipt(ctx, txHash)
	})
}

// GetBlockByTxHash returns the header of the block that included txHash.
func (c *Client) GetBlockByTxHash(ctx context.Context, txHash common.Hash) (*ethtypes.Header, error) {
	return WithClient(ctx, c, func(ctx context.Context, client *ethclient.Client) (*ethtypes.Header, error) {
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err != nil {
			return nil, fmt.Errorf("receipt %s: %w", txHash.Hex(), err)
		}
		return client.HeaderByHash(ctx, receipt.BlockHash)
	})
}

// WaitReceipt polls until txHash is mined or ctx is done.
func (c *Client) WaitReceipt(ctx context.Context, txHash common.Hash, poll time.Duration) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		receipt, err := c.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
