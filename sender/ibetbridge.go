package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ibetwstbridge/EVMRPC"
	"ibetwstbridge/EVMRPC/ibettoken"
	"ibetwstbridge/db"
	"ibetwstbridge/keys"
	"ibetwstbridge/types"
)

type IbetChain interface {
	TxSender
	WaitReceipt(ctx context.Context, txHash common.Hash, poll time.Duration) (*ethtypes.Receipt, error)
}

// IbetSender sends pending forced unlock/relock intents and waits for each
// to be mined before moving on.
type IbetSender struct {
	DB    *gorm.DB
	Chain IbetChain
	Keys  keys.Store
	Log   logrus.FieldLogger

	ReceiptPoll    time.Duration
	ReceiptTimeout time.Duration
}

func packInbound(row *db.EthToIbetBridgeTx) ([]byte, error) {
	switch row.TxType {
	case types.InboundForceUnlock:
		var p types.ForceUnlockParams
		if err := decodeJSON(row.TxParams, &p); err != nil {
			return nil, err
		}
		return ibettoken.PackForceUnlock(p)
	case types.InboundForceChangeLockedAccount:
		var p types.ForceChangeLockedAccountParams
		if err := decodeJSON(row.TxParams, &p); err != nil {
			return nil, err
		}
		return ibettoken.PackForceChangeLockedAccount(p)
	}
	return nil, errUnknownType
}

var errUnknownType = errors.New("unknown transaction type")

func decodeJSON(raw string, v interface{}) error {
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode tx params: %w", err)
	}
	return nil
}

// ibet runs without gas fees.
func ibetRequest(to common.Address, data []byte) EVMRPC.TxRequest {
	return EVMRPC.TxRequest{To: &to, Data: data, GasLimit: ibettoken.GasLimit, GasPrice: big.NewInt(0)}
}

// RunOnce stops at the first RPC or database error; the remaining intents
// stay pending for the next run.
func (s *IbetSender) RunOnce(ctx context.Context) error {
	rows, err := db.ListPendingBridgeTx(ctx, s.DB)
	if err != nil {
		return err
	}
	for i := range rows {
		if err := s.process(ctx, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *IbetSender) process(ctx context.Context, row *db.EthToIbetBridgeTx) error {
	s.Log.Infof("Sending ibet bridge transaction: id=%s, type=%s", row.TxID, row.TxType)

	account, err := s.Keys.Get(ctx, row.TxSender)
	if errors.Is(err, keys.ErrAccountNotFound) {
		s.Log.Warnf("Cannot find issuer for transaction: id=%s", row.TxID)
		return nil
	}
	if err != nil {
		return err
	}

	data, err := packInbound(row)
	if err != nil {
		s.Log.Errorf("Unknown transaction type: id=%s, type=%s: %v", row.TxID, row.TxType, err)
		return db.MarkBridgeTxResult(ctx, s.DB, row.TxID, types.TxFailed, "", 0)
	}

	to := common.HexToAddress(row.TokenAddress)
	hash, err := s.Chain.BuildAndSend(ctx, ibetRequest(to, data), account.Key)
	if err != nil {
		return fmt.Errorf("send %s: %w", row.TxID, err)
	}

	waitCtx := ctx
	if s.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.ReceiptTimeout)
		defer cancel()
	}
	receipt, err := s.Chain.WaitReceipt(waitCtx, hash, s.poll())
	if err != nil {
		return fmt.Errorf("receipt %s: %w", row.TxID, err)
	}

	block := receipt.BlockNumber.Uint64()
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		s.Log.Errorf("Transaction failed: id=%s, tx_hash=%s", row.TxID, hash.Hex())
		return db.MarkBridgeTxResult(ctx, s.DB, row.TxID, types.TxFailed, hash.Hex(), block)
	}
	s.Log.Infof("Transaction sent successfully: id=%s", row.TxID)
	return db.MarkBridgeTxResult(ctx, s.DB, row.TxID, types.TxSucceeded, hash.Hex(), block)
}

func (s *IbetSender) poll() time.Duration {
	if s.ReceiptPoll > 0 {
		return s.ReceiptPoll
	}
	return time.Second
}
