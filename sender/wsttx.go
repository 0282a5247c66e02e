// Package sender submits queued intents: IbetWST calls on Ethereum and forced
// unlock/relock calls on ibet. It also follows the receipts of sent IbetWST
// transactions.
package sender

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ibetwstbridge/EVMRPC"
	"ibetwstbridge/EVMRPC/wst"
	"ibetwstbridge/db"
	"ibetwstbridge/keys"
	"ibetwstbridge/types"
)

// TxSender signs and broadcasts a transaction.
type TxSender interface {
	BuildAndSend(ctx context.Context, req EVMRPC.TxRequest, key *ecdsa.PrivateKey) (common.Hash, error)
}

type submitFunc func(ctx context.Context, e *WSTSender, row *db.EthIbetWSTTx, params types.OpParams, key *ecdsa.PrivateKey) (common.Hash, error)

var submitters = map[types.OpType]submitFunc{
	types.OpDeploy:          submitDeploy,
	types.OpAddWhitelist:    submitAuthorized,
	types.OpDeleteWhitelist: submitAuthorized,
	types.OpMint:            submitAuthorized,
	types.OpBurn:            submitAuthorized,
	types.OpForceBurn:       submitAuthorized,
	types.OpRequestTrade:    submitAuthorized,
	types.OpCancelTrade:     submitAuthorized,
	types.OpAcceptTrade:     submitAuthorized,
	types.OpRejectTrade:     submitAuthorized,
}

// WSTSender sends pending IbetWST intents.
type WSTSender struct {
	DB    *gorm.DB
	Chain TxSender
	Keys  keys.Store
	WST   *wst.Contract
	Log   logrus.FieldLogger
}

// RunOnce sends every pending intent that has no hash yet. An intent whose
// sender key is unknown fails for good; a send error leaves it pending.
func (e *WSTSender) RunOnce(ctx context.Context) error {
	rows, err := db.ListWSTTxByStatus(ctx, e.DB, types.TxPending, 0)
	if err != nil {
		return err
	}
	for i := range rows {
		row := &rows[i]
		if row.TxHash != nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.process(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// process returns only database errors.
func (e *WSTSender) process(ctx context.Context, row *db.EthIbetWSTTx) error {
	e.Log.Infof("Processing transaction: id=%s, type=%s", row.TxID, row.TxType)

	account, err := e.Keys.Get(ctx, row.TxSender)
	if errors.Is(err, keys.ErrAccountNotFound) {
		e.Log.Errorf("Account not found for transaction sender: %s", row.TxSender)
		return db.MarkWSTTxStatus(ctx, e.DB, row.TxID, types.TxFailed)
	}
	if err != nil {
		e.Log.Errorf("Failed to load account for transaction: id=%s: %v", row.TxID, err)
		return nil
	}

	submit, ok := submitters[row.TxType]
	if !ok {
		e.Log.Warnf("Unsupported transaction type: id=%s, type=%s", row.TxID, row.TxType)
		return nil
	}
	params, err := row.Params()
	if err != nil {
		e.Log.Errorf("Failed to send transaction: id=%s: %v", row.TxID, err)
		return nil
	}
	hash, err := submit(ctx, e, row, params, account.Key)
	if err != nil {
		e.Log.Errorf("Failed to send transaction: id=%s: %v", row.TxID, err)
		return nil
	}

	if err := db.MarkWSTTxSent(ctx, e.DB, row.TxID, hash.Hex()); err != nil {
		return err
	}
	e.Log.Infof("Transaction sent successfully: id=%s", row.TxID)
	return nil
}

func submitDeploy(ctx context.Context, e *WSTSender, row *db.EthIbetWSTTx, params types.OpParams, key *ecdsa.PrivateKey) (common.Hash, error) {
	p, ok := params.(*types.DeployParams)
	if !ok {
		return common.Hash{}, fmt.Errorf("deploy: unexpected params %T", params)
	}
	call, err := e.WST.PackDeploy(*p)
	if err != nil {
		return common.Hash{}, err
	}
	return e.Chain.BuildAndSend(ctx, EVMRPC.TxRequest{Data: call.Data, GasLimit: call.GasLimit}, key)
}

func submitAuthorized(ctx context.Context, e *WSTSender, row *db.EthIbetWSTTx, params types.OpParams, key *ecdsa.PrivateKey) (common.Hash, error) {
	if row.Authorization == nil {
		return common.Hash{}, fmt.Errorf("%s: missing authorization", row.TxType)
	}
	if row.IbetWSTAddress == nil {
		return common.Hash{}, fmt.Errorf("%s: missing contract address", row.TxType)
	}
	call, err := e.WST.PackAuthorized(params, *row.Authorization)
	if err != nil {
		return common.Hash{}, err
	}
	to := common.HexToAddress(*row.IbetWSTAddress)
	return e.Chain.BuildAndSend(ctx, EVMRPC.TxRequest{To: &to, Data: call.Data, GasLimit: call.GasLimit}, key)
}
