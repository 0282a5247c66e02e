package sender

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ibetwstbridge/db"
	"ibetwstbridge/types"
)

type ReceiptChain interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	FinalizedBlock(ctx context.Context) (uint64, error)
}

// ReceiptMonitor settles sent IbetWST intents from their receipts and marks
// them finalized once their block is.
type ReceiptMonitor struct {
	DB    *gorm.DB
	Chain ReceiptChain
	Log   logrus.FieldLogger
}

func (m *ReceiptMonitor) RunOnce(ctx context.Context) error {
	finalized, err := m.Chain.FinalizedBlock(ctx)
	if err != nil {
		return err
	}
	rows, err := db.ListUnfinalizedWSTTx(ctx, m.DB)
	if err != nil {
		return err
	}
	for i := range rows {
		if err := m.check(ctx, &rows[i], finalized); err != nil {
			return err
		}
	}
	return nil
}

func (m *ReceiptMonitor) check(ctx context.Context, row *db.EthIbetWSTTx, finalized uint64) error {
	m.Log.Infof("Monitor transaction: id=%s, type=%s", row.TxID, row.TxType)

	receipt, err := m.Chain.TransactionReceipt(ctx, common.HexToHash(*row.TxHash))
	if errors.Is(err, ethereum.NotFound) {
		m.Log.Infof("Transaction receipt not found, skipping processing: id=%s", row.TxID)
		return nil
	}
	if err != nil {
		return err
	}

	block := receipt.BlockNumber.Uint64()
	status := types.TxSucceeded
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		status = types.TxFailed
	}
	if err := db.MarkWSTTxMined(ctx, m.DB, row.TxID, status, block, block <= finalized); err != nil {
		return err
	}
	if status == types.TxSucceeded && row.TxType == types.OpDeploy && receipt.ContractAddress != (common.Address{}) {
		if err := db.SetWSTTxContractAddress(ctx, m.DB, row.TxID, receipt.ContractAddress.Hex()); err != nil {
			return err
		}
	}
	m.Log.Infof("Transaction %s: id=%s, block_number=%d", status, row.TxID, block)
	return nil
}
