package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"ibetwstbridge/types"
)

func InsertBridgeTx(ctx context.Context, tx *gorm.DB, row *EthToIbetBridgeTx) error {
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("insert bridge tx %s: %w", row.TxID, err)
	}
	return nil
}

func ListPendingBridgeTx(ctx context.Context, tx *gorm.DB) ([]EthToIbetBridgeTx, error) {
	var rows []EthToIbetBridgeTx
	err := tx.WithContext(ctx).
		Where("status = ?", types.TxPending).
		Order("created_at, tx_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list pending bridge tx: %w", err)
	}
	return rows, nil
}

func ListBridgeTxByStatus(ctx context.Context, tx *gorm.DB, status types.TxStatus, limit int) ([]EthToIbetBridgeTx, error) {
	var rows []EthToIbetBridgeTx
	q := tx.WithContext(ctx).Where("status = ?", status).Order("created_at, tx_id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list bridge tx: %w", err)
	}
	return rows, nil
}

// MarkBridgeTxResult stores the mined outcome. Hash and block are optional.
func MarkBridgeTxResult(ctx context.Context, tx *gorm.DB, id string, status types.TxStatus, txHash string, block uint64) error {
	values := map[string]interface{}{"status": status}
	if txHash != "" {
		values["tx_hash"] = txHash
	}
	if block > 0 {
		values["block_number"] = block
	}
	res := tx.WithContext(ctx).Model(&EthToIbetBridgeTx{}).Where("tx_id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update bridge tx %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update bridge tx %s: %w", id, ErrNotFound)
	}
	return nil
}
