package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"ibetwstbridge/types"
)

func InsertWSTTx(ctx context.Context, tx *gorm.DB, row *EthIbetWSTTx) error {
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("insert wst tx %s: %w", row.TxID, err)
	}
	return nil
}

func GetWSTTx(ctx context.Context, tx *gorm.DB, id string) (*EthIbetWSTTx, error) {
	var row EthIbetWSTTx
	if err := tx.WithContext(ctx).Where("tx_id = ?", id).Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

// ListWSTTxByStatus returns intents oldest first. limit <= 0 means no limit.
func ListWSTTxByStatus(ctx context.Context, tx *gorm.DB, status types.TxStatus, limit int) ([]EthIbetWSTTx, error) {
	var rows []EthIbetWSTTx
	q := tx.WithContext(ctx).Where("status = ?", status).Order("created_at, tx_id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list wst tx: %w", err)
	}
	return rows, nil
}

func MarkWSTTxSent(ctx context.Context, tx *gorm.DB, id, txHash string) error {
	return updateWSTTx(ctx, tx, id, map[string]interface{}{
		"status":  types.TxSent,
		"tx_hash": txHash,
	})
}

func MarkWSTTxStatus(ctx context.Context, tx *gorm.DB, id string, status types.TxStatus) error {
	return updateWSTTx(ctx, tx, id, map[string]interface{}{"status": status})
}

// MarkWSTTxMined records the receipt outcome of a sent intent.
func MarkWSTTxMined(ctx context.Context, tx *gorm.DB, id string, status types.TxStatus, block uint64, finalized bool) error {
	return updateWSTTx(ctx, tx, id, map[string]interface{}{
		"status":       status,
		"block_number": block,
		"finalized":    finalized,
	})
}

// ListUnfinalizedWSTTx returns intents with a hash whose outcome is not final yet.
func ListUnfinalizedWSTTx(ctx context.Context, tx *gorm.DB) ([]EthIbetWSTTx, error) {
	var rows []EthIbetWSTTx
	err := tx.WithContext(ctx).
		Where("tx_hash IS NOT NULL AND finalized = ?", false).
		Where("status IN ?", []types.TxStatus{types.TxSent, types.TxSucceeded, types.TxFailed}).
		Order("created_at, tx_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list unfinalized wst tx: %w", err)
	}
	return rows, nil
}

func updateWSTTx(ctx context.Context, tx *gorm.DB, id string, values map[string]interface{}) error {
	res := tx.WithContext(ctx).Model(&EthIbetWSTTx{}).Where("tx_id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update wst tx %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update wst tx %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetWSTTxContractAddress records the address a deploy intent created.
func SetWSTTxContractAddress(ctx context.Context, tx *gorm.DB, id, address string) error {
	return updateWSTTx(ctx, tx, id, map[string]interface{}{"ibet_wst_address": address})
}
