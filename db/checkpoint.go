package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetSyncedBlock returns the checkpoint of a stream, 0 when it never ran.
func GetSyncedBlock(ctx context.Context, tx *gorm.DB, network string) (uint64, error) {
	var row IbetWSTBridgeSyncedBlockNumber
	err := tx.WithContext(ctx).Where("network = ?", network).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get synced block %s: %w", network, err)
	}
	return row.LatestBlockNumber, nil
}

// SetSyncedBlock moves a checkpoint forward. A lower block number is ignored.
func SetSyncedBlock(ctx context.Context, tx *gorm.DB, network string, block uint64) error {
	current, err := GetSyncedBlock(ctx, tx, network)
	if err != nil {
		return err
	}
	if block < current {
		return nil
	}
	row := IbetWSTBridgeSyncedBlockNumber{Network: network, LatestBlockNumber: block}
	err = tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "network"}},
		DoUpdates: clause.AssignmentColumns([]string{"latest_block_number"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("set synced block %s: %w", network, err)
	}
	return nil
}
