package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ibetwstbridge/types"
)

func TradeRow(wstAddress string, index uint64, t types.Trade) IDXEthIbetWSTTrade {
	return IDXEthIbetWSTTrade{
		IbetWSTAddress:         wstAddress,
		Index:                  index,
		SellerSTAccountAddress: t.SellerSTAccount,
		BuyerSTAccountAddress:  t.BuyerSTAccount,
		SCTokenAddress:         t.SCTokenAddress,
		SellerSCAccountAddress: t.SellerSCAccount,
		BuyerSCAccountAddress:  t.BuyerSCAccount,
		STValue:                decimal(t.STValue),
		SCValue:                decimal(t.SCValue),
		State:                  t.State,
		Memo:                   t.Memo,
	}
}

// UpsertTrade overwrites every column of an existing (address, index) row.
func UpsertTrade(ctx context.Context, tx *gorm.DB, row *IDXEthIbetWSTTrade) error {
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ibet_wst_address"}, {Name: "index"}},
		UpdateAll: true,
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("upsert trade %s/%d: %w", row.IbetWSTAddress, row.Index, err)
	}
	return nil
}

func GetTrade(ctx context.Context, tx *gorm.DB, wstAddress string, index uint64) (*IDXEthIbetWSTTrade, error) {
	var row IDXEthIbetWSTTrade
	err := tx.WithContext(ctx).
		Where(map[string]interface{}{"ibet_wst_address": wstAddress, "index": index}).
		Take(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func CountTrades(ctx context.Context, tx *gorm.DB) (int64, error) {
	var n int64
	if err := tx.WithContext(ctx).Model(&IDXEthIbetWSTTrade{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count trades: %w", err)
	}
	return n, nil
}
