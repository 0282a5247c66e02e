package db

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"gorm.io/gorm"

	"ibetwstbridge/types"
)

// ListMonitoredPairs returns every token whose IbetWST is deployed and whose
// issuer account is still active.
func ListMonitoredPairs(ctx context.Context, tx *gorm.DB) ([]types.MonitoredTokenPair, error) {
	var rows []Token
	err := tx.WithContext(ctx).
		Model(&Token{}).
		Select("token.*").
		Joins("JOIN account ON account.issuer_address = token.issuer_address AND account.is_deleted = ?", false).
		Where("token.ibet_wst_deployed = ? AND token.ibet_wst_address IS NOT NULL", true).
		Order("token.token_address").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	pairs := make([]types.MonitoredTokenPair, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, types.MonitoredTokenPair{
			IssuerAddress:    r.IssuerAddress,
			IbetTokenAddress: r.TokenAddress,
			IbetABI:          r.ABI,
			WSTAddress:       *r.IbetWSTAddress,
		})
	}
	return pairs, nil
}

// GetAccount returns a non-deleted issuer account.
func GetAccount(ctx context.Context, tx *gorm.DB, address string) (*Account, error) {
	var row Account
	err := tx.WithContext(ctx).
		Where("issuer_address = ? AND is_deleted = ?", address, false).
		Take(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func decimal(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
