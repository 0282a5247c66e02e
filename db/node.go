package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ibetwstbridge/types"
)

// NodeStore serves node health records to the chain clients.
type NodeStore struct {
	DB *gorm.DB
}

func (s NodeStore) ListNodes(ctx context.Context, network string) ([]types.NodeRecord, error) {
	var rows []Node
	err := s.DB.WithContext(ctx).
		Where("network = ?", network).
		Order("priority, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list nodes %s: %w", network, err)
	}
	records := make([]types.NodeRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.Record())
	}
	return records, nil
}

// SetNodeStatus creates or updates the record of an endpoint and reports
// whether the synced flag changed. A new record always counts as a change.
func SetNodeStatus(ctx context.Context, tx *gorm.DB, network, uri string, priority int, synced bool) (bool, error) {
	var row Node
	err := tx.WithContext(ctx).Where("network = ? AND endpoint_uri = ?", network, uri).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = Node{Network: network, EndpointURI: uri, Priority: priority, IsSynced: synced}
		if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
			return false, fmt.Errorf("insert node %s: %w", uri, err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("get node %s: %w", uri, err)
	}

	changed := row.IsSynced != synced
	err = tx.WithContext(ctx).Model(&row).Updates(map[string]interface{}{
		"is_synced": synced,
		"priority":  priority,
	}).Error
	if err != nil {
		return false, fmt.Errorf("update node %s: %w", uri, err)
	}
	return changed, nil
}

// DeleteNodesNotIn drops records of endpoints that are no longer configured.
func DeleteNodesNotIn(ctx context.Context, tx *gorm.DB, network string, uris []string) error {
	q := tx.WithContext(ctx).Where("network = ?", network)
	if len(uris) > 0 {
		q = q.Where("endpoint_uri NOT IN ?", uris)
	}
	if err := q.Delete(&Node{}).Error; err != nil {
		return fmt.Errorf("delete stale nodes %s: %w", network, err)
	}
	return nil
}
