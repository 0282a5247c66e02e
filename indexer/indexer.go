// Package indexer mirrors the trades of every monitored IbetWST contract.
package indexer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ibetwstbridge/EVMRPC/wst"
	"ibetwstbridge/blockscan"
	"ibetwstbridge/bridge"
	"ibetwstbridge/config"
	"ibetwstbridge/db"
)

// TradeEvents are the events that change a trade. Each carries only the index;
// the row is rebuilt from getTrade.
var TradeEvents = []string{
	wst.EventTradeRequested,
	wst.EventTradeAccepted,
	wst.EventTradeCancelled,
	wst.EventTradeRejected,
}

type Chain interface {
	bridge.LogSource
	wst.Caller
	FinalizedBlock(ctx context.Context) (uint64, error)
}

type Indexer struct {
	DB       *gorm.DB
	Chain    Chain
	Registry *bridge.Registry
	WST      *wst.Contract
	LotSize  uint64
	Log      logrus.FieldLogger
}

func (i *Indexer) RunOnce(ctx context.Context) error {
	if err := i.Registry.Refresh(ctx, i.DB); err != nil {
		return err
	}
	finalized, err := i.Chain.FinalizedBlock(ctx)
	if err != nil {
		return err
	}
	res, err := blockscan.Scan(ctx, i.DB, config.StreamTrade, finalized, i.LotSize, func(tx *gorm.DB, r blockscan.Range) error {
		i.Log.Infof("Syncing IbetWST trade events from=%d, to=%d", r.From, r.To)
		for _, name := range TradeEvents {
			if err := i.syncEvent(ctx, tx, name, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if res.Skipped {
		i.Log.Debug("skip process")
		return nil
	}
	i.Log.Info("Sync completed successfully")
	return nil
}

func (i *Indexer) syncEvent(ctx context.Context, tx *gorm.DB, name string, r blockscan.Range) error {
	for _, pair := range i.Registry.Pairs() {
		address := pair.WST()
		events, err := i.Chain.GetEventLogs(ctx, address, &i.WST.ABI, name, r.From, r.To)
		if err != nil {
			return err
		}
		for _, ev := range events {
			index, err := ev.BigArg("index")
			if err != nil {
				return err
			}
			if err := i.upsert(ctx, tx, address, index); err != nil {
				return err
			}
		}
	}
	return nil
}

func (i *Indexer) upsert(ctx context.Context, tx *gorm.DB, address common.Address, index *big.Int) error {
	trade, err := i.WST.GetTrade(ctx, i.Chain, address, index)
	if err != nil {
		return err
	}
	row := db.TradeRow(address.Hex(), index.Uint64(), trade)
	return db.UpsertTrade(ctx, tx, &row)
}
