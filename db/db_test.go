package db

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ibetwstbridge/types"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func strPtr(s string) *string { return &s }

func TestOpenUnknownEngine(t *testing.T) {
	_, err := Open("mysql", "", nil)
	assert.Error(t, err)
}

func TestSyncedBlockNeverDecreases(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	n, err := GetSyncedBlock(ctx, db, "ethereum")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, SetSyncedBlock(ctx, db, "ethereum", 100))
	require.NoError(t, SetSyncedBlock(ctx, db, "ethereum", 50))
	n, err = GetSyncedBlock(ctx, db, "ethereum")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), n)

	require.NoError(t, SetSyncedBlock(ctx, db, "ethereum", 150))
	n, _ = GetSyncedBlock(ctx, db, "ethereum")
	assert.Equal(t, uint64(150), n)

	// streams are independent
	n, _ = GetSyncedBlock(ctx, db, "ibetfin")
	assert.Zero(t, n)
}

func TestSyncedBlockRollsBackWithTransaction(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, SetSyncedBlock(ctx, db, "trade", 10))

	err := RunDBTransaction(db, func(tx *gorm.DB) error {
		if err := SetSyncedBlock(ctx, tx, "trade", 20); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	assert.Error(t, err)
	n, _ := GetSyncedBlock(ctx, db, "trade")
	assert.Equal(t, uint64(10), n)
}

func TestWSTTxLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	auth := &types.Authorization{Nonce: strings.Repeat("01", 32), V: 27, R: strings.Repeat("02", 32), S: strings.Repeat("03", 32)}
	row := &EthIbetWSTTx{
		TxID:           "tx-1",
		TxType:         types.OpMint,
		Version:        types.WSTVersion,
		Status:         types.TxPending,
		IbetWSTAddress: strPtr("0x00000000000000000000000000000000000000aa"),
		TxParams:       `{"to_address":"0x00000000000000000000000000000000000000bb","value":10}`,
		TxSender:       "0x00000000000000000000000000000000000000cc",
		Authorization:  auth,
	}
	require.NoError(t, InsertWSTTx(ctx, db, row))
	require.NoError(t, InsertWSTTx(ctx, db, &EthIbetWSTTx{
		TxID: "tx-2", TxType: types.OpDeploy, Version: types.WSTVersion, Status: types.TxPending,
		TxParams: `{"name":"x","initial_owner":"0x00000000000000000000000000000000000000cc"}`, TxSender: "0x00000000000000000000000000000000000000cc",
	}))

	pending, err := ListWSTTxByStatus(ctx, db, types.TxPending, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	got, err := GetWSTTx(ctx, db, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, got.Authorization)
	assert.Equal(t, *auth, *got.Authorization)
	params, err := got.Params()
	require.NoError(t, err)
	assert.Equal(t, int64(10), params.(*types.MintParams).Value.Int64())

	deploy, err := GetWSTTx(ctx, db, "tx-2")
	require.NoError(t, err)
	assert.Nil(t, deploy.Authorization)

	require.NoError(t, MarkWSTTxSent(ctx, db, "tx-1", "0xabc"))
	got, _ = GetWSTTx(ctx, db, "tx-1")
	assert.Equal(t, types.TxSent, got.Status)
	assert.Equal(t, "0xabc", *got.TxHash)

	unfinalized, err := ListUnfinalizedWSTTx(ctx, db)
	require.NoError(t, err)
	require.Len(t, unfinalized, 1)

	require.NoError(t, MarkWSTTxMined(ctx, db, "tx-1", types.TxSucceeded, 42, true))
	got, _ = GetWSTTx(ctx, db, "tx-1")
	assert.Equal(t, types.TxSucceeded, got.Status)
	assert.Equal(t, uint64(42), *got.BlockNumber)
	unfinalized, _ = ListUnfinalizedWSTTx(ctx, db)
	assert.Empty(t, unfinalized)

	assert.ErrorIs(t, MarkWSTTxStatus(ctx, db, "missing", types.TxFailed), ErrNotFound)
	_, err = GetWSTTx(ctx, db, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBridgeTxResult(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, InsertBridgeTx(ctx, db, &EthToIbetBridgeTx{
		TxID: "b-1", TokenAddress: "0x01", TxType: types.InboundForceUnlock,
		Status: types.TxPending, TxParams: "{}", TxSender: "0x02",
	}))

	pending, err := ListPendingBridgeTx(ctx, db)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, MarkBridgeTxResult(ctx, db, "b-1", types.TxSucceeded, "0xdef", 7))
	pending, _ = ListPendingBridgeTx(ctx, db)
	assert.Empty(t, pending)

	done, err := ListBridgeTxByStatus(ctx, db, types.TxSucceeded, 10)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "0xdef", *done[0].TxHash)
	assert.Equal(t, uint64(7), *done[0].BlockNumber)
}

func TestUpsertTrade(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	trade := types.Trade{
		SellerSTAccount: "0x01", BuyerSTAccount: "0x02", SCTokenAddress: "0x03",
		SellerSCAccount: "0x04", BuyerSCAccount: "0x05",
		STValue: big.NewInt(10), SCValue: new(big.Int).Lsh(big.NewInt(1), 200),
		State: types.TradePending, Memo: "m",
	}
	row := TradeRow("0xaa", 1, trade)
	require.NoError(t, UpsertTrade(ctx, db, &row))

	trade.State = types.TradeExecuted
	row = TradeRow("0xaa", 1, trade)
	require.NoError(t, UpsertTrade(ctx, db, &row))

	n, err := CountTrades(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := GetTrade(ctx, db, "0xaa", 1)
	require.NoError(t, err)
	assert.Equal(t, types.TradeExecuted, got.State)
	assert.Equal(t, trade.SCValue.String(), got.SCValue)

	_, err = GetTrade(ctx, db, "0xaa", 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNodeStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	store := NodeStore{DB: db}

	changed, err := SetNodeStatus(ctx, db, "ethereum", "http://b", 1, true)
	require.NoError(t, err)
	assert.True(t, changed)
	_, err = SetNodeStatus(ctx, db, "ethereum", "http://a", 0, false)
	require.NoError(t, err)
	_, err = SetNodeStatus(ctx, db, "ibetfin", "http://c", 0, true)
	require.NoError(t, err)

	nodes, err := store.ListNodes(ctx, "ethereum")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "http://a", nodes[0].EndpointURI)
	assert.False(t, nodes[0].IsSynced)

	changed, err = SetNodeStatus(ctx, db, "ethereum", "http://a", 0, false)
	require.NoError(t, err)
	assert.False(t, changed)
	changed, err = SetNodeStatus(ctx, db, "ethereum", "http://a", 0, true)
	require.NoError(t, err)
	assert.True(t, changed)

	require.NoError(t, DeleteNodesNotIn(ctx, db, "ethereum", []string{"http://a"}))
	nodes, _ = store.ListNodes(ctx, "ethereum")
	require.Len(t, nodes, 1)
	nodes, _ = store.ListNodes(ctx, "ibetfin")
	assert.Len(t, nodes, 1)
}

func TestMonitoredPairsAndAccounts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&Token{TokenAddress: "0x10", IssuerAddress: "0x01", IbetWSTDeployed: true, IbetWSTAddress: strPtr("0x20")}).Error)
	require.NoError(t, db.Create(&Token{TokenAddress: "0x11", IssuerAddress: "0x01"}).Error)
	require.NoError(t, db.Create(&Token{TokenAddress: "0x12", IssuerAddress: "0x02", IbetWSTDeployed: true, IbetWSTAddress: strPtr("0x22")}).Error)
	require.NoError(t, db.Create(&Account{IssuerAddress: "0x01", Keyfile: "{}"}).Error)
	require.NoError(t, db.Create(&Account{IssuerAddress: "0x02", Keyfile: "{}", IsDeleted: true}).Error)

	pairs, err := ListMonitoredPairs(ctx, db)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, types.MonitoredTokenPair{IssuerAddress: "0x01", IbetTokenAddress: "0x10", WSTAddress: "0x20"}, pairs[0])

	_, err = GetAccount(ctx, db, "0x01")
	assert.NoError(t, err)
	_, err = GetAccount(ctx, db, "0x02")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByStatusOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		require.NoError(t, db.Create(&EthIbetWSTTx{
			TxID: id, TxType: types.OpCancelTrade, Version: "1", Status: types.TxFailed,
			TxParams: `{"index":1}`, TxSender: "0x01", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}
	rows, err := ListWSTTxByStatus(ctx, db, types.TxFailed, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "c", rows[0].TxID)
	assert.Equal(t, "a", rows[1].TxID)
}
