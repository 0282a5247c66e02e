package nodemonitor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ibetwstbridge/config"
	"ibetwstbridge/db"
)

var t0 = time.Unix(1700000000, 0)

type stubNode struct {
	latest   uint64
	progress *ethereum.SyncProgress
	err      error
}

func (s *stubNode) BlockNumber(ctx context.Context) (uint64, error) { return s.latest, s.err }

func (s *stubNode) SyncProgress(ctx context.Context) (*ethereum.SyncProgress, error) {
	return s.progress, s.err
}

func (s *stubNode) HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ethtypes.Header{Number: number, Time: uint64(t0.Unix())}, nil
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database))
	return database
}

func newMonitor(t *testing.T, nodes map[string]*stubNode, uris ...string) (*Monitor, *clock, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	c := &clock{now: t0}
	m := New(Settings{
		Network:              "ethereum",
		URIs:                 uris,
		Period:               3,
		RemainingThreshold:   2,
		SpeedThreshold:       20,
		ExpectedBlocksPerMin: 60,
	}, setupTestDB(t), logger)
	m.Now = c.Now
	m.Dial = func(ctx context.Context, uri string) (NodeClient, error) {
		n, ok := nodes[uri]
		if !ok {
			return nil, errors.New("no such node")
		}
		return n, nil
	}
	return m, c, hook
}

func lastEntry(t *testing.T, hook *test.Hook) *logrus.Entry {
	t.Helper()
	e := hook.LastEntry()
	require.NotNil(t, e)
	return e
}

func TestSyncingGap(t *testing.T) {
	ctx := context.Background()
	main := &stubNode{latest: 100, progress: &ethereum.SyncProgress{CurrentBlock: 97, HighestBlock: 100}}
	m, c, hook := newMonitor(t, map[string]*stubNode{"http://main": main}, "http://main")
	require.NoError(t, m.Init(ctx))

	c.now = t0.Add(3 * time.Second)
	require.NoError(t, m.RunOnce(ctx))
	nodes, err := db.NodeStore{DB: m.DB}.ListNodes(ctx, "ethereum")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.False(t, nodes[0].IsSynced)
	e := lastEntry(t, hook)
	assert.Equal(t, logrus.ErrorLevel, e.Level)
	assert.Contains(t, e.Message, "http://main Block synchronization is down: highestBlock=100, currentBlock=97")

	// still down
	main.latest = 103
	c.now = t0.Add(6 * time.Second)
	require.NoError(t, m.RunOnce(ctx))
	assert.Equal(t, logrus.WarnLevel, lastEntry(t, hook).Level)

	main.latest = 106
	main.progress = &ethereum.SyncProgress{CurrentBlock: 104, HighestBlock: 106}
	c.now = t0.Add(9 * time.Second)
	require.NoError(t, m.RunOnce(ctx))
	nodes, _ = db.NodeStore{DB: m.DB}.ListNodes(ctx, "ethereum")
	assert.True(t, nodes[0].IsSynced)
	e = lastEntry(t, hook)
	assert.Equal(t, logrus.InfoLevel, e.Level)
	assert.Equal(t, "http://main Block synchronization is working", e.Message)

	// unchanged and healthy: nothing logged
	hook.Reset()
	main.latest = 109
	main.progress = nil
	c.now = t0.Add(12 * time.Second)
	require.NoError(t, m.RunOnce(ctx))
	assert.Empty(t, hook.AllEntries())
}

func TestStalledNode(t *testing.T) {
	ctx := context.Background()
	stalled := &stubNode{latest: 100}
	m, c, hook := newMonitor(t, map[string]*stubNode{"http://main": stalled}, "http://main")
	require.NoError(t, m.Init(ctx))

	// 3 blocks in a minute against an expected 12
	c.now = t0.Add(time.Minute)
	require.NoError(t, m.RunOnce(ctx))
	e := lastEntry(t, hook)
	assert.Equal(t, logrus.ErrorLevel, e.Level)
	assert.Contains(t, e.Message, "3 blocks in 60 sec")
}

func TestInitPrioritiesAndCleanup(t *testing.T) {
	ctx := context.Background()
	nodes := map[string]*stubNode{
		"http://main":    {latest: 100},
		"http://standby": {latest: 100},
	}
	m, c, _ := newMonitor(t, nodes, "http://main", "http://standby")
	_, err := db.SetNodeStatus(ctx, m.DB, "ethereum", "http://old", 1, true)
	require.NoError(t, err)
	_, err = db.SetNodeStatus(ctx, m.DB, "ibetfin", "http://old", 0, true)
	require.NoError(t, err)

	require.NoError(t, m.Init(ctx))
	c.now = t0.Add(3 * time.Second)
	require.NoError(t, m.RunOnce(ctx))

	records, err := db.NodeStore{DB: m.DB}.ListNodes(ctx, "ethereum")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "http://main", records[0].EndpointURI)
	assert.Equal(t, 0, records[0].Priority)
	assert.Equal(t, "http://standby", records[1].EndpointURI)
	assert.Equal(t, 1, records[1].Priority)

	other, err := db.NodeStore{DB: m.DB}.ListNodes(ctx, "ibetfin")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestConnectionErrorMarksDown(t *testing.T) {
	ctx := context.Background()
	flaky := &stubNode{latest: 100}
	m, c, hook := newMonitor(t, map[string]*stubNode{"http://main": flaky}, "http://main", "http://gone")
	require.NoError(t, m.Init(ctx))
	assert.True(t, hasError(hook, "Node connection failed: http://gone"))

	flaky.err = errors.New("connection refused")
	c.now = t0.Add(3 * time.Second)
	require.NoError(t, m.RunOnce(ctx))
	assert.True(t, hasError(hook, "Node connection failed: http://main"))

	records, err := db.NodeStore{DB: m.DB}.ListNodes(ctx, "ethereum")
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.False(t, r.IsSynced, r.EndpointURI)
	}
}

func hasError(hook *test.Hook, msg string) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Message == msg {
			return true
		}
	}
	return false
}

func TestHistory(t *testing.T) {
	h := newHistory(3, sample{block: 1})
	assert.Equal(t, uint64(1), h.oldest().block)
	h.push(sample{block: 2})
	h.push(sample{block: 3})
	assert.Equal(t, uint64(1), h.oldest().block)
	h.push(sample{block: 4})
	assert.Equal(t, uint64(2), h.oldest().block)
}

// runEthereumDefaults samples a node producing one block every 12 seconds,
// using the shipped ethereum settings with the given sampling interval.
// It returns the sync state after each cycle.
func runEthereumDefaults(t *testing.T, interval time.Duration, cycles int) []bool {
	t.Helper()
	ctx := context.Background()
	cfg := config.Defaults()
	logger, _ := test.NewNullLogger()
	node := &stubNode{latest: 1000}
	c := &clock{now: t0}
	m := New(Settings{
		Network:              cfg.Ethereum.Name,
		URIs:                 []string{"http://eth"},
		Period:               cfg.Monitor.Period,
		RemainingThreshold:   cfg.Monitor.RemainingThreshold,
		SpeedThreshold:       cfg.Monitor.SpeedThreshold,
		ExpectedBlocksPerMin: cfg.Ethereum.ExpectedBlocksPerMin,
	}, setupTestDB(t), logger)
	m.Now = c.Now
	m.Dial = func(ctx context.Context, uri string) (NodeClient, error) { return node, nil }
	require.NoError(t, m.Init(ctx))

	var states []bool
	for i := 1; i <= cycles; i++ {
		c.now = t0.Add(time.Duration(i) * interval)
		node.latest = 1000 + uint64(c.now.Sub(t0)/(12*time.Second))
		require.NoError(t, m.RunOnce(ctx))
		records, err := db.NodeStore{DB: m.DB}.ListNodes(ctx, cfg.Ethereum.Name)
		require.NoError(t, err)
		require.Len(t, records, 1)
		states = append(states, records[0].IsSynced)
	}
	return states
}

func TestHealthyEthereumNodeStaysSynced(t *testing.T) {
	interval := config.Defaults().Ethereum.MonitorInterval
	for i, synced := range runEthereumDefaults(t, interval, 40) {
		assert.True(t, synced, "cycle %d", i+1)
	}
}

func TestShortIntervalFlagsHealthyEthereumNode(t *testing.T) {
	// a 9 second window regularly sees no new 12 second block
	states := runEthereumDefaults(t, 3*time.Second, 10)
	assert.Contains(t, states, false)
}
