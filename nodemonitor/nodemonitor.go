// Package nodemonitor tracks the block synchronization of every configured
// RPC endpoint and keeps the node records used for failover up to date.
package nodemonitor

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ibetwstbridge/db"
)

// NodeClient is the part of an ethclient the monitor needs.
type NodeClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	SyncProgress(ctx context.Context) (*ethereum.SyncProgress, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
}

type Dialer func(ctx context.Context, uri string) (NodeClient, error)

func DialEthclient(ctx context.Context, uri string) (NodeClient, error) {
	client, err := ethclient.DialContext(ctx, uri)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type Settings struct {
	Network string
	// first URI is the main node, the rest are standby
	URIs []string

	Period             int
	RemainingThreshold uint64
	// percent
	SpeedThreshold       float64
	ExpectedBlocksPerMin float64
}

type sample struct {
	at    time.Time
	block uint64
}

// history keeps the last len(buf) samples; the slot at next is the oldest.
type history struct {
	buf  []sample
	next int
}

func newHistory(size int, seed sample) *history {
	if size < 1 {
		size = 1
	}
	h := &history{buf: make([]sample, size)}
	for i := range h.buf {
		h.buf[i] = seed
	}
	return h
}

func (h *history) push(s sample) {
	h.buf[h.next] = s
	h.next = (h.next + 1) % len(h.buf)
}

func (h *history) oldest() sample { return h.buf[h.next] }

type node struct {
	uri      string
	priority int
	client   NodeClient
	history  *history
}

type Monitor struct {
	Settings
	DB   *gorm.DB
	Dial Dialer
	Log  logrus.FieldLogger
	Now  func() time.Time

	nodes []*node
}

func New(settings Settings, database *gorm.DB, log logrus.FieldLogger) *Monitor {
	return &Monitor{Settings: settings, DB: database, Dial: DialEthclient, Log: log, Now: time.Now}
}

// Init drops records of endpoints that are no longer configured and seeds
// the history of each endpoint with the block PERIOD blocks back.
func (m *Monitor) Init(ctx context.Context) error {
	if err := db.DeleteNodesNotIn(ctx, m.DB, m.Network, m.URIs); err != nil {
		return err
	}
	m.nodes = m.nodes[:0]
	for i, uri := range m.URIs {
		n := &node{uri: uri, priority: 1}
		if i == 0 {
			n.priority = 0
		}
		seed, err := m.seed(ctx, n)
		if err != nil {
			m.Log.Errorf("Node connection failed: %s", uri)
			m.Log.Debugf("seed %s: %v", uri, err)
			if err := m.markDown(ctx, n); err != nil {
				return err
			}
			seed = sample{at: m.Now()}
		}
		n.history = newHistory(m.Period, seed)
		m.nodes = append(m.nodes, n)
	}
	return nil
}

func (m *Monitor) seed(ctx context.Context, n *node) (sample, error) {
	client, err := m.client(ctx, n)
	if err != nil {
		return sample{}, err
	}
	latest, err := client.BlockNumber(ctx)
	if err != nil {
		return sample{}, err
	}
	var start uint64
	if latest > uint64(m.Period) {
		start = latest - uint64(m.Period)
	}
	header, err := client.HeaderByNumber(ctx, new(big.Int).SetUint64(start))
	if err != nil {
		return sample{}, err
	}
	return sample{at: time.Unix(int64(header.Time), 0), block: start}, nil
}

func (m *Monitor) client(ctx context.Context, n *node) (NodeClient, error) {
	if n.client != nil {
		return n.client, nil
	}
	client, err := m.Dial(ctx, n.uri)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", n.uri, err)
	}
	n.client = client
	return client, nil
}

// RunOnce checks every endpoint. A node that cannot be reached is marked
// not synced; only database errors are returned.
func (m *Monitor) RunOnce(ctx context.Context) error {
	for _, n := range m.nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		synced, problems, err := m.check(ctx, n)
		if err != nil {
			m.Log.Errorf("Node connection failed: %s", n.uri)
			m.Log.Debugf("check %s: %v", n.uri, err)
			if err := m.markDown(ctx, n); err != nil {
				return err
			}
			continue
		}
		changed, err := db.SetNodeStatus(ctx, m.DB, m.Network, n.uri, n.priority, synced)
		if err != nil {
			return err
		}
		switch {
		case changed && synced:
			m.Log.Infof("%s Block synchronization is working", n.uri)
		case changed:
			m.Log.Errorf("%s Block synchronization is down: %s", n.uri, strings.Join(problems, "; "))
		case !synced:
			m.Log.Warnf("%s Block synchronization is down: %s", n.uri, strings.Join(problems, "; "))
		}
	}
	return nil
}

func (m *Monitor) check(ctx context.Context, n *node) (bool, []string, error) {
	client, err := m.client(ctx, n)
	if err != nil {
		return false, nil, err
	}
	synced := true
	var problems []string

	progress, err := client.SyncProgress(ctx)
	if err != nil {
		return false, nil, err
	}
	if progress != nil && progress.HighestBlock > progress.CurrentBlock &&
		progress.HighestBlock-progress.CurrentBlock > m.RemainingThreshold {
		synced = false
		problems = append(problems, fmt.Sprintf("highestBlock=%d, currentBlock=%d", progress.HighestBlock, progress.CurrentBlock))
	}

	latest, err := client.BlockNumber(ctx)
	if err != nil {
		return false, nil, err
	}
	now := sample{at: m.Now(), block: latest}
	oldest := n.history.oldest()
	elapsed := now.at.Sub(oldest.at)
	var generated float64
	if latest > oldest.block {
		generated = float64(latest - oldest.block)
	}
	expected := elapsed.Minutes() * m.ExpectedBlocksPerMin * m.SpeedThreshold / 100
	if generated < expected {
		synced = false
		problems = append(problems, fmt.Sprintf("%d blocks in %d sec", uint64(generated), int64(elapsed.Seconds())))
	}
	n.history.push(now)
	return synced, problems, nil
}

func (m *Monitor) markDown(ctx context.Context, n *node) error {
	_, err := db.SetNodeStatus(ctx, m.DB, m.Network, n.uri, n.priority, false)
	return err
}
