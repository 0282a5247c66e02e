package EVMRPC

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"ibetwstbridge/types"
)

// ErrServiceUnavailable is returned when failover is enabled and no node is synced.
var ErrServiceUnavailable = errors.New("no synced node available")

// NodeSource lists the NodeRecords of a network ordered by priority.
type NodeSource interface {
	ListNodes(ctx context.Context, network string) ([]types.NodeRecord, error)
}

type Options struct {
	Network     string
	ChainID     *big.Int
	Endpoints   []string
	HasFinality bool
	Timeout     time.Duration
	// optional, enables failover on node health
	Nodes  NodeSource
	Logger logrus.FieldLogger
}

// Client talks to one network. Calls are never retried here; the polling loops
// retry on their next run.
type Client struct {
	network     string
	chainID     *big.Int
	endpoints   []string
	hasFinality bool
	timeout     time.Duration
	nodes       NodeSource
	log         logrus.FieldLogger

	mu      sync.Mutex
	clients map[string]*ethclient.Client
}

func New(opts Options) (*Client, error) {
	if len(opts.Endpoints) == 0 {
		return nil, fmt.Errorf("%s: no endpoints", opts.Network)
	}
	if opts.ChainID == nil {
		return nil, fmt.Errorf("%s: chain id not set", opts.Network)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		network:     opts.Network,
		chainID:     opts.ChainID,
		endpoints:   opts.Endpoints,
		hasFinality: opts.HasFinality,
		timeout:     opts.Timeout,
		nodes:       opts.Nodes,
		log:         logger.WithField("network", opts.Network),
		clients:     make(map[string]*ethclient.Client),
	}, nil
}

func (c *Client) Network() string { return c.network }

func (c *Client) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

// endpoint picks the URI to use for the next call.
func (c *Client) endpoint(ctx context.Context) (string, error) {
	if c.nodes == nil {
		return c.endpoints[0], nil
	}
	nodes, err := c.nodes.ListNodes(ctx, c.network)
	if err != nil {
		return "", fmt.Errorf("list nodes: %w", err)
	}
	// the health monitor has not written anything yet
	if len(nodes) == 0 {
		return c.endpoints[0], nil
	}
	for _, n := range nodes {
		if n.IsSynced {
			return n.EndpointURI, nil
		}
	}
	return "", fmt.Errorf("%s: %w", c.network, ErrServiceUnavailable)
}

func (c *Client) dial(ctx context.Context, uri string) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[uri]; ok {
		return client, nil
	}
	client, err := ethclient.DialContext(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", uri, err)
	}
	c.clients[uri] = client
	return client, nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for uri, client := range c.clients {
		client.Close()
		delete(c.clients, uri)
	}
}

// WithClient runs f against the currently selected endpoint.
func WithClient[T any](ctx context.Context, c *Client, f func(ctx context.Context, client *ethclient.Client) (T, error)) (res T, err error) {
	uri, err := c.endpoint(ctx)
	if err != nil {
		return res, err
	}
	client, err := c.dial(ctx, uri)
	if err != nil {
		c.log.Warnf("error connecting to %s: %v", uri, err)
		return res, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return f(ctx, client)
}
