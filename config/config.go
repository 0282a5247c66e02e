package config

import "time"

type Endpoint struct {
	URI string `yaml:"uri"`
}

// ChainConfig describes one of the two bridged networks.
type ChainConfig struct {
	Name      string     `yaml:"name"`
	ChainID   int64      `yaml:"chain_id" split_words:"true"`
	Endpoints []Endpoint `yaml:"endpoints" ignored:"true"`
	// comma separated list, overrides Endpoints when set from the environment
	EndpointList []string `yaml:"-" envconfig:"ENDPOINTS"`
	// use NodeRecord health for endpoint selection
	Failover bool `yaml:"failover"`
	// ethereum exposes a finalized block tag; ibet uses latest
	HasFinality bool          `yaml:"has_finality" split_words:"true"`
	RPCTimeout  time.Duration `yaml:"rpc_timeout" split_words:"true"`
	// expected blocks per minute, used by the node monitor
	ExpectedBlocksPerMin float64 `yaml:"expected_blocks_per_min" split_words:"true"`
	// how often the node monitor samples this chain; the speed check needs
	// Period samples to span several blocks
	MonitorInterval time.Duration `yaml:"monitor_interval" split_words:"true"`
}

// URIs returns the configured endpoint URIs in priority order.
func (c ChainConfig) URIs() []string {
	if len(c.EndpointList) > 0 {
		return c.EndpointList
	}
	uris := make([]string, 0, len(c.Endpoints))
	for _, e := range c.Endpoints {
		uris = append(uris, e.URI)
	}
	return uris
}

type Configuration struct {
	// Server config
	Server struct {
		HTTPAddr  string `yaml:"http_addr" split_words:"true"`
		RedisPort int    `yaml:"redis_port" split_words:"true"`
		RedisHost string `yaml:"redis_host" split_words:"true"`
		// stream lease duration, only used when redis is configured
		LeaseTTL time.Duration `yaml:"lease_ttl" split_words:"true"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`

	Database struct {
		// postgres or sqlite
		Engine string `yaml:"engine"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Ibet     ChainConfig `yaml:"ibet"`
	Ethereum ChainConfig `yaml:"ethereum"`

	// important private stuff
	Relayer struct {
		Address    string `yaml:"address"`
		PrivateKey string `yaml:"private_key" split_words:"true"`
	} `yaml:"relayer"`

	Bridge struct {
		Interval     time.Duration `yaml:"interval"`
		BlockLotSize uint64        `yaml:"block_lot_size" split_words:"true"`
	} `yaml:"bridge"`

	Indexer struct {
		Interval     time.Duration `yaml:"interval"`
		BlockLotSize uint64        `yaml:"block_lot_size" split_words:"true"`
	} `yaml:"indexer"`

	Sender struct {
		Interval        time.Duration `yaml:"interval"`
		ReceiptInterval time.Duration `yaml:"receipt_interval" split_words:"true"`
		IbetInterval    time.Duration `yaml:"ibet_interval" split_words:"true"`
		// compiled IbetWST artifact with abi and bytecode, needed for deploy intents
		WSTArtifact string `yaml:"wst_artifact" split_words:"true"`
	} `yaml:"sender"`

	Monitor struct {
		// number of samples kept per node
		Period             int `yaml:"period"`
		RemainingThreshold uint64 `yaml:"remaining_threshold" split_words:"true"`
		// percent of the expected block rate below which a node is considered stalled
		SpeedThreshold float64 `yaml:"speed_threshold" split_words:"true"`
	} `yaml:"monitor"`
}

var Config Configuration

// Stream names used for checkpoints and leases.
const (
	StreamIbet     = "ibetfin"
	StreamEthereum = "ethereum"
	StreamTrade    = "trade"
)

// Defaults mirror what the bridge has run with in production.
func Defaults() Configuration {
	var cfg Configuration
	cfg.Server.HTTPAddr = ":8080"
	cfg.Server.RedisPort = 6379
	cfg.Server.LeaseTTL = 60 * time.Second
	cfg.Log.Level = "info"
	cfg.Database.Engine = "postgres"

	cfg.Ibet.Name = "ibetfin"
	cfg.Ibet.ChainID = 2017
	cfg.Ibet.RPCTimeout = 10 * time.Second
	cfg.Ibet.ExpectedBlocksPerMin = 60
	cfg.Ibet.MonitorInterval = 3 * time.Second

	cfg.Ethereum.Name = "ethereum"
	cfg.Ethereum.ChainID = 1
	cfg.Ethereum.HasFinality = true
	cfg.Ethereum.RPCTimeout = 10 * time.Second
	cfg.Ethereum.ExpectedBlocksPerMin = 5
	cfg.Ethereum.MonitorInterval = 60 * time.Second

	cfg.Bridge.Interval = 10 * time.Second
	cfg.Bridge.BlockLotSize = 10000
	cfg.Indexer.Interval = 10 * time.Second
	cfg.Indexer.BlockLotSize = 10000
	cfg.Sender.Interval = 10 * time.Second
	cfg.Sender.ReceiptInterval = 10 * time.Second
	cfg.Sender.IbetInterval = 10 * time.Second

	cfg.Monitor.Period = 3
	cfg.Monitor.RemainingThreshold = 2
	cfg.Monitor.SpeedThreshold = 20
	return cfg
}
