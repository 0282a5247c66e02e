package main

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"ibetwstbridge/EVMRPC"
	"ibetwstbridge/EVMRPC/wst"
	"ibetwstbridge/bridge"
	"ibetwstbridge/config"
	"ibetwstbridge/db"
	"ibetwstbridge/indexer"
	"ibetwstbridge/keys"
	"ibetwstbridge/nodemonitor"
	"ibetwstbridge/redis"
	"ibetwstbridge/sender"
	"ibetwstbridge/workers"
	"ibetwstbridge/workers/handlers"
)

func configPath() string {
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		return p
	}
	return "config.yml"
}

func newLogger(cfg config.Configuration) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Log.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func newChain(chain config.ChainConfig, nodes EVMRPC.NodeSource, logger *logrus.Logger) (*EVMRPC.Client, error) {
	opts := EVMRPC.Options{
		Network:     chain.Name,
		ChainID:     big.NewInt(chain.ChainID),
		Endpoints:   chain.URIs(),
		HasFinality: chain.HasFinality,
		Timeout:     chain.RPCTimeout,
		Logger:      logger.WithField("module", "evmrpc"),
	}
	if chain.Failover {
		opts.Nodes = nodes
	}
	return EVMRPC.New(opts)
}

func newMonitor(chain config.ChainConfig, cfg config.Configuration, nodes *db.NodeStore, logger *logrus.Logger) *nodemonitor.Monitor {
	return nodemonitor.New(nodemonitor.Settings{
		Network:              chain.Name,
		URIs:                 chain.URIs(),
		Period:               cfg.Monitor.Period,
		RemainingThreshold:   cfg.Monitor.RemainingThreshold,
		SpeedThreshold:       cfg.Monitor.SpeedThreshold,
		ExpectedBlocksPerMin: chain.ExpectedBlocksPerMin,
	}, nodes.DB, logger.WithFields(logrus.Fields{"module": "nodemonitor", "network": chain.Name}))
}

func main() {
	config.Init(configPath())
	cfg := config.Config
	logger := newLogger(cfg)
	log := logger.WithField("module", "main")
	log.Info("Starting ibet/IbetWST bridge")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.Database.Engine, cfg.Database.DSN, logger.WithField("module", "db"))
	if err != nil {
		log.Fatalf("Cannot open database: %v", err)
	}
	nodes := &db.NodeStore{DB: database}

	ibet, err := newChain(cfg.Ibet, nodes, logger)
	if err != nil {
		log.Fatalf("Cannot create ibet client: %v", err)
	}
	defer ibet.Close()
	ethereum, err := newChain(cfg.Ethereum, nodes, logger)
	if err != nil {
		log.Fatalf("Cannot create ethereum client: %v", err)
	}
	defer ethereum.Close()

	keyStore, err := keys.NewDBStore(database, cfg.Relayer.Address, cfg.Relayer.PrivateKey, keys.PlainPassword)
	if err != nil {
		log.Fatalf("Cannot load relayer key: %v", err)
	}
	relayer := keyStore.Relayer()
	if relayer == nil {
		log.Fatal("Relayer private key is not configured")
	}

	contract := wst.Default()
	if cfg.Sender.WSTArtifact != "" {
		if contract, err = wst.LoadArtifact(cfg.Sender.WSTArtifact); err != nil {
			log.Fatalf("Cannot load IbetWST artifact: %v", err)
		}
	}

	registry := bridge.NewRegistry(logger.WithField("module", "registry"))

	monitors := map[*nodemonitor.Monitor]time.Duration{
		newMonitor(cfg.Ibet, cfg, nodes, logger):     cfg.Ibet.MonitorInterval,
		newMonitor(cfg.Ethereum, cfg, nodes, logger): cfg.Ethereum.MonitorInterval,
	}
	for m := range monitors {
		if err := m.Init(ctx); err != nil {
			log.Fatalf("Cannot initialize node monitor: %v", err)
		}
	}

	var lease workers.Leaser
	if cfg.Server.RedisHost != "" {
		lease = redis.NewLease(redis.NewPool(cfg.Server.RedisHost, cfg.Server.RedisPort), cfg.Server.LeaseTTL)
		log.Infof("Using redis stream leases on %s:%d", cfg.Server.RedisHost, cfg.Server.RedisPort)
	}

	worker := func(name, stream string, interval time.Duration, job workers.Job) *workers.Worker {
		return &workers.Worker{
			Name:     name,
			Stream:   stream,
			Interval: interval,
			Job:      job,
			Lease:    lease,
			Log:      logger.WithField("module", name),
		}
	}

	all := []*workers.Worker{
		worker("bridge", "bridge", cfg.Bridge.Interval, &bridge.Processor{
			DB:             database,
			Ibet:           ibet,
			Ethereum:       ethereum,
			Keys:           keyStore,
			Registry:       registry,
			WST:            contract,
			RelayerAddress: relayer.Address.Hex(),
			LotSize:        cfg.Bridge.BlockLotSize,
			Log:            logger.WithField("module", "bridge"),
		}),
		worker("indexer", config.StreamTrade, cfg.Indexer.Interval, &indexer.Indexer{
			DB:       database,
			Chain:    ethereum,
			Registry: bridge.NewRegistry(logger.WithField("module", "registry")),
			WST:      contract,
			LotSize:  cfg.Indexer.BlockLotSize,
			Log:      logger.WithField("module", "indexer"),
		}),
		worker("send_wst", "send_wst", cfg.Sender.Interval, &sender.WSTSender{
			DB:    database,
			Chain: ethereum,
			Keys:  keyStore,
			WST:   contract,
			Log:   logger.WithField("module", "send_wst"),
		}),
		worker("send_ibet", "send_ibet", cfg.Sender.IbetInterval, &sender.IbetSender{
			DB:             database,
			Chain:          ibet,
			Keys:           keyStore,
			Log:            logger.WithField("module", "send_ibet"),
			ReceiptTimeout: 2 * time.Minute,
		}),
		worker("receipt", "receipt", cfg.Sender.ReceiptInterval, &sender.ReceiptMonitor{
			DB:    database,
			Chain: ethereum,
			Log:   logger.WithField("module", "receipt"),
		}),
	}
	for m, interval := range monitors {
		all = append(all, worker("monitor_"+m.Network, "monitor_"+m.Network, interval, m))
	}

	api := &handlers.API{DB: database, Networks: []string{cfg.Ibet.Name, cfg.Ethereum.Name}}
	go func() {
		if err := workers.Serve(ctx, cfg.Server.HTTPAddr, workers.NewRouter(api), logger.WithField("module", "http")); err != nil {
			log.Errorf("HTTP service error: %v", err)
			stop()
		}
	}()

	workers.RunAll(ctx, all...)
	log.Info("Bridge stopped")
}
