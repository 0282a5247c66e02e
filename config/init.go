package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

// reading config error is fatal, and exits main thread
func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

func readFile(path string, cfg *Configuration) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func readEnv(cfg *Configuration) error {
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	return nil
}

// Load builds a configuration from defaults, the yaml file at path (skipped when
// it does not exist) and environment overrides, in that order.
func Load(path string) (Configuration, error) {
	cfg := Defaults()
	if _, err := os.Stat(path); err == nil {
		if err := readFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := readEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Configuration) Validate() error {
	if len(c.Ibet.URIs()) == 0 {
		return fmt.Errorf("ibet: no endpoints configured")
	}
	if len(c.Ethereum.URIs()) == 0 {
		return fmt.Errorf("ethereum: no endpoints configured")
	}
	if c.Bridge.BlockLotSize == 0 || c.Indexer.BlockLotSize == 0 {
		return fmt.Errorf("block lot size must be positive")
	}
	if c.Monitor.Period <= 0 {
		return fmt.Errorf("monitor period must be positive")
	}
	if c.Ibet.MonitorInterval <= 0 || c.Ethereum.MonitorInterval <= 0 {
		return fmt.Errorf("monitor interval must be positive")
	}
	switch c.Database.Engine {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database engine %q", c.Database.Engine)
	}
	return nil
}

func Init(path string) {
	cfg, err := Load(path)
	if err != nil {
		processError(err)
	}
	Config = cfg
}
