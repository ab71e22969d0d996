// Package config loads the light client's runtime configuration: the
// chain it verifies, the full node it fetches from, and the trust
// parameters that bound how far it will bisect. It follows the
// tolelom-tolchain pattern of a JSON-backed struct with a DefaultConfig
// constructor and a Validate method, rather than a framework like viper.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tmlite/tmlite/lite/types"
)

// Config is the light client's full runtime configuration.
type Config struct {
	ChainID types.ChainID `json:"chain_id"`
	// FullNodeAddress is the RPC endpoint fetched state comes from, e.g.
	// "tcp://localhost:26657".
	FullNodeAddress string `json:"full_node_address"`
	// TrustingPeriod bounds how long a trusted state remains usable.
	TrustingPeriod time.Duration `json:"trusting_period"`
	// TrustThreshold is the fraction of a trusted validator set's voting
	// power that must overlap an untrusted commit.
	TrustThreshold types.TrustThreshold `json:"trust_threshold"`
	// StoreRetention bounds how many trusted states are kept on disk.
	// 0 means unbounded.
	StoreRetention int `json:"store_retention"`
	// DBDir is the directory the durable trusted-state store is opened in.
	DBDir string `json:"db_dir"`
}

// DefaultConfig returns a Config with conservative defaults: a week-long
// trusting period and the canonical 1/3 trust threshold.
func DefaultConfig() *Config {
	return &Config{
		TrustingPeriod: 7 * 24 * time.Hour,
		TrustThreshold: types.DefaultTrustThreshold,
		StoreRetention: 1000,
		DBDir:          "./litedb",
	}
}

// Validate reports whether c is well-formed.
func (c *Config) Validate() error {
	if c.ChainID == "" {
		return fmt.Errorf("config: chain_id is required")
	}
	if c.FullNodeAddress == "" {
		return fmt.Errorf("config: full_node_address is required")
	}
	if c.TrustingPeriod <= 0 {
		return fmt.Errorf("config: trusting_period must be positive")
	}
	if err := c.TrustThreshold.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.DBDir == "" {
		return fmt.Errorf("config: db_dir is required")
	}
	return nil
}

// Load reads a JSON-encoded Config from path, applying DefaultConfig for
// any field the file omits.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config %s: %w", path, err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}
	return cfg, nil
}
