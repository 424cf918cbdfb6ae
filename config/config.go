// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package config loads two-way peg client configuration from defaults, config file and environment.
package config

import (
	"errors"
	"math/big"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/BoostyLabs/twowaypeg/bitcoin"
	"github.com/BoostyLabs/twowaypeg/bitcoin/explorer"
	"github.com/BoostyLabs/twowaypeg/internal/staleness"
)

// EnvPrefix defines prefix of environment variables, e.g. TWOWAYPEG_BITCOIN_API_URL.
const EnvPrefix = "TWOWAYPEG"

// Configuration keys.
const (
	KeyNetwork                  = "network"
	KeyBitcoinAPIURL            = "bitcoin-api-url"
	KeyDatadir                  = "datadir"
	KeyLogLevel                 = "log-level"
	KeyFeeRateMaxAge            = "fee-rate-max-age"
	KeyConfirmationPollInterval = "confirmation-poll-interval"
	KeyDustLimit                = "dust-limit"
	KeyFeePriority              = "fee-priority"
)

var (
	// ErrConfig defines errors class for invalid configuration.
	ErrConfig = errors.New("invalid configuration")

	// envReplacer maps keys like `bitcoin-api-url` to environment variables like `BITCOIN_API_URL`.
	envReplacer = strings.NewReplacer("-", "_")
)

// Config is the resolved client configuration.
type Config struct {
	Network                  *chaincfg.Params
	BitcoinAPIURL            string
	Datadir                  string // used utxos store location, in memory when empty.
	LogLevel                 log.Level
	FeeRateMaxAge            time.Duration
	ConfirmationPollInterval time.Duration
	DustLimit                *big.Int
	FeePriority              explorer.FeePriority
}

// UsedUTXODir returns directory of used utxos store, empty for in memory store.
func (c *Config) UsedUTXODir() string {
	if c.Datadir == "" {
		return ""
	}

	return filepath.Join(c.Datadir, "db")
}

// New returns viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	v.SetDefault(KeyNetwork, bitcoin.Mainnet)
	v.SetDefault(KeyBitcoinAPIURL, "http://localhost:3000")
	v.SetDefault(KeyDatadir, "")
	v.SetDefault(KeyLogLevel, log.InfoLevel.String())
	v.SetDefault(KeyFeeRateMaxAge, staleness.DefaultMaxAge)
	v.SetDefault(KeyConfirmationPollInterval, 30*time.Second)
	v.SetDefault(KeyDustLimit, 546)
	v.SetDefault(KeyFeePriority, string(explorer.FeePriorityHalfHour))

	return v
}

// Load resolves configuration from v, reading configFile first when it is set.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Join(ErrConfig, err)
		}
	}

	network, err := bitcoin.NetworkParams(v.GetString(KeyNetwork))
	if err != nil {
		return nil, errors.Join(ErrConfig, err)
	}

	level, err := log.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return nil, errors.Join(ErrConfig, err)
	}

	dustLimit := v.GetInt64(KeyDustLimit)
	if dustLimit < 0 {
		return nil, errors.Join(ErrConfig, errors.New("dust limit must not be negative"))
	}

	apiURL := v.GetString(KeyBitcoinAPIURL)
	if apiURL == "" {
		return nil, errors.Join(ErrConfig, errors.New("bitcoin api url is required"))
	}

	return &Config{
		Network:                  network,
		BitcoinAPIURL:            apiURL,
		Datadir:                  v.GetString(KeyDatadir),
		LogLevel:                 level,
		FeeRateMaxAge:            v.GetDuration(KeyFeeRateMaxAge),
		ConfirmationPollInterval: v.GetDuration(KeyConfirmationPollInterval),
		DustLimit:                big.NewInt(dustLimit),
		FeePriority:              explorer.FeePriority(v.GetString(KeyFeePriority)),
	}, nil
}
