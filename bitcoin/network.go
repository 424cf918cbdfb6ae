// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network names accepted by NetworkParams.
const (
	Mainnet = "mainnet"
	Testnet = "testnet"
	Signet  = "signet"
	Regtest = "regtest"
)

// NetworkParams returns chain parameters for provided network name.
func NetworkParams(name string) (*chaincfg.Params, error) {
	switch strings.ToLower(name) {
	case Mainnet, "bitcoin":
		return &chaincfg.MainNetParams, nil
	case Testnet, "testnet3":
		return &chaincfg.TestNet3Params, nil
	case Signet:
		return &chaincfg.SigNetParams, nil
	case Regtest:
		return &chaincfg.RegressionNetParams, nil
	}

	return nil, ErrUnsupportedNetwork
}
