// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin_test

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/twowaypeg/bitcoin"
)

func TestNetworkParams(t *testing.T) {
	tests := []struct {
		name   string
		params *chaincfg.Params
		err    error
	}{
		{"mainnet", &chaincfg.MainNetParams, nil},
		{"Testnet", &chaincfg.TestNet3Params, nil},
		{"signet", &chaincfg.SigNetParams, nil},
		{"regtest", &chaincfg.RegressionNetParams, nil},
		{"litecoin", nil, bitcoin.ErrUnsupportedNetwork},
	}
	for _, test := range tests {
		params, err := bitcoin.NetworkParams(test.name)
		require.Equal(t, test.err, err, test.name)
		require.Equal(t, test.params, params, test.name)
	}
}

func TestUTXOOutpoint(t *testing.T) {
	utxo := bitcoin.UTXO{TxHash: "d78a52d61c43ec43d56e270e8f87ebe952f3bb5fe0a042494ed6ebf753285746", Index: 4}
	require.Equal(t, "d78a52d61c43ec43d56e270e8f87ebe952f3bb5fe0a042494ed6ebf753285746:4", utxo.Outpoint())
}
