// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package explorer_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/twowaypeg/bitcoin/explorer"
	"github.com/BoostyLabs/twowaypeg/errs"
)

const txID = "d78a52d61c43ec43d56e270e8f87ebe952f3bb5fe0a042494ed6ebf753285746"

func newServer(t *testing.T, statusCalls *atomic.Int64) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/address/bcrt1pfunded/utxos", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		_, _ = io.WriteString(w, `{"data":[{"txid":"`+txID+`","vout":1,"value":5000,"script":"5120aa"},`+
			`{"txid":"`+txID+`","vout":2,"value":3000,"script":"5120bb"}]}`)
	})
	mux.HandleFunc("/api/v1/address/bcrt1pempty/utxos", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":null}`)
	})
	mux.HandleFunc("/api/v1/fee-rate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"fastest":12,"half_hour":8,"hour":5}}`)
	})
	mux.HandleFunc("/api/v1/transaction/broadcast", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		if string(body) != "0200aa" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"bad-txns-inputs-missingorspent"}`)
			return
		}

		_, _ = io.WriteString(w, `{"data":"`+txID+`"}`)
	})
	mux.HandleFunc("/api/v1/transaction/"+txID, func(w http.ResponseWriter, r *http.Request) {
		if statusCalls.Add(1) < 3 {
			_, _ = io.WriteString(w, `{"data":{"txid":"`+txID+`","confirmed":false}}`)
			return
		}

		_, _ = io.WriteString(w, `{"data":{"txid":"`+txID+`","confirmed":true,"block_height":812}}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func TestClient(t *testing.T) {
	var (
		ctx         = context.Background()
		statusCalls = new(atomic.Int64)
		server      = newServer(t, statusCalls)
		client      = explorer.NewClient(server.URL+"/", explorer.WithHTTPClient(server.Client()))
	)

	t.Run("utxos", func(t *testing.T) {
		utxos, err := client.GetUTXOs(ctx, "bcrt1pfunded")
		require.NoError(t, err)
		require.Len(t, utxos, 2)
		require.Equal(t, txID, utxos[0].TxHash)
		require.EqualValues(t, 1, utxos[0].Index)
		require.EqualValues(t, 5000, utxos[0].Amount.Int64())
		require.Equal(t, []byte{0x51, 0x20, 0xaa}, utxos[0].Script)
		require.Equal(t, "bcrt1pfunded", utxos[1].Address)

		utxos, err = client.GetUTXOs(ctx, "bcrt1pempty")
		require.NoError(t, err)
		require.Empty(t, utxos)
	})

	t.Run("fee rate", func(t *testing.T) {
		tests := []struct {
			priority explorer.FeePriority
			expected int64
		}{
			{explorer.FeePriorityFastest, 12},
			{explorer.FeePriorityHalfHour, 8},
			{explorer.FeePriorityHour, 5},
			{"unknown", 8},
		}
		for _, test := range tests {
			rate, err := client.GetFeeRate(ctx, test.priority)
			require.NoError(t, err)
			require.EqualValues(t, test.expected, rate.Int64())
		}
	})

	t.Run("broadcast", func(t *testing.T) {
		id, err := client.Broadcast(ctx, "0200aa")
		require.NoError(t, err)
		require.Equal(t, txID, id)

		_, err = client.Broadcast(ctx, "0200bb")
		require.ErrorIs(t, err, explorer.ErrExplorer)
		require.ErrorContains(t, err, "bad-txns-inputs-missingorspent")
		require.Equal(t, errs.NetworkError, errs.CodeOf(err))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := client.GetTransactionStatus(ctx, "missing")
		require.Equal(t, errs.NetworkError, errs.CodeOf(err))
	})

	t.Run("unreachable", func(t *testing.T) {
		unreachable := explorer.NewClient("http://127.0.0.1:1")

		_, err := unreachable.GetFeeRate(ctx, explorer.FeePriorityFastest)
		require.ErrorIs(t, err, explorer.ErrExplorer)
		require.Equal(t, errs.NetworkError, errs.CodeOf(err))
	})

	t.Run("wait for confirmation", func(t *testing.T) {
		forceTicker := ticker.NewForce(time.Hour)
		go func() {
			for i := 0; i < 3; i++ {
				forceTicker.Force <- time.Now()
			}
		}()

		status, err := client.WaitForConfirmation(ctx, txID, forceTicker)
		require.NoError(t, err)
		require.True(t, status.Confirmed)
		require.EqualValues(t, 812, status.BlockHeight)
		require.EqualValues(t, 3, statusCalls.Load())
	})

	t.Run("wait canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := client.WaitForConfirmation(canceled, txID, ticker.NewForce(time.Hour))
		require.ErrorIs(t, err, context.Canceled)
	})
}
