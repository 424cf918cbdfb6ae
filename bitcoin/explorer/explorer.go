// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package explorer is a client of the bitcoin api used for utxos, fee rates and broadcasting.
package explorer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
	log "github.com/sirupsen/logrus"

	"github.com/BoostyLabs/twowaypeg/bitcoin"
	"github.com/BoostyLabs/twowaypeg/errs"
)

var (
	// ErrExplorer defines errors class for bitcoin api failures.
	ErrExplorer = errors.New("bitcoin api")
	// ErrEmptyResponse defines that api returned no data.
	ErrEmptyResponse = errors.New("empty response")
)

// DefaultTimeout defines http request timeout if no client is provided.
const DefaultTimeout = 30 * time.Second

// FeePriority selects fee rate from api recommendations.
type FeePriority string

const (
	// FeePriorityFastest defines next block fee rate.
	FeePriorityFastest FeePriority = "fastest"
	// FeePriorityHalfHour defines fee rate for confirmation within ~3 blocks.
	FeePriorityHalfHour FeePriority = "half_hour"
	// FeePriorityHour defines fee rate for confirmation within ~6 blocks.
	FeePriorityHour FeePriority = "hour"
)

// FeeRates holds recommended fee rates in satoshi per virtual byte.
type FeeRates struct {
	Fastest  uint64 `json:"fastest"`
	HalfHour uint64 `json:"half_hour"`
	Hour     uint64 `json:"hour"`
}

// ForPriority returns fee rate for priority, half hour rate for unknown priorities.
func (r FeeRates) ForPriority(priority FeePriority) *big.Int {
	switch priority {
	case FeePriorityFastest:
		return new(big.Int).SetUint64(r.Fastest)
	case FeePriorityHour:
		return new(big.Int).SetUint64(r.Hour)
	default:
		return new(big.Int).SetUint64(r.HalfHour)
	}
}

// TxStatus describes transaction inclusion.
type TxStatus struct {
	TxID        string `json:"txid"`
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint32 `json:"block_height"`
}

type utxo struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  uint64 `json:"value"`
	Script string `json:"script"`
}

// response is the envelope of every api response.
type response[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets http client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// Client talks to bitcoin api. Every failure is reported as errs.NetworkError,
// transient and permanent failures are not distinguished.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient is a constructor for Client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetUTXOs returns unspent outputs of address.
func (c *Client) GetUTXOs(ctx context.Context, address string) ([]bitcoin.UTXO, error) {
	var resp []utxo
	if err := c.do(ctx, http.MethodGet, "/api/v1/address/"+url.PathEscape(address)+"/utxos", nil, &resp); err != nil {
		return nil, err
	}

	utxos := make([]bitcoin.UTXO, 0, len(resp))
	for _, u := range resp {
		script, err := hex.DecodeString(u.Script)
		if err != nil {
			return nil, errs.NetworkError.Wrap(errors.Join(ErrExplorer, err))
		}

		utxos = append(utxos, bitcoin.UTXO{
			TxHash:  u.TxID,
			Index:   u.Vout,
			Amount:  new(big.Int).SetUint64(u.Value),
			Script:  script,
			Address: address,
		})
	}

	return utxos, nil
}

// GetFeeRates returns recommended fee rates.
func (c *Client) GetFeeRates(ctx context.Context) (FeeRates, error) {
	var rates FeeRates
	if err := c.do(ctx, http.MethodGet, "/api/v1/fee-rate", nil, &rates); err != nil {
		return FeeRates{}, err
	}

	return rates, nil
}

// GetFeeRate returns fee rate in satoshi per virtual byte for priority.
func (c *Client) GetFeeRate(ctx context.Context, priority FeePriority) (*big.Int, error) {
	rates, err := c.GetFeeRates(ctx)
	if err != nil {
		return nil, err
	}

	rate := rates.ForPriority(priority)
	if rate.Sign() <= 0 {
		return nil, errs.NetworkError.Wrap(errors.Join(ErrExplorer, bitcoin.ErrInvalidFeeRate))
	}

	return rate, nil
}

// Broadcast submits raw signed transaction hex, returns its id.
func (c *Client) Broadcast(ctx context.Context, txHex string) (string, error) {
	var txID string
	if err := c.do(ctx, http.MethodPost, "/api/v1/transaction/broadcast", strings.NewReader(txHex), &txID); err != nil {
		return "", err
	}
	if txID == "" {
		return "", errs.NetworkError.Wrap(errors.Join(ErrExplorer, ErrEmptyResponse))
	}

	return txID, nil
}

// GetTransactionStatus returns inclusion status of transaction.
func (c *Client) GetTransactionStatus(ctx context.Context, txID string) (TxStatus, error) {
	var status TxStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/transaction/"+url.PathEscape(txID), nil, &status); err != nil {
		return TxStatus{}, err
	}

	return status, nil
}

// WaitForConfirmation polls transaction status on every tick until it is confirmed or context is done.
// Status request failures are logged and polling continues.
func (c *Client) WaitForConfirmation(ctx context.Context, txID string, t ticker.Ticker) (TxStatus, error) {
	t.Resume()
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return TxStatus{}, ctx.Err()
		case <-t.Ticks():
			status, err := c.GetTransactionStatus(ctx, txID)
			if err != nil {
				log.WithError(err).WithField("txid", txID).Warn("could not get transaction status")
				continue
			}
			if status.Confirmed {
				return status, nil
			}
		}
	}
}

// do sends request and decodes data of response envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errs.NetworkError.Wrap(errors.Join(ErrExplorer, err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/plain")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.NetworkError.Wrap(errors.Join(ErrExplorer, err))
	}

	// nolint:all
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.NetworkError.Wrap(errors.Join(ErrExplorer, err))
	}

	var envelope response[json.RawMessage]
	decodeErr := json.Unmarshal(respBody, &envelope)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		if decodeErr == nil && envelope.Error != "" {
			msg = envelope.Error
		}

		return errs.NetworkError.Wrap(errors.Join(ErrExplorer, fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, msg)))
	}
	if decodeErr != nil {
		return errs.NetworkError.Wrap(errors.Join(ErrExplorer, decodeErr))
	}
	if len(bytes.TrimSpace(envelope.Data)) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return nil
	}

	if err = json.Unmarshal(envelope.Data, out); err != nil {
		return errs.NetworkError.Wrap(errors.Join(ErrExplorer, err))
	}

	return nil
}
