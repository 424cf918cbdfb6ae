// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package deposit builds, signs and broadcasts bitcoin deposits into hot reserve addresses.
package deposit

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	log "github.com/sirupsen/logrus"

	"github.com/BoostyLabs/twowaypeg/bitcoin"
	"github.com/BoostyLabs/twowaypeg/bitcoin/explorer"
	"github.com/BoostyLabs/twowaypeg/bitcoin/txbuilder"
	"github.com/BoostyLabs/twowaypeg/errs"
	"github.com/BoostyLabs/twowaypeg/internal/staleness"
	"github.com/BoostyLabs/twowaypeg/store"
	"github.com/BoostyLabs/twowaypeg/wallet"
)

// DefaultPollInterval defines delay between confirmation checks if not configured.
const DefaultPollInterval = 30 * time.Second

// BitcoinAPI is the part of bitcoin api used by deposits.
type BitcoinAPI interface {
	GetUTXOs(ctx context.Context, address string) ([]bitcoin.UTXO, error)
	Broadcast(ctx context.Context, txHex string) (string, error)
	WaitForConfirmation(ctx context.Context, txID string, t ticker.Ticker) (explorer.TxStatus, error)
}

// FeeRateSource provides fee rate in satoshi per virtual byte.
type FeeRateSource interface {
	Get(ctx context.Context) (*big.Int, error)
}

// NewFeeRateCache returns fee rate source refetching from api once value is older than maxAge.
func NewFeeRateCache(api *explorer.Client, priority explorer.FeePriority, maxAge time.Duration,
	clk clock.Clock) *staleness.Cache[*big.Int] {

	return staleness.New[*big.Int]("fee-rate", func(ctx context.Context) (*big.Int, error) {
		return api.GetFeeRate(ctx, priority)
	}, maxAge, clk)
}

// Params defines deposit request.
type Params struct {
	DestinationAddress string // hot reserve address.
	Amount             *big.Int
	DepositAll         bool
}

// Result describes broadcast deposit.
type Result struct {
	TxID  string
	Fee   *big.Int
	UTXOs []*bitcoin.UTXO
}

// Config defines deposit service configuration.
type Config struct {
	DustLimit    *big.Int
	PollInterval time.Duration
}

// Service deposits from session wallet taproot address.
type Service struct {
	config  Config
	session *wallet.Session
	api     BitcoinAPI
	feeRate FeeRateSource
	used    store.UsedUTXOStore
	builder *txbuilder.TxBuilder
}

// NewService is a constructor for Service.
func NewService(config Config, session *wallet.Session, api BitcoinAPI, feeRate FeeRateSource,
	used store.UsedUTXOStore) *Service {

	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}

	return &Service{
		config:  config,
		session: session,
		api:     api,
		feeRate: feeRate,
		used:    used,
		builder: txbuilder.NewTxBuilder(session.Network(), config.DustLimit),
	}
}

// AvailableUTXOs returns session wallet utxos not consumed by pending deposits.
func (s *Service) AvailableUTXOs(ctx context.Context) ([]bitcoin.UTXO, error) {
	owner, err := s.owner()
	if err != nil {
		return nil, err
	}

	return s.availableUTXOs(ctx, owner)
}

// Deposit builds deposit transaction, records its utxos as used, signs and broadcasts it.
func (s *Service) Deposit(ctx context.Context, params Params) (*Result, error) {
	owner, err := s.owner()
	if err != nil {
		return nil, err
	}

	utxos, err := s.availableUTXOs(ctx, owner)
	if err != nil {
		return nil, err
	}

	feeRate, err := s.feeRate.Get(ctx)
	if err != nil {
		return nil, errs.Classify(err, errs.NetworkError)
	}

	w := s.session.Wallet()
	if w == nil {
		return nil, errs.InvalidInput.Wrap(wallet.ErrSessionDestroyed)
	}

	psbtBytes, usedUTXOs, fee, err := s.builder.BuildDepositPSBT(txbuilder.DepositParams{
		UTXOs:               utxos,
		DestinationAddress:  params.DestinationAddress,
		Amount:              params.Amount,
		InternalXOnlyPubKey: w.XOnlyPubKey(),
		SatoshiPerVByte:     feeRate,
		DepositAll:          params.DepositAll,
	})
	if err != nil {
		return nil, errs.Classify(err, errs.InvalidInput)
	}

	txID, err := unsignedTxID(psbtBytes)
	if err != nil {
		return nil, errs.InvalidInput.Wrap(err)
	}

	if err = s.used.Add(ctx, owner, txID, dereference(usedUTXOs)); err != nil {
		return nil, err
	}

	logger := log.WithField("owner", owner).WithField("txid", txID)

	signedHex, err := s.session.SignPsbt(psbtBytes, true)
	if err != nil {
		if removeErr := s.used.Remove(ctx, owner, txID); removeErr != nil {
			logger.WithError(removeErr).Warn("could not release utxos of unsigned deposit")
		}

		return nil, err
	}

	broadcastTxID, err := s.api.Broadcast(ctx, signedHex)
	if err != nil {
		return nil, errs.Classify(err, errs.NetworkError)
	}
	if broadcastTxID != txID {
		logger.WithField("broadcast_txid", broadcastTxID).Warn("bitcoin api returned unexpected txid")
	}

	logger.WithField("fee", fee.String()).WithField("inputs", len(usedUTXOs)).Info("deposit broadcast")

	return &Result{TxID: txID, Fee: fee, UTXOs: usedUTXOs}, nil
}

// WaitForConfirmation blocks until deposit is confirmed, then releases its used utxos record.
func (s *Service) WaitForConfirmation(ctx context.Context, txID string) (explorer.TxStatus, error) {
	owner, err := s.owner()
	if err != nil {
		return explorer.TxStatus{}, err
	}

	status, err := s.api.WaitForConfirmation(ctx, txID, ticker.New(s.config.PollInterval))
	if err != nil {
		return explorer.TxStatus{}, err
	}

	if err = s.used.Remove(ctx, owner, txID); err != nil {
		log.WithError(err).WithField("txid", txID).Warn("could not release utxos of confirmed deposit")
	}

	return status, nil
}

func (s *Service) availableUTXOs(ctx context.Context, owner string) ([]bitcoin.UTXO, error) {
	utxos, err := s.api.GetUTXOs(ctx, owner)
	if err != nil {
		return nil, errs.Classify(err, errs.NetworkError)
	}

	return s.used.FilterAvailable(ctx, owner, utxos)
}

func (s *Service) owner() (string, error) {
	w := s.session.Wallet()
	if w == nil {
		return "", errs.InvalidInput.Wrap(wallet.ErrSessionDestroyed)
	}

	return w.P2TR.EncodeAddress(), nil
}

// unsignedTxID returns id of psbt transaction, equal to signed id since all inputs are segwit.
func unsignedTxID(psbtBytes []byte) (string, error) {
	packet, err := psbt.NewFromRawBytes(bytes.NewReader(psbtBytes), false)
	if err != nil {
		return "", err
	}
	if packet.UnsignedTx == nil {
		return "", errors.New("psbt has no transaction")
	}

	return packet.UnsignedTx.TxHash().String(), nil
}

func dereference(utxos []*bitcoin.UTXO) []bitcoin.UTXO {
	values := make([]bitcoin.UTXO, 0, len(utxos))
	for _, utxo := range utxos {
		values = append(values, *utxo)
	}

	return values
}
