// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package wallet

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"

	"github.com/BoostyLabs/twowaypeg/bitcoin/signer"
	"github.com/BoostyLabs/twowaypeg/bitcoin/txbuilder"
	"github.com/BoostyLabs/twowaypeg/errs"
)

var (
	// ErrSessionDestroyed defines that session key material was already cleared.
	ErrSessionDestroyed = errors.New("wallet session destroyed")
	// ErrNothingToSign defines that psbt has no inputs owned by the session wallet.
	ErrNothingToSign = errors.New("no inputs owned by wallet")
)

// Session owns derived bitcoin wallet for one connected solana wallet.
// Replaces any process wide wallet holder, pass it explicitly to dependents.
type Session struct {
	mu           sync.RWMutex
	solanaPubkey solana.PublicKey
	network      *chaincfg.Params
	wallet       *DerivedBitcoinWallet
	psbtSigner   *signer.PSBTSigner
}

// NewSession derives wallet and opens session for it.
func NewSession(ctx context.Context, solanaPubkey solana.PublicKey, network *chaincfg.Params,
	signMessage MessageSigner) (*Session, error) {
	wallet, err := Derive(ctx, solanaPubkey, network, signMessage)
	if err != nil {
		return nil, err
	}

	log.WithField("solana", solanaPubkey.String()).
		WithField("p2tr", wallet.P2TR.EncodeAddress()).
		Debug("wallet session opened")

	return &Session{
		solanaPubkey: solanaPubkey,
		network:      network,
		wallet:       wallet,
		psbtSigner:   signer.NewPSBTSigner(network),
	}, nil
}

// Wallet returns derived wallet, nil after Destroy.
func (s *Session) Wallet() *DerivedBitcoinWallet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wallet
}

// SolanaPubkey returns solana wallet public key the session is bound to.
func (s *Session) SolanaPubkey() solana.PublicKey {
	return s.solanaPubkey
}

// Network returns bitcoin network parameters of the session.
func (s *Session) Network() *chaincfg.Params {
	return s.network
}

// SignPsbt signs inputs owned by the wallet, finalizes them and returns hex encoded signed transaction.
// tweaked selects taproot key path signing with the tweaked key, otherwise leaf scripts committing
// to the internal key are signed via script path.
func (s *Session) SignPsbt(psbtBytes []byte, tweaked bool) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.wallet == nil {
		return "", errs.InvalidInput.Wrap(ErrSessionDestroyed)
	}

	packet, err := psbt.NewFromRawBytes(bytes.NewReader(psbtBytes), false)
	if err != nil {
		return "", errs.InvalidInput.Wrap(err)
	}

	xOnlyPubKey := s.wallet.XOnlyPubKey()
	if tweaked {
		inputs := txbuilder.InputsToSignPacket(packet, xOnlyPubKey)
		if len(inputs) == 0 {
			return "", errs.InvalidInput.Wrap(ErrNothingToSign)
		}

		err = s.psbtSigner.SignTaprootPacket(packet, inputs, s.wallet.TweakedSigner)
	} else {
		inputs := txbuilder.LeafInputsToSignPacket(packet, xOnlyPubKey)
		if len(inputs) == 0 {
			return "", errs.InvalidInput.Wrap(ErrNothingToSign)
		}

		err = s.psbtSigner.SignTaprootScriptPathPacket(packet, inputs, s.wallet.Signer)
	}
	if err != nil {
		return "", errs.InvalidInput.Wrap(err)
	}

	tx, err := signer.FinalizeAndExtract(packet)
	if err != nil {
		return "", errs.InvalidInput.Wrap(err)
	}

	var buf bytes.Buffer
	if err = tx.Serialize(&buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf.Bytes()), nil
}

// Destroy clears key material, session can not sign afterwards.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wallet == nil {
		return
	}

	s.wallet.zero()
	s.wallet = nil

	log.WithField("solana", s.solanaPubkey.String()).Debug("wallet session destroyed")
}
