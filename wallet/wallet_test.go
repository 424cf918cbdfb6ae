// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package wallet_test

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/twowaypeg/bitcoin/txbuilder"
	"github.com/BoostyLabs/twowaypeg/errs"
	"github.com/BoostyLabs/twowaypeg/wallet"
)

// solanaKey returns deterministic solana key pair.
func solanaKey(seed string) solana.PrivateKey {
	s := sha256.Sum256([]byte(seed))

	return solana.PrivateKey(ed25519.NewKeyFromSeed(s[:]))
}

// keySigner signs messages with solana key like a connected wallet does.
func keySigner(key solana.PrivateKey) wallet.MessageSigner {
	return func(_ context.Context, message []byte) ([]byte, error) {
		sig, err := key.Sign(message)
		if err != nil {
			return nil, err
		}

		return sig[:], nil
	}
}

func TestAuthorizationMessage(t *testing.T) {
	key := solanaKey("user")

	message := string(wallet.AuthorizationMessage(key.PublicKey()))
	require.True(t, strings.HasSuffix(message, key.PublicKey().String()))
	require.NotEqual(t, message, string(wallet.AuthorizationMessage(solanaKey("other").PublicKey())))
}

func TestDerive(t *testing.T) {
	var (
		ctx    = context.Background()
		key    = solanaKey("user")
		params = &chaincfg.MainNetParams
	)

	first, err := wallet.Derive(ctx, key.PublicKey(), params, keySigner(key))
	require.NoError(t, err)

	t.Run("deterministic", func(t *testing.T) {
		second, err := wallet.Derive(ctx, key.PublicKey(), params, keySigner(key))
		require.NoError(t, err)

		require.Equal(t, first.PrivateKey.Serialize(), second.PrivateKey.Serialize())
		require.Equal(t, first.P2PKH.EncodeAddress(), second.P2PKH.EncodeAddress())
		require.Equal(t, first.P2WPKH.EncodeAddress(), second.P2WPKH.EncodeAddress())
		require.Equal(t, first.P2TR.EncodeAddress(), second.P2TR.EncodeAddress())
		require.Equal(t, first.TweakedSigner.PrivateKey().Serialize(), second.TweakedSigner.PrivateKey().Serialize())
	})

	t.Run("different solana wallets", func(t *testing.T) {
		other := solanaKey("other")

		derived, err := wallet.Derive(ctx, other.PublicKey(), params, keySigner(other))
		require.NoError(t, err)
		require.NotEqual(t, first.P2TR.EncodeAddress(), derived.P2TR.EncodeAddress())
	})

	t.Run("addresses", func(t *testing.T) {
		require.True(t, strings.HasPrefix(first.P2PKH.EncodeAddress(), "1"))
		require.True(t, strings.HasPrefix(first.P2WPKH.EncodeAddress(), "bc1q"))
		require.True(t, strings.HasPrefix(first.P2TR.EncodeAddress(), "bc1p"))

		keyPath, err := txbuilder.TaprootKeyPathAddress(first.XOnlyPubKey(), params)
		require.NoError(t, err)
		require.Equal(t, keyPath.EncodeAddress(), first.P2TR.EncodeAddress())
		require.Equal(t, first.P2TR.WitnessProgram(), schnorr.SerializePubKey(first.TweakedSigner.PublicKey()))
		require.True(t, first.PublicKey.IsEqual(first.Signer.PublicKey()))
	})

	t.Run("seed is signature hash", func(t *testing.T) {
		sig, err := key.Sign(wallet.AuthorizationMessage(key.PublicKey()))
		require.NoError(t, err)

		seed := sha256.Sum256(sig[:])
		require.Equal(t, seed[:], first.PrivateKey.Serialize())

		fromSig, err := wallet.FromSignature(sig[:], params)
		require.NoError(t, err)
		require.Equal(t, first.P2TR.EncodeAddress(), fromSig.P2TR.EncodeAddress())
	})
}

func TestDeriveErrors(t *testing.T) {
	var (
		key    = solanaKey("user")
		params = &chaincfg.TestNet3Params
	)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name   string
		ctx    context.Context
		pubkey solana.PublicKey
		sign   wallet.MessageSigner
		err    error
		code   errs.Code
	}{
		{"no public key", context.Background(), solana.PublicKey{}, keySigner(key), wallet.ErrNoPublicKey, errs.InvalidInput},
		{"no sign capability", context.Background(), key.PublicKey(), nil, wallet.ErrNoSignCapability, errs.InvalidInput},
		{
			"user rejected",
			context.Background(),
			key.PublicKey(),
			func(context.Context, []byte) ([]byte, error) { return nil, errs.ErrUserRejected },
			wallet.ErrSignatureFailed,
			errs.UserRejected,
		},
		{
			"canceled",
			canceled,
			key.PublicKey(),
			func(ctx context.Context, _ []byte) ([]byte, error) { return nil, ctx.Err() },
			wallet.ErrSignatureFailed,
			errs.UserRejected,
		},
		{
			"wallet failure",
			context.Background(),
			key.PublicKey(),
			func(context.Context, []byte) ([]byte, error) { return nil, errors.New("connection reset") },
			wallet.ErrSignatureFailed,
			errs.NetworkError,
		},
		{
			"empty signature",
			context.Background(),
			key.PublicKey(),
			func(context.Context, []byte) ([]byte, error) { return nil, nil },
			wallet.ErrSignatureFailed,
			errs.NetworkError,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			derived, err := wallet.Derive(test.ctx, test.pubkey, params, test.sign)
			require.Nil(t, derived)
			require.ErrorIs(t, err, test.err)
			require.Equal(t, test.code, errs.CodeOf(err))
		})
	}
}
