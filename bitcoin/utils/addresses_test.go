// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package utils_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/twowaypeg/bitcoin/utils"
)

func xOnlyKey(seed string) (*btcec.PublicKey, []byte) {
	secret := sha256.Sum256([]byte(seed))
	_, pubKey := btcec.PrivKeyFromBytes(secret[:])

	return pubKey, schnorr.SerializePubKey(pubKey)
}

func TestReclaimLeafTapScript(t *testing.T) {
	_, user := xOnlyKey("user")

	script, err := utils.NewReclaimLeafTapScript(100, user)
	require.NoError(t, err)

	disasm, err := txscript.DisasmString(script)
	require.NoError(t, err)
	require.Equal(t, "64 OP_CHECKLOCKTIMEVERIFY OP_DROP "+hex.EncodeToString(user)+" OP_CHECKSIG", disasm)

	errTests := []struct {
		name   string
		height uint32
		key    []byte
		err    error
	}{
		{"zero height", 0, user, utils.ErrInvalidUnlockHeight},
		{"timestamp height", 500_000_000, user, utils.ErrInvalidUnlockHeight},
		{"short key", 100, user[:31], utils.ErrInvalidXOnlyKey},
	}
	for _, test := range errTests {
		t.Run(test.name, func(t *testing.T) {
			_, err := utils.NewReclaimLeafTapScript(test.height, test.key)
			require.ErrorIs(t, err, test.err)
		})
	}
}

func TestNewCustodyAddress(t *testing.T) {
	var (
		guardianKey, guardian = xOnlyKey("guardian")
		_, user               = xOnlyKey("user")
		_, otherUser          = xOnlyKey("other user")
		params                = &chaincfg.TestNet3Params
	)

	custody, err := utils.NewCustodyAddress(params, guardian, user, 2_600_000)
	require.NoError(t, err)
	require.True(t, custody.Address.IsForNet(params))
	require.Equal(t, guardian, schnorr.SerializePubKey(custody.InternalKey))

	t.Run("matches manual construction", func(t *testing.T) {
		leaf, err := utils.NewReclaimLeafTapScript(2_600_000, user)
		require.NoError(t, err)
		require.Equal(t, leaf, custody.ReclaimLeaf)

		root := txscript.NewBaseTapLeaf(leaf).TapHash()
		outputKey := txscript.ComputeTaprootOutputKey(guardianKey, root[:])
		require.Equal(t, schnorr.SerializePubKey(outputKey), custody.Address.WitnessProgram())
	})

	t.Run("deterministic and bound to inputs", func(t *testing.T) {
		again, err := utils.NewCustodyAddress(params, guardian, user, 2_600_000)
		require.NoError(t, err)
		require.Equal(t, custody.Address.EncodeAddress(), again.Address.EncodeAddress())

		otherHeight, err := utils.NewCustodyAddress(params, guardian, user, 2_600_001)
		require.NoError(t, err)
		require.NotEqual(t, custody.Address.EncodeAddress(), otherHeight.Address.EncodeAddress())

		otherOwner, err := utils.NewCustodyAddress(params, guardian, otherUser, 2_600_000)
		require.NoError(t, err)
		require.NotEqual(t, custody.Address.EncodeAddress(), otherOwner.Address.EncodeAddress())
	})

	t.Run("reclaim leaf commitment", func(t *testing.T) {
		input := psbt.PInput{
			TaprootInternalKey: guardian,
			WitnessScript:      custody.ReclaimLeaf,
		}
		require.NoError(t, utils.UpdatePSBTInputWithTapScriptLeafData(&input, custody.Tree))
		require.Len(t, input.TaprootLeafScript, 1)

		ctrlBlock, err := txscript.ParseControlBlock(input.TaprootLeafScript[0].ControlBlock)
		require.NoError(t, err)
		require.NoError(t, txscript.VerifyTaprootLeafCommitment(ctrlBlock, custody.Address.WitnessProgram(),
			custody.ReclaimLeaf))
	})

	t.Run("invalid guardian key", func(t *testing.T) {
		_, err := utils.NewCustodyAddress(params, guardian[:10], user, 2_600_000)
		require.ErrorIs(t, err, utils.ErrInvalidXOnlyKey)
	})

	t.Run("missing psbt data", func(t *testing.T) {
		require.Error(t, utils.UpdatePSBTInputWithTapScriptLeafData(&psbt.PInput{}, custody.Tree))
	})
}
