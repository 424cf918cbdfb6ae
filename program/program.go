// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package program describes two-way peg solana program accounts and the client used to reach it.
// Instruction encoding is owned by the client implementation.
package program

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
)

// ErrGuardianNotFound defines that configuration has no guardian setting with requested address.
var ErrGuardianNotFound = errors.New("guardian setting not found")

// BucketStatus defines on-chain hot reserve bucket status.
type BucketStatus uint8

const (
	// BucketActivated defines bucket accepting deposits.
	BucketActivated BucketStatus = iota + 1
	// BucketDeactivated defines bucket disabled by the program.
	BucketDeactivated
)

// String implements fmt.Stringer.
func (s BucketStatus) String() string {
	switch s {
	case BucketActivated:
		return "activated"
	case BucketDeactivated:
		return "deactivated"
	default:
		return "unknown"
	}
}

// HotReserveBucket binds user bitcoin custody address to a guardian.
// At most one bucket exists per bitcoin key and guardian setting.
type HotReserveBucket struct {
	Address            solana.PublicKey
	Owner              solana.PublicKey
	BitcoinXOnlyPubkey []byte
	GuardianSetting    solana.PublicKey
	ReserveAddress     string // bitcoin custody address.
	UnlockBlockHeight  uint32
	Status             BucketStatus
	ExpiredAt          time.Time
}

// Position is user stored amount of pegged asset under one guardian.
type Position struct {
	Address         solana.PublicKey
	Owner           solana.PublicKey
	GuardianSetting solana.PublicKey
	StoredAmount    uint64
	FrozenAmount    uint64
}

// Available returns amount that may be withdrawn or retrieved, zero if frozen exceeds stored.
func (p Position) Available() uint64 {
	if p.FrozenAmount >= p.StoredAmount {
		return 0
	}

	return p.StoredAmount - p.FrozenAmount
}

// GuardianSetting identifies custodial signer, its asset mint and quota.
type GuardianSetting struct {
	Address             solana.PublicKey
	GuardianXOnlyPubkey []byte
	AssetMint           solana.PublicKey
	TotalPegged         uint64
	VaultBalance        uint64
	CosignerURL         string
}

// Quota returns amount of pegged asset the guardian can still accept from user wallets.
func (g GuardianSetting) Quota() uint64 {
	if g.VaultBalance >= g.TotalPegged {
		return 0
	}

	return g.TotalPegged - g.VaultBalance
}

// TwoWayPegConfiguration is the program wide configuration.
type TwoWayPegConfiguration struct {
	GuardianSettings      []GuardianSetting
	ActiveGuardianSetting solana.PublicKey
	BucketCreationFee     uint64 // lamports.
	BucketValidity        time.Duration
	UnlockBlockDelta      uint32
}

// Guardian returns guardian setting by its address.
func (c *TwoWayPegConfiguration) Guardian(address solana.PublicKey) (GuardianSetting, error) {
	for _, guardian := range c.GuardianSettings {
		if guardian.Address.Equals(address) {
			return guardian, nil
		}
	}

	return GuardianSetting{}, ErrGuardianNotFound
}

// CreateHotReserveBucketParams defines parameters for bucket creation instruction.
type CreateHotReserveBucketParams struct {
	Owner               solana.PublicKey
	GuardianSetting     solana.PublicKey
	UserXOnlyPubkey     []byte
	GuardianXOnlyPubkey []byte
	UnlockBlockHeight   uint32
	ReserveAddress      string
	CreationFee         uint64
}

// ReactivateHotReserveBucketParams defines parameters for bucket reactivation instruction.
type ReactivateHotReserveBucketParams struct {
	Owner           solana.PublicKey
	Bucket          solana.PublicKey
	GuardianSetting solana.PublicKey
}

// AddWithdrawalRequestParams defines parameters for withdrawal request instruction.
type AddWithdrawalRequestParams struct {
	Owner           solana.PublicKey
	GuardianSetting solana.PublicKey
	Amount          uint64
	BitcoinAddress  string
}

// StoreParams defines parameters for instruction moving asset from user wallet into vault position.
type StoreParams struct {
	Owner           solana.PublicKey
	GuardianSetting solana.PublicKey
	Amount          uint64
}

// RetrieveParams defines parameters for instruction moving asset from vault position into user wallet.
type RetrieveParams struct {
	Owner           solana.PublicKey
	GuardianSetting solana.PublicKey
	Position        solana.PublicKey
	Amount          uint64
}

// Client reads two-way peg program accounts and submits its instructions.
type Client interface {
	// GetHotReserveBucketsByBitcoinXOnlyPubkey returns every bucket bound to bitcoin key.
	GetHotReserveBucketsByBitcoinXOnlyPubkey(ctx context.Context, xOnlyPubkey []byte) ([]HotReserveBucket, error)
	// GetPositionsByWallet returns vault positions owned by solana wallet.
	GetPositionsByWallet(ctx context.Context, owner solana.PublicKey) ([]Position, error)
	// GetTwoWayPegConfiguration returns program configuration.
	GetTwoWayPegConfiguration(ctx context.Context) (*TwoWayPegConfiguration, error)

	ConstructCreateHotReserveBucketIx(ctx context.Context, params CreateHotReserveBucketParams) (solana.Instruction, error)
	ConstructReactivateHotReserveBucketIx(ctx context.Context, params ReactivateHotReserveBucketParams) (solana.Instruction, error)
	ConstructAddWithdrawalRequestIx(ctx context.Context, params AddWithdrawalRequestParams) (solana.Instruction, error)
	ConstructStoreIx(ctx context.Context, params StoreParams) (solana.Instruction, error)
	ConstructRetrieveIx(ctx context.Context, params RetrieveParams) (solana.Instruction, error)

	// SignAndSendTransactionWithInstructions submits single transaction, may block on user approval.
	SignAndSendTransactionWithInstructions(ctx context.Context, instructions []solana.Instruction) (solana.Signature, error)
}
