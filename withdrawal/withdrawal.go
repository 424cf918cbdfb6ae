// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package withdrawal routes withdrawals of pegged asset across vault positions and guardians.
package withdrawal

import (
	"context"
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"

	"github.com/BoostyLabs/twowaypeg/errs"
	"github.com/BoostyLabs/twowaypeg/program"
)

// ErrInvalidAddress defines bitcoin address not valid for the network.
var ErrInvalidAddress = errors.New("invalid bitcoin address")

// Source defines where withdrawn asset is taken from.
type Source int

const (
	// SourceVault withdraws from vault positions.
	SourceVault Source = iota
	// SourceWallet stores asset from user wallet first, then withdraws it.
	SourceWallet
)

// String implements fmt.Stringer.
func (s Source) String() string {
	switch s {
	case SourceVault:
		return "vault"
	case SourceWallet:
		return "wallet"
	default:
		return "unknown"
	}
}

// WithdrawParams defines withdrawal request.
type WithdrawParams struct {
	Amount         uint64
	BitcoinAddress string
	Source         Source
}

// Service plans withdrawal and retrieval instructions for one solana wallet
// and submits each plan as a single transaction.
type Service struct {
	client        program.Client
	owner         solana.PublicKey
	network       *chaincfg.Params
	configuration program.ConfigurationSource
}

// NewService is a constructor for Service.
func NewService(client program.Client, owner solana.PublicKey, network *chaincfg.Params,
	configuration program.ConfigurationSource) *Service {
	return &Service{
		client:        client,
		owner:         owner,
		network:       network,
		configuration: configuration,
	}
}

// Withdraw requests bitcoin payout of params.Amount to params.BitcoinAddress.
func (s *Service) Withdraw(ctx context.Context, params WithdrawParams) (solana.Signature, error) {
	if err := s.validateAddress(params.BitcoinAddress); err != nil {
		return solana.Signature{}, err
	}

	var (
		instructions []solana.Instruction
		err          error
	)
	switch params.Source {
	case SourceVault:
		instructions, err = s.vaultWithdrawal(ctx, params)
	case SourceWallet:
		instructions, err = s.walletWithdrawal(ctx, params)
	default:
		return solana.Signature{}, errs.InvalidInput.New("unknown withdrawal source %d", params.Source)
	}
	if err != nil {
		return solana.Signature{}, err
	}

	signature, err := s.send(ctx, instructions)
	if err != nil {
		return solana.Signature{}, err
	}

	log.WithField("source", params.Source.String()).
		WithField("amount", params.Amount).
		WithField("instructions", len(instructions)).
		WithField("signature", signature.String()).
		Info("withdrawal requested")

	return signature, nil
}

// Retrieve moves amount from vault positions back into user wallet.
func (s *Service) Retrieve(ctx context.Context, amount uint64) (solana.Signature, error) {
	allocations, err := s.allocatePositions(ctx, amount)
	if err != nil {
		return solana.Signature{}, err
	}

	instructions := make([]solana.Instruction, 0, len(allocations))
	for _, allocation := range allocations {
		instruction, err := s.client.ConstructRetrieveIx(ctx, program.RetrieveParams{
			Owner:           s.owner,
			GuardianSetting: allocation.Position.GuardianSetting,
			Position:        allocation.Position.Address,
			Amount:          allocation.Amount,
		})
		if err != nil {
			return solana.Signature{}, errs.Classify(err, errs.NetworkError)
		}

		instructions = append(instructions, instruction)
	}

	signature, err := s.send(ctx, instructions)
	if err != nil {
		return solana.Signature{}, err
	}

	log.WithField("amount", amount).WithField("signature", signature.String()).Info("vault retrieval submitted")

	return signature, nil
}

// vaultWithdrawal requests withdrawal from each allocated position.
func (s *Service) vaultWithdrawal(ctx context.Context, params WithdrawParams) ([]solana.Instruction, error) {
	allocations, err := s.allocatePositions(ctx, params.Amount)
	if err != nil {
		return nil, err
	}

	instructions := make([]solana.Instruction, 0, len(allocations))
	for _, allocation := range allocations {
		instruction, err := s.withdrawalRequest(ctx, allocation.Position.GuardianSetting, allocation.Amount, params.BitcoinAddress)
		if err != nil {
			return nil, err
		}

		instructions = append(instructions, instruction)
	}

	return instructions, nil
}

// walletWithdrawal stores asset under each allocated guardian and requests its withdrawal.
func (s *Service) walletWithdrawal(ctx context.Context, params WithdrawParams) ([]solana.Instruction, error) {
	configuration, err := s.configuration.Get(ctx)
	if err != nil {
		return nil, errs.Classify(err, errs.NetworkError)
	}

	allocations, err := AllocateGuardianQuotas(params.Amount, configuration.GuardianSettings)
	if err != nil {
		return nil, err
	}

	instructions := make([]solana.Instruction, 0, 2*len(allocations))
	for _, allocation := range allocations {
		store, err := s.client.ConstructStoreIx(ctx, program.StoreParams{
			Owner:           s.owner,
			GuardianSetting: allocation.Guardian.Address,
			Amount:          allocation.Amount,
		})
		if err != nil {
			return nil, errs.Classify(err, errs.NetworkError)
		}

		request, err := s.withdrawalRequest(ctx, allocation.Guardian.Address, allocation.Amount, params.BitcoinAddress)
		if err != nil {
			return nil, err
		}

		instructions = append(instructions, store, request)
	}

	return instructions, nil
}

func (s *Service) withdrawalRequest(ctx context.Context, guardian solana.PublicKey, amount uint64,
	address string) (solana.Instruction, error) {

	instruction, err := s.client.ConstructAddWithdrawalRequestIx(ctx, program.AddWithdrawalRequestParams{
		Owner:           s.owner,
		GuardianSetting: guardian,
		Amount:          amount,
		BitcoinAddress:  address,
	})
	if err != nil {
		return nil, errs.Classify(err, errs.NetworkError)
	}

	return instruction, nil
}

func (s *Service) allocatePositions(ctx context.Context, amount uint64) ([]Allocation, error) {
	if amount == 0 {
		return nil, errs.InvalidInput.Wrap(ErrInvalidAmount)
	}

	positions, err := s.client.GetPositionsByWallet(ctx, s.owner)
	if err != nil {
		return nil, errs.Classify(err, errs.NetworkError)
	}

	return Allocate(amount, positions)
}

func (s *Service) send(ctx context.Context, instructions []solana.Instruction) (solana.Signature, error) {
	signature, err := s.client.SignAndSendTransactionWithInstructions(ctx, instructions)
	if err != nil {
		return solana.Signature{}, errs.Classify(err, errs.NetworkError)
	}

	return signature, nil
}

func (s *Service) validateAddress(address string) error {
	decoded, err := btcutil.DecodeAddress(address, s.network)
	if err != nil {
		return errs.InvalidInput.Wrap(errors.Join(ErrInvalidAddress, err))
	}
	if !decoded.IsForNet(s.network) {
		return errs.InvalidInput.Wrap(ErrInvalidAddress)
	}

	return nil
}
