// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package program

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of the Client interface for testing.
type MockClient struct {
	mock.Mock
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) GetHotReserveBucketsByBitcoinXOnlyPubkey(ctx context.Context,
	xOnlyPubkey []byte) ([]HotReserveBucket, error) {

	args := m.Called(ctx, xOnlyPubkey)
	return args.Get(0).([]HotReserveBucket), args.Error(1)
}

func (m *MockClient) GetPositionsByWallet(ctx context.Context,
	owner solana.PublicKey) ([]Position, error) {

	args := m.Called(ctx, owner)
	return args.Get(0).([]Position), args.Error(1)
}

func (m *MockClient) GetTwoWayPegConfiguration(
	ctx context.Context) (*TwoWayPegConfiguration, error) {

	args := m.Called(ctx)
	return args.Get(0).(*TwoWayPegConfiguration), args.Error(1)
}

func (m *MockClient) ConstructCreateHotReserveBucketIx(ctx context.Context,
	params CreateHotReserveBucketParams) (solana.Instruction, error) {

	args := m.Called(ctx, params)
	return instruction(args.Get(0)), args.Error(1)
}

func (m *MockClient) ConstructReactivateHotReserveBucketIx(ctx context.Context,
	params ReactivateHotReserveBucketParams) (solana.Instruction, error) {

	args := m.Called(ctx, params)
	return instruction(args.Get(0)), args.Error(1)
}

func (m *MockClient) ConstructAddWithdrawalRequestIx(ctx context.Context,
	params AddWithdrawalRequestParams) (solana.Instruction, error) {

	args := m.Called(ctx, params)
	return instruction(args.Get(0)), args.Error(1)
}

func (m *MockClient) ConstructStoreIx(ctx context.Context,
	params StoreParams) (solana.Instruction, error) {

	args := m.Called(ctx, params)
	return instruction(args.Get(0)), args.Error(1)
}

func (m *MockClient) ConstructRetrieveIx(ctx context.Context,
	params RetrieveParams) (solana.Instruction, error) {

	args := m.Called(ctx, params)
	return instruction(args.Get(0)), args.Error(1)
}

func (m *MockClient) SignAndSendTransactionWithInstructions(ctx context.Context,
	instructions []solana.Instruction) (solana.Signature, error) {

	args := m.Called(ctx, instructions)
	return args.Get(0).(solana.Signature), args.Error(1)
}

// instruction converts mocked value allowing nil.
func instruction(v any) solana.Instruction {
	if v == nil {
		return nil
	}

	return v.(solana.Instruction)
}
