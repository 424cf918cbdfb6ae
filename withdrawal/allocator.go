// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package withdrawal

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/BoostyLabs/twowaypeg/errs"
	"github.com/BoostyLabs/twowaypeg/internal/sequencereader"
	"github.com/BoostyLabs/twowaypeg/program"
)

var (
	// ErrInvalidAmount defines that requested amount is zero.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInsufficientPositions defines that vault positions do not cover requested amount.
	ErrInsufficientPositions = errors.New("insufficient vault positions")
	// ErrInsufficientQuota defines that guardian quotas do not cover requested amount.
	ErrInsufficientQuota = errors.New("insufficient guardian quota")
)

// Allocation is an amount drawn from one vault position.
type Allocation struct {
	Position program.Position
	Amount   uint64
}

// GuardianAllocation is an amount routed to one guardian.
type GuardianAllocation struct {
	Guardian program.GuardianSetting
	Amount   uint64
}

// Allocate splits requested amount across positions, largest available first.
// Positions with equal availability keep their order. No partial plan is returned on shortfall.
func Allocate(requested uint64, positions []program.Position) ([]Allocation, error) {
	drawn, err := draw(requested, positions, program.Position.Available, ErrInsufficientPositions)
	if err != nil {
		return nil, err
	}

	allocations := make([]Allocation, 0, len(drawn))
	for _, d := range drawn {
		allocations = append(allocations, Allocation{Position: d.item, Amount: d.amount})
	}

	return allocations, nil
}

// AllocateGuardianQuotas splits requested amount across guardians by remaining quota, largest first.
func AllocateGuardianQuotas(requested uint64, guardians []program.GuardianSetting) ([]GuardianAllocation, error) {
	drawn, err := draw(requested, guardians, program.GuardianSetting.Quota, ErrInsufficientQuota)
	if err != nil {
		return nil, err
	}

	allocations := make([]GuardianAllocation, 0, len(drawn))
	for _, d := range drawn {
		allocations = append(allocations, GuardianAllocation{Guardian: d.item, Amount: d.amount})
	}

	return allocations, nil
}

type drawnAmount[T any] struct {
	item   T
	amount uint64
}

// draw greedily takes from items sorted by capacity descending until requested amount is covered.
func draw[T any](requested uint64, items []T, capacity func(T) uint64, shortfall error) ([]drawnAmount[T], error) {
	if requested == 0 {
		return nil, errs.InvalidInput.Wrap(ErrInvalidAmount)
	}

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return cmp.Compare(capacity(b), capacity(a))
	})

	var (
		drawn     []drawnAmount[T]
		remaining = requested
		reader    = sequencereader.New(sorted)
	)
	for remaining > 0 && reader.HasNext() {
		item, err := reader.Next()
		if err != nil {
			return nil, err
		}

		available := capacity(item)
		if available == 0 {
			break
		}

		amount := min(available, remaining)
		drawn = append(drawn, drawnAmount[T]{item: item, amount: amount})
		remaining -= amount
	}

	if remaining > 0 {
		return nil, errs.InsufficientFunds.Wrap(fmt.Errorf("%w: need %d, have %d", shortfall, requested, requested-remaining))
	}

	return drawn, nil
}
