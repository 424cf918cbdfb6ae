// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"fmt"
	"math/big"

	"github.com/BoostyLabs/twowaypeg/errs"
)

type balanceErrorType string

// InsufficientErrorTypeBitcoin defines insufficient bitcoin balance error type.
const InsufficientErrorTypeBitcoin balanceErrorType = "bitcoin"

// ErrInsufficientUTXO defines that available utxos do not cover amount with fee.
var ErrInsufficientUTXO = NewInsufficientError(InsufficientErrorTypeBitcoin, nil, nil)

// InsufficientError is the error type to describe insufficient balance errors with details.
type InsufficientError struct {
	Type balanceErrorType
	Need *big.Int
	Have *big.Int
}

// NewInsufficientError is a constructor for InsufficientError.
func NewInsufficientError(type_ balanceErrorType, need, have *big.Int) *InsufficientError {
	return &InsufficientError{type_, need, have}
}

// Error returns error description.
func (e *InsufficientError) Error() string {
	var errMsg = fmt.Sprintf("insufficient %s balance", e.Type)

	if e.Have != nil && e.Need != nil {
		errMsg += fmt.Sprintf(": Need - %s, Have - %s", e.Need, e.Have)
	}

	return errMsg
}

// Is implements comparator method for [errors] package, matches by balance type only.
func (e *InsufficientError) Is(target error) bool {
	t, ok := target.(*InsufficientError)
	if !ok {
		return false
	}

	return e.Type == t.Type
}

// ErrorCode classifies error for callers.
func (e *InsufficientError) ErrorCode() errs.Code {
	return errs.InsufficientFunds
}

// clarify returns formed error with Need and Have values set.
func (e *InsufficientError) clarify(need, have *big.Int) *InsufficientError {
	return &InsufficientError{e.Type, need, have}
}
