// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"errors"
)

var (
	// ErrInvalidAmount defines that transferring amount is not positive.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidFeeRate defines that fee rate is not positive.
	ErrInvalidFeeRate = errors.New("invalid fee rate")
	// ErrUnsupportedNetwork defines that network name is unknown.
	ErrUnsupportedNetwork = errors.New("unsupported network")
)
