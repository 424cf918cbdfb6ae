// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/twowaypeg/errs"
)

func TestErrs(t *testing.T) {
	cause := errors.New("connection refused")

	t.Run("Wrap", func(t *testing.T) {
		err := errs.NetworkError.Wrap(cause)
		require.ErrorIs(t, err, cause)
		require.Equal(t, errs.NetworkError, errs.CodeOf(err))
		require.True(t, errs.NetworkError.Is(err))
		require.False(t, errs.ProtocolError.Is(err))
		require.Equal(t, "NETWORK_ERROR (3): connection refused", err.Error())
	})

	t.Run("New", func(t *testing.T) {
		err := errs.ProtocolError.New("guardian %s mismatch", "abc")
		require.Equal(t, "PROTOCOL_ERROR (4): guardian abc mismatch", err.Error())
		require.Equal(t, errs.ProtocolError, errs.CodeOf(fmt.Errorf("create: %w", err)))
	})

	t.Run("CodeOf", func(t *testing.T) {
		require.Equal(t, errs.Unknown, errs.CodeOf(cause))
		require.Equal(t, errs.UserRejected, errs.CodeOf(fmt.Errorf("sign: %w", errs.ErrUserRejected)))
		require.False(t, errs.Unknown.Is(nil))
	})

	t.Run("Log", func(t *testing.T) {
		entry := errs.InsufficientFunds.Wrap(cause).Log()
		require.Equal(t, "INSUFFICIENT_FUNDS", entry.Data["name"])
		require.EqualValues(t, 5, entry.Data["code"])
	})

	t.Run("Classify", func(t *testing.T) {
		require.NoError(t, errs.Classify(nil, errs.NetworkError))

		classified := errs.ProtocolError.Wrap(cause)
		require.Same(t, classified, errs.Classify(classified, errs.NetworkError))
		require.Equal(t, errs.UserRejected, errs.CodeOf(errs.Classify(errs.ErrUserRejected, errs.NetworkError)))

		err := errs.Classify(cause, errs.NetworkError)
		require.Equal(t, errs.NetworkError, errs.CodeOf(err))
		require.ErrorIs(t, err, cause)
	})
}
