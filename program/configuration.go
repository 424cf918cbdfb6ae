// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package program

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/clock"

	"github.com/BoostyLabs/twowaypeg/internal/staleness"
)

// ConfigurationSource provides two-way peg configuration not older than its bound.
type ConfigurationSource interface {
	Get(ctx context.Context) (*TwoWayPegConfiguration, error)
}

// NewConfigurationCache returns configuration source refetching from client once value is older than maxAge.
func NewConfigurationCache(client Client, maxAge time.Duration, clk clock.Clock) *staleness.Cache[*TwoWayPegConfiguration] {
	return staleness.New[*TwoWayPegConfiguration]("two-way-peg-configuration", client.GetTwoWayPegConfiguration, maxAge, clk)
}
