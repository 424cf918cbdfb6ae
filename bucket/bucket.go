// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package bucket manages hot reserve buckets binding user bitcoin custody addresses to guardians.
package bucket

import (
	"bytes"
	"context"
	"errors"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gagliardetto/solana-go"
	"github.com/lightningnetwork/lnd/clock"
	log "github.com/sirupsen/logrus"

	"github.com/BoostyLabs/twowaypeg/bitcoin/utils"
	"github.com/BoostyLabs/twowaypeg/errs"
	"github.com/BoostyLabs/twowaypeg/program"
)

var (
	// ErrWrongGuardian defines that user buckets exist, but none of them uses requested guardian.
	ErrWrongGuardian = errors.New("hot reserve bucket bound to another guardian")
	// ErrWrongOwner defines that bucket belongs to another solana wallet.
	ErrWrongOwner = errors.New("hot reserve bucket owned by another wallet")
	// ErrAlreadyActivated defines that bucket is activated and not expired.
	ErrAlreadyActivated = errors.New("hot reserve bucket already activated")
	// ErrBucketExists defines that bucket for the key and guardian is already created.
	ErrBucketExists = errors.New("hot reserve bucket already exists")
	// ErrInvalidBucket defines that bucket can not be used with requested operation.
	ErrInvalidBucket = errors.New("invalid hot reserve bucket")
)

// Status is a bucket state observed by the session wallet.
type Status int

const (
	// StatusNotFound defines that no bucket exists for the key.
	StatusNotFound Status = iota
	// StatusWrongOwner defines that bucket belongs to another solana wallet.
	StatusWrongOwner
	// StatusDeactivated defines bucket disabled by the program.
	StatusDeactivated
	// StatusExpired defines activated bucket past its expiry.
	StatusExpired
	// StatusActivated defines bucket accepting deposits.
	StatusActivated
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusNotFound:
		return "not_found"
	case StatusWrongOwner:
		return "wrong_owner"
	case StatusDeactivated:
		return "deactivated"
	case StatusExpired:
		return "expired"
	case StatusActivated:
		return "activated"
	default:
		return "unknown"
	}
}

// CreateParams defines parameters of bucket creation.
type CreateParams struct {
	UserXOnly         []byte
	GuardianXOnly     []byte
	UnlockBlockHeight uint32
	GuardianSetting   solana.PublicKey
}

// Option configures Service.
type Option func(*Service)

// WithClock sets clock used for expiry checks.
func WithClock(clk clock.Clock) Option {
	return func(s *Service) {
		s.clock = clk
	}
}

// WithCosigner sets cosigner used to register created addresses.
func WithCosigner(cosigner *Cosigner) Option {
	return func(s *Service) {
		s.cosigner = cosigner
	}
}

// Service manages hot reserve buckets of one solana wallet.
type Service struct {
	client        program.Client
	owner         solana.PublicKey
	network       *chaincfg.Params
	configuration program.ConfigurationSource
	clock         clock.Clock
	cosigner      *Cosigner
}

// NewService is a constructor for Service.
func NewService(client program.Client, owner solana.PublicKey, network *chaincfg.Params,
	configuration program.ConfigurationSource, opts ...Option) *Service {

	s := &Service{
		client:        client,
		owner:         owner,
		network:       network,
		configuration: configuration,
		clock:         clock.NewDefaultClock(),
		cosigner:      NewCosigner(nil),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CheckStatus returns status of user bucket bound to guardianSetting.
func (s *Service) CheckStatus(ctx context.Context, userXOnly []byte,
	guardianSetting solana.PublicKey) (Status, *program.HotReserveBucket, error) {

	buckets, err := s.client.GetHotReserveBucketsByBitcoinXOnlyPubkey(ctx, userXOnly)
	if err != nil {
		return StatusNotFound, nil, errs.Classify(err, errs.NetworkError)
	}
	if len(buckets) == 0 {
		return StatusNotFound, nil, nil
	}

	var bucket *program.HotReserveBucket
	for i := range buckets {
		if buckets[i].GuardianSetting.Equals(guardianSetting) {
			bucket = &buckets[i]
			break
		}
	}
	if bucket == nil {
		return StatusNotFound, nil, errs.ProtocolError.Wrap(ErrWrongGuardian)
	}

	switch {
	case !bucket.Owner.Equals(s.owner):
		return StatusWrongOwner, bucket, nil
	case bucket.Status == program.BucketDeactivated:
		return StatusDeactivated, bucket, nil
	case s.clock.Now().After(bucket.ExpiredAt):
		return StatusExpired, bucket, nil
	default:
		return StatusActivated, bucket, nil
	}
}

// Create submits bucket creation transaction for custody address derived from guardian and user keys.
// Cosigner registration failure is logged and does not fail the call.
func (s *Service) Create(ctx context.Context, params CreateParams) (solana.Signature, error) {
	configuration, err := s.configuration.Get(ctx)
	if err != nil {
		return solana.Signature{}, errs.Classify(err, errs.NetworkError)
	}

	guardian, err := configuration.Guardian(params.GuardianSetting)
	if err != nil {
		return solana.Signature{}, errs.ProtocolError.Wrap(err)
	}
	if !bytes.Equal(guardian.GuardianXOnlyPubkey, params.GuardianXOnly) {
		return solana.Signature{}, errs.ProtocolError.Wrap(ErrWrongGuardian)
	}

	status, _, err := s.CheckStatus(ctx, params.UserXOnly, params.GuardianSetting)
	if err != nil && !errors.Is(err, ErrWrongGuardian) {
		return solana.Signature{}, err
	}
	if status != StatusNotFound {
		return solana.Signature{}, errs.InvalidInput.Wrap(ErrBucketExists)
	}

	custody, err := utils.NewCustodyAddress(s.network, params.GuardianXOnly, params.UserXOnly, params.UnlockBlockHeight)
	if err != nil {
		return solana.Signature{}, errs.InvalidInput.Wrap(err)
	}
	reserveAddress := custody.Address.EncodeAddress()

	instruction, err := s.client.ConstructCreateHotReserveBucketIx(ctx, program.CreateHotReserveBucketParams{
		Owner:               s.owner,
		GuardianSetting:     params.GuardianSetting,
		UserXOnlyPubkey:     params.UserXOnly,
		GuardianXOnlyPubkey: params.GuardianXOnly,
		UnlockBlockHeight:   params.UnlockBlockHeight,
		ReserveAddress:      reserveAddress,
		CreationFee:         configuration.BucketCreationFee,
	})
	if err != nil {
		return solana.Signature{}, errs.Classify(err, errs.NetworkError)
	}

	signature, err := s.client.SignAndSendTransactionWithInstructions(ctx, []solana.Instruction{instruction})
	if err != nil {
		return solana.Signature{}, errs.Classify(err, errs.NetworkError)
	}

	logger := log.WithField("reserve_address", reserveAddress).WithField("signature", signature.String())
	logger.Info("hot reserve bucket created")

	if guardian.CosignerURL != "" && s.cosigner != nil {
		err = s.cosigner.Register(ctx, guardian.CosignerURL, Registration{
			Address:         reserveAddress,
			UserXOnlyPubkey: params.UserXOnly,
			GuardianSetting: params.GuardianSetting,
		})
		if err != nil {
			logger.WithError(err).Warn("could not register hot reserve address with cosigner")
		}
	}

	return signature, nil
}

// Reactivate submits reactivation of deactivated or expired bucket owned by the session wallet.
func (s *Service) Reactivate(ctx context.Context, bucket *program.HotReserveBucket) (solana.Signature, error) {
	if bucket == nil {
		return solana.Signature{}, errs.InvalidInput.Wrap(ErrInvalidBucket)
	}
	if !bucket.Owner.Equals(s.owner) {
		return solana.Signature{}, errs.ProtocolError.Wrap(ErrWrongOwner)
	}
	if bucket.Status == program.BucketActivated && !s.clock.Now().After(bucket.ExpiredAt) {
		return solana.Signature{}, errs.InvalidInput.Wrap(ErrAlreadyActivated)
	}

	instruction, err := s.client.ConstructReactivateHotReserveBucketIx(ctx, program.ReactivateHotReserveBucketParams{
		Owner:           s.owner,
		Bucket:          bucket.Address,
		GuardianSetting: bucket.GuardianSetting,
	})
	if err != nil {
		return solana.Signature{}, errs.Classify(err, errs.NetworkError)
	}

	signature, err := s.client.SignAndSendTransactionWithInstructions(ctx, []solana.Instruction{instruction})
	if err != nil {
		return solana.Signature{}, errs.Classify(err, errs.NetworkError)
	}

	log.WithField("bucket", bucket.Address.String()).WithField("signature", signature.String()).
		Info("hot reserve bucket reactivated")

	return signature, nil
}
