// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bucket

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// ErrCosigner defines errors class for cosigner registration failures.
var ErrCosigner = errors.New("cosigner registration")

// Registration is a hot reserve address announced to guardian cosigner.
type Registration struct {
	Address         string
	UserXOnlyPubkey []byte
	GuardianSetting solana.PublicKey
}

type registrationRequest struct {
	Address         string `json:"address"`
	UserXOnlyPubkey string `json:"user_xonly_pubkey"`
	GuardianSetting string `json:"guardian_setting"`
}

// Cosigner registers hot reserve addresses with guardian cosigning service for faster settlement.
type Cosigner struct {
	http *http.Client
}

// NewCosigner is a constructor for Cosigner, uses default client with timeout if httpClient is nil.
func NewCosigner(httpClient *http.Client) *Cosigner {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Cosigner{http: httpClient}
}

// Register posts registration to cosigner at baseURL.
func (c *Cosigner) Register(ctx context.Context, baseURL string, registration Registration) error {
	body, err := json.Marshal(registrationRequest{
		Address:         registration.Address,
		UserXOnlyPubkey: hex.EncodeToString(registration.UserXOnlyPubkey),
		GuardianSetting: registration.GuardianSetting.String(),
	})
	if err != nil {
		return errors.Join(ErrCosigner, err)
	}

	endpoint := strings.TrimRight(baseURL, "/") + "/api/v1/hot-reserve-address"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Join(ErrCosigner, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Join(ErrCosigner, err)
	}

	// nolint:all
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Join(ErrCosigner, fmt.Errorf("%d %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	return nil
}
