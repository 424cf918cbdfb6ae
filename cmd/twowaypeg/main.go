// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/lightningnetwork/lnd/clock"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/BoostyLabs/twowaypeg/bitcoin/explorer"
	"github.com/BoostyLabs/twowaypeg/bitcoin/utils"
	"github.com/BoostyLabs/twowaypeg/config"
	"github.com/BoostyLabs/twowaypeg/deposit"
	"github.com/BoostyLabs/twowaypeg/errs"
	kvstore "github.com/BoostyLabs/twowaypeg/store/kv"
	"github.com/BoostyLabs/twowaypeg/wallet"
)

// usedUTXORetention defines how long used utxos stay reserved without confirmation.
const usedUTXORetention = 72 * time.Hour

var (
	// Version is set at build time.
	Version = "dev"

	cfg *config.Config
)

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "twowaypeg"
	app.Usage = "bitcoin two-way peg wallet command line interface"
	app.Commands = append(
		app.Commands,
		&addressCommand,
		&custodyAddressCommand,
		&utxosCommand,
		&depositCommand,
	)
	app.Flags = []cli.Flag{configFlag, keypairFlag, networkFlag, apiURLFlag, datadirFlag, logLevelFlag}
	app.Before = func(ctx *cli.Context) error {
		loaded, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		cfg = loaded
		log.SetLevel(cfg.LogLevel)

		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.WithField("code", errs.CodeOf(err).Name).WithError(err).Error("command failed")
		os.Exit(1)
	}
}

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to configuration file",
	}
	keypairFlag = &cli.StringFlag{
		Name:    "keypair",
		Usage:   "solana keypair file signing the wallet authorization message",
		Value:   "~/.config/solana/id.json",
		EnvVars: []string{config.EnvPrefix + "_KEYPAIR"},
	}
	networkFlag = &cli.StringFlag{
		Name:  config.KeyNetwork,
		Usage: "bitcoin network: mainnet, testnet, signet or regtest",
	}
	apiURLFlag = &cli.StringFlag{
		Name:  config.KeyBitcoinAPIURL,
		Usage: "bitcoin api base url",
	}
	datadirFlag = &cli.StringFlag{
		Name:  config.KeyDatadir,
		Usage: "data directory, used utxos are kept in memory if empty",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  config.KeyLogLevel,
		Usage: "log level",
	}

	toFlag = &cli.StringFlag{
		Name:     "to",
		Usage:    "hot reserve address receiving the deposit",
		Required: true,
	}
	amountFlag = &cli.Uint64Flag{
		Name:  "amount",
		Usage: "amount to deposit in sats",
	}
	allFlag = &cli.BoolFlag{
		Name:  "all",
		Usage: "deposit every available utxo",
	}
	waitFlag = &cli.BoolFlag{
		Name:  "wait",
		Usage: "wait for deposit confirmation",
	}
	guardianFlag = &cli.StringFlag{
		Name:     "guardian-xonly",
		Usage:    "hex encoded guardian x-only public key",
		Required: true,
	}
	unlockHeightFlag = &cli.UintFlag{
		Name:     "unlock-height",
		Usage:    "block height after which the reclaim leaf is spendable",
		Required: true,
	}
)

var (
	addressCommand = cli.Command{
		Name:   "address",
		Usage:  "Shows bitcoin addresses derived from the solana keypair",
		Action: address,
	}
	custodyAddressCommand = cli.Command{
		Name:   "custody-address",
		Usage:  "Shows hot reserve address for guardian key and unlock height",
		Action: custodyAddress,
		Flags:  []cli.Flag{guardianFlag, unlockHeightFlag},
	}
	utxosCommand = cli.Command{
		Name:   "utxos",
		Usage:  "Lists utxos available for deposit",
		Action: utxos,
	}
	depositCommand = cli.Command{
		Name:   "deposit",
		Usage:  "Builds, signs and broadcasts deposit into hot reserve address",
		Action: depositAction,
		Flags:  []cli.Flag{toFlag, amountFlag, allFlag, waitFlag},
	}
)

func address(ctx *cli.Context) error {
	session, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer session.Destroy()

	w := session.Wallet()
	return printJSON(map[string]string{
		"solana":       session.SolanaPubkey().String(),
		"p2pkh":        w.P2PKH.EncodeAddress(),
		"p2wpkh":       w.P2WPKH.EncodeAddress(),
		"p2tr":         w.P2TR.EncodeAddress(),
		"xonly_pubkey": hex.EncodeToString(w.XOnlyPubKey()),
	})
}

func custodyAddress(ctx *cli.Context) error {
	guardianXOnly, err := hex.DecodeString(ctx.String(guardianFlag.Name))
	if err != nil {
		return errs.InvalidInput.Wrap(err)
	}

	session, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer session.Destroy()

	custody, err := utils.NewCustodyAddress(cfg.Network, guardianXOnly, session.Wallet().XOnlyPubKey(),
		uint32(ctx.Uint(unlockHeightFlag.Name)))
	if err != nil {
		return errs.InvalidInput.Wrap(err)
	}

	return printJSON(map[string]string{
		"address":      custody.Address.EncodeAddress(),
		"reclaim_leaf": hex.EncodeToString(custody.ReclaimLeaf),
	})
}

func utxos(ctx *cli.Context) error {
	service, closeFn, err := depositService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	available, err := service.AvailableUTXOs(ctx.Context)
	if err != nil {
		return err
	}

	type utxoView struct {
		Outpoint string `json:"outpoint"`
		Amount   string `json:"amount"`
	}
	views := make([]utxoView, 0, len(available))
	for _, utxo := range available {
		views = append(views, utxoView{Outpoint: utxo.Outpoint(), Amount: utxo.Amount.String()})
	}

	return printJSON(views)
}

func depositAction(ctx *cli.Context) error {
	if !ctx.Bool(allFlag.Name) && ctx.Uint64(amountFlag.Name) == 0 {
		return errs.InvalidInput.New("either --%s or --%s is required", amountFlag.Name, allFlag.Name)
	}

	service, closeFn, err := depositService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := service.Deposit(ctx.Context, deposit.Params{
		DestinationAddress: ctx.String(toFlag.Name),
		Amount:             new(big.Int).SetUint64(ctx.Uint64(amountFlag.Name)),
		DepositAll:         ctx.Bool(allFlag.Name),
	})
	if err != nil {
		return err
	}

	output := map[string]any{"txid": result.TxID, "fee": result.Fee.String(), "inputs": len(result.UTXOs)}
	if ctx.Bool(waitFlag.Name) {
		status, err := service.WaitForConfirmation(ctx.Context, result.TxID)
		if err != nil {
			return err
		}

		output["block_height"] = status.BlockHeight
	}

	return printJSON(output)
}

// depositService opens session, bitcoin api client and used utxo store.
func depositService(ctx *cli.Context) (*deposit.Service, func(), error) {
	session, err := openSession(ctx)
	if err != nil {
		return nil, nil, err
	}

	used, err := kvstore.NewUsedUTXOStore(cfg.UsedUTXODir(), clock.NewDefaultClock())
	if err != nil {
		session.Destroy()
		return nil, nil, err
	}

	if pruned, err := used.Prune(ctx.Context, time.Now().Add(-usedUTXORetention)); err != nil {
		log.WithError(err).Warn("could not prune used utxos")
	} else if pruned > 0 {
		log.WithField("records", pruned).Debug("used utxos pruned")
	}

	api := explorer.NewClient(cfg.BitcoinAPIURL)
	service := deposit.NewService(
		deposit.Config{DustLimit: cfg.DustLimit, PollInterval: cfg.ConfirmationPollInterval},
		session,
		api,
		deposit.NewFeeRateCache(api, cfg.FeePriority, cfg.FeeRateMaxAge, clock.NewDefaultClock()),
		used,
	)

	closeFn := func() {
		session.Destroy()
		if err := used.Close(); err != nil {
			log.WithError(err).Warn("could not close used utxo store")
		}
	}

	return service, closeFn, nil
}

// openSession derives bitcoin wallet by signing authorization message with local solana keypair.
func openSession(ctx *cli.Context) (*wallet.Session, error) {
	keypairPath, err := expandHome(ctx.String(keypairFlag.Name))
	if err != nil {
		return nil, errs.InvalidInput.Wrap(err)
	}

	key, err := solana.PrivateKeyFromSolanaKeygenFile(keypairPath)
	if err != nil {
		return nil, errs.InvalidInput.Wrap(err)
	}

	return wallet.NewSession(ctx.Context, key.PublicKey(), cfg.Network,
		func(_ context.Context, message []byte) ([]byte, error) {
			signature, err := key.Sign(message)
			if err != nil {
				return nil, err
			}

			return signature[:], nil
		})
}

// loadConfig applies global flags set on command line over environment and config file values.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	v := config.New()
	for _, flag := range []*cli.StringFlag{networkFlag, apiURLFlag, datadirFlag, logLevelFlag} {
		if ctx.IsSet(flag.Name) {
			v.Set(flag.Name, ctx.String(flag.Name))
		}
	}

	loaded, err := config.Load(v, ctx.String(configFlag.Name))
	if err != nil {
		return nil, errs.InvalidInput.Wrap(err)
	}

	return loaded, nil
}

func expandHome(path string) (string, error) {
	if len(path) < 2 || path[:2] != "~/" {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Join(errors.New("could not resolve home directory"), err)
	}

	return home + path[1:], nil
}

func printJSON(resp any) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonBytes))

	return nil
}
