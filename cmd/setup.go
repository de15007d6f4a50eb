package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"

	"github.com/lightlink-network/ll-withdrawer/clients"
	"github.com/lightlink-network/ll-withdrawer/database"
	"github.com/lightlink-network/ll-withdrawer/metrics"
	"github.com/lightlink-network/ll-withdrawer/wallet"
	"github.com/lightlink-network/ll-withdrawer/withdrawal"
)

var errNoKey = errors.New("no account configured, set PRIVATE_KEY or KEYSTORE_PATH")

func setupLogging(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool(VerboseFlag.Name) {
		level = slog.LevelDebug
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
	return nil
}

func chainConfigs(c *cli.Context) (clients.ChainConfig, clients.ChainConfig, error) {
	for _, f := range []cli.Flag{L1RPCURLFlag, L1ChainIDFlag, L2RPCURLFlag, L2ChainIDFlag, OptimismPortalFlag, L2OutputOracleFlag} {
		name := f.Names()[0]
		if !c.IsSet(name) {
			return clients.ChainConfig{}, clients.ChainConfig{}, fmt.Errorf("missing required flag --%s", name)
		}
	}

	addresses := map[string]common.Address{}
	for _, f := range []*cli.StringFlag{OptimismPortalFlag, L2OutputOracleFlag, L1StandardBridgeFlag, L2StandardBridgeFlag, L2ToL1MessagePasserFlag} {
		value := c.String(f.Name)
		if value == "" {
			continue
		}
		if !common.IsHexAddress(value) {
			return clients.ChainConfig{}, clients.ChainConfig{}, fmt.Errorf("invalid address for --%s: %q", f.Name, value)
		}
		addresses[f.Name] = common.HexToAddress(value)
	}

	l1 := clients.ChainConfig{
		ID:          new(big.Int).SetUint64(c.Uint64(L1ChainIDFlag.Name)),
		Name:        c.String(L1ChainNameFlag.Name),
		RPCURL:      c.String(L1RPCURLFlag.Name),
		ExplorerURL: c.String(L1ExplorerURLFlag.Name),
		Contracts: clients.Contracts{
			OptimismPortal:   addresses[OptimismPortalFlag.Name],
			L2OutputOracle:   addresses[L2OutputOracleFlag.Name],
			L1StandardBridge: addresses[L1StandardBridgeFlag.Name],
		},
	}
	l2 := clients.ChainConfig{
		ID:          new(big.Int).SetUint64(c.Uint64(L2ChainIDFlag.Name)),
		Name:        c.String(L2ChainNameFlag.Name),
		RPCURL:      c.String(L2RPCURLFlag.Name),
		ExplorerURL: c.String(L2ExplorerURLFlag.Name),
		Contracts: clients.Contracts{
			L2StandardBridge:    addresses[L2StandardBridgeFlag.Name],
			L2ToL1MessagePasser: addresses[L2ToL1MessagePasserFlag.Name],
		},
	}
	return l1, l2, nil
}

// openStore returns the configured withdrawal store and a func that closes it.
func openStore(c *cli.Context, logger *slog.Logger) (withdrawal.Store, func(), error) {
	switch kind := c.String(StoreFlag.Name); kind {
	case storeLevelDB:
		store, err := database.NewLocalStore(database.LocalStoreOpts{
			Path:   c.String(LevelDBPathFlag.Name),
			Logger: logger.With("component", "leveldb"),
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close leveldb", "error", err)
			}
		}, nil

	case storeMongo:
		db, err := database.NewDatabase(database.DatabaseOpts{
			URI:          c.String(DatabaseURIFlag.Name),
			DatabaseName: c.String(DatabaseNameFlag.Name),
			Logger:       logger.With("component", "database"),
		})
		if err != nil {
			return nil, nil, err
		}
		if err := db.CreateIndexes(c.Context); err != nil {
			return nil, nil, err
		}
		return db, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.Close(ctx); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q, expected %s or %s", kind, storeLevelDB, storeMongo)
	}
}

func newWallet(c *cli.Context, chains []*big.Int, logger *slog.Logger) (wallet.Provider, error) {
	logger = logger.With("component", "wallet")
	if key := c.String(PrivateKeyFlag.Name); key != "" {
		return wallet.NewKeyProvider(wallet.KeyProviderOpts{
			PrivateKey: key,
			Chains:     chains,
			Logger:     logger,
		})
	}
	if path := c.String(KeystorePathFlag.Name); path != "" {
		return wallet.NewKeystoreProvider(path, c.String(KeystorePasswordFlag.Name), chains, logger)
	}
	return nil, errNoKey
}

type contractChecker interface {
	CheckContracts(ctx context.Context)
}

// env is everything a command that signs transactions needs.
type env struct {
	logger   *slog.Logger
	provider *clients.Provider
	store    withdrawal.Store
	metrics  *metrics.Metrics
	session  *withdrawal.Session
	account  common.Address
	close    func()
}

func setup(c *cli.Context, tab string) (*env, error) {
	logger := slog.Default()

	l1, l2, err := chainConfigs(c)
	if err != nil {
		return nil, err
	}

	provider := clients.NewProvider(clients.ProviderOpts{
		L1:           l1,
		L2:           l2,
		PollInterval: c.Duration(PollIntervalFlag.Name),
		Logger:       logger.With("component", "clients"),
	})

	w, err := newWallet(c, provider.ChainIDs(), logger)
	if err != nil {
		return nil, err
	}
	if err := provider.SetWalletProvider(w); err != nil {
		return nil, err
	}

	accounts, err := w.RequestAccounts(c.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to request accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, withdrawal.ErrNotConnected
	}

	if c.Bool(CheckContractsFlag.Name) {
		cl, _ := provider.Clients()
		for _, client := range []any{cl.PublicL1, cl.PublicL2} {
			if checker, ok := client.(contractChecker); ok {
				checker.CheckContracts(c.Context)
			}
		}
	}

	store, closeStore, err := openStore(c, logger)
	if err != nil {
		return nil, err
	}

	printNotice := func(n withdrawal.Notice) {
		fmt.Fprintln(c.App.Writer, n.String())
	}

	m := metrics.NewMetrics()
	session := withdrawal.NewSession(withdrawal.SessionOpts{
		Clients:             provider,
		Store:               store,
		FinalizeSettleDelay: c.Duration(FinalizeSettleDelayFlag.Name),
		Metrics:             m,
		OnNotice:            printNotice,
		Logger:              logger.With("component", "withdrawal"),
	})

	if err := session.SetAccount(c.Context, accounts[0].Hex(), tab); err != nil {
		closeStore()
		return nil, err
	}

	logger.Info("account connected", "address", accounts[0].Hex(), "l1", l1.Name, "l2", l2.Name)

	return &env{
		logger:   logger,
		provider: provider,
		store:    store,
		metrics:  m,
		session:  session,
		account:  accounts[0],
		close:    closeStore,
	}, nil
}
