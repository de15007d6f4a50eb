package main

import (
	"github.com/urfave/cli/v2"

	"github.com/lightlink-network/ll-withdrawer/withdrawal"
)

const (
	storeLevelDB = "leveldb"
	storeMongo   = "mongo"
)

var (
	L1RPCURLFlag = &cli.StringFlag{
		Name:    "l1-rpc-url",
		Usage:   "HTTP provider URL for L1",
		EnvVars: []string{"L1_RPC_URL"},
	}
	L1ChainIDFlag = &cli.Uint64Flag{
		Name:    "l1-chain-id",
		Usage:   "Chain ID of L1",
		EnvVars: []string{"L1_CHAIN_ID"},
	}
	L1ChainNameFlag = &cli.StringFlag{
		Name:    "l1-chain-name",
		EnvVars: []string{"L1_CHAIN_NAME"},
		Value:   "ethereum",
	}
	L1ExplorerURLFlag = &cli.StringFlag{
		Name:    "l1-explorer-url",
		Usage:   "Block explorer of L1, used for transaction links",
		EnvVars: []string{"L1_EXPLORER_URL"},
	}
	L2RPCURLFlag = &cli.StringFlag{
		Name:    "l2-rpc-url",
		Usage:   "HTTP provider URL for LightLink",
		EnvVars: []string{"L2_RPC_URL"},
	}
	L2ChainIDFlag = &cli.Uint64Flag{
		Name:    "l2-chain-id",
		Usage:   "Chain ID of LightLink",
		EnvVars: []string{"L2_CHAIN_ID"},
	}
	L2ChainNameFlag = &cli.StringFlag{
		Name:    "l2-chain-name",
		EnvVars: []string{"L2_CHAIN_NAME"},
		Value:   "lightlink",
	}
	L2ExplorerURLFlag = &cli.StringFlag{
		Name:    "l2-explorer-url",
		Usage:   "Block explorer of LightLink, used for transaction links",
		EnvVars: []string{"L2_EXPLORER_URL"},
	}

	OptimismPortalFlag = &cli.StringFlag{
		Name:    "optimism-portal",
		Usage:   "OptimismPortal proxy address on L1",
		EnvVars: []string{"L1_OPTIMISM_PORTAL_PROXY"},
	}
	L2OutputOracleFlag = &cli.StringFlag{
		Name:    "l2-output-oracle",
		Usage:   "L2OutputOracle proxy address on L1",
		EnvVars: []string{"L2_OUTPUT_ORACLE_PROXY"},
	}
	L1StandardBridgeFlag = &cli.StringFlag{
		Name:    "l1-standard-bridge",
		EnvVars: []string{"L1_STANDARD_BRIDGE_PROXY"},
	}
	L2StandardBridgeFlag = &cli.StringFlag{
		Name:    "l2-standard-bridge",
		EnvVars: []string{"L2_STANDARD_BRIDGE_PROXY"},
	}
	L2ToL1MessagePasserFlag = &cli.StringFlag{
		Name:    "l2-to-l1-message-passer",
		Usage:   "L2ToL1MessagePasser address on LightLink",
		EnvVars: []string{"L2_TO_L1_MESSAGE_PASSER"},
		Value:   "0x4200000000000000000000000000000000000016",
	}

	PrivateKeyFlag = &cli.StringFlag{
		Name:    "private-key",
		Usage:   "Hex private key of the withdrawing account",
		EnvVars: []string{"PRIVATE_KEY"},
	}
	KeystorePathFlag = &cli.StringFlag{
		Name:    "keystore",
		Usage:   "Keystore file of the withdrawing account, used when no private key is set",
		EnvVars: []string{"KEYSTORE_PATH"},
	}
	KeystorePasswordFlag = &cli.StringFlag{
		Name:    "keystore-password",
		EnvVars: []string{"KEYSTORE_PASSWORD"},
	}

	StoreFlag = &cli.StringFlag{
		Name:    "store",
		Usage:   "Withdrawal store, leveldb or mongo",
		EnvVars: []string{"STORE"},
		Value:   storeLevelDB,
	}
	LevelDBPathFlag = &cli.StringFlag{
		Name:    "leveldb-path",
		EnvVars: []string{"LEVELDB_PATH"},
		Value:   "data/withdrawals",
	}
	DatabaseURIFlag = &cli.StringFlag{
		Name:    "database-uri",
		EnvVars: []string{"DATABASE_URI"},
		Value:   "mongodb://localhost:27017",
	}
	DatabaseNameFlag = &cli.StringFlag{
		Name:    "database-name",
		EnvVars: []string{"DATABASE_NAME"},
		Value:   "ll-withdrawer",
	}

	PollIntervalFlag = &cli.DurationFlag{
		Name:    "poll-interval",
		Usage:   "Interval between chain polls, 0 uses 12s on L1 and 2s on LightLink",
		EnvVars: []string{"POLL_INTERVAL"},
	}
	FinalizeSettleDelayFlag = &cli.DurationFlag{
		Name:    "finalize-settle-delay",
		Usage:   "Delay between the withdrawal becoming finalizable and the finalize transaction",
		EnvVars: []string{"FINALIZE_SETTLE_DELAY"},
		Value:   withdrawal.DefaultFinalizeSettleDelay,
	}
	VerboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		EnvVars: []string{"VERBOSE"},
	}

	AmountFlag = &cli.StringFlag{
		Name:     "amount",
		Usage:    "Amount of ETH, e.g. 0.05",
		Required: true,
	}
	AddressFlag = &cli.StringFlag{
		Name:  "address",
		Usage: "Only show withdrawals of this address",
	}
	HashFlag = &cli.StringFlag{
		Name:  "hash",
		Usage: "Show the steps of one withdrawal",
	}
	APIPortFlag = &cli.StringFlag{
		Name:    "port",
		EnvVars: []string{"API_PORT"},
		Value:   "8080",
	}
	CheckContractsFlag = &cli.BoolFlag{
		Name:  "check-contracts",
		Usage: "Warn when a configured contract has no code",
		Value: true,
	}
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		L1RPCURLFlag,
		L1ChainIDFlag,
		L1ChainNameFlag,
		L1ExplorerURLFlag,
		L2RPCURLFlag,
		L2ChainIDFlag,
		L2ChainNameFlag,
		L2ExplorerURLFlag,
		OptimismPortalFlag,
		L2OutputOracleFlag,
		L1StandardBridgeFlag,
		L2StandardBridgeFlag,
		L2ToL1MessagePasserFlag,
		PrivateKeyFlag,
		KeystorePathFlag,
		KeystorePasswordFlag,
		StoreFlag,
		LevelDBPathFlag,
		DatabaseURIFlag,
		DatabaseNameFlag,
		PollIntervalFlag,
		FinalizeSettleDelayFlag,
		CheckContractsFlag,
		VerboseFlag,
	}
}
