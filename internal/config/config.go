// Package config holds the immutable run configuration for the
// deployment pipeline. A Config is built once at the entry point and
// passed into each component; no component reads ambient process state.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
)

// Network selects one of the fixed ledger environments.
type Network string

const (
	NetworkDevnet  Network = "devnet"
	NetworkTestnet Network = "testnet"
	NetworkMainnet Network = "mainnet"
)

// NetworkEnvVar is the only piece of ambient state the CLI consults.
const NetworkEnvVar = "KIRA_NETWORK"

// ParseNetwork maps a user-supplied name onto a known cluster.
func ParseNetwork(name string) (Network, error) {
	switch Network(name) {
	case NetworkDevnet, NetworkTestnet, NetworkMainnet:
		return Network(name), nil
	}
	return "", errors.Errorf("unknown network %q (expected devnet, testnet or mainnet)", name)
}

// RPCEndpoint returns the fixed RPC endpoint for the cluster.
func (n Network) RPCEndpoint() string {
	switch n {
	case NetworkTestnet:
		return rpc.TestNet_RPC
	case NetworkMainnet:
		return rpc.MainNetBeta_RPC
	default:
		return rpc.DevNet_RPC
	}
}

// WSEndpoint returns the websocket endpoint used for confirmation
// subscriptions.
func (n Network) WSEndpoint() string {
	switch n {
	case NetworkTestnet:
		return rpc.TestNet_WS
	case NetworkMainnet:
		return rpc.MainNetBeta_WS
	default:
		return rpc.DevNet_WS
	}
}

// SolscanAccountURL builds the explorer link recorded in the deployment
// record for the operator.
func (n Network) SolscanAccountURL(address string) string {
	if n == NetworkMainnet {
		return fmt.Sprintf("https://solscan.io/account/%s", address)
	}
	return fmt.Sprintf("https://solscan.io/account/%s?cluster=%s", address, n)
}

// SquadsAppURL builds the Squads app link for a multisig address.
func (n Network) SquadsAppURL(address string) string {
	if n == NetworkMainnet {
		return fmt.Sprintf("https://app.squads.so/squads/%s", address)
	}
	return fmt.Sprintf("https://devnet.squads.so/multisig/%s", address)
}

// Config is the pipeline's full configuration. Amounts are integers in
// the smallest unit (lamports, token base units).
type Config struct {
	Network Network

	WalletPath string
	StatePath  string

	// Treasury parameters.
	Threshold       uint16
	MemberCount     int // total members including the creator
	TreasuryName    string
	TreasuryDesc    string
	TreasuryIconURL string

	// Asset parameters. AssetSupply and DistributeAmount are whole
	// tokens; scaling by 10^AssetDecimals happens at the call site.
	AssetDecimals    uint8
	AssetSupply      uint64
	DistributeAmount uint64

	// Funding parameters.
	FundingLamports uint64

	// Precondition minimums, lamports.
	MinTreasuryDeployBalance uint64
	MinAssetDeployBalance    uint64

	// Flat fee headroom required on top of a native transfer.
	FeeHeadroomLamports uint64

	// Bounded wait for transaction confirmation.
	ConfirmTimeout time.Duration
}

// Default returns the standard deployment parameters. They mirror the
// original Kira DAO treasury rollout: a 3-of-5 squad, a 9-decimal test
// token with a 1M supply half of which goes to the treasury, and a
// 1.5 SOL initial funding.
func Default() Config {
	return Config{
		Network:                  NetworkDevnet,
		WalletPath:               "wallets/deployer.json",
		StatePath:                "multisig-deployment.json",
		Threshold:                3,
		MemberCount:              5,
		TreasuryName:             "Kira DAO Treasury",
		TreasuryDesc:             "On-chain treasury for Kira DAO",
		TreasuryIconURL:          "https://kiraos.live/logo.png",
		AssetDecimals:            9,
		AssetSupply:              1_000_000,
		DistributeAmount:         500_000,
		FundingLamports:          1_500_000_000, // 1.5 SOL
		MinTreasuryDeployBalance: 100_000_000,   // 0.1 SOL
		MinAssetDeployBalance:    50_000_000,    // 0.05 SOL
		FeeHeadroomLamports:      5_000,
		ConfirmTimeout:           90 * time.Second,
	}
}

// FromEnv returns Default with the network overridden by KIRA_NETWORK
// when set. This is the single place ambient state is consulted.
func FromEnv() (Config, error) {
	cfg := Default()
	if name := os.Getenv(NetworkEnvVar); name != "" {
		network, err := ParseNetwork(name)
		if err != nil {
			return Config{}, err
		}
		cfg.Network = network
	}
	return cfg, nil
}
