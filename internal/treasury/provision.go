// Package treasury provisions the Squads multisig that acts as the
// deployment's treasury. Creation is irreversible and fee-consuming, so
// the caller gates it on a balance precondition and the pipeline skips
// it entirely once a treasury address is checkpointed.
package treasury

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/hogyzen12/squads-go/pkg/multisig"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"kira-treasury-go/internal/config"
	"kira-treasury-go/internal/deployerr"
)

// SquadsClient is the slice of the Squads SDK the provisioner consumes.
type SquadsClient interface {
	Create(ctx context.Context, params multisig.CreateParams) (solana.Signature, solana.PublicKey, solana.PrivateKey, error)
	Fetch(ctx context.Context, address solana.PublicKey) (*multisig.MultisigInfo, error)
}

// Metadata is operator-facing treasury naming. Squads v4 takes no
// metadata at create time, so it lives only in the deployment record.
type Metadata struct {
	Name        string
	Description string
	IconURL     string
}

// Account describes the created treasury as confirmed on-chain, plus
// the one-time create key. The create-key secret is required for any
// future configuration change to this treasury and must be exported by
// the operator to a separate secrets vault after deployment.
type Account struct {
	Address          solana.PublicKey
	Vault            solana.PublicKey
	Threshold        uint16
	Members          []solana.PublicKey
	TransactionIndex uint64
	CreateKey        solana.PublicKey
	CreateKeySecret  string
	Signature        solana.Signature
	Metadata         Metadata
}

type Provisioner struct {
	squads SquadsClient
}

func NewProvisioner(squads SquadsClient) *Provisioner {
	return &Provisioner{squads: squads}
}

// CreateTreasury validates the membership invariants locally, submits
// the multisig creation, and re-fetches the account to confirm the
// program recorded exactly what was requested. The creator is always
// member one. A program rejection is surfaced, never retried.
func (p *Provisioner) CreateTreasury(
	ctx context.Context,
	creator solana.PrivateKey,
	threshold uint16,
	additionalMembers []solana.PublicKey,
	meta Metadata,
) (*Account, error) {
	creatorKey := creator.PublicKey()
	members := append([]solana.PublicKey{creatorKey}, additionalMembers...)

	if threshold < 1 {
		return nil, &deployerr.InvariantViolationError{Detail: "threshold must be at least 1"}
	}
	if int(threshold) > len(members) {
		return nil, &deployerr.InvariantViolationError{
			Detail: "threshold exceeds member count including creator",
		}
	}
	seen := make(map[solana.PublicKey]bool, len(members))
	for _, m := range members {
		if seen[m] {
			return nil, &deployerr.InvariantViolationError{
				Detail: "duplicate member " + m.String(),
			}
		}
		seen[m] = true
	}

	squadMembers := make([]multisig.Member, len(members))
	for i, m := range members {
		squadMembers[i] = multisig.Member{Key: m, Permissions: multisig.PermissionFull}
	}

	sig, multisigPDA, createKey, err := p.squads.Create(ctx, multisig.CreateParams{
		Payer:     creator,
		Members:   squadMembers,
		Threshold: threshold,
	})
	if err != nil {
		return nil, &deployerr.OnChainRejectionError{Op: "multisig creation", Err: err}
	}

	// Defensive re-read: the confirmed account must match the request.
	info, err := p.squads.Fetch(ctx, multisigPDA)
	if err != nil {
		return nil, errors.Wrapf(err, "created multisig %s but could not read it back", multisigPDA)
	}
	if info.Threshold != threshold {
		return nil, &deployerr.InvariantViolationError{
			Detail: "on-chain threshold disagrees with requested value",
		}
	}
	if len(info.Members) != len(members) {
		return nil, &deployerr.InvariantViolationError{
			Detail: "on-chain member count disagrees with requested list",
		}
	}
	onChain := make(map[solana.PublicKey]bool, len(info.Members))
	for _, m := range info.Members {
		onChain[m.Key] = true
	}
	for _, m := range members {
		if !onChain[m] {
			return nil, &deployerr.InvariantViolationError{
				Detail: "member " + m.String() + " missing from on-chain list",
			}
		}
	}

	return &Account{
		Address:          multisigPDA,
		Vault:            info.DefaultVault,
		Threshold:        info.Threshold,
		Members:          members,
		TransactionIndex: info.TransactionIndex,
		CreateKey:        createKey.PublicKey(),
		CreateKeySecret:  base58.Encode(createKey),
		Signature:        sig,
		Metadata:         meta,
	}, nil
}

// liveSquads is the production SquadsClient backed by the SDK.
type liveSquads struct {
	rpcURL string
	wsURL  string
}

func NewSquadsClient(network config.Network) SquadsClient {
	return &liveSquads{
		rpcURL: network.RPCEndpoint(),
		wsURL:  network.WSEndpoint(),
	}
}

func (s *liveSquads) Create(ctx context.Context, params multisig.CreateParams) (solana.Signature, solana.PublicKey, solana.PrivateKey, error) {
	params.RPCURL = s.rpcURL
	params.WSURL = s.wsURL
	return multisig.CreateMultisigWithParams(ctx, params)
}

func (s *liveSquads) Fetch(ctx context.Context, address solana.PublicKey) (*multisig.MultisigInfo, error) {
	return multisig.FetchMultisigInfo(ctx, s.rpcURL, address)
}
