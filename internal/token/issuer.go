// Package token issues the deployment's fungible asset and moves it
// into holder accounts. All amounts are integers in the asset's
// smallest unit; callers scale by 10^decimals, the issuer never infers
// decimals from context.
package token

import (
	"context"
	"math"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/pkg/errors"

	"kira-treasury-go/internal/deployerr"
)

// mintAccountSize is the fixed byte size of an SPL mint account.
const mintAccountSize = 82

// BaseUnits scales a whole-token amount by 10^decimals, failing instead
// of wrapping when the product exceeds uint64.
func BaseUnits(whole uint64, decimals uint8) (uint64, error) {
	units := whole
	for i := uint8(0); i < decimals; i++ {
		if units > math.MaxUint64/10 {
			return 0, errors.Errorf("%d tokens at %d decimals overflows the base-unit range", whole, decimals)
		}
		units *= 10
	}
	return units, nil
}

// Chain is the ledger capability slice the issuer consumes.
type Chain interface {
	MinimumRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
	AccountExists(ctx context.Context, address solana.PublicKey) (bool, error)
	TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	SendInstructions(ctx context.Context, payer solana.PublicKey, instructions []solana.Instruction, signers []solana.PrivateKey) (solana.Signature, error)
}

// IssuedAsset describes a freshly created mint and the authority's
// holder account carrying the full initial supply.
type IssuedAsset struct {
	Mint          solana.PublicKey
	Decimals      uint8
	HolderAccount solana.PublicKey
	Supply        uint64
	Signature     solana.Signature
}

// Distribution records one completed asset transfer.
type Distribution struct {
	Destination    solana.PublicKey
	DestinationATA solana.PublicKey
	Amount         uint64
	CreatedAccount bool
	Signature      solana.Signature
}

type Issuer struct {
	chain Chain
}

func NewIssuer(chain Chain) *Issuer {
	return &Issuer{chain: chain}
}

// IssueAsset creates the mint under authority's control and mints
// totalSupply base units into the authority's associated account, all
// in a single confirmed transaction.
func (is *Issuer) IssueAsset(
	ctx context.Context,
	authority solana.PrivateKey,
	decimals uint8,
	totalSupply uint64,
) (*IssuedAsset, error) {
	authorityKey := authority.PublicKey()
	mint := solana.NewWallet().PrivateKey
	mintKey := mint.PublicKey()

	rent, err := is.chain.MinimumRentExemption(ctx, mintAccountSize)
	if err != nil {
		return nil, errors.Wrap(err, "mint rent exemption")
	}

	holder, _, err := solana.FindAssociatedTokenAddress(authorityKey, mintKey)
	if err != nil {
		return nil, errors.Wrap(err, "holder account derivation")
	}

	instructions := []solana.Instruction{
		system.NewCreateAccountInstruction(
			rent,
			mintAccountSize,
			solana.TokenProgramID,
			authorityKey,
			mintKey,
		).Build(),
		token.NewInitializeMintInstruction(
			decimals,
			authorityKey,
			authorityKey,
			mintKey,
			solana.SysVarRentPubkey,
		).Build(),
		associatedtokenaccount.NewCreateInstruction(
			authorityKey,
			authorityKey,
			mintKey,
		).Build(),
		token.NewMintToInstruction(
			totalSupply,
			mintKey,
			holder,
			authorityKey,
			nil,
		).Build(),
	}

	sig, err := is.chain.SendInstructions(ctx, authorityKey, instructions, []solana.PrivateKey{authority, mint})
	if err != nil {
		var timeout *deployerr.ConfirmationTimeoutError
		if errors.As(err, &timeout) {
			return nil, err
		}
		return nil, &deployerr.OnChainRejectionError{Op: "mint creation", Err: err}
	}

	return &IssuedAsset{
		Mint:          mintKey,
		Decimals:      decimals,
		HolderAccount: holder,
		Supply:        totalSupply,
		Signature:     sig,
	}, nil
}

// Distribute transfers amount base units from fromAuthority's holder
// account to the destination's associated account, creating it first
// when absent and createAccountIfMissing is set. Destinations that are
// program-derived addresses cannot pre-exist, so treasury distribution
// always runs with the flag on.
func (is *Issuer) Distribute(
	ctx context.Context,
	mint solana.PublicKey,
	fromAuthority solana.PrivateKey,
	destination solana.PublicKey,
	amount uint64,
	createAccountIfMissing bool,
) (*Distribution, error) {
	authorityKey := fromAuthority.PublicKey()

	source, _, err := solana.FindAssociatedTokenAddress(authorityKey, mint)
	if err != nil {
		return nil, errors.Wrap(err, "source account derivation")
	}
	observed, err := is.chain.TokenBalance(ctx, source)
	if err != nil {
		return nil, errors.Wrap(err, "source balance check")
	}
	if observed < amount {
		return nil, &deployerr.InsufficientFundsError{
			Address:  source.String(),
			Observed: observed,
			Required: amount,
			Asset:    mint.String(),
		}
	}

	destATA, _, err := solana.FindAssociatedTokenAddress(destination, mint)
	if err != nil {
		return nil, errors.Wrap(err, "destination account derivation")
	}
	exists, err := is.chain.AccountExists(ctx, destATA)
	if err != nil {
		return nil, errors.Wrap(err, "destination account lookup")
	}

	var instructions []solana.Instruction
	if !exists {
		if !createAccountIfMissing {
			return nil, errors.Errorf("destination account %s does not exist and creation was not requested", destATA)
		}
		instructions = append(instructions, associatedtokenaccount.NewCreateInstruction(
			authorityKey,
			destination,
			mint,
		).Build())
	}
	instructions = append(instructions, token.NewTransferInstruction(
		amount,
		source,
		destATA,
		authorityKey,
		nil,
	).Build())

	sig, err := is.chain.SendInstructions(ctx, authorityKey, instructions, []solana.PrivateKey{fromAuthority})
	if err != nil {
		var timeout *deployerr.ConfirmationTimeoutError
		if errors.As(err, &timeout) {
			return nil, err
		}
		return nil, &deployerr.OnChainRejectionError{Op: "asset distribution", Err: err}
	}

	return &Distribution{
		Destination:    destination,
		DestinationATA: destATA,
		Amount:         amount,
		CreatedAccount: !exists,
		Signature:      sig,
	}, nil
}
