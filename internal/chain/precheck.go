package chain

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"kira-treasury-go/internal/deployerr"
)

// BalanceFetcher is the single capability the precondition gate needs.
type BalanceFetcher interface {
	Balance(ctx context.Context, address solana.PublicKey) (uint64, error)
}

// PreconditionResult records one balance gate evaluation. It is
// ephemeral: gates are re-run before every irreversible step instead of
// being persisted.
type PreconditionResult struct {
	Address   solana.PublicKey
	Observed  uint64
	Required  uint64
	Satisfied bool
}

// RequireMinimumBalance asserts that address holds at least minimum
// lamports. It must run immediately before any fee-consuming,
// irreversible operation; an under-funded account fails the step with
// InsufficientFundsError before anything is submitted.
func RequireMinimumBalance(
	ctx context.Context,
	fetcher BalanceFetcher,
	address solana.PublicKey,
	minimum uint64,
) (PreconditionResult, error) {
	observed, err := fetcher.Balance(ctx, address)
	if err != nil {
		return PreconditionResult{}, err
	}
	result := PreconditionResult{
		Address:   address,
		Observed:  observed,
		Required:  minimum,
		Satisfied: observed >= minimum,
	}
	if !result.Satisfied {
		return result, &deployerr.InsufficientFundsError{
			Address:  address.String(),
			Observed: observed,
			Required: minimum,
		}
	}
	return result, nil
}

// ObserveBalance evaluates the same gate without failing; the
// verification step records the outcome instead of aborting on it.
func ObserveBalance(
	ctx context.Context,
	fetcher BalanceFetcher,
	address solana.PublicKey,
	minimum uint64,
) (PreconditionResult, error) {
	observed, err := fetcher.Balance(ctx, address)
	if err != nil {
		return PreconditionResult{}, err
	}
	return PreconditionResult{
		Address:   address,
		Observed:  observed,
		Required:  minimum,
		Satisfied: observed >= minimum,
	}, nil
}
