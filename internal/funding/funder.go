// Package funding moves native currency from the deployer into the
// treasury. Native transfers have no idempotency key on the ledger, so
// a confirmation timeout is surfaced as-is and never retried here.
package funding

import (
	"context"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"kira-treasury-go/internal/chain"
	"kira-treasury-go/internal/deployerr"
)

// Chain is the ledger capability slice the funder consumes.
type Chain interface {
	Balance(ctx context.Context, address solana.PublicKey) (uint64, error)
	SendInstructions(ctx context.Context, payer solana.PublicKey, instructions []solana.Instruction, signers []solana.PrivateKey) (solana.Signature, error)
}

// Receipt records a confirmed funding transfer and the resulting
// treasury balance.
type Receipt struct {
	Signature       solana.Signature
	Amount          uint64
	TreasuryBalance uint64
	FundedAt        time.Time
}

type Funder struct {
	chain       Chain
	feeHeadroom uint64
}

func NewFunder(c Chain, feeHeadroomLamports uint64) *Funder {
	return &Funder{chain: c, feeHeadroom: feeHeadroomLamports}
}

// TransferNative sends amount lamports from the holder of from to the
// treasury and waits for confirmation. The balance gate runs
// immediately before submission: the sender must hold the amount plus
// fee headroom. A rejection at submission time despite the gate is a
// race against fee fluctuation and is surfaced to the operator.
func (f *Funder) TransferNative(
	ctx context.Context,
	from solana.PrivateKey,
	treasury solana.PublicKey,
	amount uint64,
) (*Receipt, error) {
	fromKey := from.PublicKey()

	if _, err := chain.RequireMinimumBalance(ctx, f.chain, fromKey, amount+f.feeHeadroom); err != nil {
		return nil, err
	}

	sol := decimal.NewFromUint64(amount).Div(decimal.NewFromUint64(solana.LAMPORTS_PER_SOL))
	log.Printf("funding: transferring %s SOL to treasury %s", sol.String(), treasury)

	instruction := system.NewTransferInstruction(amount, fromKey, treasury).Build()
	sig, err := f.chain.SendInstructions(ctx, fromKey, []solana.Instruction{instruction}, []solana.PrivateKey{from})
	if err != nil {
		var timeout *deployerr.ConfirmationTimeoutError
		if errors.As(err, &timeout) {
			return nil, err
		}
		return nil, &deployerr.OnChainRejectionError{Op: "native transfer", Err: err}
	}

	treasuryBalance, err := f.chain.Balance(ctx, treasury)
	if err != nil {
		return nil, errors.Wrap(err, "treasury balance after funding")
	}

	return &Receipt{
		Signature:       sig,
		Amount:          amount,
		TreasuryBalance: treasuryBalance,
		FundedAt:        time.Now().UTC(),
	}, nil
}
