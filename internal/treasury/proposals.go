package treasury

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/hogyzen12/squads-go/pkg/multisig"
	"github.com/pkg/errors"
)

// AccountDataFetcher reads raw account data, returning rpc.ErrNotFound
// for accounts the ledger does not have.
type AccountDataFetcher interface {
	AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error)
}

// Proposal is a pending multisig transaction, referenced by its index
// and derived proposal address.
type Proposal struct {
	Index   uint64
	Address solana.PublicKey
}

// PendingProposals lists the proposal accounts that exist for the
// multisig's live transaction indexes. The transaction index increases
// monotonically, so indexes at or below the stale index are settled and
// skipped. Read-only.
func PendingProposals(
	ctx context.Context,
	fetcher AccountDataFetcher,
	info *multisig.MultisigInfo,
) ([]Proposal, error) {
	var pending []Proposal
	for index := info.StaleTransactionIndex + 1; index <= info.TransactionIndex; index++ {
		addr, _ := multisig.GetProposalPDA(info.Address, index)
		_, err := fetcher.AccountData(ctx, addr)
		if errors.Is(err, rpc.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "proposal lookup at index %d", index)
		}
		pending = append(pending, Proposal{Index: index, Address: addr})
	}
	return pending, nil
}
