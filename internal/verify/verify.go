// Package verify runs the read-only end-to-end checks against a
// recorded deployment. Nothing here mutates external state; the step is
// safe to run at any time, including after an ambiguous confirmation
// timeout.
package verify

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/hogyzen12/squads-go/pkg/multisig"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"kira-treasury-go/internal/deployment"
	"kira-treasury-go/internal/token"
	"kira-treasury-go/internal/treasury"
)

// Chain is the read-only ledger capability slice the runner consumes.
type Chain interface {
	Balance(ctx context.Context, address solana.PublicKey) (uint64, error)
	TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error)
	Slot(ctx context.Context) (uint64, error)
}

// MultisigFetcher reads a multisig account.
type MultisigFetcher interface {
	Fetch(ctx context.Context, address solana.PublicKey) (*multisig.MultisigInfo, error)
}

// Check is one independent verification result.
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// Report is the joined outcome of all checks.
type Report struct {
	Checks []Check
}

func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

type Runner struct {
	chain  Chain
	squads MultisigFetcher
}

func NewRunner(chain Chain, squads MultisigFetcher) *Runner {
	return &Runner{chain: chain, squads: squads}
}

// Verify runs the checks against the persisted record. Independent
// queries are issued concurrently and joined before the report is
// assembled; partial results are never acted upon.
func (r *Runner) Verify(ctx context.Context, state *deployment.State) (*Report, error) {
	if !state.HasTreasury() {
		return nil, errors.New("no treasury recorded; nothing to verify")
	}

	treasuryAddr, err := solana.PublicKeyFromBase58(state.TreasuryAddress)
	if err != nil {
		return nil, errors.Wrap(err, "recorded treasury address")
	}
	creatorAddr, err := solana.PublicKeyFromBase58(state.CreatorAddress)
	if err != nil {
		return nil, errors.Wrap(err, "recorded creator address")
	}

	var (
		wg sync.WaitGroup

		info    *multisig.MultisigInfo
		infoErr error

		nativeBalance uint64
		nativeErr     error

		assetCheck Check
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		info, infoErr = r.squads.Fetch(ctx, treasuryAddr)
	}()
	go func() {
		defer wg.Done()
		nativeBalance, nativeErr = r.chain.Balance(ctx, treasuryAddr)
	}()
	go func() {
		defer wg.Done()
		assetCheck = r.checkAssetBalance(ctx, state)
	}()
	wg.Wait()

	report := &Report{}

	// Check 1: treasury exists and matches the persisted configuration.
	report.Checks = append(report.Checks, r.checkConfiguration(state, info, infoErr))

	// Check 2: treasury native balance is positive.
	if nativeErr != nil {
		report.Checks = append(report.Checks, Check{
			Name:   "treasury native balance",
			Detail: nativeErr.Error(),
		})
	} else {
		sol := decimal.NewFromUint64(nativeBalance).Div(decimal.NewFromUint64(solana.LAMPORTS_PER_SOL))
		report.Checks = append(report.Checks, Check{
			Name:   "treasury native balance",
			Passed: nativeBalance > 0,
			Detail: fmt.Sprintf("%s SOL", sol.String()),
		})
	}

	// Check 3: treasury asset balance, when an asset was issued.
	report.Checks = append(report.Checks, assetCheck)

	// Check 4: declared creator appears in the on-chain member list.
	report.Checks = append(report.Checks, checkCreatorMembership(creatorAddr, info, infoErr))

	// Check 5: pending proposals are enumerable (presence is
	// informational, an empty list still passes).
	report.Checks = append(report.Checks, r.checkPendingProposals(ctx, info, infoErr))

	return report, nil
}

func (r *Runner) checkConfiguration(state *deployment.State, info *multisig.MultisigInfo, infoErr error) Check {
	check := Check{Name: "treasury configuration"}
	if infoErr != nil {
		check.Detail = infoErr.Error()
		return check
	}
	if int(info.Threshold) != state.Threshold {
		check.Detail = fmt.Sprintf("threshold %d on-chain, %d recorded", info.Threshold, state.Threshold)
		return check
	}
	if len(info.Members) != len(state.MemberAddresses) {
		check.Detail = fmt.Sprintf("%d members on-chain, %d recorded", len(info.Members), len(state.MemberAddresses))
		return check
	}
	onChain := make(map[string]bool, len(info.Members))
	for _, m := range info.Members {
		onChain[m.Key.String()] = true
	}
	for _, addr := range state.MemberAddresses {
		if !onChain[addr] {
			check.Detail = fmt.Sprintf("recorded member %s missing on-chain", addr)
			return check
		}
	}
	check.Passed = true
	check.Detail = fmt.Sprintf("%d of %d", info.Threshold, len(info.Members))
	return check
}

func (r *Runner) checkAssetBalance(ctx context.Context, state *deployment.State) Check {
	check := Check{Name: "treasury asset balance"}
	if !state.HasAsset() {
		check.Passed = true
		check.Detail = "no asset issued"
		return check
	}
	mintAddr, err := solana.PublicKeyFromBase58(state.AssetMint)
	if err != nil {
		check.Detail = "recorded mint address unreadable: " + err.Error()
		return check
	}
	mintState, err := token.FetchMint(ctx, r.chain, mintAddr)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	if mintState.Decimals != state.AssetDecimals {
		check.Detail = fmt.Sprintf("mint has %d decimals, %d recorded", mintState.Decimals, state.AssetDecimals)
		return check
	}
	account, err := solana.PublicKeyFromBase58(state.TreasuryAssetAccount)
	if err != nil {
		check.Detail = "recorded asset account unreadable: " + err.Error()
		return check
	}
	balance, err := r.chain.TokenBalance(ctx, account)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	check.Passed = balance > 0
	check.Detail = fmt.Sprintf("%d base units", balance)
	return check
}

func checkCreatorMembership(creator solana.PublicKey, info *multisig.MultisigInfo, infoErr error) Check {
	check := Check{Name: "creator membership"}
	if infoErr != nil {
		check.Detail = infoErr.Error()
		return check
	}
	for _, m := range info.Members {
		if m.Key.Equals(creator) {
			check.Passed = true
			check.Detail = creator.String()
			return check
		}
	}
	check.Detail = fmt.Sprintf("creator %s not in member list", creator)
	return check
}

func (r *Runner) checkPendingProposals(ctx context.Context, info *multisig.MultisigInfo, infoErr error) Check {
	check := Check{Name: "pending proposals"}
	if infoErr != nil {
		check.Detail = infoErr.Error()
		return check
	}
	pending, err := treasury.PendingProposals(ctx, r.chain, info)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	check.Passed = true
	check.Detail = fmt.Sprintf("%d pending, transaction index %d", len(pending), info.TransactionIndex)
	return check
}
