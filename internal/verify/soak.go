package verify

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"kira-treasury-go/internal/deployment"
)

// SoakResult aggregates the outcome of repeated read-only queries. It
// asserts nothing about correctness beyond "all reads returned without
// error"; the numbers are for operational confidence only.
type SoakResult struct {
	Rounds     int
	Reads      int
	Failures   int
	Elapsed    time.Duration
	MinLatency time.Duration
	MaxLatency time.Duration
	AvgLatency time.Duration
}

// SuccessRate is the fraction of reads that returned without error.
func (s *SoakResult) SuccessRate() float64 {
	if s.Reads == 0 {
		return 0
	}
	return float64(s.Reads-s.Failures) / float64(s.Reads)
}

// SoakCheck issues rounds of concurrent read-only queries against the
// recorded deployment: the current slot, native balances of the
// treasury and creator, and the treasury asset balance when an asset
// was issued. Each round's reads are issued together and awaited
// jointly before the next round starts.
func (r *Runner) SoakCheck(ctx context.Context, state *deployment.State, rounds int) (*SoakResult, error) {
	if !state.HasTreasury() {
		return nil, errors.New("no treasury recorded; nothing to soak")
	}
	treasuryAddr, err := solana.PublicKeyFromBase58(state.TreasuryAddress)
	if err != nil {
		return nil, errors.Wrap(err, "recorded treasury address")
	}
	creatorAddr, err := solana.PublicKeyFromBase58(state.CreatorAddress)
	if err != nil {
		return nil, errors.Wrap(err, "recorded creator address")
	}
	var assetAccount *solana.PublicKey
	if state.HasDistribution() {
		acc, err := solana.PublicKeyFromBase58(state.TreasuryAssetAccount)
		if err != nil {
			return nil, errors.Wrap(err, "recorded asset account")
		}
		assetAccount = &acc
	}

	reads := []func(context.Context) error{
		func(ctx context.Context) error {
			_, err := r.chain.Slot(ctx)
			return err
		},
		func(ctx context.Context) error {
			_, err := r.chain.Balance(ctx, treasuryAddr)
			return err
		},
		func(ctx context.Context) error {
			_, err := r.chain.Balance(ctx, creatorAddr)
			return err
		},
	}
	if assetAccount != nil {
		account := *assetAccount
		reads = append(reads, func(ctx context.Context) error {
			_, err := r.chain.TokenBalance(ctx, account)
			return err
		})
	}

	result := &SoakResult{Rounds: rounds}
	var mu sync.Mutex
	start := time.Now()

	for round := 0; round < rounds; round++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var wg sync.WaitGroup
		for _, read := range reads {
			wg.Add(1)
			go func(read func(context.Context) error) {
				defer wg.Done()
				began := time.Now()
				err := read(ctx)
				latency := time.Since(began)

				mu.Lock()
				defer mu.Unlock()
				result.Reads++
				if err != nil {
					result.Failures++
				}
				if result.MinLatency == 0 || latency < result.MinLatency {
					result.MinLatency = latency
				}
				if latency > result.MaxLatency {
					result.MaxLatency = latency
				}
				result.AvgLatency += latency
			}(read)
		}
		wg.Wait()
	}

	result.Elapsed = time.Since(start)
	if result.Reads > 0 {
		result.AvgLatency /= time.Duration(result.Reads)
	}
	return result, nil
}
