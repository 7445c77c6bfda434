package funding

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kira-treasury-go/internal/deployerr"
)

const feeHeadroom = 5_000

type fakeChain struct {
	balances map[solana.PublicKey]uint64
	sendErr  error
	sig      solana.Signature

	sendCalls        int
	sentInstructions []solana.Instruction
	sentSigners      []solana.PrivateKey
}

func (f *fakeChain) Balance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	return f.balances[address], nil
}

func (f *fakeChain) SendInstructions(ctx context.Context, payer solana.PublicKey, instructions []solana.Instruction, signers []solana.PrivateKey) (solana.Signature, error) {
	f.sendCalls++
	f.sentInstructions = instructions
	f.sentSigners = signers
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	return f.sig, nil
}

func TestTransferNative(t *testing.T) {
	from := solana.NewWallet().PrivateKey
	treasury := solana.NewWallet().PublicKey()
	amount := uint64(1_500_000_000)

	chain := &fakeChain{
		balances: map[solana.PublicKey]uint64{
			from.PublicKey(): 2 * solana.LAMPORTS_PER_SOL,
			treasury:         amount,
		},
		sig: solana.Signature{4},
	}

	receipt, err := NewFunder(chain, feeHeadroom).TransferNative(
		context.Background(), from, treasury, amount,
	)
	require.NoError(t, err)

	assert.Equal(t, chain.sig, receipt.Signature)
	assert.Equal(t, amount, receipt.Amount)
	assert.Equal(t, amount, receipt.TreasuryBalance)
	assert.WithinDuration(t, time.Now().UTC(), receipt.FundedAt, time.Minute)

	require.Len(t, chain.sentInstructions, 1)
	assert.Equal(t, solana.SystemProgramID, chain.sentInstructions[0].ProgramID())
	require.Len(t, chain.sentSigners, 1)
	assert.Equal(t, from.PublicKey(), chain.sentSigners[0].PublicKey())
}

func TestTransferNativeGateIncludesFeeHeadroom(t *testing.T) {
	from := solana.NewWallet().PrivateKey
	amount := uint64(1_500_000_000)

	// Exactly the amount, but not the fee on top of it.
	chain := &fakeChain{
		balances: map[solana.PublicKey]uint64{from.PublicKey(): amount},
	}

	_, err := NewFunder(chain, feeHeadroom).TransferNative(
		context.Background(), from, solana.NewWallet().PublicKey(), amount,
	)
	var insufficient *deployerr.InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, amount, insufficient.Observed)
	assert.Equal(t, amount+feeHeadroom, insufficient.Required)
	assert.Zero(t, chain.sendCalls, "failed gate must prevent submission")
}

func TestTransferNativeSurfacesRejection(t *testing.T) {
	from := solana.NewWallet().PrivateKey
	chain := &fakeChain{
		balances: map[solana.PublicKey]uint64{from.PublicKey(): solana.LAMPORTS_PER_SOL},
		sendErr:  errors.New("blockhash not found"),
	}

	_, err := NewFunder(chain, feeHeadroom).TransferNative(
		context.Background(), from, solana.NewWallet().PublicKey(), 1_000,
	)
	var rejection *deployerr.OnChainRejectionError
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, 1, chain.sendCalls, "rejections are surfaced, not retried")
}

func TestTransferNativeKeepsTimeoutIdentity(t *testing.T) {
	from := solana.NewWallet().PrivateKey
	chain := &fakeChain{
		balances: map[solana.PublicKey]uint64{from.PublicKey(): solana.LAMPORTS_PER_SOL},
		sendErr: &deployerr.ConfirmationTimeoutError{
			Signature: solana.Signature{9}.String(),
			Waited:    30 * time.Second,
		},
	}

	_, err := NewFunder(chain, feeHeadroom).TransferNative(
		context.Background(), from, solana.NewWallet().PublicKey(), 1_000,
	)
	var timeout *deployerr.ConfirmationTimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, solana.Signature{9}.String(), timeout.Signature)
}
