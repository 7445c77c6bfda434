package token

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kira-treasury-go/internal/deployerr"
)

// fakeChain answers the Chain slice from fixtures and records every
// submitted transaction.
type fakeChain struct {
	rent     uint64
	existing map[solana.PublicKey]bool
	balances map[solana.PublicKey]uint64

	sendErr error
	sig     solana.Signature

	sentPayer        solana.PublicKey
	sentInstructions []solana.Instruction
	sentSigners      []solana.PrivateKey
	sendCalls        int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		rent:     1_461_600,
		existing: map[solana.PublicKey]bool{},
		balances: map[solana.PublicKey]uint64{},
		sig:      solana.Signature{7},
	}
}

func (f *fakeChain) MinimumRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	return f.rent, nil
}

func (f *fakeChain) AccountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	return f.existing[address], nil
}

func (f *fakeChain) TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	return f.balances[account], nil
}

func (f *fakeChain) SendInstructions(ctx context.Context, payer solana.PublicKey, instructions []solana.Instruction, signers []solana.PrivateKey) (solana.Signature, error) {
	f.sendCalls++
	f.sentPayer = payer
	f.sentInstructions = instructions
	f.sentSigners = signers
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	return f.sig, nil
}

func TestBaseUnits(t *testing.T) {
	units, err := BaseUnits(1_000_000, 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000_000_000), units)

	units, err = BaseUnits(42, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), units)

	units, err = BaseUnits(0, 18)
	require.NoError(t, err)
	assert.Zero(t, units)
}

func TestBaseUnitsRejectsOverflow(t *testing.T) {
	// 10^20 exceeds uint64; the scale-up must fail, not wrap.
	_, err := BaseUnits(100_000_000_000, 9)
	require.Error(t, err)

	_, err = BaseUnits(math.MaxUint64, 1)
	require.Error(t, err)
}

func TestIssueAssetComposesSingleTransaction(t *testing.T) {
	chain := newFakeChain()
	authority := solana.NewWallet().PrivateKey

	asset, err := NewIssuer(chain).IssueAsset(context.Background(), authority, 9, 1_000_000_000_000_000)
	require.NoError(t, err)

	assert.Equal(t, uint8(9), asset.Decimals)
	assert.Equal(t, uint64(1_000_000_000_000_000), asset.Supply)
	assert.Equal(t, chain.sig, asset.Signature)

	expectedHolder, _, err := solana.FindAssociatedTokenAddress(authority.PublicKey(), asset.Mint)
	require.NoError(t, err)
	assert.Equal(t, expectedHolder, asset.HolderAccount)

	// create account, initialize mint, create holder, mint supply.
	require.Len(t, chain.sentInstructions, 4)
	assert.Equal(t, solana.SystemProgramID, chain.sentInstructions[0].ProgramID())
	assert.Equal(t, solana.TokenProgramID, chain.sentInstructions[1].ProgramID())
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, chain.sentInstructions[2].ProgramID())
	assert.Equal(t, solana.TokenProgramID, chain.sentInstructions[3].ProgramID())

	// Both the authority and the new mint account must sign.
	assert.Equal(t, authority.PublicKey(), chain.sentPayer)
	require.Len(t, chain.sentSigners, 2)
	assert.Equal(t, authority.PublicKey(), chain.sentSigners[0].PublicKey())
	assert.Equal(t, asset.Mint, chain.sentSigners[1].PublicKey())
	assert.Equal(t, 1, chain.sendCalls)
}

func TestIssueAssetSurfacesRejection(t *testing.T) {
	chain := newFakeChain()
	chain.sendErr = errors.New("custom program error: 0x0")

	_, err := NewIssuer(chain).IssueAsset(context.Background(), solana.NewWallet().PrivateKey, 9, 1)
	var rejection *deployerr.OnChainRejectionError
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, "mint creation", rejection.Op)
}

func TestIssueAssetKeepsTimeoutIdentity(t *testing.T) {
	chain := newFakeChain()
	chain.sendErr = &deployerr.ConfirmationTimeoutError{
		Signature: solana.Signature{9}.String(),
		Waited:    30 * time.Second,
	}

	_, err := NewIssuer(chain).IssueAsset(context.Background(), solana.NewWallet().PrivateKey, 9, 1)
	var timeout *deployerr.ConfirmationTimeoutError
	require.True(t, errors.As(err, &timeout), "timeouts must stay distinguishable from rejections")
}

func TestDistributeToFreshDestination(t *testing.T) {
	chain := newFakeChain()
	authority := solana.NewWallet().PrivateKey
	mint := solana.NewWallet().PublicKey()
	destination := solana.NewWallet().PublicKey()

	source, _, err := solana.FindAssociatedTokenAddress(authority.PublicKey(), mint)
	require.NoError(t, err)
	chain.balances[source] = 1_000_000_000_000_000

	dist, err := NewIssuer(chain).Distribute(
		context.Background(), mint, authority, destination, 500_000_000_000_000, true,
	)
	require.NoError(t, err)

	expectedATA, _, err := solana.FindAssociatedTokenAddress(destination, mint)
	require.NoError(t, err)
	assert.Equal(t, expectedATA, dist.DestinationATA)
	assert.Equal(t, uint64(500_000_000_000_000), dist.Amount)
	assert.True(t, dist.CreatedAccount)

	// Account creation precedes the transfer in one transaction.
	require.Len(t, chain.sentInstructions, 2)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, chain.sentInstructions[0].ProgramID())
	assert.Equal(t, solana.TokenProgramID, chain.sentInstructions[1].ProgramID())
}

func TestDistributeToExistingDestination(t *testing.T) {
	chain := newFakeChain()
	authority := solana.NewWallet().PrivateKey
	mint := solana.NewWallet().PublicKey()
	destination := solana.NewWallet().PublicKey()

	source, _, err := solana.FindAssociatedTokenAddress(authority.PublicKey(), mint)
	require.NoError(t, err)
	chain.balances[source] = 100

	destATA, _, err := solana.FindAssociatedTokenAddress(destination, mint)
	require.NoError(t, err)
	chain.existing[destATA] = true

	dist, err := NewIssuer(chain).Distribute(context.Background(), mint, authority, destination, 50, true)
	require.NoError(t, err)
	assert.False(t, dist.CreatedAccount)
	require.Len(t, chain.sentInstructions, 1)
	assert.Equal(t, solana.TokenProgramID, chain.sentInstructions[0].ProgramID())
}

func TestDistributeRejectsOverdraw(t *testing.T) {
	chain := newFakeChain()
	authority := solana.NewWallet().PrivateKey
	mint := solana.NewWallet().PublicKey()

	source, _, err := solana.FindAssociatedTokenAddress(authority.PublicKey(), mint)
	require.NoError(t, err)
	chain.balances[source] = 10

	_, err = NewIssuer(chain).Distribute(
		context.Background(), mint, authority, solana.NewWallet().PublicKey(), 11, true,
	)
	var insufficient *deployerr.InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, uint64(10), insufficient.Observed)
	assert.Equal(t, uint64(11), insufficient.Required)
	assert.Equal(t, mint.String(), insufficient.Asset)
	assert.Zero(t, chain.sendCalls, "overdraws must never reach the chain")
}

func TestDistributeRefusesMissingAccountWhenCreationDisallowed(t *testing.T) {
	chain := newFakeChain()
	authority := solana.NewWallet().PrivateKey
	mint := solana.NewWallet().PublicKey()

	source, _, err := solana.FindAssociatedTokenAddress(authority.PublicKey(), mint)
	require.NoError(t, err)
	chain.balances[source] = 100

	_, err = NewIssuer(chain).Distribute(
		context.Background(), mint, authority, solana.NewWallet().PublicKey(), 1, false,
	)
	require.Error(t, err)
	assert.Zero(t, chain.sendCalls)
}
