package token

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMintAccount lays out the 82-byte SPL mint account by hand.
func buildMintAccount(authority solana.PublicKey, supply uint64, decimals uint8, initialized bool) []byte {
	data := make([]byte, mintAccountSize)
	binary.LittleEndian.PutUint32(data[0:4], 1)
	copy(data[4:36], authority.Bytes())
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	if initialized {
		data[45] = 1
	}
	return data
}

func TestDecodeMint(t *testing.T) {
	authority := solana.NewWallet().PublicKey()
	data := buildMintAccount(authority, 1_000_000_000_000_000, 9, true)

	state, err := DecodeMint(data)
	require.NoError(t, err)
	assert.Equal(t, authority, state.MintAuthority)
	assert.Equal(t, uint64(1_000_000_000_000_000), state.Supply)
	assert.Equal(t, uint8(9), state.Decimals)
	assert.True(t, state.Initialized)
}

func TestDecodeMintWithoutAuthority(t *testing.T) {
	data := buildMintAccount(solana.NewWallet().PublicKey(), 42, 6, true)
	binary.LittleEndian.PutUint32(data[0:4], 0)

	state, err := DecodeMint(data)
	require.NoError(t, err)
	assert.True(t, state.MintAuthority.IsZero())
}

func TestDecodeMintRejectsShortData(t *testing.T) {
	_, err := DecodeMint(make([]byte, mintAccountSize-1))
	require.Error(t, err)
}

type staticReader struct {
	data []byte
	err  error
}

func (r staticReader) AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	return r.data, r.err
}

func TestFetchMint(t *testing.T) {
	authority := solana.NewWallet().PublicKey()
	reader := staticReader{data: buildMintAccount(authority, 7, 9, true)}

	state, err := FetchMint(context.Background(), reader, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), state.Supply)
}

func TestFetchMintPropagatesReadFailure(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	_, err := FetchMint(context.Background(), staticReader{err: errors.New("gone")}, mint)
	require.Error(t, err)
	assert.Contains(t, err.Error(), mint.String())
}
