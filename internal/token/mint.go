package token

import (
	"context"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// MintState is the decoded on-chain mint account, read by the
// verification step and by resumability checks.
type MintState struct {
	MintAuthority solana.PublicKey
	Supply        uint64
	Decimals      uint8
	Initialized   bool
}

// DecodeMint parses the fixed-layout SPL mint account.
func DecodeMint(data []byte) (*MintState, error) {
	if len(data) < mintAccountSize {
		return nil, errors.Errorf("mint account data too short: %d bytes", len(data))
	}
	dec := bin.NewBinDecoder(data)

	authorityOption, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, errors.Wrap(err, "mint authority option")
	}
	authorityBytes, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, errors.Wrap(err, "mint authority")
	}
	supply, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return nil, errors.Wrap(err, "mint supply")
	}
	decimals, err := dec.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "mint decimals")
	}
	initialized, err := dec.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "mint initialized flag")
	}

	state := &MintState{
		Supply:      supply,
		Decimals:    decimals,
		Initialized: initialized == 1,
	}
	if authorityOption == 1 {
		state.MintAuthority = solana.PublicKeyFromBytes(authorityBytes)
	}
	return state, nil
}

// MintReader reads raw account data.
type MintReader interface {
	AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error)
}

// FetchMint loads and decodes a mint account from the ledger.
func FetchMint(ctx context.Context, reader MintReader, mint solana.PublicKey) (*MintState, error) {
	data, err := reader.AccountData(ctx, mint)
	if err != nil {
		return nil, errors.Wrapf(err, "mint account %s", mint)
	}
	return DecodeMint(data)
}
