package deployerr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLamports(t *testing.T) {
	assert.Equal(t, "1.5 SOL", FormatLamports(1_500_000_000))
	assert.Equal(t, "0.1 SOL", FormatLamports(100_000_000))
	assert.Equal(t, "0.000005 SOL", FormatLamports(5_000))
	assert.Equal(t, "0 SOL", FormatLamports(0))
}

func TestInsufficientFundsMessage(t *testing.T) {
	native := &InsufficientFundsError{
		Address:  "addr",
		Observed: 50_000_000,
		Required: 100_000_000,
	}
	assert.Contains(t, native.Error(), "lamports")

	asset := &InsufficientFundsError{
		Address:  "ata",
		Observed: 10,
		Required: 11,
		Asset:    "MintAddr",
	}
	assert.Contains(t, asset.Error(), "MintAddr base units")
}

func TestWrappedCausesStayReachable(t *testing.T) {
	cause := errors.New("disk full")
	var err error = &PersistenceError{Op: "write", Path: "x", Err: cause}
	require.ErrorIs(t, err, cause)

	err = &OnChainRejectionError{Op: "mint creation", Err: cause}
	require.ErrorIs(t, err, cause)

	err = &MalformedStateError{Path: "x", Err: cause}
	require.ErrorIs(t, err, cause)
}
