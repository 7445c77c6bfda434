// Package chain wraps the ledger client used by every pipeline step:
// balance queries, rent exemption, and synchronous-to-confirmation
// transaction submission over RPC plus a websocket subscription.
package chain

import (
	"context"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	confirm "github.com/gagliardetto/solana-go/rpc/sendAndConfirmTransaction"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/pkg/errors"

	"kira-treasury-go/internal/config"
	"kira-treasury-go/internal/deployerr"
)

// Client talks to a single cluster. Mutating calls suspend until the
// ledger confirms or the bounded wait elapses; there is no background
// completion.
type Client struct {
	rpc            *rpc.Client
	wsEndpoint     string
	confirmTimeout time.Duration
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		rpc:            rpc.New(cfg.Network.RPCEndpoint()),
		wsEndpoint:     cfg.Network.WSEndpoint(),
		confirmTimeout: cfg.ConfirmTimeout,
	}
}

// Balance returns the spendable lamport balance of an account. Accounts
// the ledger has never seen report zero.
func (c *Client) Balance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, address, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, errors.Wrapf(err, "balance query for %s", address)
	}
	return out.Value, nil
}

// TokenBalance returns the base-unit balance of a token account.
func (c *Client) TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, errors.Wrapf(err, "token balance query for %s", account)
	}
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "token balance for %s is not an integer", account)
	}
	return amount, nil
}

// AccountExists reports whether an account is present on the ledger.
func (c *Client) AccountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	out, err := c.rpc.GetAccountInfo(ctx, address)
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "account lookup for %s", address)
	}
	return out.Value != nil, nil
}

// AccountData returns the raw account data, or rpc.ErrNotFound.
func (c *Client) AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	out, err := c.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	if out.Value == nil {
		return nil, rpc.ErrNotFound
	}
	return out.Value.Data.GetBinary(), nil
}

// MinimumRentExemption returns the lamports needed to make an account
// of the given size rent exempt.
func (c *Client) MinimumRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	lamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, dataSize, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, errors.Wrap(err, "rent exemption query")
	}
	return lamports, nil
}

// Slot returns the current confirmed slot. Used by the soak check.
func (c *Client) Slot(ctx context.Context) (uint64, error) {
	slot, err := c.rpc.GetSlot(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, errors.Wrap(err, "slot query")
	}
	return slot, nil
}

// SendInstructions builds a transaction from the instructions, signs it
// with the provided keys, submits it, and waits for confirmation. A
// confirmation that does not arrive within the bounded wait returns
// ConfirmationTimeoutError carrying the submitted signature: the outcome
// is ambiguous and must be resolved by a read-only check, never by a
// blind resubmit.
func (c *Client) SendInstructions(
	ctx context.Context,
	payer solana.PublicKey,
	instructions []solana.Instruction,
	signers []solana.PrivateKey,
) (solana.Signature, error) {
	recent, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to get latest blockhash")
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to build transaction")
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if key.Equals(signers[i].PublicKey()) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to sign transaction")
	}

	wsClient, err := ws.Connect(ctx, c.wsEndpoint)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to connect confirmation socket")
	}
	defer wsClient.Close()

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	sig, err := confirm.SendAndConfirmTransaction(waitCtx, c.rpc, wsClient, tx)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return sig, &deployerr.ConfirmationTimeoutError{
			Signature: sig.String(),
			Waited:    c.confirmTimeout,
		}
	}
	if err != nil {
		return sig, errors.Wrap(err, "transaction submission failed")
	}
	return sig, nil
}
