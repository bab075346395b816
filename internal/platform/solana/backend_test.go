package solana

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

type fakeRPC struct {
	existing solana.PublicKey
	hasToken bool
	sent     []*solana.Transaction
	failList bool
}

func (f *fakeRPC) GetBalance(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	return &rpc.GetBalanceResult{Value: 42_000}, nil
}

func (f *fakeRPC) GetTokenAccountsByOwner(context.Context, solana.PublicKey, *rpc.GetTokenAccountsConfig, *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
	if f.failList {
		return nil, errors.New("connection refused")
	}
	if !f.hasToken {
		return &rpc.GetTokenAccountsResult{}, nil
	}
	return &rpc.GetTokenAccountsResult{Value: []*rpc.TokenAccount{{Pubkey: f.existing}}}, nil
}

func (f *fakeRPC) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{1}}}, nil
}

func (f *fakeRPC) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func testBackend(f *fakeRPC) (*Backend, solana.PrivateKey) {
	owner := solana.NewWallet().PrivateKey
	return newBackend(f, owner, rpc.CommitmentConfirmed, slog.New(slog.NewJSONHandler(io.Discard, nil))), owner
}

func TestResolveExistingAccount(t *testing.T) {
	existing := solana.NewWallet().PublicKey()
	f := &fakeRPC{existing: existing, hasToken: true}
	b, _ := testBackend(f)

	mint := solana.NewWallet().PublicKey()
	acct, err := b.ResolveHoldingAccount(context.Background(), mint.String())
	require.NoError(t, err)
	assert.Equal(t, existing.String(), acct)
	assert.Empty(t, f.sent)
}

func TestResolveCreatesAssociatedAccount(t *testing.T) {
	f := &fakeRPC{}
	b, owner := testBackend(f)

	mint := solana.NewWallet().PublicKey()
	acct, err := b.ResolveHoldingAccount(context.Background(), mint.String())
	require.NoError(t, err)

	want, _, err := solana.FindAssociatedTokenAddress(owner.PublicKey(), mint)
	require.NoError(t, err)
	assert.Equal(t, want.String(), acct)
	require.Len(t, f.sent, 1)
	assert.Len(t, f.sent[0].Signatures, 1)
}

func TestResolveInvalidMint(t *testing.T) {
	b, _ := testBackend(&fakeRPC{})
	_, err := b.ResolveHoldingAccount(context.Background(), "not-a-mint!")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidAssetID))
}

func TestResolveRPCFailure(t *testing.T) {
	b, _ := testBackend(&fakeRPC{failList: true})
	_, err := b.ResolveHoldingAccount(context.Background(), solana.NewWallet().PublicKey().String())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.False(t, errors.Is(err, domain.ErrInvalidAssetID))
}

func TestBalance(t *testing.T) {
	b, _ := testBackend(&fakeRPC{})
	bal, err := b.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42_000), bal)
}

func TestPaperBackend(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	p := NewPaperBackend(owner, 7)
	mint := solana.NewWallet().PublicKey()

	acct, err := p.ResolveHoldingAccount(context.Background(), mint.String())
	require.NoError(t, err)
	want, _, _ := solana.FindAssociatedTokenAddress(owner, mint)
	assert.Equal(t, want.String(), acct)

	_, err = p.ResolveHoldingAccount(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrInvalidAssetID))

	bal, _ := p.Balance(context.Background())
	assert.Equal(t, uint64(7), bal)
}

func TestParseCommitment(t *testing.T) {
	assert.Equal(t, rpc.CommitmentFinalized, ParseCommitment("Finalized"))
	assert.Equal(t, rpc.CommitmentProcessed, ParseCommitment("processed"))
	assert.Equal(t, rpc.CommitmentConfirmed, ParseCommitment(""))
}
