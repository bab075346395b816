// Package solana is the on-chain execution backend: it resolves the
// associated token account that holds each traded mint and reports the
// wallet balance.
package solana

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// rpcClient is the subset of *rpc.Client the backend uses.
type rpcClient interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

var _ rpcClient = (*rpc.Client)(nil)

// ParseCommitment maps a config string to an rpc commitment level,
// defaulting to confirmed.
func ParseCommitment(s string) rpc.CommitmentType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}

// ParseMint validates a base58 mint address.
func ParseMint(assetID string) (solana.PublicKey, error) {
	mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(assetID))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %q: %v", domain.ErrInvalidAssetID, assetID, err)
	}
	return mint, nil
}

// Backend talks to a Solana RPC node on behalf of one wallet.
type Backend struct {
	rpc    rpcClient
	owner  solana.PrivateKey
	commit rpc.CommitmentType
	logger *slog.Logger
}

// NewBackend creates a Backend for owner against rpcURL.
func NewBackend(rpcURL string, owner solana.PrivateKey, commitment string, logger *slog.Logger) *Backend {
	return newBackend(rpc.New(rpcURL), owner, ParseCommitment(commitment), logger)
}

func newBackend(client rpcClient, owner solana.PrivateKey, commit rpc.CommitmentType, logger *slog.Logger) *Backend {
	return &Backend{
		rpc:    client,
		owner:  owner,
		commit: commit,
		logger: logger.With(slog.String("component", "solana_backend")),
	}
}

// Wallet returns the wallet's public key.
func (b *Backend) Wallet() solana.PublicKey { return b.owner.PublicKey() }

// Balance returns the wallet balance in lamports.
func (b *Backend) Balance(ctx context.Context) (uint64, error) {
	res, err := b.rpc.GetBalance(ctx, b.owner.PublicKey(), b.commit)
	if err != nil {
		return 0, fmt.Errorf("solana: get balance: %w: %v", domain.ErrBackendUnavailable, err)
	}
	return res.Value, nil
}

// ResolveHoldingAccount returns the wallet's token account for the mint
// assetID, creating the associated token account when none exists.
func (b *Backend) ResolveHoldingAccount(ctx context.Context, assetID string) (string, error) {
	mint, err := ParseMint(assetID)
	if err != nil {
		return "", err
	}
	owner := b.owner.PublicKey()

	res, err := b.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{Commitment: b.commit, Encoding: solana.EncodingBase64},
	)
	if err != nil {
		return "", fmt.Errorf("solana: list token accounts: %w: %v", domain.ErrBackendUnavailable, err)
	}
	if res != nil && len(res.Value) > 0 && res.Value[0] != nil {
		return res.Value[0].Pubkey.String(), nil
	}

	ata, err := b.createAssociatedAccount(ctx, owner, mint)
	if err != nil {
		return "", err
	}
	return ata.String(), nil
}

func (b *Backend) createAssociatedAccount(ctx context.Context, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("solana: derive associated token address: %w", err)
	}

	bh, err := b.rpc.GetLatestBlockhash(ctx, b.commit)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("solana: latest blockhash: %w: %v", domain.ErrBackendUnavailable, err)
	}
	if bh == nil || bh.Value == nil {
		return solana.PublicKey{}, fmt.Errorf("solana: latest blockhash: %w: empty response", domain.ErrBackendUnavailable)
	}

	ix := associatedtokenaccount.NewCreateInstruction(owner, owner, mint).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, bh.Value.Blockhash, solana.TransactionPayer(owner))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("solana: build create-account tx: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(owner) {
			return &b.owner
		}
		return nil
	}); err != nil {
		return solana.PublicKey{}, fmt.Errorf("solana: sign create-account tx: %w", err)
	}

	sig, err := b.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: b.commit,
	})
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("solana: send create-account tx: %w: %v", domain.ErrBackendUnavailable, err)
	}

	b.logger.InfoContext(ctx, "created associated token account",
		slog.String("mint", mint.String()),
		slog.String("account", ata.String()),
		slog.String("signature", sig.String()),
	)
	return ata, nil
}

// PaperBackend validates mints and derives associated token addresses
// without touching the network. It backs dry-run and paper modes.
type PaperBackend struct {
	owner   solana.PublicKey
	balance uint64
}

// NewPaperBackend creates a PaperBackend for owner reporting a fixed balance.
func NewPaperBackend(owner solana.PublicKey, balance uint64) *PaperBackend {
	return &PaperBackend{owner: owner, balance: balance}
}

// ResolveHoldingAccount derives the associated token address for assetID.
func (p *PaperBackend) ResolveHoldingAccount(_ context.Context, assetID string) (string, error) {
	mint, err := ParseMint(assetID)
	if err != nil {
		return "", err
	}
	ata, _, err := solana.FindAssociatedTokenAddress(p.owner, mint)
	if err != nil {
		return "", fmt.Errorf("solana: derive associated token address: %w", err)
	}
	return ata.String(), nil
}

// Wallet returns the simulated owner's public key.
func (p *PaperBackend) Wallet() solana.PublicKey { return p.owner }

// Balance returns the configured paper balance.
func (p *PaperBackend) Balance(context.Context) (uint64, error) { return p.balance, nil }
