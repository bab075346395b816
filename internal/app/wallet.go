package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/gagliardetto/solana-go"

	"github.com/alanyoungcy/pumpbot/internal/config"
	"github.com/alanyoungcy/pumpbot/internal/crypto"
)

// loadWallet resolves the trading keypair. When only a keygen path is
// configured and the file does not exist, a new keypair is generated and
// saved there if the config allows it.
func loadWallet(cfg config.WalletConfig, logger *slog.Logger) (solana.PrivateKey, error) {
	keyCfg := crypto.KeyConfig{
		RawPrivateKey:    cfg.PrivateKey,
		EncryptedKeyPath: cfg.EncryptedKeyPath,
		KeyPassword:      cfg.KeyPassword,
		KeygenPath:       cfg.KeygenPath,
	}

	onlyKeygen := cfg.PrivateKey == "" && cfg.EncryptedKeyPath == "" && cfg.KeygenPath != ""
	if onlyKeygen {
		if _, err := os.Stat(cfg.KeygenPath); errors.Is(err, fs.ErrNotExist) {
			if !cfg.GenerateIfMissing {
				return nil, fmt.Errorf("app: wallet file %s not found", cfg.KeygenPath)
			}
			logger.Warn("wallet file not found, generating new wallet",
				slog.String("path", cfg.KeygenPath),
			)
			key, err := crypto.GenerateKeygenFile(cfg.KeygenPath)
			if err != nil {
				return nil, fmt.Errorf("app: generate wallet: %w", err)
			}
			logger.Info("generated new wallet",
				slog.String("pubkey", key.PublicKey().String()),
				slog.String("path", cfg.KeygenPath),
			)
			return key, nil
		}
	}

	key, err := crypto.LoadKey(keyCfg)
	if err != nil {
		return nil, fmt.Errorf("app: load wallet: %w", err)
	}
	return key, nil
}
