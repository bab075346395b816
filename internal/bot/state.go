package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// StateUploader copies state snapshots to durable storage.
type StateUploader interface {
	SaveState(ctx context.Context, metrics domain.Metrics, configTOML []byte) error
	ArchiveTrades(ctx context.Context, trades []domain.Trade, before time.Time) (int64, error)
}

// StateConfig names where the loop persists its state.
type StateConfig struct {
	MetricsPath      string
	ConfigBackupPath string
	// ArchiveAfter is the age past which trades are copied to the archive.
	// Zero disables archiving.
	ArchiveAfter time.Duration
}

// SaveState writes the metrics snapshot and the config backup to disk and,
// when an uploader is configured, to blob storage.
func (b *Bot) SaveState(ctx context.Context) error {
	b.iterMu.Lock()
	defer b.iterMu.Unlock()
	return b.saveState(ctx)
}

func (b *Bot) saveState(ctx context.Context) error {
	var errs []error

	if path := b.cfg.State.MetricsPath; path != "" {
		if err := ensureDir(path); err != nil {
			errs = append(errs, err)
		} else if err := b.deps.Monitor.SaveMetrics(path); err != nil {
			errs = append(errs, err)
		}
	}

	var configTOML []byte
	if b.deps.ConfigSnapshot != nil {
		data, err := b.deps.ConfigSnapshot()
		if err != nil {
			errs = append(errs, fmt.Errorf("bot: encode config: %w", err))
		} else {
			configTOML = data
		}
	}
	if path := b.cfg.State.ConfigBackupPath; path != "" && len(configTOML) > 0 {
		if err := ensureDir(path); err != nil {
			errs = append(errs, err)
		} else if err := os.WriteFile(path, configTOML, 0o600); err != nil {
			errs = append(errs, fmt.Errorf("bot: write %s: %w", path, err))
		}
	}

	if b.deps.Backup != nil {
		if err := b.deps.Backup.SaveState(ctx, b.deps.Monitor.Metrics(), configTOML); err != nil {
			errs = append(errs, err)
		}
		if b.cfg.State.ArchiveAfter > 0 {
			cutoff := b.now().Add(-b.cfg.State.ArchiveAfter)
			n, err := b.deps.Backup.ArchiveTrades(ctx, b.deps.Trading.Trades(), cutoff)
			if err != nil {
				errs = append(errs, err)
			} else if n > 0 {
				b.logger.InfoContext(ctx, "archived trades", slog.Int64("count", n))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	b.logger.DebugContext(ctx, "state saved")
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("bot: create %s: %w", dir, err)
	}
	return nil
}
