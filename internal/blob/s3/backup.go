package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

const (
	metricsObject = "metrics.json"
	configObject  = "config_backup.toml"

	archiveEvent = "archive.trades"
)

// multipartWriter is implemented by Writer; large archives go through it.
type multipartWriter interface {
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// Backup uploads bot state under a key prefix:
//
//	<prefix>/state/metrics.json
//	<prefix>/state/config_backup.toml
//	<prefix>/archive/trades/2025-01/20250131T120000Z.jsonl
type Backup struct {
	writer domain.BlobWriter
	audit  domain.AuditStore
	prefix string

	mu       sync.Mutex
	archived time.Time
	resumed  bool
}

// NewBackup creates a Backup. audit may be nil.
func NewBackup(writer domain.BlobWriter, audit domain.AuditStore, prefix string) *Backup {
	return &Backup{writer: writer, audit: audit, prefix: prefix}
}

// MetricsPath returns the key the latest metrics snapshot is stored at.
func (b *Backup) MetricsPath() string {
	return path.Join(b.prefix, "state", metricsObject)
}

// ConfigPath returns the key the latest config snapshot is stored at.
func (b *Backup) ConfigPath() string {
	return path.Join(b.prefix, "state", configObject)
}

// SaveState uploads the metrics snapshot and, when non-empty, the encoded
// configuration.
func (b *Backup) SaveState(ctx context.Context, metrics domain.Metrics, configTOML []byte) error {
	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal metrics: %w", err)
	}
	if err := b.writer.Put(ctx, b.MetricsPath(), bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("s3blob: save metrics: %w", err)
	}
	if len(configTOML) > 0 {
		if err := b.writer.Put(ctx, b.ConfigPath(), bytes.NewReader(configTOML), "application/toml"); err != nil {
			return fmt.Errorf("s3blob: save config: %w", err)
		}
	}
	return nil
}

// ArchiveTrades uploads the trades in [mark, before) as one JSONL object
// and returns the number archived. mark is the cutoff of the previous
// upload; it is recovered from the audit log after a restart when one is
// configured. A cutoff at or before the mark is a no-op.
func (b *Backup) ArchiveTrades(ctx context.Context, trades []domain.Trade, before time.Time) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.resumed {
		if err := b.resume(ctx); err != nil {
			return 0, err
		}
	}
	if !before.After(b.archived) {
		return 0, nil
	}

	var batch []domain.Trade
	for _, t := range trades {
		if !t.Timestamp.Before(b.archived) && t.Timestamp.Before(before) {
			batch = append(batch, t)
		}
	}
	if len(batch) == 0 {
		b.archived = before
		return 0, nil
	}

	buf, err := marshalJSONL(batch)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	key := archivePath(b.prefix, "trades", before)
	if mw, ok := b.writer.(multipartWriter); ok && int64(len(buf)) > minPartSize {
		err = mw.PutMultipart(ctx, key, bytes.NewReader(buf), minPartSize)
	} else {
		err = b.writer.Put(ctx, key, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	from := b.archived
	b.archived = before
	count := int64(len(batch))
	if b.audit != nil {
		if err := b.audit.Log(ctx, archiveEvent, map[string]any{
			"path":   key,
			"count":  count,
			"from":   from.UTC().Format(time.RFC3339Nano),
			"before": before.UTC().Format(time.RFC3339Nano),
		}); err != nil {
			return count, fmt.Errorf("s3blob: archive trades audit log: %w", err)
		}
	}
	return count, nil
}

// resume restores the archive mark from the newest archive audit entry.
// b.mu must be held.
func (b *Backup) resume(ctx context.Context) error {
	if b.audit != nil {
		entries, err := b.audit.List(ctx, domain.ListOpts{Event: archiveEvent, Limit: 1})
		if err != nil {
			return fmt.Errorf("s3blob: resume archive mark: %w", err)
		}
		if len(entries) > 0 {
			if v, ok := entries[0].Detail["before"].(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
					b.archived = ts
				}
			}
		}
	}
	b.resumed = true
	return nil
}

// LoadMetrics reads the latest metrics snapshot from r.
func LoadMetrics(ctx context.Context, r domain.BlobReader, key string) (domain.Metrics, error) {
	body, err := r.Get(ctx, key)
	if err != nil {
		return domain.Metrics{}, err
	}
	defer body.Close()

	var m domain.Metrics
	if err := json.NewDecoder(body).Decode(&m); err != nil {
		return domain.Metrics{}, fmt.Errorf("s3blob: decode metrics %s: %w", key, err)
	}
	return m, nil
}

// archivePath builds the key for one archive batch, partitioned by the
// year-month of its cutoff and named after the cutoff itself.
func archivePath(prefix, kind string, before time.Time) string {
	before = before.UTC()
	return path.Join(prefix, "archive", kind, before.Format("2006-01"), before.Format("20060102T150405Z")+".jsonl")
}

// marshalJSONL encodes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
