package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"listingbot/internal/domain"
)

// BlobWriter is the subset of Writer the archiver needs.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) error
}

// multipartThreshold is the payload size above which uploads switch to the
// multipart path. Kept above the S3 5 MiB part minimum so a multipart
// upload always has at least one full part.
const multipartThreshold = 8 * 1024 * 1024

// Archiver periodically uploads each broker's closed history as JSONL,
// partitioned by month. It reads from the snapshot store rather than the
// live books, so it never touches cycle-owned state.
type Archiver struct {
	writer    BlobWriter
	store     domain.SnapshotStore
	brokers   []string
	prefix    string
	interval  time.Duration
	threshold int
	logger    *slog.Logger
}

// NewArchiver creates an Archiver covering the given brokers.
func NewArchiver(writer BlobWriter, store domain.SnapshotStore, brokers []string, prefix string, interval time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:    writer,
		store:     store,
		brokers:   brokers,
		prefix:    prefix,
		interval:  interval,
		threshold: multipartThreshold,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// Run uploads on the configured interval until ctx is cancelled. A final
// upload runs at shutdown so the archive never trails the last session by
// more than one interval.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			a.archiveAll(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			a.archiveAll(ctx)
		}
	}
}

// archiveAll uploads every broker's closed history. Per-broker failures are
// logged; the next interval retries the full upload since objects are
// overwritten in place.
func (a *Archiver) archiveAll(ctx context.Context) {
	for _, broker := range a.brokers {
		if err := a.archiveBroker(ctx, broker); err != nil {
			a.logger.Warn("archive upload failed",
				slog.String("broker", broker),
				slog.String("error", err.Error()),
			)
		}
	}
}

// archiveBroker uploads one broker's closed history.
func (a *Archiver) archiveBroker(ctx context.Context, broker string) error {
	snap, err := a.store.Load(ctx, broker)
	if err != nil {
		return fmt.Errorf("s3blob: load snapshot %s: %w", broker, err)
	}
	if len(snap.Closed) == 0 {
		return nil
	}

	buf, err := marshalJSONL(snap.Closed)
	if err != nil {
		return fmt.Errorf("s3blob: marshal closed history %s: %w", broker, err)
	}

	// Years of closed trades can outgrow a single PutObject; large
	// histories go through the multipart uploader instead.
	path := a.archivePath(broker, time.Now().UTC())
	if len(buf) >= a.threshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), "application/x-ndjson", minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return err
	}

	a.logger.Info("closed history archived",
		slog.String("broker", broker),
		slog.String("path", path),
		slog.Int("records", len(snap.Closed)),
	)
	return nil
}

// archivePath builds the object key, partitioned by year-month:
//
//	closed/binance/2026-08.jsonl
func (a *Archiver) archivePath(broker string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s.jsonl", a.prefix, broker, now.Format("2006-01"))
}

// marshalJSONL encodes records as newline-delimited JSON.
func marshalJSONL(records []domain.ClosedPosition) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
