package s3blob

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"listingbot/internal/domain"
)

type recordedUpload struct {
	path        string
	contentType string
	size        int
	multipart   bool
}

type fakeBlobWriter struct {
	uploads []recordedUpload
}

func (w *fakeBlobWriter) record(path, contentType string, data io.Reader, multipart bool) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.uploads = append(w.uploads, recordedUpload{
		path:        path,
		contentType: contentType,
		size:        len(body),
		multipart:   multipart,
	})
	return nil
}

func (w *fakeBlobWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	return w.record(path, contentType, data, false)
}

func (w *fakeBlobWriter) PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) error {
	return w.record(path, contentType, data, true)
}

type fakeSnapshotStore struct {
	snaps map[string]domain.Snapshot
}

func (s *fakeSnapshotStore) Load(ctx context.Context, broker string) (domain.Snapshot, error) {
	return s.snaps[broker], nil
}

func (s *fakeSnapshotStore) Save(ctx context.Context, broker string, snap domain.Snapshot) error {
	s.snaps[broker] = snap
	return nil
}

func closedRecord(symbol string) domain.ClosedPosition {
	return domain.ClosedPosition{
		Position: domain.Position{
			ID:         "6b6f7a2e-0000-4000-8000-000000000001",
			Broker:     "binance",
			Symbol:     symbol,
			EntryPrice: 40000,
			Side:       domain.SideBuy,
			Size:       0.002,
			Status:     domain.StatusLive,
			StopLoss:   38800,
			TakeProfit: 48000,
		},
		ExitPrice:     30000,
		Profit:        -10000,
		ProfitPercent: -25,
		ClosedAt:      time.Date(2026, 2, 14, 14, 0, 0, 0, time.UTC),
	}
}

func testArchiver(writer BlobWriter, store domain.SnapshotStore, brokers []string) *Archiver {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewArchiver(writer, store, brokers, "closed", time.Hour, logger)
}

func TestArchiveBrokerUploadsJSONL(t *testing.T) {
	writer := &fakeBlobWriter{}
	store := &fakeSnapshotStore{snaps: map[string]domain.Snapshot{
		"binance": {Closed: []domain.ClosedPosition{closedRecord("NEWUSDT")}},
	}}
	a := testArchiver(writer, store, []string{"binance"})

	if err := a.archiveBroker(context.Background(), "binance"); err != nil {
		t.Fatalf("archiveBroker: %v", err)
	}

	if len(writer.uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(writer.uploads))
	}
	up := writer.uploads[0]
	if up.multipart {
		t.Error("small history used the multipart path")
	}
	if up.contentType != "application/x-ndjson" {
		t.Errorf("contentType = %q", up.contentType)
	}
	if up.size == 0 {
		t.Error("uploaded an empty body")
	}
}

func TestArchiveBrokerSwitchesToMultipartAboveThreshold(t *testing.T) {
	writer := &fakeBlobWriter{}
	store := &fakeSnapshotStore{snaps: map[string]domain.Snapshot{
		"binance": {Closed: []domain.ClosedPosition{closedRecord("NEWUSDT")}},
	}}
	a := testArchiver(writer, store, []string{"binance"})
	a.threshold = 1 // any payload exceeds it

	if err := a.archiveBroker(context.Background(), "binance"); err != nil {
		t.Fatalf("archiveBroker: %v", err)
	}

	if len(writer.uploads) != 1 || !writer.uploads[0].multipart {
		t.Errorf("uploads = %+v, want one multipart upload", writer.uploads)
	}
}

func TestArchiveBrokerSkipsEmptyHistory(t *testing.T) {
	writer := &fakeBlobWriter{}
	store := &fakeSnapshotStore{snaps: map[string]domain.Snapshot{}}
	a := testArchiver(writer, store, []string{"binance"})

	if err := a.archiveBroker(context.Background(), "binance"); err != nil {
		t.Fatalf("archiveBroker: %v", err)
	}
	if len(writer.uploads) != 0 {
		t.Errorf("uploads = %+v, want none for an empty history", writer.uploads)
	}
}

func TestArchivePathPartitionsByMonth(t *testing.T) {
	a := testArchiver(&fakeBlobWriter{}, &fakeSnapshotStore{snaps: map[string]domain.Snapshot{}}, nil)

	got := a.archivePath("binance", time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC))
	if got != "closed/binance/2026-08.jsonl" {
		t.Errorf("archivePath = %q, want closed/binance/2026-08.jsonl", got)
	}
}
