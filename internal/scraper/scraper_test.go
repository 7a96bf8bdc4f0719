package scraper

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Message(ctx context.Context, text string) {
	n.messages = append(n.messages, text)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtractAssets(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{"single ticker", "Binance Will List Example Token (EXT)", []string{"EXT"}},
		{"multiple tickers", "Binance Adds TOKEN (TKN) and Other (OTH2)", []string{"TKN", "OTH2"}},
		{"lowercase rejected", "New pair (abc)", nil},
		{"too short rejected", "Version (2) released", nil},
		{"too long rejected", "See (VERYLONGTICKER) here", nil},
		{"no parentheses", "Plain title", nil},
		{"unbalanced open", "Broken (EXT", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAssets(tt.title)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractAssets(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestPollReportsNewArticlesOnce(t *testing.T) {
	ctx := context.Background()

	body := `{"data":{"catalogs":[{"articles":[
		{"code":"abc123","title":"Binance Will List Example Token (EXT)","releaseDate":1770000000000},
		{"code":"def456","title":"Binance Adds EXAMPLE on Isolated Margin","releaseDate":1770000000001}
	]}]}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	defer srv.Close()

	notifier := &recordingNotifier{}
	s := New(srv.URL, time.Minute, []string{"Margin"}, NewMemoryDedup(), notifier, testLogger())

	s.poll(ctx)

	if len(notifier.messages) != 1 {
		t.Fatalf("messages = %v, want exactly one", notifier.messages)
	}
	msg := notifier.messages[0]
	if !strings.Contains(msg, "Example Token") || !strings.Contains(msg, "[EXT]") {
		t.Errorf("message = %q", msg)
	}

	// A second poll over the same catalog reports nothing new.
	s.poll(ctx)
	if len(notifier.messages) != 1 {
		t.Errorf("messages after second poll = %v, want still one", notifier.messages)
	}
}

func TestPollToleratesFetchFailure(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := &recordingNotifier{}
	s := New(srv.URL, time.Minute, nil, NewMemoryDedup(), notifier, testLogger())

	s.poll(ctx)

	if len(notifier.messages) != 0 {
		t.Errorf("messages = %v, want none on fetch failure", notifier.messages)
	}
}

func TestMemoryDedup(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDedup()

	seen, err := d.MarkSeen(ctx, "abc123")
	if err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if seen {
		t.Error("first MarkSeen reported already seen")
	}

	seen, err = d.MarkSeen(ctx, "abc123")
	if err != nil {
		t.Fatalf("second MarkSeen: %v", err)
	}
	if !seen {
		t.Error("second MarkSeen reported unseen")
	}
}
