// Package scraper polls the exchange announcement catalog and alerts on new
// listing articles. It is a side channel for the operator: discovery and
// entry decisions stay with the broker cycles, which work off the exchange
// instrument list.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"
)

// Dedup remembers which article identifiers have been reported.
type Dedup interface {
	// MarkSeen records the identifier and reports whether it was already
	// present.
	MarkSeen(ctx context.Context, id string) (bool, error)
}

// Notifier is the subset of the notification service the scraper uses.
type Notifier interface {
	Message(ctx context.Context, text string)
}

// article is one entry of the announcement catalog response.
type article struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	ReleaseDate int64  `json:"releaseDate"`
}

// catalogResponse is the announcement catalog envelope.
type catalogResponse struct {
	Data struct {
		Articles []article `json:"articles"`
		Catalogs []struct {
			Articles []article `json:"articles"`
		} `json:"catalogs"`
	} `json:"data"`
}

// Scraper polls the announcement endpoint on an interval.
type Scraper struct {
	url        string
	interval   time.Duration
	exclusions []string
	dedup      Dedup
	notifier   Notifier
	client     *http.Client
	logger     *slog.Logger
}

// New creates a Scraper. Articles whose title contains any exclusion
// substring are ignored.
func New(url string, interval time.Duration, exclusions []string, dedup Dedup, notifier Notifier, logger *slog.Logger) *Scraper {
	return &Scraper{
		url:        url,
		interval:   interval,
		exclusions: exclusions,
		dedup:      dedup,
		notifier:   notifier,
		client:     &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With(slog.String("component", "scraper")),
	}
}

// Run polls until ctx is cancelled. The first poll happens immediately.
func (s *Scraper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll fetches the catalog and reports unseen listing announcements. Fetch
// and decode failures are logged and retried on the next tick.
func (s *Scraper) poll(ctx context.Context) {
	articles, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warn("announcement fetch failed", slog.String("error", err.Error()))
		return
	}

	for _, a := range articles {
		if a.Code == "" || s.excluded(a.Title) {
			continue
		}
		seen, err := s.dedup.MarkSeen(ctx, a.Code)
		if err != nil {
			s.logger.Warn("dedup check failed",
				slog.String("code", a.Code),
				slog.String("error", err.Error()),
			)
			continue
		}
		if seen {
			continue
		}

		s.logger.Info("new announcement",
			slog.String("code", a.Code),
			slog.String("title", a.Title),
		)
		text := "Announcement: " + a.Title
		if assets := ExtractAssets(a.Title); len(assets) > 0 {
			text += " [" + strings.Join(assets, ", ") + "]"
		}
		s.notifier.Message(ctx, text)
	}
}

// fetch retrieves and decodes the catalog endpoint.
func (s *Scraper) fetch(ctx context.Context) ([]article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("scraper: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scraper: fetch announcements: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("scraper: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("scraper: read response: %w", err)
	}

	var cat catalogResponse
	if err := json.Unmarshal(body, &cat); err != nil {
		return nil, fmt.Errorf("scraper: decode response: %w", err)
	}

	articles := cat.Data.Articles
	for _, c := range cat.Data.Catalogs {
		articles = append(articles, c.Articles...)
	}
	return articles, nil
}

// excluded reports whether the title matches any exclusion substring.
func (s *Scraper) excluded(title string) bool {
	for _, ex := range s.exclusions {
		if strings.Contains(title, ex) {
			return true
		}
	}
	return false
}

// ExtractAssets pulls candidate asset tickers out of an announcement title:
// parenthesized runs of 2 to 10 uppercase letters or digits, e.g.
// "Binance Will List Example Token (EXT)" yields ["EXT"].
func ExtractAssets(title string) []string {
	var out []string
	for i := 0; i < len(title); i++ {
		if title[i] != '(' {
			continue
		}
		end := strings.IndexByte(title[i:], ')')
		if end < 0 {
			break
		}
		candidate := title[i+1 : i+end]
		if isTicker(candidate) {
			out = append(out, candidate)
		}
		i += end
	}
	return out
}

// isTicker reports whether s looks like an exchange asset ticker.
func isTicker(s string) bool {
	if len(s) < 2 || len(s) > 10 {
		return false
	}
	for _, r := range s {
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
