package ingestor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"market-sentiment-pipeline/internal/entity"
	"market-sentiment-pipeline/internal/pipeline/config"
	"market-sentiment-pipeline/internal/pipeline/repository"
	"market-sentiment-pipeline/pkg/logger"
	"market-sentiment-pipeline/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"
	"github.com/mmcdole/gofeed"
	gocache "github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
)

// FeedIngestor is a producer in front of the pipeline: it pulls configured
// RSS feeds on a schedule, extracts readable article text, and enqueues the
// result as pending items with source=news. Its failures never touch the
// core loop.
type FeedIngestor struct {
	cfg     config.Ingestor
	staging repository.StagingRepository
	logger  *logger.Logger
	client  *http.Client
	parser  *gofeed.Parser
	seen    *gocache.Cache
}

type feedItemMetadata struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Feed      string `json:"feed"`
	Published string `json:"published,omitempty"`
}

// NewFeedIngestor creates a new FeedIngestor.
func NewFeedIngestor(cfg config.Ingestor, staging repository.StagingRepository, log *logger.Logger) *FeedIngestor {
	dedupeTTL := cfg.DedupeTTL
	if dedupeTTL <= 0 {
		dedupeTTL = 24 * time.Hour
	}
	return &FeedIngestor{
		cfg:     cfg,
		staging: staging,
		logger:  log,
		client:  &http.Client{Timeout: 30 * time.Second},
		parser:  gofeed.NewParser(),
		seen:    gocache.New(dedupeTTL, time.Hour),
	}
}

// Start schedules periodic feed runs until ctx is cancelled.
func (f *FeedIngestor) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(f.cfg.Schedule, func() { f.Run(ctx) }); err != nil {
		return err
	}
	c.Start()
	f.logger.Info("Feed ingestor started",
		logger.StringField("schedule", f.cfg.Schedule),
		logger.IntField("feeds", len(f.cfg.Feeds)),
	)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		f.logger.Info("Feed ingestor stopped")
	}()
	return nil
}

// Run pulls every configured feed once.
func (f *FeedIngestor) Run(ctx context.Context) {
	maxConcurrent := f.cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, maxConcurrent)

	for _, feedURL := range f.cfg.Feeds {
		if !utils.ShouldContinue(ctx, f.logger) {
			break
		}

		wg.Add(1)
		semaphore <- struct{}{}
		feedURL := feedURL
		utils.GoSafe(func() {
			defer wg.Done()
			defer func() { <-semaphore }()
			f.ingestFeed(ctx, feedURL)
		})
	}
	wg.Wait()
}

func (f *FeedIngestor) ingestFeed(ctx context.Context, feedURL string) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		f.logger.Error("Failed to parse feed", logger.ErrorField(err), logger.StringField("feed", feedURL))
		return
	}

	enqueued := 0
	for _, item := range feed.Items {
		if !utils.ShouldContinue(ctx, f.logger) {
			return
		}

		hash := contentHash(item.Title, item.Link)
		if _, dup := f.seen.Get(hash); dup {
			continue
		}

		text := item.Title
		if body := f.fetchArticleText(ctx, item.Link); body != "" {
			text = fmt.Sprintf("%s\n\n%s", item.Title, body)
		}
		if len(text) > entity.MaxTextLength {
			text = text[:entity.MaxTextLength]
		}

		metadata, err := json.Marshal(feedItemMetadata{
			Title:     item.Title,
			Link:      item.Link,
			Feed:      feedURL,
			Published: item.Published,
		})
		if err != nil {
			continue
		}

		pending := entity.PendingItem{
			Text:       text,
			Source:     entity.SourceNews,
			Metadata:   metadata,
			EnqueuedAt: time.Now().UTC(),
		}
		if err := pending.Validate(); err != nil {
			f.logger.Error("Skipping invalid feed item", logger.ErrorField(err), logger.StringField("link", item.Link))
			continue
		}
		if err := f.staging.Enqueue(ctx, &pending); err != nil {
			f.logger.Error("Failed to enqueue feed item", logger.ErrorField(err), logger.StringField("link", item.Link))
			continue
		}

		f.seen.SetDefault(hash, struct{}{})
		enqueued++
	}

	f.logger.Info("Feed ingested",
		logger.StringField("feed", feedURL),
		logger.IntField("items", len(feed.Items)),
		logger.IntField("enqueued", enqueued),
	)
}

// fetchArticleText downloads the article and extracts its readable body.
// Returns "" on any failure so the headline alone is still usable.
func (f *FeedIngestor) fetchArticleText(ctx context.Context, link string) string {
	if link == "" {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return ""
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return ""
	}

	doc, err := readability.NewDocument(string(body))
	if err != nil {
		return ""
	}

	content, err := goquery.NewDocumentFromReader(strings.NewReader(doc.Content()))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(content.Text())
}

func contentHash(title, link string) string {
	sum := md5.Sum([]byte(title + "|" + link))
	return hex.EncodeToString(sum[:])
}
