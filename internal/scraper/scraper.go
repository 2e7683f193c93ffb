// Package scraper fetches a forum's hot submissions and their comment trees
// and commits them to the raw store in one transaction.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/forum"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/resilience"
)

// Source is a forum API.
type Source interface {
	HotSubmissions(ctx context.Context, forumName string, limit int) ([]forum.Submission, error)
	CommentTree(ctx context.Context, submissionID string, limit int) ([]*forum.CommentNode, error)
}

// Sink persists a complete scrape atomically.
type Sink interface {
	SaveScrape(ctx context.Context, subs []forum.Submission, comments []forum.Comment) (int, int, error)
}

// Report summarises one scrape.
type Report struct {
	ScrapeID           string
	Submissions        int
	Comments           int
	NewSubmissions     int
	NewComments        int
	SkippedSubmissions int
	DeletedSubtrees    int
}

type Scraper struct {
	source    Source
	sink      Sink
	cfg       config.ScraperConfig
	retry     resilience.RetryConfig
	publisher kafka.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option customises a Scraper.
type Option func(*Scraper)

// WithPublisher publishes a ScrapeCompleteEvent after each committed scrape.
func WithPublisher(p kafka.Publisher) Option {
	return func(s *Scraper) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scraper) { s.metrics = m }
}

func New(source Source, sink Sink, cfg config.ScraperConfig, opts ...Option) *Scraper {
	s := &Scraper{
		source: source,
		sink:   sink,
		cfg:    cfg,
		logger: logger.WithComponent("scraper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retry = resilience.FixedBackoff(cfg.Retry.MaxAttempts, cfg.Retry.Delay, s.retryable)
	return s
}

func (s *Scraper) retryable(err error) bool {
	if !apperrors.IsTransient(err) {
		return false
	}
	if s.metrics != nil {
		s.metrics.FetchRetriesTotal.Inc()
	}
	return true
}

// Run performs one scrape. Any fetch that still fails after the retry budget
// aborts the whole scrape and nothing is persisted.
func (s *Scraper) Run(ctx context.Context) (*Report, error) {
	scrapeID := uuid.NewString()
	ctx = logger.WithRunID(ctx, scrapeID)
	log := logger.FromContext(ctx, s.logger).With("forum", s.cfg.Forum)
	start := time.Now()
	log.Info("scrape starting",
		"submission_limit", s.cfg.SubmissionLimit,
		"comment_limit", s.cfg.CommentLimit,
		"max_depth", s.cfg.MaxCommentDepth,
	)

	fetched, err := resilience.Do(ctx, "hot-submissions", s.retry, func(ctx context.Context) ([]forum.Submission, error) {
		return s.source.HotSubmissions(ctx, s.cfg.Forum, s.cfg.SubmissionLimit)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching hot submissions: %w", err)
	}

	report := &Report{ScrapeID: scrapeID}
	subs := make([]forum.Submission, 0, len(fetched))
	for _, sub := range fetched {
		if sub.Author == "" {
			report.SkippedSubmissions++
			log.Debug("skipping submission with deleted author", "submission_id", sub.ID)
			continue
		}
		subs = append(subs, sub)
	}

	trees, err := s.fetchTrees(ctx, subs)
	if err != nil {
		return nil, err
	}

	comments := make([]forum.Comment, 0)
	for _, roots := range trees {
		flat, stats := Flatten(roots, s.cfg.MaxCommentDepth)
		comments = append(comments, flat...)
		report.DeletedSubtrees += stats.DeletedSubtrees
	}

	if err := forum.ValidateAll(subs, comments); err != nil {
		return nil, fmt.Errorf("validating scrape: %w", err)
	}

	newSubs, newComments, err := s.sink.SaveScrape(ctx, subs, comments)
	if err != nil {
		return nil, fmt.Errorf("persisting scrape: %w", err)
	}
	report.Submissions = len(subs)
	report.Comments = len(comments)
	report.NewSubmissions = newSubs
	report.NewComments = newComments
	s.record(report)

	if s.publisher != nil {
		event := forum.ScrapeCompleteEvent{
			ScrapeID:    scrapeID,
			Forum:       s.cfg.Forum,
			Submissions: report.Submissions,
			Comments:    report.Comments,
			FinishedAt:  time.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, scrapeID, event); err != nil {
			log.Error("failed to publish scrape complete event, scrape is committed", "error", err)
		}
	}

	log.Info("scrape complete",
		"submissions", report.Submissions,
		"comments", report.Comments,
		"new_submissions", report.NewSubmissions,
		"new_comments", report.NewComments,
		"skipped_submissions", report.SkippedSubmissions,
		"deleted_subtrees", report.DeletedSubtrees,
		"duration", time.Since(start),
	)
	return report, nil
}

// fetchTrees fetches every submission's comment tree with at most
// cfg.Concurrency requests in flight. Results keep submission order.
func (s *Scraper) fetchTrees(ctx context.Context, subs []forum.Submission) ([][]*forum.CommentNode, error) {
	trees := make([][]*forum.CommentNode, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Concurrency, 1))
	for i, sub := range subs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			roots, err := resilience.Do(gctx, "comment-tree", s.retry, func(ctx context.Context) ([]*forum.CommentNode, error) {
				return s.source.CommentTree(ctx, sub.ID, s.cfg.CommentLimit)
			})
			if err != nil {
				return fmt.Errorf("fetching comments of %s: %w", sub.ID, err)
			}
			trees[i] = roots
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trees, nil
}

func (s *Scraper) record(r *Report) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordsScrapedTotal.WithLabelValues("submission").Add(float64(r.NewSubmissions))
	s.metrics.RecordsScrapedTotal.WithLabelValues("comment").Add(float64(r.NewComments))
	s.metrics.DeletedSubtrees.Add(float64(r.DeletedSubtrees))
}
