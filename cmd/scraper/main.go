package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/scraper"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/scraper/cache"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/scraper/reddit"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/store"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting scraper", "forum", cfg.Scraper.Forum, "storage", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(apperrors.ExitCode(run(ctx, cfg)))
}

func run(ctx context.Context, cfg *config.Config) error {
	raw, err := store.Open(cfg.Storage, store.RoleRaw)
	if err != nil {
		slog.Error("failed to open raw store", "error", err)
		return err
	}
	defer raw.Close()
	if err := raw.CreateTables(ctx); err != nil {
		slog.Error("failed to create raw tables", "error", err)
		return err
	}

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, m, nil)
		defer shutdown(context.Background())
	}

	clientOpts := []reddit.Option{reddit.WithMetrics(m)}
	if limiter := reddit.PerMinute(cfg.Scraper.RequestsPerMinute); limiter != nil {
		clientOpts = append(clientOpts, reddit.WithRateLimiter(limiter))
	}
	var responses *cache.ResponseCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, scraping without response cache", "error", err)
		} else {
			defer redisClient.Close()
			responses = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			clientOpts = append(clientOpts, reddit.WithCache(responses))
			slog.Info("response cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	client := reddit.NewClient(cfg.Scraper, clientOpts...)

	scraperOpts := []scraper.Option{scraper.WithMetrics(m)}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ScrapeComplete)
		defer producer.Close()
		scraperOpts = append(scraperOpts, scraper.WithPublisher(producer))
	}

	report, err := scraper.New(client, raw, cfg.Scraper, scraperOpts...).Run(ctx)
	if err != nil {
		slog.Error("scrape failed, nothing persisted", "error", err)
		return err
	}
	if responses != nil {
		hits, misses := responses.Stats()
		slog.Info("response cache usage", "hits", hits, "misses", misses)
	}
	slog.Info("scraper finished",
		"scrape_id", report.ScrapeID,
		"new_submissions", report.NewSubmissions,
		"new_comments", report.NewComments,
	)
	return nil
}
