package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/forum"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/store"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	follow := flag.Bool("follow", false, "rerun the pipeline on every scrape-complete event from kafka")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting processor",
		"storage", cfg.Storage.Driver,
		"artifact", cfg.Pipeline.ArtifactPath,
		"follow", *follow,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(apperrors.ExitCode(run(ctx, cfg, *follow)))
}

func run(ctx context.Context, cfg *config.Config, follow bool) error {
	if follow && !cfg.Kafka.Enabled {
		err := apperrors.New(apperrors.ErrInvalidConfig, "-follow requires kafka.enabled")
		slog.Error("cannot follow", "error", err)
		return err
	}

	raw, err := store.Open(cfg.Storage, store.RoleRaw)
	if err != nil {
		slog.Error("failed to open raw store", "error", err)
		return err
	}
	defer raw.Close()

	processed, err := store.Open(cfg.Storage, store.RoleProcessed)
	if err != nil {
		slog.Error("failed to open processed store", "error", err)
		return err
	}
	defer processed.Close()
	if err := processed.CreateTables(ctx); err != nil {
		slog.Error("failed to create processed tables", "error", err)
		return err
	}

	m := metrics.New(nil)
	opts := []pipeline.Option{pipeline.WithMetrics(m)}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CorpusProcessed)
		defer producer.Close()
		opts = append(opts, pipeline.WithPublisher(producer))
	}

	p, err := pipeline.New(raw, processed, cfg.Pipeline, opts...)
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		return err
	}

	if !follow {
		if cfg.Metrics.Enabled {
			shutdown := metrics.StartServer(cfg.Metrics.Port, m, nil)
			defer shutdown(context.Background())
		}
		if _, err := p.Run(ctx); err != nil {
			slog.Error("pipeline run failed, nothing persisted", "error", err)
			return err
		}
		return nil
	}

	checker := health.NewChecker()
	checker.Register("raw-store", health.PingCheck(raw))
	checker.Register("processed-store", health.PingCheck(processed))
	shutdown := metrics.StartServer(cfg.Metrics.Port, m, map[string]http.Handler{
		"/health/live":  checker.LiveHandler(),
		"/health/ready": checker.ReadyHandler(),
	})
	defer shutdown(context.Background())

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ScrapeComplete, handleScrapeComplete(p))
	slog.Info("processor following scrapes",
		"topic", cfg.Kafka.Topics.ScrapeComplete,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
		return err
	}
	slog.Info("processor stopped")
	return nil
}

// handleScrapeComplete reruns the pipeline for each committed scrape. A
// failed run is logged and skipped; the next scrape event reruns it over the
// whole raw store.
func handleScrapeComplete(p *pipeline.Pipeline) kafka.MessageHandler {
	return func(ctx context.Context, _ []byte, value []byte) error {
		event, err := kafka.DecodeJSON[forum.ScrapeCompleteEvent](value)
		if err != nil {
			slog.Warn("dropping undecodable scrape event", "error", err)
			return nil
		}
		slog.Info("scrape complete event received",
			"scrape_id", event.ScrapeID,
			"forum", event.Forum,
			"submissions", event.Submissions,
			"comments", event.Comments,
		)
		if _, err := p.Run(ctx); err != nil {
			return fmt.Errorf("pipeline run after scrape %s: %w", event.ScrapeID, err)
		}
		return nil
	}
}
