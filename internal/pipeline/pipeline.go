package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/forum"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline/artifact"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/store"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/tracing"
)

// RawSource is the read side of the raw store.
type RawSource interface {
	LoadSubmissions(ctx context.Context) ([]forum.Submission, error)
	LoadComments(ctx context.Context) ([]forum.Comment, error)
}

// ProcessedSink is the write side of the processed store.
type ProcessedSink interface {
	ReplaceProcessed(ctx context.Context, rows store.ProcessedRows, beforeCommit func() error) error
}

// Pipeline loads a raw snapshot, processes it and persists the result.
type Pipeline struct {
	raw       RawSource
	processed ProcessedSink
	cfg       config.PipelineConfig
	opts      Options
	publisher kafka.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithPublisher publishes a CorpusProcessedEvent after every committed run.
func WithPublisher(p kafka.Publisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithMetrics records run outcomes and stage durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(pl *Pipeline) { pl.metrics = m }
}

// New builds a pipeline. The stopword list is resolved once here.
func New(raw RawSource, processed ProcessedSink, cfg config.PipelineConfig, opts ...Option) (*Pipeline, error) {
	o, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolving pipeline options: %w", err)
	}
	p := &Pipeline{
		raw:       raw,
		processed: processed,
		cfg:       cfg,
		opts:      o,
		logger:    logger.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run executes one full pass. Either every output (processed tables and
// artifact) reflects this run, or none of them changed.
func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	ctx, root := tracing.StartSpan(ctx, "corpus-pipeline", runID)
	log := logger.FromContext(ctx, p.logger)
	start := time.Now()
	log.Info("pipeline run starting", "cutoff", p.opts.Cutoff, "matrices", p.cfg.Matrices)

	defer func() {
		root.End()
		root.Log(log)
		p.record(root, res, err)
		if err != nil {
			log.Error("pipeline run failed", "error", err, "duration", time.Since(start))
		}
	}()

	snap, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	root.SetAttr("submissions", len(snap.Submissions))
	root.SetAttr("comments", len(snap.Comments))
	root.SetAttr("users", len(snap.UserTexts))

	res, err = process(ctx, snap, p.opts)
	if err != nil {
		return nil, err
	}

	if err := p.persist(ctx, res); err != nil {
		return nil, err
	}

	if p.publisher != nil {
		p.publish(ctx, runID, res)
	}
	log.Info("pipeline run complete",
		"vocabulary", res.Vocabulary.Len(),
		"submissions", len(snap.Submissions),
		"comments", len(snap.Comments),
		"users", len(snap.UserTexts),
		"duration", time.Since(start),
	)
	return res, nil
}

func (p *Pipeline) load(ctx context.Context) (Snapshot, error) {
	_, span := tracing.StartChildSpan(ctx, "load")
	defer span.End()

	subs, err := p.raw.LoadSubmissions(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading snapshot: %w", err)
	}
	comments, err := p.raw.LoadComments(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading snapshot: %w", err)
	}
	return Snapshot{
		Submissions: subs,
		Comments:    comments,
		UserTexts:   store.GroupByAuthor(comments, p.cfg.UserTextSeparator),
	}, nil
}

// persist writes the artifact to a temp file, then replaces the processed
// tables. The artifact is renamed into place just before the commit and
// removed again if the commit fails.
func (p *Pipeline) persist(ctx context.Context, res *Result) error {
	_, span := tracing.StartChildSpan(ctx, "persist")
	defer span.End()

	pending, err := artifact.Write(p.cfg.ArtifactPath, res.Vocabulary.Terms(), res.Matrices)
	if err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := p.processed.ReplaceProcessed(ctx, res.Rows, pending.Commit); err != nil {
		if dErr := pending.Discard(); dErr != nil {
			logger.FromContext(ctx, p.logger).Error("discarding artifact after failed commit", "error", dErr)
		}
		return err
	}
	if err := pending.Finalize(); err != nil {
		logger.FromContext(ctx, p.logger).Warn("previous artifact left behind", "error", err)
	}
	span.SetAttr("artifact", pending.Path())
	return nil
}

func (p *Pipeline) publish(ctx context.Context, runID string, res *Result) {
	names := make([]string, len(res.Matrices))
	for i, m := range res.Matrices {
		names[i] = m.Name
	}
	event := forum.CorpusProcessedEvent{
		RunID:          runID,
		VocabularySize: res.Vocabulary.Len(),
		Documents:      res.Documents,
		Matrices:       names,
		ArtifactPath:   p.cfg.ArtifactPath,
		FinishedAt:     time.Now().UTC(),
	}
	if err := p.publisher.Publish(ctx, runID, event); err != nil {
		logger.FromContext(ctx, p.logger).Error("failed to publish corpus processed event, run is committed", "error", err)
	}
}

func (p *Pipeline) record(root *tracing.Span, res *Result, err error) {
	if p.metrics == nil {
		return
	}
	for stage, d := range root.StageDurations() {
		p.metrics.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
	if err != nil {
		p.metrics.PipelineRunsTotal.WithLabelValues("failure").Inc()
		return
	}
	p.metrics.PipelineRunsTotal.WithLabelValues("success").Inc()
	p.metrics.VocabularySize.Set(float64(res.Vocabulary.Len()))
	for corpus, n := range res.Documents {
		p.metrics.DocumentsProcessed.WithLabelValues(corpus).Set(float64(n))
	}
	for _, m := range res.Matrices {
		p.metrics.MatrixNonZero.WithLabelValues(m.Name).Set(float64(m.Matrix.NNZ()))
	}
}
