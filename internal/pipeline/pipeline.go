// Package pipeline orchestrates one batch run: ensure schema, extract a
// window of articles, normalize, assemble the star schema, load NEW rows plus
// all facts in one transaction, then report completion.
package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/newswire-data/warehouse-pipeline/internal/newsapi"
	"github.com/newswire-data/warehouse-pipeline/internal/normalize"
	"github.com/newswire-data/warehouse-pipeline/internal/warehouse"
	"github.com/newswire-data/warehouse-pipeline/pkg/config"
	pipeerrors "github.com/newswire-data/warehouse-pipeline/pkg/errors"
	"github.com/newswire-data/warehouse-pipeline/pkg/kafka"
	"github.com/newswire-data/warehouse-pipeline/pkg/logger"
	"github.com/newswire-data/warehouse-pipeline/pkg/metrics"
)

// ArticleSource supplies raw article records for a date window and source
// list.
type ArticleSource interface {
	Sources(ctx context.Context) ([]string, error)
	FetchWindow(ctx context.Context, sources []string, from, to time.Time, concurrency int) ([]newsapi.RawArticle, error)
}

// Warehouse is the store boundary the pipeline drives: schema init, the
// incremental window query, the resolver's point lookups, and the atomic
// batch append.
type Warehouse interface {
	warehouse.Lookup
	EnsureSchema(ctx context.Context) error
	MaxPublishedAt(ctx context.Context) (time.Time, bool, error)
	AppendBatch(ctx context.Context, batch *warehouse.StarBatch) error
}

// ReportPublisher receives the run report after every run. *kafka.Producer
// implements it.
type ReportPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// RunReport is the completion event published after every run, success or
// failure.
type RunReport struct {
	RunID             string         `json:"run_id"`
	Status            string         `json:"status"`
	Error             string         `json:"error,omitempty"`
	StartedAt         time.Time      `json:"started_at"`
	DurationMS        int64          `json:"duration_ms"`
	WindowFrom        string         `json:"window_from"`
	WindowTo          string         `json:"window_to"`
	SourceCount       int            `json:"source_count"`
	ArticlesExtracted int            `json:"articles_extracted"`
	ArticlesRejected  int            `json:"articles_rejected"`
	FactsLoaded       int            `json:"facts_loaded"`
	NewDimensions     map[string]int `json:"new_dimensions"`
}

// Pipeline wires the collaborators for recurring batch runs. reporter, cache
// and metrics are optional.
type Pipeline struct {
	cfg      *config.Config
	source   ArticleSource
	store    Warehouse
	cache    *KeyCache
	reporter ReportPublisher
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates a Pipeline. cache, reporter and m may be nil.
func New(cfg *config.Config, source ArticleSource, store Warehouse, cache *KeyCache, reporter ReportPublisher, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		source:   source,
		store:    store,
		cache:    cache,
		reporter: reporter,
		metrics:  m,
		now:      time.Now,
	}
}

// Run executes one batch. All core errors are fatal to the batch; nothing is
// committed past the failing stage. A report is published either way.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	runID := newRunID()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx).With("component", "pipeline")
	started := p.now()

	report := &RunReport{
		RunID:         runID,
		StartedAt:     started.UTC(),
		NewDimensions: map[string]int{},
	}

	err := p.run(ctx, log, report)
	report.DurationMS = p.now().Sub(started).Milliseconds()
	if err != nil {
		report.Status = "failure"
		report.Error = err.Error()
		log.Error("pipeline run failed", "stage", pipeerrors.Stage(err), "error", err)
	} else {
		report.Status = "success"
		log.Info("pipeline run complete",
			"articles", report.ArticlesExtracted,
			"facts_loaded", report.FactsLoaded,
			"duration_ms", report.DurationMS,
		)
	}

	p.observeRun(report)
	p.publishReport(ctx, log, report)
	return report, err
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, report *RunReport) error {
	if err := p.store.EnsureSchema(ctx); err != nil {
		return err
	}

	from, to := p.window(ctx)
	report.WindowFrom = from.Format("2006-01-02")
	report.WindowTo = to.Format("2006-01-02")

	sources, err := p.source.Sources(ctx)
	if err != nil {
		return pipeerrors.Newf(pipeerrors.ErrExtraction, "extract", "discovering sources: %v", err)
	}
	if limit := p.cfg.Pipeline.SourceLimit; limit > 0 && len(sources) > limit {
		sources = sources[:limit]
	}
	report.SourceCount = len(sources)

	raw, err := p.source.FetchWindow(ctx, sources, from, to, p.cfg.Pipeline.FetchConcurrency)
	if err != nil {
		return pipeerrors.Newf(pipeerrors.ErrExtraction, "extract", "fetching articles: %v", err)
	}
	report.ArticlesExtracted = len(raw)

	cleaned := normalize.Normalize(raw)
	report.ArticlesRejected = cleaned.Rejected
	if len(cleaned.Articles) == 0 {
		log.Info("no articles in window, nothing to load", "rejected", cleaned.Rejected)
		return nil
	}

	resolver := warehouse.NewResolver(p.store, p.cache.orNil(), nil)
	builder := warehouse.NewBuilder(resolver, nil)
	batch, err := builder.Build(ctx, cleaned.Articles)
	if err != nil {
		return err
	}

	toLoad := warehouse.FilterExisting(batch)
	if err := p.store.AppendBatch(ctx, toLoad); err != nil {
		return err
	}
	report.FactsLoaded = len(toLoad.Facts)
	for dim, n := range toLoad.DimensionCounts(warehouse.TagNew) {
		report.NewDimensions[string(dim)] = n
	}

	p.observeBatch(batch, toLoad, resolver)

	// Only now are the NEW keys durable; publish them to the cache.
	p.cache.StoreBatch(ctx, toLoad)
	return nil
}

// window derives the extraction window: from the date of the newest persisted
// instant, or lookbackDays back on a first run against an empty warehouse.
func (p *Pipeline) window(ctx context.Context) (time.Time, time.Time) {
	today := p.now().UTC().Truncate(24 * time.Hour)

	max, ok, err := p.store.MaxPublishedAt(ctx)
	if err != nil || !ok {
		if err != nil {
			// A broken window query will fail loudly again at resolution;
			// fall back rather than abort before extraction starts.
			logger.FromContext(ctx).Warn("incremental window query failed, using lookback", "error", err)
		}
		return today.AddDate(0, 0, -p.cfg.NewsAPI.LookbackDays), today
	}
	return max.Truncate(24 * time.Hour), today
}

func (p *Pipeline) observeRun(report *RunReport) {
	if p.metrics == nil {
		return
	}
	p.metrics.RunsTotal.WithLabelValues(report.Status).Inc()
	p.metrics.RunDuration.Observe(float64(report.DurationMS) / 1000)
	p.metrics.ArticlesExtractedTotal.Add(float64(report.ArticlesExtracted))
	p.metrics.ArticlesRejectedTotal.Add(float64(report.ArticlesRejected))
	p.metrics.LastRunTimestamp.SetToCurrentTime()
}

func (p *Pipeline) observeBatch(batch, loaded *warehouse.StarBatch, resolver *warehouse.Resolver) {
	if p.metrics == nil {
		return
	}
	for dim, n := range batch.DimensionCounts(warehouse.TagNew) {
		p.metrics.DimensionRowsTotal.WithLabelValues(string(dim), "new").Add(float64(n))
	}
	for dim, n := range batch.DimensionCounts(warehouse.TagExisting) {
		p.metrics.DimensionRowsTotal.WithLabelValues(string(dim), "existing").Add(float64(n))
	}
	p.metrics.FactRowsLoadedTotal.Add(float64(len(loaded.Facts)))
	for dim, n := range resolver.Stats.StoreLookups {
		p.metrics.StoreLookupsTotal.WithLabelValues(string(dim)).Add(float64(n))
	}
	p.metrics.CacheHitsTotal.Add(float64(resolver.Stats.CacheHits))
	p.metrics.CacheMissesTotal.Add(float64(resolver.Stats.CacheMisses))
}

func (p *Pipeline) publishReport(ctx context.Context, log *slog.Logger, report *RunReport) {
	if p.reporter == nil {
		return
	}
	// Report publishing must not mask the run outcome; use a fresh deadline
	// in case the run context is already cancelled.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.reporter.Publish(pubCtx, kafka.Event{Key: report.RunID, Value: report}); err != nil {
		log.Error("publishing run report failed", "error", err)
	}
}

func newRunID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "run-unknown"
	}
	return "run-" + hex.EncodeToString(buf)
}
