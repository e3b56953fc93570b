// Package app builds the long-lived services behind every command and owns
// their shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/venue-ingest/internal/api"
	rediscache "github.com/JakeFAU/venue-ingest/internal/cache/redis"
	"github.com/JakeFAU/venue-ingest/internal/clock/system"
	"github.com/JakeFAU/venue-ingest/internal/config"
	"github.com/JakeFAU/venue-ingest/internal/discovery"
	"github.com/JakeFAU/venue-ingest/internal/dispatcher"
	"github.com/JakeFAU/venue-ingest/internal/fetch"
	collyfetcher "github.com/JakeFAU/venue-ingest/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/venue-ingest/internal/fetcher/headless"
	"github.com/JakeFAU/venue-ingest/internal/firecrawl"
	"github.com/JakeFAU/venue-ingest/internal/geocode"
	"github.com/JakeFAU/venue-ingest/internal/headless/detector"
	"github.com/JakeFAU/venue-ingest/internal/id/uuid"
	"github.com/JakeFAU/venue-ingest/internal/logging"
	"github.com/JakeFAU/venue-ingest/internal/pipeline"
	"github.com/JakeFAU/venue-ingest/internal/policy/ratelimit"
	gcppublisher "github.com/JakeFAU/venue-ingest/internal/publisher/pubsub"
	queuememory "github.com/JakeFAU/venue-ingest/internal/queue/memory"
	"github.com/JakeFAU/venue-ingest/internal/records/airtable"
	recordsmemory "github.com/JakeFAU/venue-ingest/internal/records/memory"
	"github.com/JakeFAU/venue-ingest/internal/runs"
	gcsstorage "github.com/JakeFAU/venue-ingest/internal/storage/gcs"
	localstorage "github.com/JakeFAU/venue-ingest/internal/storage/local"
	memorystorage "github.com/JakeFAU/venue-ingest/internal/storage/memory"
	pgstore "github.com/JakeFAU/venue-ingest/internal/storage/postgres"
	"github.com/JakeFAU/venue-ingest/internal/venue"
	"github.com/JakeFAU/venue-ingest/internal/worker"
)

// shutdownTimeout bounds HTTP server shutdown in Serve.
const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	processor *pipeline.Processor
	tracker   *runs.Tracker
	runner    *worker.Worker
	records   venue.RecordStore
	blobs     venue.BlobStore

	headless  *headlessfetcher.Scraper
	gcs       *gcsstorage.BlobStore
	cache     *rediscache.PageCache
	recorder  *pgstore.RunRecorder
	publisher *gcppublisher.Publisher
}

// Build creates the logger from cfg and then every service.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.Build(logging.Options{
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return New(ctx, cfg, logger)
}

// New creates the services described by cfg using logger. On error every
// service opened so far is closed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.String("scraper", cfg.Scraper.Backend),
		zap.String("storage", cfg.Storage.Backend),
	)

	if err := a.build(ctx); err != nil {
		_ = a.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	mapper, scraper, err := a.setupScraper()
	if err != nil {
		return err
	}
	if a.records, err = a.setupRecords(); err != nil {
		return err
	}
	if a.blobs, err = a.setupStorage(ctx); err != nil {
		return err
	}
	var cache venue.PageCache
	if cache, err = a.setupCache(ctx); err != nil {
		return err
	}
	var recorder venue.RunRecorder
	if recorder, err = a.setupDatabase(ctx); err != nil {
		return err
	}
	var publisher venue.Publisher
	if publisher, err = a.setupPublisher(ctx); err != nil {
		return err
	}

	clock := system.New()
	a.processor, err = pipeline.New(pipeline.Deps{
		Mapper:   mapper,
		Scraper:  scraper,
		Store:    a.records,
		Blobs:    a.blobs,
		Cache:    cache,
		Geocoder: a.newGeocoder(),
		Clock:    clock,
	}, a.pipelineConfig(), a.logger)
	if err != nil {
		return fmt.Errorf("pipeline init failed: %w", err)
	}

	a.tracker, err = runs.NewTracker(runs.Options{
		Store:     memorystorage.NewRunStore(),
		Recorder:  recorder,
		Publisher: publisher,
		IDs:       uuid.New(),
		Clock:     clock,
		Topic:     a.cfg.PubSub.TopicName,
		Logger:    a.logger,
	})
	if err != nil {
		return fmt.Errorf("run tracker init failed: %w", err)
	}
	a.runner = a.newWorker(nil)
	return nil
}

func (a *App) pipelineConfig() pipeline.Config {
	p := a.cfg.Pipeline
	return pipeline.Config{
		Limits: pipeline.Limits{
			MaxChars:        p.MaxChars,
			MaxPages:        p.MaxPages,
			MinContentChars: p.MinContentChars,
			MinContentWords: p.MinContentWords,
			MinListingChars: p.MinListingChars,
		},
		Fetch: fetch.Config{
			Timeout:    p.RequestTimeout,
			RenderWait: p.RenderWait,
			Policy:     fetch.NewPolicy(p.RateLimitCooldown, p.ServerErrorCooldown),
		},
		RateLimitDelay:    p.RateLimitDelay,
		ContentField:      a.cfg.Airtable.Field,
		Listings:          a.cfg.ListingSources(),
		ManualCheckMarker: p.ManualCheckMarker,
	}
}

func (a *App) newGeocoder() *geocode.Nominatim {
	g := a.cfg.Geocoder
	n := geocode.New(geocode.Config{
		BaseURL:   g.BaseURL,
		UserAgent: g.UserAgent,
		Country:   g.Country,
	}, nil, a.logger.Named("geocode"))
	if g.RPS > 0 {
		n.WithLimiter(ratelimit.New(ratelimit.Config{DefaultRPS: g.RPS, DefaultBurst: 1}))
	}
	return n
}

func (a *App) setupScraper() (venue.Mapper, venue.Scraper, error) {
	sc := a.cfg.Scraper
	links := discovery.NewLinkMapper(discovery.LinkMapperConfig{
		UserAgent: sc.UserAgent,
		Timeout:   a.cfg.Pipeline.RequestTimeout,
	}, a.logger.Named("links"))

	switch sc.Backend {
	case config.BackendColly:
		a.logger.Info("using colly scraper", zap.String("user_agent", sc.UserAgent))
		return links, a.newColly(), nil
	case config.BackendHeadless:
		s, err := a.newHeadless()
		if err != nil {
			return nil, nil, err
		}
		a.logger.Info("using headless scraper", zap.Int("max_parallel", sc.MaxParallel))
		return links, s, nil
	case config.BackendAuto:
		s, err := a.newHeadless()
		if err != nil {
			return nil, nil, err
		}
		a.logger.Info("using colly scraper with headless promotion",
			zap.Int("promotion_threshold", sc.PromotionThreshold))
		return links, a.newColly().WithPromotion(detector.NewHeuristic(sc.PromotionThreshold), s), nil
	default:
		client, err := firecrawl.New(a.cfg.Firecrawl.BaseURL, a.cfg.Firecrawl.APIKey,
			firecrawl.WithLogger(a.logger.Named("firecrawl")))
		if err != nil {
			return nil, nil, fmt.Errorf("firecrawl client init failed: %w", err)
		}
		a.logger.Info("using firecrawl scraper")
		return client, client, nil
	}
}

func (a *App) newColly() *collyfetcher.Scraper {
	sc := a.cfg.Scraper
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:     sc.UserAgent,
		RespectRobots: sc.RespectRobots,
		Timeout:       a.cfg.Pipeline.RequestTimeout,
	}, a.logger.Named("colly"))
}

func (a *App) newHeadless() (*headlessfetcher.Scraper, error) {
	sc := a.cfg.Scraper
	s, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
		MaxParallel:       sc.MaxParallel,
		UserAgent:         sc.UserAgent,
		NavigationTimeout: a.cfg.Pipeline.RequestTimeout,
	}, a.logger.Named("headless"))
	if err != nil {
		return nil, fmt.Errorf("headless scraper init failed: %w", err)
	}
	a.headless = s
	return s, nil
}

func (a *App) setupRecords() (venue.RecordStore, error) {
	at := a.cfg.Airtable
	if at.APIKey == "" {
		a.logger.Warn("no airtable api key configured, using in-memory record store")
		return recordsmemory.NewStore(), nil
	}
	store, err := airtable.New(airtable.Config{
		BaseURL: at.BaseURL,
		APIKey:  at.APIKey,
		BaseID:  at.BaseID,
		Table:   at.Table,
	}, nil, a.logger.Named("airtable"))
	if err != nil {
		return nil, fmt.Errorf("airtable init failed: %w", err)
	}
	a.logger.Info("using airtable record store", zap.String("table", at.Table))
	return store, nil
}

func (a *App) setupStorage(ctx context.Context) (venue.BlobStore, error) {
	st := a.cfg.Storage
	switch st.Backend {
	case config.StorageGCS:
		blobs, err := gcsstorage.Open(ctx, gcsstorage.Config{Bucket: st.GCSBucket, Prefix: st.Prefix})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.gcs = blobs
		a.logger.Info("using GCS storage backend", zap.String("bucket", st.GCSBucket))
		return blobs, nil
	case config.StorageLocal:
		blobs, err := localstorage.New(localstorage.Config{BaseDir: st.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Info("using local storage backend", zap.String("path", st.BaseDir))
		return blobs, nil
	default:
		a.logger.Info("using in-memory storage backend")
		return memorystorage.NewBlobStore(), nil
	}
}

func (a *App) setupCache(ctx context.Context) (venue.PageCache, error) {
	c := a.cfg.Cache
	if c.RedisAddr == "" {
		return nil, nil
	}
	cache, err := rediscache.Open(ctx, rediscache.Config{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		TTL:      c.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("page cache init failed: %w", err)
	}
	a.cache = cache
	a.logger.Info("page cache enabled", zap.String("addr", c.RedisAddr), zap.Duration("ttl", c.TTL))
	return cache, nil
}

func (a *App) setupDatabase(ctx context.Context) (venue.RunRecorder, error) {
	db := a.cfg.DB
	if db.DSN == "" {
		a.logger.Warn("no DSN specified for database, run audit disabled")
		return nil, nil
	}
	rec, err := pgstore.NewRunRecorder(ctx, pgstore.Config{
		DSN:             db.DSN,
		Table:           db.Table,
		MaxConns:        db.MaxConns,
		MinConns:        db.MinConns,
		MaxConnLifetime: db.MaxConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("run recorder init failed: %w", err)
	}
	a.recorder = rec
	a.logger.Info("run recorder initialized", zap.String("table", db.Table))
	return rec, nil
}

func (a *App) setupPublisher(ctx context.Context) (venue.Publisher, error) {
	ps := a.cfg.PubSub
	if ps.ProjectID == "" || ps.TopicName == "" {
		a.logger.Info("no Pub/Sub topic configured, run events disabled")
		return nil, nil
	}
	pub, err := gcppublisher.Open(ctx, ps.ProjectID, ps.TopicName)
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	a.publisher = pub
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", ps.ProjectID),
		zap.String("topic", ps.TopicName),
	)
	return pub, nil
}

func (a *App) newWorker(queue venue.Queue) *worker.Worker {
	return worker.New(queue, a.tracker, a.processor,
		worker.Config{RunTimeout: a.cfg.Pipeline.RunTimeout}, a.logger)
}

// Config returns the configuration the app was built from.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Processor exposes the pipeline for the single-record modes.
func (a *App) Processor() *pipeline.Processor { return a.processor }

// Process runs req to completion outside the queue and returns the finished
// run. The run is recorded and published like a queued one.
func (a *App) Process(ctx context.Context, req venue.Request) (venue.Run, error) {
	run, err := a.tracker.Submit(ctx, req)
	if err != nil {
		return venue.Run{}, err
	}
	item := venue.QueueItem{RunID: run.ID, Request: req, Submitted: run.Submitted.Unix()}
	return a.runner.Execute(ctx, item)
}

// Serve runs the HTTP API and its worker pool until ctx is canceled.
func (a *App) Serve(ctx context.Context) error {
	srvCfg := a.cfg.Server
	queue := queuememory.NewQueue(srvCfg.QueueDepth)
	workers := make([]*worker.Worker, 0, srvCfg.Concurrency)
	for range srvCfg.Concurrency {
		workers = append(workers, a.newWorker(queue))
	}
	dispatch := dispatcher.New(queue, a.tracker, workers)

	var ready []api.ReadinessCheck
	if a.cache != nil {
		ready = append(ready, a.cache.Ping)
	}
	handler := api.NewServer(dispatch, a.tracker, api.Config{
		APIKey:         srvCfg.APIKey,
		RequestTimeout: srvCfg.RequestTimeout,
	}, a.logger, ready...)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", srvCfg.Port),
		Handler:           handler.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.logger.Info("dispatcher started", zap.Int("workers", len(workers)))
		dispatch.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", srvCfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	<-done

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// Close releases every external client. It is safe to call on a partially
// built App.
func (a *App) Close(_ context.Context) error {
	if a.headless != nil {
		a.headless.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("pubsub close failed", zap.Error(err))
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("page cache close failed", zap.Error(err))
		}
	}
	if a.recorder != nil {
		a.recorder.Close()
	}
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
	return nil
}
