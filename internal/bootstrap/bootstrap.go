package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/document-converter/internal/config"
	"github.com/kirillkom/document-converter/internal/core/ports"
	"github.com/kirillkom/document-converter/internal/core/usecase"
	"github.com/kirillkom/document-converter/internal/infrastructure/cache"
	"github.com/kirillkom/document-converter/internal/infrastructure/converterapi"
	"github.com/kirillkom/document-converter/internal/infrastructure/document"
	"github.com/kirillkom/document-converter/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-converter/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-converter/internal/infrastructure/resilience"
	"github.com/kirillkom/document-converter/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/document-converter/internal/observability/metrics"
)

// Server holds the wiring of the conversion endpoint.
type Server struct {
	Config config.Config

	Engine    *document.Engine
	Cache     *cache.ResultCache
	ConvertUC ports.ConversionService
	History   ports.ConversionHistoryQuery
	Metrics   *metrics.HTTPServerMetrics

	closeFns []func()
}

// NewServer connects the optional history database and event bus; the
// converter itself has no external dependencies.
func NewServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	engine := document.NewDefaultEngine()
	m := metrics.NewHTTPServerMetrics("convertd")
	app := &Server{
		Config:  cfg,
		Engine:  engine,
		Metrics: m,
	}

	var uc *usecase.ConvertDocumentUseCase
	if cfg.CacheEnabled {
		resultCache := cache.New(cfg.CacheMaxEntries, cfg.CacheTTL())
		m.RegisterCacheStats(func() (uint64, uint64, int) {
			s := resultCache.Stats()
			return s.Hits, s.Misses, s.Entries
		})
		app.Cache = resultCache
		uc = usecase.NewConvertDocumentUseCase(engine, resultCache, cfg.MaxUploadBytes)
	} else {
		// a typed nil *ResultCache would defeat the use case's nil check
		uc = usecase.NewConvertDocumentUseCase(engine, nil, cfg.MaxUploadBytes)
	}

	var history ports.ConversionHistory
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.closeFns = append(app.closeFns, func() { _ = db.Close() })
		repo := postgres.NewHistoryRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		history = repo
	}

	var events ports.ConversionEventPublisher
	if cfg.NATSURL != "" {
		publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(cfg.Resilience(), logger),
			Logger:             logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		app.closeFns = append(app.closeFns, publisher.Close)
		events = publisher
	}

	if history == nil && events == nil {
		app.ConvertUC = uc
		return app, nil
	}
	audited := usecase.NewAuditedConversionService(uc, history, events, logger)
	app.ConvertUC = audited
	if history != nil {
		app.History = audited
	}
	return app, nil
}

func (s *Server) Close() {
	for i := len(s.closeFns) - 1; i >= 0; i-- {
		s.closeFns[i]()
	}
	s.closeFns = nil
}

// Client holds the wiring of the CLI conversion workflow.
type Client struct {
	Config config.Config

	API        *converterapi.Client
	Downloads  *localfs.Storage
	Controller *usecase.ConversionController
}

func NewClient(cfg config.Config, notifier ports.Notifier, logger *slog.Logger) (*Client, error) {
	opts := []converterapi.Option{
		converterapi.WithTimeout(cfg.ClientTimeout()),
		converterapi.WithExecutor(resilience.NewExecutor(cfg.Resilience(), logger)),
	}
	if cfg.ConverterLegacyForm {
		opts = append(opts, converterapi.WithLegacyForm())
	} else {
		opts = append(opts, converterapi.WithConvertPath(cfg.ConverterConvertPath))
	}
	api := converterapi.New(cfg.ConverterAPIURL, opts...)

	downloads, err := localfs.New(cfg.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("init download dir: %w", err)
	}

	controller := usecase.NewConversionController(api, downloads, notifier, usecase.WithMaxFileSize(cfg.MaxUploadBytes))
	return &Client{
		Config:     cfg,
		API:        api,
		Downloads:  downloads,
		Controller: controller,
	}, nil
}
