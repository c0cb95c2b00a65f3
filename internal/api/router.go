package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/Harshitk-cp/pfc/internal/api/handlers"
	mw "github.com/Harshitk-cp/pfc/internal/api/middleware"
	"github.com/Harshitk-cp/pfc/internal/buildconfig"
	"github.com/Harshitk-cp/pfc/internal/config"
	"github.com/Harshitk-cp/pfc/internal/domain"
	"github.com/Harshitk-cp/pfc/internal/embedding"
	"github.com/Harshitk-cp/pfc/internal/llm"
	"github.com/Harshitk-cp/pfc/internal/service"
	"github.com/Harshitk-cp/pfc/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Options carries the collaborators NewApp wires together.
type Options struct {
	// DB is optional. Without it the SOAR session archive is disabled.
	DB       *pgxpool.Pool
	Resolver domain.ModelResolver
	Embedder domain.EmbeddingClient
	Tuning   config.Tuning
	// CallTimeout overrides Tuning's call timeout when positive.
	CallTimeout    time.Duration
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
	// ArchiveRetention enables the archive expirer when positive.
	ArchiveRetention      time.Duration
	ArchiveExpiryInterval time.Duration
}

// App holds the router and the long-lived pieces that need lifecycle
// management or report metrics.
type App struct {
	Router      *chi.Mux
	Pipeline    *service.PipelineService
	RateLimiter *mw.RateLimiter
	// Expirer is nil unless the archive is enabled with a retention window.
	Expirer   *service.ArchiveExpirer
	metrics   *mw.MetricsCollector
	db        *pgxpool.Pool
	startTime time.Time
}

func NewApp(opts Options, logger *zap.Logger) *App {
	analyzer := service.NewQueryAnalyzer()
	signals := service.NewHeuristicSignalGenerator(service.NewConceptRegistry())

	pipeline := service.NewPipelineService(opts.Resolver, analyzer, signals, logger)
	pipeline.SetConfig(pipelineConfig(opts.Tuning, opts.CallTimeout))
	pipeline.SetIDGenerator(service.UUIDGenerator{})

	var (
		archiveSvc *service.ArchiveService
		expirer    *service.ArchiveExpirer
	)
	if opts.DB != nil {
		sessions := store.NewSOARSessionStore(opts.DB)
		archiveSvc = service.NewArchiveService(sessions, opts.Embedder, logger)
		if opts.ArchiveRetention > 0 {
			expirer = service.NewArchiveExpirer(sessions, opts.ArchiveRetention, logger)
			expirer.SetInterval(opts.ArchiveExpiryInterval)
		}
	}

	researchHandler := handlers.NewResearchHandler(pipeline, archiveSvc, logger)
	analysisHandler := handlers.NewAnalysisHandler(analyzer, signals)
	soarHandler := handlers.NewSOARHandler(archiveSvc)

	r := chi.NewRouter()
	app := &App{
		Router:      r,
		Pipeline:    pipeline,
		RateLimiter: mw.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		Expirer:     expirer,
		metrics:     mw.NewMetricsCollector(),
		db:          opts.DB,
		startTime:   time.Now(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiter.Middleware)

	r.Get("/health", app.healthHandler())
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.BearerAuth(opts.APIKey))

		r.Post("/research", researchHandler.Stream)
		r.Post("/analyze", analysisHandler.Analyze)
		r.Post("/steering/compose", analysisHandler.ComposeSteering)

		r.Route("/soar", func(r chi.Router) {
			r.Post("/probe", analysisHandler.Probe)
			r.Get("/sessions", soarHandler.List)
			r.Get("/sessions/similar", soarHandler.Similar)
			r.Get("/sessions/{id}", soarHandler.GetByID)
		})
	})

	return app
}

func pipelineConfig(t config.Tuning, callTimeout time.Duration) service.PipelineConfig {
	cfg := service.DefaultPipelineConfig()
	cfg.CallTimeout = t.CallTimeout()
	if callTimeout > 0 {
		cfg.CallTimeout = callTimeout
	}
	cfg.StagePause = t.StagePause()
	cfg.PacingMin = t.PacingMin()
	cfg.PacingMax = t.PacingMax()
	cfg.SOARDefaults.MaxIterations = t.SOAR.MaxIterations
	cfg.SOARDefaults.StonesPerCurriculum = t.SOAR.StonesPerCurriculum
	cfg.SatisfactionThreshold = t.SOAR.SatisfactionThreshold
	cfg.RewardWeights = service.RewardWeights{
		Confidence: t.Reward.Confidence,
		Entropy:    t.Reward.Entropy,
		Dissonance: t.Reward.Dissonance,
	}
	return cfg
}

func (app *App) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]string{"status": "ok", "archive": "disabled", "version": buildconfig.Version()}
		if app.db != nil {
			if err := app.db.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": err.Error()})
				return
			}
			resp["archive"] = "ok"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)
		runs := app.Pipeline.Stats()

		writeJSON(w, http.StatusOK, map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.metrics.Requests(),
			"error_count":    app.metrics.Errors(),
			"active_streams": app.metrics.ActiveStreams(),
			"runs": map[string]int64{
				"started":   runs.Started,
				"completed": runs.Completed,
				"errored":   runs.Errored,
				"cancelled": runs.Cancelled,
				"active":    runs.Active,
			},
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.SOARSessionStore = (*store.SOARSessionStore)(nil)
	_ domain.ModelResolver    = (*llm.Resolver)(nil)
	_ domain.EmbeddingClient  = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient  = (*embedding.MockClient)(nil)
	_ domain.LLMClient        = (*llm.OpenAIClient)(nil)
	_ domain.LLMClient        = (*llm.AnthropicClient)(nil)
	_ domain.LLMClient        = (*llm.GeminiClient)(nil)
	_ domain.LLMClient        = (*llm.MockClient)(nil)
	_ domain.LLMClient        = (*llm.RateLimitedClient)(nil)
	_ domain.QueryClassifier  = (*service.QueryAnalyzer)(nil)
	_ domain.SignalGenerator  = (*service.HeuristicSignalGenerator)(nil)
)
