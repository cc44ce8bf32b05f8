package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/botforgehq/botforge/internal/api/handlers"
	"github.com/botforgehq/botforge/internal/api/middleware"
	"github.com/botforgehq/botforge/internal/auth"
	"github.com/botforgehq/botforge/internal/config"
	"github.com/botforgehq/botforge/internal/dataset"
	"github.com/botforgehq/botforge/internal/events"
	"github.com/botforgehq/botforge/internal/finetune"
	"github.com/botforgehq/botforge/internal/provider"
	"github.com/botforgehq/botforge/internal/queue"
	"github.com/botforgehq/botforge/internal/store"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		jwt:   auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Initialize services
	stores := store.NewPostgresStores(rt.db)
	pub := events.NewRedisPublisher(rt.redis)
	queueClient := queue.NewClient(rt.cfg.Redis)

	var ftProvider provider.Client
	if rt.cfg.Provider.OpenAIBaseURL != "" {
		ftProvider = provider.NewOpenAIClientWithBaseURL(rt.cfg.Provider.OpenAIKey, rt.cfg.Provider.OpenAIBaseURL)
	} else {
		ftProvider = provider.NewOpenAIClient(rt.cfg.Provider.OpenAIKey)
	}

	datasetSvc := dataset.NewService(stores.Datasets, pub, queueClient)
	importer := dataset.NewImporter(stores.Datasets, pub)
	finetuneSvc := finetune.NewService(stores, ftProvider, pub, queueClient)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		// Dataset routes
		datasetH := handlers.NewDatasetHandler(datasetSvc, importer)
		r.Route("/datasets", func(r chi.Router) {
			r.Post("/generate", datasetH.Generate)
			r.Post("/import", datasetH.Import)
			r.Get("/", datasetH.List)
			r.Get("/{id}", datasetH.Get)
			r.Delete("/{id}", datasetH.Delete)
			r.Post("/{id}/source-material", datasetH.SourceMaterial)
		})

		// Bot routes
		botH := handlers.NewBotHandler(stores.Bots)
		r.Route("/bots", func(r chi.Router) {
			r.Post("/", botH.Create)
			r.Get("/", botH.List)
			r.Get("/{id}", botH.Get)
		})

		// Fine-tune routes
		finetuneH := handlers.NewFinetuneHandler(finetuneSvc)
		r.Route("/finetune", func(r chi.Router) {
			r.Post("/jobs", finetuneH.CreateJob)
			r.Get("/jobs", finetuneH.ListJobs)
			r.Get("/jobs/{id}", finetuneH.GetJob)
			r.Post("/jobs/{id}/sync", finetuneH.Sync)
			r.Post("/jobs/{id}/cancel", finetuneH.Cancel)
			r.Delete("/jobs/{id}", finetuneH.DeleteJob)
		})

		// Training report routes
		reportH := handlers.NewReportHandler(stores.Reports, stores.Bots)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/", reportH.List)
			r.Get("/{id}", reportH.Get)
		})
	})

	return r
}
