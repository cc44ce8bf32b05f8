package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/botforgehq/botforge/internal/config"
	"github.com/botforgehq/botforge/internal/database"
	"github.com/botforgehq/botforge/internal/dataset"
	"github.com/botforgehq/botforge/internal/eval"
	"github.com/botforgehq/botforge/internal/events"
	"github.com/botforgehq/botforge/internal/finetune"
	"github.com/botforgehq/botforge/internal/provider"
	"github.com/botforgehq/botforge/internal/queue"
	"github.com/botforgehq/botforge/internal/queue/workers"
	"github.com/botforgehq/botforge/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	stores := store.NewPostgresStores(db)
	pub := events.NewRedisPublisher(rdb)
	queueClient := queue.NewClient(cfg.Redis)

	var ftProvider provider.Client
	if cfg.Provider.OpenAIBaseURL != "" {
		ftProvider = provider.NewOpenAIClientWithBaseURL(cfg.Provider.OpenAIKey, cfg.Provider.OpenAIBaseURL)
	} else {
		ftProvider = provider.NewOpenAIClient(cfg.Provider.OpenAIKey)
	}

	var genChat provider.ChatCompleter = ftProvider
	if cfg.Provider.GenerationBackend == "anthropic" {
		genChat = provider.NewAnthropicClient(cfg.Provider.AnthropicKey)
	}

	generator := dataset.NewGenerator(genChat, cfg.Provider.GenerationModel)
	runner := dataset.NewRunner(stores.Datasets, generator, pub)
	finetuneSvc := finetune.NewService(stores, ftProvider, pub, queueClient)
	evaluator := eval.NewEvaluator(ftProvider, stores.Reports)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(queue.TypeDatasetGenerate, workers.NewDatasetWorker(runner))
	mux.Handle(queue.TypeFinetunePoll, workers.NewFinetuneWorker(finetuneSvc))
	mux.Handle(queue.TypeReportEvaluate, workers.NewEvalWorker(evaluator, stores.Jobs, stores.Datasets))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
