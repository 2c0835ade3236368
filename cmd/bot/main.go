package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"nvc-coach/internal/auditlog"
	"nvc-coach/internal/botsession"
	"nvc-coach/internal/config"
	"nvc-coach/internal/llm"
	"nvc-coach/internal/queue"
	"nvc-coach/internal/scheduler"
	"nvc-coach/internal/session"
	"nvc-coach/internal/storage"
	"nvc-coach/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("failed to init session store: %v", err)
	}
	defer func() { _ = store.Close() }()

	factory := &llm.Factory{
		OpenaiAPIKey:       cfg.OpenAIAPIKey,
		OpenaiBaseURL:      cfg.OpenAIBaseURL,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
	}
	llmClient, err := factory.CreateClient(string(cfg.LLMProvider), cfg.OpenAIModel)
	if err != nil {
		log.Fatalf("failed to create llm client: %v", err)
	}

	var recorder auditlog.Recorder
	if cfg.AuditLogPath != "" {
		fr, err := auditlog.NewFileRecorder(cfg.AuditLogPath)
		if err != nil {
			log.Printf("failed to init audit log: %v", err)
		} else {
			recorder = fr
		}
	}

	sessions := session.NewManager(store, botsession.Slots()...)
	turns := queue.New(queue.WithTaskTimeout(cfg.TurnTimeout))

	bot, err := telegram.New(
		cfg.TelegramBotToken,
		sessions,
		turns,
		llmClient,
		readSystemPrompt(cfg.SystemPromptPath),
		recorder,
		cfg.AdminUserID,
	)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	if recorder != nil {
		sched := scheduler.New(recorder, bot.SendAdminReport)
		if err := sched.Start(); err != nil {
			log.Printf("failed to start scheduler: %v", err)
		} else {
			defer sched.Stop()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot.Start(ctx)

	// Let in-flight turns finish their persist cycle before exiting.
	turns.Close()
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch storage.Kind(cfg.StoreKind) {
	case storage.KindRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		return storage.New(storage.KindRedis,
			storage.WithRedisClient(client),
			storage.WithRedisTTL(cfg.RedisTTL),
		)
	case storage.KindSupabase:
		return storage.New(storage.KindSupabase,
			storage.WithSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseTable),
		)
	case storage.KindMemory:
		return storage.New(storage.KindMemory)
	default:
		return storage.New(storage.KindFile, storage.WithFilePath(cfg.StoreFilePath))
	}
}

func readSystemPrompt(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("system prompt file not found or unreadable at %s: %v", path, err)
		return ""
	}
	return string(data)
}
