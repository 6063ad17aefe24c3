package main

import (
	"context"
	"errors"
	"fmt"

	"hotel-insights-go/internal/config"
	"hotel-insights-go/internal/rag"
	"hotel-insights-go/internal/repository"
	"hotel-insights-go/internal/service"
	"hotel-insights-go/internal/vectorindex"
	"hotel-insights-go/pkg/database"
	"hotel-insights-go/pkg/embedding"
	"hotel-insights-go/pkg/es"
	"hotel-insights-go/pkg/llm"
	"hotel-insights-go/pkg/log"
	"hotel-insights-go/pkg/storage"
)

// 向量索引后端
const (
	backendLocal         = "local"
	backendElasticsearch = "elasticsearch"
)

// app 持有各命令共享的组件。
type app struct {
	cfg            config.Config
	bookingRepo    repository.BookingRepository
	insightService service.InsightService
}

// bootstrap 初始化配置、日志与数据库。所有子命令都需要这一步。
func bootstrap() (config.Config, repository.BookingRepository) {
	// 1. 初始化配置
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库
	database.Init(cfg.Database.Driver, cfg.Database.DSN)
	bookingRepo := repository.NewBookingRepository(database.DB)
	if cfg.Database.AutoMigrate {
		if err := bookingRepo.AutoMigrate(); err != nil {
			log.Fatal("自动迁移 bookings 表失败", err)
		}
	}
	return cfg, bookingRepo
}

// newApp 在 bootstrap 之后初始化模型客户端与索引后端。
func newApp(ctx context.Context, cfg config.Config, bookingRepo repository.BookingRepository) (*app, error) {
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	embedder, err := embedding.NewClient(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	embedder = embedding.NewCachedClient(embedder, database.RDB, cfg.Embedding.Model, cfg.Embedding.CacheTTL())

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return nil, err
	}

	builder, err := newBuilder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := rag.Options{
		TopK:       cfg.VectorIndex.TopK,
		Prompt:     rag.PromptFromConfig(cfg.LLM.Prompt),
		Condense:   cfg.LLM.CondenseQuestion,
		Generation: llm.GenerationParamsFromConfig(cfg.LLM.Generation),
	}
	return &app{
		cfg:            cfg,
		bookingRepo:    bookingRepo,
		insightService: service.NewInsightService(bookingRepo, embedder, llmClient, builder, opts),
	}, nil
}

func newBuilder(ctx context.Context, cfg config.Config) (vectorindex.Builder, error) {
	switch cfg.VectorIndex.Backend {
	case backendLocal, "":
		var mirror *storage.Mirror
		if cfg.MinIO.Enabled {
			if err := storage.InitMinIO(ctx, cfg.MinIO); err != nil {
				// 镜像只是备份，失败时仍然可以使用本地快照
				log.Warnf("[MinIO] 初始化失败, 索引快照不做镜像: %v", err)
			}
			mirror = storage.NewMirror(storage.MinioClient, cfg.MinIO.BucketName, cfg.MinIO.ObjectName)
		}
		return vectorindex.NewLocalBuilder(cfg.VectorIndex.Dir, mirror), nil
	case backendElasticsearch:
		if err := es.InitES(cfg.Elasticsearch); err != nil {
			return nil, fmt.Errorf("初始化 Elasticsearch 失败: %w", err)
		}
		return vectorindex.NewElasticBuilder(es.ESClient, cfg.Elasticsearch.IndexName), nil
	default:
		return nil, fmt.Errorf("unsupported vector index backend: %s", cfg.VectorIndex.Backend)
	}
}

// warmUp 优先从持久化的索引恢复，让服务尽快可用。
func (a *app) warmUp(ctx context.Context) bool {
	err := a.insightService.Restore(ctx)
	if err == nil {
		return true
	}
	if !errors.Is(err, vectorindex.ErrNoSnapshot) {
		log.Warnf("[App] 恢复索引快照失败: %v", err)
	}
	return false
}

func newConversationRepository(cfg config.Config) repository.ConversationRepository {
	if database.RDB != nil {
		return repository.NewConversationRepository(database.RDB, cfg.Session.HistoryLimit)
	}
	return repository.NewMemoryConversationRepository(cfg.Session.HistoryLimit)
}
