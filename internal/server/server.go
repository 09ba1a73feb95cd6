package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"transgate/internal/ai/providers"
	"transgate/internal/config"
	"transgate/internal/handler"
	"transgate/internal/pkg/cache"
	"transgate/internal/pkg/mongodb"
	"transgate/internal/repository"
	"transgate/internal/server/middleware"
	"transgate/internal/service"
	"transgate/internal/service/persistence"
)

// Server HTTP 服务器
type Server struct {
	cfg        *config.Config
	engine     *gin.Engine
	mongo      *mongodb.Client
	redis      *cache.RedisCache
	upstream   *providers.Holder
	dispatcher *persistence.Dispatcher
	translate  *service.TranslateService
	stats      *service.StatsService
}

// New 创建服务器实例
func New(cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 初始化 MongoDB (可选)
	var mongoClient *mongodb.Client
	if cfg.Mongo.URI != "" {
		client, err := mongodb.New(&cfg.Mongo)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to MongoDB, continuing without it")
		} else {
			mongoClient = client
			log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

			// 创建索引
			if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
				log.Warn().Err(err).Msg("failed to ensure indexes")
			}
		}
	}

	// 初始化 Redis (可选)
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without it")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	// 上游 Provider
	upstream, err := providers.NewHolder(context.Background(), config.NewAIHolder(cfg.AI))
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("provider", cfg.AI.Provider).
		Str("model", cfg.AI.Model).
		Bool("api_key_configured", cfg.AI.APIKey != "").
		Msg("initialized upstream provider")

	// 持久化
	sink := newSink(cfg, mongoClient)
	committer := persistence.NewCommitter(sink, persistence.NewFallbackStore(cfg.Persistence.BackupDir), &cfg.Persistence)
	dispatcher := persistence.NewDispatcher(committer, cfg.Persistence.Workers, cfg.Persistence.QueueSize)
	log.Info().
		Str("sink", sink.Name()).
		Str("backup_dir", cfg.Persistence.BackupDir).
		Int("workers", cfg.Persistence.Workers).
		Msg("initialized persistence")

	// 统计 (Redis 优先，其次 MongoDB)
	var (
		counter service.Counter
		records service.RecordCounter
	)
	if redisCache != nil {
		counter = redisCache
	}
	if mongoClient != nil {
		records = repository.NewRecordRepo(mongoClient.Database())
	}
	stats := service.NewStatsService(counter, records)

	srv := &Server{
		cfg:        cfg,
		engine:     engine,
		mongo:      mongoClient,
		redis:      redisCache,
		upstream:   upstream,
		dispatcher: dispatcher,
		translate:  service.NewTranslateService(upstream, committer, dispatcher, stats, cfg.Translate),
		stats:      stats,
	}

	// 设置路由
	srv.setupRoutes()

	return srv, nil
}

// newSink 按配置选择主存储；mongo 不可用时退化为只写本地备份
func newSink(cfg *config.Config, mongoClient *mongodb.Client) persistence.Sink {
	switch cfg.Persistence.Sink {
	case config.SinkHTTP:
		return persistence.NewHTTPSink(cfg.Persistence.URL, cfg.Persistence.Timeout)
	case config.SinkMongo:
		if mongoClient != nil {
			return persistence.NewMongoSink(repository.NewRecordRepo(mongoClient.Database()))
		}
		log.Warn().Msg("mongo sink configured but MongoDB unavailable, records go to local backup only")
	}
	return persistence.NoneSink()
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	var checks []handler.ReadinessCheck
	if s.mongo != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "mongo", Check: s.mongo.Ping})
	}
	if s.redis != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Check: s.redis.Ping})
	}
	healthHandler := handler.NewHealthHandler(checks...)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	metaHandler := handler.NewMetaHandler(s.upstream)
	translateHandler := handler.NewTranslateHandler(s.translate)

	s.engine.GET("/", metaHandler.Index)

	api := s.engine.Group("/api")
	{
		api.POST("/translate", translateHandler.Translate)
		api.POST("/translate/stream", translateHandler.TranslateStream)
		api.GET("/languages", metaHandler.ListLanguages)
		api.GET("/check", metaHandler.Check)
		api.POST("/config", metaHandler.Configure)
		api.GET("/health", metaHandler.Health)

		if s.mongo != nil {
			historyHandler := handler.NewHistoryHandler(repository.NewRecordRepo(s.mongo.Database()))
			api.GET("/history", historyHandler.List)
		} else {
			log.Warn().Msg("MongoDB not configured, history endpoint disabled")
		}

		if s.stats.Available() {
			api.GET("/stats", handler.NewStatsHandler(s.stats).Stats)
		} else {
			log.Warn().Msg("neither Redis nor MongoDB configured, stats endpoint disabled")
		}
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")
		return s.shutdown(srv)
	case err := <-errCh:
		s.closeBackends(context.Background())
		return err
	}
}

// shutdown 依次停止接收请求、清空持久化队列、关闭外部连接
func (s *Server) shutdown(srv *http.Server) error {
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := srv.Shutdown(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to shutdown HTTP server gracefully")
	}

	s.closeBackends(ctx)
	return err
}

func (s *Server) closeBackends(ctx context.Context) {
	if err := s.dispatcher.Close(ctx); err != nil {
		log.Error().Err(err).Msg("failed to drain persistence queue")
	}

	// 关闭连接
	if s.mongo != nil {
		if err := s.mongo.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close MongoDB connection")
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis connection")
		}
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
