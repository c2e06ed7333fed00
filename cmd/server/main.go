// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sara-smart-go/internal/config"
	"sara-smart-go/internal/intent"
	"sara-smart-go/internal/repository"
	"sara-smart-go/internal/service"
	"sara-smart-go/pkg/database"
	"sara-smart-go/pkg/es"
	"sara-smart-go/pkg/kafka"
	"sara-smart-go/pkg/llm"
	"sara-smart-go/pkg/log"
	"sara-smart-go/pkg/storage"
	"sara-smart-go/pkg/token"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := "./configs/config.yaml"
	if p := os.Getenv("SARA_CONFIG"); p != "" {
		configPath = p
	}

	// 1. 初始化配置
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化存储，未启用的组件使用内存实现
	var (
		conversationRepo repository.ConversationRepository
		statsRepo        repository.StatsRepository
		leadRepo         repository.LeadRepository
		recordRepo       repository.SessionRecordRepository
	)
	if cfg.Database.Redis.Enabled {
		database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		conversationRepo = repository.NewConversationRepository(database.RDB, cfg.Sara.HistoryLimit, cfg.Sara.SessionTTL)
		statsRepo = repository.NewStatsRepository(database.RDB)
	} else {
		log.Warnf("Redis 未启用，对话历史与全局统计只保存在内存中")
		conversationRepo = repository.NewMemoryConversationRepository(cfg.Sara.HistoryLimit)
		statsRepo = repository.NewMemoryStatsRepository()
	}
	if cfg.Database.MySQL.Enabled {
		database.InitMySQL(cfg.Database.MySQL.DSN)
		leadRepo = repository.NewLeadRepository(database.DB)
		recordRepo = repository.NewSessionRecordRepository(database.DB)
	} else {
		log.Warnf("MySQL 未启用，线索与会话归档只保存在内存中")
		leadRepo = repository.NewMemoryLeadRepository()
		recordRepo = repository.NewMemorySessionRecordRepository(1000)
	}

	var (
		indexer  service.SessionIndexer
		searcher service.SessionSearcher
	)
	if cfg.Elasticsearch.Enabled {
		if err := es.InitES(cfg.Elasticsearch); err != nil {
			log.Errorf("es 初始化失败，会话检索关闭: %v", err)
		} else {
			index := es.SessionIndex{IndexName: cfg.Elasticsearch.IndexName}
			indexer, searcher = index, index
		}
	}

	var reportArchiver service.ReportArchiver
	if cfg.MinIO.Enabled {
		storage.InitMinIO(cfg.MinIO)
		reportArchiver = storage.ReportArchive{Bucket: cfg.MinIO.BucketName, TTL: cfg.SEO.ArchiveTTL}
	}

	// 4. 模型供应方
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	models := llm.NewManagerFromConfig(rootCtx, cfg.LLM)
	var completer llm.Completer
	var refiner *intent.Refiner
	if models.Ready() {
		completer = models
		refiner = intent.NewRefiner(models)
	}

	// 5. 初始化 Service (依赖注入)
	archiver := service.NewSessionArchiver(recordRepo, indexer, statsRepo)
	var sink service.SessionSink = archiver
	if cfg.Kafka.Enabled {
		kafka.InitProducer(cfg.Kafka)
		sink = kafka.SessionPublisher{}
		// 会话事件经 Kafka 异步归档
		go kafka.StartConsumer(rootCtx, cfg.Kafka, archiver)
	}

	knowledge := service.NewKnowledgeService(cfg.Sara.KnowledgeDir)
	analytics := service.NewAnalyticsService(sink, recordRepo, statsRepo, service.AnalyticsOptions{
		AvgTicketBRL: cfg.Sara.AvgTicketBRL,
		USDToBRL:     cfg.Sara.USDToBRL,
	})
	analyzer := intent.NewAnalyzer(intent.ParseMode(cfg.Sara.IntentMode), cfg.Sara.IntentThreshold, refiner)
	chatService := service.NewChatService(
		analyzer,
		service.NewComposer(completer, knowledge),
		knowledge,
		conversationRepo,
		leadRepo,
		analytics,
	)
	seoService := service.NewSEOService(service.SafeHTTPClient(), completer, reportArchiver, service.SEOOptions{
		FetchTimeout: cfg.SEO.FetchTimeout,
		UserAgent:    cfg.SEO.UserAgent,
	})
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	adminService := service.NewAdminService(cfg.Admin, jwtManager, leadRepo, conversationRepo, recordRepo, searcher)

	// 6. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := newRouter(routerDeps{
		allowOrigin: cfg.Server.AllowOrigin,
		jwtManager:  jwtManager,
		chat:        chatService,
		seo:         seoService,
		analytics:   analytics,
		admin:       adminService,
		knowledge:   knowledge,
		models:      models,
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	// 未结束的会话以 unknown 归档，需在关闭 Kafka 生产者之前完成
	if err := analytics.Close(ctx); err != nil {
		log.Errorf("归档未结束会话失败: %v", err)
	}
	if cfg.Kafka.Enabled {
		if err := kafka.CloseProducer(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}
	cancelRoot()
	if err := models.Close(); err != nil {
		log.Warnf("关闭模型供应方失败: %v", err)
	}
	database.CloseMySQL()
	database.CloseRedis()
	log.Info("服务已优雅关闭")
}
