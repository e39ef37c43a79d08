package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	// 导入项目包
	appConfig "github.com/Xushengqwer/article_service/config"
	"github.com/Xushengqwer/article_service/constant"
	"github.com/Xushengqwer/article_service/controller"
	"github.com/Xushengqwer/article_service/dependencies"
	"github.com/Xushengqwer/article_service/mq/consumer"
	"github.com/Xushengqwer/article_service/mq/producer"
	"github.com/Xushengqwer/article_service/repo/mysql"
	redisrepo "github.com/Xushengqwer/article_service/repo/redis"
	"github.com/Xushengqwer/article_service/router"
	"github.com/Xushengqwer/article_service/service"
	articlesync "github.com/Xushengqwer/article_service/sync"
	"github.com/Xushengqwer/article_service/tagcodec"
	"github.com/Xushengqwer/article_service/tasks"

	// 导入公共模块
	sharedCore "github.com/Xushengqwer/go-common/core"
	sharedTracing "github.com/Xushengqwer/go-common/core/tracing"

	// 导入 OTel HTTP Client Instrumentation
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	// 导入 Zap
	"go.uber.org/zap"
)

// @title           Article Service API
// @version         1.0
// @description     文章服务，提供文章创作、生命周期管理、全文搜索与索引同步能力。
// @termsOfService  http://swagger.io/terms/

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8083

// @schemes http https
func main() {
	// --- 配置和基础设置 ---
	var configFile string
	flag.StringVar(&configFile, "config", "config/config.development.yaml", "Path to configuration file")
	flag.Parse()

	// 1. 加载配置
	var cfg appConfig.ArticleConfig
	if err := sharedCore.LoadConfig(configFile, &cfg); err != nil {
		log.Fatalf("FATAL: 加载配置失败 (%s): %v", configFile, err)
	}

	// 打印最终生效的配置以供调试
	configBytes, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		log.Fatalf("无法序列化配置以进行打印: %v", err)
	}
	log.Printf("✅ 配置加载成功！最终生效的配置如下:\n%s\n", string(configBytes))

	// 2. 初始化 Logger
	logger, loggerErr := sharedCore.NewZapLogger(cfg.ZapConfig)
	if loggerErr != nil {
		log.Fatalf("FATAL: 初始化 ZapLogger 失败: %v", loggerErr)
	}
	defer func() {
		logger.Info("正在同步日志...")
		if err := logger.Logger().Sync(); err != nil {
			log.Printf("WARN: ZapLogger Sync 失败: %v\n", err)
		}
	}()
	logger.Info("Logger 初始化成功")

	// 标签列解码失败不阻塞读取，但要留下痕迹供排查脏数据。
	tagcodec.SetDiagnostic(func(raw string, err error) {
		logger.Warn("标签列解码失败，已按空列表处理",
			zap.String("raw", raw),
			zap.Error(err),
		)
	})

	// 3. 初始化 TracerProvider
	var tracerShutdown func(context.Context) error
	if cfg.TracerConfig.Enabled {
		var err error
		tracerShutdown, err = sharedTracing.InitTracerProvider(
			constant.ServiceName,
			constant.ServiceVersion,
			cfg.TracerConfig,
		)
		if err != nil {
			logger.Fatal("初始化 TracerProvider 失败", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("正在关闭 TracerProvider...")
			if err := tracerShutdown(ctx); err != nil {
				logger.Error("关闭 TracerProvider 失败", zap.Error(err))
			} else {
				logger.Info("TracerProvider 已成功关闭")
			}
		}()
		logger.Info("分布式追踪已初始化")
		// 当前服务不主动发起 HTTP 调用，仅初始化 Transport 备用。
		_ = otelhttp.NewTransport(http.DefaultTransport)
	} else {
		logger.Info("分布式追踪已禁用")
		tracerShutdown = func(ctx context.Context) error { return nil }
	}

	// --- 4. 初始化核心依赖 ---
	// 4.1 数据库 (MySQL)，文章数据的权威来源
	db, dbErr := dependencies.InitMySQL(&cfg, logger)
	if dbErr != nil {
		logger.Fatal("初始化 MySQL 数据库失败", zap.Error(dbErr))
	}
	logger.Info("MySQL 数据库连接成功")

	// 4.2 Redis，承载定时发布队列与同步死信
	rdb, redisErr := dependencies.InitRedis(&cfg.RedisConfig, logger)
	if redisErr != nil {
		logger.Fatal("初始化 Redis 失败", zap.Error(redisErr))
	}
	logger.Info("Redis 连接成功")

	// 4.3 COS 客户端，封面图存储
	cosClient, cosErr := dependencies.InitCOS(&cfg.COSConfig, logger)
	if cosErr != nil {
		logger.Fatal("初始化 COS 客户端失败", zap.Error(cosErr))
	}
	logger.Info("COS 客户端初始化成功")

	// 4.4 搜索索引 (bleve)，主存储的派生投影
	searchIndex, indexErr := dependencies.InitSearchIndex(&cfg.SearchConfig, logger)
	if indexErr != nil {
		logger.Fatal("初始化搜索索引失败", zap.Error(indexErr))
	}

	// 4.5 Kafka 生产者
	var kafkaProducer *producer.KafkaProducer
	var syncPublisher producer.SyncEventPublisher
	if len(cfg.KafkaConfig.Brokers) > 0 {
		kafkaProducer = producer.NewKafkaProducer(cfg.KafkaConfig, logger)
		syncPublisher = kafkaProducer
		logger.Info("Kafka 生产者已初始化")
	} else {
		logger.Warn("未配置 Kafka brokers，写路径不发同步事件，索引依赖对账任务")
	}

	// --- 5. 初始化数据仓库层 (Repositories) ---
	articleRepo := mysql.NewArticleRepository(db, logger.Logger())
	logger.Debug("MySQL Repositories 初始化完成")

	scheduleQueue := redisrepo.NewPublishScheduleQueue(rdb, logger)
	deadLetterStore := redisrepo.NewDeadLetterStore(rdb, logger)
	logger.Debug("Redis Repositories 初始化完成")

	// --- 6. 初始化同步协调器与对账器 ---
	coordinator := articlesync.NewCoordinator(articleRepo, searchIndex, deadLetterStore, &cfg.SyncConfig, logger.Logger())
	reconciler := articlesync.NewReconciler(articleRepo, searchIndex, deadLetterStore, coordinator, &cfg.ReconcileConfig, logger.Logger())
	logger.Info("索引同步协调器已启动", zap.Int("workers", cfg.SyncConfig.Workers))

	// --- 7. 初始化服务层 (Services) ---
	articleService := service.NewArticleService(db, articleRepo, scheduleQueue, cosClient, syncPublisher, logger)
	articleQueryService := service.NewArticleQueryService(articleRepo, searchIndex, logger)
	logger.Debug("Services 初始化完成")

	// --- 8. 初始化定时任务 ---
	scheduledPublishTask := tasks.NewScheduledPublishTask(scheduleQueue, articleRepo, coordinator, logger)
	reconciliationTask := tasks.NewReconciliationTask(reconciler, &cfg.ReconcileConfig, logger)
	logger.Info("后台定时任务已初始化并启动")

	// --- 9. 初始化控制器层 (Controllers) ---
	articleController := controller.NewArticleController(articleService)
	searchController := controller.NewSearchController(articleQueryService)
	articleAdminController := controller.NewArticleAdminController(articleQueryService, reconciliationTask)
	logger.Debug("Controllers 初始化完成")

	// --- 10. 初始化 Kafka 消费者 ---
	var consumers []*consumer.Consumer
	var consumerWg sync.WaitGroup
	consumerCtx, consumerCancel := context.WithCancel(context.Background())

	if len(cfg.KafkaConfig.Brokers) > 0 {
		groupID := cfg.KafkaConfig.ConsumerGroupID
		if groupID == "" {
			logger.Warn("Kafka ConsumerGroupID 未在配置中设置，将使用默认值 'article_service_group'")
			groupID = "article_service_group"
		}

		syncTopic := cfg.KafkaConfig.Topics.ArticleSync
		if syncTopic != "" {
			syncHandler := consumer.NewSyncEventHandler(logger, coordinator)
			syncConsumer, err := consumer.NewConsumer(
				&cfg.KafkaConfig,
				groupID,
				syncTopic,
				syncHandler,
				logger,
			)
			if err != nil {
				logger.Fatal("初始化索引同步 Kafka 消费者失败", zap.Error(err))
			}
			consumers = append(consumers, syncConsumer)
			logger.Info("索引同步 Kafka 消费者已准备就绪", zap.String("topic", syncTopic))
		} else {
			logger.Warn("ArticleSync topic 未配置，跳过同步消费者创建")
		}

		if len(consumers) > 0 {
			logger.Info(fmt.Sprintf("准备启动 %d 个 Kafka 消费者...", len(consumers)))
			for _, c := range consumers {
				consumerWg.Add(1)
				go func(cons *consumer.Consumer) {
					defer consumerWg.Done()
					cons.Start(consumerCtx)
				}(c)
			}
		}
	} else {
		logger.Warn("Kafka Brokers 未配置，跳过所有 Kafka 消费者初始化。")
	}

	// --- 11. 设置 Gin 路由器 ---
	ginRouter := router.SetupRouter(logger, &cfg, articleController, searchController, articleAdminController)
	logger.Info("Gin 路由器已设置")

	// --- 12. 启动 HTTP 服务器 ---
	serverAddr := fmt.Sprintf(":%s", cfg.ServerConfig.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: ginRouter,
	}

	go func() {
		logger.Info("HTTP 服务器开始监听", zap.String("address", serverAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器启动失败", zap.Error(err))
		}
		logger.Info("HTTP 服务器已停止监听")
	}()

	// --- 13. 实现优雅关停 ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	logger.Info("收到关停信号，开始优雅退出...", zap.String("signal", receivedSignal.String()))

	shutdownCtx, shutdownCancelFunc := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancelFunc()

	// a. 停止 HTTP 服务器 (允许处理完当前请求)
	logger.Info("正在关闭 HTTP 服务器...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭 HTTP 服务器失败", zap.Error(err))
	} else {
		logger.Info("HTTP 服务器已成功关闭")
	}

	// b. 关闭 Kafka 消费者：先停止投递新事件，再等读取循环退出
	logger.Info("正在发送停止信号给 Kafka 消费者...")
	consumerCancel()
	consumerWg.Wait()
	for _, c := range consumers {
		if err := c.Close(); err != nil {
			logger.Error("关闭某个 Kafka 消费者时出错", zap.Error(err))
		}
	}
	logger.Info("所有 Kafka 消费者已停止。")

	// c. 停止定时任务调度器 (等待任务结束)
	logger.Info("正在停止定时任务...")
	publishStopCtx := scheduledPublishTask.Stop()
	reconcileStopCtx := reconciliationTask.Stop()
	for _, stopCtx := range []context.Context{publishStopCtx, reconcileStopCtx} {
		select {
		case <-stopCtx.Done():
		case <-shutdownCtx.Done():
			logger.Error("等待定时任务停止超时", zap.Error(shutdownCtx.Err()))
		}
	}
	logger.Info("所有定时任务已停止")

	// d. 停止同步协调器，等待在途事件落地后关闭索引
	logger.Info("正在停止索引同步协调器...")
	if err := coordinator.Stop(shutdownCtx); err != nil {
		logger.Error("停止同步协调器超时，未完成事件由下次对账兜底", zap.Error(err))
	} else {
		logger.Info("索引同步协调器已停止")
	}
	if err := searchIndex.Close(); err != nil {
		logger.Error("关闭搜索索引失败", zap.Error(err))
	} else {
		logger.Info("搜索索引已关闭")
	}

	// e. 关闭 Kafka 生产者
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.Error("关闭 Kafka 生产者失败", zap.Error(err))
		}
	}

	logger.Info("服务已成功关闭")
}
