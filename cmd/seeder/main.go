package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Xushengqwer/go-common/core"
	"go.uber.org/zap"

	appConfig "github.com/Xushengqwer/article_service/config"
	"github.com/Xushengqwer/article_service/dependencies"
	"github.com/Xushengqwer/article_service/mq/producer"
	"github.com/Xushengqwer/article_service/repo/mysql"
	redisRepo "github.com/Xushengqwer/article_service/repo/redis"
	articleServicePkg "github.com/Xushengqwer/article_service/service"
)

func main() {
	// --- 0. 解析命令行参数 ---
	var numArticles int
	var publishRatio float64
	var configFile string
	flag.StringVar(&configFile, "config", "config/config.development.yaml", "配置文件路径")
	flag.IntVar(&numArticles, "n", 50, "要生成的文章数量 (默认: 50)")
	flag.Float64Var(&publishRatio, "publish", 0.6, "生成后立即发布的比例 (默认: 0.6)")
	var waitSeconds int
	flag.IntVar(&waitSeconds, "wait", 5, "数据填充后等待的秒数 (确保异步事件发出, 默认: 5秒)")
	flag.Parse()

	absConfigFile, err := filepath.Abs(configFile)
	if err != nil {
		fmt.Printf("无法获取配置文件的绝对路径 '%s': %v\n", configFile, err)
		absConfigFile = configFile
	}
	fmt.Printf("准备使用配置文件 '%s' 生成 %d 篇测试文章...\n", absConfigFile, numArticles)

	if numArticles <= 0 {
		fmt.Println("错误: 生成的文章数量必须大于 0")
		os.Exit(1)
	}
	if publishRatio < 0 || publishRatio > 1 {
		fmt.Println("错误: 发布比例必须在 [0, 1] 区间内")
		os.Exit(1)
	}

	// --- 1. 加载配置 ---
	var cfg appConfig.ArticleConfig
	if err := core.LoadConfig(absConfigFile, &cfg); err != nil {
		fmt.Printf("加载配置失败 (%s): %v\n", absConfigFile, err)
		os.Exit(1)
	}
	fmt.Println("配置加载成功。")

	// --- 2. 初始化日志记录器 ---
	logger, loggerErr := core.NewZapLogger(cfg.ZapConfig)
	if loggerErr != nil {
		fmt.Printf("初始化 ZapLogger 失败: %v\n", loggerErr)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Logger().Sync()
	}()
	logger.Info("Logger 初始化成功 (Seeder)")

	// --- 3. 初始化 MySQL 数据库连接 ---
	db, dbErr := dependencies.InitMySQL(&cfg, logger)
	if dbErr != nil {
		logger.Fatal("初始化 MySQL 失败 (Seeder)", zap.Error(dbErr))
	}
	logger.Info("MySQL 连接成功 (Seeder)")

	// --- 4. 初始化 Redis (定时发布队列依赖) ---
	rdb, redisErr := dependencies.InitRedis(&cfg.RedisConfig, logger)
	if redisErr != nil {
		logger.Fatal("初始化 Redis 失败 (Seeder)", zap.Error(redisErr))
	}

	// --- 5. 初始化 COS 客户端 ---
	cosClient, cosErr := dependencies.InitCOS(&cfg.COSConfig, logger)
	if cosErr != nil {
		logger.Fatal("初始化 COS 客户端失败 (Seeder)", zap.Error(cosErr))
	}

	// --- 6. 初始化 Kafka 生产者 ---
	var syncPublisher producer.SyncEventPublisher
	var kafkaProducer *producer.KafkaProducer
	if len(cfg.KafkaConfig.Brokers) > 0 {
		kafkaProducer = producer.NewKafkaProducer(cfg.KafkaConfig, logger)
		syncPublisher = kafkaProducer
		logger.Info("Kafka 生产者已初始化 (Seeder)")
	} else {
		logger.Warn("未配置 Kafka brokers，填充的发布动作不会产生同步事件，索引依赖对账任务")
	}

	// --- 7. 初始化 Repositories 与 Service ---
	articleRepo := mysql.NewArticleRepository(db, logger.Logger())
	scheduleQueue := redisRepo.NewPublishScheduleQueue(rdb, logger)

	articleSvc := articleServicePkg.NewArticleService(
		db,
		articleRepo,
		scheduleQueue,
		cosClient,
		syncPublisher,
		logger,
	)
	logger.Info("ArticleService 已初始化 (Seeder)")

	// --- 8. 执行数据填充 ---
	ctx := context.Background()
	startTime := time.Now()

	Seed(ctx, articleSvc, logger, numArticles, publishRatio)

	logger.Info("数据填充主要逻辑完成！", zap.Duration("耗时", time.Since(startTime)))

	// --- 9. 等待异步 Kafka 消息发送完成 ---
	if waitSeconds > 0 {
		logger.Info(fmt.Sprintf("Seeder: 等待 %d 秒以允许异步事件发送...", waitSeconds))
		time.Sleep(time.Duration(waitSeconds) * time.Second)
	}
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.Error("关闭 Kafka 生产者失败 (Seeder)", zap.Error(err))
		}
	}

	fmt.Printf("数据填充完成！总耗时: %v\n", time.Since(startTime))
}
