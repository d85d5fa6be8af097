package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fyerfyer/med-kb-engine/api"
	"github.com/fyerfyer/med-kb-engine/api/handler"
	"github.com/fyerfyer/med-kb-engine/api/middleware"
	appconfig "github.com/fyerfyer/med-kb-engine/config"
	"github.com/fyerfyer/med-kb-engine/internal/annotator"
	"github.com/fyerfyer/med-kb-engine/internal/cache"
	"github.com/fyerfyer/med-kb-engine/internal/cleaner"
	"github.com/fyerfyer/med-kb-engine/internal/database"
	"github.com/fyerfyer/med-kb-engine/internal/kb"
	"github.com/fyerfyer/med-kb-engine/internal/pipeline"
	"github.com/fyerfyer/med-kb-engine/internal/qagen"
	"github.com/fyerfyer/med-kb-engine/internal/repository"
	"github.com/fyerfyer/med-kb-engine/internal/searchengine"
	"github.com/fyerfyer/med-kb-engine/pkg/storage"
	"github.com/fyerfyer/med-kb-engine/pkg/taskqueue"
)

// 命令行选项
// 除少数运行时开关外，其余配置均来自配置文件和环境变量
type options struct {
	ConfigFile string // 配置文件路径
	Mode       string // 运行模式 (debug/release)
	LogLevel   string // 日志级别
	LogFile    string // 日志文件路径，为空时仅输出到标准输出
}

func main() {
	opts := parseFlags()

	// 加载.env文件（存在时），便于本地开发注入凭证
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
	}

	// 加载配置
	cfg, err := appconfig.Load(opts.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	// 设置Gin模式
	gin.SetMode(opts.Mode)

	// 初始化日志
	logger := setupLogger(opts)
	logger.Info("Starting medical knowledge base engine...")

	// 初始化数据库
	if err := setupDatabase(cfg, logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// 创建语料文件存储
	fileStorage, err := setupStorage(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// 创建缓存服务（可选）
	var cacheService cache.Cache
	if cfg.Cache.Enable {
		cacheService, err = setupCache(cfg)
		if err != nil {
			logger.Fatalf("Failed to initialize cache: %v", err)
		}
	}

	// 创建知识库搜索引擎
	engine, err := searchengine.NewEngine(searchengine.Config{
		Type:       cfg.SearchEngine.Type,
		Host:       cfg.SearchEngine.Host,
		APIKey:     cfg.SearchEngine.APIKey,
		Timeout:    cfg.SearchEngine.Timeout,
		MaxRetries: cfg.SearchEngine.MaxRetries,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize search engine: %v", err)
	}

	// 创建知识库集成器
	integratorOpts := []kb.IntegratorOption{}
	if cacheService != nil {
		ttl := time.Duration(cfg.Cache.TTL) * time.Second
		integratorOpts = append(integratorOpts, kb.WithCache(cacheService, ttl))
		logger.Info("Search result caching enabled")
	}
	integrator := kb.NewIntegrator(engine, logger, integratorOpts...)

	// 创建各处理组件
	textCleaner := cleaner.NewCleaner(cleaner.DefaultConfig(), logger)
	annotateEngine := annotator.NewEngine(logger)
	qaGenerator := qagen.NewGenerator(logger)

	// 创建运行记录仓储
	runRepo := repository.NewRunRepository(database.DB)

	// 创建流水线编排器
	orchestrator := pipeline.NewOrchestrator(logger,
		pipeline.WithCleaner(textCleaner),
		pipeline.WithAnnotator(annotateEngine),
		pipeline.WithGenerator(qaGenerator),
		pipeline.WithIntegrator(integrator),
		pipeline.WithRepository(runRepo),
	)

	// 初始化任务队列（如果启用）
	var queue taskqueue.Queue
	var worker taskqueue.Worker
	if cfg.Queue.Enable {
		queue, worker, err = setupTaskQueue(cfg, orchestrator, runRepo, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer queue.Close()
		defer worker.Stop()
		logger.Info("Task queue initialized successfully")
	}

	// 设置路由
	r := api.SetupRouter(api.Handlers{
		Clean:    handler.NewCleanHandler(textCleaner),
		Annotate: handler.NewAnnotateHandler(annotateEngine),
		QA:       handler.NewQAHandler(qaGenerator),
		Pipeline: handler.NewPipelineHandler(orchestrator, queue),
		KB:       handler.NewKBHandler(integrator),
		Corpus:   handler.NewCorpusHandler(fileStorage),
		Run:      handler.NewRunHandler(runRepo),
	})

	// 启动HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// 优雅关闭
	go func() {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// parseFlags 解析命令行参数
func parseFlags() options {
	opts := options{}

	flag.StringVar(&opts.ConfigFile, "config", "", "Path to config file")
	flag.StringVar(&opts.Mode, "mode", "debug", "Run mode (debug/release)")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug/info/warn/error)")
	flag.StringVar(&opts.LogFile, "log-file", "", "Log file path (empty for stdout only)")

	flag.Parse()
	return opts
}

// setupLogger 初始化日志配置
// 指定日志文件时启用滚动切割，同时保留标准输出
func setupLogger(opts options) *logrus.Logger {
	logger := middleware.GetLogger()

	switch opts.LogLevel {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if opts.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     30, // 天
			Compress:   true,
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}

	return logger
}

// setupDatabase 初始化数据库连接
func setupDatabase(cfg *appconfig.Config, logger *logrus.Logger) error {
	dbConfig := database.DefaultConfig()
	dbConfig.Type = cfg.Database.Type
	dbConfig.DSN = cfg.Database.DSN

	return database.Setup(dbConfig, logger)
}

// setupStorage 根据配置创建文件存储
func setupStorage(cfg *appconfig.Config) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case "minio":
		return storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
	default:
		return storage.NewLocalStorage(storage.LocalConfig{
			Path: cfg.Storage.Path,
		})
	}
}

// setupCache 创建缓存服务
func setupCache(cfg *appconfig.Config) (cache.Cache, error) {
	cacheConfig := cache.Config{
		Type:            cfg.Cache.Type,
		DefaultTTL:      time.Duration(cfg.Cache.TTL) * time.Second,
		CleanupInterval: 10 * time.Minute,
	}

	if cfg.Cache.Type == "redis" {
		cacheConfig.RedisAddr = cfg.Cache.Address
		cacheConfig.RedisPassword = cfg.Cache.Password
		cacheConfig.RedisDB = cfg.Cache.DB
	}

	return cache.NewCache(cacheConfig)
}

// setupTaskQueue 创建任务队列和工作者
// 工作者进程内执行流水线任务，完成后由回调处理器串联后续入库任务
func setupTaskQueue(cfg *appconfig.Config, orchestrator *pipeline.Orchestrator,
	repo repository.RunRepository, logger *logrus.Logger) (taskqueue.Queue, taskqueue.Worker, error) {
	queueConfig := taskqueue.DefaultConfig()
	queueConfig.RedisAddr = cfg.Queue.RedisAddr
	queueConfig.RedisPassword = cfg.Queue.RedisPassword
	queueConfig.RedisDB = cfg.Queue.RedisDB
	queueConfig.Concurrency = cfg.Queue.Concurrency
	queueConfig.RetryLimit = cfg.Queue.RetryLimit
	queueConfig.RetryDelay = time.Duration(cfg.Queue.RetryDelay) * time.Second

	logger.WithFields(logrus.Fields{
		"type":        cfg.Queue.Type,
		"redis_addr":  cfg.Queue.RedisAddr,
		"concurrency": cfg.Queue.Concurrency,
		"retry_limit": cfg.Queue.RetryLimit,
	}).Info("Setting up task queue")

	queue, err := taskqueue.NewQueue(cfg.Queue.Type, queueConfig)
	if err != nil {
		return nil, nil, err
	}

	redisQueue, ok := queue.(*taskqueue.RedisQueue)
	if !ok {
		queue.Close()
		return nil, nil, fmt.Errorf("unsupported queue type for worker: %s", cfg.Queue.Type)
	}

	// 注册任务完成后的默认回调
	taskqueue.GetSharedCallbackProcessor(queue, logger).RegisterDefaultHandlers(queue)

	// 启动工作者处理流水线任务
	worker := taskqueue.NewRedisWorker(redisQueue, queueConfig)
	taskHandler := pipeline.NewTaskHandler(orchestrator, queue, repo, logger)
	for _, taskType := range taskHandler.GetTaskTypes() {
		worker.RegisterHandler(taskType, taskHandler)
	}
	if err := worker.Start(); err != nil {
		queue.Close()
		return nil, nil, fmt.Errorf("failed to start task worker: %v", err)
	}

	return queue, worker, nil
}
