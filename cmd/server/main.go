// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"finrag-go/internal/config"
	"finrag-go/internal/handler"
	"finrag-go/internal/middleware"
	"finrag-go/internal/pipeline"
	"finrag-go/internal/repository"
	"finrag-go/internal/service"
	"finrag-go/pkg/database"
	"finrag-go/pkg/embedding"
	"finrag-go/pkg/es"
	"finrag-go/pkg/gemini"
	"finrag-go/pkg/kafka"
	"finrag-go/pkg/llm"
	"finrag-go/pkg/log"
	"finrag-go/pkg/pdf"
	"finrag-go/pkg/qdrant"
	"finrag-go/pkg/storage"
	"finrag-go/pkg/token"
	"finrag-go/pkg/vectorstore"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化向量库和本地索引元数据
	store, err := newVectorStore(cfg)
	if err != nil {
		log.Fatal("向量库初始化失败", err)
	}
	defer store.Close()
	log.Infof("向量库初始化成功, type: %s, collection: %s", cfg.VectorStore.Type, store.Collection())

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal("数据库初始化失败", err)
	}
	indexRepo := repository.NewIndexRepository(db)

	// 4. 初始化模型客户端与管道
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	geminiClient := gemini.NewClient(cfg.Gemini)

	builder := pipeline.NewBuilder(pdf.NewSplitter(), geminiClient, cfg.Output.Dir)
	splitter := pipeline.NewSentenceSplitter(cfg.Chunking)
	indexer := pipeline.NewIndexer(splitter, embeddingClient, store, indexRepo, cfg.Output.Dir)

	// 5. 初始化 Service (依赖注入)
	retriever := service.NewRetriever(cfg.Retrieval.TopK)
	chatService := service.NewChatService(indexer, service.NewQueryAnalyzer(llmClient), retriever, service.NewGenerator(llmClient), cfg.Retrieval.TopK)
	searchService := service.NewSearchService(indexer, retriever)

	var async service.AsyncDeps
	closeAsync := func() {}
	if cfg.Ingest.Async {
		async, closeAsync, err = startAsyncIngestion(ctx, cfg, builder, indexer)
		if err != nil {
			log.Fatal("异步入库初始化失败", err)
		}
	}
	ingestService := service.NewIngestService(builder, indexer, cfg.Server.UploadDir, async)

	var jwtManager *token.JWTManager
	if cfg.Auth.JWTSecret != "" {
		jwtManager = token.NewJWTManager(cfg.Auth.JWTSecret)
		log.Info("上传接口已启用 JWT 鉴权")
	}

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.CORS(), middleware.RequestLogger(), gin.Recovery())

	handler.RegisterRoutes(r, handler.Handlers{
		Chat:       handler.NewChatHandler(chatService),
		Search:     handler.NewSearchHandler(searchService),
		Upload:     handler.NewUploadHandler(ingestService),
		IngestAuth: middleware.IngestAuth(jwtManager),
		Async:      cfg.Ingest.Async,
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	<-ctx.Done()
	log.Info("接收到停机信号，正在关闭服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	// HTTP 不再接收请求后才关闭 Kafka 与 Redis
	closeAsync()
	log.Info("服务已优雅关闭")
}

func newVectorStore(cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.VectorStore.Type {
	case "", "qdrant":
		return qdrant.NewStore(cfg.Qdrant)
	case "elasticsearch", "es":
		return es.NewStore(cfg.Elasticsearch)
	default:
		return nil, fmt.Errorf("unsupported vector_store.type %q", cfg.VectorStore.Type)
	}
}

// startAsyncIngestion 初始化 Redis、MinIO 与 Kafka，并在后台启动消费者。
// 返回的 close 函数等待消费者退出后释放连接，只应在停机时调用。
func startAsyncIngestion(ctx context.Context, cfg *config.Config, builder *pipeline.Builder, indexer *pipeline.Indexer) (service.AsyncDeps, func(), error) {
	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return service.AsyncDeps{}, nil, err
	}
	jobs := repository.NewJobRepository(rdb)

	objects, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		_ = rdb.Close()
		return service.AsyncDeps{}, nil, err
	}

	producer := kafka.NewProducer(cfg.Kafka)
	processor := pipeline.NewProcessor(objects, builder, indexer, jobs, filepath.Join(cfg.Server.UploadDir, "async"))
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Ingest.MaxAttempts, processor, jobs)

	// 启动后台 Kafka 消费者，ctx 结束时退出
	done := make(chan struct{})
	go func() {
		defer close(done)
		consumer.Run(ctx)
	}()

	closeFn := func() {
		<-done
		if err := producer.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
		if err := rdb.Close(); err != nil {
			log.Errorf("关闭 Redis 连接失败: %v", err)
		}
	}
	return service.AsyncDeps{Objects: objects, Producer: producer, Jobs: jobs}, closeFn, nil
}
