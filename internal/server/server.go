package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"devops-gpt/config"
	"devops-gpt/internal/db"
	"devops-gpt/internal/handlers"
	"devops-gpt/internal/repositories"
	"devops-gpt/internal/routes"
	"devops-gpt/internal/services"
	"devops-gpt/internal/workers"

	"github.com/gorilla/mux"
	"github.com/juju/errors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Server wires configuration, storage, workers and routes behind one http.Server
type Server struct {
	cfg     config.Config
	logger  *log.Logger
	server  *http.Server
	workers *workers.WorkerPool
	redis   *db.RedisClient
}

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs method, path, status and duration of every request
func loggingMiddleware(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Printf("%s %s %d %v", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// New builds the server. Redis problems are not fatal: the conversation
// store falls back to memory, the same way the rest of the API keeps
// serving when a backend is missing.
func New(cfg config.Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		workers: workers.NewWorkerPool(),
	}

	assistant := initializeAssistant(cfg, logger)
	conversations := s.initializeConversationStore()
	extractor := services.NewKeywordTopicExtractor()

	controller := handlers.NewDevOpsGptController(assistant, conversations, extractor, logger)

	s.workers.AddWorker(workers.NewRetentionWorker(workers.RetentionWorkerConfig{
		WorkerConfig: workers.WorkerConfig{
			WorkerName:      "retention-worker",
			PollInterval:    cfg.RetentionInterval,
			ShutdownTimeout: cfg.ShutdownTimeout,
			EnableRecovery:  true,
		},
		Store:  conversations,
		Logger: &simpleLogger{logger: logger},
	}))

	h := &routes.Handlers{
		Health:             handlers.HealthCheckHandler,
		Home:               controller.HomeHandler,
		LLMHealth:          controller.LLMHealthHandler,
		Chat:               controller.ChatHandler,
		ListConversations:  controller.ListConversations,
		GetConversation:    controller.GetConversation,
		DeleteConversation: controller.DeleteConversation,
		Docs: httpSwagger.Handler(
			httpSwagger.URL(fmt.Sprintf("http://%s/swagger/doc.json", cfg.SwaggerHost)), // The url pointing to API definition
			httpSwagger.DeepLinking(true),
			httpSwagger.DocExpansion("none"),
			httpSwagger.DomID("swagger-ui"),
		),
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, h)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           loggingMiddleware(logger, corsMiddleware(router)),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

// Handler exposes the root handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run starts the workers and the HTTP server and blocks until it exits or errors
func (s *Server) Run(ctx context.Context) error {
	if err := s.workers.StartAll(ctx); err != nil {
		s.logger.Printf("⚠️  Failed to start workers: %v", err)
	} else {
		s.logger.Printf("✅ %d background worker(s) started", s.workers.Count())
	}

	s.logger.Printf("DevOpsGpt listening on %s (env: %s)", s.server.Addr, s.cfg.Env)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server, then the workers, then closes Redis.
// Every step runs even if an earlier one failed; the first error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("Shutting down server")

	var firstErr error
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Printf("⚠️  HTTP server shutdown failed: %v", err)
		firstErr = errors.Annotate(err, "shutdown http server")
	}
	// the HTTP drain may have used up ctx; workers get their own budget
	workerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.workers.StopAll(workerCtx); err != nil {
		s.logger.Printf("⚠️  Failed to stop workers: %v", err)
		if firstErr == nil {
			firstErr = errors.Annotate(err, "stop workers")
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Printf("⚠️  Failed to close Redis: %v", err)
			if firstErr == nil {
				firstErr = errors.Annotate(err, "close redis")
			}
		}
	}
	s.logger.Println("Server stopped")
	return firstErr
}

// initializeAssistant creates the LLM client from configuration
func initializeAssistant(cfg config.Config, logger *log.Logger) services.Assistant {
	llmConfig := services.LLMConfig{
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		APIKey:      cfg.LLMAPIKey,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
	}

	logger.Printf("Initializing LLM client: %s (model: %s, timeout: %v)", llmConfig.BaseURL, llmConfig.Model, llmConfig.Timeout)
	return services.NewLLMService(llmConfig)
}

// initializeConversationStore connects to Redis or falls back to memory
func (s *Server) initializeConversationStore() repositories.ConversationRepository {
	if s.cfg.StoreBackend == config.StoreMemory {
		s.logger.Println("Using in-memory conversation store (STORE_BACKEND=memory)")
		return repositories.NewMemoryConversationRepository(s.cfg.ConversationTTL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisConfig := db.DefaultRedisConfig()
	redisConfig.Host = s.cfg.RedisHost
	redisConfig.Port = s.cfg.RedisPort
	redisConfig.Password = s.cfg.RedisPassword
	redisConfig.DB = s.cfg.RedisDB
	redisConfig.PoolSize = s.cfg.RedisPoolSize

	s.logger.Printf("Connecting to Redis: %s (DB: %d)", redisConfig.Addr(), redisConfig.DB)
	client := db.NewRedisClient(redisConfig)

	if err := client.Ping(ctx); err != nil {
		s.logger.Printf("❌ Redis connection failed: %v", err)
		s.logger.Println("   Falling back to in-memory conversation store")
		s.logger.Println("   Hint: Ensure Redis is running (docker run -d -p 6379:6379 redis:7-alpine)")
		client.Close()
		return repositories.NewMemoryConversationRepository(s.cfg.ConversationTTL)
	}
	s.logger.Println("✅ Redis connected successfully")

	s.redis = client
	return repositories.NewRedisConversationRepository(client.GetClient(), s.cfg.ConversationTTL)
}

// simpleLogger wraps log.Logger to implement workers.Logger interface
type simpleLogger struct {
	logger *log.Logger
}

func (l *simpleLogger) Info(msg string, args ...interface{}) {
	l.logger.Printf("[INFO] "+msg, args...)
}

func (l *simpleLogger) Error(msg string, args ...interface{}) {
	l.logger.Printf("[ERROR] "+msg, args...)
}

func (l *simpleLogger) Warn(msg string, args ...interface{}) {
	l.logger.Printf("[WARN] "+msg, args...)
}

func (l *simpleLogger) Debug(msg string, args ...interface{}) {
	l.logger.Printf("[DEBUG] "+msg, args...)
}
