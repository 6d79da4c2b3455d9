package app

import (
	"context"
	"learning_progress/internal/config"
	"learning_progress/internal/controller"
	"learning_progress/internal/repository"
	"learning_progress/internal/service"
	"learning_progress/internal/util"
	"learning_progress/pkg/configwatcher"
	"learning_progress/pkg/database"
	"learning_progress/pkg/logger"
	"learning_progress/pkg/monitoring"
	"learning_progress/pkg/security"
	"learning_progress/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
	tracer   *sdktrace.TracerProvider

	mu              sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user             *repository.UserRepository
	question         *repository.QuestionRepository
	exam             *repository.ExamRepository
	errorBook        *repository.ErrorBookRepository
	dailyTask        *repository.DailyTaskRepository
	leaderboard      *repository.LeaderboardRepository
	leaderboardCache *repository.LeaderboardCache
}

type services struct {
	errorBook    *service.ErrorBookService
	gamification *service.GamificationService
	leaderboard  *service.LeaderboardService
	quiz         *service.QuizService
}

type controllers struct {
	quiz        *controller.QuizController
	errorBook   *controller.ErrorBookController
	progress    *controller.ProgressController
	leaderboard *controller.LeaderboardController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.mu.Lock()
	a.configCallbacks = append(a.configCallbacks, callback)
	a.mu.Unlock()
}

// applyConfig 通知所有订阅者配置已变更
func (a *App) applyConfig(cfg *config.Config) {
	a.mu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		user:             repository.NewUserRepository(db),
		question:         repository.NewQuestionRepository(db),
		exam:             repository.NewExamRepository(db),
		errorBook:        repository.NewErrorBookRepository(db),
		dailyTask:        repository.NewDailyTaskRepository(db),
		leaderboard:      repository.NewLeaderboardRepository(db),
		leaderboardCache: repository.NewLeaderboardCache(rdb, cfg.Leaderboard.CacheTTL),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, clock util.Clock) (*services, error) {
	defs, err := service.DefinitionsFromConfig(cfg.Gamification.DailyTasks)
	if err != nil {
		return nil, err
	}

	s := &services{}
	s.errorBook = service.NewErrorBookService(repos.errorBook, repos.question, cfg.Engine.MasteryThreshold, cfg.Engine.ReviewMaxRetries)
	s.gamification = service.NewGamificationService(db, repos.user, repos.dailyTask, repos.errorBook, clock, defs)
	s.leaderboard = service.NewLeaderboardService(db, repos.leaderboard, repos.leaderboardCache, clock,
		cfg.Leaderboard.DefaultLimit, cfg.Leaderboard.MaxLimit)
	s.quiz = service.NewQuizService(db, repos.question, repos.exam, s.errorBook, s.gamification, s.leaderboard,
		cfg.Engine.PointsPerCorrect)

	// 积分和每日任务模板支持热更新，其余配置需要重启
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.quiz.SetPointsPerCorrect(newCfg.Engine.PointsPerCorrect)
		defs, err := service.DefinitionsFromConfig(newCfg.Gamification.DailyTasks)
		if err != nil {
			logger.Log.Error("Ignoring invalid daily task config", zap.Error(err))
			return
		}
		s.gamification.SetDefinitions(defs)
	})
	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		quiz:        controller.NewQuizController(s.quiz),
		errorBook:   controller.NewErrorBookController(s.errorBook),
		progress:    controller.NewProgressController(s.gamification),
		leaderboard: controller.NewLeaderboardController(s.leaderboard),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window, security.ByClientIP))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New 用已建立的连接组装应用，测试中传入 sqlite 和固定时钟
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, clock util.Clock) (*App, error) {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb, cfg)
	services, err := app.initServices(repos, cfg, db, clock)
	if err != nil {
		return nil, err
	}
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)
	return app, nil
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, cfg.ForceMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 缓存只是加速，连不上时退化为直接查库
		logger.Log.Warn("Failed to initialize redis, leaderboard cache off", zap.Error(err))
		rdb = nil
	}

	app, err := New(cfg, db, rdb, util.NewSystemClock(cfg.Engine.Location()))
	if err != nil {
		logger.Log.Fatal("Failed to assemble application", zap.Error(err))
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}
	return app
}

func (a *App) Run(configDir string) {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go func() {
		if err := configwatcher.Watch(ctx, configDir, a.applyConfig); err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
