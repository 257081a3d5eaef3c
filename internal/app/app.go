package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/controller"
	"study_buddy_backend/internal/gamification"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/scheduler"
	"study_buddy_backend/internal/service"
	"study_buddy_backend/pkg/configwatcher"
	"study_buddy_backend/pkg/database"
	"study_buddy_backend/pkg/logger"
	"study_buddy_backend/pkg/monitoring"
	"study_buddy_backend/pkg/security"
	"study_buddy_backend/pkg/tracing"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client
	Clock     *gamification.Clock
	Scheduler *scheduler.Scheduler

	repos           *repositories
	services        *services
	rateLimiter     *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user             *repository.UserRepository
	flashcard        *repository.FlashcardRepository
	session          *repository.StudySessionRepository
	achievement      *repository.AchievementRepository
	leaderboardCache *repository.LeaderboardCache
	pending          *repository.PendingEvaluations
}

type services struct {
	progress    *service.ProgressService
	achievement *service.AchievementService
	leaderboard *service.LeaderboardService
	profile     *service.ProfileService
	study       *service.StudyService
}

type controllers struct {
	card         *controller.CardController
	gamification *controller.GamificationController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		user:             repository.NewUserRepository(db),
		flashcard:        repository.NewFlashcardRepository(db),
		session:          repository.NewStudySessionRepository(db),
		achievement:      repository.NewAchievementRepository(db),
		leaderboardCache: repository.NewLeaderboardCache(rdb, cfg.Gamification.LeaderboardCacheTTL()),
		pending:          repository.NewPendingEvaluations(rdb),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}
	g := cfg.Gamification

	s.progress = service.NewProgressService(repos.user, a.Clock, g)
	s.achievement = service.NewAchievementService(repos.user, repos.session, repos.achievement, repos.pending, a.Clock, g)

	// 未启用 Redis 时不缓存排行榜
	var cache service.LeaderboardCacher
	if a.Redis != nil {
		cache = repos.leaderboardCache
	}
	s.leaderboard = service.NewLeaderboardService(repos.user, cache, g)
	s.progress.OnProgress(s.leaderboard.InvalidateOnProgress)

	s.profile = service.NewProfileService(repos.user, repos.session, repos.achievement, a.Clock, g)
	s.study = service.NewStudyService(repos.flashcard, repos.user, repos.session, s.progress, s.achievement, a.Clock, g)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		card:         controller.NewCardController(s.study),
		gamification: controller.NewGamificationController(s.study, s.profile, s.achievement, s.leaderboard),
		health:       controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS))
	router.Use(security.Secure())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerReloaders 配置热更新时生效的项，其余配置需要重启
func (a *App) registerReloaders() {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		logger.ApplyMode(cfg.Server.Mode)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		ttl := cfg.Gamification.LeaderboardCacheTTL()
		if ttl != a.repos.leaderboardCache.TTL() {
			a.repos.leaderboardCache.SetTTL(ttl)
			logger.Log.Info("Leaderboard cache TTL updated", zap.Duration("ttl", ttl))
		}
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		if cfg.RateLimit != a.Config.RateLimit || cfg.Database != a.Config.Database {
			logger.Log.Warn("Rate limit or database settings changed, restart required to apply")
		}
	})
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
}

// NewApp 初始化日志、数据库和 Redis，然后装配整个服务
func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	migrate := cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	// 仅迁移时不连接 Redis，也不装配路由
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}, nil
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("initialize redis: %w", err)
	}

	a, err := New(cfg, db, rdb)
	if err != nil {
		return nil, err
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("study-buddy", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		a.tracer = tp
	}

	return a, nil
}

// New 在已打开的连接上装配仓储、服务和路由，rdb 可以为 nil
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	clock, err := gamification.LoadClock(cfg.Gamification.Timezone)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Clock:  clock,
	}

	app.repos = app.initRepositories(db, rdb, cfg)
	app.services = app.initServices(app.repos, cfg)
	controllers := app.initControllers(app.services)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	// 限流在路由分组上注册，认证之后按用户计数
	app.rateLimiter = security.NewRateLimiter(cfg.RateLimit)
	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.Scheduler = scheduler.New(app.services.achievement, cfg.Gamification.BadgeRetryInterval(), cfg.Gamification.StoreTimeout()*10)
	app.registerReloaders()

	return app, nil
}

// Users 供命令行和测试创建用户
func (a *App) Users() *repository.UserRepository {
	return a.repos.user
}

// ReevaluateAll 对全部用户重新评估徽章，返回处理的用户数和新授予的徽章数。
// 单个用户失败时记入待重试队列，不中断其他用户。
func (a *App) ReevaluateAll(ctx context.Context, concurrency int) (users int, awarded int, err error) {
	ids, err := a.repos.user.ListIDs(ctx)
	if err != nil {
		return 0, 0, err
	}

	var count atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for _, id := range ids {
		id := id
		g.Go(func() error {
			badges := a.services.achievement.EvaluateAfterSession(gctx, id)
			count.Add(int64(len(badges)))
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return len(ids), int(count.Load()), err
	}
	return len(ids), int(count.Load()), nil
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		if err := configwatcher.WatchConfig(watchCtx, a.Config.ConfigDir, a.applyConfig); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()

	// 启动服务器
	serverErr := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		a.Scheduler.Stop()
		return fmt.Errorf("listen: %w", err)
	}
	logger.Log.Info("Shutting down server...")

	a.Scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Log.Info("Server exiting")
	a.Close()
	return nil
}

// Close 停止限流清理协程，释放追踪、Redis 和数据库连接
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Log.Error("Failed to close redis", zap.Error(err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = logger.Log.Sync()
}
