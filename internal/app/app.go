package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mathdiag_backend/internal/config"
	"mathdiag_backend/internal/controller"
	"mathdiag_backend/internal/diagnostic"
	"mathdiag_backend/internal/repository"
	"mathdiag_backend/internal/service"
	"mathdiag_backend/pkg/database"
	"mathdiag_backend/pkg/logger"
	"mathdiag_backend/pkg/monitoring"
	"mathdiag_backend/pkg/security"
	"mathdiag_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	form          *repository.FormRepository
	session       *repository.SessionRepository
	result        *repository.ResultRepository
	misconception *repository.MisconceptionRepository
}

type services struct {
	catalog    *service.CatalogService
	form       *service.FormService
	diagnostic *service.DiagnosticService
}

type controllers struct {
	diagnostic    *controller.DiagnosticController
	form          *controller.FormController
	misconception *controller.MisconceptionController
	health        *controller.HealthController
}

// RegisterConfigCallback 注册配置热更新回调
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig fans a freshly loaded config out to all registered callbacks.
func (a *App) ApplyConfig(cfg *config.Config) {
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	cacheTTL := time.Duration(cfg.Diagnostic.GraphCacheMinutes) * time.Minute
	backoff := time.Duration(cfg.Diagnostic.PersistBackoffMilli) * time.Millisecond
	return &repositories{
		form:          repository.NewFormRepository(db, rdb, cacheTTL),
		session:       repository.NewSessionRepository(db, cfg.Diagnostic.PersistMaxRetries, backoff),
		result:        repository.NewResultRepository(db),
		misconception: repository.NewMisconceptionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	catalog := service.NewCatalogService(repos.misconception)
	diag := service.NewDiagnosticService(
		repos.form,
		repos.session,
		repos.result,
		catalog,
		diagnostic.Thresholds{
			Confirm:   cfg.Diagnostic.ConfirmThreshold,
			EarlyExit: cfg.Diagnostic.EarlyExitThreshold,
		},
	)
	diag.Usage = repos.misconception
	return &services{
		catalog:    catalog,
		form:       service.NewFormService(repos.form),
		diagnostic: diag,
	}
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		diagnostic:    controller.NewDiagnosticController(s.diagnostic),
		form:          controller.NewFormController(s.form),
		misconception: controller.NewMisconceptionController(s.catalog),
		health:        controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(func(c *gin.Context) {
		c.Set("config", a.Config)
		c.Next()
	})
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb, cfg)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 阈值随配置热更新
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		services.diagnostic.UpdateThresholds(diagnostic.Thresholds{
			Confirm:   newCfg.Diagnostic.ConfirmThreshold,
			EarlyExit: newCfg.Diagnostic.EarlyExitThreshold,
		})
	})

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		_, err := tracing.InitTracer("mathdiag-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Log.Sync()
	log.Println("Server exiting")
}
