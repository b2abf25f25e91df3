package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam_sim_backend/internal/config"
	"exam_sim_backend/internal/controller"
	"exam_sim_backend/internal/repository"
	"exam_sim_backend/internal/service"
	"exam_sim_backend/internal/util"
	"exam_sim_backend/pkg/database"
	"exam_sim_backend/pkg/logger"
	"exam_sim_backend/pkg/monitoring"
	"exam_sim_backend/pkg/security"
	"exam_sim_backend/pkg/tracing"

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
	user       *repository.UserRepository
	simulation *repository.SimulationRepository
	assignment *repository.AssignmentRepository
	result     *repository.ResultRepository
	openAnswer *repository.OpenAnswerRepository
}

type services struct {
	auth         *service.AuthService
	simulation   *service.SimulationService
	assignment   *service.AssignmentService
	access       *service.AccessService
	attempt      *service.AttemptService
	grading      *service.GradingService
	leaderboard  *service.LeaderboardService
	notification *service.NotificationService
}

type controllers struct {
	auth        *controller.AuthController
	simulation  *controller.SimulationController
	assignment  *controller.AssignmentController
	attempt     *controller.AttemptController
	grading     *controller.GradingController
	leaderboard *controller.LeaderboardController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 配置热加载入口，依次通知已注册的回调
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Config = cfg
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		simulation: repository.NewSimulationRepository(db),
		assignment: repository.NewAssignmentRepository(db),
		result:     repository.NewResultRepository(db),
		openAnswer: repository.NewOpenAnswerRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.auth = service.NewAuthService(repos.user, cfg)
	s.simulation = service.NewSimulationService(repos.simulation, db)
	s.assignment = service.NewAssignmentService(repos.simulation, repos.assignment, repos.user)
	s.access = service.NewAccessService(repos.assignment, repos.user, repos.result)

	s.notification = service.NewNotificationService(service.LogSender{})
	go s.notification.Run()

	s.leaderboard = service.NewLeaderboardService(repos.simulation, repos.result, repos.user, rdb)
	s.attempt = service.NewAttemptService(
		repos.simulation,
		repos.result,
		s.access,
		s.notification,
		s.leaderboard,
		util.NewTimeShuffler(),
		db,
	)
	s.grading = service.NewGradingService(
		repos.simulation,
		repos.result,
		repos.openAnswer,
		s.notification,
		s.leaderboard,
		db,
	)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		simulation:  controller.NewSimulationController(s.simulation),
		assignment:  controller.NewAssignmentController(s.assignment),
		attempt:     controller.NewAttemptController(s.attempt),
		grading:     controller.NewGradingController(s.grading),
		leaderboard: controller.NewLeaderboardController(s.leaderboard, s.assignment),
		health:      controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 10000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
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

	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
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

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(ginMode(cfg.Server.Mode))
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("exam-sim-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	return app
}

func ginMode(mode string) string {
	switch mode {
	case "release":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
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

	// 先停通知派发，把队列里的发完
	if a.services != nil && a.services.notification != nil {
		a.services.notification.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
