package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	httpHandler "inkboard/internal/handler/http"
	wsHandler "inkboard/internal/handler/websocket"
	"inkboard/internal/hub"
	"inkboard/internal/infra/persistence/duck"
	"inkboard/internal/middleware"
	"inkboard/internal/service"
	"inkboard/internal/tasks"
)

// App 结构体包含应用的所有组件和配置
type App struct {
	Config     *Config
	Log        *logrus.Logger
	Gateway    *duck.Gateway
	Session    *service.SessionService
	Hub        *hub.Hub
	HttpServer *http.Server

	// 取消后台 goroutine（Hub 主循环、会话启动、Checkpoint 循环）
	cancel context.CancelFunc
}

// NewApp 创建并初始化应用的所有组件
func NewApp() (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger
	log := logrus.StandardLogger()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel) // cfg.LogLevel 已被 LoadConfig 验证
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	log.Infof("Logger initialized (Level: %s)", logLevel.String())
	log.Info("Configuration loaded successfully")

	// 3. 初始化存储
	log.Info("Initializing store...")
	db, err := duck.OpenStore(context.Background(), cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	gateway := duck.NewGateway(db)
	log.Info("Store opened")

	// 4. 初始化 Service
	log.Info("Initializing services...")
	session := service.NewSessionService(gateway, cfg.Screen, cfg.Viewport)
	log.Info("Services initialized")

	// 5. 初始化 Hub，并把它作为渲染器注入会话层
	log.Info("Initializing hub...")
	hubInstance := hub.New(session, cfg.Screen, cfg.Viewport, cfg.SimplifyDefault)
	session.SetRenderer(hubInstance)
	log.Info("Hub initialized")

	// 6. 初始化 Handlers
	sessionHandler := httpHandler.NewSessionHandler(session)
	cloudHandler := httpHandler.NewCloudHandler(session)
	websocketHandler := wsHandler.NewHandler(hubInstance)

	// 7. 初始化 Gin Engine 和路由
	log.Info("Setting up Gin router...")
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(middleware.RateLimit(cfg.RateLimitMax, cfg.RateLimitWindow))

	api := router.Group("/api")
	{
		api.GET("/health", sessionHandler.Health)
		api.GET("/scene", sessionHandler.Scene)
		api.GET("/strokes", sessionHandler.Strokes)
		api.POST("/strokes", sessionHandler.CreateStroke)
		api.POST("/strokes/undo", sessionHandler.Undo)
		api.POST("/strokes/clear", sessionHandler.Clear)
		api.POST("/refresh", sessionHandler.Refresh)
		api.GET("/clouds", cloudHandler.List)
		api.POST("/clouds", cloudHandler.Import)
		api.DELETE("/clouds", cloudHandler.Clear)
	}
	router.GET("/ws", websocketHandler.HandleConnection)
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	log.Info("Router setup complete")

	// 8. 初始化 HTTP Server
	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	// 9. 组装 App 对象
	app := &App{
		Config:     cfg,
		Log:        log,
		Gateway:    gateway,
		Session:    session,
		Hub:        hubInstance,
		HttpServer: httpServer,
	}
	log.Info("Application assembled successfully")

	return app, nil
}

// Start 启动应用的所有后台 Goroutine 和 HTTP 服务器。
// 存储初始化是异步的：HTTP/WS 立即可用，会话 ready 之前的
// 写操作会被拒绝。
func (a *App) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Log.Info("Starting application background routines...")
	go a.Hub.Run(ctx)
	a.Log.Info("Hub routine started")

	go func() {
		if err := a.Session.Start(ctx); err != nil {
			a.Log.WithError(err).Error("Session startup failed, session stays not ready")
		}
	}()

	go tasks.RunCheckpointLoop(ctx, a.Gateway, a.Config.CheckpointInterval)

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	// 1. 停掉后台 goroutine（Hub 会在退出时关闭所有客户端连接）
	if a.cancel != nil {
		a.cancel()
	}
	a.Session.Close()

	// 2. 优雅关闭 HTTP 服务器
	a.Log.Info("Shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	// 3. 最后一次刷盘并关闭存储
	if err := a.Gateway.Checkpoint(context.Background()); err != nil {
		a.Log.Errorf("Final store checkpoint failed: %v", err)
	}
	if err := a.Gateway.Close(); err != nil {
		a.Log.Errorf("Error closing store: %v", err)
	} else {
		a.Log.Info("Store closed.")
	}

	a.Log.Info("Application shutdown complete.")
}

// LoggerMiddleware 创建一个 Gin 中间件用于记录请求日志
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		if errorMessage != "" {
			entry.Error(errorMessage)
		} else {
			if statusCode >= 500 {
				entry.Error("Server error")
			} else if statusCode >= 400 {
				entry.Warn("Client error")
			} else {
				entry.Info("Request handled")
			}
		}
	}
}
