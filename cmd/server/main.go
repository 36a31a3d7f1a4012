// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unimate-go/internal/config"
	"unimate-go/internal/handler"
	"unimate-go/internal/middleware"
	"unimate-go/internal/model"
	"unimate-go/internal/ratelimit"
	"unimate-go/internal/repository"
	"unimate-go/internal/service"
	"unimate-go/pkg/ai"
	"unimate-go/pkg/database"
	"unimate-go/pkg/log"
	"unimate-go/pkg/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err := database.DB.AutoMigrate(&model.User{}, &model.Conversation{}); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	// 4. 初始化 Repository
	userRepository := repository.NewUserRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.DB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	aiClient := ai.NewClient(cfg.AI)
	authService := service.NewAuthService(userRepository, jwtManager, database.RDB)
	chatService := service.NewChatService(conversationRepo, aiClient, cfg.Chat.LegacySessionFallback)

	// 6. 初始化限流计数器存储（memory 单进程 / redis 多进程共享）
	var counterStore ratelimit.CounterStore
	if cfg.RateLimit.Store == "redis" {
		counterStore = ratelimit.NewRedisCounterStore(database.RDB)
		log.Info("限流计数器使用 Redis 存储")
	} else {
		counterStore = ratelimit.NewMemoryCounterStore()
		log.Info("限流计数器使用内存存储")
	}

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.CleanPath(), middleware.RequestLogger(), gin.Recovery())

	// 跨域配置：仅允许配置的前端来源
	corsConfig := cors.DefaultConfig()
	if cfg.CORS.FrontendURL != "" {
		corsConfig.AllowOrigins = []string{cfg.CORS.FrontendURL}
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173"}
	}
	corsConfig.AllowCredentials = true
	corsConfig.AddAllowHeaders("Authorization")
	r.Use(cors.New(corsConfig))

	// 全局限流：所有路由（含健康检查之外的 /api）都先计数
	globalLimiter := middleware.GlobalRateLimit(counterStore, cfg.RateLimit.Global)

	// 8. 注册路由
	healthHandler := handler.NewHealthHandler(database.DB, database.RDB)
	r.GET("/", healthHandler.Root)
	r.GET("/health", healthHandler.Health)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	authMW := middleware.AuthMiddleware(jwtManager, authService)

	api := r.Group("/api", globalLimiter)
	{
		// Auth 路由组：注册与登录带更严格的限流
		auth := api.Group("/auth")
		{
			authLimiter := middleware.AuthRateLimit(counterStore, cfg.RateLimit.Auth)
			auth.POST("/register", authLimiter, authHandler.Register)
			auth.POST("/login", authLimiter, authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.GET("/me", authMW, authHandler.Me)
			auth.POST("/logout", authMW, authHandler.Logout)
		}

		// Chat 路由组，需要认证；发送另行按用户限流
		chat := api.Group("/chat")
		chat.Use(authMW)
		{
			chat.POST("/send", middleware.ChatRateLimit(counterStore, cfg.RateLimit.Chat), chatHandler.Send)
			chat.GET("/history", chatHandler.History)
			chat.DELETE("/history/:id", chatHandler.Delete)
		}
	}

	// 9. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
