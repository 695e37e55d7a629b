package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/modguard/backend/internal/client"
	"github.com/modguard/backend/internal/config"
	"github.com/modguard/backend/internal/db"
	"github.com/modguard/backend/internal/handler"
	"github.com/modguard/backend/internal/service"
)

func main() {
	// .env가 없어도 정상 (배포 환경은 실제 환경변수 사용)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := config.Load()
	ctx := context.Background()

	// 1. Postgres 연결 및 스키마 준비
	database, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer database.Close()

	if err := database.EnsureAlertSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure alert schema: %v", err)
	}
	if err := database.EnsureReversalSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure reversal schema: %v", err)
	}
	if err := database.EnsureAuthSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure auth schema: %v", err)
	}

	// 2. Discord 클라이언트
	discord := client.NewDiscordClient(cfg.Discord)
	if !discord.IsConfigured() {
		log.Printf("Discord bot token or guild ID not configured - role mutations and notices will fail")
	}

	// 3. 제재 집행기 + 기동 시 해제 예약 복구 스윕
	executor := service.NewSanctionExecutor(discord, database, cfg.Discord.GuildID, cfg.Sanction.RestrictedRoleID)
	if err := executor.ResumePendingReversals(ctx); err != nil {
		log.Printf("Failed to resume pending reversals: %v", err)
	}

	// 4. 서비스 레이어
	ledgerManual, _ := strconv.ParseBool(cfg.Sanction.LedgerManualActions)
	alertService := service.NewAlertService(database, discord, discord, executor, cfg.Discord.GuildID, ledgerManual)

	authService, err := service.NewAuthService(database, discord, cfg.Auth, cfg.Sanction, cfg.Discord.GuildID)
	if err != nil {
		log.Fatalf("Failed to init auth service: %v", err)
	}
	if cfg.Auth.AdminUsername != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
			log.Fatalf("Failed to ensure admin operator: %v", err)
		}
	}

	// 5. 핸들러와 라우터
	alertHandler := handler.NewAlertHandler(alertService)
	actionHandler := handler.NewActionHandler(alertService)
	authHandler := handler.NewAuthHandler(authService)

	router := gin.Default()

	allowedOrigins := strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",")
	router.Use(handler.CORSMiddleware(allowedOrigins, true))

	router.GET("/ping", handler.Ping)
	router.GET("/", handler.Root)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/config", authHandler.Config)
			auth.GET("/me", handler.AuthMiddleware(authService), authHandler.Me)
		}

		protected := api.Group("")
		protected.Use(handler.AuthMiddleware(authService), handler.RequireAlertPermission())
		{
			protected.POST("/alerts", alertHandler.RaiseAlert)
			protected.GET("/alerts", alertHandler.ListAlerts)
			protected.GET("/members/:id/alerts", alertHandler.ListMemberAlerts)

			protected.POST("/members/:id/ban", actionHandler.Ban)
			protected.POST("/members/:id/exclusions", actionHandler.Exclude)
			protected.DELETE("/members/:id/exclusions", actionHandler.CancelExclusion)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
