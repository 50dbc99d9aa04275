package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/MiaowFISH/emohub/config"
	"github.com/MiaowFISH/emohub/controllers"
	"github.com/MiaowFISH/emohub/database"
	"github.com/MiaowFISH/emohub/services"
	"github.com/MiaowFISH/emohub/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if err := database.Connect(cfg.DBPath); err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	if err := storage.Init(cfg.StoragePath); err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	slog.Info("storage directories initialized", "path", cfg.StoragePath)

	services.SetTransformSlots(cfg.TransformSlots)
	controllers.MaxUploadBytes = cfg.MaxUploadMB << 20
	go services.RunScratchSweeper(
		time.Duration(cfg.SweepInterval)*time.Minute,
		time.Duration(cfg.ScratchMaxAge)*time.Minute,
	)

	router := setupRouter(cfg)

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("server listening", "port", cfg.Port)
	if err := router.Run(addr); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func setupRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = cfg.MaxUploadMB << 20

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.ClientURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	images := router.Group("/images")
	{
		images.POST("/upload", controllers.UploadImages)
		images.GET("", controllers.ListImages)
		images.GET("/:id/thumbnail", controllers.GetThumbnail)
		images.GET("/:id/full", controllers.GetFullImage)
		images.DELETE("/batch", controllers.BatchDeleteImages)
		images.DELETE("/:id", controllers.DeleteImage)
		images.POST("/:id/convert-gif", controllers.ConvertImageToGIF)
	}

	tags := router.Group("/tags")
	{
		tags.GET("", controllers.ListTags)
		tags.POST("", controllers.CreateTag)
		tags.PUT("/:id", controllers.RenameTag)
		tags.DELETE("/:id", controllers.DeleteTag)
		tags.POST("/batch/add", controllers.BatchAddTags)
		tags.POST("/batch/remove", controllers.BatchRemoveTags)
		tags.GET("/image/:imageId", controllers.GetImageTags)
	}

	router.GET("/health", controllers.Health)

	return router
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
