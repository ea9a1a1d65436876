package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/handlers"
	"taskflow/internal/pdf"
	"taskflow/internal/realtime"
	"taskflow/internal/repositories"
	"taskflow/internal/routes"
	"taskflow/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "taskflow/docs"
)

func Run() {
	cfg := config.LoadConfig()

	// === DB ===
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Database.URI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB: ", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Printf("Failed to disconnect MongoDB: %v", err)
		}
	}()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatal("Failed to ping MongoDB: ", err)
	}
	db := client.Database(cfg.Database.Name)

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	for _, ensure := range []func(context.Context) error{
		userRepo.EnsureIndexes,
		taskRepo.EnsureIndexes,
		notificationRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Fatal("Failed to create indexes: ", err)
		}
	}

	// === Realtime ===
	hub := realtime.NewHub()

	// === Services ===
	authService := services.NewAuthService(cfg.Auth.JWTSecret)
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)
	userService := services.NewUserService(userRepo, authService, emailService, hub)
	notificationService := services.NewNotificationService(notificationRepo, userRepo, taskRepo)
	taskService := services.NewTaskService(taskRepo, userRepo, notificationService, emailService, hub)

	reportGen := pdf.NewReportGenerator("Taskflow")

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(userService, authService)
	userHandler := handlers.NewUserHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService, reportGen)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	wsHandler := handlers.NewWSHandler(authService, hub, cfg.Server.AllowedOrigin)

	// === Gin ===
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.AllowedOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(
		router,
		authService,
		authHandler,
		userHandler,
		taskHandler,
		notificationHandler,
		wsHandler,
	)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server listening on %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
