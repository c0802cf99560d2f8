package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"bookmarket/internal/config"
	"bookmarket/internal/db"
	"bookmarket/internal/handlers"
	"bookmarket/internal/middleware"
	"bookmarket/internal/observability"
	"bookmarket/internal/rabbitmq"
	"bookmarket/internal/repositories"
	"bookmarket/internal/search"
	"bookmarket/internal/telemetry"
	"bookmarket/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		log.Printf("amqp event publisher disabled: %v", err)
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	audit := telemetry.NewAuditEmitter(auditPublisher, "audit.bookmarket", cfg.ServiceName, cfg.Environment)

	index, err := search.NewIndex(cfg.SearchIndexPath, cfg.SearchMinGram, cfg.SearchMaxGram)
	if err != nil {
		log.Fatalf("failed to open search index: %v", err)
	}
	defer index.Close()

	userRepo := repositories.NewUserRepo(database)
	bookRepo := repositories.NewBookRepo(database)
	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	outboxRepo := repositories.NewOutboxRepo(database)

	indexer := search.NewIndexer(outboxRepo, bookRepo, index,
		time.Duration(cfg.OutboxInterval)*time.Second, cfg.OutboxBatchSize)
	go indexer.Run(ctx)

	hub := ws.NewHub()
	if cfg.RedisAddr != "" {
		bridge, err := ws.NewRedisBridge(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("failed to connect to redis bridge: %v", err)
		}
		defer bridge.Close()
		hub.SetBridge(bridge)
		go bridge.Run(ctx, hub)
	}

	bookHandler := handlers.NewBookHandler(bookRepo, audit)
	searchHandler := handlers.NewSearchHandler(index, bookRepo)
	chatHandler := handlers.NewChatHandler(roomRepo, messageRepo, bookRepo, userRepo, audit)
	roomWS := ws.NewRoomSocketHandler(hub, roomRepo, messageRepo, cfg.JWTSecret)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(otelgin.Middleware(cfg.ServiceName))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	api := router.Group("/api/v1")
	api.Use(authMiddleware)

	api.POST("/books", bookHandler.CreateBook)
	api.GET("/books", bookHandler.ListBooks)
	api.GET("/books/:book_id", bookHandler.GetBook)
	api.PATCH("/books/:book_id", bookHandler.UpdateBook)
	api.DELETE("/books/:book_id", bookHandler.DeleteBook)
	api.GET("/books/user", bookHandler.MyBooks)

	api.GET("/search", searchHandler.Search)

	api.POST("/chatroom", chatHandler.CreateRoom)
	api.GET("/chatrooms", chatHandler.ListRooms)
	api.GET("/chatroom/:chatroom_id/messages", chatHandler.ListMessages)

	router.GET("/ws/chat/:chatroom_id", roomWS.Handle)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
