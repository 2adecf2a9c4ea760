package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mojaszafa/rental-backend/internal/config"
	"github.com/mojaszafa/rental-backend/internal/db"
	httpHandlers "github.com/mojaszafa/rental-backend/internal/http/handlers"
	httpRouter "github.com/mojaszafa/rental-backend/internal/http/router"
	"github.com/mojaszafa/rental-backend/internal/logger"
	"github.com/mojaszafa/rental-backend/internal/notify"
	"github.com/mojaszafa/rental-backend/internal/repository"
	"github.com/mojaszafa/rental-backend/internal/service"
	"github.com/mojaszafa/rental-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret)

	// Репозитории.
	listingRepo := repository.NewListingRepository(dbConn)
	bookingRepo := repository.NewBookingRepository(dbConn)
	conversationRepo := repository.NewConversationRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run(ctx)

	// Шина событий. Пустой AMQP_URL отключает публикацию.
	var publisher *notify.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = notify.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("main: ошибка подключения к RabbitMQ: %v", err)
		}
		defer publisher.Close()
	}

	var dispatcher *notify.Dispatcher
	if publisher != nil {
		dispatcher = notify.NewDispatcher(notificationRepo, hub, publisher)
	} else {
		dispatcher = notify.NewDispatcher(notificationRepo, hub, nil)
	}

	// Сервисы.
	listingService := service.NewListingService(listingRepo)
	bookingService := service.NewBookingService(bookingRepo, listingRepo, conversationRepo, dispatcher, cfg.PaymentServiceID)
	conversationService := service.NewConversationService(conversationRepo, listingRepo, dispatcher)
	reviewService := service.NewReviewService(reviewRepo, bookingRepo, listingRepo)
	notificationService := service.NewNotificationService(notificationRepo)

	// HTTP хэндлеры.
	listingHandler := httpHandlers.NewListingHandler(listingService)
	bookingHandler := httpHandlers.NewBookingHandler(bookingService)
	conversationHandler := httpHandlers.NewConversationHandler(conversationService)
	reviewHandler := httpHandlers.NewReviewHandler(reviewService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, listingHandler, bookingHandler, conversationHandler,
		reviewHandler, notificationHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
