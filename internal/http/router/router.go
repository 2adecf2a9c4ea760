package router

import (
	"github.com/gin-gonic/gin"

	"github.com/mojaszafa/rental-backend/internal/config"
	"github.com/mojaszafa/rental-backend/internal/http/handlers"
	"github.com/mojaszafa/rental-backend/internal/http/middleware"
	"github.com/mojaszafa/rental-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	listingHandler *handlers.ListingHandler,
	bookingHandler *handlers.BookingHandler,
	conversationHandler *handlers.ConversationHandler,
	reviewHandler *handlers.ReviewHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))

	// Публичные маршруты
	api.GET("/listings", listingHandler.ListListings)
	api.GET("/listings/:id", middleware.UUIDValidator("id"), listingHandler.GetListing)
	api.GET("/listings/:id/calendar", middleware.UUIDValidator("id"), bookingHandler.ListingCalendar)
	api.GET("/users/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.ListUserReviews)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.PUT("/listings/sync", listingHandler.SyncListing)

		protected.POST("/bookings", bookingHandler.CreateBooking)
		protected.GET("/bookings/my", bookingHandler.ListMyBookings)
		protected.GET("/bookings/owner", bookingHandler.ListOwnerBookings)
		protected.GET("/bookings/:id", middleware.UUIDValidator("id"), bookingHandler.GetBooking)
		protected.POST("/bookings/:id/approve", middleware.UUIDValidator("id"), bookingHandler.ApproveBooking)
		protected.POST("/bookings/:id/reject", middleware.UUIDValidator("id"), bookingHandler.RejectBooking)
		protected.POST("/bookings/:id/paid", middleware.UUIDValidator("id"), bookingHandler.MarkPaid)
		protected.PATCH("/bookings/:id/shipping", middleware.UUIDValidator("id"), bookingHandler.UpdateShipping)
		protected.PATCH("/bookings/:id/return", middleware.UUIDValidator("id"), bookingHandler.UpdateReturn)

		protected.POST("/bookings/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.CreateReview)
		protected.GET("/bookings/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.ListBookingReviews)
		protected.GET("/bookings/:id/can-review", middleware.UUIDValidator("id"), reviewHandler.CanLeaveReview)

		protected.POST("/conversations", conversationHandler.OpenConversation)
		protected.GET("/conversations", conversationHandler.ListConversations)
		protected.GET("/conversations/unread-total", conversationHandler.UnreadTotal)
		protected.GET("/conversations/:id", middleware.UUIDValidator("id"), conversationHandler.GetConversation)
		protected.GET("/conversations/:id/messages", middleware.UUIDValidator("id"), conversationHandler.ListMessages)
		protected.POST("/conversations/:id/messages", middleware.UUIDValidator("id"), conversationHandler.SendMessage)
		protected.POST("/conversations/:id/read", middleware.UUIDValidator("id"), conversationHandler.MarkRead)

		protected.GET("/notifications", notificationHandler.ListNotifications)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	return r
}
