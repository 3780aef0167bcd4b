package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/mentorconnect/internal/app/controllers"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/middleware"
	"github.com/yigit/mentorconnect/internal/pkg/websocket"
)

// Controllers groups every HTTP handler the router mounts
type Controllers struct {
	Auth         *controllers.AuthController
	Mentorship   *controllers.MentorshipController
	Roadmap      *controllers.RoadmapController
	Gamification *controllers.GamificationController
	Chat         *controllers.ChatController
	Health       *controllers.HealthController
	WebSocket    *websocket.Handler
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	router.GET("/health", c.Health.Health)

	// API version group
	v1 := router.Group("/api/v1")
	v1.GET("/health", c.Health.Health)

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.Auth.Register)
		auth.POST("/login", c.Auth.Login)
		auth.POST("/refresh", c.Auth.RefreshToken)
	}

	// The websocket handshake cannot carry headers from a browser, so this
	// route also accepts ?token=
	v1.GET("/chat/ws", authMiddleware.JWTAuthWebSocket(), c.WebSocket.HandleConnection)

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	authenticated.GET("/auth/me", c.Auth.Me)

	mentorOnly := authMiddleware.RoleRequired(models.RoleMentor)
	studentOnly := authMiddleware.RoleRequired(models.RoleStudent)

	mentors := authenticated.Group("/mentors")
	{
		mentors.GET("", c.Mentorship.GetPairingView)
		mentors.PATCH("/availability", mentorOnly, c.Mentorship.UpdateAvailability)
		mentors.POST("/:id/rate", studentOnly, c.Mentorship.RateMentor)
	}

	requests := authenticated.Group("/requests")
	{
		requests.POST("/send", studentOnly, c.Mentorship.SendRequest)
		requests.PATCH("/:id/respond", mentorOnly, c.Mentorship.RespondRequest)
		requests.GET("/my-requests", studentOnly, c.Mentorship.ListMyRequests)
		requests.GET("/pending", mentorOnly, c.Mentorship.ListPendingRequests)
	}

	notifications := authenticated.Group("/notifications")
	{
		notifications.GET("/unread", c.Mentorship.UnreadNotifications)
		notifications.POST("/clear", c.Mentorship.ClearNotifications)
	}

	roadmap := authenticated.Group("/roadmap")
	{
		roadmap.GET("", c.Roadmap.ListRoadmaps)
		roadmap.GET("/:id", c.Roadmap.GetRoadmap)

		// Mentor-only routes
		roadmap.POST("", mentorOnly, c.Roadmap.CreateRoadmap)
		roadmap.PATCH("/:id/status", mentorOnly, c.Roadmap.UpdateRoadmapStatus)
		roadmap.DELETE("/:id", mentorOnly, c.Roadmap.DeleteRoadmap)
		roadmap.PUT("/:id/tasks/:taskId/review", mentorOnly, c.Roadmap.ReviewTask)
		roadmap.PUT("/:id/assignments/:assignmentId/review", mentorOnly, c.Roadmap.ReviewAssignment)
		roadmap.PUT("/:id/videos/:videoId/verify", mentorOnly, c.Roadmap.VerifyVideo)
		roadmap.PUT("/:id/question/:questionId", mentorOnly, c.Roadmap.AnswerQuestion)

		// Student-only routes
		roadmap.PUT("/:id/tasks/:taskId/submit", studentOnly, c.Roadmap.SubmitTask)
		roadmap.PUT("/:id/assignments/:assignmentId/submit", studentOnly, c.Roadmap.SubmitAssignment)
		roadmap.PUT("/:id/videos/:videoId/watch", studentOnly, c.Roadmap.WatchVideo)
		roadmap.POST("/:id/question", studentOnly, c.Roadmap.AskQuestion)
	}

	gamification := authenticated.Group("/gamification")
	{
		gamification.POST("/award-xp", studentOnly, c.Gamification.AwardXP)
		gamification.POST("/award-badge", mentorOnly, c.Gamification.AwardBadge)
		gamification.GET("/stats", c.Gamification.GetStats)
	}

	chat := authenticated.Group("/chat")
	{
		chat.POST("/messages", c.Chat.SendMessage)
		chat.GET("/presence/:userId", c.Chat.GetPresence)
		chat.GET("/:userId", c.Chat.GetHistory)
		chat.PUT("/:userId/read", c.Chat.MarkRead)
	}
}
