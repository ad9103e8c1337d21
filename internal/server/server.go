package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/hasker/backend/internal/config"
	"github.com/emilythestrangee/hasker/backend/internal/database"
	"github.com/emilythestrangee/hasker/backend/internal/handlers"
	"github.com/emilythestrangee/hasker/backend/internal/middleware"
	"github.com/emilythestrangee/hasker/backend/internal/models"
	"github.com/emilythestrangee/hasker/backend/internal/notify"
	"github.com/emilythestrangee/hasker/backend/internal/services"
)

type Server struct {
	cfg     *config.Config
	db      database.Service
	handler *handlers.Handler
}

// New wires the services and handlers over an open database.
func New(cfg *config.Config, db database.Service) *Server {
	gormDB := db.GetDB()
	limits := services.LimitsFromConfig(cfg)

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.TwilioEnabled() {
		notifier = notify.NewTwilioNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom)
	}

	handler := handlers.NewHandler(handlers.Services{
		Questions: services.NewQuestionService(gormDB, limits),
		Answers:   services.NewAnswerService(gormDB, notifier, limits, cfg.PublicBaseURL),
		Votes:     services.NewVoteService(gormDB, limits),
		Users:     services.NewUserService(gormDB),
	}, []byte(cfg.JWTSecret))

	return &Server{cfg: cfg, db: db, handler: handler}
}

// HTTPServer returns the configured http.Server.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery())

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		stats := s.db.Health()
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})

	h := s.handler
	question, answer := models.Question{}, models.Answer{}

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", h.Auth.Register)
		api.POST("/login", h.Auth.Login)

		// Question routes (public reads)
		api.GET("/questions", h.Question.GetQuestions)
		api.GET("/questions/:id", h.Question.GetQuestion)
		api.GET("/trending", h.Question.GetTrending)
		api.GET("/tags/:tag/questions", h.Question.GetTagQuestions)

		// Answer routes (public reads)
		api.GET("/questions/:id/answers", h.Answer.GetAnswers)
		api.GET("/answers/:id", h.Answer.GetAnswer)

		// Vote routes (public reads)
		api.GET("/questions/:id/votes", h.Vote.List(question))
		api.GET("/questions/:id/votes/:voteId", h.Vote.Get(question))
		api.GET("/answers/:id/votes", h.Vote.List(answer))
		api.GET("/answers/:id/votes/:voteId", h.Vote.Get(answer))

		// User routes (public reads)
		api.GET("/users/:id", h.User.GetUserProfile)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware([]byte(s.cfg.JWTSecret)))
		{
			protected.GET("/me", h.Auth.GetMe)

			protected.POST("/questions", h.Question.CreateQuestion)
			protected.PUT("/questions/:id", h.Question.UpdateQuestion)
			protected.DELETE("/questions/:id", h.Question.DeleteQuestion)

			protected.POST("/questions/:id/answers", h.Answer.CreateAnswer)
			protected.PATCH("/answers/:id", h.Answer.UpdateAnswer)
			protected.DELETE("/answers/:id", h.Answer.DeleteAnswer)
			protected.POST("/answers/:id/mark", h.Answer.MarkAnswer)

			protected.POST("/vote/question", h.Vote.Cast(question))
			protected.POST("/vote/answer", h.Vote.Cast(answer))

			protected.POST("/questions/:id/votes", h.Vote.Create(question))
			protected.PATCH("/questions/:id/votes/:voteId", h.Vote.Change(question))
			protected.DELETE("/questions/:id/votes/:voteId", h.Vote.Retract(question))
			protected.POST("/answers/:id/votes", h.Vote.Create(answer))
			protected.PATCH("/answers/:id/votes/:voteId", h.Vote.Change(answer))
			protected.DELETE("/answers/:id/votes/:voteId", h.Vote.Retract(answer))

			protected.PUT("/users/:id", h.User.UpdateUserProfile)
		}
	}

	return r
}
