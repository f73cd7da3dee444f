// Package server contains the HTTP handlers for Warbler's HTML pages and JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "warbler/docs" // swagger docs
	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/repository"
	"warbler/internal/service"
	"warbler/internal/views"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *session.Store
	notifier       *notifications.Notifier
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	authService    *service.AuthService
	messageService *service.MessageService
	socialService  *service.SocialService
	userService    *service.UserService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional: without it the cache is bypassed and sessions live in memory.
	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}

	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	followRepo := repository.NewFollowRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	notifier := notifications.NewNotifier(redisClient)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, service.WithBcryptCost(cfg.BcryptCost))

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("warbler"),
		notifier:       notifier,
		authService:    authService,
		messageService: service.NewMessageService(db, messageRepo, likeRepo, notifier),
		socialService:  service.NewSocialService(userRepo, messageRepo, followRepo, likeRepo, notifier),
		userService:    service.NewUserService(db, userRepo, messageRepo, followRepo, likeRepo, authService),
	}
	s.sessions = newSessionStore(cfg, redisClient)
	return s, nil
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Warbler",
		Views:        views.NewEngine(),
		ViewsLayout:  views.DefaultLayout,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   views.Static(),
		MaxAge: 3600,
	}))

	// Sessions back the HTML pages only; the JSON API uses bearer tokens.
	app.Use(s.SessionMiddleware())

	if s.config.CSRFEnabled {
		app.Use(csrf.New(csrf.Config{
			Next: func(c *fiber.Ctx) bool {
				return isAPIPath(c.Path())
			},
			KeyLookup:      "form:" + csrfFormField,
			CookieName:     "warbler_csrf",
			CookieSameSite: "Lax",
			CookieHTTPOnly: true,
			CookieSecure:   s.config.IsProduction(),
			Expiration:     time.Duration(s.config.SessionTTLHours) * time.Hour,
			ContextKey:     csrfContextKey,
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Get("/", s.Home)

	authLimit := func(name string) fiber.Handler {
		return middleware.RateLimit(s.redis, middleware.RateLimitConfig{
			Limit:   10,
			Window:  5 * time.Minute,
			Name:    name,
			OnLimit: s.tooManyAttempts,
		})
	}
	app.Get("/signup", s.SignupForm)
	app.Post("/signup", authLimit("signup"), s.Signup)
	app.Get("/login", s.LoginForm)
	app.Post("/login", authLimit("login"), s.Login)
	app.Get("/logout", s.Logout)

	// Specific /users/... routes before generic /users/:id
	users := app.Group("/users")
	users.Get("/", s.ListUsers)
	users.Get("/profile", s.requireUser, s.EditProfileForm)
	users.Post("/profile", s.requireUser, s.EditProfile)
	users.Post("/delete", s.requireUser, s.DeleteAccount)
	users.Post("/follow/:id", s.requireUser, s.Follow)
	users.Post("/stop-following/:id", s.requireUser, s.StopFollowing)
	users.Post("/add_like/:id", s.requireUser, s.ToggleLike)
	users.Get("/:id/following", s.requireUser, s.ShowFollowing)
	users.Get("/:id/followers", s.ShowFollowers)
	users.Get("/:id/likes", s.requireUser, s.ShowLikes)
	users.Get("/:id", s.ShowUser)

	messages := app.Group("/messages")
	messages.Get("/new", s.requireUser, s.NewMessageForm)
	messages.Post("/new", s.requireUser, s.CreateMessage)
	messages.Post("/:id/delete", s.requireUser, s.DeleteMessage)
	messages.Get("/:id", s.ShowMessage)

	tweets := app.Group("/tweets", s.requireUser)
	tweets.Post("/:id/like", s.LikeMessage)
	tweets.Post("/:id/unlike", s.UnlikeMessage)

	s.setupAPIRoutes(app)
}

func (s *Server) setupAPIRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Post("/auth/token", middleware.RateLimit(s.redis, middleware.RateLimitConfig{
		Limit:  10,
		Window: 5 * time.Minute,
		Name:   "token",
	}), s.IssueToken)

	protected := api.Group("", middleware.BearerAuth(s.authService.ParseToken), s.requireAPIUser)
	protected.Get("/timeline", s.APITimeline)

	// Define specific /:id/:resource routes BEFORE generic /:id route
	protected.Get("/users/:id/messages", s.APIUserMessages)
	protected.Post("/users/:id/follow", s.APIFollow)
	protected.Delete("/users/:id/follow", s.APIUnfollow)
	protected.Get("/users/:id", s.APIGetUser)

	protected.Post("/messages", middleware.RateLimit(s.redis, middleware.RateLimitConfig{
		Limit:  30,
		Window: time.Minute,
		Name:   "create_message",
	}), s.APICreateMessage)
	protected.Post("/messages/:id/like", s.APILike)
	protected.Delete("/messages/:id/like", s.APIUnlike)
	protected.Get("/messages/:id", s.APIGetMessage)
	protected.Delete("/messages/:id", s.APIDeleteMessage)
}

// errorHandler renders errors as JSON under /api and as an HTML page elsewhere.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	if isAPIPath(c.Path()) {
		return models.RespondWithError(c, status, err)
	}
	return s.renderError(c, status, err)
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Warbler runs without Redis, only slower.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if err := s.notifier.StartPatternSubscriber(ctx, func(channel string, ev notifications.Event) {
		middleware.Logger.Debug("notification",
			slog.String("channel", channel),
			slog.String("type", string(ev.Type)),
			slog.Uint64("actor_id", uint64(ev.ActorID)),
		)
	}); err != nil {
		middleware.Logger.Warn("notification subscriber unavailable", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
