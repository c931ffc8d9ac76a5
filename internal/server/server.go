// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "pressroom/docs" // swagger docs
	"pressroom/internal/bootstrap"
	"pressroom/internal/config"
	"pressroom/internal/featureflags"
	"pressroom/internal/identity"
	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/notifications"
	"pressroom/internal/repository"
	"pressroom/internal/search"
	"pressroom/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
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
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	resolver     *identity.Resolver
	store        repository.Store
	feed         *notifications.Feed
	hub          *notifications.Hub
	meili        *search.Meili
	featureFlags *featureflags.Manager

	userService     *service.UserService
	postService     *service.PostService
	commentService  *service.CommentService
	reactionService *service.ReactionService
}

// NewServer connects to the database and Redis described by cfg and
// returns a server wired to them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis. A nil
// redisClient keeps the thread feed in-process.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server: config and database are required")
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("pressroom-api"),
		resolver:       identity.NewResolver(cfg.IdentitySecret, cfg.IdentityIssuer, cfg.IdentityAudience),
		store:          repository.NewStore(db),
		feed:           notifications.NewFeed(redisClient),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	server.hub = notifications.NewHub(notifications.HubConfig{
		MaxConnsPerPost: cfg.ThreadWSMaxPerPost,
		MaxTotalConns:   cfg.ThreadWSMaxTotal,
	}, notifications.NewViewerCounter(redisClient))

	var index service.PostIndex
	if cfg.MeiliURL != "" {
		server.meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey)
		index = server.meili
	}

	server.userService = service.NewUserService(server.store)
	server.postService = service.NewPostService(server.store, server.feed, index, server.featureFlags)
	server.commentService = service.NewCommentService(server.store, server.feed)
	server.reactionService = service.NewReactionService(server.store, server.feed, server.featureFlags)

	return server, nil
}

// App returns the Fiber application, building it on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName: "Pressroom API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			return respondError(c, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	optional := middleware.IdentityOptional(s.resolver)
	required := middleware.IdentityRequired(s.resolver)

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api")

	posts := api.Group("/posts")
	posts.Get("/", optional, s.GetPosts)
	posts.Get("/search", optional, middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.SearchPosts)
	posts.Get("/slug/:slug", optional, s.GetPostBySlug)
	posts.Post("/:id/views", middleware.RateLimit(s.redis, 60, time.Minute, "post_views"), s.RecordView)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", required,
		middleware.RateLimit(s.redis, s.config.CommentRateLimit, time.Minute, "create_comment"), s.CreateComment)

	comments := api.Group("/comments")
	comments.Get("/:id/replies", s.GetReplies)
	comments.Post("/:id/replies", required,
		middleware.RateLimit(s.redis, s.config.CommentRateLimit, time.Minute, "create_comment"), s.CreateReply)
	comments.Put("/:id", required, s.UpdateComment)
	comments.Delete("/:id", required, s.DeleteComment)

	replies := api.Group("/replies", required)
	replies.Put("/:id", s.UpdateReply)
	replies.Delete("/:id", s.DeleteReply)

	reactions := api.Group("/reactions")
	reactions.Get("/palette", s.GetPalette)
	reactions.Post("/toggle", required,
		middleware.RateLimit(s.redis, s.config.ReactionRateLimit, time.Minute, "toggle_reaction"), s.ToggleReaction)
	reactions.Get("/:targetType/:targetId", s.GetReactions)

	// /me routes are registered before the generic /:externalId routes.
	users := api.Group("/users")
	users.Post("/me/sync", required, s.SyncMe)
	users.Get("/me", required, s.GetMyProfile)
	users.Put("/me", required, s.UpdateMyProfile)
	users.Get("/:externalId/posts", optional, s.GetUserPosts)
	users.Get("/:externalId", s.GetUserProfile)

	api.Get("/ws/posts/:id/thread", optional, s.ThreadUpgrade, s.ThreadWebSocketHandler())

	admin := api.Group("/admin", required, middleware.AdminRequired())
	admin.Get("/posts", s.AdminListPosts)
	admin.Post("/posts", s.AdminCreatePost)
	admin.Get("/posts/stats", s.AdminPostStats)
	admin.Get("/posts/:id", s.AdminGetPost)
	admin.Put("/posts/:id", s.AdminUpdatePost)
	admin.Delete("/posts/:id", s.AdminDeletePost)
	admin.Get("/users", s.AdminListUsers)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis and Meilisearch
// are optional; only the database gates readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	searchStatus := "unavailable"
	if s.meili != nil {
		searchStatus = "unhealthy"
		if s.meili.Healthy() {
			searchStatus = "healthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus == "unhealthy" || searchStatus == "unhealthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"search":   searchStatus,
		},
		"time": time.Now(),
	})
}

// Start wires the thread feed and serves HTTP until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if err := s.feed.Start(s.shutdownCtx); err != nil {
		middleware.Logger.Warn("thread feed running in-process only", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("server starting",
		slog.String("port", s.config.Port),
		slog.String("instance", s.feed.InstanceID()),
	)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log := middleware.Logger
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		log.Error(fmt.Sprintf("error shutting down %s", s.hub.Name()), slog.String("error", err.Error()))
	}

	if s.meili != nil {
		s.meili.Close()
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	log.Info("server shutdown complete")
	return nil
}
