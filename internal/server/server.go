package server

import (
	"context"
	"log/slog"
	"strings"

	"backend-travelbuddy/internal/auth"
	"backend-travelbuddy/internal/config"
	"backend-travelbuddy/internal/contact"
	"backend-travelbuddy/internal/metrics"
	"backend-travelbuddy/internal/notification"
	"backend-travelbuddy/internal/profile"
	"backend-travelbuddy/internal/ratelim"
	"backend-travelbuddy/internal/reviewscore"
	"backend-travelbuddy/internal/social"
	"backend-travelbuddy/internal/storage"
	"backend-travelbuddy/internal/stream"
	"backend-travelbuddy/internal/trip"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const uploadBodyLimit = 10 << 20

type Server struct {
	App        *fiber.App
	Cfg        config.Config
	DB         *pgxpool.Pool
	Redis      *redis.Client
	Stream     *stream.Hub
	Aggregator *reviewscore.Aggregator
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	m := metrics.New()
	app := fiber.New(fiber.Config{BodyLimit: uploadBodyLimit})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(m.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(cfg.CORSOrigins),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Id",
	}))
	app.Use(ratelim.New(cfg.RateLimitPerMinute).WritesOnly())

	log := slog.Default()
	s := &Server{
		App:     app,
		Cfg:     cfg,
		DB:      db,
		Redis:   redisClient,
		Stream:  stream.NewHub(redisClient, log),
		Metrics: m,
		Logger:  log,
	}

	registerRoutes(s)
	return s
}

func corsOrigins(raw string) string {
	if raw == "" {
		return "*"
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ",")
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", s.Metrics.Handler())
	if s.Cfg.UploadDir != "" {
		s.App.Static(storage.PublicPrefix, s.Cfg.UploadDir)
	}

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	optionalAuth := auth.OptionalJWTMiddleware(s.Cfg.JWTSecret)

	authSvc := auth.NewService(s.Cfg.JWTSecret, s.DB)
	notifySvc := notification.NewService(s.DB, s.Stream, s.Logger)
	tripSvc := trip.NewService(s.DB, trip.NewCache(s.Redis, s.Cfg.TripCacheTTL, s.Logger), notifySvc, s.Logger)
	socialSvc := social.NewService(s.DB, s.Logger)
	profileSvc := profile.NewService(s.DB, tripSvc, socialSvc)

	s.Aggregator = reviewscore.NewAggregator(profileSvc, s.Cfg.ScoreWorkers, s.Logger)
	socialSvc.SetRescorer(func(ctx context.Context) (reviewscore.Report, error) {
		report, err := s.Aggregator.Refresh(ctx, snapshotLoader(profileSvc, socialSvc))
		s.Metrics.ObserveRescore(report, err)
		return report, err
	})

	auth.RegisterRoutes(s.App.Group("/auth"), authSvc, jwtMiddleware)
	trip.RegisterRoutes(s.App, tripSvc, jwtMiddleware, optionalAuth)
	social.RegisterRoutes(s.App, socialSvc, jwtMiddleware)
	profile.RegisterRoutes(s.App, profileSvc, jwtMiddleware)
	notification.RegisterRoutes(s.App, notifySvc, jwtMiddleware)
	contact.RegisterRoutes(s.App, contact.NewMailer(s.Cfg))
	storage.RegisterRoutes(s.App.Group("/storage"), storage.NewService(s.DB, s.Cfg.UploadDir), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, func(token string) (string, error) {
		session, err := authSvc.ValidateAccessToken(token)
		return session.UserID, err
	})
}

// snapshotLoader reads the full users, posts and reviews collections.
func snapshotLoader(users *profile.Service, posts *social.Service) reviewscore.Loader {
	return func(ctx context.Context) (reviewscore.Snapshot, error) {
		var (
			snap reviewscore.Snapshot
			err  error
		)
		if snap.Users, err = users.List(ctx, ""); err != nil {
			return snap, err
		}
		if snap.Posts, err = posts.ListPosts(ctx, ""); err != nil {
			return snap, err
		}
		if snap.Reviews, err = posts.ListReviews(ctx, ""); err != nil {
			return snap, err
		}
		return snap, nil
	}
}

// Close releases background resources owned by the server.
func (s *Server) Close() error {
	return s.Stream.Close()
}
