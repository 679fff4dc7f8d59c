package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinicflow/clinicflow/internal/config"
	"github.com/clinicflow/clinicflow/internal/domain/casefile"
	"github.com/clinicflow/clinicflow/internal/domain/clinical"
	"github.com/clinicflow/clinicflow/internal/domain/consent"
	"github.com/clinicflow/clinicflow/internal/domain/identity"
	"github.com/clinicflow/clinicflow/internal/domain/labtest"
	"github.com/clinicflow/clinicflow/internal/domain/scheduling"
	"github.com/clinicflow/clinicflow/internal/domain/symptom"
	"github.com/clinicflow/clinicflow/internal/domain/visibility"
	"github.com/clinicflow/clinicflow/internal/platform/apperr"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/internal/platform/blobstore"
	"github.com/clinicflow/clinicflow/internal/platform/db"
	"github.com/clinicflow/clinicflow/internal/platform/events"
	"github.com/clinicflow/clinicflow/internal/platform/metrics"
	"github.com/clinicflow/clinicflow/internal/platform/middleware"
)

const version = "0.1.0"

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(cfg)

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info().Str("schema", cfg.DBSchema).Msg("connected to database")

	// Blob store and event publisher
	store, err := newBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialise blob store: %w", err)
	}
	pub, err := newPublisher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialise event publisher: %w", err)
	}
	defer pub.Close()
	logger.Info().Str("blobs", cfg.BlobBackend).Str("events", cfg.EventsBackend).Msg("backends ready")

	e, err := newServer(cfg, pool, store, pub, metrics.New(), logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	// Graceful shutdown
	serveErr := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires repositories, services and handlers onto a fresh echo
// instance. Nothing touches pool until a request arrives.
func newServer(cfg *config.Config, pool *pgxpool.Pool, store blobstore.BlobStore, pub events.Publisher,
	m *metrics.Metrics, logger zerolog.Logger) (*echo.Echo, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Actor-ID", "X-Actor-Role"},
	}))
	e.Use(m.Middleware())
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(middleware.BodyLimit(cfg.MaxUploadBytes))

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", m.Handler())

	// Auth
	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: []byte(cfg.AuthSigningKey),
	}
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		apiV1.Use(auth.JWTMiddleware(jwtCfg))
	}

	tx := db.NewTransactor(pool)
	blobs := blobstore.NewWriter(store, cfg.BlobWriteTimeout)

	// Directory
	directory := identity.NewService(identity.NewUserRepoPG(pool), identity.NewLabRepoPG(pool), identity.NewTestTypeRepoPG(pool))

	// Symptoms and consent
	symptomRepo := symptom.NewRepoPG(pool)
	consentSvc := consent.NewService(tx, consent.NewRepoPG(pool), symptom.ConsentFlags{Repo: symptomRepo}, pub)
	symptomSvc := symptom.NewService(tx, symptomRepo, consentSvc, directory, pub, m)

	// Visibility reads referral records straight from storage so the
	// clinical service can depend on it.
	referralRepo := clinical.NewReferralRepoPG(pool)
	access := visibility.NewService(symptomSvc, directory, consentSvc, referralRepo, m)

	clinicalSvc := clinical.NewService(tx, clinical.NewDiagnosisRepoPG(pool), referralRepo,
		symptomSvc, consentSvc, directory, access, cfg.DiagnosisRequireAccess)
	labtestSvc := labtest.NewService(tx, labtest.NewRepoPG(pool), symptomSvc, directory, access,
		blobs, pub, m, cfg.UploadTokenReuse)
	schedulingSvc := scheduling.NewService(tx, scheduling.NewSlotRepoPG(pool), scheduling.NewAppointmentRepoPG(pool),
		labtestSvc, symptomSvc, directory, pub, m, loc)
	casefileSvc := casefile.NewService(casefile.NewRepoPG(pool), access, directory, clinicalSvc, labtestSvc, schedulingSvc)

	// Routes. /symptoms/history is registered before /symptoms/:id; echo
	// prefers static segments regardless, the order only reads better.
	identity.NewHandler(directory).RegisterRoutes(apiV1)
	symptom.NewHandler(symptomSvc, blobs).RegisterRoutes(apiV1)
	consent.NewHandler(consentSvc).RegisterRoutes(apiV1)
	casefile.NewHandler(casefileSvc).RegisterRoutes(apiV1)
	clinical.NewHandler(clinicalSvc).RegisterRoutes(apiV1)
	labtest.NewHandler(labtestSvc).RegisterRoutes(apiV1)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(apiV1)

	return e, nil
}
