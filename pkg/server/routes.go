// Package server exposes the corpus and projection API over HTTP.
package server

import (
	"fmt"
	"net/http"
	"time"

	httpLogger "github.com/chi-middleware/logrus-logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/riandyrn/otelchi"

	"github.com/lifeembedding/lifeembedding/internal"
	"github.com/lifeembedding/lifeembedding/pkg/auth"
	"github.com/lifeembedding/lifeembedding/pkg/models"
	"github.com/lifeembedding/lifeembedding/pkg/server/apihandlers"
)

var log = internal.GetLogger()

const (
	ReadHeaderTimeout = 5 * time.Second
	RequestTimeout    = 30 * time.Second
	RouterName        = "lifeembedding"
)

// Create creates a new HTTP server with the given app state
func Create(appState *models.AppState) (*http.Server, error) {
	router, err := setupRouter(appState)
	if err != nil {
		return nil, err
	}
	serverCfg := appState.Config.Server
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", serverCfg.Host, serverCfg.Port),
		Handler:           router,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}, nil
}

// @title						LifeEmbedding REST API
// @version					0.x
// @BasePath					/api/v1
// @schemes					http https
// @securityDefinitions.apikey	Bearer
// @in							header
// @name						Authorization
// @description				Type "Bearer" followed by a space and JWT token.
func setupRouter(appState *models.AppState) (*chi.Mux, error) {
	cfg := appState.Config

	router := chi.NewRouter()
	router.Use(httpLogger.Logger("router", log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.CleanPath)
	router.Use(middleware.Timeout(RequestTimeout))
	if cfg.Server.MaxRequestSize > 0 {
		router.Use(middleware.RequestSize(cfg.Server.MaxRequestSize))
	}
	router.Use(SendVersion)
	router.Use(middleware.Heartbeat("/healthz"))
	router.Use(
		otelchi.Middleware(
			RouterName,
			otelchi.WithChiRoutes(router),
			otelchi.WithRequestMethodInSpanName(true),
		),
	)
	if cfg.Server.RateLimit > 0 {
		log.Infof("rate limiting requests to %.1f/s", cfg.Server.RateLimit)
		router.Use(RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))
	}

	router.Get("/api/health", apihandlers.HealthHandler(appState))

	var verifier func(http.Handler) http.Handler
	if cfg.Auth.Required {
		v, err := auth.JWTVerifier(cfg)
		if err != nil {
			return nil, err
		}
		log.Info("JWT authentication required")
		verifier = v
	}

	router.Route("/api/v1", func(r chi.Router) {
		if verifier != nil {
			r.Use(verifier)
			r.Use(jwtauth.Authenticator)
		}

		r.Route("/persons", func(r chi.Router) {
			r.Get("/", apihandlers.ListPersonsHandler(appState))
			r.Get("/{personId}", apihandlers.GetPersonHandler(appState))
		})

		r.Get("/visualization", apihandlers.VisualizationHandler(appState))

		r.Route("/clusters", func(r chi.Router) {
			r.Get("/", apihandlers.ListClustersHandler(appState))
			r.Get("/{clusterId}/persons", apihandlers.ClusterPersonsHandler(appState))
		})

		r.Post("/generate-embedding", apihandlers.GenerateEmbeddingHandler(appState))
	})

	return router, nil
}
