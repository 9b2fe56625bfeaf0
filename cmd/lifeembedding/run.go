package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/oiime/logrusbun"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/lifeembedding/lifeembedding/config"
	"github.com/lifeembedding/lifeembedding/pkg/auth"
	"github.com/lifeembedding/lifeembedding/pkg/llms"
	"github.com/lifeembedding/lifeembedding/pkg/models"
	"github.com/lifeembedding/lifeembedding/pkg/observability"
	"github.com/lifeembedding/lifeembedding/pkg/projection"
	"github.com/lifeembedding/lifeembedding/pkg/reduction"
	"github.com/lifeembedding/lifeembedding/pkg/server"
	"github.com/lifeembedding/lifeembedding/pkg/store/postgres"
	"github.com/lifeembedding/lifeembedding/pkg/store/sqlite"
)

const (
	ErrStoreTypeNotSet    = "store.type must be set"
	ErrPostgresDSNNotSet  = "store.postgres.dsn must be set"
	StoreTypePostgres     = "postgres"
	StoreTypeSQLite       = "sqlite"
	ServerShutdownTimeout = 10 * time.Second
)

// run is the entrypoint for the lifeembedding server
func run(ctx context.Context) {
	cfg := loadConfig()

	log.Infof("Starting lifeembedding server version %s", config.VersionString)

	shutdownTracer, err := observability.InitTracer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Errorf("Error shutting down tracer: %v", err)
		}
	}()

	appState, err := NewAppState(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := appState.CorpusStore.Close(); err != nil {
			log.Errorf("Error closing corpus store: %v", err)
		}
	}()

	srv, err := server.Create(appState)
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ServerShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Error shutting down server: %v", err)
		}
	}()

	log.Infof("Listening on: %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(err)
	}
}

// NewAppState opens the corpus store and builds the projection service.
// Missing reduction models or an unavailable embedding provider leave the
// server running in a degraded state, reported by the health endpoint.
func NewAppState(ctx context.Context, cfg *config.Config) (*models.AppState, error) {
	corpusStore, err := newCorpusStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	appState := &models.AppState{
		Config:      cfg,
		CorpusStore: corpusStore,
	}

	embedder, err := llms.NewEmbedder(ctx, cfg)
	if err != nil {
		log.Warnf("embedding provider unavailable: %v", err)
		return appState, nil
	}
	appState.Embedder = embedder

	pipeline := reduction.NewPipeline()
	if err := pipeline.LoadFile(cfg.Reduction.ModelPath); err != nil {
		log.Warnf("reduction models not loaded from %s: %v", cfg.Reduction.ModelPath, err)
	}
	appState.Reducer = pipeline

	svc := projection.NewService(cfg, corpusStore, embedder, pipeline)
	if err := svc.LoadCorpus(ctx); err != nil {
		log.Warnf("corpus not loaded: %v", err)
	}
	appState.Projection = svc

	return appState, nil
}

// newCorpusStore opens the store named by store.type
func newCorpusStore(ctx context.Context, cfg *config.Config) (models.CorpusStore, error) {
	switch cfg.Store.Type {
	case "":
		return nil, errors.New(ErrStoreTypeNotSet)
	case StoreTypePostgres:
		if cfg.Store.Postgres.DSN == "" {
			return nil, errors.New(ErrPostgresDSNNotSet)
		}
		db, err := postgres.NewPostgresConn(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Log.Level == "debug" {
			pgDebugLogging(db)
		}
		if err := postgres.CreateSchema(ctx, cfg, db); err != nil {
			return nil, err
		}
		log.Info("Using corpus store: ", cfg.Store.Type)
		return postgres.NewCorpusDAO(db, cfg.Embeddings.Dimensions), nil
	case StoreTypeSQLite:
		store, err := sqlite.NewCorpusStore(cfg.Store.SQLite.Path, cfg.Embeddings.Dimensions)
		if err != nil {
			return nil, err
		}
		log.Infof("Using corpus store: %s (%s)", cfg.Store.Type, cfg.Store.SQLite.Path)
		return store, nil
	default:
		return nil, fmt.Errorf("store.type (%s) is not supported", cfg.Store.Type)
	}
}

func pgDebugLogging(db *bun.DB) {
	db.AddQueryHook(logrusbun.NewQueryHook(logrusbun.QueryHookOptions{
		LogSlow:         time.Second,
		Logger:          log,
		QueryLevel:      logrus.DebugLevel,
		ErrorLevel:      logrus.ErrorLevel,
		SlowLevel:       logrus.WarnLevel,
		MessageTemplate: "{{.Operation}}[{{.Duration}}]: {{.Query}}",
		ErrorTemplate:   "{{.Operation}}[{{.Duration}}]: {{.Query}}: {{.Error}}",
	}))
}

// handleCLIOptions handles CLI options that don't require the server to run
func handleCLIOptions(cfg *config.Config) {
	switch {
	case showVersion:
		fmt.Println(config.VersionString)
		os.Exit(0)
	case dumpConfig:
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			log.Fatalf("Error dumping config: %v", err)
		}
		fmt.Println(string(out))
		os.Exit(0)
	case generateToken:
		token, err := auth.GenerateJWT(cfg)
		if err != nil {
			log.Fatalf("Error generating token: %v", err)
		}
		fmt.Println(token)
		os.Exit(0)
	}
}
