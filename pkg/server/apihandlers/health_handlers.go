package apihandlers

import (
	"net/http"
	"time"

	"github.com/lifeembedding/lifeembedding/config"
	"github.com/lifeembedding/lifeembedding/pkg/models"
	"github.com/lifeembedding/lifeembedding/pkg/server/handlertools"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// HealthHandler godoc
//
//	@Summary		Returns the service health
//	@Description	reports the corpus store, the embedding provider and the reduction models
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	models.HealthResponse
//	@Router			/api/health [get]
func HealthHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := map[string]string{
			"database":           "connected",
			"embedding_provider": "configured",
			"reduction_models":   "loaded",
		}
		status := StatusHealthy

		if appState.CorpusStore == nil {
			services["database"] = "not_configured"
			status = StatusDegraded
		} else if err := appState.CorpusStore.Ping(r.Context()); err != nil {
			log.Warnf("health check: corpus store ping failed: %v", err)
			services["database"] = "unavailable"
			status = StatusDegraded
		}

		if appState.Embedder == nil {
			services["embedding_provider"] = "not_configured"
			status = StatusDegraded
		}

		if appState.Projection == nil || !appState.Projection.Ready() {
			services["reduction_models"] = "not_loaded"
			status = StatusDegraded
		}

		resp := models.HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC(),
			Version:   config.VersionString,
			Services:  services,
		}
		if err := handlertools.EncodeJSON(w, resp); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}
