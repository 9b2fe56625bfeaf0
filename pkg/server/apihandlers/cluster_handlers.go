package apihandlers

import (
	"net/http"
	"time"

	"github.com/lifeembedding/lifeembedding/pkg/models"
	"github.com/lifeembedding/lifeembedding/pkg/server/handlertools"
)

// VisualizationHandler godoc
//
//	@Summary		Returns every projected person
//	@Description	the full point cloud with cluster assignments and summary metadata
//	@Tags			clusters
//	@Produce		json
//	@Success		200	{object}	models.VisualizationData
//	@Failure		500	{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/visualization [get]
func VisualizationHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		persons, err := appState.CorpusStore.VisualizationPersons(r.Context())
		if err != nil {
			handlertools.HandleError(w, err)
			return
		}
		if persons == nil {
			persons = []models.VisualizationPerson{}
		}

		clusters := make(map[int]struct{})
		for _, p := range persons {
			clusters[p.ClusterID] = struct{}{}
		}

		data := models.VisualizationData{
			Persons: persons,
			Metadata: models.VisualizationMetadata{
				TotalPersons: len(persons),
				NumClusters:  len(clusters),
				GeneratedAt:  time.Now().UTC(),
			},
		}
		if err := handlertools.EncodeJSON(w, data); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// ListClustersHandler godoc
//
//	@Summary		Returns all clusters
//	@Description	clusters are ordered by id
//	@Tags			clusters
//	@Produce		json
//	@Success		200	{array}		models.ClusterInfo
//	@Failure		500	{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/clusters [get]
func ListClustersHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clusters, err := appState.CorpusStore.ClustersInfo(r.Context())
		if err != nil {
			handlertools.HandleError(w, err)
			return
		}
		if clusters == nil {
			clusters = []models.ClusterInfo{}
		}

		if err := handlertools.EncodeJSON(w, clusters); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// ClusterPersonsHandler godoc
//
//	@Summary		Returns the persons in a cluster
//	@Tags			clusters
//	@Produce		json
//	@Param			clusterId	path		integer	true	"Cluster ID"
//	@Success		200			{array}		models.PersonSummary
//	@Failure		400			{object}	APIError	"Bad Request"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/clusters/{clusterId}/persons [get]
func ClusterPersonsHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clusterID, err := handlertools.IntFromURL(r, "clusterId")
		if err != nil {
			handlertools.HandleError(w, err)
			return
		}

		persons, err := appState.CorpusStore.PersonsByCluster(r.Context(), clusterID)
		if err != nil {
			handlertools.HandleError(w, err)
			return
		}
		if persons == nil {
			persons = []models.PersonSummary{}
		}

		if err := handlertools.EncodeJSON(w, persons); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}
