package apihandlers

import (
	"fmt"
	"net/http"

	"github.com/lifeembedding/lifeembedding/pkg/models"
	"github.com/lifeembedding/lifeembedding/pkg/server/handlertools"
)

// GenerateEmbeddingHandler godoc
//
//	@Summary		Places a submitted biography in the corpus space
//	@Description	narrates, embeds and projects the life events, then returns the nearest cluster and the most similar persons
//	@Tags			embeddings
//	@Accept			json
//	@Produce		json
//	@Param			top_k	query		integer						false	"Number of similar persons"
//	@Param			request	body		models.UserEmbeddingRequest	true	"Biography"
//	@Success		200		{object}	models.UserEmbeddingResponse
//	@Failure		400		{object}	APIError	"Bad Request"
//	@Failure		502		{object}	APIError	"Embedding Provider Error"
//	@Failure		503		{object}	APIError	"Models Not Loaded"
//	@Failure		500		{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/generate-embedding [post]
func GenerateEmbeddingHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search := appState.Config.Search
		topK, err := handlertools.IntFromQuery[int](r, "top_k", search.DefaultTopK)
		if err != nil {
			handlertools.HandleError(w, err)
			return
		}
		if topK < 1 || topK > search.MaxTopK {
			handlertools.HandleError(
				w,
				models.NewBadRequestError(fmt.Sprintf("top_k must be between 1 and %d", search.MaxTopK)),
			)
			return
		}

		var req models.UserEmbeddingRequest
		if err := handlertools.DecodeAndValidateJSON(r, &req); err != nil {
			handlertools.HandleError(w, err)
			return
		}

		if appState.Projection == nil {
			handlertools.HandleError(w, models.ErrModelNotReady)
			return
		}

		resp, err := appState.Projection.GenerateEmbedding(r.Context(), &req, topK)
		if err != nil {
			handlertools.HandleError(w, err)
			return
		}

		if err := handlertools.EncodeJSON(w, resp); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}
