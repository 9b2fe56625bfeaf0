package apihandlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lifeembedding/lifeembedding/pkg/models"
	"github.com/lifeembedding/lifeembedding/pkg/server/handlertools"
)

const (
	DefaultPersonLimit = 100
	MaxPersonLimit     = 1000
)

// ListPersonsHandler godoc
//
//	@Summary		Returns a page of corpus persons
//	@Description	persons are ordered by name
//	@Tags			persons
//	@Produce		json
//	@Param			limit	query		integer	false	"Limit the number of results returned"
//	@Param			offset	query		integer	false	"Offset into the ordered result"
//	@Success		200		{array}		models.PersonSummary
//	@Failure		400		{object}	APIError	"Bad Request"
//	@Failure		500		{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/persons [get]
func ListPersonsHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := handlertools.IntFromQuery[int](r, "limit", DefaultPersonLimit)
		if err != nil {
			handlertools.HandleError(w, err)
			return
		}
		offset, err := handlertools.IntFromQuery[int](r, "offset", 0)
		if err != nil {
			handlertools.HandleError(w, err)
			return
		}
		if limit < 1 || offset < 0 {
			handlertools.HandleError(
				w,
				models.NewBadRequestError("limit must be positive and offset must not be negative"),
			)
			return
		}
		if limit > MaxPersonLimit {
			limit = MaxPersonLimit
		}

		persons, err := appState.CorpusStore.ListPersons(r.Context(), limit, offset)
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

// GetPersonHandler godoc
//
//	@Summary		Returns a person by ID
//	@Description	includes coordinates, cluster and life event counts by type
//	@Tags			persons
//	@Produce		json
//	@Param			personId	path		string	true	"Person ID"
//	@Success		200			{object}	models.PersonDetail
//	@Failure		404			{object}	APIError	"Not Found"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/persons/{personId} [get]
func GetPersonHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		personID := chi.URLParam(r, "personId")

		person, err := appState.CorpusStore.GetPerson(r.Context(), personID)
		if err != nil {
			handlertools.HandleError(w, err)
			return
		}

		if err := handlertools.EncodeJSON(w, person); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}
