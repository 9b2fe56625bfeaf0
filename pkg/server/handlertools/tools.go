package handlertools

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lifeembedding/lifeembedding/internal"
	"github.com/lifeembedding/lifeembedding/pkg/models"
)

var log = internal.GetLogger()

var Validate = validator.New()

// IntFromQuery extracts a query string value and converts it to an int.
// An absent value returns def.
func IntFromQuery[T ~int | int32 | int64](
	r *http.Request,
	param string,
	def T,
) (T, error) {
	bitsize := 0

	p := r.URL.Query().Get(param)
	if p == "" {
		return def, nil
	}

	var pInt T
	switch any(pInt).(type) {
	case int:
	case int32:
		bitsize = 32
	case int64:
		bitsize = 64
	default:
		return 0, errors.New("unsupported type")
	}

	v, err := strconv.ParseInt(p, 10, bitsize)
	if err != nil {
		return 0, models.NewBadRequestError(fmt.Sprintf("%s must be an integer", param))
	}
	return T(v), nil
}

// IntFromURL parses an integer path parameter.
func IntFromURL(r *http.Request, param string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil {
		return 0, models.NewBadRequestError(fmt.Sprintf("%s must be an integer", param))
	}
	return v, nil
}

// EncodeJSON encodes data into JSON and writes it to the response writer.
func EncodeJSON(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(data)
}

// DecodeJSON decodes a JSON request body into the provided data struct.
func DecodeJSON(r *http.Request, data interface{}) error {
	return json.NewDecoder(r.Body).Decode(data)
}

// DecodeAndValidateJSON decodes the body into v and runs its validate tags.
// Malformed and invalid bodies are returned as bad requests.
func DecodeAndValidateJSON(r *http.Request, v any) error {
	if err := DecodeJSON(r, v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return models.NewBadRequestError(fmt.Sprintf("invalid request body: %v", err))
	}
	if err := Validate.Struct(v); err != nil {
		return models.NewBadRequestError(err.Error())
	}
	return nil
}

// RenderError renders an error response.
func RenderError(w http.ResponseWriter, err error, status int) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		status = http.StatusRequestEntityTooLarge
		err = fmt.Errorf("request body too large")
	}

	switch {
	case status >= http.StatusInternalServerError:
		log.Error(err)
	case status != http.StatusNotFound:
		// Don't log not found errors
		log.Debug(err)
	}

	http.Error(w, err.Error(), status)
}

// HandleError maps err to its status code and renders it.
func HandleError(w http.ResponseWriter, err error) {
	var providerErr *models.EmbeddingProviderError
	switch {
	case errors.Is(err, models.ErrNotFound):
		RenderError(w, err, http.StatusNotFound)
	case errors.Is(err, models.ErrBadRequest):
		RenderError(w, err, http.StatusBadRequest)
	case errors.Is(err, models.ErrModelNotReady):
		RenderError(w, err, http.StatusServiceUnavailable)
	case errors.As(err, &providerErr):
		RenderError(w, err, http.StatusBadGateway)
	case errors.Is(err, models.ErrPreconditionViolation):
		RenderError(w, err, http.StatusInternalServerError)
	default:
		RenderError(w, err, http.StatusInternalServerError)
	}
}
