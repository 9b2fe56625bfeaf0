package handlertools

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeembedding/lifeembedding/pkg/models"
)

func TestIntFromQuery(t *testing.T) {
	req := httptest.NewRequest("GET", "/?param=123", nil)
	got, err := IntFromQuery[int](req, "param", 7)
	assert.NoError(t, err)
	assert.Equal(t, 123, got)

	got, err = IntFromQuery[int](req, "missing", 7)
	assert.NoError(t, err)
	assert.Equal(t, 7, got)

	req = httptest.NewRequest("GET", "/?param=abc", nil)
	_, err = IntFromQuery[int64](req, "param", 0)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestIntFromURL(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := IntFromURL(r, "id")
		if err != nil {
			HandleError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, id)
	})

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest("GET", "/42", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "42", res.Body.String())

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest("GET", "/abc", nil))
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

type testRequest struct {
	Name  string   `json:"name"  validate:"required"`
	Items []string `json:"items" validate:"required,min=1"`
}

func TestDecodeAndValidateJSON(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"name":"a","items":["x"]}`},
		{name: "malformed", body: `{"name":`, wantErr: true},
		{name: "missing name", body: `{"items":["x"]}`, wantErr: true},
		{name: "empty items", body: `{"name":"a","items":[]}`, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tc.body))
			var v testRequest
			err := DecodeAndValidateJSON(req, &v)
			if tc.wantErr {
				assert.ErrorIs(t, err, models.ErrBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a", v.Name)
		})
	}
}

func TestHandleError(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: models.NewNotFoundError("person p1"), want: http.StatusNotFound},
		{name: "bad request", err: models.NewBadRequestError("bad"), want: http.StatusBadRequest},
		{name: "not ready", err: fmt.Errorf("project: %w", models.ErrModelNotReady), want: http.StatusServiceUnavailable},
		{
			name: "provider",
			err:  fmt.Errorf("embed: %w", models.NewEmbeddingProviderError("vertexai", errors.New("boom"))),
			want: http.StatusBadGateway,
		},
		{name: "precondition", err: models.NewPreconditionViolation("empty cluster set"), want: http.StatusInternalServerError},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
		{name: "too large", err: &http.MaxBytesError{Limit: 10}, want: http.StatusRequestEntityTooLarge},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := httptest.NewRecorder()
			HandleError(res, tc.err)
			assert.Equal(t, tc.want, res.Code)
		})
	}
}
