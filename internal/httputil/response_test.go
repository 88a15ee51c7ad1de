package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSONError(w, http.StatusConflict, "already playing")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "already playing", body["error"])
}

func TestStatusHelpers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(http.ResponseWriter)
		want int
	}{
		{"BadRequest", func(w http.ResponseWriter) { BadRequest(w, "bad") }, http.StatusBadRequest},
		{"NotFound", func(w http.ResponseWriter) { NotFound(w, "missing") }, http.StatusNotFound},
		{"InternalServerError", func(w http.ResponseWriter) { InternalServerError(w, "boom") }, http.StatusInternalServerError},
		{"WriteJSONOK", func(w http.ResponseWriter) { WriteJSONOK(w, map[string]int{"n": 1}) }, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.fn(w)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/seek?frame=12&bad=x", nil)

	n, err := QueryInt(r, "frame", 0)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	n, err = QueryInt(r, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = QueryInt(r, "bad", 0)
	assert.Error(t, err)
}

func TestQueryBool(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/play?from_beginning=false&x=maybe", nil)

	b, err := QueryBool(r, "from_beginning", true)
	require.NoError(t, err)
	assert.False(t, b)

	b, err = QueryBool(r, "missing", true)
	require.NoError(t, err)
	assert.True(t, b)

	_, err = QueryBool(r, "x", false)
	assert.Error(t, err)
}
