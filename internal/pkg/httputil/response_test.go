package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorWithCode(rec, http.StatusBadRequest, "unknown_region", "unknown region \"zz\"")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unknown_region", body.Code)
}

func TestInternalErrorHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(rec, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestDecode(t *testing.T) {
	var dst struct {
		From string `json:"from"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"from":"2026-01-01"}`))
	assert.True(t, Decode(httptest.NewRecorder(), req, &dst))
	assert.Equal(t, "2026-01-01", dst.From)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.True(t, Decode(httptest.NewRecorder(), req, &dst))

	rec := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"from":`))
	assert.False(t, Decode(rec, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
