package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleSystemInfo(t *testing.T) {
	handlers := NewSystemHandlers(zerolog.Nop())

	req := httptest.NewRequest("GET", "/api/system/info", nil)
	rec := httptest.NewRecorder()

	handlers.HandleSystemInfo(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Contains(t, response, "version")
	assert.Contains(t, response, "go_version")
	assert.Contains(t, response, "uptime_s")
	assert.Contains(t, response, "cpu_pct")
	assert.Contains(t, response, "mem_pct")

	goroutines, ok := response["goroutines"].(float64)
	require.True(t, ok, "goroutines should be numeric")
	assert.Greater(t, goroutines, 0.0)
}
