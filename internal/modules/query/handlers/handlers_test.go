package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerscope/ledgerscope/internal/modules/query"
)

func newTestRouter(maxBatch int) *chi.Mux {
	router := chi.NewRouter()
	handler := NewHandler(query.NewEngine(zerolog.Nop()), maxBatch, zerolog.Nop())
	handler.RegisterRoutes(router)
	return router
}

func postJSON(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/query", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const sampleTransactions = `[
	{"id": "t1", "date": "2024-01-05T00:00:00Z", "type": "income", "amount": "3000", "category": "Salary", "account_id": "checking"},
	{"id": "t2", "date": "2024-01-12T00:00:00Z", "type": "expense", "amount": "120", "category": "Groceries", "account_id": "checking"},
	{"id": "t3", "date": "2024-02-20T00:00:00Z", "type": "expense", "amount": "80", "category": "Groceries", "account_id": "credit"}
]`

func TestHandleExecute_GroupedAggregation(t *testing.T) {
	router := newTestRouter(100)

	body := `{
		"transactions": ` + sampleTransactions + `,
		"query": {
			"filters": [{"field": "type", "op": "equals", "value": "expense"}],
			"group_by": "month",
			"aggregations": [{"metric": "expenses"}]
		}
	}`

	rec := postJSON(t, router, body)

	require.Equal(t, http.StatusOK, rec.Code, "Body: %s", rec.Body.String())

	var response ExecuteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Rows, 2)
	assert.Equal(t, "2024-01", response.Rows[0].Group)
	assert.Equal(t, "120", response.Rows[0].Values["expenses"].String())
	assert.Equal(t, "2024-02", response.Rows[1].Group)
}

func TestHandleExecute_UnknownFieldIs400(t *testing.T) {
	router := newTestRouter(100)

	body := `{
		"transactions": ` + sampleTransactions + `,
		"query": {
			"filters": [{"field": "merchant", "op": "equals", "value": "x"}],
			"aggregations": [{"fn": "count"}]
		}
	}`

	rec := postJSON(t, router, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "field")
}

func TestHandleExecute_MissingAggregationIs400(t *testing.T) {
	router := newTestRouter(100)

	body := `{"transactions": ` + sampleTransactions + `, "query": {}}`

	rec := postJSON(t, router, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExecute_EmptyBatchIs400(t *testing.T) {
	router := newTestRouter(100)

	rec := postJSON(t, router, `{"transactions": [], "query": {"aggregations": [{"fn": "count"}]}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
