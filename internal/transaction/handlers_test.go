package transaction

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadRouter() (*gin.Engine, *MemoryStore) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore()
	r := gin.New()
	NewHandler(store).RegisterRoutes(r.Group("/api"))
	return r, store
}

func postUpload(t *testing.T, r *gin.Engine, payload any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/upload", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestUploadStoresBatch(t *testing.T) {
	r, store := uploadRouter()

	w, body := postUpload(t, r, gin.H{"records": []gin.H{
		{"vendor_id": "V-1", "vendor_name": "Acme", "department": "IT", "amount": 100, "location": "Boston", "transaction_date": "2025-06-01"},
		{"vendor_id": "V-2", "vendor_name": "Globex", "department": "HR", "amount": "250.75", "location": "Omaha", "transaction_date": "2025-06-02"},
	}})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(2), body["accepted"])
	assert.Equal(t, float64(0), body["rejected"])
	assert.NotEmpty(t, body["batch_id"])

	n, err := store.Count(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUploadReportsRejections(t *testing.T) {
	r, store := uploadRouter()

	w, body := postUpload(t, r, gin.H{"records": []gin.H{
		{"vendor_id": "V-1", "vendor_name": "Acme", "department": "IT", "amount": 100, "location": "Boston", "transaction_date": "2025-06-01"},
		{"vendor_id": "", "vendor_name": "Nameless", "department": "IT", "amount": 50, "location": "Boston", "transaction_date": "2025-06-01"},
	}})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(1), body["accepted"])
	assert.Equal(t, float64(1), body["rejected"])

	rejections := body["rejections"].([]any)
	require.Len(t, rejections, 1)
	rej := rejections[0].(map[string]any)
	assert.Equal(t, float64(1), rej["index"])
	assert.Equal(t, "vendor_id", rej["field"])

	n, err := store.Count(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the valid record is stored")
}

func TestUploadMixedTypedBatch(t *testing.T) {
	r, store := uploadRouter()

	// Wrong-typed fields reject only their own record.
	w, body := postUpload(t, r, gin.H{"records": []gin.H{
		{"vendor_id": "V-1", "vendor_name": "Acme", "department": "IT", "amount": 100, "transaction_date": "2025-06-01"},
		{"vendor_id": "V-2", "vendor_name": "Globex", "department": "IT", "amount": "abc", "transaction_date": "2025-06-01"},
		{"vendor_id": "V-3", "vendor_name": "Initech", "department": "IT", "amount": true, "transaction_date": "2025-06-01"},
	}})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(1), body["accepted"])
	assert.Equal(t, float64(2), body["rejected"])

	rejections := body["rejections"].([]any)
	require.Len(t, rejections, 2)
	for _, raw := range rejections {
		rej := raw.(map[string]any)
		assert.Equal(t, "amount", rej["field"])
	}

	n, err := store.Count(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUploadRequiresRecordsField(t *testing.T) {
	r, _ := uploadRouter()

	w, body := postUpload(t, r, gin.H{"rows": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", body["error"])
}

func TestUploadEmptyBatch(t *testing.T) {
	r, _ := uploadRouter()

	w, body := postUpload(t, r, gin.H{"records": []gin.H{}})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(0), body["accepted"])
}
