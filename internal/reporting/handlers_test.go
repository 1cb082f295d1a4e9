package reporting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwatch/spendwatch/internal/anomaly"
	"github.com/spendwatch/spendwatch/internal/baseline"
	"github.com/spendwatch/spendwatch/internal/scoring"
	"github.com/spendwatch/spendwatch/internal/transaction"
)

type testAPI struct {
	router *gin.Engine
	txns   *transaction.MemoryStore
	store  *anomaly.MemoryStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	txns := transaction.NewMemoryStore()
	baselines := baseline.NewMemoryStore()
	store := anomaly.NewMemoryStore(txns, baselines)

	router := gin.New()
	NewHandler(store).RegisterRoutes(router.Group("/api"))

	return &testAPI{router: router, txns: txns, store: store}
}

func (a *testAPI) seed(t *testing.T, vendorID, dept, location string, amount, score float64, level scoring.RiskLevel) int64 {
	t.Helper()
	ctx := context.Background()
	tx := &transaction.Transaction{
		VendorID:   vendorID,
		VendorName: "Vendor " + vendorID,
		Department: dept,
		Amount:     amount,
		Location:   location,
		Date:       time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, a.txns.Insert(ctx, tx))
	res := &anomaly.Result{TransactionID: tx.ID, Score: score, RiskLevel: level}
	if level.Flagged() {
		res.Reasons = []string{"amount deviates sharply from vendor baseline"}
	}
	require.NoError(t, a.store.Commit(ctx, res, baseline.Delta{
		VendorID: vendorID, Department: dept, Location: location, Amount: amount,
	}))
	return tx.ID
}

func (a *testAPI) get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	a.router.ServeHTTP(w, req)

	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestListAnomaliesOrderedByScore(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, "V1", "IT", "Boston", 100, 0.8, scoring.RiskHigh)
	api.seed(t, "V2", "IT", "Omaha", 200, 0.2, scoring.RiskLow)
	api.seed(t, "V3", "HR", "Boston", 300, 0.5, scoring.RiskMedium)

	w, body := api.get(t, "/api/anomalies")
	require.Equal(t, http.StatusOK, w.Code)

	items := body["anomalies"].([]any)
	require.Len(t, items, 3)
	assert.Equal(t, 0.2, items[0].(map[string]any)["anomaly_score"])
	assert.Equal(t, 0.8, items[2].(map[string]any)["anomaly_score"])
	assert.Equal(t, false, body["has_more"])
}

func TestListAnomaliesRiskAndLocationFilters(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, "V1", "IT", "Boston", 100, 0.8, scoring.RiskHigh)
	api.seed(t, "V2", "IT", "Omaha", 200, 0.9, scoring.RiskHigh)
	api.seed(t, "V3", "HR", "Boston", 300, 0.5, scoring.RiskMedium)

	w, body := api.get(t, "/api/anomalies?risk=HIGH")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["anomalies"].([]any), 2)

	w, body = api.get(t, "/api/anomalies?risk=HIGH&location=Boston")
	require.Equal(t, http.StatusOK, w.Code)
	items := body["anomalies"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "V1", items[0].(map[string]any)["vendor_id"])

	w, _ = api.get(t, "/api/anomalies?risk=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAnomaliesPagination(t *testing.T) {
	api := newTestAPI(t)
	for _, score := range []float64{0.1, 0.2, 0.3, 0.4, 0.5} {
		api.seed(t, "V1", "IT", "Boston", 100, score, scoring.RiskLow)
	}

	w, body := api.get(t, "/api/anomalies?limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, body["anomalies"].([]any), 2)
	require.Equal(t, true, body["has_more"])
	cursor := body["next_cursor"].(string)
	require.NotEmpty(t, cursor)

	w, body = api.get(t, "/api/anomalies?limit=2&cursor="+cursor)
	require.Equal(t, http.StatusOK, w.Code)
	items := body["anomalies"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, 0.3, items[0].(map[string]any)["anomaly_score"])

	w, _ = api.get(t, "/api/anomalies?cursor=!!!bad")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAnomalyDetail(t *testing.T) {
	api := newTestAPI(t)
	id := api.seed(t, "V9", "Finance", "Omaha", 750, 0.9, scoring.RiskHigh)

	w, body := api.get(t, "/api/anomalies/"+strconv.FormatInt(id, 10))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "V9", body["vendor_id"])
	assert.Equal(t, "HIGH", body["risk_level"])
	assert.NotEmpty(t, body["reason"])

	w, _ = api.get(t, "/api/anomalies/99999")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = api.get(t, "/api/anomalies/abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardOverview(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, "V1", "IT", "Boston", 100, 0.8, scoring.RiskHigh)
	api.seed(t, "V1", "IT", "Boston", 200, 0.9, scoring.RiskHigh)
	api.seed(t, "V2", "HR", "Omaha", 300, 0.85, scoring.RiskHigh)
	api.seed(t, "V2", "HR", "Omaha", 400, 0.1, scoring.RiskLow)
	api.seed(t, "V3", "HR", "Omaha", 500, 0.5, scoring.RiskMedium)

	w, body := api.get(t, "/api/dashboard/overview")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(5), body["totalTransactions"])
	assert.Equal(t, float64(4), body["flaggedTransactions"])
	assert.Equal(t, float64(3), body["highRiskTransactions"])
	assert.Equal(t, float64(600), body["amountAtRisk"])
}

func TestDashboardRiskDistribution(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, "V1", "IT", "Boston", 100, 0.8, scoring.RiskHigh)

	w, body := api.get(t, "/api/dashboard/risk-distribution")
	require.Equal(t, http.StatusOK, w.Code)

	dist := body["distribution"].([]any)
	require.Len(t, dist, 3, "all levels present even with zero counts")

	counts := map[string]float64{}
	for _, entry := range dist {
		m := entry.(map[string]any)
		counts[m["risk_level"].(string)] = m["count"].(float64)
	}
	assert.Equal(t, float64(1), counts["HIGH"])
	assert.Equal(t, float64(0), counts["MEDIUM"])
	assert.Equal(t, float64(0), counts["LOW"])
}

func TestDashboardTopVendors(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, "V1", "IT", "Boston", 100, 0.8, scoring.RiskHigh)
	api.seed(t, "V1", "IT", "Boston", 100, 0.5, scoring.RiskMedium)
	api.seed(t, "V2", "HR", "Omaha", 9999, 0.9, scoring.RiskHigh)

	w, body := api.get(t, "/api/dashboard/top-vendors?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	vendors := body["vendors"].([]any)
	require.Len(t, vendors, 1)
	assert.Equal(t, "V1", vendors[0].(map[string]any)["vendor_id"])
}

func TestHeatmapEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, "V1", "IT", "X", 100, 0.1, scoring.RiskLow)
	api.seed(t, "V2", "IT", "X", 250, 0.8, scoring.RiskHigh)
	api.seed(t, "V3", "HR", "Y", 400, 0.5, scoring.RiskMedium)

	w, body := api.get(t, "/api/heatmap/location")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["cells"].([]any), 2)

	w, body = api.get(t, "/api/heatmap/department?risk=HIGH")
	require.Equal(t, http.StatusOK, w.Code)
	cells := body["cells"].([]any)
	require.Len(t, cells, 1)
	assert.Equal(t, "IT", cells[0].(map[string]any)["key"])

	w, body = api.get(t, "/api/heatmap/time")
	require.Equal(t, http.StatusOK, w.Code)
	cells = body["cells"].([]any)
	require.Len(t, cells, 1)
	assert.Equal(t, float64(3), cells[0].(map[string]any)["anomaly_count"])

	w, _ = api.get(t, "/api/heatmap/location?risk=nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
