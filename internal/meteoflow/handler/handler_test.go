package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/avolkhov/meteoflow/internal/meteoflow/handler"
	"github.com/avolkhov/meteoflow/internal/meteoflow/model"
	"github.com/avolkhov/meteoflow/internal/meteoflow/store"
	"github.com/avolkhov/meteoflow/internal/pkg/known"
)

func newTestRouter(t *testing.T, istore store.IStore, trigger func() bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handler.New(istore, trigger, nil).InstallRoutes(engine)
	return engine
}

func seedRun(t *testing.T, istore store.IStore, runID, status string) {
	t.Helper()
	require.NoError(t, istore.Run().Create(context.Background(), &model.PipelineRunM{
		RunID:     runID,
		Pipeline:  known.DefaultPipelineName,
		Status:    status,
		StartedAt: time.Now(),
	}))
}

func doRequest(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	engine := newTestRouter(t, store.NewMemory(), nil)
	w := doRequest(engine, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGetRun(t *testing.T) {
	istore := store.NewMemory()
	seedRun(t, istore, "run-1", known.RunSucceeded)
	engine := newTestRouter(t, istore, nil)

	w := doRequest(engine, http.MethodGet, "/v1/runs/run-1")
	require.Equal(t, http.StatusOK, w.Code)

	var run model.PipelineRunM
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	require.Equal(t, "run-1", run.RunID)
	require.Equal(t, known.RunSucceeded, run.Status)
}

func TestGetRunNotFound(t *testing.T) {
	engine := newTestRouter(t, store.NewMemory(), nil)
	w := doRequest(engine, http.MethodGet, "/v1/runs/missing")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRuns(t *testing.T) {
	istore := store.NewMemory()
	seedRun(t, istore, "run-1", known.RunSucceeded)
	seedRun(t, istore, "run-2", known.RunPartiallyFailed)
	engine := newTestRouter(t, istore, nil)

	w := doRequest(engine, http.MethodGet, "/v1/runs")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
}

func TestListRunsRejectsBadLimit(t *testing.T) {
	engine := newTestRouter(t, store.NewMemory(), nil)
	for _, limit := range []string{"0", "-3", "9999", "abc"} {
		w := doRequest(engine, http.MethodGet, "/v1/runs?limit="+limit)
		require.Equal(t, http.StatusBadRequest, w.Code, "limit %q", limit)
	}
}

func TestListReceipts(t *testing.T) {
	istore := store.NewMemory()
	require.NoError(t, istore.Receipt().Create(context.Background(), &model.LoadReceiptM{
		ArtifactKey: "weather-etl/20250601T120000Z/batch-0000.json",
		RunID:       "run-1",
		Kind:        known.ArtifactKindHourly,
		RecordCount: 24,
		CommittedAt: time.Now(),
	}))
	engine := newTestRouter(t, istore, nil)

	w := doRequest(engine, http.MethodGet, "/v1/runs/run-1/receipts")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
}

func TestTriggerRun(t *testing.T) {
	accepted := true
	engine := newTestRouter(t, store.NewMemory(), func() bool { return accepted })

	w := doRequest(engine, http.MethodPost, "/v1/runs")
	require.Equal(t, http.StatusAccepted, w.Code)

	// A second trigger while one is pending is refused.
	accepted = false
	w = doRequest(engine, http.MethodPost, "/v1/runs")
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestTriggerRunDisabled(t *testing.T) {
	engine := newTestRouter(t, store.NewMemory(), nil)
	w := doRequest(engine, http.MethodPost, "/v1/runs")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
