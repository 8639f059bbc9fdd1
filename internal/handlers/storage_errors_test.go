package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kipe/iot-hub-measurements/internal/httpserver"
	"github.com/kipe/iot-hub-measurements/internal/models"
	"github.com/kipe/iot-hub-measurements/internal/store"
)

// faultyStore wraps the memory store and fails selected operations, so the
// handlers' error branches can be driven without a backend.
type faultyStore struct {
	*store.MemoryStore
	appendErr  error
	summaryErr error
	readErr    error
	latestErr  error
}

func (f *faultyStore) Append(ctx context.Context, day, device string, mtype models.MeasurementType, p models.Point) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.MemoryStore.Append(ctx, day, device, mtype, p)
}

func (f *faultyStore) UpsertSummary(ctx context.Context, device string, value float64, ts time.Time) error {
	if f.summaryErr != nil {
		return f.summaryErr
	}
	return f.MemoryStore.UpsertSummary(ctx, device, value, ts)
}

func (f *faultyStore) ReadDay(ctx context.Context, day, device string) (map[models.MeasurementType][]models.Point, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.MemoryStore.ReadDay(ctx, day, device)
}

func (f *faultyStore) Summary(ctx context.Context, device string) (models.DeviceSummary, bool, error) {
	if f.latestErr != nil {
		return models.DeviceSummary{}, false, f.latestErr
	}
	return f.MemoryStore.Summary(ctx, device)
}

func newFaultyRouter() (*gin.Engine, *faultyStore) {
	st := &faultyStore{MemoryStore: store.NewMemoryStore()}
	return httpserver.NewRouter(st), st
}

func unavailable() error {
	return fmt.Errorf("%w: connection reset", store.ErrUnavailable)
}

func TestIngestUnavailableStoreReturns503(t *testing.T) {
	r, st := newFaultyRouter()
	st.appendErr = unavailable()

	code, body := postSample(t, r, "d1", "temperature", 21.5, "2024-01-01T10:00:00Z")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, body %s, want 503", code, body)
	}
}

// A summary failure after a successful append still surfaces as a storage
// error, and leaves the appended point behind with no summary: the accepted
// inconsistency window, not a rollback.
func TestIngestSummaryFailureAfterAppend(t *testing.T) {
	r, st := newFaultyRouter()
	st.summaryErr = unavailable()

	code, _ := postSample(t, r, "d1", "temperature", 21.5, "2024-01-01T10:00:00Z")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", code)
	}

	day, err := st.MemoryStore.ReadDay(context.Background(), "2024-01-01", "d1")
	if err != nil || len(day[models.TypeTemperature]) != 1 {
		t.Fatalf("history %v err=%v, want the appended point kept", day, err)
	}
	if _, ok, _ := st.MemoryStore.Summary(context.Background(), "d1"); ok {
		t.Fatal("summary written despite the failing upsert")
	}
}

func TestQueryUnavailableStoreReturns503(t *testing.T) {
	r, st := newFaultyRouter()
	st.readErr = unavailable()

	req, _ := http.NewRequest("GET", queryURL("d1", "temperature", "2024-01-01T00:00:00Z", "2024-01-01T23:59:59Z"), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, body %s, want 503", w.Code, w.Body.String())
	}
}

func TestLatestUnavailableStoreReturns503(t *testing.T) {
	r, st := newFaultyRouter()
	st.latestErr = unavailable()

	code, body := doJSON(t, r, "GET", "/devices/d1/latest", nil)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, body %s, want 503", code, body)
	}
}

// Failures that do not wrap ErrUnavailable are server errors, not 503s.
func TestPlainStorageErrorReturns500(t *testing.T) {
	r, st := newFaultyRouter()
	st.appendErr = errors.New("corrupt document")

	code, _ := postSample(t, r, "d1", "temperature", 21.5, "2024-01-01T10:00:00Z")
	if code != http.StatusInternalServerError {
		t.Fatalf("ingest status %d, want 500", code)
	}

	st.appendErr = nil
	st.readErr = errors.New("corrupt document")
	req, _ := http.NewRequest("GET", queryURL("d1", "temperature", "2024-01-01T00:00:00Z", "2024-01-01T23:59:59Z"), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("query status %d, want 500", w.Code)
	}
}
