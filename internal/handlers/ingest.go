package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kipe/iot-hub-measurements/internal/codec"
	"github.com/kipe/iot-hub-measurements/internal/metrics"
	"github.com/kipe/iot-hub-measurements/internal/models"
	"github.com/kipe/iot-hub-measurements/internal/store"
)

// storageStatus maps a storage failure to an HTTP status. Unavailability is
// 503 so callers and load balancers can apply their own retry policy; this
// service never retries on its own.
func storageStatus(err error) int {
	if errors.Is(err, store.ErrUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RegisterIngestRoutes registers the ingestion-path endpoint.
//
// POST /measurements
//   - Validates the sample and normalizes its timestamp to UTC
//   - Appends to the day bucket keyed by the sample's UTC calendar day
//   - Overwrites the device's rolling summary
//
// The two writes are not transactional: a failure after the append leaves
// history with a point the summary does not reflect yet. The summary catches
// up on the device's next ingest; this window is accepted, not masked.
func RegisterIngestRoutes(r gin.IRoutes, st store.Store) {
	r.POST("/measurements", func(c *gin.Context) {
		var req models.IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		sample, err := codec.DecodeSample(req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		day := store.DayKey(sample.Timestamp)
		point := models.Point{Timestamp: sample.Timestamp, Value: sample.Value}

		if err := st.Append(c.Request.Context(), day, sample.Device, sample.Type, point); err != nil {
			metrics.StorageErrors.WithLabelValues("append").Inc()
			c.JSON(storageStatus(err), gin.H{"error": "storage write failed"})
			return
		}

		if err := st.UpsertSummary(c.Request.Context(), sample.Device, sample.Value, sample.Timestamp); err != nil {
			metrics.StorageErrors.WithLabelValues("upsert_summary").Inc()
			c.JSON(storageStatus(err), gin.H{"error": "storage write failed"})
			return
		}

		metrics.IngestedSamples.WithLabelValues(string(sample.Type)).Inc()

		// Echo the accepted sample back as acknowledgment.
		c.JSON(http.StatusCreated, sample)
	})
}
