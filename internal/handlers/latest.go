package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kipe/iot-hub-measurements/internal/metrics"
	"github.com/kipe/iot-hub-measurements/internal/store"
)

// RegisterLatestRoutes registers the fast "latest state" read path over the
// device summary. The summary is overwritten by every ingest regardless of
// measurement type, so this reflects the device's most recent sample of any
// type.
//
// GET /devices/:device/latest
func RegisterLatestRoutes(r gin.IRoutes, st store.Store) {
	r.GET("/devices/:device/latest", func(c *gin.Context) {
		device := c.Param("device")

		summary, ok, err := st.Summary(c.Request.Context(), device)
		if err != nil {
			metrics.StorageErrors.WithLabelValues("summary").Inc()
			c.JSON(storageStatus(err), gin.H{"error": "storage read failed"})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown device"})
			return
		}

		c.JSON(http.StatusOK, summary)
	})
}
