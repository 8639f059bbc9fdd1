package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/kipe/iot-hub-measurements/internal/codec"
	"github.com/kipe/iot-hub-measurements/internal/metrics"
	"github.com/kipe/iot-hub-measurements/internal/models"
	"github.com/kipe/iot-hub-measurements/internal/store"
)

// RegisterQueryRoutes registers the serving-path endpoint.
//
// GET /measurements?devices=a,b&type=temperature&start=...&end=...
//   - devices is repeatable and/or comma-separated
//   - start/end default to the current UTC day's bounds
//   - start > end returns empty series, not an error
func RegisterQueryRoutes(r gin.IRoutes, st store.Store) {
	r.GET("/measurements", func(c *gin.Context) {
		req, err := codec.DecodeQuery(
			c.QueryArray("devices"),
			c.Query("type"),
			c.Query("start"),
			c.Query("end"),
		)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resp, err := runQuery(c.Request.Context(), st, req)
		if err != nil {
			metrics.StorageErrors.WithLabelValues("read_day").Inc()
			c.JSON(storageStatus(err), gin.H{"error": "storage read failed"})
			return
		}

		metrics.QueryRequests.Inc()
		for _, s := range resp.Series {
			metrics.QueryPoints.Add(float64(len(s.Points)))
		}

		c.JSON(http.StatusOK, resp)
	})
}

// runQuery reconstructs each requested device's series by visiting every day
// bucket the range spans, concatenating in ascending day order, re-filtering
// to the exact bounds, and sorting. The re-filter is mandatory: a bucket
// spans a whole day while the range may start or end mid-day. The sort is
// mandatory too, since within-bucket order is not guaranteed at write time.
func runQuery(ctx context.Context, st store.Store, req models.MeasurementRequest) (models.MeasurementResponse, error) {
	days := store.EnumerateDays(req.Start, req.End)

	accumulated := make(map[string][]models.Point)
	for _, day := range days {
		for _, device := range req.Devices {
			series, err := st.ReadDay(ctx, day, device)
			if err != nil {
				return models.MeasurementResponse{}, err
			}
			accumulated[device] = append(accumulated[device], series[req.Type]...)
		}
	}

	out := make([]models.MeasurementSeries, 0, len(req.Devices))
	for _, device := range req.Devices {
		points := make([]models.Point, 0)
		for _, p := range accumulated[device] {
			if p.Timestamp.Before(req.Start) || p.Timestamp.After(req.End) {
				continue
			}
			points = append(points, p)
		}
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Timestamp.Before(points[j].Timestamp)
		})
		out = append(out, models.MeasurementSeries{
			Device: device,
			Type:   req.Type,
			Points: points,
		})
	}

	return models.MeasurementResponse{
		Start:  req.Start,
		End:    req.End,
		Series: out,
	}, nil
}
