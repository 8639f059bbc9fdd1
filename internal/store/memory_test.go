package store

import (
	"context"
	"testing"
	"time"

	"github.com/kipe/iot-hub-measurements/internal/models"
)

func TestMemoryStoreAppendAndReadDay(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	p := models.Point{Timestamp: ts, Value: 21.5}

	if err := st.Append(ctx, "2024-01-01", "d1", models.TypeTemperature, p); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := st.ReadDay(ctx, "2024-01-01", "d1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	points := got[models.TypeTemperature]
	if len(points) != 1 || points[0] != p {
		t.Fatalf("got %v, want [%v]", points, p)
	}
}

// Appends are blind pushes: re-ingesting the identical point keeps both.
func TestMemoryStoreKeepsDuplicates(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	p := models.Point{Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), Value: 21.5}
	for i := 0; i < 2; i++ {
		if err := st.Append(ctx, "2024-01-01", "d1", models.TypeTemperature, p); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, _ := st.ReadDay(ctx, "2024-01-01", "d1")
	if len(got[models.TypeTemperature]) != 2 {
		t.Fatalf("got %d points, want 2", len(got[models.TypeTemperature]))
	}
}

func TestMemoryStoreReadAbsentIsEmpty(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	got, err := st.ReadDay(ctx, "2024-01-01", "nope")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty map", got)
	}
}

func TestMemoryStoreReadReturnsCopy(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	p := models.Point{Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), Value: 1}
	_ = st.Append(ctx, "2024-01-01", "d1", models.TypeTemperature, p)

	first, _ := st.ReadDay(ctx, "2024-01-01", "d1")
	first[models.TypeTemperature][0].Value = 99

	second, _ := st.ReadDay(ctx, "2024-01-01", "d1")
	if second[models.TypeTemperature][0].Value != 1 {
		t.Fatal("ReadDay leaked internal state")
	}
}

func TestMemoryStoreSummaryUpsertOverwrites(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if _, ok, err := st.Summary(ctx, "d1"); err != nil || ok {
		t.Fatalf("expected absent summary, got ok=%v err=%v", ok, err)
	}

	t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	_ = st.UpsertSummary(ctx, "d1", 21.5, t1)
	_ = st.UpsertSummary(ctx, "d1", 22.0, t2)

	s, ok, err := st.Summary(ctx, "d1")
	if err != nil || !ok {
		t.Fatalf("summary: ok=%v err=%v", ok, err)
	}
	if s.LastValue != 22.0 || !s.LastTimestamp.Equal(t2) {
		t.Fatalf("got %+v, want last_value=22 at %v", s, t2)
	}
}
