package services

import (
	"fmt"
	"testing"
	"time"

	"backoffice/internal/domain/models"

	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func calcLine(id int64, src string) models.QuoteLine {
	return models.QuoteLine{
		ID:           id,
		QuoteID:      1,
		Type:         models.LineCalculated,
		Dispatchable: true,
		SourceData:   []byte(src),
	}
}

func testOrder(lines ...models.QuoteLine) models.Order {
	pickup := time.Date(2025, 3, 2, 9, 0, 0, 0, time.Local)
	return models.Order{
		ID:             7,
		OrganizationID: 1,
		Reference:      "ORD-2025-042",
		Status:         "draft",
		Quotes: []models.Quote{{
			ID:             1,
			OrderID:        7,
			TripType:       models.TripTransfer,
			PickupAt:       &pickup,
			PickupAddress:  "12 Quai de la Gare",
			DropoffAddress: "Aéroport T2",
			PassengerCount: 3,
			Lines:          lines,
		}},
	}
}

func testService(order models.Order, spawned map[int64]bool) SpawnService {
	return SpawnService{
		Now: fixedNow,
		FetchTree: func(orderID, orgID int64) (models.Order, error) {
			return order, nil
		},
		FetchSpawned: func(orderID int64) (map[int64]bool, error) {
			return spawned, nil
		},
		Persist: func(ms []models.Mission) ([]models.Mission, error) {
			return ms, nil
		},
	}
}

func TestExecuteAssignsChronologicalRefs(t *testing.T) {
	// Collection order A, B, C; pickup times force order B, C, A.
	order := testOrder(
		calcLine(101, `{"pickup_at":"2025-03-05 10:00:00"}`),
		calcLine(102, `{"pickup_at":"2025-03-05 08:00:00"}`),
		calcLine(103, `{"pickup_at":"2025-03-05 09:00:00"}`),
	)
	svc := testService(order, map[int64]bool{})

	created, err := svc.Execute(7, 1)
	require.NoError(t, err)
	require.Len(t, created, 3)

	require.Equal(t, "ORD-2025-042-01", created[0].Ref)
	require.Equal(t, int64(102), *created[0].QuoteLineID)
	require.Equal(t, "ORD-2025-042-02", created[1].Ref)
	require.Equal(t, int64(103), *created[1].QuoteLineID)
	require.Equal(t, "ORD-2025-042-03", created[2].Ref)
	require.Equal(t, int64(101), *created[2].QuoteLineID)

	for _, m := range created {
		require.Equal(t, models.MissionPending, m.Status)
		require.False(t, m.IsInternal)
	}
}

func TestExecuteIdempotentAcrossRuns(t *testing.T) {
	order := testOrder(
		calcLine(101, `{"pickup_at":"2025-03-05 10:00:00"}`),
		calcLine(102, `{"pickup_at":"2025-03-05 08:00:00"}`),
	)

	store := []models.Mission{}
	svc := SpawnService{
		Now:       fixedNow,
		FetchTree: func(int64, int64) (models.Order, error) { return order, nil },
		FetchSpawned: func(int64) (map[int64]bool, error) {
			out := map[int64]bool{}
			for _, m := range store {
				if m.QuoteLineID != nil {
					out[*m.QuoteLineID] = true
				}
			}
			return out, nil
		},
		Persist: func(ms []models.Mission) ([]models.Mission, error) {
			store = append(store, ms...)
			return ms, nil
		},
	}

	first, err := svc.Execute(7, 1)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := svc.Execute(7, 1)
	require.NoError(t, err)
	require.Empty(t, second)
	require.Len(t, store, 2)
}

func TestExecutePartialRecoveryRestartsNumbering(t *testing.T) {
	order := testOrder(
		calcLine(101, `{"pickup_at":"2025-03-05 08:00:00"}`),
		calcLine(102, `{"pickup_at":"2025-03-05 10:00:00"}`),
	)
	// Line 101 survived a previous, interrupted run.
	svc := testService(order, map[int64]bool{101: true})

	created, err := svc.Execute(7, 1)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, int64(102), *created[0].QuoteLineID)
	// Refs number the current run's candidate set only.
	require.Equal(t, "ORD-2025-042-01", created[0].Ref)
}

func TestExecuteDateRangeExpansion(t *testing.T) {
	group := models.QuoteLine{
		ID:           200,
		QuoteID:      1,
		Type:         models.LineGroup,
		Dispatchable: true,
		SourceData:   []byte(`{"start_date":"2025-06-01","end_date":"2025-06-03"}`),
	}
	svc := testService(testOrder(group), map[int64]bool{})

	created, err := svc.Execute(7, 1)
	require.NoError(t, err)
	require.Len(t, created, 3)

	for i, m := range created {
		require.Equal(t, int64(200), *m.QuoteLineID, "all days share the group's line id")
		require.Equal(t, i+1, m.DayIndex, "each day keeps its own slot in the unique key")
		want := time.Date(2025, 6, 1+i, 0, 0, 0, 0, time.Local)
		require.True(t, m.StartAt.Equal(want), "day %d start, got %s", i+1, m.StartAt)
		require.Equal(t, fmt.Sprintf("ORD-2025-042-%02d", i+1), m.Ref)
		require.Nil(t, m.EndAt)
		require.Contains(t, string(m.SourceData), fmt.Sprintf(`"day_index":%d`, i+1))
		require.Contains(t, string(m.SourceData), `"total_days":3`)
	}
}

func TestExecuteClockFallbackKeepsStableDedupeKey(t *testing.T) {
	// A line with no override pickup whose quote also lacks pickup_at gets
	// its start from the clock. Two invocations racing past the spawned-set
	// check then write different start times, so the unique key must hold
	// on (quote_line_id, day_index), not on start_at.
	order := testOrder(calcLine(101, `{}`))
	order.Quotes[0].PickupAt = nil

	run := func(now time.Time) models.Mission {
		svc := testService(order, map[int64]bool{})
		svc.Now = func() time.Time { return now }
		created, err := svc.Execute(7, 1)
		require.NoError(t, err)
		require.Len(t, created, 1)
		return created[0]
	}

	m1 := run(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	m2 := run(time.Date(2025, 3, 1, 12, 0, 1, 0, time.UTC))

	require.False(t, m1.StartAt.Equal(m2.StartAt))
	require.Equal(t, *m1.QuoteLineID, *m2.QuoteLineID)
	require.Equal(t, m1.DayIndex, m2.DayIndex)
	require.Equal(t, 0, m1.DayIndex, "single-shot missions all live in slot 0")
}

func TestExecuteMalformedRangeSkipsGroupOnly(t *testing.T) {
	badGroup := models.QuoteLine{
		ID:           200,
		QuoteID:      1,
		Type:         models.LineGroup,
		Dispatchable: true,
		SourceData:   []byte(`{"start_date":"not-a-date","end_date":"2025-06-03"}`),
	}
	svc := testService(testOrder(badGroup, calcLine(101, ``)), map[int64]bool{})

	created, err := svc.Execute(7, 1)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, int64(101), *created[0].QuoteLineID)
}

func TestExecuteExcludesManualAndNonDispatchable(t *testing.T) {
	manual := models.QuoteLine{ID: 102, QuoteID: 1, Type: models.LineManual, Dispatchable: true}
	offline := models.QuoteLine{ID: 103, QuoteID: 1, Type: models.LineCalculated, Dispatchable: false}
	svc := testService(testOrder(calcLine(101, ``), manual, offline), map[int64]bool{})

	created, err := svc.Execute(7, 1)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, int64(101), *created[0].QuoteLineID)
}

func TestExecuteGroupChildrenRecursion(t *testing.T) {
	nested := models.QuoteLine{
		ID: 14, QuoteID: 1, Type: models.LineGroup, Dispatchable: true,
		Children: []models.QuoteLine{calcLine(15, `{"pickup_at":"2025-03-05 11:00:00"}`)},
	}
	group := models.QuoteLine{
		ID: 10, QuoteID: 1, Type: models.LineGroup, Dispatchable: true,
		Children: []models.QuoteLine{
			calcLine(11, `{"pickup_at":"2025-03-05 09:00:00"}`),
			{ID: 12, QuoteID: 1, Type: models.LineManual, Dispatchable: true},
			{ID: 13, QuoteID: 1, Type: models.LineCalculated, Dispatchable: false},
			nested,
		},
	}
	svc := testService(testOrder(group), map[int64]bool{})

	created, err := svc.Execute(7, 1)
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.Equal(t, int64(11), *created[0].QuoteLineID)
	require.Equal(t, int64(15), *created[1].QuoteLineID)
}

func TestExecuteSpawnedGroupSkippedAsUnit(t *testing.T) {
	group := models.QuoteLine{
		ID:           200,
		QuoteID:      1,
		Type:         models.LineGroup,
		Dispatchable: true,
		SourceData:   []byte(`{"start_date":"2025-06-01","end_date":"2025-06-05"}`),
	}
	svc := testService(testOrder(group, calcLine(101, ``)), map[int64]bool{200: true})

	created, err := svc.Execute(7, 1)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, int64(101), *created[0].QuoteLineID)
}

func TestExtractPickupFallbackChain(t *testing.T) {
	svc := SpawnService{Now: fixedNow}

	override := `{"pickup_at":"2025-03-05 09:30:00"}`
	quotePickup := time.Date(2025, 3, 2, 9, 0, 0, 0, time.Local)
	quote := models.Quote{PickupAt: &quotePickup}

	line := calcLine(1, override)
	o, err := line.Overrides()
	require.NoError(t, err)

	// Line override wins.
	got := svc.extractPickup(spawnCandidate{quote: quote, overrides: o})
	require.Equal(t, time.Date(2025, 3, 5, 9, 30, 0, 0, time.Local), got)

	// No override: quote default.
	got = svc.extractPickup(spawnCandidate{quote: quote})
	require.True(t, got.Equal(quotePickup))

	// Nothing anywhere: wall clock.
	got = svc.extractPickup(spawnCandidate{})
	require.Equal(t, fixedNow(), got)
}

func TestExecuteNoCandidatesReturnsEmpty(t *testing.T) {
	persisted := false
	svc := testService(testOrder(), map[int64]bool{})
	svc.Persist = func(ms []models.Mission) ([]models.Mission, error) {
		persisted = true
		return ms, nil
	}

	created, err := svc.Execute(7, 1)
	require.NoError(t, err)
	require.Empty(t, created)
	require.False(t, persisted, "writer must not run for an empty batch")
}
