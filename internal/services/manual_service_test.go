package services

import (
	"testing"
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSpawnManualLineAlreadySpawned(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	expectLineWithQuote(mock)
	mock.ExpectQuery("SELECT 1 FROM missions").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	svc := ManualService{
		Orders:   repositories.OrderRepo{DB: db},
		Missions: repositories.MissionRepo{DB: db},
		Vehicles: repositories.VehicleCategoryRepo{DB: db},
	}
	_, err = svc.SpawnManual(ManualSpawnInput{
		QuoteLineID:       5,
		OrderID:           7,
		OrganizationID:    1,
		StartAt:           time.Date(2025, 3, 5, 9, 0, 0, 0, time.Local),
		VehicleCategoryID: 4,
	})
	if !domain.IsConflict(err) {
		t.Fatalf("expected Conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSpawnManualLineFromAnotherOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	expectLineWithQuote(mock)

	svc := ManualService{
		Orders:   repositories.OrderRepo{DB: db},
		Missions: repositories.MissionRepo{DB: db},
		Vehicles: repositories.VehicleCategoryRepo{DB: db},
	}
	_, err = svc.SpawnManual(ManualSpawnInput{
		QuoteLineID:       5,
		OrderID:           999, // line belongs to order 7
		OrganizationID:    1,
		StartAt:           time.Date(2025, 3, 5, 9, 0, 0, 0, time.Local),
		VehicleCategoryID: 4,
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected Validation, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSpawnManualCreatesOneMission(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	start := time.Date(2025, 3, 5, 9, 0, 0, 0, time.Local)

	expectLineWithQuote(mock)
	mock.ExpectQuery("SELECT 1 FROM missions").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectQuery("FROM vehicle_categories").WithArgs(int64(4), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name"}).
			AddRow(4, 1, "Berline"))
	mock.ExpectQuery("SELECT COUNT").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec("INSERT INTO missions").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery("FROM missions").WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "organization_id", "order_id", "quote_id", "quote_line_id",
			"day_index", "ref", "status", "start_at", "end_at",
			"is_internal", "source_data", "notes", "created_at",
		}).AddRow(42, 1, 7, 1, 5, 0, "ORD-2025-042-04", "PENDING", start, nil, false, `{"manual_spawn":true}`, "night pickup", start))

	svc := ManualService{
		Orders:   repositories.OrderRepo{DB: db},
		Missions: repositories.MissionRepo{DB: db},
		Vehicles: repositories.VehicleCategoryRepo{DB: db},
	}
	created, err := svc.SpawnManual(ManualSpawnInput{
		QuoteLineID:       5,
		OrderID:           7,
		OrganizationID:    1,
		StartAt:           start,
		VehicleCategoryID: 4,
		Notes:             "night pickup",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Sequenced after the order's 3 existing missions.
	if created.Ref != "ORD-2025-042-04" {
		t.Fatalf("wrong ref: %s", created.Ref)
	}
	if created.QuoteLineID == nil || *created.QuoteLineID != 5 {
		t.Fatalf("wrong quote line id: %v", created.QuoteLineID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateInternalRequiresAQuote(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM orders").WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "reference", "status"}).
			AddRow(7, 1, "ORD-2025-042", "draft"))
	mock.ExpectQuery("FROM quotes").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "trip_type"}))

	svc := ManualService{
		Orders:   repositories.OrderRepo{DB: db},
		Missions: repositories.MissionRepo{DB: db},
		Vehicles: repositories.VehicleCategoryRepo{DB: db},
	}
	_, err = svc.CreateInternal(InternalMissionInput{
		OrderID:        7,
		OrganizationID: 1,
		Label:          "Convoyage retour",
		StartAt:        time.Date(2025, 3, 5, 9, 0, 0, 0, time.Local),
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected Validation, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateInternalMissionHasNoLine(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	start := time.Date(2025, 3, 5, 9, 0, 0, 0, time.Local)

	mock.ExpectQuery("FROM orders").WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "reference", "status"}).
			AddRow(7, 1, "ORD-2025-042", "confirmed"))
	mock.ExpectQuery("FROM quotes").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "trip_type"}).
			AddRow(1, 7, "TRANSFER"))
	mock.ExpectQuery("SELECT COUNT").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO missions").
		WillReturnResult(sqlmock.NewResult(50, 1))
	mock.ExpectQuery("FROM missions").WithArgs(int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "organization_id", "order_id", "quote_id", "quote_line_id",
			"day_index", "ref", "status", "start_at", "end_at",
			"is_internal", "source_data", "notes", "created_at",
		}).AddRow(50, 1, 7, 1, nil, 0, "ORD-2025-042-01", "PENDING", start, nil, true, `{"label":"Convoyage retour"}`, "", start))

	svc := ManualService{
		Orders:   repositories.OrderRepo{DB: db},
		Missions: repositories.MissionRepo{DB: db},
		Vehicles: repositories.VehicleCategoryRepo{DB: db},
	}
	created, err := svc.CreateInternal(InternalMissionInput{
		OrderID:        7,
		OrganizationID: 1,
		Label:          "Convoyage retour",
		StartAt:        start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created.IsInternal {
		t.Fatalf("expected is_internal")
	}
	if created.QuoteLineID != nil {
		t.Fatalf("internal mission must have no quote line id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// expectLineWithQuote mocks OrderRepo.LineWithQuote: the line+order join
// followed by the quote load. Line 5 is MANUAL on quote 1 of order 7, org 1.
func expectLineWithQuote(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("FROM quote_lines l").WithArgs(int64(5), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"l_id", "quote_id", "parent_id", "type", "dispatchable",
			"sort_order", "label", "total_price", "source_data",
			"o_id", "organization_id", "reference", "status",
		}).AddRow(5, 1, nil, "MANUAL", true, 0, "Extra leg", 10000, nil, 7, 1, "ORD-2025-042", "draft"))
	mock.ExpectQuery("FROM quotes q").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_id", "trip_type", "pickup_at", "estimated_end_at",
			"pickup_address", "pickup_lat", "pickup_lng",
			"dropoff_address", "dropoff_lat", "dropoff_lng",
			"passenger_count", "luggage_count",
			"vehicle_category_id", "vc_name", "is_round_trip", "pricing_mode",
		}).AddRow(1, 7, "TRANSFER", nil, nil, "A", nil, nil, "B", nil, nil, 2, 1, nil, "", false, "FIXED"))
}
