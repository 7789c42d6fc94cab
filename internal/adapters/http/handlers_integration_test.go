//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/parkit/internal/adapters/http"
	"github.com/samirrijal/parkit/internal/adapters/postgres"
	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/usecases"
	"github.com/samirrijal/parkit/internal/pkg/auth"
	"github.com/samirrijal/parkit/internal/pkg/config"
)

// setupTestDB connects to the test database. The schema must already be
// migrated with cmd/migrate.
func setupTestDB(t *testing.T) *postgres.DB {
	t.Setenv("PARKIT_AUTH_JWT_SECRET", string(testSecret))
	cfg, err := config.Load("parkit-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return db
}

// setupIntegrationApp wires the real attempt ledger behind mocked backend
// repositories.
func setupIntegrationApp(db *postgres.DB) *fiber.App {
	clock := func() time.Time { return time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC) }
	avail := usecases.NewAvailabilityService(&mockAvailabilityRepo{}, nil, 0, time.UTC).WithClock(clock)
	bookings := &mockBookingRepo{vehicles: []domain.Vehicle{{ID: "veh-1", Category: domain.VehicleCar}}}

	deps := &handler.Dependencies{
		Maps:         usecases.NewMapService(&mockPlaceRepo{}, nil, nil, nil, usecases.DefaultMapOptions()),
		Availability: avail,
		Bookings:     usecases.NewBookingService(avail, bookings, postgres.NewAttemptRepo(db), nil),
		Hosts:        usecases.NewHostService(&mockHostRepo{}, nil),
		Hub:          handler.NewAvailabilityHub(),
		Auth:         auth.NewVerifier(testSecret),
		DB:           db,
	}

	app := fiber.New()
	handler.SetupRoutes(app, deps)
	return app
}

// TestBookingAttempts_Integration submits bookings and reads them back from
// the ledger.
func TestBookingAttempts_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	app := setupIntegrationApp(db)
	user := "integ-" + time.Now().Format("20060102150405.000")
	tok := token(t, user)

	status, _ := doJSON(t, app, "POST", "/v1/bookings", tok, map[string]any{
		"locationId": "loc-1", "date": testDate, "vehicleId": "veh-1", "hours": []int{10, 11},
	})
	if status != 201 {
		t.Fatalf("expected 201, got %d", status)
	}
	status, _ = doJSON(t, app, "POST", "/v1/bookings", tok, map[string]any{
		"locationId": "loc-1", "date": testDate, "vehicleId": "veh-1", "hours": []int{10, 12},
	})
	if status != 422 {
		t.Fatalf("expected 422, got %d", status)
	}

	req := httptest.NewRequest("GET", "/v1/me/booking-attempts?limit=10", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.BookingAttempt `json:"data"`
		Pagination handler.Pagination      `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Pagination.Total != 2 {
		t.Fatalf("expected 2 attempts, got %d", result.Pagination.Total)
	}
	// Newest first
	if result.Data[0].Status != domain.AttemptRejected || result.Data[1].Status != domain.AttemptConfirmed {
		t.Errorf("unexpected statuses %s, %s", result.Data[0].Status, result.Data[1].Status)
	}
	if result.Data[1].BookingID != "bk-1" || result.Data[1].TotalPrice != 5 {
		t.Errorf("unexpected confirmed attempt %+v", result.Data[1])
	}
}
