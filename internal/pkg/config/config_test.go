package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/parkit/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PARKIT_AUTH_JWT_SECRET", "test-secret")
	cfg, err := config.Load("parkit-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Map.Debounce != 500*time.Millisecond {
		t.Errorf("expected 500ms debounce, got %s", cfg.Map.Debounce)
	}
	if cfg.Map.RouteBufferKm != 2 || cfg.Map.RouteLimit != 50 {
		t.Errorf("unexpected route defaults: %+v", cfg.Map)
	}
	if cfg.Database.MaxConns != 10 || cfg.Database.ConnMaxLifetime != 30*time.Minute {
		t.Errorf("unexpected pool defaults: %+v", cfg.Database)
	}
	if cfg.Telemetry.ServiceName != "parkit-test" {
		t.Errorf("expected service name parkit-test, got %s", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PARKIT_BACKEND_BASE_URL", "https://api.parkit.example")
	t.Setenv("PARKIT_MAP_DEBOUNCE", "250ms")

	t.Setenv("PARKIT_AUTH_JWT_SECRET", "test-secret")
	cfg, err := config.Load("parkit-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://api.parkit.example" {
		t.Errorf("expected env base url, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Map.Debounce != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", cfg.Map.Debounce)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	t.Setenv("PARKIT_AUTH_JWT_SECRET", "test-secret")
	cfg, err := config.Load("parkit-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Server.Port = 0
	cfg.Backend.BaseURL = "not a url"
	cfg.Availability.Timezone = "Mars/Olympus"
	cfg.Auth.JWTSecret = ""

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "backend.base_url", "availability.timezone", "auth.jwt_secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got %v", want, err)
		}
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("PARKIT_AUTH_JWT_SECRET", "")
	if _, err := config.Load("parkit-test"); err == nil || !strings.Contains(err.Error(), "auth.jwt_secret") {
		t.Errorf("expected auth.jwt_secret error, got %v", err)
	}
}
