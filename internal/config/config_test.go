package config

import (
	"reflect"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{
		"MODE", "HTTP_ADDR", "DB_DRIVER", "DB_DSN",
		"ENABLE_GUEST_AUTH", "EXCLUDE_RECENT_WINDOW", "CORS_ORIGINS_OFFLINE",
	} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	if cfg.Mode != ModeOffline {
		t.Errorf("mode = %q, want offline", cfg.Mode)
	}
	if cfg.HTTPAddr != ":8080" || cfg.DBDriver != "sqlite" {
		t.Errorf("defaults: %+v", cfg)
	}
	if !cfg.EnableGuestAuth {
		t.Error("guest auth defaults on")
	}
	if cfg.ExcludeRecentWindow != 200 {
		t.Errorf("exclude window = %d, want 200", cfg.ExcludeRecentWindow)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("ENABLE_GUEST_AUTH", "false")
	t.Setenv("EXCLUDE_RECENT_WINDOW", "50")
	t.Setenv("CORS_ORIGINS_ONLINE", "https://a.example.com, https://b.example.com")

	cfg := FromEnv()
	if cfg.Mode != ModeOnline || cfg.HTTPAddr != ":9999" || cfg.DBDriver != "postgres" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.EnableGuestAuth {
		t.Error("guest auth = true, want false")
	}
	if cfg.ExcludeRecentWindow != 50 {
		t.Errorf("exclude window = %d, want 50", cfg.ExcludeRecentWindow)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(cfg.CORSOrigins(), want) {
		t.Errorf("online CORS origins = %v, want %v", cfg.CORSOrigins(), want)
	}
}

func TestEnvIntRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"lots", "-5", "1.5"} {
		t.Setenv("EXCLUDE_RECENT_WINDOW", bad)
		if got := FromEnv().ExcludeRecentWindow; got != 200 {
			t.Errorf("window %q = %d, want default 200", bad, got)
		}
	}
}
