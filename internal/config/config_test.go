package config

import (
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Setenv("AUTH_ALLOWED_EMAILS", " owner@example.com, ,ops@example.com ")
	t.Setenv("AUTH_INSTITUTION_DOMAIN", "@dtu.ac.in")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MongoDB.URI == "" || cfg.Redis.Host == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	if cfg.Auth.InstitutionDomain != "dtu.ac.in" {
		t.Fatalf("domain should be stored without @, got %q", cfg.Auth.InstitutionDomain)
	}
	if len(cfg.Auth.AllowedEmails) != 2 || cfg.Auth.AllowedEmails[1] != "ops@example.com" {
		t.Fatalf("unexpected allow-list: %v", cfg.Auth.AllowedEmails)
	}
	if cfg.Auth.MinPasswordLength != 6 {
		t.Fatalf("expected default min password length 6, got %d", cfg.Auth.MinPasswordLength)
	}
	if cfg.Cookie.Secret != "testsecret123456789012345678901234" {
		t.Fatalf("cookie secret should fall back to JWT_SECRET, got %q", cfg.Cookie.Secret)
	}
	if cfg.Auth.MaxStores != 10000 || cfg.RateLimit.IPBurst != 40 {
		t.Fatalf("unexpected store cap or ip burst: %d %d", cfg.Auth.MaxStores, cfg.RateLimit.IPBurst)
	}
	if cfg.Auth.SessionTTL != 7*24*time.Hour {
		t.Fatalf("unexpected session ttl: %v", cfg.Auth.SessionTTL)
	}
}

func TestSplitList(t *testing.T) {
	if got := splitList(""); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
	if got := splitList("a,b"); len(got) != 2 {
		t.Fatalf("expected two entries, got %v", got)
	}
}
