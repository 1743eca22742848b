// Package config builds process configuration from the environment so main
// stays lean. Governance policy (exemptions, blocked countries, thresholds)
// is NOT here: it is storage-backed and read fresh on every decision.
package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level wiring for the server.
type Config struct {
	Addr          string
	PostgresURL   string
	RedisURL      string
	KafkaBrokers  []string
	AuditTopic    string
	GeoLookupURL  string
	JWTSigningKey string

	ProfileFetchTimeout time.Duration
	GeoLookupTimeout    time.Duration
	SweepInterval       time.Duration

	// Campaigns seeds the campaign directory: campaignID -> sector. The
	// authoritative catalog lives outside this service.
	Campaigns map[string]string
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:                envOr("WARDEN_ADDR", ":8080"),
		PostgresURL:         os.Getenv("WARDEN_POSTGRES_URL"),
		RedisURL:            os.Getenv("WARDEN_REDIS_URL"),
		AuditTopic:          envOr("WARDEN_AUDIT_TOPIC", "warden.audit"),
		GeoLookupURL:        os.Getenv("WARDEN_GEO_LOOKUP_URL"),
		JWTSigningKey:       envOr("WARDEN_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		ProfileFetchTimeout: durationOr("WARDEN_PROFILE_FETCH_TIMEOUT", 10*time.Second),
		GeoLookupTimeout:    durationOr("WARDEN_GEO_LOOKUP_TIMEOUT", 3*time.Second),
		SweepInterval:       durationOr("WARDEN_SWEEP_INTERVAL", 15*time.Minute),
	}

	if brokers := os.Getenv("WARDEN_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	// WARDEN_CAMPAIGNS is a comma list of campaignID=sector pairs.
	if seeds := os.Getenv("WARDEN_CAMPAIGNS"); seeds != "" {
		cfg.Campaigns = make(map[string]string)
		for _, pair := range strings.Split(seeds, ",") {
			id, sector, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if ok && id != "" && sector != "" {
				cfg.Campaigns[id] = sector
			}
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
