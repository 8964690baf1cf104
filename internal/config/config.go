package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr      string
	PostgresDSN   string // empty selects the in-memory seat store
	MongoURI      string
	RedisAddr     string
	RabbitURL     string
	CredentialTTL time.Duration
	OTLPEndpoint  string
	SeatNos       []string // labels ensured to exist at startup
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	ttl, _ := time.ParseDuration(os.Getenv("CREDENTIAL_TTL"))
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return &Config{
		HTTPAddr:      addr,
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		MongoURI:      os.Getenv("MONGO_URI"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RabbitURL:     os.Getenv("RABBIT_URL"),
		CredentialTTL: ttl,
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SeatNos:       splitList(os.Getenv("SEAT_NOS")),
	}, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
