package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DSN               string
	RedisURL          string
	JWTSecret         string
	Port              string
	Env               string
	NodeID            int64
	VerificationsFile string
	GeocoderURL       string
	MeiliURL          string
	MeiliKey          string
	AllowOrigins      []string
	TLSCert           string
	TLSKey            string
	RateLimit         int
	RateWindow        time.Duration
	OTelEndpoint      string
	OTelHeaders       string
	ServiceName       string
	ServiceVersion    string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

// optional returns the value of key or "" without failing.
func optional(key string) string {
	return os.Getenv(key)
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("env %s: %v", key, err)
	}
	return n
}

// Load reads the environment, after merging a .env file when present.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		DSN:               getenv("DATABASE_DSN", "proposals:proposals@tcp(127.0.0.1:3306)/proposals"),
		RedisURL:          getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:         getenv("JWT_SECRET", ""),
		Port:              getenv("PORT", "8080"),
		Env:               getenv("APP_ENV", "development"),
		NodeID:            int64(getenvInt("NODE_ID", 1)),
		VerificationsFile: getenv("VERIFICATIONS_FILE", "verifications.yaml"),
		GeocoderURL:       optional("GEOCODER_URL"),
		MeiliURL:          optional("MEILI_URL"),
		MeiliKey:          optional("MEILI_KEY"),
		AllowOrigins:      []string{getenv("CORS_ORIGIN", "http://localhost:3000")},
		TLSCert:           optional("TLS_CERT"),
		TLSKey:            optional("TLS_KEY"),
		RateLimit:         getenvInt("RATE_LIMIT", 30),
		RateWindow:        time.Duration(getenvInt("RATE_WINDOW_SECONDS", 60)) * time.Second,
		OTelEndpoint:      optional("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelHeaders:       optional("OTEL_EXPORTER_OTLP_HEADERS"),
		ServiceName:       getenv("OTEL_SERVICE_NAME", "proposals-api"),
		ServiceVersion:    getenv("OTEL_SERVICE_VERSION", "dev"),
	}
	return cfg
}
