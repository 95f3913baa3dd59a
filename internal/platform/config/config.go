package config

import "os"

// Server captures process-level configuration. Values come from the
// environment with development defaults so main stays lean.
type Server struct {
	Addr          string
	JWTSigningKey string

	// StorageBackend selects the document store implementation:
	// "memory" (default), "postgres", or "redis".
	StorageBackend string
	PostgresDSN    string
	RedisAddr      string

	// MQTT bridge settings. An empty broker URL disables the bridge.
	MQTTBrokerURL   string
	MQTTTopicPrefix string

	UploadDir string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:            envOr("ALPHABASE_ADDR", ":8000"),
		JWTSigningKey:   envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		StorageBackend:  envOr("ALPHABASE_STORAGE", "memory"),
		PostgresDSN:     os.Getenv("ALPHABASE_POSTGRES_DSN"),
		RedisAddr:       envOr("ALPHABASE_REDIS_ADDR", "localhost:6379"),
		MQTTBrokerURL:   os.Getenv("ALPHABASE_MQTT_BROKER"),
		MQTTTopicPrefix: envOr("ALPHABASE_MQTT_PREFIX", "alphabase"),
		UploadDir:       envOr("ALPHABASE_UPLOAD_DIR", "./uploads"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
