// Package config reads process settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds the server settings.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	TickInterval      time.Duration
	MobilizationDelay time.Duration
	ArrivalKm         float64
	RiderLat          float64
	RiderLon          float64

	MongoURI string
	MongoDB  string

	RedisURL      string
	CheckpointKey string

	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string

	RateLimitRequests      int
	RateLimitWindowSeconds int
}

// Load reads path into the environment when it exists and builds a Config.
// Variables already set in the environment win over the file.
func Load(path string) Config {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			log.WithError(err).WithField("path", path).Warn("Failed to load env file")
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables and defaults.
func FromEnv() Config {
	return Config{
		Port:      GetEnv("PORT", "8080"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogFormat: GetEnv("LOG_FORMAT", "text"),

		TickInterval:      GetEnvAsSeconds("SIM_TICK_SECONDS", 2*time.Second),
		MobilizationDelay: GetEnvAsSeconds("SIM_MOBILIZATION_SECONDS", 8*time.Second),
		ArrivalKm:         GetEnvAsFloat("SIM_ARRIVAL_KM", 0.2),
		// Bengaluru city centre; used when the rider has not reported a position.
		RiderLat: GetEnvAsFloat("RIDER_LAT", 12.9716),
		RiderLon: GetEnvAsFloat("RIDER_LON", 77.5946),

		MongoURI: GetEnv("MONGO_URI", ""),
		MongoDB:  GetEnv("MONGO_DB", "ambulance"),

		RedisURL:      GetEnv("REDIS_URL", ""),
		CheckpointKey: GetEnv("CHECKPOINT_KEY", "ambulance:fleet:snapshot"),

		MQTTBroker:      GetEnv("MQTT_BROKER", ""),
		MQTTClientID:    GetEnv("MQTT_CLIENT_ID", "ambulance-tracker"),
		MQTTTopicPrefix: GetEnv("MQTT_TOPIC_PREFIX", "ambulance"),

		RateLimitRequests:      GetEnvAsInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindowSeconds: GetEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
	}
}

// GetEnv returns the value of key or defaultValue when unset.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": v, "default": defaultValue}).Warn("Invalid integer, using default")
		return defaultValue
	}
	return n
}

func GetEnvAsFloat(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": v, "default": defaultValue}).Warn("Invalid float, using default")
		return defaultValue
	}
	return f
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": v, "default": defaultValue}).Warn("Invalid boolean, using default")
		return defaultValue
	}
	return b
}

// GetEnvAsSeconds reads a whole or fractional number of seconds. Values that
// are not positive fall back to defaultValue.
func GetEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	secs := GetEnvAsFloat(key, -1)
	if secs <= 0 {
		return defaultValue
	}
	return time.Duration(secs * float64(time.Second))
}
