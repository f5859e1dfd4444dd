package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the display node
type Config struct {
	Node     NodeConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	Backend  BackendConfig
	Portal   PortalConfig
	I2C      I2CConfig
	LogLevel string
}

// NodeConfig identifies this node and locates its on-disk state
type NodeConfig struct {
	DeviceID    string
	ProfilePath string // YAML device profile (capability flags, geometry)
	PrefsDir    string // non-volatile preference records
}

// RedisConfig holds Redis-related configuration
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ConsumerGroup string
	ConsumerName  string
}

// MQTTConfig holds MQTT broker configuration. Credentials here are
// defaults; the connConfig preference record takes priority once saved.
type MQTTConfig struct {
	Broker   string
	Username string
	Password string
	TopicFmt string // payload topic, %s = device ID
}

// BackendConfig holds the backend WebSocket configuration
type BackendConfig struct {
	Host string
	Port int
}

// PortalConfig holds captive-portal onboarding configuration
type PortalConfig struct {
	Port       int
	SSIDPrefix string
}

// I2CConfig holds external I2C bridge configuration
type I2CConfig struct {
	SerialPort string // empty disables the serial bridge
	BaudRate   int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Node: NodeConfig{
			DeviceID:    getEnv("NODE_DEVICE_ID", ""),
			ProfilePath: getEnv("NODE_PROFILE_PATH", "/etc/junctionrelay/profile.yaml"),
			PrefsDir:    getEnv("NODE_PREFS_DIR", "/var/lib/junctionrelay"),
		},
		Redis: RedisConfig{
			Addr:          getRedisAddr(),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvAsInt("REDIS_DB", 0),
			ConsumerGroup: getEnv("REDIS_CONSUMER_GROUP", "display-nodes"),
			ConsumerName:  getEnv("REDIS_CONSUMER_NAME", ""),
		},
		MQTT: MQTTConfig{
			Broker:   getEnv("MQTT_BROKER", ""),
			Username: getEnv("MQTT_USERNAME", ""),
			Password: getEnv("MQTT_PASSWORD", ""),
			TopicFmt: getEnv("MQTT_TOPIC_FMT", "JunctionRelay/%s/payloads"),
		},
		Backend: BackendConfig{
			Host: getEnv("BACKEND_HOST", ""),
			Port: getEnvAsInt("BACKEND_PORT", 7180),
		},
		Portal: PortalConfig{
			Port:       getEnvAsInt("PORTAL_PORT", 8080),
			SSIDPrefix: getEnv("PORTAL_SSID_PREFIX", "JunctionRelay_"),
		},
		I2C: I2CConfig{
			SerialPort: getEnv("I2C_SERIAL_PORT", ""),
			BaudRate:   getEnvAsInt("I2C_BAUD_RATE", 115200),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// getRedisAddr resolves the Redis address from REDIS_URL (with or without
// the redis:// scheme) or REDIS_ADDR, defaulting to localhost.
func getRedisAddr() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return strings.TrimPrefix(url, "redis://")
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
