package cli

import (
	"os"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	InitData  string
	DevID     string
	Event     string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("PULSE_SERVER", "http://localhost:8080"),
		InitData:  os.Getenv("PULSE_INIT_DATA"),
		DevID:     os.Getenv("PULSE_DEV_TELEGRAM_ID"),
		Event:     os.Getenv("PULSE_EVENT"),
		Output:    "text",
		Verbose:   false,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
