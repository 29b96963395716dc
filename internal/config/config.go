package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the exporter configuration
type Config struct {
	// IMAP settings
	IMAPHost     string
	IMAPPort     int
	IMAPUsername string
	IMAPPassword string

	// Mailbox settings
	Mailbox       string
	SubjectFilter string

	// Output settings
	CSVPath     string
	StatePath   string
	ArchivePath string

	LogLevel string
}

// LoadConfig loads configuration from environment variables. A .env file
// in the working directory is read first when present, so credentials can
// stay out of the shell environment.
func LoadConfig() (*Config, error) {
	// Best effort: a missing .env file just means the environment is
	// already populated.
	_ = godotenv.Load()

	cfg := &Config{
		IMAPHost:      getEnv("IMAP_HOST", "imap.mail.me.com"),
		IMAPPort:      getEnvInt("IMAP_PORT", 993),
		IMAPUsername:  getEnv("IMAP_USERNAME", ""),
		IMAPPassword:  getEnv("IMAP_PASSWORD", ""),
		Mailbox:       getEnv("MAILBOX", "INBOX/Grab"),
		SubjectFilter: getEnv("SUBJECT_FILTER", "Your Grab E-Receipt"),
		CSVPath:       getEnv("CSV_PATH", "data/grab_receipts.csv"),
		StatePath:     getEnv("STATE_PATH", "state/last_uid.txt"),
		ArchivePath:   getEnv("ARCHIVE_PATH", "data/receipts.db"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.IMAPHost == "" {
		return fmt.Errorf("IMAP_HOST is required")
	}
	if c.IMAPPort < 1 || c.IMAPPort > 65535 {
		return fmt.Errorf("invalid IMAP_PORT: %d", c.IMAPPort)
	}
	if c.IMAPUsername == "" {
		return fmt.Errorf("IMAP_USERNAME is required")
	}
	if c.IMAPPassword == "" {
		return fmt.Errorf("IMAP_PASSWORD is required")
	}
	if c.Mailbox == "" {
		return fmt.Errorf("MAILBOX is required")
	}
	if c.CSVPath == "" {
		return fmt.Errorf("CSV_PATH is required")
	}
	if c.StatePath == "" {
		return fmt.Errorf("STATE_PATH is required")
	}
	if c.ArchivePath == "" {
		return fmt.Errorf("ARCHIVE_PATH is required")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
