package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"

	FilesNone  = "none"
	FilesLocal = "local"
	FilesDrive = "drive"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Records
	DataBackend  string
	SQLiteDBPath string

	// AMQP ledger events; disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// SMTP reminders; disabled when SMTPHost is empty
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	// Attachments
	FilesBackend  string
	FilesLocalDir string
	FilesBaseURL  string

	// Google
	GoogleDriveFolderID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	GoogleSpreadsheetID      string
	GoogleHistorySheet       string

	// Jobs
	OverdueSchedule   string
	DashboardCacheTTL time.Duration

	// Default actor for requests without identity headers
	UserName  string
	UserEmail string
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/backoffice.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "backoffice"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_entries"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", ""),

		FilesBackend:  getEnv("FILES_BACKEND", FilesNone),
		FilesLocalDir: getEnv("FILES_LOCAL_DIR", "./data/files"),
		FilesBaseURL:  getEnv("FILES_BASE_URL", "/files"),

		GoogleDriveFolderID:      getEnv("GOOGLE_DRIVE_FOLDER_ID", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleHistorySheet:       getEnv("GOOGLE_HISTORY_SHEET", "History"),

		OverdueSchedule:   getEnv("OVERDUE_SCHEDULE", "@every 24h"),
		DashboardCacheTTL: getEnvDuration("DASHBOARD_CACHE_TTL", 5*time.Minute),

		UserName:  getEnv("USER_NAME", "Owner"),
		UserEmail: getEnv("USER_EMAIL", ""),
	}
}

// MailEnabled reports whether reminders can be delivered.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// HistoryMirrorEnabled reports whether ledger entries are mirrored to a sheet.
func (c *Config) HistoryMirrorEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// GoogleCredentials returns the service account key, preferring inline JSON
// over the key file.
func (c *Config) GoogleCredentials() ([]byte, error) {
	if c.GoogleServiceAccountJSON != "" {
		return []byte(c.GoogleServiceAccountJSON), nil
	}
	if c.GoogleServiceAccountFile == "" {
		return nil, fmt.Errorf("no Google service account configured")
	}
	b, err := os.ReadFile(c.GoogleServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureDir(filepath.Dir(c.SQLiteDBPath)); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create SQLite database directory: %v", err))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.MailEnabled() {
		if c.SMTPPort < 1 || c.SMTPPort > 65535 {
			errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
		}
		if c.MailFrom == "" {
			errors = append(errors, "MAIL_FROM is required when SMTP_HOST is set")
		}
	}

	validFiles := []string{FilesNone, FilesLocal, FilesDrive}
	if !slices.Contains(validFiles, c.FilesBackend) {
		errors = append(errors, fmt.Sprintf("invalid files backend '%s': must be one of %v", c.FilesBackend, validFiles))
	}
	if c.FilesBackend == FilesLocal && c.FilesLocalDir == "" {
		errors = append(errors, "FILES_LOCAL_DIR is required when using local files backend")
	}
	if c.FilesBackend == FilesDrive && c.GoogleDriveFolderID == "" {
		errors = append(errors, "GOOGLE_DRIVE_FOLDER_ID is required when using drive files backend")
	}

	if c.FilesBackend == FilesDrive || c.HistoryMirrorEnabled() {
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for Google integrations")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}
	if c.HistoryMirrorEnabled() && c.GoogleHistorySheet == "" {
		errors = append(errors, "GOOGLE_HISTORY_SHEET cannot be empty when GOOGLE_SPREADSHEET_ID is set")
	}

	if _, err := cron.ParseStandard(c.OverdueSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid overdue schedule '%s': %v", c.OverdueSchedule, err))
	}

	if c.DashboardCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid dashboard cache TTL %v: must not be negative", c.DashboardCacheTTL))
	} else if c.DashboardCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid dashboard cache TTL %v: must be at most 24 hours", c.DashboardCacheTTL))
	}

	if c.UserName == "" {
		errors = append(errors, "USER_NAME cannot be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%s: %w", dir, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
