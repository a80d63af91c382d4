package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Dataset sources.
const (
	DatasetSheets = "sheets"
	DatasetCSV    = "csv"
)

// Storage drivers.
const (
	StorageFile    = "file"
	StorageSQLite  = "sqlite"
	StorageMongoDB = "mongodb"
	StorageMemory  = "memory"
)

// Mail transports.
const (
	MailSMTP     = "smtp"
	MailSendGrid = "sendgrid"
)

// Config represents the full application configuration surface.
type Config struct {
	Server  ServerConfig
	Dataset DatasetConfig
	Sheets  SheetsConfig
	Storage StorageConfig
	MongoDB MongoDBConfig
	Mail    MailConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	Timezone string
	LogLevel string
}

// Location resolves the configured timezone, falling back to UTC.
func (c ServerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatasetConfig selects where site records are read from and how often the
// cached copy is refreshed.
type DatasetConfig struct {
	Source      string
	SheetRange  string
	CSVURL      string
	RefreshCron string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// StorageConfig selects the backend for the daily-limit map and the event logs.
type StorageConfig struct {
	Driver     string
	Dir        string
	SQLitePath string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// MailConfig holds notification transport credentials and the fixed recipient.
type MailConfig struct {
	Transport          string
	Address            string
	Password           string
	FromName           string
	SMTPHost           string
	SMTPPort           int
	SendGridAPIKey     string
	Recipient          string
	MaxAttachmentBytes int64
	Timeout            time.Duration
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	smtpPort, err := getenvInt("SMTP_PORT", 465)
	if err != nil {
		return nil, err
	}
	maxAttachment, err := getenvInt("MAX_ATTACHMENT_BYTES", 10<<20)
	if err != nil {
		return nil, err
	}
	mailTimeout, err := time.ParseDuration(getenvWithDefault("MAIL_TIMEOUT", "20s"))
	if err != nil {
		return nil, fmt.Errorf("MAIL_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			Timezone: getenvWithDefault("TIMEZONE", "Asia/Kolkata"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Dataset: DatasetConfig{
			Source:      strings.ToLower(getenvWithDefault("DATASET_SOURCE", DatasetCSV)),
			SheetRange:  getenvWithDefault("SITE_SHEET_RANGE", "Sheet1"),
			CSVURL:      os.Getenv("SITE_CSV_URL"),
			RefreshCron: getenvWithDefault("DATASET_REFRESH_CRON", "*/30 * * * *"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(getenvWithDefault("STORAGE_DRIVER", StorageFile)),
			Dir:        getenvWithDefault("STORAGE_DIR", "data"),
			SQLitePath: getenvWithDefault("SQLITE_PATH", "data/watermonitor.db"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "watermonitor"),
		},
		Mail: MailConfig{
			Transport:          strings.ToLower(getenvWithDefault("MAIL_TRANSPORT", MailSMTP)),
			Address:            os.Getenv("EMAIL_ADDRESS"),
			Password:           os.Getenv("EMAIL_PASSWORD"),
			FromName:           getenvWithDefault("EMAIL_FROM_NAME", "Water System Monitor"),
			SMTPHost:           getenvWithDefault("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:           smtpPort,
			SendGridAPIKey:     os.Getenv("SENDGRID_API_KEY"),
			Recipient:          os.Getenv("ALERT_RECIPIENT"),
			MaxAttachmentBytes: int64(maxAttachment),
			Timeout:            mailTimeout,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Server.Timezone != "" {
		if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
			return fmt.Errorf("TIMEZONE %q is invalid: %w", c.Server.Timezone, err)
		}
	}

	switch c.Dataset.Source {
	case DatasetSheets:
		if c.Sheets.CredentialsPath == "" {
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
		}
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
		}
		if c.Dataset.SheetRange == "" {
			return errors.New("SITE_SHEET_RANGE must not be empty")
		}
	case DatasetCSV:
		if c.Dataset.CSVURL == "" && c.Sheets.SpreadsheetID == "" {
			return errors.New("SITE_CSV_URL or GOOGLE_SHEET_DATABASE_ID must be provided")
		}
	default:
		return fmt.Errorf("unknown DATASET_SOURCE %q", c.Dataset.Source)
	}

	switch c.Storage.Driver {
	case StorageFile:
		if c.Storage.Dir == "" {
			return errors.New("STORAGE_DIR must not be empty")
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("SQLITE_PATH must not be empty")
		}
	case StorageMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Mail.Recipient == "" {
		return errors.New("ALERT_RECIPIENT must be provided")
	}

	if c.Mail.Address == "" {
		return errors.New("EMAIL_ADDRESS must be provided")
	}

	switch c.Mail.Transport {
	case MailSMTP:
		if c.Mail.Password == "" {
			return errors.New("EMAIL_PASSWORD must be provided")
		}
		if c.Mail.SMTPHost == "" {
			return errors.New("SMTP_HOST must not be empty")
		}
	case MailSendGrid:
		if c.Mail.SendGridAPIKey == "" {
			return errors.New("SENDGRID_API_KEY must be provided")
		}
	default:
		return fmt.Errorf("unknown MAIL_TRANSPORT %q", c.Mail.Transport)
	}

	if c.Mail.MaxAttachmentBytes <= 0 {
		return errors.New("MAX_ATTACHMENT_BYTES must be positive")
	}

	return nil
}

// SiteCSVURL returns the CSV export endpoint of the dataset.
func (c *Config) SiteCSVURL() string {
	if c.Dataset.CSVURL != "" {
		return c.Dataset.CSVURL
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:csv", c.Sheets.SpreadsheetID)
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
