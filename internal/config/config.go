// Package config loads the engine configuration: .efiling/config.json in the
// working directory, then EFILING_* environment overrides (a .env file next
// to the config is honoured).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// DirName is the configuration directory inside a working directory.
const DirName = ".efiling"

// FileName is the configuration file inside DirName.
const FileName = "config.json"

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Staging dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Config represents the engine configuration
type Config struct {
	Version       string              `json:"version"`
	Store         StoreConfig         `json:"store"`
	Staging       StagingConfig       `json:"staging"`
	Lifecycle     LifecycleConfig     `json:"lifecycle"`
	Loader        LoaderConfig        `json:"loader"`
	Notifications NotificationsConfig `json:"notifications"`
	Schedule      ScheduleConfig      `json:"schedule"`
	Log           LogConfig           `json:"log"`
	MetricsAddr   string              `json:"metrics_addr,omitempty" validate:"omitempty,hostname_port"`
}

// StoreConfig selects the submission store.
type StoreConfig struct {
	Driver        string `json:"driver" validate:"oneof=sqlite mongo"`
	SQLitePath    string `json:"sqlite_path" validate:"required"`
	MongoURI      string `json:"mongo_uri,omitempty" validate:"required_if=Driver mongo"`
	MongoDatabase string `json:"mongo_database,omitempty" validate:"required_if=Driver mongo"`
}

// StagingConfig points at the FES staging database.
type StagingConfig struct {
	Dialect          string `json:"dialect" validate:"oneof=postgres sqlite"`
	DSN              string `json:"dsn" validate:"required"`
	AttachmentTypeID int    `json:"attachment_type_id" validate:"gte=1"`
}

// LifecycleConfig tunes the sweeps.
type LifecycleConfig struct {
	DelayedSubmissionThreshold Duration `json:"delayed_submission_threshold"`
	SweepLimit                 int      `json:"sweep_limit" validate:"gte=1"`
	MaxUpdateAttempts          int      `json:"max_update_attempts" validate:"gte=1,lte=20"`
}

// LoaderConfig configures the FES load.
type LoaderConfig struct {
	BatchNamePattern  string `json:"batch_name_pattern" validate:"required,contains=#"`
	BatchNameAlphabet string `json:"batch_name_alphabet" validate:"min=2"`
	BatchSuffixWidth  int    `json:"batch_suffix_width" validate:"gte=1,lte=18"`
	BarcodePattern    string `json:"barcode_pattern" validate:"required,contains=#"`
	BarcodeAlphabet   string `json:"barcode_alphabet" validate:"min=2"`
	ConvertedFilesDir string `json:"converted_files_dir" validate:"required"`
}

// NotificationsConfig names the internal recipients.
type NotificationsConfig struct {
	BusinessRecipient string `json:"business_recipient" validate:"omitempty,email"`
	SupportRecipient  string `json:"support_recipient" validate:"omitempty,email"`
	InternalRecipient string `json:"internal_recipient" validate:"omitempty,email"`
}

// ScheduleConfig holds the cron specs used by serve.
type ScheduleConfig struct {
	ProcessFiles       string `json:"process_files" validate:"required"`
	SubmitToFes        string `json:"submit_to_fes" validate:"required"`
	DelayedSubmissions string `json:"delayed_submissions" validate:"required"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level       string `json:"level" validate:"oneof=info verbose debug trace warn error"`
	Development bool   `json:"development"`
}

// Duration is a time.Duration written as a Go duration string in JSON.
type Duration struct {
	time.Duration
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns a configuration that runs locally out of dir/.efiling.
func Default(dir string) *Config {
	base := filepath.Join(dir, DirName)
	return &Config{
		Version: "1",
		Store: StoreConfig{
			Driver:     DriverSQLite,
			SQLitePath: filepath.Join(base, "efiling.db"),
		},
		Staging: StagingConfig{
			Dialect:          DialectSQLite,
			DSN:              filepath.Join(base, "staging.db"),
			AttachmentTypeID: 1,
		},
		Lifecycle: LifecycleConfig{
			DelayedSubmissionThreshold: Duration{24 * time.Hour},
			SweepLimit:                 50,
			MaxUpdateAttempts:          5,
		},
		Loader: LoaderConfig{
			BatchNamePattern:  "EW##",
			BatchNameAlphabet: "ABCDEFGHJKLMNPQRSTUVWXYZ",
			BatchSuffixWidth:  4,
			BarcodePattern:    "X#######",
			BarcodeAlphabet:   "0123456789",
			ConvertedFilesDir: filepath.Join(base, "converted"),
		},
		Schedule: ScheduleConfig{
			ProcessFiles:       "@every 1m",
			SubmitToFes:        "@every 5m",
			DelayedSubmissions: "0 8 * * *",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Path returns the config file path for dir.
func Path(dir string) string {
	return filepath.Join(dir, DirName, FileName)
}

// LoadConfig reads .efiling/config.json from dir, falling back to Default
// when the file does not exist, then applies environment overrides and
// validates the result.
func LoadConfig(dir string) (*Config, error) {
	cfg := Default(dir)

	data, err := os.ReadFile(Path(dir))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes config.json to dir
func SaveConfig(dir string, cfg *Config) error {
	cfgDir := filepath.Join(dir, DirName)
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s dir: %w", DirName, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(Path(dir), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

var validate = validator.New()

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Lifecycle.DelayedSubmissionThreshold.Duration <= 0 {
		return fmt.Errorf("invalid config: lifecycle.delayed_submission_threshold must be positive")
	}
	return nil
}

// envOverrides maps environment variables onto string settings.
func envOverrides(cfg *Config) map[string]*string {
	return map[string]*string{
		"EFILING_STORE_DRIVER":        &cfg.Store.Driver,
		"EFILING_SQLITE_PATH":         &cfg.Store.SQLitePath,
		"EFILING_MONGO_URI":           &cfg.Store.MongoURI,
		"EFILING_MONGO_DATABASE":      &cfg.Store.MongoDatabase,
		"EFILING_STAGING_DIALECT":     &cfg.Staging.Dialect,
		"EFILING_STAGING_DSN":         &cfg.Staging.DSN,
		"EFILING_CONVERTED_FILES_DIR": &cfg.Loader.ConvertedFilesDir,
		"EFILING_BUSINESS_EMAIL":      &cfg.Notifications.BusinessRecipient,
		"EFILING_SUPPORT_EMAIL":       &cfg.Notifications.SupportRecipient,
		"EFILING_INTERNAL_EMAIL":      &cfg.Notifications.InternalRecipient,
		"EFILING_LOG_LEVEL":           &cfg.Log.Level,
		"EFILING_METRICS_ADDR":        &cfg.MetricsAddr,
	}
}

func applyEnv(cfg *Config) error {
	for key, field := range envOverrides(cfg) {
		if v, ok := os.LookupEnv(key); ok {
			*field = v
		}
	}

	if v, ok := os.LookupEnv("EFILING_DELAYED_THRESHOLD"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid EFILING_DELAYED_THRESHOLD: %w", err)
		}
		cfg.Lifecycle.DelayedSubmissionThreshold = Duration{d}
	}
	if v, ok := os.LookupEnv("EFILING_SWEEP_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid EFILING_SWEEP_LIMIT: %w", err)
		}
		cfg.Lifecycle.SweepLimit = n
	}
	return nil
}
