// Package config loads the connector settings from .env files, an optional
// config file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jira-connector/internal/connector"
	"jira-connector/internal/jira"
	"jira-connector/internal/scheduler"
	"jira-connector/internal/store"
	"jira-connector/internal/tagapi"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Jira      jira.Config
	TagAPI    tagapi.Config
	Connector connector.Config
	Scheduler scheduler.Config
	HTTPAddr  string
	DataPath  string
	StorePath string
}

var defaults = map[string]any{
	"JIRA_DB_DRIVER":               string(jira.MySQL),
	"TIMEZONE":                     "UTC",
	"TAG_UPSERT_PATH":              connector.DefaultTagUpsertPath,
	"TAG_UPSERT_BATCH_SIZE":        connector.DefaultUploadBatchSize,
	"API_BASE_URL":                 tagapi.DefaultBaseURL,
	"TAG_SCAN_INTERVAL_MINUTES":    5,
	"TAG_REFRESH_INTERVAL_MINUTES": 5,
	"MISSING_ISSUE_POLICY":         string(connector.PolicyStrict),
	"DELETE_ORPHAN_TAGS":           false,
	"WORKLOG_ID_BASE":              jira.DefaultWorklogIDBase,
	"WORKLOG_ID_STEP":              jira.DefaultWorklogIDStep,
	"HTTP_ADDR":                    ":8080",
}

// Load reads .env files next to the binary and in the working directory,
// then CONFIG_FILE if set, then the environment. Environment values win.
func Load() (*AppConfig, error) {
	exeDir := ""
	if exePath, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", file, err)
		}
		log.Debug().Str("path", file).Msg("Loaded configuration file")
	}

	cfg := FromViper(v, exeDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromViper maps the flat configuration keys onto AppConfig.
func FromViper(v *viper.Viper, exeDir string) *AppConfig {
	dataPath := v.GetString("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	refreshMinutes := v.GetInt("TAG_REFRESH_INTERVAL_MINUTES")

	return &AppConfig{
		Jira: jira.Config{
			Driver:        jira.Dialect(strings.ToLower(v.GetString("JIRA_DB_DRIVER"))),
			DSN:           v.GetString("JIRA_DB_DSN"),
			User:          v.GetString("JIRA_DB_USER"),
			Password:      v.GetString("JIRA_DB_PASSWORD"),
			Timezone:      v.GetString("TIMEZONE"),
			WorklogIDBase: v.GetInt64("WORKLOG_ID_BASE"),
			WorklogIDStep: v.GetInt64("WORKLOG_ID_STEP"),
		},
		TagAPI: tagapi.Config{
			BaseURL: v.GetString("API_BASE_URL"),
			APIKey:  v.GetString("API_KEY"),
		},
		Connector: connector.Config{
			TagUpsertPath:          v.GetString("TAG_UPSERT_PATH"),
			UploadBatchSize:        v.GetInt("TAG_UPSERT_BATCH_SIZE"),
			ProjectKeys:            ParseProjectKeys(v.GetString("PROJECT_KEYS_FILTER")),
			CallerKey:              v.GetString("CALLER_KEY"),
			RefreshIntervalMinutes: refreshMinutes,
			MissingIssuePolicy:     connector.MissingIssuePolicy(strings.ToLower(v.GetString("MISSING_ISSUE_POLICY"))),
			DeleteOrphanTags:       v.GetBool("DELETE_ORPHAN_TAGS"),
		},
		Scheduler: scheduler.Config{
			ScanInterval:    time.Duration(v.GetInt("TAG_SCAN_INTERVAL_MINUTES")) * time.Minute,
			RefreshInterval: time.Duration(refreshMinutes) * time.Minute,
		},
		HTTPAddr:  v.GetString("HTTP_ADDR"),
		DataPath:  dataPath,
		StorePath: filepath.Join(dataPath, store.FileName),
	}
}

// Validate reports every missing or malformed setting at once.
func (c *AppConfig) Validate() error {
	var errs []error

	switch c.Jira.Driver {
	case jira.MySQL, jira.Postgres, jira.SQLite:
	default:
		errs = append(errs, fmt.Errorf("JIRA_DB_DRIVER must be mysql, postgres or sqlite, got %q", c.Jira.Driver))
	}
	if c.Jira.DSN == "" {
		errs = append(errs, errors.New("JIRA_DB_DSN is required"))
	}
	if c.Jira.Timezone != "" {
		if _, err := time.LoadLocation(c.Jira.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("TIMEZONE %q is not a known zone", c.Jira.Timezone))
		}
	}
	if c.Jira.WorklogIDStep <= 0 {
		errs = append(errs, errors.New("WORKLOG_ID_STEP must be positive"))
	}
	if c.TagAPI.APIKey == "" {
		errs = append(errs, errors.New("API_KEY is required"))
	}
	if c.Connector.UploadBatchSize < connector.MinimumRefreshBatchSize {
		errs = append(errs, fmt.Errorf("TAG_UPSERT_BATCH_SIZE must be at least %d", connector.MinimumRefreshBatchSize))
	}
	switch c.Connector.MissingIssuePolicy {
	case connector.PolicyStrict, connector.PolicyLenient:
	default:
		errs = append(errs, fmt.Errorf("MISSING_ISSUE_POLICY must be strict or lenient, got %q", c.Connector.MissingIssuePolicy))
	}
	if c.Scheduler.ScanInterval <= 0 {
		errs = append(errs, errors.New("TAG_SCAN_INTERVAL_MINUTES must be positive"))
	}
	if c.Scheduler.RefreshInterval <= 0 {
		errs = append(errs, errors.New("TAG_REFRESH_INTERVAL_MINUTES must be positive"))
	}

	return errors.Join(errs...)
}

// ParseProjectKeys splits a comma separated list, dropping blanks.
func ParseProjectKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
