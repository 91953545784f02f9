package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment
// variables or a .env file.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	CRM_API_KEY=sk_...
//	CRM_API_BASE_URL=https://api.twentycrm.com/rest
//	CRM_PAGE_SIZE=200
//	ROLLUP_CONFIG=[{"parentObject":"person",...}]
//	RUN_LOG_ENABLED=false
//	POSTGRES_HOST=localhost
type Config struct {
	Server   ServerConfig   // HTTP server configuration
	CRM      CRMConfig      // record-store API access
	Rollup   RollupConfig   // rollup engine settings
	RunLog   RunLogConfig   // optional execution audit log
	Postgres PostgresConfig // PostgreSQL connection for the run log
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string
}

// CRMConfig defines access to the record store's REST API.
//
// APIKey may be empty: the engine then treats every run as a clean noop
// ("feature disabled") rather than failing configuration load.
type CRMConfig struct {
	APIKey   string
	BaseURL  string
	PageSize int
}

// RollupConfig carries the optional serialized rollup-definition override.
// Empty means the built-in default configuration.
type RollupConfig struct {
	Override string
}

// RunLogConfig toggles persisting execution summaries to Postgres.
type RunLogConfig struct {
	Enabled bool
}

// PostgresConfig defines connection details for PostgreSQL, used only when
// the run log is enabled.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// AppConfig is the globally accessible configuration instance, populated
// once via LoadConfig().
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from a .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("CRM_API_KEY", "")
	viper.SetDefault("CRM_API_BASE_URL", "https://api.twentycrm.com/rest")
	viper.SetDefault("CRM_PAGE_SIZE", 200)

	viper.SetDefault("ROLLUP_CONFIG", "")

	viper.SetDefault("RUN_LOG_ENABLED", false)
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "rollupd")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		CRM: CRMConfig{
			APIKey:   viper.GetString("CRM_API_KEY"),
			BaseURL:  viper.GetString("CRM_API_BASE_URL"),
			PageSize: viper.GetInt("CRM_PAGE_SIZE"),
		},
		Rollup: RollupConfig{
			Override: viper.GetString("ROLLUP_CONFIG"),
		},
		RunLog: RunLogConfig{
			Enabled: viper.GetBool("RUN_LOG_ENABLED"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
	}

	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	validateConfig()
}

// validateConfig ensures required variables are present and terminates the
// application if they are missing. A missing CRM API key is deliberately
// not fatal: the engine reports it as a noop at run time.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.CRM.BaseURL == "" {
		missing = append(missing, "CRM_API_BASE_URL")
	}
	if AppConfig.RunLog.Enabled {
		if AppConfig.Postgres.Host == "" {
			missing = append(missing, "POSTGRES_HOST")
		}
		if AppConfig.Postgres.Port == 0 {
			missing = append(missing, "POSTGRES_PORT")
		}
		if AppConfig.Postgres.User == "" {
			missing = append(missing, "POSTGRES_USER")
		}
		if AppConfig.Postgres.DBName == "" {
			missing = append(missing, "POSTGRES_DB")
		}
	}

	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v\n", missing)
	}
}
