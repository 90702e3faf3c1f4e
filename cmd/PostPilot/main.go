package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/postpilot/PostPilot/internal/api"
	"github.com/postpilot/PostPilot/internal/genai"
	"github.com/postpilot/PostPilot/internal/store"
	"github.com/postpilot/PostPilot/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for PostPilot state data
	DefaultStateDir = "/var/lib/postpilot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "postpilot.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Build module options
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags, config)
	apiOpts := buildAPIOptions(flags)

	// Start the service
	slog.Info("Bootstrapping PostPilot with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "api", len(apiOpts))
	if err := api.Run(storeOpts, genaiOpts, apiOpts); err != nil {
		slog.Error("PostPilot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("PostPilot exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseDSN   string
	StateDir      string
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAIProxy   string
	OpenAITimeout time.Duration
	APIAddr       string
	DebugEnabled  bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir  *string
	dbDSN     *string
	openaiKey *string
	baseURL   *string
	model     *string
	proxy     *string
	apiAddr   *string
}

// initializeLogger sets up structured logging at the level configured via
// POSTPILOT_LOG_LEVEL (debug, info, warn, error; default debug).
func initializeLogger() {
	level := slog.LevelDebug
	switch strings.ToLower(os.Getenv("POSTPILOT_LOG_LEVEL")) {
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		StateDir:      os.Getenv("POSTPILOT_STATE_DIR"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),
		OpenAIProxy:   os.Getenv("OPENAI_PROXY"),
		OpenAITimeout: util.ParseSecondsEnv("OPENAI_TIMEOUT_SECONDS", genai.DefaultTimeout),
		APIAddr:       os.Getenv("API_ADDR"),
		DebugEnabled:  util.ParseBoolEnv("POSTPILOT_DEBUG", false),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No POSTPILOT_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// Legacy DATABASE_URL support
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = os.Getenv("DATABASE_URL")
		if config.DatabaseDSN != "" {
			slog.Debug("Using DATABASE_URL as DATABASE_DSN", "dsn_set", true)
		}
	}

	// If no database DSN is provided, default to SQLite in the state directory
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseDSN)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_DSN_SET", config.DatabaseDSN != "",
		"POSTPILOT_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_BASE_URL", config.OpenAIBaseURL,
		"OPENAI_MODEL", config.OpenAIModel,
		"OPENAI_PROXY_SET", config.OpenAIProxy != "",
		"OPENAI_TIMEOUT", config.OpenAITimeout,
		"API_ADDR", config.APIAddr,
		"POSTPILOT_DEBUG", config.DebugEnabled)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:  flag.String("state-dir", config.StateDir, "state directory for PostPilot data (overrides $POSTPILOT_STATE_DIR)"),
		dbDSN:     flag.String("db-dsn", config.DatabaseDSN, "database DSN for the profile store (overrides $DATABASE_DSN or $DATABASE_URL)"),
		openaiKey: flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		baseURL:   flag.String("openai-base-url", config.OpenAIBaseURL, "completion endpoint base URL (overrides $OPENAI_BASE_URL)"),
		model:     flag.String("openai-model", config.OpenAIModel, "completion model identifier (overrides $OPENAI_MODEL)"),
		proxy:     flag.String("openai-proxy", config.OpenAIProxy, "outbound HTTP proxy for completion calls (overrides $OPENAI_PROXY)"),
		apiAddr:   flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"baseURL", *flags.baseURL,
		"model", *flags.model,
		"proxySet", *flags.proxy != "",
		"apiAddr", *flags.apiAddr)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseDSN && config.DatabaseDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	// Ensure state directory exists if we're using a file-based DSN
	if store.DetectDSNType(*flags.dbDSN) != "postgres" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql")
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs completion client configuration options
func buildGenAIOptions(flags Flags, config Config) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.baseURL != "" {
		genaiOpts = append(genaiOpts, genai.WithBaseURL(*flags.baseURL))
	}
	if *flags.model != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.model))
	}
	if *flags.proxy != "" {
		genaiOpts = append(genaiOpts, genai.WithProxy(*flags.proxy))
	}
	genaiOpts = append(genaiOpts, genai.WithTimeout(config.OpenAITimeout))
	if config.DebugEnabled {
		genaiOpts = append(genaiOpts, genai.WithDebugDir(*flags.stateDir))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
