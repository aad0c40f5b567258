package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	MarketDataConfig   MarketDataConfig   `json:"market_data"`
	EngineConfig       EngineConfig       `json:"engine"`
	SelectorConfig     SelectorConfig     `json:"selector"`
	BacktestConfig     BacktestConfig     `json:"backtest"`
	SchedulerConfig    SchedulerConfig    `json:"scheduler"`
	NotificationConfig NotificationConfig `json:"notification"`
	LoggingConfig      LoggingConfig      `json:"logging"`
	ServerConfig       ServerConfig       `json:"server"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
}

// MarketDataConfig selects the historical data source and the pair of
// symbols the engine tracks. Reference is the market-context series
// fed to the predictor alongside the primary.
type MarketDataConfig struct {
	BaseURL         string `json:"base_url"`
	PrimarySymbol   string `json:"primary_symbol"`
	ReferenceSymbol string `json:"reference_symbol"`
	Currency        string `json:"currency"`
	TimeoutSecs     int    `json:"timeout_secs"`
	MockMode        bool   `json:"mock_mode"` // Use simulated data when the provider is unavailable
	CacheTTLSecs    int    `json:"cache_ttl_secs"`
}

// EngineConfig holds the trade decision thresholds and cost model.
type EngineConfig struct {
	MinConfidence float64 `json:"min_confidence"` // Minimum predictor confidence to act (0-1)
	MaxATRRatio   float64 `json:"max_atr_ratio"`  // Skip trading when ATR/price exceeds this
	Slippage      float64 `json:"slippage"`       // Per-side slippage fraction
	Commission    float64 `json:"commission"`     // Flat fee per trade in quote currency
	MaxHoldDays   int     `json:"max_hold_days"`
}

// SelectorConfig holds the regime persistence guard settings.
type SelectorConfig struct {
	PersistenceTrades  int     `json:"persistence_trades"`
	PersistenceDays    int     `json:"persistence_days"`
	OverrideConfidence float64 `json:"override_confidence"`
	StaleTradeDays     int     `json:"stale_trade_days"`
}

// BacktestConfig holds the default simulation window.
type BacktestConfig struct {
	StartDaysAgo   int     `json:"start_days_ago"`
	EndDaysAgo     int     `json:"end_days_ago"`
	StepDays       int     `json:"step_days"`
	InitialCapital float64 `json:"initial_capital"`
}

// SchedulerConfig controls the live recommendation loop.
type SchedulerConfig struct {
	Enabled      bool   `json:"enabled"`
	CronSchedule string `json:"cron_schedule"` // e.g. "0 0 * * *" for daily at midnight
	HistoryDays  int    `json:"history_days"`  // Days of history fetched per tick
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Output     string `json:"output"`      // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"` // Output as JSON instead of console format
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`  // CORS allowed origins
	ReadTimeout     int    `json:"read_timeout"`     // Seconds
	WriteTimeout    int    `json:"write_timeout"`    // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"` // Seconds
}

// DatabaseConfig holds Postgres connection settings. Persistence is
// optional; with Enabled false, backtest results stay in memory only.
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	SSLMode  string `json:"ssl_mode"`
}

// ConnString builds a pgx-compatible connection string.
func (d *DatabaseConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// RedisConfig holds Redis configuration for market data caching
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Market data config
	cfg.MarketDataConfig.BaseURL = getEnvOrDefault("MARKET_DATA_BASE_URL", cfg.MarketDataConfig.BaseURL)
	if cfg.MarketDataConfig.BaseURL == "" {
		cfg.MarketDataConfig.BaseURL = "https://api.coingecko.com/api/v3"
	}
	cfg.MarketDataConfig.PrimarySymbol = getEnvOrDefault("MARKET_DATA_PRIMARY", defaultString(cfg.MarketDataConfig.PrimarySymbol, "ethereum"))
	cfg.MarketDataConfig.ReferenceSymbol = getEnvOrDefault("MARKET_DATA_REFERENCE", defaultString(cfg.MarketDataConfig.ReferenceSymbol, "bitcoin"))
	cfg.MarketDataConfig.Currency = getEnvOrDefault("MARKET_DATA_CURRENCY", defaultString(cfg.MarketDataConfig.Currency, "usd"))
	cfg.MarketDataConfig.TimeoutSecs = getEnvIntOrDefault("MARKET_DATA_TIMEOUT_SECS", defaultInt(cfg.MarketDataConfig.TimeoutSecs, 30))
	cfg.MarketDataConfig.MockMode = getEnvOrDefault("MOCK_MODE", "false") == "true"
	cfg.MarketDataConfig.CacheTTLSecs = getEnvIntOrDefault("MARKET_DATA_CACHE_TTL_SECS", defaultInt(cfg.MarketDataConfig.CacheTTLSecs, 300))

	// Engine config
	cfg.EngineConfig.MinConfidence = getEnvFloatOrDefault("ENGINE_MIN_CONFIDENCE", defaultFloat(cfg.EngineConfig.MinConfidence, 0.55))
	cfg.EngineConfig.MaxATRRatio = getEnvFloatOrDefault("ENGINE_MAX_ATR_RATIO", defaultFloat(cfg.EngineConfig.MaxATRRatio, 0.08))
	cfg.EngineConfig.Slippage = getEnvFloatOrDefault("ENGINE_SLIPPAGE", defaultFloat(cfg.EngineConfig.Slippage, 0.001))
	cfg.EngineConfig.Commission = getEnvFloatOrDefault("ENGINE_COMMISSION", defaultFloat(cfg.EngineConfig.Commission, 1.0))
	cfg.EngineConfig.MaxHoldDays = getEnvIntOrDefault("ENGINE_MAX_HOLD_DAYS", defaultInt(cfg.EngineConfig.MaxHoldDays, 12))

	// Selector config
	cfg.SelectorConfig.PersistenceTrades = getEnvIntOrDefault("SELECTOR_PERSISTENCE_TRADES", defaultInt(cfg.SelectorConfig.PersistenceTrades, 3))
	cfg.SelectorConfig.PersistenceDays = getEnvIntOrDefault("SELECTOR_PERSISTENCE_DAYS", defaultInt(cfg.SelectorConfig.PersistenceDays, 5))
	cfg.SelectorConfig.OverrideConfidence = getEnvFloatOrDefault("SELECTOR_OVERRIDE_CONFIDENCE", defaultFloat(cfg.SelectorConfig.OverrideConfidence, 0.80))
	cfg.SelectorConfig.StaleTradeDays = getEnvIntOrDefault("SELECTOR_STALE_TRADE_DAYS", defaultInt(cfg.SelectorConfig.StaleTradeDays, 10))

	// Backtest config
	cfg.BacktestConfig.StartDaysAgo = getEnvIntOrDefault("BACKTEST_START_DAYS_AGO", defaultInt(cfg.BacktestConfig.StartDaysAgo, 365))
	cfg.BacktestConfig.EndDaysAgo = getEnvIntOrDefault("BACKTEST_END_DAYS_AGO", cfg.BacktestConfig.EndDaysAgo)
	cfg.BacktestConfig.StepDays = getEnvIntOrDefault("BACKTEST_STEP_DAYS", defaultInt(cfg.BacktestConfig.StepDays, 1))
	cfg.BacktestConfig.InitialCapital = getEnvFloatOrDefault("BACKTEST_INITIAL_CAPITAL", defaultFloat(cfg.BacktestConfig.InitialCapital, 10000))

	// Scheduler config
	cfg.SchedulerConfig.Enabled = getEnvOrDefault("SCHEDULER_ENABLED", "true") == "true"
	cfg.SchedulerConfig.CronSchedule = getEnvOrDefault("SCHEDULER_CRON", defaultString(cfg.SchedulerConfig.CronSchedule, "5 0 * * *"))
	cfg.SchedulerConfig.HistoryDays = getEnvIntOrDefault("SCHEDULER_HISTORY_DAYS", defaultInt(cfg.SchedulerConfig.HistoryDays, 120))

	// Notification config
	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", "false") == "true"
	cfg.NotificationConfig.Telegram.Enabled = getEnvOrDefault("TELEGRAM_ENABLED", "false") == "true"
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.Enabled = getEnvOrDefault("DISCORD_ENABLED", "false") == "true"
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultString(cfg.LoggingConfig.Level, "info"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", defaultString(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"

	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", defaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", defaultString(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", defaultString(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", defaultInt(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", defaultInt(cfg.ServerConfig.WriteTimeout, 30))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", defaultInt(cfg.ServerConfig.ShutdownTimeout, 10))

	// Database config
	cfg.DatabaseConfig.Enabled = getEnvOrDefault("DATABASE_ENABLED", "false") == "true"
	cfg.DatabaseConfig.Host = getEnvOrDefault("DATABASE_HOST", defaultString(cfg.DatabaseConfig.Host, "localhost"))
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DATABASE_PORT", defaultInt(cfg.DatabaseConfig.Port, 5432))
	cfg.DatabaseConfig.User = getEnvOrDefault("DATABASE_USER", defaultString(cfg.DatabaseConfig.User, "postgres"))
	cfg.DatabaseConfig.Password = getEnvOrDefault("DATABASE_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Name = getEnvOrDefault("DATABASE_NAME", defaultString(cfg.DatabaseConfig.Name, "regime_bot"))
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DATABASE_SSL_MODE", defaultString(cfg.DatabaseConfig.SSLMode, "disable"))

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", "false") == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultString(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", defaultInt(cfg.RedisConfig.PoolSize, 10))
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func defaultFloat(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Config{
		MarketDataConfig: MarketDataConfig{
			BaseURL:         "https://api.coingecko.com/api/v3",
			PrimarySymbol:   "ethereum",
			ReferenceSymbol: "bitcoin",
			Currency:        "usd",
			TimeoutSecs:     30,
			CacheTTLSecs:    300,
		},
		EngineConfig: EngineConfig{
			MinConfidence: 0.55,
			MaxATRRatio:   0.08,
			Slippage:      0.001,
			Commission:    1.0,
			MaxHoldDays:   12,
		},
		SelectorConfig: SelectorConfig{
			PersistenceTrades:  3,
			PersistenceDays:    5,
			OverrideConfidence: 0.80,
			StaleTradeDays:     10,
		},
		BacktestConfig: BacktestConfig{
			StartDaysAgo:   365,
			EndDaysAgo:     0,
			StepDays:       1,
			InitialCapital: 10000,
		},
		SchedulerConfig: SchedulerConfig{
			Enabled:      true,
			CronSchedule: "5 0 * * *",
			HistoryDays:  120,
		},
		LoggingConfig: LoggingConfig{
			Level:      "info",
			Output:     "stdout",
			JSONFormat: true,
		},
		ServerConfig: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
