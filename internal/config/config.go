// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the settlement worker
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Chain         ChainConfig        `mapstructure:"chain"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Settlement    SettlementConfig   `mapstructure:"settlement"`
	Reconcile     ReconcileConfig    `mapstructure:"reconcile"`
	GasMonitor    GasMonitorConfig   `mapstructure:"gas_monitor"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Server        ServerConfig       `mapstructure:"server"`
	Scheduler     SchedulerConfig    `mapstructure:"scheduler"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	// JobsDisabled is the global kill switch for all background jobs
	JobsDisabled bool `mapstructure:"jobs_disabled"`
}

// ChainConfig contains blockchain connection configuration
type ChainConfig struct {
	NodeURL        string        `mapstructure:"node_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	BackupNodes    []string      `mapstructure:"backup_nodes"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	// LogChunkSize is the block-range size for paginated getLogs calls
	LogChunkSize uint64 `mapstructure:"log_chunk_size"`
}

// StorageConfig contains database configuration
type StorageConfig struct {
	Type             string        `mapstructure:"type"` // sqlite, postgres
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
	// TransactionTimeout bounds the settlement unit of work; generous because
	// one settlement may touch many holder rows
	TransactionTimeout time.Duration `mapstructure:"transaction_timeout"`
}

// SettlementConfig contains weekly payout configuration
type SettlementConfig struct {
	Season                string        `mapstructure:"season"`
	WeeklyAllocatedPoints float64       `mapstructure:"weekly_allocated_points"`
	NormalisationFactor   float64       `mapstructure:"normalisation_factor"`
	BuilderPoolShare      float64       `mapstructure:"builder_pool_share"`
	TopBuilders           int           `mapstructure:"top_builders"`
	WindowWeekday         int           `mapstructure:"window_weekday"` // 0=Sunday .. 6=Saturday
	WindowHours           int           `mapstructure:"window_hours"`
	TransactionTimeout    time.Duration `mapstructure:"transaction_timeout"`
}

// ReconcileConfig contains event reconciliation configuration
type ReconcileConfig struct {
	SeasonLaunchBlock uint64 `mapstructure:"season_launch_block"`
	// PriceDecimals is the number of base-unit decimals in on-chain purchase
	// prices
	PriceDecimals uint `mapstructure:"price_decimals"`
}

// PartnerConfig describes one reward-disbursing partner wallet
type PartnerConfig struct {
	Name          string `mapstructure:"name"`
	PrivateKey    string `mapstructure:"private_key"`
	TokenContract string `mapstructure:"token_contract"`
	TokenDecimals int    `mapstructure:"token_decimals"`
	TokenSymbol   string `mapstructure:"token_symbol"`
}

// GasMonitorConfig contains balance watchdog configuration
type GasMonitorConfig struct {
	Enabled  bool            `mapstructure:"enabled"`
	Partners []PartnerConfig `mapstructure:"partners"`
	AlertURL string          `mapstructure:"alert_url"`
}

// NotificationConfig contains notification system configuration
type NotificationConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	WebhookURL          string        `mapstructure:"webhook_url"`
	NotificationTimeout time.Duration `mapstructure:"notification_timeout"`
	RetryAttempts       int           `mapstructure:"retry_attempts"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"`
	EnableEmail         bool          `mapstructure:"enable_email"`
	SMTPHost            string        `mapstructure:"smtp_host"`
	SMTPPort            int           `mapstructure:"smtp_port"`
	SMTPUser            string        `mapstructure:"smtp_user"`
	SMTPPassword        string        `mapstructure:"smtp_password"`
	EmailFrom           string        `mapstructure:"email_from"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// SchedulerConfig contains in-process cron configuration
type SchedulerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	WeeklyPayoutSpec string `mapstructure:"weekly_payout_spec"`
	ReconcileSpec    string `mapstructure:"reconcile_spec"`
	BalanceCheckSpec string `mapstructure:"balance_check_spec"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./internal/config")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("SCOUT_WORKER")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override with environment variables if present
	if nodeURL := os.Getenv("CHAIN_NODE_URL"); nodeURL != "" {
		config.Chain.NodeURL = nodeURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Storage.ConnectionString = dbURL
	}
	if os.Getenv("JOBS_DISABLED") != "" {
		config.App.JobsDisabled = true
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "settlement-worker")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.jobs_disabled", false)

	// Chain defaults
	viper.SetDefault("chain.node_url", "https://mainnet.optimism.io")
	viper.SetDefault("chain.chain_id", 10)
	viper.SetDefault("chain.request_timeout", "30s")
	viper.SetDefault("chain.retry_attempts", 3)
	viper.SetDefault("chain.retry_delay", "5s")
	viper.SetDefault("chain.log_chunk_size", 900)

	// Storage defaults
	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.connection_string", "./data/settlement.db")
	viper.SetDefault("storage.max_connections", 25)
	viper.SetDefault("storage.max_idle_time", "15m")
	viper.SetDefault("storage.transaction_timeout", "100s")

	// Settlement defaults
	viper.SetDefault("settlement.weekly_allocated_points", 100000)
	viper.SetDefault("settlement.normalisation_factor", 1.0)
	viper.SetDefault("settlement.builder_pool_share", 0.30)
	viper.SetDefault("settlement.top_builders", 100)
	viper.SetDefault("settlement.window_weekday", 1) // Monday
	viper.SetDefault("settlement.window_hours", 3)
	viper.SetDefault("settlement.transaction_timeout", "100s")

	// Reconcile defaults
	viper.SetDefault("reconcile.season_launch_block", 0)
	viper.SetDefault("reconcile.price_decimals", 18)

	// Notification defaults
	viper.SetDefault("notifications.enabled", true)
	viper.SetDefault("notifications.notification_timeout", "30s")
	viper.SetDefault("notifications.retry_attempts", 3)
	viper.SetDefault("notifications.retry_delay", "10s")
	viper.SetDefault("notifications.enable_email", false)
	viper.SetDefault("notifications.smtp_port", 587)

	// Server defaults
	viper.SetDefault("server.port", 8081)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.enable_metrics", true)
	viper.SetDefault("server.enable_health", true)

	// Scheduler defaults
	viper.SetDefault("scheduler.enabled", false)
	// Must fire inside the default Monday 00:00-03:00 UTC settlement window
	viper.SetDefault("scheduler.weekly_payout_spec", "0 1 * * 1")
	viper.SetDefault("scheduler.reconcile_spec", "30 * * * *")
	viper.SetDefault("scheduler.balance_check_spec", "0 */6 * * *")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Chain.NodeURL == "" {
		return fmt.Errorf("chain node URL is required")
	}
	if c.Storage.ConnectionString == "" {
		return fmt.Errorf("storage connection string is required")
	}
	if c.Settlement.WeeklyAllocatedPoints <= 0 {
		return fmt.Errorf("weekly allocated points must be positive")
	}
	if c.Settlement.BuilderPoolShare < 0 || c.Settlement.BuilderPoolShare > 1 {
		return fmt.Errorf("builder pool share must be between 0 and 1")
	}
	if c.Settlement.WindowWeekday < 0 || c.Settlement.WindowWeekday > 6 {
		return fmt.Errorf("settlement window weekday must be between 0 and 6")
	}
	if c.Chain.LogChunkSize == 0 {
		return fmt.Errorf("chain log chunk size must be positive")
	}
	return nil
}
