// File: cmd/worker/main.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scoutgame/settlement-worker/internal/allocation"
	"github.com/scoutgame/settlement-worker/internal/config"
	"github.com/scoutgame/settlement-worker/internal/connection"
	"github.com/scoutgame/settlement-worker/internal/gasmonitor"
	"github.com/scoutgame/settlement-worker/internal/metrics"
	"github.com/scoutgame/settlement-worker/internal/notification"
	"github.com/scoutgame/settlement-worker/internal/ownership"
	"github.com/scoutgame/settlement-worker/internal/reconcile"
	"github.com/scoutgame/settlement-worker/internal/scheduler"
	"github.com/scoutgame/settlement-worker/internal/season"
	"github.com/scoutgame/settlement-worker/internal/server"
	"github.com/scoutgame/settlement-worker/internal/settlement"
	"github.com/scoutgame/settlement-worker/internal/storage"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// DefaultRankDecayRatio is the geometric decay ratio between consecutive
// leaderboard ranks
const DefaultRankDecayRatio = 0.85

// Application wires together all worker components
type Application struct {
	config      *config.Config
	registry    *connection.Registry
	storage     storage.Storage
	resolver    *ownership.Resolver
	reconciler  *reconcile.Reconciler
	settler     *settlement.Settler
	runner      *settlement.Runner
	monitor     *gasmonitor.Monitor
	server      *server.HTTPServer
	scheduler   *scheduler.Scheduler
	promMetrics *metrics.PrometheusMetrics
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	app := &Application{config: cfg}

	if err := app.initializeLogger(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := app.initializeComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}
	return app, nil
}

// initializeLogger initializes the application logger
func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging
	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return err
	}
	return nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	logger := utils.GetLogger()
	logger.Info("Initializing application components")

	app.promMetrics = metrics.NewPrometheusMetrics()

	// Connection registry, one manager per (season, chain)
	app.registry = connection.NewRegistry(&app.config.Chain)
	manager := app.registry.Manager(app.config.Settlement.Season, app.config.Chain.ChainID)
	manager.SetMetrics(app.promMetrics)

	// Storage
	store, err := storage.NewStorage(&storage.StorageConfig{
		Type:               app.config.Storage.Type,
		ConnectionString:   app.config.Storage.ConnectionString,
		MaxConnections:     app.config.Storage.MaxConnections,
		MaxIdleTime:        app.config.Storage.MaxIdleTime,
		TransactionTimeout: app.config.Storage.TransactionTimeout,
	})
	if err != nil {
		return err
	}
	if err := store.Connect(); err != nil {
		return err
	}
	if err := store.Migrate(); err != nil {
		return err
	}
	app.storage = storage.NewStorageWithMetrics(store, app.promMetrics)

	// Ownership resolver and event reconciler
	app.resolver = ownership.NewResolver(manager, app.storage, &ownership.ResolverConfig{
		LogChunkSize: app.config.Chain.LogChunkSize,
	})
	app.resolver.SetMetrics(app.promMetrics)
	app.reconciler = reconcile.NewReconciler(app.resolver, app.storage, &reconcile.Config{
		LaunchBlock:   app.config.Reconcile.SeasonLaunchBlock,
		PriceDecimals: app.config.Reconcile.PriceDecimals,
	})
	app.reconciler.SetMetrics(app.promMetrics)

	// Settlement
	policy := allocation.GeometricDecay(DefaultRankDecayRatio, app.config.Settlement.TopBuilders)
	app.settler = settlement.NewSettler(app.storage, app.resolver, policy, &settlement.Config{
		WeeklyAllocatedPoints: int64(app.config.Settlement.WeeklyAllocatedPoints),
		NormalisationFactor:   app.config.Settlement.NormalisationFactor,
		BuilderPoolShare:      app.config.Settlement.BuilderPoolShare,
		LaunchBlock:           app.config.Reconcile.SeasonLaunchBlock,
	})
	app.settler.SetMetrics(app.promMetrics)
	app.runner = settlement.NewRunner(app.storage, app.settler, app.resolver, &settlement.RunnerConfig{
		Season:      app.config.Settlement.Season,
		TopBuilders: app.config.Settlement.TopBuilders,
		Window: season.Window{
			Weekday: time.Weekday(app.config.Settlement.WindowWeekday),
			Hours:   app.config.Settlement.WindowHours,
		},
	})

	// Notifications
	if app.config.Notifications.Enabled {
		var webhook *notification.WebhookSender
		if app.config.Notifications.WebhookURL != "" {
			webhook = notification.NewWebhookSender(&notification.WebhookConfig{
				URL:           app.config.Notifications.WebhookURL,
				Timeout:       app.config.Notifications.NotificationTimeout,
				RetryAttempts: app.config.Notifications.RetryAttempts,
				RetryDelay:    app.config.Notifications.RetryDelay,
			})
		}
		var email *notification.EmailSender
		if app.config.Notifications.EnableEmail {
			email = notification.NewEmailSender(&notification.EmailConfig{
				SMTPHost:  app.config.Notifications.SMTPHost,
				SMTPPort:  app.config.Notifications.SMTPPort,
				Username:  app.config.Notifications.SMTPUser,
				Password:  app.config.Notifications.SMTPPassword,
				FromEmail: app.config.Notifications.EmailFrom,
			})
		}
		notifier := notification.NewManager(webhook, email)
		notifier.SetMetrics(app.promMetrics)
		app.runner.SetNotifier(notifier)
	}

	// Gas/balance monitor
	partners := make([]gasmonitor.PartnerConfig, 0, len(app.config.GasMonitor.Partners))
	for _, p := range app.config.GasMonitor.Partners {
		partners = append(partners, gasmonitor.PartnerConfig{
			Name:          p.Name,
			PrivateKey:    p.PrivateKey,
			TokenContract: p.TokenContract,
			TokenDecimals: uint(p.TokenDecimals),
		})
	}
	var alertSender gasmonitor.AlertSender
	if app.config.GasMonitor.AlertURL != "" {
		alertWebhook := notification.NewWebhookSender(&notification.WebhookConfig{
			URL: app.config.GasMonitor.AlertURL,
		})
		alertWebhook.SetMetrics(app.promMetrics)
		alertSender = alertWebhook
	}
	app.monitor = gasmonitor.NewMonitor(manager, app.storage, alertSender, partners)
	app.monitor.SetMetrics(app.promMetrics)

	// HTTP server
	app.server = server.NewHTTPServer(&server.ServerConfig{
		Port:          app.config.Server.Port,
		Host:          app.config.Server.Host,
		ReadTimeout:   app.config.Server.ReadTimeout,
		WriteTimeout:  app.config.Server.WriteTimeout,
		EnableMetrics: app.config.Server.EnableMetrics,
		EnableHealth:  app.config.Server.EnableHealth,
		JobsDisabled:  app.config.App.JobsDisabled,
		Season:        app.config.Settlement.Season,
		ChainID:       app.config.Chain.ChainID,
		LaunchBlock:   app.config.Reconcile.SeasonLaunchBlock,
	}, app.storage, app.runner, app.reconciler, app.monitor, app.resolver, app.promMetrics)

	// Optional in-process scheduler
	if app.config.Scheduler.Enabled {
		app.scheduler = scheduler.NewScheduler(&scheduler.Config{
			WeeklyPayoutSpec: app.config.Scheduler.WeeklyPayoutSpec,
			ReconcileSpec:    app.config.Scheduler.ReconcileSpec,
			BalanceCheckSpec: app.config.Scheduler.BalanceCheckSpec,
			Season:           app.config.Settlement.Season,
			Disabled:         app.config.App.JobsDisabled,
		}, app.runner, app.reconciler, app.monitor, app.promMetrics)
	}

	logger.Info("All components initialized successfully")
	return nil
}

// Start starts the application
func (app *Application) Start() error {
	logger := utils.GetLogger()

	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if app.scheduler != nil {
		if err := app.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	logger.WithField("version", AppVersion).Info("Settlement worker started")
	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() error {
	logger := utils.GetLogger()
	logger.Info("Stopping settlement worker")

	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			logger.WithError(err).Error("Failed to stop HTTP server")
		}
	}
	if app.storage != nil {
		if err := app.storage.Close(); err != nil {
			logger.WithError(err).Error("Failed to close storage")
		}
	}
	if app.registry != nil {
		if err := app.registry.Close(); err != nil {
			logger.WithError(err).Error("Failed to close connection registry")
		}
	}

	logger.Info("Settlement worker stopped")
	return nil
}

// CLI Commands

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "settlement-worker",
	Short:   "Scout game weekly settlement worker",
	Long:    `A background worker that reconciles on-chain NFT purchase events, settles weekly builder payouts, and monitors partner wallet balances.`,
	Version: AppVersion,
	RunE:    runWorker,
}

// runWorker is the main command to run the worker
func runWorker(cmd *cobra.Command, args []string) error {
	configPath := viper.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	<-signalChan
	fmt.Println("\nReceived shutdown signal, stopping application...")

	return app.Stop()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Settlement Worker %s\n", AppVersion)
	},
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("Chain node: %s\n", cfg.Chain.NodeURL)
		fmt.Printf("Database: %s\n", cfg.Storage.Type)
		fmt.Printf("Season: %s\n", cfg.Settlement.Season)
		return nil
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	configCmd.AddCommand(validateConfigCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
