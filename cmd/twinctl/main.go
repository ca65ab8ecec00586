package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iotp2c/ditto-twin/internal/utils"
	"github.com/iotp2c/ditto-twin/pkg/file"
)

var (
	configFile string
	logLevel   string

	config *utils.Config
	log    zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "twinctl",
	Short: "Provision Eclipse Ditto digital twins for MQTT devices",
	Long: "twinctl creates the Ditto policy, twin and mutual-TLS MQTT connection of a device, " +
		"manages the broker certificate authority and simulates device telemetry.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize(cmd.Flags().Changed("config"))
	},
}

// initialize loads the configuration and sets up the logger. The default
// config path may be missing; a path given with --config must exist.
func initialize(configRequired bool) error {
	var err error
	config, err = utils.ResolveConfig(configFile, configRequired, file.NewFileService())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	log, err = setupLogger(config)
	return err
}

func setupLogger(config *utils.Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(config.Logging.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", config.Logging.Level, err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(os.Stdout)
	if config.Logging.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "configs/config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	setupCommands()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
