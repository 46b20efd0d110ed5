// Package cli implements the stagerank command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	service "github.com/okian/stagerank/internal/app"
	"github.com/okian/stagerank/internal/adapters/source/cache"
	"github.com/okian/stagerank/internal/adapters/source/fetch"
	"github.com/okian/stagerank/internal/config"
	"github.com/okian/stagerank/pkg/logger"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "stagerank",
	Short: "Stage results and rankings for practical shooting matches",
	Long: `stagerank ingests published match result pages, stores one record per
competitor and stage, and derives stage points, percentages and ranks per class.

Run "stagerank serve" for the HTTP API, or query a results page directly with
"stagerank classes", "stagerank competitors" and "stagerank stages".`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Init()
	},
}

// Execute runs the root command. Logs go to stderr so command output on
// stdout stays machine readable.
func Execute() {
	logger.SetOutput(os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $STAGERANK_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "loglevel", "l", "", "Set log level, overriding the config. Available: debug, info, warn, error")
}

// loadConfig loads the configuration and applies the log level.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

// newService builds a service from cfg. extra options are applied last.
func newService(cfg *config.Config, extra ...service.Option) (*service.Service, error) {
	log := logger.Get()
	opts := []service.Option{
		service.WithLogger(log),
		service.WithFetcher(fetch.NewHTTPFetcher(
			fetch.WithUserAgent(cfg.UserAgent),
			fetch.WithTimeout(cfg.FetchTimeout()),
			fetch.WithRetryMax(cfg.FetchRetryMax),
			fetch.WithLogger(log),
		)),
		service.WithCache(cache.New(cache.WithCooldown(cfg.FetchCooldown()))),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
	}
	if cfg.SourcePattern != "" {
		re, err := regexp.Compile(cfg.SourcePattern)
		if err != nil {
			return nil, fmt.Errorf("source_pattern: %w", err)
		}
		opts = append(opts, service.WithAllowPattern(re))
	}
	return service.New(append(opts, extra...)...), nil
}
