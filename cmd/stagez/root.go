package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zoobzio/stagez"
	"github.com/zoobzio/stagez/examples/simple"
)

const (
	configFlag   = "config"
	envFileFlag  = "env-file"
	logLevelFlag = "log-level"
)

type rootOptions struct {
	configFile string
	envFile    string
	logLevel   string
}

// NewRootCommand builds the stagez CLI. Configuration is read from --config,
// then STAGEZ_* environment variables (optionally loaded from --env-file),
// then flags.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "stagez",
		Short: "Inspect and drive priority-ordered stage pipelines",
		Long: `stagez is a CLI for exploring the demo text pipeline.

It prints the resolved topology and pushes words through the pipeline,
applying stage overrides (priorities, disabled stages) from a config file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, configFlag, "", "path to a yaml, json or toml config file")
	flags.StringVar(&opts.envFile, envFileFlag, "", "path to a .env file with STAGEZ_* variables")
	flags.StringVar(&opts.logLevel, logLevelFlag, "", "override the configured log level")

	root.AddCommand(newDescribeCommand(opts))
	root.AddCommand(newRunCommand(opts))
	return root
}

// setup loads configuration and builds the configured demo pipeline.
func setup(cmd *cobra.Command, opts *rootOptions) (*stagez.Pipeline[*strings.Builder], zerolog.Logger, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("loading env file %s: %w", opts.envFile, err)
		}
	}

	cfg, err := stagez.LoadConfig(opts.configFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	logger := stagez.NewLogger(cfg.Log, cmd.ErrOrStderr())
	p, err := simple.New(stagez.WithLogger(logger))
	if err != nil {
		return nil, logger, err
	}
	if err := p.Configure(cfg); err != nil {
		_ = p.Close()
		return nil, logger, err
	}
	return p, logger, nil
}
