package stagez

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Log formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatPretty  = "pretty"
)

// EnvPrefix prefixes environment overrides, e.g. STAGEZ_LOG_LEVEL.
const EnvPrefix = "STAGEZ"

var validate = validator.New(validator.WithRequiredStructEnabled())

// StageConfig overrides a registered stage. A nil Priority keeps the
// registered priority.
type StageConfig struct {
	Name     Name `mapstructure:"name" yaml:"name" validate:"required"`
	Priority *int `mapstructure:"priority" yaml:"priority"`
	Disabled bool `mapstructure:"disabled" yaml:"disabled"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format  string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=json console pretty"`
	NoColor bool   `mapstructure:"no_color" yaml:"no_color"`
}

// ApplyDefaults applies default values to logging configuration.
func (c *LogConfig) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
}

// Config describes stage overrides for a pipeline plus logging settings.
//
//	name: simple-pipeline
//	log:
//	  level: debug
//	stages:
//	  - name: ToUpper
//	    priority: 5
//	  - name: Append(Friends)
//	    disabled: true
type Config struct {
	Name   Name          `mapstructure:"name" yaml:"name"`
	Stages []StageConfig `mapstructure:"stages" yaml:"stages" validate:"dive"`
	Log    LogConfig     `mapstructure:"log" yaml:"log"`
}

// ApplyDefaults applies default values to the configuration.
func (c *Config) ApplyDefaults() {
	c.Log.ApplyDefaults()
}

// Validate checks field constraints and rejects stages listed twice.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("stagez: invalid config: %w", err)
	}
	var result *multierror.Error
	seen := make(map[Name]struct{}, len(c.Stages))
	for _, s := range c.Stages {
		if _, ok := seen[s.Name]; ok {
			result = multierror.Append(result, fmt.Errorf("stagez: stage %q configured twice: %w", s.Name, ErrDuplicateName))
			continue
		}
		seen[s.Name] = struct{}{}
	}
	return result.ErrorOrNil()
}

// LoadConfig reads configuration from path (yaml, json or toml, by
// extension) with STAGEZ_* environment overrides. An empty path loads
// defaults and environment only.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("name", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", FormatConsole)
	v.SetDefault("log.no_color", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("stagez: reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("stagez: decoding config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewLogger builds a zerolog logger from configuration. A nil writer
// logs to stderr.
func NewLogger(cfg LogConfig, w io.Writer) zerolog.Logger {
	cfg.ApplyDefaults()
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if w == nil {
		w = os.Stderr
	}
	if cfg.Format == FormatConsole || cfg.Format == FormatPretty {
		w = zerolog.ConsoleWriter{Out: w, NoColor: cfg.NoColor, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Configure applies stage overrides from cfg as a single mutation. Every
// listed stage must be registered; unknown names are reported together and
// nothing is applied. A listed stage without Disabled is enabled.
func (p *Pipeline[T]) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Name != "" && cfg.Name != p.name {
		return fmt.Errorf("stagez: config for pipeline %q cannot configure %q", cfg.Name, p.name)
	}
	if len(cfg.Stages) == 0 {
		return nil
	}
	if p.closed.Load() {
		return p.fail("configure", KindStage, cfg.Stages[0].Name, ErrClosed)
	}

	p.mu.Lock()
	var result *multierror.Error
	for _, s := range cfg.Stages {
		if p.stages.index(s.Name) < 0 {
			result = multierror.Append(result, p.fail("configure", KindStage, s.Name, ErrNotFound))
		}
	}
	if result != nil {
		p.mu.Unlock()
		return result.ErrorOrNil()
	}

	updated := make([]StageInfo, 0, len(cfg.Stages))
	for _, s := range cfg.Stages {
		if s.Priority != nil {
			_ = p.stages.reprioritize(s.Name, *s.Priority) //nolint:errcheck
		}
		_ = p.stages.setEnabled(s.Name, !s.Disabled) //nolint:errcheck
		updated = append(updated, p.stages.stages[p.stages.index(s.Name)].info())
	}
	p.current.Store(nil)
	p.mu.Unlock()

	for _, info := range updated {
		p.log.Debug().Str("stage", info.Name).Int("priority", info.Priority).Bool("enabled", info.Enabled).Msg("stage configured")
		p.emit(PipelineEventStageUpdated, Event{Kind: KindStage, Name: info.Name, Priority: info.Priority, Enabled: info.Enabled})
	}
	return nil
}
