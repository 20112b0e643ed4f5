// Package config loads fibstream's configuration from flags, FIBSTREAM_*
// environment variables, an optional .env file and an optional YAML file.
//
// Precedence, highest first: flags, environment, .env, config file, defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FIBSTREAM"

// Modes.
const (
	ModeStream = "stream"
	ModeSum    = "sum"
	ModeReplay = "replay"
)

// Config is the complete fibstream configuration.
type Config struct {
	// Limit is the number of terms beyond the seed; -1 is unbounded.
	Limit int64 `yaml:"limit" mapstructure:"limit" validate:"gte=-1"`
	// Take caps the number of elements consumed; -1 consumes everything.
	Take      int    `yaml:"take" mapstructure:"take" validate:"gte=-1"`
	Mode      string `yaml:"mode" mapstructure:"mode" validate:"oneof=stream sum replay"`
	Separator string `yaml:"separator" mapstructure:"separator"`
	// Interval paces output to at most one term per interval; 0 is unpaced.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
	// Store is a sqlite database path. Emitted terms are checkpointed there
	// in stream mode and read back in replay mode.
	Store string `yaml:"store" mapstructure:"store" validate:"required_if=Mode replay"`

	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=console json"`
}

// TelemetryConfig configures OpenTelemetry export. Export is off when
// Endpoint is empty.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure    bool   `yaml:"insecure" mapstructure:"insecure"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeStream
	}
	c.Log.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// ApplyDefaults fills unset fields.
func (c *LogConfig) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
}

// ApplyDefaults fills unset fields.
func (c *TelemetryConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks c against its struct tags and reports every invalid field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		if c.Mode == ModeSum && c.Take < 0 && c.Limit < 0 {
			return errors.New("invalid config: sum mode needs a bounded stream, set limit or take")
		}
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fieldName(fe), describe(fe)))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func fieldName(fe validator.FieldError) string {
	// Namespace is "Config.Log.Level"; drop the root type.
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("must be one of [%s] (got: %v)", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be at least %s (got: %v)", fe.Param(), fe.Value())
	case "required_if":
		return "is required in " + strings.TrimPrefix(fe.Param(), "Mode ") + " mode"
	case "hostname_port":
		return fmt.Sprintf("must be host:port (got: %v)", fe.Value())
	default:
		return "is invalid"
	}
}

// Options override where Load looks for its files.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Flags registers fibstream's flags on fs.
func Flags(fs *pflag.FlagSet) {
	fs.Int64("limit", -1, "terms computed beyond the seed (-1 = unbounded)")
	fs.Int("take", -1, "elements consumed before stopping (-1 = all)")
	fs.String("mode", ModeStream, "stream, sum or replay")
	fs.String("separator", "", "element printed between terms")
	fs.Duration("interval", 0, "minimum time between terms in stream and replay modes")
	fs.String("store", "", "sqlite database for checkpointed terms")
	fs.String("log-level", "info", "trace, debug, info, warn, error or disabled")
	fs.String("log-format", "console", "console or json")
	fs.String("otlp-endpoint", "", "OTLP/HTTP collector host:port; empty disables export")
	fs.Bool("otlp-insecure", false, "disable TLS for the OTLP exporter")
	fs.String("config", "", "YAML config file")
	fs.String("env-file", "", ".env file")
}

var flagKeys = map[string]string{
	"limit":         "limit",
	"take":          "take",
	"mode":          "mode",
	"separator":     "separator",
	"interval":      "interval",
	"store":         "store",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"otlp-endpoint": "telemetry.endpoint",
	"otlp-insecure": "telemetry.insecure",
}

// Load builds a Config from the parsed flag set fs. File locations come
// from opts, falling back to the --config and --env-file flags.
func Load(fs *pflag.FlagSet, opts Options) (*Config, error) {
	if opts.ConfigFile == "" {
		opts.ConfigFile, _ = fs.GetString("config")
	}
	if opts.EnvFile == "" {
		opts.EnvFile, _ = fs.GetString("env-file")
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees known keys; make the flagless ones known.
	v.SetDefault("telemetry.environment", "development")

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", opts.ConfigFile, err)
		}
	}

	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
