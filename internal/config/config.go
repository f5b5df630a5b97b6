package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // zone database for minimal containers

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "CALSHARE"

// Config is the runtime configuration of the calshare server.
type Config struct {
	ConfigFile string

	Listen         string
	AppOrigin      string
	JoinPathPrefix string
	Realm          string
	Timezone       string
	Location       *time.Location
	SeedFile       string

	Logging LoggingConfig
	NATS    NATSConfig
}

type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type NATSConfig struct {
	Enabled bool
	URL     string
	Subject string
}

// Flags returns the command line flags Load understands.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("calshare", pflag.ContinueOnError)
	fs.StringP("config", "c", "", "path to a YAML config file")
	fs.String("listen", "", "address to listen on")
	fs.String("seed", "", "YAML fixture with users, calendars and events")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.Bool("nats", false, "publish change notifications to NATS")
	return fs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("app_origin", "http://localhost:5173")
	v.SetDefault("join_path_prefix", "/api/join/")
	v.SetDefault("realm", "calshare")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("seed_file", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.subject", "calshare.changes")
}

// Load merges defaults, the optional config file, CALSHARE_* environment
// variables and flags, in increasing order of precedence. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("config_file", envPrefix+"_CONFIG")

	if fs != nil {
		bindings := map[string]string{
			"config_file":   "config",
			"listen":        "listen",
			"seed_file":     "seed",
			"logging.level": "log-level",
			"nats.enabled":  "nats",
		}
		for key, flag := range bindings {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}

	configFile := strings.TrimSpace(v.GetString("config_file"))
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		ConfigFile:     configFile,
		Listen:         strings.TrimSpace(v.GetString("listen")),
		AppOrigin:      strings.TrimRight(strings.TrimSpace(v.GetString("app_origin")), "/"),
		JoinPathPrefix: strings.TrimSpace(v.GetString("join_path_prefix")),
		Realm:          strings.TrimSpace(v.GetString("realm")),
		Timezone:       strings.TrimSpace(v.GetString("timezone")),
		SeedFile:       strings.TrimSpace(v.GetString("seed_file")),
		Logging: LoggingConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString("logging.level"))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString("logging.format"))),
		},
		NATS: NATSConfig{
			Enabled: v.GetBool("nats.enabled"),
			URL:     strings.TrimSpace(v.GetString("nats.url")),
			Subject: strings.TrimSpace(v.GetString("nats.subject")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}

	origin, err := url.Parse(c.AppOrigin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return fmt.Errorf("app_origin %q must be an absolute URL", c.AppOrigin)
	}

	if !strings.HasPrefix(c.JoinPathPrefix, "/") {
		return fmt.Errorf("join_path_prefix %q must start with /", c.JoinPathPrefix)
	}
	if !strings.HasSuffix(c.JoinPathPrefix, "/") {
		c.JoinPathPrefix += "/"
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}

	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return errors.New("nats.url is required when nats is enabled")
		}
		if c.NATS.Subject == "" {
			return errors.New("nats.subject is required when nats is enabled")
		}
	}
	return nil
}
