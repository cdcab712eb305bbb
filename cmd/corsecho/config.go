package main

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/jub0bs/corsrw"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"sigs.k8s.io/yaml"
)

// Config is the configuration of corsecho.
type Config struct {
	Address        string `json:"address"`
	MetricsAddress string `json:"metricsAddress"` // empty disables metrics
	LogLevel       string `json:"logLevel"`
	LogFormat      string `json:"logFormat"` // text | json
	Debug          bool   `json:"debug"`

	CORS corsrw.Config `json:"cors"`
	// Origins that match any of these regular expressions are granted
	// access, in addition to those that CORS grants access to.
	OriginRegexps []string `json:"originRegexps"`
}

func defaultConfig() Config {
	return Config{
		Address:        ":8080",
		MetricsAddress: ":9090",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

const (
	flagConfigFile     = "config-file"
	flagAddress        = "address"
	flagMetricsAddress = "metrics-address"
	flagLogLevel       = "log-level"
	flagLogFormat      = "log-format"
	flagDebug          = "debug"
	flagAllowAll       = "allow-all"
	flagOrigin         = "origin"
	flagOriginPattern  = "origin-pattern"
	flagOriginRegexp   = "origin-regexp"
	flagMethod         = "method"
	flagRequestHeader  = "request-header"
	flagMaxAge         = "max-age"
)

// newCommand returns the corsecho command, which calls action with the
// resulting configuration.
func newCommand(action func(context.Context, Config) error) *cli.Command {
	return &cli.Command{
		Name:  "corsecho",
		Usage: "Serve a JSON document behind a CORS middleware",
		Flags: flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			return action(ctx, cfg)
		},
	}
}

func flags() []cli.Flag {
	return []cli.Flag{

		// ── Server ────────────────────────────────────────────────
		&cli.StringFlag{
			Name:     flagConfigFile,
			Category: "Server:",
			Sources:  cli.EnvVars("CORSECHO_CONFIG_FILE"),
			Usage:    "YAML configuration file; flags override its settings",
		},
		&cli.StringFlag{
			Name:     flagAddress,
			Category: "Server:",
			Sources:  cli.EnvVars("CORSECHO_ADDRESS"),
			Usage:    "listen address (default \":8080\")",
		},
		&cli.StringFlag{
			Name:     flagMetricsAddress,
			Category: "Server:",
			Sources:  cli.EnvVars("CORSECHO_METRICS_ADDRESS"),
			Usage:    "listen address of the Prometheus endpoint; empty disables it (default \":9090\")",
		},

		// ── Logging ───────────────────────────────────────────────
		&cli.StringFlag{
			Name:     flagLogLevel,
			Category: "Logging:",
			Sources:  cli.EnvVars("CORSECHO_LOG_LEVEL"),
			Usage:    "log level: panic, fatal, error, warn, info, debug, or trace (default \"info\")",
		},
		&cli.StringFlag{
			Name:     flagLogFormat,
			Category: "Logging:",
			Sources:  cli.EnvVars("CORSECHO_LOG_FORMAT"),
			Usage:    "log format: text or json (default \"text\")",
		},
		&cli.BoolFlag{
			Name:     flagDebug,
			Category: "Logging:",
			Sources:  cli.EnvVars("CORSECHO_DEBUG"),
			Usage:    "log every CORS decision (requires log level debug)",
		},

		// ── CORS ──────────────────────────────────────────────────
		&cli.BoolFlag{
			Name:     flagAllowAll,
			Category: "CORS:",
			Sources:  cli.EnvVars("CORSECHO_ALLOW_ALL"),
			Usage:    "grant access to all origins",
		},
		&cli.StringSliceFlag{
			Name:     flagOrigin,
			Category: "CORS:",
			Sources:  cli.EnvVars("CORSECHO_ORIGINS"),
			Usage:    "exact origin to grant access to (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:     flagOriginPattern,
			Category: "CORS:",
			Sources:  cli.EnvVars("CORSECHO_ORIGIN_PATTERNS"),
			Usage:    "shell-style origin pattern to grant access to, e.g. https://*.example.com (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:     flagOriginRegexp,
			Category: "CORS:",
			Sources:  cli.EnvVars("CORSECHO_ORIGIN_REGEXPS"),
			Usage:    "regular expression of origins to grant access to (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:     flagMethod,
			Category: "CORS:",
			Sources:  cli.EnvVars("CORSECHO_METHODS"),
			Usage:    "method listed in Access-Control-Allow-Methods (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:     flagRequestHeader,
			Category: "CORS:",
			Sources:  cli.EnvVars("CORSECHO_REQUEST_HEADERS"),
			Usage:    "header name listed in Access-Control-Allow-Headers (repeatable)",
		},
		&cli.IntFlag{
			Name:     flagMaxAge,
			Category: "CORS:",
			Sources:  cli.EnvVars("CORSECHO_MAX_AGE"),
			Usage:    "value of Access-Control-Max-Age in seconds; 0 omits the header",
		},
	}
}

// configFromCommand builds a Config from the defaults, then the
// configuration file (if any), then the flags that were set.
func configFromCommand(cmd *cli.Command) (Config, error) {
	cfg := defaultConfig()
	if path := cmd.String(flagConfigFile); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if cmd.IsSet(flagAddress) {
		cfg.Address = cmd.String(flagAddress)
	}
	if cmd.IsSet(flagMetricsAddress) {
		cfg.MetricsAddress = cmd.String(flagMetricsAddress)
	}
	if cmd.IsSet(flagLogLevel) {
		cfg.LogLevel = cmd.String(flagLogLevel)
	}
	if cmd.IsSet(flagLogFormat) {
		cfg.LogFormat = cmd.String(flagLogFormat)
	}
	if cmd.IsSet(flagDebug) {
		cfg.Debug = cmd.Bool(flagDebug)
	}
	if cmd.IsSet(flagAllowAll) {
		cfg.CORS.AllowAll = cmd.Bool(flagAllowAll)
	}
	if cmd.IsSet(flagOrigin) {
		cfg.CORS.Origins = cmd.StringSlice(flagOrigin)
	}
	if cmd.IsSet(flagOriginPattern) {
		cfg.CORS.OriginPatterns = cmd.StringSlice(flagOriginPattern)
	}
	if cmd.IsSet(flagOriginRegexp) {
		cfg.OriginRegexps = cmd.StringSlice(flagOriginRegexp)
	}
	if cmd.IsSet(flagMethod) {
		cfg.CORS.Methods = cmd.StringSlice(flagMethod)
	}
	if cmd.IsSet(flagRequestHeader) {
		cfg.CORS.RequestHeaders = cmd.StringSlice(flagRequestHeader)
	}
	if cmd.IsSet(flagMaxAge) {
		cfg.CORS.MaxAgeInSeconds = int(cmd.Int(flagMaxAge))
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("invalid config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("unmarshalling config file error: %w", err)
	}
	return nil
}

func (c *Config) newLogger() (*log.Logger, error) {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := log.New()
	logger.SetLevel(level)
	switch c.LogFormat {
	case "text":
		logger.SetFormatter(&log.TextFormatter{})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	return logger, nil
}

// originPredicate returns a predicate that grants access to the origins
// that match some of c.OriginRegexps, or nil if there are none.
func (c *Config) originPredicate() (corsrw.Predicate, error) {
	if len(c.OriginRegexps) == 0 {
		return nil, nil
	}
	rxs := make([]*regexp.Regexp, 0, len(c.OriginRegexps))
	for _, s := range c.OriginRegexps {
		rx, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("invalid origin regexp %q: %w", s, err)
		}
		rxs = append(rxs, rx)
	}
	pred := func(origin string) bool {
		for _, rx := range rxs {
			if rx.MatchString(origin) {
				return true
			}
		}
		return false
	}
	return corsrw.Sync(pred), nil
}
