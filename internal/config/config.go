package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Match   MatchConfig   `yaml:"match" mapstructure:"match"`
	Profile ProfileConfig `yaml:"profile" mapstructure:"profile"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// MatchConfig configures the matching engine.
type MatchConfig struct {
	Strategy           string `yaml:"strategy" mapstructure:"strategy"`
	ContinueOnError    bool   `yaml:"continue_on_error" mapstructure:"continue_on_error"`
	FacilityTable      string `yaml:"facility_table" mapstructure:"facility_table"`
	HandlerTable       string `yaml:"handler_table" mapstructure:"handler_table"`
	OwnerOperatorTable string `yaml:"owner_operator_table" mapstructure:"owner_operator_table"`
	RegistryTable      string `yaml:"registry_table" mapstructure:"registry_table"`
	BlockedDomainsFile string `yaml:"blocked_domains_file" mapstructure:"blocked_domains_file"`
	MetricsFile        string `yaml:"metrics_file" mapstructure:"metrics_file"`
}

// ProfileConfig configures the window views and profile output.
type ProfileConfig struct {
	LookbackYears    int    `yaml:"lookback_years" mapstructure:"lookback_years"`
	OutputDir        string `yaml:"output_dir" mapstructure:"output_dir"`
	Threads          int    `yaml:"threads" mapstructure:"threads"`
	EvaluationTable  string `yaml:"evaluation_table" mapstructure:"evaluation_table"`
	ViolationTable   string `yaml:"violation_table" mapstructure:"violation_table"`
	EnforcementTable string `yaml:"enforcement_table" mapstructure:"enforcement_table"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COMPLIANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "rcrainfo.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("match.strategy", "facility")
	v.SetDefault("match.continue_on_error", false)
	v.SetDefault("match.facility_table", "handler_owner_operator")
	v.SetDefault("match.handler_table", "hd_handler")
	v.SetDefault("match.owner_operator_table", "hd_owner_operator")
	v.SetDefault("match.registry_table", "epa_facilities")
	v.SetDefault("match.blocked_domains_file", "")
	v.SetDefault("match.metrics_file", "")
	v.SetDefault("profile.lookback_years", 5)
	v.SetDefault("profile.output_dir", "store/script_output_files")
	v.SetDefault("profile.threads", runtime.NumCPU())
	v.SetDefault("profile.evaluation_table", "ce_reporting")
	v.SetDefault("profile.violation_table", "ce_reporting")
	v.SetDefault("profile.enforcement_table", "ce_reporting")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode needs: "terms", "match",
// "profile" or "migrate". All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string
	storeChecks := func() {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	}

	switch mode {
	case "terms":
	case "migrate":
		storeChecks()
	case "match":
		storeChecks()
		switch c.Match.Strategy {
		case "facility", "registry":
		default:
			errs = append(errs, fmt.Sprintf("match.strategy must be facility or registry, got %q", c.Match.Strategy))
		}
	case "profile":
		storeChecks()
		if c.Profile.LookbackYears < 1 {
			errs = append(errs, "profile.lookback_years must be >= 1")
		}
		if c.Profile.Threads < 1 {
			errs = append(errs, "profile.threads must be >= 1")
		}
		if c.Profile.OutputDir == "" {
			errs = append(errs, "profile.output_dir is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
