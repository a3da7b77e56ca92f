// Package config loads handoff settings from defaults, a YAML file and
// HANDOFF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/danielpatrickdp/handoff/internal/history"
	"github.com/danielpatrickdp/handoff/internal/judge"
	"github.com/danielpatrickdp/handoff/internal/logging"
)

// #region types

// Config holds the complete application configuration.
type Config struct {
	Judge   JudgeConfig   `mapstructure:"judge"`
	Ollama  OllamaConfig  `mapstructure:"ollama"`
	History HistoryConfig `mapstructure:"history"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// JudgeConfig locates and drives the external judge.
type JudgeConfig struct {
	Paths         []string      `mapstructure:"paths"`
	Entrypoint    string        `mapstructure:"entrypoint"`
	Interpreter   string        `mapstructure:"interpreter"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Model         string        `mapstructure:"model"`
	Temperature   float64       `mapstructure:"temperature"`
	CredentialEnv string        `mapstructure:"credential_env"`
	GRPCAddr      string        `mapstructure:"grpc_addr"` // empty: run the judge as a local process
}

// OllamaConfig points the judge at the local model host.
type OllamaConfig struct {
	Host string `mapstructure:"host"`
}

// HistoryConfig selects the evaluation history backend.
type HistoryConfig struct {
	Backend    string `mapstructure:"backend"` // memory | sqlite | redis
	SQLitePath string `mapstructure:"sqlite_path"`
	RedisAddr  string `mapstructure:"redis_addr"`
	RedisKey   string `mapstructure:"redis_key"`
}

// AuditConfig locates the audit database. An empty path disables it.
type AuditConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig configures the pushgateway flush.
type MetricsConfig struct {
	Pushgateway string `mapstructure:"pushgateway"`
	Job         string `mapstructure:"job"`
}

// Backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// ErrUnknownBackend is returned by Validate for an unsupported history backend.
var ErrUnknownBackend = errors.New("unknown history backend")

// #endregion types

// #region defaults

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Judge: JudgeConfig{
			Paths:         append([]string(nil), judge.DefaultCandidates...),
			Entrypoint:    judge.DefaultEntrypoint,
			Interpreter:   judge.DefaultInterpreter,
			Timeout:       judge.DefaultTimeout,
			Model:         judge.DefaultJudgeModel,
			Temperature:   judge.DefaultTemperature,
			CredentialEnv: judge.DefaultCredential,
		},
		Ollama: OllamaConfig{Host: "http://localhost:11434"},
		History: HistoryConfig{
			Backend:    BackendSQLite,
			SQLitePath: "~/.handoff/history.db",
			RedisAddr:  "localhost:6379",
			RedisKey:   history.DefaultRedisKey,
		},
		Audit:   AuditConfig{Path: "~/.handoff/metrics.db"},
		Logging: LoggingConfig{Level: "info", Format: string(logging.FormatConsole)},
		Metrics: MetricsConfig{Job: "handoff"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("judge.paths", d.Judge.Paths)
	v.SetDefault("judge.entrypoint", d.Judge.Entrypoint)
	v.SetDefault("judge.interpreter", d.Judge.Interpreter)
	v.SetDefault("judge.timeout", d.Judge.Timeout)
	v.SetDefault("judge.model", d.Judge.Model)
	v.SetDefault("judge.temperature", d.Judge.Temperature)
	v.SetDefault("judge.credential_env", d.Judge.CredentialEnv)
	v.SetDefault("judge.grpc_addr", d.Judge.GRPCAddr)
	v.SetDefault("ollama.host", d.Ollama.Host)
	v.SetDefault("history.backend", d.History.Backend)
	v.SetDefault("history.sqlite_path", d.History.SQLitePath)
	v.SetDefault("history.redis_addr", d.History.RedisAddr)
	v.SetDefault("history.redis_key", d.History.RedisKey)
	v.SetDefault("audit.path", d.Audit.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("metrics.pushgateway", d.Metrics.Pushgateway)
	v.SetDefault("metrics.job", d.Metrics.Job)
}

// #endregion defaults

// #region load

// Load reads configuration. An explicit path must exist; otherwise
// ./handoff.yaml and $HOME/.config/handoff/config.yaml are tried and a
// missing file is not an error. HANDOFF_JUDGE_TIMEOUT style variables win
// over both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HANDOFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("handoff")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/handoff")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.expandPaths()
	return &cfg, nil
}

func (c *Config) expandPaths() {
	for i, p := range c.Judge.Paths {
		c.Judge.Paths[i] = judge.ExpandHome(p)
	}
	c.History.SQLitePath = judge.ExpandHome(c.History.SQLitePath)
	c.Audit.Path = judge.ExpandHome(c.Audit.Path)
}

// #endregion load

// Validate checks the values no component can recover from.
func (c *Config) Validate() error {
	switch c.History.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("%w: %q (want memory, sqlite or redis)", ErrUnknownBackend, c.History.Backend)
	}
	if c.Judge.Timeout <= 0 {
		return fmt.Errorf("judge.timeout must be positive, got %s", c.Judge.Timeout)
	}
	if c.Judge.Temperature < 0 || c.Judge.Temperature > 1 {
		return fmt.Errorf("judge.temperature must be in [0,1], got %v", c.Judge.Temperature)
	}
	return nil
}
