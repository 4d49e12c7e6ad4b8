// Package config loads actloop settings from defaults, an optional YAML file,
// the environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is prepended to every automatically bound variable.
	EnvPrefix = "ACTLOOP"
	// DefaultFile is read from the working directory when --config is unset.
	DefaultFile = "actloop.yaml"
	// DefaultEnvFile is loaded before the environment is read.
	DefaultEnvFile = ".env"
)

// Provider names accepted by model.provider.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config is the effective configuration of one process.
type Config struct {
	Model   ModelConfig   `mapstructure:"model" yaml:"model"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Tools   ToolsConfig   `mapstructure:"tools" yaml:"tools"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Trace   TraceConfig   `mapstructure:"trace" yaml:"trace"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

// ModelConfig selects and configures the language model backend.
type ModelConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	Name        string        `mapstructure:"name" yaml:"name"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AgentConfig controls the orchestration policy.
type AgentConfig struct {
	Mode          string `mapstructure:"mode" yaml:"mode"`
	MaxIterations int    `mapstructure:"max_iterations" yaml:"max_iterations"`
	StrictArgs    bool   `mapstructure:"strict_args" yaml:"strict_args"`
}

// ToolsConfig restricts the built-in tool set.
type ToolsConfig struct {
	Allow []string `mapstructure:"allow" yaml:"allow"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level     string `mapstructure:"level" yaml:"level"`
	Format    string `mapstructure:"format" yaml:"format"`
	AddSource bool   `mapstructure:"add_source" yaml:"add_source"`
}

// TraceConfig enables the NDJSON telemetry file.
type TraceConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig configures `actloop serve`.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("model.provider", ProviderOpenAI)
	v.SetDefault("model.endpoint", "")
	v.SetDefault("model.name", "")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.temperature", 0.0)
	v.SetDefault("model.max_tokens", 0)
	v.SetDefault("model.timeout", 3*time.Minute)

	v.SetDefault("agent.mode", "react")
	v.SetDefault("agent.max_iterations", 10)
	v.SetDefault("agent.strict_args", false)

	v.SetDefault("tools.allow", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)

	v.SetDefault("trace.path", "")
	v.SetDefault("server.addr", ":8080")
}

// New returns a viper instance with defaults and environment bindings in
// place. Flags are bound by the caller.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	// Provider variables predate the ACTLOOP_ prefix.
	_ = v.BindEnv("model.api_key", EnvPrefix+"_MODEL_API_KEY", "API_KEY")
	_ = v.BindEnv("model.endpoint", EnvPrefix+"_MODEL_ENDPOINT", "API_URL")
	_ = v.BindEnv("model.name", EnvPrefix+"_MODEL_NAME", "API_MODEL")
	return v
}

// ReadFile merges path into v. An empty path falls back to DefaultFile, which
// may be absent; an explicit path must exist.
func ReadFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: %w", err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

// LoadEnv loads variables from a dotenv file. Missing files are ignored and
// variables already set in the environment win.
func LoadEnv(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load decodes and validates the effective configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.Model.Provider = strings.ToLower(strings.TrimSpace(cfg.Model.Provider))
	cfg.Agent.Mode = strings.ToLower(strings.TrimSpace(cfg.Agent.Mode))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration built from defaults alone.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("config: unknown model.provider %q", c.Model.Provider)
	}
	switch c.Agent.Mode {
	case "react", "plan", "plan-execute", "plan_execute", "planner":
	default:
		return fmt.Errorf("config: unknown agent.mode %q", c.Agent.Mode)
	}
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("config: agent.max_iterations must be positive, got %d", c.Agent.MaxIterations)
	}
	if c.Model.Timeout < 0 {
		return fmt.Errorf("config: model.timeout must not be negative")
	}
	for _, p := range c.Tools.Allow {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("config: invalid tools.allow pattern %q", p)
		}
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Model.APIKey != "" {
		c.Model.APIKey = "***"
	}
	return c
}

// Render encodes c as YAML.
func Render(c Config) ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: render: %w", err)
	}
	return out, nil
}

// DefaultYAML returns a commented configuration file holding the defaults.
func DefaultYAML() ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(Default()); err != nil {
		return nil, fmt.Errorf("config: render: %w", err)
	}
	doc.HeadComment = "actloop configuration. Environment variables use the ACTLOOP_ prefix;\nAPI_KEY, API_URL and API_MODEL are honoured as well."
	comments := map[string]string{
		"model":   "openai or ollama; the endpoint defaults per provider",
		"agent":   "mode is react or plan",
		"tools":   "glob patterns over tool names",
		"logging": "level: debug|info|warn|error, format: text|json",
		"trace":   "NDJSON telemetry file, empty disables tracing",
		"server":  "listen address for actloop serve",
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if c, ok := comments[key.Value]; ok {
			key.HeadComment = c
		}
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("config: render: %w", err)
	}
	return out, nil
}
