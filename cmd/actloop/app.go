package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lexcodex/actloop/agents"
	"github.com/lexcodex/actloop/framework"
	"github.com/lexcodex/actloop/internal/config"
	"github.com/lexcodex/actloop/internal/logutil"
	"github.com/lexcodex/actloop/llm"
	"github.com/lexcodex/actloop/tools"
)

// app holds the collaborators built from the effective configuration.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *framework.ToolRegistry
	telemetry framework.Telemetry
	closers   []io.Closer
}

func bindFlags(v *viper.Viper, lookup func(string) *pflag.Flag, keys map[string]string) {
	for key, name := range keys {
		if f := lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

func loadConfig(v *viper.Viper) (config.Config, error) {
	if err := config.LoadEnv(flagEnvFile); err != nil {
		return config.Config{}, err
	}
	if err := config.ReadFile(v, flagConfig); err != nil {
		return config.Config{}, err
	}
	return config.Load(v)
}

func loadApp(v *viper.Viper) (*app, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	logger, err := logutil.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	registry, err := tools.NewRegistry(cfg.Tools.Allow)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, registry: registry}
	sinks := []framework.Telemetry{framework.LoggerTelemetry{Logger: logger}}
	if cfg.Trace.Path != "" {
		trace, err := framework.NewJSONFileTelemetry(cfg.Trace.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, trace)
		sinks = append(sinks, trace)
	}
	a.telemetry = framework.MultiplexTelemetry{Sinks: sinks}
	return a, nil
}

func (a *app) frameworkConfig() *framework.Config {
	return &framework.Config{
		Name:          "actloop",
		Mode:          a.cfg.Agent.Mode,
		MaxIterations: a.cfg.Agent.MaxIterations,
		Model:         a.cfg.Model.Name,
		Temperature:   a.cfg.Model.Temperature,
		MaxTokens:     a.cfg.Model.MaxTokens,
		StrictArgs:    a.cfg.Agent.StrictArgs,
		Telemetry:     a.telemetry,
		Logger:        a.logger,
	}
}

func (a *app) runner() (*agents.Runner, error) {
	model, err := llm.New(a.cfg.Model, a.logger)
	if err != nil {
		return nil, err
	}
	debug := a.logger.Enabled(context.Background(), slog.LevelDebug)
	return &agents.Runner{
		Model:  llm.NewInstrumentedModel(model, a.telemetry, debug),
		Tools:  a.registry,
		Config: a.frameworkConfig(),
	}, nil
}

// runTimeout bounds a whole run: every model call may take the full model
// timeout.
func (a *app) runTimeout() time.Duration {
	per := a.cfg.Model.Timeout
	if per <= 0 {
		per = 3 * time.Minute
	}
	return per * time.Duration(a.cfg.Agent.MaxIterations+2)
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
