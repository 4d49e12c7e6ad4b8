package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexcodex/actloop/internal/config"
)

var (
	flagConfig  string
	flagEnvFile string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	root := &cobra.Command{
		Use:           "actloop",
		Short:         "Run tool-using language model agents (ReAct or plan-execute)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default ./"+config.DefaultFile+" when present)")
	pf.StringVar(&flagEnvFile, "env-file", config.DefaultEnvFile, "Dotenv file loaded before the environment is read")
	pf.String("provider", "", "Model provider: openai or ollama")
	pf.String("model", "", "Model name")
	pf.String("endpoint", "", "Model API base URL")
	pf.Int("max-iterations", 0, "Reasoning turn ceiling for ReAct runs")
	pf.Bool("strict-args", false, "Reject actions whose arguments cannot be decoded")
	pf.StringSlice("allow-tools", nil, "Glob patterns selecting the tools to register")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-format", "", "Log format: text or json")
	pf.String("trace", "", "Append NDJSON telemetry to this file")
	bindFlags(v, pf.Lookup, map[string]string{
		"model.provider":       "provider",
		"model.name":           "model",
		"model.endpoint":       "endpoint",
		"agent.max_iterations": "max-iterations",
		"agent.strict_args":    "strict-args",
		"tools.allow":          "allow-tools",
		"logging.level":        "log-level",
		"logging.format":       "log-format",
		"trace.path":           "trace",
	})

	root.AddCommand(
		newRunCmd(v),
		newToolsCmd(v),
		newServeCmd(v),
		newShellCmd(v),
		newConfigCmd(v),
	)
	return root
}
