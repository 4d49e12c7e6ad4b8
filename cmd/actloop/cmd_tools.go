package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lexcodex/actloop/action"
	"github.com/lexcodex/actloop/framework"
)

func newToolsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect, call and parse against the tool registry",
	}
	cmd.AddCommand(newToolsListCmd(v), newToolsCallCmd(v), newToolsParseCmd(v))
	return cmd
}

func newToolsListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tools in registration order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(v)
			if err != nil {
				return err
			}
			defer a.Close()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range a.registry.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", color.New(color.Bold).Sprint(t.Name()), signature(t.Parameters()), t.Description())
			}
			return tw.Flush()
		},
	}
}

func signature(params []framework.ToolParameter) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		s := p.Name + ": " + p.Type
		if !p.Required {
			s += "?"
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func newToolsCallCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "call 'tool(arg=value)'",
		Short:   "Parse one action string and dispatch it",
		Example: "  actloop tools call 'factorial(n=5)'",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(v)
			if err != nil {
				return err
			}
			defer a.Close()
			parser := action.NewParser(a.registry, action.NewDecoder(action.WithStrict(a.cfg.Agent.StrictArgs)), a.logger)
			decision := parser.ParseCall(args[0])
			if decision.Kind != action.KindAction {
				return decision.Err
			}
			obs := action.NewDispatcher(a.registry, a.logger, a.telemetry).Dispatch(cmd.Context(), "", decision)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, labelColor.Sprint(obs.Call))
			if obs.Failed {
				fmt.Fprintln(out, errorText.Sprint(obs.Text))
				return fmt.Errorf("tool call failed")
			}
			fmt.Fprintln(out, obs.Text)
			return nil
		},
	}
}

func newToolsParseCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "parse '<model text>'",
		Short: "Parse one model turn and print the decision as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(v)
			if err != nil {
				return err
			}
			defer a.Close()
			parser := action.NewParser(a.registry, action.NewDecoder(action.WithStrict(a.cfg.Agent.StrictArgs)), a.logger)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(parser.Parse(args[0]))
		},
	}
}
