package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lexcodex/actloop/agents"
)

var (
	labelColor  = color.New(color.FgHiBlack)
	thoughtText = color.New(color.Italic)
	actionText  = color.New(color.FgCyan)
	obsText     = color.New(color.FgYellow)
	answerText  = color.New(color.FgGreen, color.Bold)
	errorText   = color.New(color.FgRed, color.Bold)
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run [question]",
		Short: "Answer one question with an agent and print the transcript",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(v, cmd.Flags().Lookup, map[string]string{"agent.mode": "mode"})
			a, err := loadApp(v)
			if err != nil {
				return err
			}
			defer a.Close()
			runner, err := a.runner()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.runTimeout())
			defer cancel()
			out := runner.Run(ctx, a.cfg.Agent.Mode, strings.Join(args, " "))
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(out.Snapshot()); err != nil {
					return err
				}
			} else {
				printTranscript(cmd.OutOrStdout(), out)
			}
			if out.Err != nil {
				return fmt.Errorf("run %s aborted: %w", out.RunID, out.Err)
			}
			if !out.Answered {
				return errors.New("run finished without an answer")
			}
			return nil
		},
	}
	cmd.Flags().String("mode", "", "Agent mode: react or plan")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run state as JSON")
	return cmd
}

func printTranscript(w io.Writer, out agents.Outcome) {
	for _, e := range transcript(out) {
		label := labelColor.Sprintf("%-13s", string(e.Kind))
		var body string
		switch e.Kind {
		case entryThought:
			body = thoughtText.Sprint(e.Content)
		case entryAction, entryPlan:
			body = actionText.Sprint(e.Content)
		case entryObservation, entryFeedback:
			body = obsText.Sprint(e.Content)
		case entryAnswer, entryClarification:
			body = answerText.Sprint(e.Content)
		case entryError:
			body = errorText.Sprint(e.Content)
		default:
			body = e.Content
		}
		fmt.Fprintf(w, "%s %s\n", label, body)
	}
}
