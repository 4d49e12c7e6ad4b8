package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newShellCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive agent shell",
		Args:  cobra.NoArgs,
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
			model := newShellModel(runner, a.cfg.Agent.Mode, a.cfg.Model.Name)
			model.timeout = a.runTimeout()
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().String("mode", "", "Initial agent mode: react or plan")
	return cmd
}
