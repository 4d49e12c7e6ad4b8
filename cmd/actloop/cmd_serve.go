package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lexcodex/actloop/server"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	var stdio bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, or JSON-RPC 2.0 over stdio with --stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(v, cmd.Flags().Lookup, map[string]string{"server.addr": "addr", "agent.mode": "mode"})
			a, err := loadApp(v)
			if err != nil {
				return err
			}
			defer a.Close()
			runner, err := a.runner()
			if err != nil {
				return err
			}
			svc := server.NewService(runner, a.logger)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if stdio {
				a.logger.Info("serving JSON-RPC on stdio")
				h := &server.RPCHandler{Service: svc, Logger: a.logger}
				return h.ServeStdio(ctx, os.Stdin, os.Stdout)
			}
			api := &server.APIServer{Service: svc, Logger: a.logger, RunTimeout: a.runTimeout()}
			err = api.ServeContext(ctx, a.cfg.Server.Addr)
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().String("addr", "", "Listen address for the HTTP API (default :8080)")
	cmd.Flags().String("mode", "", "Default agent mode for requests that name none")
	cmd.Flags().BoolVar(&stdio, "stdio", false, "Serve JSON-RPC 2.0 over stdin/stdout instead of HTTP")
	return cmd
}
