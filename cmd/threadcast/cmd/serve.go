package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/threadcast/threadcast"
	"github.com/threadcast/threadcast/config"
	"github.com/threadcast/threadcast/server"
)

func newServeCmd() *cobra.Command {
	params := &struct {
		Addr string
	}{}
	cmd := &cobra.Command{
		Use:   "serve <persona-file OR persona-files-dir> [...]",
		Short: "Run the HTTP front that admits requests and reads threads",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			personas, err := loadPersonas(args)
			if err != nil {
				return err
			}

			runtime, err := threadcast.NewRuntime(ctx)
			if err != nil {
				return err
			}

			srv := server.NewServer(
				runtime.Logger(),
				runtime,
				runtime.Store(),
				personas,
				config.NewRuntimeConfigFromEnv(),
			)
			return srv.ListenAndServe(ctx, params.Addr)
		},
	}
	cmd.Flags().StringVar(&params.Addr, "addr", ":8080", "listen address")

	return cmd
}
