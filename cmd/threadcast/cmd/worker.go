package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/threadcast/threadcast"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume work items from the queue and run the response pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			runtime, err := threadcast.NewRuntime(ctx)
			if err != nil {
				return err
			}

			consumer, err := runtime.Consumer()
			if err != nil {
				return err
			}

			runtime.Logger().Info("worker started")
			return consumer.Run(ctx)
		},
	}
}
