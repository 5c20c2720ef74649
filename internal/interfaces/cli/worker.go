package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/cleaner-scheduler/internal/infrastructure/rabbitmq"
	"github.com/spf13/cobra"
)

func newWorkerCmd(envFile *string) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Auto-assign bookings announced on the awaiting-assignment queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := bootstrap(ctx, *envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			ev := a.cfg.Events
			consumer, err := rabbitmq.Dial(ev.AMQPURL)
			if err != nil {
				return err
			}
			defer consumer.Close()

			if err := consumer.Declare(ev.AMQPExchange, ev.AMQPQueue); err != nil {
				return err
			}
			msgs, err := consumer.Consume(ev.AMQPQueue, name, ev.AMQPPrefetch)
			if err != nil {
				return fmt.Errorf("consume %s: %w", ev.AMQPQueue, err)
			}

			a.log.Info("worker consuming", "queue", ev.AMQPQueue, "prefetch", ev.AMQPPrefetch, "consumer", name)
			return rabbitmq.NewWorker(a.engine, a.retryPolicy(), a.log).Run(ctx, msgs)
		},
	}

	host, _ := os.Hostname()
	cmd.Flags().StringVar(&name, "name", "cleanersched-"+host, "consumer tag")
	return cmd
}
