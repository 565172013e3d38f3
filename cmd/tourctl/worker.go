package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/invoice"
	"github.com/iliyamo/tour-booking/internal/logging"
	"github.com/iliyamo/tour-booking/internal/notify"
	"github.com/iliyamo/tour-booking/internal/queue"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume booking.confirmed: log, email and invoice each booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := config.LoadWorker()
			log := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

			consumer := queue.NewConsumer(config.AMQPURL(), log,
				queue.BookingLog(w.BookingLogDir),
				notify.Handler(notify.NewFileMailer(w.OutboxDir, log), w.MailFrom),
				invoice.Writer{Dir: w.InvoiceDir}.Handler(),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log.Info("booking-consumer: started")
			err := consumer.Run(ctx)
			if ctx.Err() != nil {
				log.Info("booking-consumer: stopped")
				return nil
			}
			return err
		},
	}
}
