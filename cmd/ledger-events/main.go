package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"budgetly/internal/amqp"
	"budgetly/internal/cli"
	"budgetly/internal/config"
	"budgetly/internal/log"
	"budgetly/internal/worker"
)

func main() {
	flags, err := cli.ParseFlags("ledger-events", os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	cfg, logger := cli.LoadConfig(flags, "ledger-events", (*config.Config).ValidateConsumer)
	if err := run(cfg, logger); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("ledger-events stopped")
}

func run(cfg *config.Config, logger *log.Logger) error {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	audit := worker.NewAuditWorker(logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeLedgerEvents(gctx, audit.HandleLedgerEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		audit.ReportStats(gctx, worker.DefaultStatsInterval)
		return nil
	})

	logger.Info("Starting ledger-events", "queue", cfg.AMQPQueue, "exchange", cfg.AMQPExchange)
	return g.Wait()
}
