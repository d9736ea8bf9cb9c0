package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"rentbook/internal/amqp"
	"rentbook/internal/config"
	apphttp "rentbook/internal/http"
	"rentbook/internal/invoices"
	"rentbook/internal/ledger"
	"rentbook/internal/log"
	"rentbook/internal/metrics"
	"rentbook/internal/services"
	gsheet "rentbook/internal/sheets/google"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ledgerMetrics := metrics.NewLedgerMetrics(reg)

	store, err := invoices.NewSQLiteStore(cfg.InvoiceDBPath)
	if err != nil {
		return fmt.Errorf("open invoice store: %w", err)
	}
	logger.Info("Invoice store ready", "path", cfg.InvoiceDBPath)

	opts := []services.Option{
		services.WithMetrics(ledgerMetrics),
		services.WithLogger(logger),
	}

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// the ledger works without events
			logger.WithComponent(log.ComponentAMQP).Warn("AMQP unavailable, ledger events disabled",
				log.FieldError, err.Error())
		} else {
			opts = append(opts, services.WithPublisher(client))
			logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	if cfg.SheetsEnabled() {
		exporter, err := gsheet.NewFromServiceAccount(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, cfg.GoogleServiceAccountFile)
		if err != nil {
			logger.WithComponent(log.ComponentSheets).Warn("Google Sheets unavailable, roster export disabled",
				log.FieldError, err.Error())
		} else {
			opts = append(opts, services.WithExporter(exporter))
			logger.Info("Roster export enabled", "sheet", cfg.GoogleSheetName)
		}
	}

	svc := services.NewRentService(ledger.New(), store, opts...)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Close service", log.FieldError, err.Error())
		}
	}()

	api := apphttp.NewServer(cfg.HTTPAddr, svc, logger, apphttp.Options{
		MaxInvoiceBytes: cfg.MaxInvoiceBytes,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
	})
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, reg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting API server", "addr", cfg.HTTPAddr)
		return listen(&api.Server)
	})
	g.Go(func() error {
		logger.Info("Starting metrics server", "addr", cfg.MetricsAddr)
		return listen(metricsSrv)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(api.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	return nil
}
