package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	invoicehandler "expertdesk/internal/invoice/handler"
	invoiceservice "expertdesk/internal/invoice/service"
	"expertdesk/internal/outbox"
	"expertdesk/internal/platform/config"
	"expertdesk/internal/platform/httpserver"
	"expertdesk/internal/platform/kafka"
	"expertdesk/internal/platform/logger"
	"expertdesk/internal/platform/metrics"
	"expertdesk/internal/platform/redis"
	"expertdesk/internal/request/displayid"
	"expertdesk/internal/request/events"
	requesthandler "expertdesk/internal/request/handler"
	"expertdesk/internal/request/models"
	requestservice "expertdesk/internal/request/service"
	httptransport "expertdesk/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	log := logger.New()
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st, err := openStores(ctx, cfg.Postgres, log)
	if err != nil {
		return err
	}
	defer st.Close()
	checks := st.checks()

	allocOpts := []displayid.Option{
		displayid.WithMaxAttempts(cfg.Lifecycle.AllocationMaxAttempts),
		displayid.WithLogger(log),
		displayid.WithMetrics(m),
	}
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		allocOpts = append(allocOpts, displayid.WithSequence(displayid.NewRedisSequence(rc.Client)))
		checks["redis"] = rc.Health
	}

	bus := events.NewBus()
	invoiceOpts := []invoiceservice.Option{
		invoiceservice.WithLogger(log),
		invoiceservice.WithMetrics(m),
		invoiceservice.WithVATRate(cfg.Lifecycle.VATRate),
	}

	var (
		producer *kafka.Producer
		recorder *outbox.Recorder
	)
	if cfg.Kafka.Brokers != "" {
		producer, err = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			return err
		}
		checks["kafka"] = producer.Health

		recorder = outbox.NewRecorder(st.outbox, outbox.WithRecorderLogger(log))
		invoiceOpts = append(invoiceOpts, invoiceservice.WithEventRecorder(recorder))
	}

	invoices, err := invoiceservice.New(st.invoices, st.requests, invoiceOpts...)
	if err != nil {
		return err
	}
	// the cascade runs before the RequestPaid event is recorded
	bus.Register(events.TypeRequestPaid, invoices.HandleRequestPaid)
	if recorder != nil {
		bus.Register(events.TypeRequestPaid, recorder.Handle)
	}

	requests, err := requestservice.New(st.requests, st.directory,
		requestservice.WithAllocator(displayid.NewRequestAllocator(allocOpts...)),
		requestservice.WithPublisher(bus),
		requestservice.WithInvoiceLookup(invoices),
		requestservice.WithDedupWindow(cfg.Lifecycle.DedupWindow),
		requestservice.WithCascadeStatus(models.Status(cfg.Lifecycle.CascadeTriggerStatus)),
		requestservice.WithLogger(log),
		requestservice.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(
		httptransport.RouterConfig{AllowedOrigins: cfg.Server.AllowedOrigins, Gatherer: reg},
		httptransport.NewHealthHandler(checks),
		requesthandler.New(requests, log),
		invoicehandler.New(invoices, log),
	)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting expertdesk", "addr", cfg.Server.Addr, "postgres", st.db != nil, "redis", rc != nil)
		return httpserver.Serve(gctx, srv, cfg.Server.ShutdownTimeout)
	})
	if producer != nil {
		relay := outbox.NewRelay(st.outbox, producer,
			outbox.WithPollInterval(cfg.Outbox.PollInterval),
			outbox.WithBatchSize(cfg.Outbox.BatchSize),
			outbox.WithTransactor(st.transactor),
			outbox.WithLogger(log),
			outbox.WithMetrics(m),
		)
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("expertdesk stopped")
	return nil
}
