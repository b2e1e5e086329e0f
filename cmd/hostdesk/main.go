package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hostdesk/internal/app/commands"
	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/properties"
	"hostdesk/internal/app/service"
	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	domaintasks "hostdesk/internal/domain/tasks"
	"hostdesk/internal/infra/broker/kafka"
	"hostdesk/internal/infra/config"
	"hostdesk/internal/infra/feeds"
	ginserver "hostdesk/internal/infra/http/gin"
	"hostdesk/internal/infra/obs"
	"hostdesk/internal/infra/outbox"
	"hostdesk/internal/infra/storage/s3"
)

const feedsConsumer = "calendar-feeds"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFiles []string
	rootCmd := &cobra.Command{
		Use:           "hostdesk",
		Short:         "Property availability and calendar service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFiles...)
		},
	}
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the environment")

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		reconcileCmd(),
		relayCmd(),
		feedsCmd(),
	)
	return rootCmd
}

// application is the state shared by every subcommand.
type application struct {
	cfg     config.Config
	logger  *slog.Logger
	storage *storage
	service *service.Service
}

func bootstrap(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := obs.NewLogger(cfg.Env)
	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	svc := service.New(service.Deps{
		Factory:         st.factory,
		Idempotency:     st.idempotency,
		IdempotencyTTL:  cfg.IdempotencyTTL,
		Catalog:         property.NewCatalog(cfg.ListingPlatforms),
		DefaultCurrency: cfg.DefaultCurrency,
		Logger:          logger,
	})
	return &application{cfg: cfg, logger: logger, storage: st, service: svc}, nil
}

func (r *application) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.storage.close(ctx); err != nil {
		r.logger.Warn("storage close failed", "error", err)
	}
}

func serveCmd() *cobra.Command {
	var (
		migrate   bool
		withRelay bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.close()
			if migrate {
				if err := rt.storage.migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			svc := rt.service
			server := ginserver.NewServer(rt.cfg, obs.Middleware{Logger: rt.logger}, obs.HealthHandlers{
				Checks: rt.storage.checks,
			}, ginserver.Handlers{
				Properties:  ginserver.PropertyHandler{Commands: svc.Commands, Queries: svc.Queries, Logger: rt.logger},
				Bookings:    ginserver.BookingHandler{Commands: svc.Commands, Queries: svc.Queries, Logger: rt.logger},
				Cleaning:    ginserver.TaskHandler{Type: domaintasks.TypeCleaning, Commands: svc.Commands, Logger: rt.logger},
				Maintenance: ginserver.TaskHandler{Type: domaintasks.TypeMaintenance, Commands: svc.Commands, Logger: rt.logger},
				Calendar:    ginserver.CalendarHandler{Queries: svc.Queries, Logger: rt.logger},
			})

			relayErr := make(chan error, 1)
			if withRelay {
				go func() { relayErr <- runRelay(ctx, rt) }()
			}
			go func() {
				select {
				case <-ctx.Done():
				case err := <-relayErr:
					if err != nil && !errors.Is(err, context.Canceled) {
						rt.logger.Error("outbox relay stopped", "error", err)
					}
				}
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					rt.logger.Error("http shutdown failed", "error", err)
				}
			}()

			rt.logger.Info("HTTP server starting", "addr", rt.cfg.HTTPAddr, "storage", rt.cfg.StorageDriver)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			rt.logger.Info("HTTP server stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "create tables and indexes before serving")
	cmd.Flags().BoolVar(&withRelay, "with-relay", false, "relay the outbox to Kafka from this process")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables, collections and indexes for the configured driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()
			if err := rt.storage.migrate(cmd.Context()); err != nil {
				return err
			}
			rt.logger.Info("schema up to date", "storage", rt.cfg.StorageDriver)
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	var (
		propertyID string
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute stored property statuses from their calendars",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.close()
			report, err := commands.Dispatch[properties.ReconcileCommand, *dto.ReconcileReport](ctx, rt.service.Commands, properties.ReconcileCommand{
				PropertyID: propertyID,
				Force:      force,
			})
			if err != nil {
				return err
			}
			for _, entry := range report.Entries {
				attrs := []any{"property_id", entry.PropertyID, "stored", entry.Stored, "derived", entry.Derived}
				if entry.Warning != nil {
					attrs = append(attrs, "warning", entry.Warning.Message)
				}
				switch {
				case entry.Corrected:
					rt.logger.Info("property status corrected", attrs...)
				case entry.Warning != nil:
					rt.logger.Warn("property status left as set manually", attrs...)
				}
			}
			rt.logger.Info("reconcile finished", "checked", report.Checked, "corrected", report.Corrected)
			return nil
		},
	}
	cmd.Flags().StringVar(&propertyID, "property", "", "reconcile a single property")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite manual statuses that disagree with the calendar")
	return cmd
}

func relayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Publish committed outbox records to Kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()
			return ignoreCanceled(runRelay(cmd.Context(), rt))
		},
	}
}

func runRelay(ctx context.Context, rt *application) error {
	if err := rt.cfg.RequireKafka(); err != nil {
		return err
	}
	producer, err := kafka.NewProducer(rt.cfg.KafkaBrokers, "hostdesk-relay", nil)
	if err != nil {
		return err
	}
	defer producer.Close()
	worker := &outbox.Worker{
		Store:       rt.storage.relay,
		Producer:    producer,
		Interval:    rt.cfg.OutboxPollInterval,
		TopicPrefix: rt.cfg.KafkaTopicPrefix,
		Backoff:     rt.cfg.RetryBackoff,
		Logger:      rt.logger,
	}
	rt.logger.Info("outbox relay started", "brokers", rt.cfg.KafkaBrokers)
	return worker.Run(ctx)
}

func feedsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feeds",
		Short: "Consume property events and publish iCalendar feeds to object storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.close()
			if err := rt.cfg.RequireKafka(); err != nil {
				return err
			}
			store, err := s3.NewClient(s3.Options{
				Endpoint:      rt.cfg.S3Endpoint,
				UseSSL:        rt.cfg.S3UseSSL,
				AccessKey:     rt.cfg.S3AccessKey,
				SecretKey:     rt.cfg.S3SecretKey,
				Bucket:        rt.cfg.S3Bucket,
				PublicBaseURL: rt.cfg.S3PublicEndpoint,
				Logger:        rt.logger,
			})
			if err != nil {
				return err
			}
			publisher := &feeds.Publisher{
				Queries: rt.service.Queries,
				Store:   store,
				Inbox:   rt.storage.inbox(feedsConsumer),
				Prefix:  rt.cfg.FeedsPrefix,
				Logger:  rt.logger,
			}
			consumer, err := kafka.NewConsumer(rt.cfg.KafkaBrokers, rt.cfg.KafkaGroupID, nil, publisher, rt.logger)
			if err != nil {
				return err
			}
			defer consumer.Close()

			relay := outbox.Worker{TopicPrefix: rt.cfg.KafkaTopicPrefix}
			topics := []string{
				relay.TopicFor(property.Created{}.EventName()),
				relay.TopicFor(booking.Created{}.EventName()),
				relay.TopicFor(domaintasks.Scheduled{}.EventName()),
			}
			rt.logger.Info("feed publisher started", "topics", topics, "group", rt.cfg.KafkaGroupID)
			return ignoreCanceled(consumer.Run(ctx, topics))
		},
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
