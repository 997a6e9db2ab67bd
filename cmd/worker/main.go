package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	os.Exit(runWorker())
}

// runWorker returns the exit code so deferred cleanup runs before exiting
func runWorker() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	command := "run"
	args := os.Args[1:]
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting storefront worker",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("command", command),
	)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize worker", zap.Error(err))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := a.close(shutdownCtx); err != nil {
			log.Error("Error during shutdown", zap.Error(err))
		}
	}()

	log = a.log
	ctx, _ = logger.WithCorrelationID(ctx, log, uuid.NewString())
	if err := a.dispatch(ctx, command, args); err != nil {
		log.Error("Command failed", zap.String("command", command), zap.Error(err))
		if errors.Is(err, errUsage) {
			printUsage()
		}
		return 1
	}
	return 0
}

var errUsage = errors.New("invalid usage")

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "run":
		return a.run(ctx)
	case "audit-cleanup":
		_, err := a.retention.RunNow(ctx)
		return err
	case "gdpr-export":
		return a.gdprExport(ctx, args)
	case "gdpr-check":
		return a.gdprCheck(ctx, args)
	case "gdpr-delete":
		return a.gdprDelete(ctx, args)
	case "order-ship":
		return a.orderShip(ctx, args)
	case "order-deliver":
		return a.orderDeliver(ctx, args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

// run keeps the worker alive until a signal arrives
func (a *app) run(ctx context.Context) error {
	if a.cfg.Audit.SchedulerEnabled {
		if err := a.retention.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := a.retention.Stop(stopCtx); err != nil {
				a.log.Error("Error stopping audit retention scheduler", zap.Error(err))
			}
		}()
	} else {
		a.log.Info("Audit retention scheduler disabled")
	}

	<-ctx.Done()
	a.log.Info("Shutting down worker...")
	return nil
}

// tenantFlags parses the -tenant flag every tenant-scoped command takes and
// returns a ctx carrying that tenant
func (a *app) tenantFlags(ctx context.Context, fs *flag.FlagSet, args []string) (context.Context, error) {
	tenantArg := fs.String("tenant", "", "Tenant ID (required)")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	tenantID, err := uuid.Parse(*tenantArg)
	if err != nil {
		return nil, fmt.Errorf("%w: -tenant must be a UUID", errUsage)
	}
	ctx, _ = logger.WithTenantID(ctx, a.log, tenantID.String())
	return ctx, nil
}

func parseID(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: -%s must be a UUID", errUsage, name)
	}
	return id, nil
}

func (a *app) gdprExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gdpr-export", flag.ContinueOnError)
	user := fs.String("user", "", "User ID (required)")
	out := fs.String("out", "", "Write the export to this file instead of stdout")
	ctx, err := a.tenantFlags(ctx, fs, args)
	if err != nil {
		return err
	}
	userID, err := parseID("user", *user)
	if err != nil {
		return err
	}

	data, err := a.export.ExportUserDataAsJSON(ctx, userID)
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	a.log.Info("Export written", zap.String("file", *out), zap.Int("bytes", len(data)))
	return nil
}

func (a *app) gdprCheck(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gdpr-check", flag.ContinueOnError)
	user := fs.String("user", "", "User ID (required)")
	ctx, err := a.tenantFlags(ctx, fs, args)
	if err != nil {
		return err
	}
	userID, err := parseID("user", *user)
	if err != nil {
		return err
	}

	eligibility, err := a.deletion.CheckDeletionEligibility(ctx, userID)
	if err != nil {
		return err
	}
	return printJSON(eligibility)
}

func (a *app) gdprDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gdpr-delete", flag.ContinueOnError)
	user := fs.String("user", "", "User ID (required)")
	confirm := fs.Bool("confirm", false, "Confirm the irreversible erasure")
	ctx, err := a.tenantFlags(ctx, fs, args)
	if err != nil {
		return err
	}
	userID, err := parseID("user", *user)
	if err != nil {
		return err
	}
	if !*confirm {
		return fmt.Errorf("%w: erasure is irreversible, pass -confirm", errUsage)
	}

	result, err := a.deletion.DeleteUserData(ctx, userID)
	if result != nil {
		if perr := printJSON(result); perr != nil {
			return perr
		}
	}
	return err
}

func (a *app) orderShip(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("order-ship", flag.ContinueOnError)
	orderArg := fs.String("order", "", "Order ID (required)")
	carrier := fs.String("carrier", "", "Carrier, e.g. UPS (required)")
	tracking := fs.String("tracking", "", "Tracking number (required)")
	ctx, err := a.tenantFlags(ctx, fs, args)
	if err != nil {
		return err
	}
	orderID, err := parseID("order", *orderArg)
	if err != nil {
		return err
	}

	o, err := a.orders.AddTrackingNumber(ctx, orderID, *carrier, *tracking)
	if err != nil {
		return err
	}
	return printJSON(o.TrackingInfo())
}

func (a *app) orderDeliver(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("order-deliver", flag.ContinueOnError)
	orderArg := fs.String("order", "", "Order ID (required)")
	ctx, err := a.tenantFlags(ctx, fs, args)
	if err != nil {
		return err
	}
	orderID, err := parseID("order", *orderArg)
	if err != nil {
		return err
	}

	o, err := a.orders.MarkDelivered(ctx, orderID)
	if err != nil {
		return err
	}
	return printJSON(o.TrackingInfo())
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage() {
	fmt.Println(`Storefront Worker

Usage:
  worker [command] [flags]

Commands:
  run                       Run the audit retention scheduler until stopped (default)
  audit-cleanup             Delete expired audit events of every tenant now
  gdpr-export   -tenant -user [-out file]
                            Export a user's personal data as JSON
  gdpr-check    -tenant -user
                            Report whether open orders block erasure
  gdpr-delete   -tenant -user -confirm
                            Erase a user's personal data
  order-ship    -tenant -order -carrier -tracking
                            Record tracking and notify the customer
  order-deliver -tenant -order
                            Mark an order delivered and notify the customer

Configuration is read from config.toml and STORE_* environment variables.`)
}
