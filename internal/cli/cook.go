package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shaiso/SpiderChef/internal/domain"
	"github.com/shaiso/SpiderChef/internal/mq"
	"github.com/shaiso/SpiderChef/internal/recipe"
	"github.com/shaiso/SpiderChef/internal/repo"
	"github.com/shaiso/SpiderChef/internal/telemetry"
)

type cookOptions struct {
	output      string
	format      string
	dbURL       string
	amqpURL     string
	metricsFile string
}

// NewCookCmd создаёт команду cook.
func NewCookCmd(appFn func() *App) *cobra.Command {
	var opts cookOptions

	cmd := &cobra.Command{
		Use:   "cook RECIPE",
		Short: "Read the YAML recipe file and perform scraping based on its content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFn()
			if !cmd.Flags().Changed("output") {
				opts.output = app.Config.Output.File
			}
			if !cmd.Flags().Changed("db-url") {
				opts.dbURL = app.Config.Storage.DatabaseURL
			}
			if !cmd.Flags().Changed("amqp-url") {
				opts.amqpURL = app.Config.Storage.RabbitMQURL
			}
			if !cmd.Flags().Changed("metrics-file") {
				opts.metricsFile = app.Config.Output.MetricsFile
			}
			return cook(cmd.Context(), app, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "output.yaml", "File to write the recipe output to")
	cmd.Flags().StringVar(&opts.format, "format", recipe.FormatYAML, "Output format: yaml or json")
	cmd.Flags().StringVar(&opts.dbURL, "db-url", "", "PostgreSQL URL to store the run record")
	cmd.Flags().StringVar(&opts.amqpURL, "amqp-url", "", "RabbitMQ URL to publish the run event")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "File to export Prometheus metrics to")

	return cmd
}

func cook(ctx context.Context, app *App, path string, opts cookOptions) error {
	if opts.format != recipe.FormatYAML && opts.format != recipe.FormatJSON {
		return fmt.Errorf("%w: %q", recipe.ErrUnknownFormat, opts.format)
	}

	metrics := telemetry.NewMetrics()
	run := domain.NewRun("", path)
	logger := telemetry.WithRunID(app.Logger, run.ID.String())
	ctx = telemetry.WithLogger(ctx, logger)

	r, err := recipe.Load(path,
		recipe.WithRegistry(app.Registry),
		recipe.WithLogger(logger),
		recipe.WithObserver(metrics),
	)
	if err != nil {
		return err
	}
	run.Recipe = r.Name

	run.MarkRunning()
	output, cookErr := r.Cook(ctx)
	if cookErr == nil {
		cookErr = recipe.WriteOutput(opts.output, opts.format, output)
	}

	switch {
	case cookErr == nil:
		run.MarkSucceeded(output)
		logger.Info("output written", "file", opts.output)
	case errors.Is(cookErr, context.Canceled):
		run.MarkCancelled()
		run.Error = cookErr.Error()
	default:
		run.MarkFailed(cookErr.Error())
	}
	metrics.ObserveRun(cookErr)

	report(context.WithoutCancel(ctx), logger, run, opts)

	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
			logger.Warn("metrics export failed", "error", err)
		}
	}

	app.Out.RunSummary(run, opts.output)
	return cookErr
}

// report сохраняет запуск в PostgreSQL и публикует событие в RabbitMQ, если они настроены.
// Ошибки логируются и не меняют результат запуска.
func report(ctx context.Context, logger *slog.Logger, run *domain.Run, opts cookOptions) {
	if opts.dbURL != "" {
		if err := saveRun(ctx, opts.dbURL, run); err != nil {
			logger.Error("save run failed", "error", err)
		} else {
			logger.Debug("run saved")
		}
	}

	if opts.amqpURL != "" {
		if err := publishRun(ctx, opts.amqpURL, logger, run); err != nil {
			logger.Error("publish run failed", "error", err)
		} else {
			logger.Debug("run published")
		}
	}
}

func saveRun(ctx context.Context, dsn string, run *domain.Run) error {
	pool, err := repo.NewPool(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	runs := repo.NewRunRepo(pool)
	if err := runs.EnsureSchema(ctx); err != nil {
		return err
	}
	return runs.Save(ctx, run)
}

func publishRun(ctx context.Context, url string, logger *slog.Logger, run *domain.Run) error {
	conn, err := mq.NewConnection(url, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := mq.SetupTopology(conn.Channel()); err != nil {
		return err
	}
	return mq.NewPublisher(conn.Channel(), logger).PublishRunFinished(ctx, run)
}
