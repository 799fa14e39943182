// SpiderChef — инструмент извлечения данных по декларативным рецептам.
//
// Использование:
//
//	spiderchef [--json] [--log-level LEVEL] [--log-format FORMAT] <command> [flags]
//
// Команды:
//
//	cook      Выполнить рецепт
//	recipe    Создать или проверить рецепт
//	steps     Список типов шагов
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/SpiderChef/internal/cli"
	"github.com/shaiso/SpiderChef/internal/config"
	"github.com/shaiso/SpiderChef/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

const help = "SpiderChef is a powerful, recipe-based web scraping tool that makes data extraction systematic and reproducible."

func main() {
	var (
		jsonOutput bool
		logLevel   string
		logFormat  string
		app        *cli.App
	)

	rootCmd := &cobra.Command{
		Use:           "spiderchef",
		Short:         help,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Logging.Format = logFormat
			}

			logger := telemetry.SetupLogger(cfg.Logging)
			app = cli.NewApp(*cfg, logger, cli.NewOutput(jsonOutput))
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level: DEBUG, INFO, WARN, ERROR")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format: json or text")

	appFn := func() *cli.App { return app }

	rootCmd.AddCommand(
		cli.NewCookCmd(appFn),
		cli.NewRecipeCmd(appFn),
		cli.NewStepsCmd(appFn),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cli.NewOutput(jsonOutput).Error(err)
		cancel()
		os.Exit(1)
	}
}
