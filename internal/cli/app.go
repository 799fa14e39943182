package cli

import (
	"log/slog"

	"github.com/shaiso/SpiderChef/internal/config"
	"github.com/shaiso/SpiderChef/internal/steps"
)

// App — общие зависимости команд.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Out      *Output
	Registry *steps.Registry
}

// NewApp создаёт App со стандартным реестром шагов.
func NewApp(cfg config.Config, logger *slog.Logger, out *Output) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		Config:   cfg,
		Logger:   logger,
		Out:      out,
		Registry: steps.DefaultRegistry(),
	}
}
