package config

import (
	"log/slog"

	"github.com/amirasaad/mileage/pkg/eventbus"
	"github.com/amirasaad/mileage/pkg/repository"
)

// Deps holds all infrastructure dependencies for building the app and services.
type Deps struct {
	Uow      repository.UnitOfWork
	EventBus eventbus.Bus
	Logger   *slog.Logger
	Config   *App
}
