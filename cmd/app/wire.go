//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dtcinsights/dtc-insights/internal/bootstrap"
	"github.com/dtcinsights/dtc-insights/internal/domain/assistant"
	"github.com/dtcinsights/dtc-insights/internal/domain/auth"
	"github.com/dtcinsights/dtc-insights/internal/domain/history"
	"github.com/dtcinsights/dtc-insights/internal/domain/overview"
	"github.com/dtcinsights/dtc-insights/internal/infra/config"
	"github.com/dtcinsights/dtc-insights/internal/infra/dtcapi"
	httpiface "github.com/dtcinsights/dtc-insights/internal/interface/http"
	"github.com/dtcinsights/dtc-insights/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideRegistry,
		provideUpstreamMetrics,
		provideHistoryMetrics,
		provideDTCClient,
		provideHistoryConfig,
		provideHistoryViews,
		provideOverviewConfig,
		provideAuthConfig,
		provideHandlerConfig,
		provideUserRepository,
		provideSessionStore,
		provideExportArchive,
		overview.NewService,
		assistant.NewService,
		auth.NewService,
		wire.Bind(new(history.Fetcher), new(*dtcapi.Client)),
		wire.Bind(new(overview.Client), new(*dtcapi.Client)),
		wire.Bind(new(assistant.Client), new(*dtcapi.Client)),
		wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
