//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"SRZones/internal/domain/repository"
	"SRZones/pkg/config"
	"SRZones/pkg/metrics"
	"SRZones/pkg/server"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,
	wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),
	ProvideClickHouseClient,
	ProvidePostgresPool,
	ProvideRedisCache,
)

var pipelineSet = wire.NewSet(
	ProvideBarSource,
	ProvideClusterer,
	ProvideCalendarStore,
	ProvideKafkaProducer,
	ProvideCalendarPublisher,
	ProvideBuildJob,
)

// InitializeBatch wires a one-shot build run.
func InitializeBatch(cfg *config.Config) (*Batch, func(), error) {
	wire.Build(
		infraSet,
		pipelineSet,
		ProvideBatch,
	)
	return nil, nil, nil
}

// InitializeApp wires the zones API with its optional scheduled rebuild.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		infraSet,
		pipelineSet,
		ProvideZonesQuery,
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideRebuildQueue,
		ProvideRebuilder,
		ProvideApp,
	)
	return nil, nil, nil
}
