//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"StockSense/pkg/config"
	"StockSense/pkg/server"
)

var coreSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideCache,
	ProvideHandoffStore,
	ProvideTransactionSource,
	ProvideNormalizer,
	ProvideSeriesForecaster,
	ProvideForecastPublisher,
	ProvidePrepareService,
	ProvideForecastService,
)

// InitializeApp wires the HTTP server, run stream and Kafka consumer.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		coreSet,
		ProvideHub,
		ProvideAppObserver,
		ProvideServiceCredential,
		ProvideKafkaConsumer,
		ProvideKafkaRunsHandler,
		ProvideAPIHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializePipeline wires both stages for one-shot command-line runs.
func InitializePipeline(cfg *config.Config) (*Pipeline, func(), error) {
	wire.Build(
		coreSet,
		ProvidePipelineObserver,
		ProvidePipeline,
	)
	return nil, nil, nil
}
