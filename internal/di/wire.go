//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"NTIWatch/pkg/config"
	"NTIWatch/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// The returned cleanup closes every client that was opened.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideS3Client,

		// Repositories
		ProvideStateBackend,
		ProvidePriceSource,
		ProvideDocumentSource,
		ProvideEvaluationLog,
		ProvideArtifactSinks,

		// Services and use cases
		ProvideSynthesizer,
		ProvideSignalEngine,
		ProvideEvaluator,
		ProvideScheduler,

		// Delivery
		ProvideStatusHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
