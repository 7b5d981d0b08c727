//go:build wireinject
// +build wireinject

package meteoflow

import (
	"github.com/google/wire"
)

// InitializeServer builds a fully wired Server from config.
func InitializeServer(cfg Config) (*Server, error) {
	wire.Build(
		NewLogger,
		NewTrackingStore,
		NewArtifactStore,
		NewRecordWriter,
		NewSender,
		NewNotifier,
		NewEventPublisher,
		NewOrchestrator,
		NewServer,
	)
	return nil, nil
}
