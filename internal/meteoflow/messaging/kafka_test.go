package messaging_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avolkhov/meteoflow/internal/meteoflow/messaging"
)

func TestNewPublisherWithoutBrokersIsDisabled(t *testing.T) {
	require.Nil(t, messaging.NewPublisher(nil, "topic", nil))
	require.Nil(t, messaging.NewPublisher([]string{"localhost:9092"}, "", nil))
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *messaging.Publisher

	err := p.Publish(context.Background(), &messaging.RunEvent{
		RunID:     "run-1",
		Stage:     "Loading",
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}
