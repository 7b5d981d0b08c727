package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avolkhov/meteoflow/internal/meteoflow/model"
	"github.com/avolkhov/meteoflow/internal/meteoflow/store"
)

func TestRunStoreCreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	istore := store.NewMemory()

	run := &model.PipelineRunM{RunID: "run-1", Pipeline: "weather-etl", Status: "Pending", StartedAt: time.Now()}
	require.NoError(t, istore.Run().Create(ctx, run))
	require.NotZero(t, run.ID)

	run.Status = "Succeeded"
	require.NoError(t, istore.Run().Update(ctx, run))

	got, err := istore.Run().Get(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, "Succeeded", got.Status)
}

func TestRunStoreDuplicateRunID(t *testing.T) {
	ctx := context.Background()
	istore := store.NewMemory()

	require.NoError(t, istore.Run().Create(ctx, &model.PipelineRunM{RunID: "run-1"}))
	err := istore.Run().Create(ctx, &model.PipelineRunM{RunID: "run-1"})
	require.True(t, errors.Is(err, store.ErrDuplicateKey))
}

func TestRunStoreGetMiss(t *testing.T) {
	_, err := store.NewMemory().Run().Get(context.Background(), "missing")
	require.True(t, errors.Is(err, store.ErrRecordNotFound))
}

func TestRunStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	istore := store.NewMemory()
	require.NoError(t, istore.Run().Create(ctx, &model.PipelineRunM{RunID: "run-1", Status: "Pending"}))

	got, err := istore.Run().Get(ctx, "run-1")
	require.NoError(t, err)
	got.Status = "mutated"

	again, err := istore.Run().Get(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, "Pending", again.Status)
}

func TestReceiptStoreUniqueArtifactKey(t *testing.T) {
	ctx := context.Background()
	istore := store.NewMemory()

	receipt := &model.LoadReceiptM{ArtifactKey: "p/ts/batch-0000.json", RunID: "run-1"}
	require.NoError(t, istore.Receipt().Create(ctx, receipt))

	// The unique key is what makes a racing duplicate commit lose.
	err := istore.Receipt().Create(ctx, &model.LoadReceiptM{ArtifactKey: "p/ts/batch-0000.json", RunID: "run-2"})
	require.True(t, errors.Is(err, store.ErrDuplicateKey))

	got, err := istore.Receipt().Get(ctx, "p/ts/batch-0000.json")
	require.NoError(t, err)
	require.Equal(t, "run-1", got.RunID)
}

func TestReceiptStoreListFiltersByRun(t *testing.T) {
	ctx := context.Background()
	istore := store.NewMemory()

	require.NoError(t, istore.Receipt().Create(ctx, &model.LoadReceiptM{ArtifactKey: "k1", RunID: "run-1"}))
	require.NoError(t, istore.Receipt().Create(ctx, &model.LoadReceiptM{ArtifactKey: "k2", RunID: "run-1"}))
	require.NoError(t, istore.Receipt().Create(ctx, &model.LoadReceiptM{ArtifactKey: "k3", RunID: "run-2"}))

	receipts, err := istore.Receipt().List(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, receipts, 2)
}
