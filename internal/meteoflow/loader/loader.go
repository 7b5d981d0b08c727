// Package loader commits staged artifacts into the analytical store. Commits
// are idempotent: a load receipt is checked before and persisted after every
// successful write, so a retried task can never double-load a batch.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/avolkhov/meteoflow/internal/meteoflow/model"
	"github.com/avolkhov/meteoflow/internal/meteoflow/staging"
	"github.com/avolkhov/meteoflow/internal/meteoflow/store"
	"github.com/avolkhov/meteoflow/internal/pkg/errno"
	"github.com/avolkhov/meteoflow/internal/pkg/log"
)

// RecordWriter performs the single atomic batch insert for one artifact.
// Either all of the artifact's records land or none do.
type RecordWriter interface {
	Write(ctx context.Context, artifact *model.Artifact) error
}

// Coordinator owns the commit protocol for staged artifacts.
type Coordinator struct {
	receipts  store.ReceiptStore
	artifacts staging.Store
	writer    RecordWriter
	logger    log.Logger
}

// New creates a Coordinator.
func New(receipts store.ReceiptStore, artifacts staging.Store, writer RecordWriter, logger log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{
		receipts:  receipts,
		artifacts: artifacts,
		writer:    writer,
		logger:    logger,
	}
}

// Commit loads the artifact behind key into the analytical store exactly
// once. The sequence is: receipt check, artifact fetch, deserialize, atomic
// batch insert, receipt persist. No receipt is written on any failure, so
// the operation is safe to retry from the top. Concurrent commits of the
// same key must be prevented by the caller's single-task-per-key guarantee.
func (c *Coordinator) Commit(ctx context.Context, runID string, key staging.ArtifactKey) (*model.LoadReceiptM, error) {
	object := key.Object()

	receipt, err := c.receipts.Get(ctx, object)
	if err == nil {
		c.logger.Infow("Artifact already committed, returning existing receipt",
			"artifact", object, "committedAt", receipt.CommittedAt)
		return receipt, nil
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, errno.ErrStoreWrite.WithMessage("receipt lookup for %s failed", object).Wrap(err)
	}

	data, err := c.artifacts.Get(ctx, object)
	if err != nil {
		return nil, errno.ErrStagingUnavailable.WithMessage("fetch artifact %s", object).Wrap(err)
	}

	var artifact model.Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		// Corrupt bytes will never parse on retry; escalate immediately.
		return nil, errno.ErrDeserialization.WithMessage("artifact %s", object).Wrap(err)
	}
	if artifact.RecordCount() == 0 {
		return nil, errno.ErrDeserialization.WithMessage("artifact %s carries no records", object)
	}

	if err := c.writer.Write(ctx, &artifact); err != nil {
		if errno.IsCode(err, errno.ErrDeserialization.Code) {
			return nil, err
		}
		return nil, errno.ErrStoreWrite.WithMessage("write artifact %s", object).Wrap(err)
	}

	receipt = &model.LoadReceiptM{
		ArtifactKey: object,
		RunID:       runID,
		Pipeline:    artifact.Pipeline,
		Kind:        artifact.Kind,
		BatchIndex:  key.BatchIndex,
		RecordCount: int64(artifact.RecordCount()),
		CommittedAt: time.Now(),
	}
	if err := c.receipts.Create(ctx, receipt); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			// Backstop against a racing commit; the unique index decided.
			return c.receipts.Get(ctx, object)
		}
		return nil, errno.ErrStoreWrite.WithMessage("persist receipt for %s", object).Wrap(err)
	}

	c.logger.Infow("Artifact committed",
		"artifact", object, "kind", artifact.Kind, "records", receipt.RecordCount)
	return receipt, nil
}
