// Package staging addresses and stores intermediate pipeline artifacts in an
// object store. Keys are pure functions of the pipeline name, the logical run
// timestamp, and the batch index, so a retried task always lands on the same
// object and re-running a flow overwrites instead of duplicating.
package staging

import (
	"context"
	"fmt"
	"time"
)

// ArtifactKey identifies one staged batch.
type ArtifactKey struct {
	Pipeline   string
	RunTS      time.Time
	BatchIndex int
}

// Object renders the deterministic object name for the key.
func (k ArtifactKey) Object() string {
	return fmt.Sprintf("%s/%s/batch-%04d.json", k.Pipeline, k.RunTS.UTC().Format("20060102T150405Z"), k.BatchIndex)
}

// String implements fmt.Stringer.
func (k ArtifactKey) String() string {
	return k.Object()
}

// RawObject renders the object name for an untouched extraction payload,
// namespaced away from validated batches.
func RawObject(prefix, pipeline, city string, runTS time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%s.json", prefix, pipeline, runTS.UTC().Format("20060102T150405Z"), city)
}

// Store is the byte-oriented artifact store surface. Implementations do not
// retry internally; the task runner's policy owns attempts.
type Store interface {
	// Put writes the blob under the key, last-write-wins.
	Put(ctx context.Context, object string, data []byte) error
	// Get reads the blob, returning errno.ErrArtifactNotFound on a miss.
	Get(ctx context.Context, object string) ([]byte, error)
	// Exists reports whether the key holds an object.
	Exists(ctx context.Context, object string) (bool, error)
}
